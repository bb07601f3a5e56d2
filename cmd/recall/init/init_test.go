package initcmder_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/recall/cmd/recall/init"
	"github.com/papercomputeco/recall/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "recall-init-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	execute := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	It("creates a .recall directory with a default config.toml", func() {
		Expect(execute()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".recall"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Storage.Provider).To(Equal("sqlite"))
		Expect(cfg.VectorStore.Provider).To(Equal("chromem"))
		Expect(cfg.LLM.Provider).To(Equal("ollama"))
		Expect(cfg.API.Listen).To(Equal(":8081"))
	})

	It("does not overwrite an existing config.toml without a preset", func() {
		dir := filepath.Join(tmpDir, ".recall")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[api]\nlisten = \":9999\"\n"), 0o600)).To(Succeed())

		Expect(execute()).To(Succeed())
		Expect(loadConfig(tmpDir).API.Listen).To(Equal(":9999"))
	})

	It("keeps other files in an existing .recall directory", func() {
		dir := filepath.Join(tmpDir, ".recall")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		session := filepath.Join(dir, "session.json")
		Expect(os.WriteFile(session, []byte(`{"owner_id":"alice"}`), 0o600)).To(Succeed())

		Expect(execute()).To(Succeed())

		data, err := os.ReadFile(session)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"owner_id":"alice"}`))
	})

	Describe("--preset with provider presets", func() {
		It("writes the openai preset", func() {
			Expect(execute("--preset", "openai")).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.LLM.Provider).To(Equal("openai"))
			Expect(cfg.Embedding.Provider).To(Equal("openai"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))
		})

		It("writes the anthropic preset with local embeddings", func() {
			Expect(execute("--preset", "anthropic")).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.LLM.Provider).To(Equal("anthropic"))
			Expect(cfg.Embedding.Provider).To(Equal("ollama"))
		})

		It("rejects unknown preset names without creating anything", func() {
			err := execute("--preset", "invalid-provider")
			Expect(err).To(MatchError(ContainSubstring("unknown preset")))

			_, statErr := os.Stat(filepath.Join(tmpDir, ".recall"))
			Expect(os.IsNotExist(statErr)).To(BeTrue())
		})

		It("overwrites config.toml when re-run with another preset", func() {
			Expect(execute("--preset", "openai")).To(Succeed())
			Expect(loadConfig(tmpDir).LLM.Provider).To(Equal("openai"))

			Expect(execute("--preset", "anthropic")).To(Succeed())
			Expect(loadConfig(tmpDir).LLM.Provider).To(Equal("anthropic"))
		})
	})

	Describe("--preset with remote URL", func() {
		It("fetches and writes a remote config.toml", func() {
			remote := `version = 0

[llm]
provider = "openai"
model = "gpt-4o"

[embedding]
model = "text-embedding-3-small"
dimensions = 1536
`
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, remote)
			}))
			defer server.Close()

			Expect(execute("--preset", server.URL)).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.LLM.Provider).To(Equal("openai"))
			Expect(cfg.LLM.Model).To(Equal("gpt-4o"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))
		})

		It("returns an error for non-200 responses", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			Expect(execute("--preset", server.URL)).To(MatchError(ContainSubstring("HTTP 404")))
		})

		It("returns an error for invalid TOML", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			defer server.Close()

			Expect(execute("--preset", server.URL)).To(MatchError(ContainSubstring("parsing")))
		})

		It("returns an error for unreachable URLs", func() {
			Expect(execute("--preset", "http://127.0.0.1:1")).To(MatchError(ContainSubstring("fetching remote config")))
		})
	})
})

// loadConfig reads and parses the config.toml from the .recall directory
// within baseDir.
func loadConfig(baseDir string) *config.Config {
	data, err := os.ReadFile(filepath.Join(baseDir, ".recall", "config.toml"))
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	ExpectWithOffset(1, toml.Unmarshal(data, cfg)).To(Succeed())
	return cfg
}
