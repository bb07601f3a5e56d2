package credentials_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/credentials"
)

// setEnv sets key for the duration of the current spec.
func setEnv(key, value string) {
	prev, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			os.Setenv(key, prev)
			return
		}
		os.Unsetenv(key)
	})
}

var _ = Describe("Manager", func() {
	var (
		dir string
		mgr *credentials.Manager
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(dir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("targets credentials.toml inside the override directory", func() {
		Expect(mgr.GetTarget()).To(Equal(filepath.Join(dir, "credentials.toml")))
	})

	Describe("Load", func() {
		It("returns empty credentials when no file exists", func() {
			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(BeEmpty())
		})

		It("reads an existing file", func() {
			data := "version = 0\n\n[providers.anthropic]\napi_key = \"sk-ant-test\"\n"
			Expect(os.WriteFile(mgr.GetTarget(), []byte(data), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(HaveKeyWithValue("anthropic", credentials.ProviderCredential{APIKey: "sk-ant-test"}))
		})

		It("rejects malformed TOML", func() {
			Expect(os.WriteFile(mgr.GetTarget(), []byte("not valid [[["), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).To(HaveOccurred())
			Expect(creds).To(BeNil())
		})
	})

	Describe("Save", func() {
		It("writes the file owner-readable only", func() {
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())

			info, err := os.Stat(mgr.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("refuses nil credentials", func() {
			Expect(mgr.Save(nil)).NotTo(Succeed())
		})
	})

	Describe("keys", func() {
		It("overwrites a key and keeps the others", func() {
			Expect(mgr.SetKey("openai", "sk-old")).To(Succeed())
			Expect(mgr.SetKey("anthropic", "sk-ant")).To(Succeed())
			Expect(mgr.SetKey("openai", "sk-new")).To(Succeed())

			Expect(mgr.GetKey("openai")).To(Equal("sk-new"))
			Expect(mgr.GetKey("anthropic")).To(Equal("sk-ant"))
			Expect(mgr.ListProviders()).To(Equal([]string{"anthropic", "openai"}))
		})

		It("returns an empty key for unknown providers", func() {
			Expect(mgr.GetKey("nonexistent")).To(BeEmpty())
		})

		It("removes a key and tolerates removing a missing one", func() {
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())
			Expect(mgr.RemoveKey("openai")).To(Succeed())
			Expect(mgr.RemoveKey("openai")).To(Succeed())

			Expect(mgr.GetKey("openai")).To(BeEmpty())
			Expect(mgr.ListProviders()).To(BeEmpty())
		})
	})

	Describe("ResolveKey", func() {
		BeforeEach(func() {
			setEnv("OPENAI_API_KEY", "")
			Expect(mgr.SetKey("openai", "sk-stored")).To(Succeed())
		})

		It("prefers an explicitly configured key", func() {
			setEnv("OPENAI_API_KEY", "sk-env")
			Expect(mgr.ResolveKey("openai", "sk-config")).To(Equal("sk-config"))
		})

		It("falls back to the environment", func() {
			setEnv("OPENAI_API_KEY", "sk-env")
			Expect(mgr.ResolveKey("openai", "")).To(Equal("sk-env"))
		})

		It("falls back to the stored key", func() {
			Expect(mgr.ResolveKey("openai", "")).To(Equal("sk-stored"))
		})

		It("leaves keyless providers alone", func() {
			Expect(mgr.ResolveKey("ollama", "")).To(BeEmpty())
		})
	})
})

var _ = Describe("providers", func() {
	DescribeTable("EnvVarForProvider",
		func(provider, want string) {
			Expect(credentials.EnvVarForProvider(provider)).To(Equal(want))
		},
		Entry("openai", "openai", "OPENAI_API_KEY"),
		Entry("anthropic", "anthropic", "ANTHROPIC_API_KEY"),
		Entry("unknown", "ollama", ""),
	)

	It("supports only hosted providers", func() {
		Expect(credentials.SupportedProviders()).To(ConsistOf("openai", "anthropic"))
		Expect(credentials.IsSupportedProvider("ollama")).To(BeFalse())
	})
})
