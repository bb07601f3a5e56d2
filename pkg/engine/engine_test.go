package engine_test

import (
	"context"
	"os"
	"path/filepath"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/engine"
	"github.com/papercomputeco/recall/pkg/logger"
)

var _ = Describe("Build", func() {
	var (
		ctx context.Context
		cfg *config.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = config.NewDefaultConfig()
		cfg.Storage.Provider = "memory"
		cfg.VectorStore.Provider = "chromem"
	})

	It("wires the default stack", func() {
		e, err := engine.Build(ctx, cfg, GinkgoT().TempDir(), logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Coordinator).NotTo(BeNil())
		Expect(e.Close()).To(Succeed())
	})

	It("creates the sqlite store in the data directory", func() {
		cfg.Storage.Provider = "sqlite"
		e, err := engine.Build(ctx, cfg, GinkgoT().TempDir(), logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Close()).To(Succeed())
	})

	It("uses a local owner lock", func() {
		cfg.Engine.OwnerLock = "local"
		e, err := engine.Build(ctx, cfg, "", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Close()).To(Succeed())
	})

	It("connects a redis owner lock", func() {
		mr, err := miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		defer mr.Close()

		cfg.Engine.OwnerLock = "redis"
		cfg.Engine.RedisAddr = mr.Addr()

		e, err := engine.Build(ctx, cfg, "", logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Close()).To(Succeed())
	})

	It("reads hosted provider keys from the credentials file", func() {
		prev, had := os.LookupEnv("OPENAI_API_KEY")
		Expect(os.Setenv("OPENAI_API_KEY", "")).To(Succeed())
		DeferCleanup(func() {
			if had {
				os.Setenv("OPENAI_API_KEY", prev)
				return
			}
			os.Unsetenv("OPENAI_API_KEY")
		})

		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "credentials.toml"), []byte("not valid [[["), 0o600)).To(Succeed())

		cfg.LLM.Provider = "openai"
		_, err := engine.Build(ctx, cfg, dir, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("loading credentials")))

		cfg.LLM.APIKey = "sk-config"
		e, err := engine.Build(ctx, cfg, dir, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Close()).To(Succeed())
	})

	DescribeTable("rejects unsupported providers",
		func(mutate func(*config.Config), msg string) {
			mutate(cfg)
			_, err := engine.Build(ctx, cfg, "", logger.Nop())
			Expect(err).To(MatchError(ContainSubstring(msg)))
		},
		Entry("storage", func(c *config.Config) { c.Storage.Provider = "mongo" }, "unsupported storage provider"),
		Entry("vector", func(c *config.Config) { c.VectorStore.Provider = "faiss" }, "unsupported vector store provider"),
		Entry("llm", func(c *config.Config) { c.LLM.Provider = "bard" }, "unsupported llm provider"),
		Entry("events", func(c *config.Config) { c.Events.Provider = "pulsar" }, "unsupported events provider"),
		Entry("owner lock", func(c *config.Config) { c.Engine.OwnerLock = "zookeeper" }, "unsupported owner lock"),
	)
})
