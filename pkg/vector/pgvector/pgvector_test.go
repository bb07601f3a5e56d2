package pgvector_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/vector"
	"github.com/papercomputeco/recall/pkg/vector/pgvector"
	"github.com/papercomputeco/recall/pkg/vector/vectortest"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("RECALL_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("RECALL_TEST_POSTGRES_DSN not set, skipping pgvector tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	Describe("NewDriver", func() {
		It("requires a DSN", func() {
			_, err := pgvector.NewDriver(context.Background(), pgvector.Config{Dimensions: 4}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("DSN is required")))
		})

		It("requires dimensions", func() {
			_, err := pgvector.NewDriver(context.Background(), pgvector.Config{DSN: "postgres://localhost/recall"}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("dimensions")))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*pgvector.Driver)(nil)
		})
	})

	Describe("against a live database", func() {
		vectortest.DescribeDriver(func() vector.Driver {
			ctx := context.Background()
			d, err := pgvector.NewDriver(ctx, pgvector.Config{
				DSN:        connStr(),
				Table:      "memory_embeddings_test",
				Dimensions: vectortest.Dimensions,
			}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Truncate(ctx)).To(Succeed())
			return d
		})
	})
})
