// Package vectortest holds the behavior every vector.Driver must share.
// Driver packages call DescribeDriver from their own test suites.
package vectortest

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/vector"
)

// Dimensions is the embedding width used by the shared specs.
const Dimensions = 4

// Doc builds a document for the shared specs.
func Doc(id, owner string, emb ...float32) vector.Document {
	return vector.Document{ID: id, OwnerID: owner, Category: "tools", Embedding: emb}
}

// DescribeDriver registers the shared vector.Driver specs. newDriver is
// called once per spec and must return an empty index of Dimensions width.
func DescribeDriver(newDriver func() vector.Driver) {
	var (
		driver vector.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = nil
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
			driver = nil
		}
	})

	Describe("Add", func() {
		It("does nothing when given empty docs", func() {
			Expect(driver.Add(ctx, []vector.Document{})).To(Succeed())

			n, err := driver.Count(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(0))
		})

		It("upserts by id", func() {
			Expect(driver.Add(ctx, []vector.Document{Doc("d1", "alice", 1, 0, 0, 0)})).To(Succeed())
			Expect(driver.Add(ctx, []vector.Document{Doc("d1", "alice", 0, 1, 0, 0)})).To(Succeed())

			n, err := driver.Count(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			docs, err := driver.Get(ctx, []string{"d1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Embedding).To(HaveLen(Dimensions))
			Expect(docs[0].Embedding[1]).To(BeNumerically("~", 1, 1e-5))
		})

		It("rejects embeddings of the wrong width", func() {
			err := driver.Add(ctx, []vector.Document{Doc("d1", "alice", 1, 0)})
			Expect(errors.Is(err, vector.ErrDimensionMismatch)).To(BeTrue())
		})
	})

	Describe("Query", func() {
		BeforeEach(func() {
			Expect(driver.Add(ctx, []vector.Document{
				Doc("exact", "alice", 1, 0, 0, 0),
				Doc("near", "alice", 0.9, 0.1, 0, 0),
				Doc("far", "alice", 0, 0, 1, 0),
				Doc("bobs", "bob", 1, 0, 0, 0),
			})).To(Succeed())
		})

		It("returns the owner's closest documents in descending score order", func() {
			results, err := driver.Query(ctx, "alice", []float32{1, 0, 0, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].ID).To(Equal("exact"))
			Expect(results[1].ID).To(Equal("near"))
			Expect(results[2].ID).To(Equal("far"))

			Expect(results[0].Score).To(BeNumerically("~", 1, 1e-3))
			Expect(results[2].Score).To(BeNumerically("~", 0, 1e-3))
			for i := 1; i < len(results); i++ {
				Expect(results[i-1].Score).To(BeNumerically(">=", results[i].Score))
			}
		})

		It("never returns another owner's documents", func() {
			results, err := driver.Query(ctx, "bob", []float32{1, 0, 0, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("bobs"))
			Expect(results[0].OwnerID).To(Equal("bob"))
		})

		It("respects topK", func() {
			results, err := driver.Query(ctx, "alice", []float32{1, 0, 0, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("exact"))
		})

		It("clamps topK larger than the owner's document count", func() {
			results, err := driver.Query(ctx, "alice", []float32{1, 0, 0, 0}, 20)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
		})

		It("returns nothing for an owner without documents", func() {
			results, err := driver.Query(ctx, "carol", []float32{1, 0, 0, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})

		It("returns nothing for a non-positive topK", func() {
			results, err := driver.Query(ctx, "alice", []float32{1, 0, 0, 0}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})
	})

	Describe("Query with a crowded neighbor", func() {
		BeforeEach(func() {
			Expect(driver.Add(ctx, []vector.Document{
				Doc("bobs", "bob", 0, 1, 0, 0),
				Doc("a1", "alice", 1, 0, 0, 0),
				Doc("a2", "alice", 1, 0.01, 0, 0),
				Doc("a3", "alice", 1, 0, 0.01, 0),
				Doc("a4", "alice", 1, 0, 0, 0.01),
				Doc("a5", "alice", 1, 0.02, 0, 0),
			})).To(Succeed())
		})

		It("filters by owner before ranking", func() {
			results, err := driver.Query(ctx, "bob", []float32{1, 0, 0, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("bobs"))
			Expect(results[0].OwnerID).To(Equal("bob"))
		})
	})

	Describe("Get", func() {
		BeforeEach(func() {
			Expect(driver.Add(ctx, []vector.Document{
				Doc("d1", "alice", 1, 0, 0, 0),
				Doc("d2", "bob", 0, 1, 0, 0),
			})).To(Succeed())
		})

		It("returns documents with owner and embedding", func() {
			docs, err := driver.Get(ctx, []string{"d1", "d2"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))

			owners := map[string]string{}
			for _, d := range docs {
				owners[d.ID] = d.OwnerID
				Expect(d.Embedding).To(HaveLen(Dimensions))
			}
			Expect(owners).To(Equal(map[string]string{"d1": "alice", "d2": "bob"}))
		})

		It("skips missing ids", func() {
			docs, err := driver.Get(ctx, []string{"d1", "missing"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].ID).To(Equal("d1"))
		})

		It("returns nothing for empty ids", func() {
			docs, err := driver.Get(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
		})
	})

	Describe("Delete", func() {
		BeforeEach(func() {
			Expect(driver.Add(ctx, []vector.Document{
				Doc("d1", "alice", 1, 0, 0, 0),
				Doc("d2", "alice", 0, 1, 0, 0),
			})).To(Succeed())
		})

		It("removes the document from query results", func() {
			Expect(driver.Delete(ctx, "d1", "alice")).To(Succeed())

			results, err := driver.Query(ctx, "alice", []float32{1, 0, 0, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("d2"))
		})

		It("reports a missing id", func() {
			err := driver.Delete(ctx, "missing", "alice")
			Expect(errors.Is(err, vector.ErrNotFound)).To(BeTrue())
		})

		It("refuses to delete another owner's document", func() {
			err := driver.Delete(ctx, "d1", "bob")
			Expect(errors.Is(err, vector.ErrNotFound)).To(BeTrue())

			n, err := driver.Count(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
		})
	})

	Describe("Count and Stats", func() {
		It("counts per owner and overall", func() {
			Expect(driver.Add(ctx, []vector.Document{
				Doc("d1", "alice", 1, 0, 0, 0),
				Doc("d2", "alice", 0, 1, 0, 0),
				Doc("d3", "bob", 0, 0, 1, 0),
			})).To(Succeed())

			n, err := driver.Count(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))

			n, err = driver.Count(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(3))

			stats, err := driver.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(Equal(3))
			Expect(stats.Owners).To(Equal(2))
		})
	})

	Describe("Ping", func() {
		It("succeeds on an open index", func() {
			Expect(driver.Ping(ctx)).To(Succeed())
		})
	})
}
