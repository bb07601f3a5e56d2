// Package storagetest holds the behavior every storage.Driver must share.
// Driver packages call DescribeDriver from their own test suites.
package storagetest

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/storage"
)

// NewMemory builds an active record for owner with a fixed creation offset
// so ordering assertions are deterministic.
func NewMemory(id, owner, content string, category memory.Category, age time.Duration) *memory.Memory {
	return &memory.Memory{
		ID:         id,
		OwnerID:    owner,
		Content:    content,
		Category:   category,
		Confidence: 0.8,
		CreatedAt:  time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC).Add(-age),
		Tags:       []string{"test"},
		Active:     true,
	}
}

// DescribeDriver registers the shared storage.Driver specs. newDriver is
// called once per spec and must return an empty store.
func DescribeDriver(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
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

	Describe("Save and Get", func() {
		It("stores and retrieves a record", func() {
			m := NewMemory("m1", "alice", "Works at Acme", memory.CategoryWorkInfo, 0)
			m.ConversationID = "conv-1"
			Expect(driver.Save(ctx, m)).To(Succeed())

			got, err := driver.Get(ctx, "m1", "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal("m1"))
			Expect(got.OwnerID).To(Equal("alice"))
			Expect(got.Content).To(Equal("Works at Acme"))
			Expect(got.Category).To(Equal(memory.CategoryWorkInfo))
			Expect(got.Confidence).To(BeNumerically("~", 0.8, 1e-9))
			Expect(got.ConversationID).To(Equal("conv-1"))
			Expect(got.Tags).To(Equal([]string{"test"}))
			Expect(got.Active).To(BeTrue())
			Expect(got.CreatedAt).To(BeTemporally("~", m.CreatedAt, time.Millisecond))
		})

		It("is idempotent by id", func() {
			m := NewMemory("m1", "alice", "Likes tea", memory.CategoryPreferences, 0)
			Expect(driver.Save(ctx, m)).To(Succeed())
			Expect(driver.Save(ctx, m)).To(Succeed())

			all, err := driver.List(ctx, "alice", storage.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("keeps empty tags as an empty list", func() {
			m := NewMemory("m1", "alice", "Likes tea", memory.CategoryPreferences, 0)
			m.Tags = nil
			Expect(driver.Save(ctx, m)).To(Succeed())

			got, err := driver.Get(ctx, "m1", "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Tags).To(BeEmpty())
		})

		It("reports a foreign owner as not found", func() {
			Expect(driver.Save(ctx, NewMemory("m1", "alice", "Lives in Oslo", memory.CategoryPersonalInfo, 0))).To(Succeed())

			_, err := driver.Get(ctx, "m1", "bob")
			Expect(memory.IsNotFound(err)).To(BeTrue())
		})

		It("rejects a save of another owner's id", func() {
			Expect(driver.Save(ctx, NewMemory("m1", "alice", "Likes tea", memory.CategoryPreferences, 0))).To(Succeed())

			err := driver.Save(ctx, NewMemory("m1", "bob", "Likes coffee", memory.CategoryPreferences, 0))
			var storageErr *memory.StorageError
			Expect(errors.As(err, &storageErr)).To(BeTrue())

			got, err := driver.Get(ctx, "m1", "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Content).To(Equal("Likes tea"))

			_, err = driver.Get(ctx, "m1", "bob")
			Expect(memory.IsNotFound(err)).To(BeTrue())
		})

		It("reports a missing id as not found", func() {
			_, err := driver.Get(ctx, "nope", "alice")
			Expect(memory.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			Expect(driver.Save(ctx, NewMemory("old", "alice", "Uses vim", memory.CategoryTools, 3*time.Hour))).To(Succeed())
			Expect(driver.Save(ctx, NewMemory("mid", "alice", "Works at Acme", memory.CategoryWorkInfo, 2*time.Hour))).To(Succeed())
			Expect(driver.Save(ctx, NewMemory("new", "alice", "Uses zed", memory.CategoryTools, time.Hour))).To(Succeed())
			Expect(driver.Save(ctx, NewMemory("bobs", "bob", "Uses emacs", memory.CategoryTools, 0))).To(Succeed())
		})

		It("returns the owner's records newest first", func() {
			all, err := driver.List(ctx, "alice", storage.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(all)).To(Equal([]string{"new", "mid", "old"}))
		})

		It("applies the limit", func() {
			all, err := driver.List(ctx, "alice", storage.ListOptions{Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(all)).To(Equal([]string{"new", "mid"}))
		})

		It("filters by category", func() {
			all, err := driver.List(ctx, "alice", storage.ListOptions{Category: memory.CategoryTools})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(all)).To(Equal([]string{"new", "old"}))
		})

		It("excludes retired records", func() {
			Expect(driver.Retire(ctx, "mid", "alice", storage.RetireOptions{Reason: "user request"})).To(Succeed())

			all, err := driver.List(ctx, "alice", storage.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(all)).To(Equal([]string{"new", "old"}))
		})

		It("returns an empty list for an unknown owner", func() {
			all, err := driver.List(ctx, "carol", storage.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(BeEmpty())
		})
	})

	Describe("Retire", func() {
		BeforeEach(func() {
			Expect(driver.Save(ctx, NewMemory("m1", "alice", "Works at Acme", memory.CategoryWorkInfo, time.Hour))).To(Succeed())
		})

		It("deactivates the record and logs one event", func() {
			err := driver.Retire(ctx, "m1", "alice", storage.RetireOptions{
				Reason:           "Superseded by newer information",
				RelationshipType: memory.RelationshipSuperseded,
				RelatedMemoryID:  "m2",
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = driver.Get(ctx, "m1", "alice")
			Expect(memory.IsNotFound(err)).To(BeTrue())

			events, err := driver.RetirementEvents(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].ID).NotTo(BeEmpty())
			Expect(events[0].MemoryID).To(Equal("m1"))
			Expect(events[0].RelatedMemoryID).To(Equal("m2"))
			Expect(events[0].RelationshipType).To(Equal(memory.RelationshipSuperseded))
			Expect(events[0].Reason).To(Equal("Superseded by newer information"))
		})

		It("defaults the relationship to retired", func() {
			Expect(driver.Retire(ctx, "m1", "alice", storage.RetireOptions{Reason: "user request"})).To(Succeed())

			events, err := driver.RetirementEvents(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].RelationshipType).To(Equal(memory.RelationshipRetired))
		})

		It("refuses a second retirement without logging", func() {
			Expect(driver.Retire(ctx, "m1", "alice", storage.RetireOptions{})).To(Succeed())

			err := driver.Retire(ctx, "m1", "alice", storage.RetireOptions{})
			Expect(memory.IsNotFound(err)).To(BeTrue())

			events, err := driver.RetirementEvents(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
		})

		It("refuses a foreign owner without logging", func() {
			err := driver.Retire(ctx, "m1", "bob", storage.RetireOptions{})
			Expect(memory.IsNotFound(err)).To(BeTrue())

			_, err = driver.Get(ctx, "m1", "alice")
			Expect(err).NotTo(HaveOccurred())

			events, err := driver.RetirementEvents(ctx, "bob")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(BeEmpty())
		})

		It("keeps the log oldest first", func() {
			Expect(driver.Save(ctx, NewMemory("m2", "alice", "Works at Initech", memory.CategoryWorkInfo, 0))).To(Succeed())
			Expect(driver.Retire(ctx, "m1", "alice", storage.RetireOptions{Reason: "first"})).To(Succeed())
			Expect(driver.Retire(ctx, "m2", "alice", storage.RetireOptions{Reason: "second"})).To(Succeed())

			events, err := driver.RetirementEvents(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(2))
			Expect(events[0].MemoryID).To(Equal("m1"))
			Expect(events[1].MemoryID).To(Equal("m2"))
		})
	})

	Describe("Stats", func() {
		It("aggregates active records only", func() {
			a := NewMemory("a", "alice", "Uses vim", memory.CategoryTools, 2*time.Hour)
			a.Confidence = 0.6
			b := NewMemory("b", "alice", "Uses zed", memory.CategoryTools, time.Hour)
			b.Confidence = 1.0
			c := NewMemory("c", "alice", "Works at Acme", memory.CategoryWorkInfo, 0)
			c.Confidence = 0.2
			for _, m := range []*memory.Memory{a, b, c} {
				Expect(driver.Save(ctx, m)).To(Succeed())
			}
			Expect(driver.Retire(ctx, "c", "alice", storage.RetireOptions{})).To(Succeed())

			stats, err := driver.Stats(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Count).To(Equal(2))
			Expect(stats.PerCategory).To(Equal(map[memory.Category]int{memory.CategoryTools: 2}))
			Expect(stats.AvgConfidence).To(BeNumerically("~", 0.8, 1e-9))
		})

		It("returns zeroed stats for an unknown owner", func() {
			stats, err := driver.Stats(ctx, "nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Count).To(Equal(0))
			Expect(stats.PerCategory).To(BeEmpty())
			Expect(stats.AvgConfidence).To(BeZero())
		})
	})

	Describe("Owners", func() {
		It("lists owners with any record", func() {
			Expect(driver.Save(ctx, NewMemory("a", "bob", "x", memory.CategoryOther, 0))).To(Succeed())
			Expect(driver.Save(ctx, NewMemory("b", "alice", "y", memory.CategoryOther, 0))).To(Succeed())
			Expect(driver.Retire(ctx, "a", "bob", storage.RetireOptions{})).To(Succeed())

			owners, err := driver.Owners(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(owners).To(Equal([]string{"alice", "bob"}))
		})
	})

	Describe("Ping", func() {
		It("succeeds on an open store", func() {
			Expect(driver.Ping(ctx)).To(Succeed())
		})
	})
}

func ids(ms []*memory.Memory) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}
