package coordinator_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/coordinator"
	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/ownerlock"
	"github.com/papercomputeco/recall/pkg/storage/inmemory"
	"github.com/papercomputeco/recall/pkg/understanding"
	testutils "github.com/papercomputeco/recall/pkg/utils/test"
	"github.com/papercomputeco/recall/pkg/vector"
	"github.com/papercomputeco/recall/pkg/vector/chromem"
)

var _ = Describe("Coordinator", func() {
	var (
		ctx       context.Context
		base      *inmemory.Driver
		store     *testutils.FaultyStore
		index     *testutils.FaultyVectorDriver
		u         *scriptedUnderstander
		publisher *recordingPublisher
		coord     *coordinator.Coordinator
	)

	BeforeEach(func() {
		ctx = context.Background()
		base = inmemory.NewDriver()
		store = testutils.NewFaultyStore(base)
		index = testutils.NewFaultyVectorDriver(chromem.NewDriver(chromem.Config{Dimensions: dims}, logger.Nop()))
		u = newScripted()
		publisher = &recordingPublisher{}

		var err error
		coord, err = coordinator.New(coordinator.Config{
			Store:        store,
			Index:        index,
			Understander: u,
			Publisher:    publisher,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	ingest := func(owner, text string, d *memory.Decision) *coordinator.IngestResult {
		GinkgoHelper()
		u.queue(d)
		res, err := coord.ProcessMessage(ctx, owner, text, "conv-1")
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	indexCount := func(owner string) int {
		GinkgoHelper()
		n, err := index.Count(ctx, owner)
		Expect(err).NotTo(HaveOccurred())
		return n
	}

	Describe("New", func() {
		It("requires a store, an index and an understander", func() {
			_, err := coordinator.New(coordinator.Config{Store: base})
			Expect(errors.Is(err, memory.ErrNotConfigured)).To(BeTrue())
		})
	})

	Describe("ProcessMessage", func() {
		It("stores an ADD in both stores under the same id", func() {
			res := ingest("alice", "I use Notion for notes", add("I use Notion for notes", "Tools"))

			Expect(res.Success).To(BeTrue())
			Expect(res.ExtractedCount).To(Equal(1))
			Expect(res.Action).To(Equal(memory.ActionAdd))
			Expect(res.Records).To(HaveLen(1))

			id := res.Records[0].ID
			stored, err := store.Get(ctx, id, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Content).To(Equal("I use Notion for notes"))
			Expect(stored.Category).To(Equal(memory.CategoryTools))
			Expect(stored.ConversationID).To(Equal("conv-1"))
			Expect(stored.Active).To(BeTrue())

			docs, err := index.Get(ctx, []string{id})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].OwnerID).To(Equal("alice"))

			Expect(publisher.types()).To(Equal([]string{eventstream.EventTypeMemoryCreated}))
		})

		It("stamps records at microsecond precision", func() {
			res := ingest("alice", "I like tea", add("I like tea", "preferences"))

			created := res.Records[0].CreatedAt
			Expect(created.Nanosecond() % int(time.Microsecond)).To(BeZero())
			Expect(created.Location()).To(Equal(time.UTC))

			stored, err := store.Get(ctx, res.Records[0].ID, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.CreatedAt).To(Equal(created))
		})

		It("writes nothing for IGNORE", func() {
			res := ingest("alice", "hello there", ignore())

			Expect(res.Success).To(BeTrue())
			Expect(res.ExtractedCount).To(Equal(0))
			Expect(res.Action).To(Equal(memory.ActionIgnore))
			Expect(base.Count()).To(Equal(0))
			Expect(indexCount("alice")).To(Equal(0))
			Expect(publisher.types()).To(BeEmpty())
		})

		It("rejects an empty candidate before any write", func() {
			u.queue(add("   ", "tools"))
			_, err := coord.ProcessMessage(ctx, "alice", "something", "")

			var verr *memory.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(base.Count()).To(Equal(0))
			Expect(indexCount("")).To(Equal(0))
		})

		It("rejects a missing owner", func() {
			_, err := coord.ProcessMessage(ctx, " ", "I like tea", "")
			Expect(err).To(BeAssignableToTypeOf(&memory.ValidationError{}))
		})

		It("aborts with no side effects when embedding fails", func() {
			u.embedFail["I like tea"] = true
			u.queue(add("I like tea", "preferences"))

			_, err := coord.ProcessMessage(ctx, "alice", "I like tea", "")

			var derr *memory.DependencyError
			Expect(errors.As(err, &derr)).To(BeTrue())
			Expect(base.Count()).To(Equal(0))
			Expect(indexCount("alice")).To(Equal(0))
			Expect(publisher.types()).To(BeEmpty())
		})

		It("surfaces a dimension mismatch as a configuration error", func() {
			u.embedErr = fmt.Errorf("%w: got 3, want 32", vector.ErrDimensionMismatch)
			u.queue(add("I like tea", "preferences"))

			_, err := coord.ProcessMessage(ctx, "alice", "I like tea", "")
			Expect(errors.Is(err, vector.ErrDimensionMismatch)).To(BeTrue())
			Expect(base.Count()).To(Equal(0))
		})

		It("falls back to a low-confidence ADD when the decision is unusable", func() {
			u.decideErr = errors.New("malformed json")

			res, err := coord.ProcessMessage(ctx, "alice", "my cat is called Miso", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Fallback).To(BeTrue())
			Expect(res.ExtractedCount).To(Equal(1))

			m := res.Records[0]
			Expect(m.Content).To(Equal("User mentioned: my cat is called Miso"))
			Expect(m.Category).To(Equal(memory.CategoryOther))
			Expect(m.Confidence).To(Equal(0.5))
			Expect(m.Tags).To(ConsistOf(memory.FallbackTag))
		})

		It("shows the decision at most five recent records, newest first", func() {
			for i := range 7 {
				ingest("alice", "fact", add(fmt.Sprintf("fact %d", i), "other"))
			}
			ingest("alice", "another", ignore())

			last := u.recent[len(u.recent)-1]
			Expect(last).To(Equal([]string{"fact 6", "fact 5", "fact 4", "fact 3", "fact 2"}))
		})

		It("supersedes the matching record on UPDATE", func() {
			first := ingest("alice", "I use Notion", add("I use Notion for note taking", "tools"))
			oldID := first.Records[0].ID

			res := ingest("alice", "I switched to Obsidian", update("I use Obsidian for note taking", "tools", "notion"))
			newID := res.Records[0].ID

			Expect(res.Action).To(Equal(memory.ActionUpdate))
			Expect(res.RetiredID).To(Equal(oldID))

			_, err := store.Get(ctx, oldID, "alice")
			Expect(memory.IsNotFound(err)).To(BeTrue())

			active, err := store.List(ctx, "alice", storageAll)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(HaveLen(1))
			Expect(active[0].Content).To(Equal("I use Obsidian for note taking"))

			history, err := coord.History(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(history[0].MemoryID).To(Equal(oldID))
			Expect(history[0].RelatedMemoryID).To(Equal(newID))
			Expect(history[0].RelationshipType).To(Equal(memory.RelationshipSuperseded))

			Expect(indexCount("alice")).To(Equal(1))
			Expect(publisher.types()).To(Equal([]string{
				eventstream.EventTypeMemoryCreated,
				eventstream.EventTypeMemoryRetired,
				eventstream.EventTypeMemoryCreated,
			}))

			stats, err := coord.Stats(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Count).To(Equal(1))
			Expect(stats.InSync).To(BeTrue())
		})

		It("answers the same search with the new fact after an UPDATE", func() {
			u.vectors["I use Notion for note taking"] = axis(0)
			u.vectors["I use Obsidian for note taking"] = axis(1)
			u.vectors["which note app do I use"] = blend(0, 0.7, 1, 0.7)

			ingest("alice", "I use Notion", add("I use Notion for note taking", "tools"))

			before, err := coord.SearchMemories(ctx, "alice", "which note app do I use", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(before.TotalFound).To(Equal(1))
			Expect(before.Records[0].Content).To(Equal("I use Notion for note taking"))

			ingest("alice", "I switched to Obsidian", update("I use Obsidian for note taking", "tools", "notion"))

			after, err := coord.SearchMemories(ctx, "alice", "which note app do I use", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(after.TotalFound).To(Equal(1))
			Expect(after.Records[0].Content).To(Equal("I use Obsidian for note taking"))
			Expect(after.StaleDropped).To(Equal(0))
			for _, r := range after.Records {
				Expect(r.Content).NotTo(ContainSubstring("Notion"))
			}
		})

		It("matches a hint that contains the old content", func() {
			first := ingest("alice", "x", add("Notion", "tools"))
			res := ingest("alice", "y", update("Obsidian", "tools", "I use Notion daily"))
			Expect(res.RetiredID).To(Equal(first.Records[0].ID))
		})

		It("inserts as new when no record matches the UPDATE hint", func() {
			ingest("alice", "x", add("I like tea", "preferences"))
			res := ingest("alice", "y", update("I use Obsidian", "tools", "Evernote"))

			Expect(res.Action).To(Equal(memory.ActionAdd))
			Expect(res.RetiredID).To(BeEmpty())

			list, err := coord.ListMemories(ctx, "alice", "", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Count).To(Equal(2))

			history, err := coord.History(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(BeEmpty())
		})

		It("keeps going when the index removal fails, and reads drop the stale hit", func() {
			u.vectors["I use Notion"] = axis(0)
			u.vectors["I use Obsidian"] = axis(1)
			u.vectors["note app"] = blend(0, 0.6, 1, 0.4)

			ingest("alice", "x", add("I use Notion", "tools"))
			index.FailDelete = true
			res := ingest("alice", "y", update("I use Obsidian", "tools", "notion"))
			Expect(res.RetiredID).NotTo(BeEmpty())
			Expect(indexCount("alice")).To(Equal(2))

			search, err := coord.SearchMemories(ctx, "alice", "note app", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(search.TotalFound).To(Equal(1))
			Expect(search.StaleDropped).To(Equal(1))
			Expect(search.Records[0].Content).To(Equal("I use Obsidian"))
		})

		It("accepts drift when the index write fails", func() {
			index.FailAdd = true
			res := ingest("alice", "x", add("I like tea", "preferences"))
			Expect(res.Success).To(BeTrue())

			_, err := store.Get(ctx, res.Records[0].ID, "alice")
			Expect(err).NotTo(HaveOccurred())

			stats, err := coord.Stats(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Count).To(Equal(1))
			Expect(stats.IndexCount).To(Equal(0))
			Expect(stats.InSync).To(BeFalse())
			Expect(stats.Drift).NotTo(BeNil())
			Expect(stats.Drift.StructuredCount).To(Equal(1))
		})

		It("never touches the index when the store write fails", func() {
			store.FailSave = true
			u.queue(add("I like tea", "preferences"))

			_, err := coord.ProcessMessage(ctx, "alice", "I like tea", "")

			var serr *memory.StorageError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(index.Added).To(BeEmpty())
			Expect(publisher.types()).To(BeEmpty())
		})

		It("does not fail when publishing fails", func() {
			publisher.err = errors.New("broker down")
			res := ingest("alice", "x", add("I like tea", "preferences"))
			Expect(res.ExtractedCount).To(Equal(1))
		})
	})

	Describe("SearchMemories", func() {
		BeforeEach(func() {
			u.vectors["I like tea"] = axis(0)
			u.vectors["I like coffee"] = axis(1)
			u.vectors["hot drinks"] = blend(0, 0.9, 1, 0.3)
		})

		It("ranks hydrated records by similarity", func() {
			ingest("alice", "x", add("I like coffee", "preferences"))
			ingest("alice", "y", add("I like tea", "preferences"))

			res, err := coord.SearchMemories(ctx, "alice", "hot drinks", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(res.TotalFound).To(Equal(2))
			Expect(res.Records[0].Content).To(Equal("I like tea"))
			Expect(res.Records[1].Content).To(Equal("I like coffee"))
			Expect(res.Records[0].Similarity).To(BeNumerically(">", res.Records[1].Similarity))
			Expect(res.Records[0].Similarity).To(BeNumerically("~", 0.9487, 0.001))
			Expect(res.Response).To(Equal("You told me: I like tea"))
		})

		It("answers with a canned response when nothing matches", func() {
			res, err := coord.SearchMemories(ctx, "alice", "hot drinks", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.TotalFound).To(Equal(0))
			Expect(res.Records).To(BeEmpty())
			Expect(res.Response).To(Equal(understanding.NoMemoriesResponse))
			Expect(u.synthCalls).To(Equal(0))
		})

		It("falls back to a plain listing when synthesis fails", func() {
			ingest("alice", "x", add("I like coffee", "preferences"))
			ingest("alice", "y", add("I like tea", "preferences"))
			u.synthErr = errUnavailable

			res, err := coord.SearchMemories(ctx, "alice", "hot drinks", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Response).To(Equal("Based on what I remember: I like tea, I like coffee"))
		})

		It("returns a SearchError when the query can't be embedded", func() {
			u.embedFail["hot drinks"] = true

			_, err := coord.SearchMemories(ctx, "alice", "hot drinks", 5)
			var serr *coordinator.SearchError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Query).To(Equal("hot drinks"))
		})

		It("returns a SearchError when the index query fails", func() {
			index.FailQuery = true
			_, err := coord.SearchMemories(ctx, "alice", "hot drinks", 5)
			Expect(err).To(BeAssignableToTypeOf(&coordinator.SearchError{}))
		})

		It("drops hits the store can't hydrate", func() {
			res := ingest("alice", "x", add("I like tea", "preferences"))
			store.FailGet[res.Records[0].ID] = true

			search, err := coord.SearchMemories(ctx, "alice", "hot drinks", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(search.TotalFound).To(Equal(0))
			Expect(search.StaleDropped).To(Equal(1))
		})

		DescribeTable("clamps the limit",
			func(limit, expected int) {
				for i := range 25 {
					ingest("alice", "x", add(fmt.Sprintf("fact number %d", i), "other"))
				}
				res, err := coord.SearchMemories(ctx, "alice", "fact number", limit)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Records).To(HaveLen(expected))
			},
			Entry("zero uses the default", 0, 5),
			Entry("negative uses the default", -3, 5),
			Entry("within range", 7, 7),
			Entry("above the cap", 100, 20),
		)
	})

	Describe("owner isolation", func() {
		It("never shows one owner's records to another", func() {
			u.vectors["I like tea"] = axis(0)
			ingest("alice", "x", add("I like tea", "preferences"))

			res, err := coord.SearchMemories(ctx, "bob", "I like tea", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.TotalFound).To(Equal(0))

			list, err := coord.ListMemories(ctx, "bob", "", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Count).To(Equal(0))

			_, err = coord.DeleteByContent(ctx, "bob", "I like tea", "")
			Expect(memory.IsNotFound(err)).To(BeTrue())

			stats, err := coord.Stats(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Count).To(Equal(1))
		})
	})

	Describe("DeleteByContent", func() {
		It("reports NotFound on an empty store and mutates nothing", func() {
			_, err := coord.DeleteByContent(ctx, "alice", "anything", "")

			var nf *memory.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(publisher.types()).To(BeEmpty())

			history, err := coord.History(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(BeEmpty())
		})

		It("retires the best match with the default reason", func() {
			u.vectors["I like tea"] = axis(0)
			u.vectors["I like coffee"] = axis(1)
			u.vectors["tea"] = blend(0, 0.95, 1, 0.05)

			ingest("alice", "x", add("I like coffee", "preferences"))
			tea := ingest("alice", "y", add("I like tea", "preferences"))

			res, err := coord.DeleteByContent(ctx, "alice", "tea", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(res.DeletedID).To(Equal(tea.Records[0].ID))
			Expect(res.DeletedContent).To(Equal("I like tea"))
			Expect(res.Reason).To(Equal(coordinator.DefaultDeleteReason))

			history, err := coord.History(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(history[0].RelationshipType).To(Equal(memory.RelationshipRetired))
			Expect(history[0].Reason).To(Equal("user request"))

			Expect(indexCount("alice")).To(Equal(1))
		})

		It("tolerates a failed index removal", func() {
			u.vectors["I like tea"] = axis(0)
			ingest("alice", "x", add("I like tea", "preferences"))
			index.FailDelete = true

			res, err := coord.DeleteByContent(ctx, "alice", "I like tea", "no longer true")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Reason).To(Equal("no longer true"))

			stats, err := coord.Stats(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Count).To(Equal(0))
			Expect(stats.InSync).To(BeFalse())

			_, err = coord.DeleteByContent(ctx, "alice", "I like tea", "")
			Expect(memory.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("Stats", func() {
		It("counts 3 ADDs less 1 retirement as 2, in sync", func() {
			u.vectors["a"] = axis(0)
			u.vectors["b"] = axis(1)
			u.vectors["c"] = axis(2)
			ingest("alice", "x", add("a", "tools"))
			ingest("alice", "x", add("b", "skills"))
			ingest("alice", "x", add("c", "skills"))

			_, err := coord.DeleteByContent(ctx, "alice", "c", "")
			Expect(err).NotTo(HaveOccurred())

			stats, err := coord.Stats(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Count).To(Equal(2))
			Expect(stats.IndexCount).To(Equal(2))
			Expect(stats.InSync).To(BeTrue())
			Expect(stats.Drift).To(BeNil())
			Expect(stats.PerCategory).To(HaveKeyWithValue(memory.CategoryTools, 1))
			Expect(stats.PerCategory).To(HaveKeyWithValue(memory.CategorySkills, 1))
			Expect(stats.AvgConfidence).To(BeNumerically("~", 0.9, 1e-9))
		})

		It("reports drift when the index can't be counted", func() {
			index.FailCount = true
			stats, err := coord.Stats(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.InSync).To(BeFalse())
		})
	})

	Describe("ListMemories", func() {
		It("filters by normalized category", func() {
			ingest("alice", "x", add("I use Vim", "tools"))
			ingest("alice", "x", add("I like hiking", "hobbies"))

			tools, err := coord.ListMemories(ctx, "alice", "Tools", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(tools.Count).To(Equal(1))
			Expect(tools.Records[0].Content).To(Equal("I use Vim"))

			other, err := coord.ListMemories(ctx, "alice", "bogus", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(other.Count).To(Equal(1))
			Expect(other.Records[0].Content).To(Equal("I like hiking"))

			limited, err := coord.ListMemories(ctx, "alice", "", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(limited.Records[0].Content).To(Equal("I like hiking"))
		})
	})

	Describe("HealthCheck", func() {
		It("is healthy when everything answers", func() {
			report := coord.HealthCheck(ctx)
			Expect(report.Overall).To(Equal(coordinator.HealthHealthy))
			Expect(report.Dependencies).To(HaveLen(3))
		})

		It("is partial when one dependency is down", func() {
			index.FailPing = true
			report := coord.HealthCheck(ctx)
			Expect(report.Overall).To(Equal(coordinator.HealthPartial))
			Expect(report.Dependencies[coordinator.DependencyIndex]).To(BeFalse())
			Expect(report.Dependencies[coordinator.DependencyStore]).To(BeTrue())
		})

		It("reports the size of the similarity index", func() {
			ingest("alice", "x", add("I like tea", "preferences"))
			ingest("alice", "y", add("I like coffee", "preferences"))
			ingest("bob", "z", add("I like juice", "preferences"))

			report := coord.HealthCheck(ctx)
			Expect(report.IndexStats).NotTo(BeNil())
			Expect(report.IndexStats.Total).To(Equal(3))
			Expect(report.IndexStats.Owners).To(Equal(2))
		})

		It("leaves out index stats when the index is down", func() {
			index.FailPing = true
			Expect(coord.HealthCheck(ctx).IndexStats).To(BeNil())
		})

		It("has failed when nothing answers", func() {
			index.FailPing = true
			store.FailPing = true
			u.pingErr = errUnavailable
			Expect(coord.HealthCheck(ctx).Overall).To(Equal(coordinator.HealthFailed))
		})
	})

	Describe("Chat", func() {
		It("remembers shared facts", func() {
			u.intent = memory.IntentMemorySharing
			u.queue(add("I live in Lisbon", "personal_info"))

			res, err := coord.Chat(ctx, "alice", "I live in Lisbon", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Intent).To(Equal(memory.IntentMemorySharing))
			Expect(res.ExtractedCount).To(Equal(1))
			Expect(res.Response).To(ContainSubstring("I live in Lisbon"))
		})

		It("acknowledges shared text with nothing to remember", func() {
			u.intent = memory.IntentMemorySharing
			u.queue(ignore())

			res, err := coord.Chat(ctx, "alice", "I am here", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.ExtractedCount).To(Equal(0))
			Expect(res.Response).NotTo(BeEmpty())
		})

		It("answers memory questions from search", func() {
			u.vectors["I like tea"] = axis(0)
			u.vectors["what do I drink?"] = axis(0)
			ingest("alice", "x", add("I like tea", "preferences"))
			u.intent = memory.IntentMemoryQuestion

			res, err := coord.Chat(ctx, "alice", "what do I drink?", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Records).To(HaveLen(1))
			Expect(res.Response).To(Equal("You told me: I like tea"))
		})

		It("replies to small talk", func() {
			u.intent = memory.IntentGeneralChat
			u.generalReply = "Doing well, thanks!"

			res, err := coord.Chat(ctx, "alice", "how are you", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Response).To(Equal("Doing well, thanks!"))
			Expect(base.Count()).To(Equal(0))
		})

		It("falls back when the general response fails", func() {
			u.intent = memory.IntentGeneralChat
			u.generalErr = errUnavailable

			res, err := coord.Chat(ctx, "alice", "hello", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Response).To(Equal(understanding.FallbackGeneralResponse("hello")))
		})
	})

	Describe("Reconcile", func() {
		It("reindexes records missing from the index", func() {
			index.FailAdd = true
			ingest("alice", "x", add("I like tea", "preferences"))
			ingest("alice", "x", add("I use Vim", "tools"))
			index.FailAdd = false

			report, err := coord.Reconcile(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Reindexed).To(Equal(2))
			Expect(report.Failed).To(Equal(0))

			stats, err := coord.Stats(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.InSync).To(BeTrue())
		})

		It("removes index entries of retired records", func() {
			u.vectors["I like tea"] = axis(0)
			ingest("alice", "x", add("I like tea", "preferences"))
			index.FailDelete = true
			_, err := coord.DeleteByContent(ctx, "alice", "I like tea", "")
			Expect(err).NotTo(HaveOccurred())
			index.FailDelete = false

			report, err := coord.Reconcile(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Removed).To(Equal(1))
			Expect(indexCount("alice")).To(Equal(0))

			history, err := coord.History(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
		})

		It("counts records that can't be embedded", func() {
			index.FailAdd = true
			ingest("alice", "x", add("I like tea", "preferences"))
			index.FailAdd = false
			u.embedFail["I like tea"] = true

			report, err := coord.Reconcile(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Failed).To(Equal(1))
			Expect(report.Reindexed).To(Equal(0))
		})

		It("repairs every owner with ReconcileAll", func() {
			index.FailAdd = true
			ingest("alice", "x", add("I like tea", "preferences"))
			ingest("bob", "x", add("I like coffee", "preferences"))
			ingest("carol", "x", add("I like water", "preferences"))
			index.FailAdd = false

			summary, err := coord.ReconcileAll(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Owners).To(Equal(3))
			Expect(summary.Reindexed).To(Equal(3))
			Expect(summary.FailedOwners).To(Equal(0))

			for _, owner := range []string{"alice", "bob", "carol"} {
				Expect(indexCount(owner)).To(Equal(1))
			}
		})
	})

	Describe("owner lock", func() {
		It("waits for the owner's lock before ingesting", func() {
			locker := ownerlock.NewLocal()
			locked, err := coordinator.New(coordinator.Config{
				Store:        store,
				Index:        index,
				Understander: u,
				Locker:       locker,
			})
			Expect(err).NotTo(HaveOccurred())

			unlock, err := locker.Lock(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())

			short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()
			u.queue(add("I like tea", "preferences"))
			_, err = locked.ProcessMessage(short, "alice", "I like tea", "")
			Expect(err).To(MatchError(ContainSubstring("owner lock")))
			Expect(base.Count()).To(Equal(0))

			unlock()
			res, err := locked.ProcessMessage(ctx, "alice", "I like tea", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.ExtractedCount).To(Equal(1))
		})
	})

	It("closes the publisher", func() {
		Expect(coord.Close()).To(Succeed())
		Expect(publisher.closed).To(BeTrue())
	})
})
