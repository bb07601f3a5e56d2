package memory_test

import (
	"errors"
	"fmt"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/memory"
)

var _ = Describe("NormalizeCategory", func() {
	DescribeTable("maps classifier output onto the closed enum",
		func(raw string, expected memory.Category) {
			Expect(memory.NormalizeCategory(raw)).To(Equal(expected))
		},
		Entry("exact", "tools", memory.CategoryTools),
		Entry("upper case", "PREFERENCES", memory.CategoryPreferences),
		Entry("padded", "  skills ", memory.CategorySkills),
		Entry("spaces", "personal info", memory.CategoryPersonalInfo),
		Entry("dashes", "work-info", memory.CategoryWorkInfo),
		Entry("relationships", "relationships", memory.CategoryRelationships),
		Entry("unknown", "hobbies", memory.CategoryOther),
		Entry("empty", "", memory.CategoryOther),
	)

	It("lists every category as valid", func() {
		for _, c := range memory.Categories() {
			Expect(c.IsValid()).To(BeTrue(), string(c))
		}
		Expect(memory.Category("music").IsValid()).To(BeFalse())
	})
})

var _ = Describe("ValidateCandidate", func() {
	It("rejects empty content", func() {
		_, err := memory.ValidateCandidate("alice", "c1", &memory.Candidate{Content: "   "})

		var verr *memory.ValidationError
		Expect(errors.As(err, &verr)).To(BeTrue())
		Expect(verr.Field).To(Equal("content"))
	})

	It("rejects a missing candidate", func() {
		_, err := memory.ValidateCandidate("alice", "c1", nil)
		Expect(err).To(BeAssignableToTypeOf(&memory.ValidationError{}))
	})

	It("rejects a missing owner", func() {
		_, err := memory.ValidateCandidate("", "c1", &memory.Candidate{Content: "x"})
		Expect(err).To(HaveOccurred())
	})

	It("clamps, normalizes and dedupes", func() {
		m, err := memory.ValidateCandidate("alice", "c1", &memory.Candidate{
			Content:    "  I use Notion  ",
			Category:   "Tools",
			Confidence: 1.7,
			Tags:       []string{"notes", " notes", "", "apps", "notes"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(m.OwnerID).To(Equal("alice"))
		Expect(m.ConversationID).To(Equal("c1"))
		Expect(m.Content).To(Equal("I use Notion"))
		Expect(m.Category).To(Equal(memory.CategoryTools))
		Expect(m.Confidence).To(Equal(1.0))
		Expect(m.Tags).To(Equal([]string{"notes", "apps"}))
		Expect(m.Active).To(BeTrue())
		Expect(m.ID).To(BeEmpty())
	})

	DescribeTable("ClampConfidence",
		func(in, out float64) {
			Expect(memory.ClampConfidence(in)).To(Equal(out))
		},
		Entry("negative", -0.2, 0.0),
		Entry("inside", 0.42, 0.42),
		Entry("above", 3.0, 1.0),
		Entry("NaN", math.NaN(), 0.0),
	)
})

var _ = Describe("FallbackDecision", func() {
	It("builds a low-confidence ADD from the raw text", func() {
		d := memory.FallbackDecision("I like tea")
		Expect(d.Action).To(Equal(memory.ActionAdd))
		Expect(d.Fallback).To(BeTrue())
		Expect(d.Candidate.Content).To(Equal("User mentioned: I like tea"))
		Expect(d.Candidate.Category).To(Equal("other"))
		Expect(d.Candidate.Confidence).To(Equal(0.5))
		Expect(d.Candidate.Tags).To(ConsistOf("fallback"))
	})
})

var _ = Describe("ParseIntent", func() {
	It("recognizes the three intents", func() {
		for _, s := range []string{"memory_question", "general_chat", "memory_sharing"} {
			i, ok := memory.ParseIntent(s)
			Expect(ok).To(BeTrue())
			Expect(string(i)).To(Equal(s))
		}
		_, ok := memory.ParseIntent("smalltalk")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Stats", func() {
	It("tracks a running confidence average", func() {
		s := memory.NewStats()
		s.Add(&memory.Memory{Category: memory.CategoryTools, Confidence: 1})
		s.Add(&memory.Memory{Category: memory.CategoryTools, Confidence: 0.5})
		s.Add(&memory.Memory{Category: memory.CategoryGoals, Confidence: 0})

		Expect(s.Count).To(Equal(3))
		Expect(s.PerCategory[memory.CategoryTools]).To(Equal(2))
		Expect(s.PerCategory[memory.CategoryGoals]).To(Equal(1))
		Expect(s.AvgConfidence).To(BeNumerically("~", 0.5, 1e-9))
	})
})

var _ = Describe("errors", func() {
	It("unwraps dependency and storage causes", func() {
		cause := errors.New("boom")
		Expect(errors.Is(&memory.DependencyError{Op: "decide", Err: cause}, cause)).To(BeTrue())
		Expect(errors.Is(&memory.StorageError{Op: "save", Err: cause}, cause)).To(BeTrue())
	})

	It("detects wrapped not found errors", func() {
		err := fmt.Errorf("retiring: %w", &memory.NotFoundError{Target: "abc"})
		Expect(memory.IsNotFound(err)).To(BeTrue())
		Expect(memory.IsNotFound(errors.New("other"))).To(BeFalse())
	})

	It("describes drift", func() {
		w := &memory.DriftWarning{OwnerID: "alice", StructuredCount: 2, IndexCount: 1}
		Expect(w.Error()).To(ContainSubstring("structured=2 index=1"))
	})

	It("clones without aliasing tags", func() {
		m := &memory.Memory{ID: "1", Tags: []string{"a"}}
		c := m.Clone()
		c.Tags[0] = "b"
		Expect(m.Tags[0]).To(Equal("a"))
	})
})
