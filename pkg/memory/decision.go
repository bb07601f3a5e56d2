package memory

import "fmt"

// Action is the outcome of evaluating new text against recent context.
type Action string

const (
	ActionAdd    Action = "ADD"
	ActionUpdate Action = "UPDATE"
	ActionIgnore Action = "IGNORE"
)

// Candidate is a proposed memory payload, before validation.
type Candidate struct {
	Content    string   `json:"content"`
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Tags       []string `json:"tags"`
}

// Decision is the tagged result of a decide call.
//
// ADD and UPDATE carry a Candidate. UPDATE additionally carries
// OldContentHint, a piece of text used to locate the record being replaced.
type Decision struct {
	Action         Action     `json:"action"`
	Candidate      *Candidate `json:"candidate,omitempty"`
	OldContentHint string     `json:"old_content_hint,omitempty"`
	Reasoning      string     `json:"reasoning,omitempty"`

	// Fallback is set when the decision was synthesized because language
	// understanding was unavailable or returned something unusable.
	Fallback bool `json:"fallback,omitempty"`
}

const (
	// FallbackTag marks memories created from a fallback decision.
	FallbackTag = "fallback"

	// FallbackConfidence is the confidence assigned to fallback memories.
	FallbackConfidence = 0.5
)

// FallbackDecision is the single documented recovery path for an unusable
// decision: a low-confidence ADD built from the raw input, so the user's
// message is never silently dropped.
func FallbackDecision(text string) *Decision {
	return &Decision{
		Action: ActionAdd,
		Candidate: &Candidate{
			Content:    fmt.Sprintf("User mentioned: %s", text),
			Category:   string(CategoryOther),
			Confidence: FallbackConfidence,
			Tags:       []string{FallbackTag},
		},
		Reasoning: "fallback due to decision error",
		Fallback:  true,
	}
}

// Intent is the coarse classification of a user message.
type Intent string

const (
	IntentMemoryQuestion Intent = "memory_question"
	IntentGeneralChat    Intent = "general_chat"
	IntentMemorySharing  Intent = "memory_sharing"
)

// ParseIntent returns the Intent named by s and whether it was recognized.
func ParseIntent(s string) (Intent, bool) {
	switch Intent(s) {
	case IntentMemoryQuestion, IntentGeneralChat, IntentMemorySharing:
		return Intent(s), true
	default:
		return "", false
	}
}
