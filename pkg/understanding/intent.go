package understanding

import (
	"strings"

	"github.com/papercomputeco/recall/pkg/memory"
)

var greetings = []string{
	"hi",
	"hello",
	"hey",
	"how are you",
	"good morning",
	"good afternoon",
}

// personalQuestions win over every sharing pattern.
var personalQuestions = []string{
	"what do i",
	"what am i",
	"where do i",
	"how do i",
	"what is my",
	"what's my",
	"where is my",
	"who am i",
	"what tools do i",
	"what software do i",
	"what do i use",
	"what do i prefer",
	"what tool do i",
}

var sharingPatterns = []string{
	"my name is",
	"i am",
	"i work at",
	"i prefer",
	"i like",
}

// questionMarkers disqualify "i use" as a statement.
var questionMarkers = []string{"what", "do", "which", "?"}

var generalPatterns = []string{
	"what is good",
	"what are good",
	"how to",
	"what's the weather",
	"tell me about",
	"what should i",
}

// RuleBasedIntent classifies messages with an obvious shape. The second
// return value is false when no rule applies and a model should decide.
func RuleBasedIntent(text string) (memory.Intent, bool) {
	q := strings.ToLower(strings.TrimSpace(text))

	for _, g := range greetings {
		if q == g {
			return memory.IntentGeneralChat, true
		}
	}

	if containsAny(q, personalQuestions) {
		return memory.IntentMemoryQuestion, true
	}

	if strings.Contains(q, "i use") && !containsAny(q, questionMarkers) {
		return memory.IntentMemorySharing, true
	}

	if containsAny(q, sharingPatterns) {
		return memory.IntentMemorySharing, true
	}

	if containsAny(q, generalPatterns) {
		return memory.IntentGeneralChat, true
	}

	return "", false
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
