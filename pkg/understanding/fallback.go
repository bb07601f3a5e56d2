package understanding

import (
	"strings"
)

// NoMemoriesResponse is the answer to a query that matched nothing.
const NoMemoriesResponse = "I don't have any memories related to that query."

// FallbackSynthesis phrases an answer without a model.
func FallbackSynthesis(contents []string) string {
	if len(contents) == 0 {
		return NoMemoriesResponse
	}
	return "Based on what I remember: " + strings.Join(contents, ", ")
}

// FallbackGeneralResponse answers small talk without a model.
func FallbackGeneralResponse(text string) string {
	q := strings.ToLower(strings.TrimSpace(text))

	if containsAny(q, []string{"hi", "hello", "hey"}) {
		return "Hello! How can I help you today?"
	}

	for _, w := range []string{"what", "how", "why", "when", "where"} {
		if strings.HasPrefix(q, w) {
			return "I'd be happy to help! Could you provide more details about what you're looking for?"
		}
	}

	return "I understand. How can I assist you further?"
}
