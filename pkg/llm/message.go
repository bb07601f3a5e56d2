package llm

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"` // "user", "assistant"
	Content string `json:"content"`
}

// Role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// NewTextMessage creates a simple text message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}
