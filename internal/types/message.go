package types

// Message roles as used by the chat completions API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a conversation. Messages are immutable once
// appended; position encodes turn order.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
