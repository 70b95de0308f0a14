package history

// Roles stored in the history table. RoleSystem is only ever injected
// when a prompt is built.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string
	Content string
}
