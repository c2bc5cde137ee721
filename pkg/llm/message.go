// Package llm defines the wire types for the upstream chat-completion
// provider: role-tagged messages, the streaming request envelope, and the
// incremental stream-chunk schema the relay decodes deltas from.
package llm

// Message roles understood by the upstream provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
