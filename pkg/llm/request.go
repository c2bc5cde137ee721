package llm

// ChatRequest is the upstream chat-completion request envelope. The relay
// always streams, so Stream is a plain bool rather than the tri-state
// pointer a transparent proxy would need.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}
