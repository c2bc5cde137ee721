package llm

import "encoding/json"

// StreamChunk is one decoded streaming completion record. Only the fields
// the relay reads are modeled; unknown upstream fields are ignored.
type StreamChunk struct {
	ID      string         `json:"id,omitempty"`
	Model   string         `json:"model,omitempty"`
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice is one completion alternative inside a StreamChunk. The
// relay only ever consumes the first.
type StreamChoice struct {
	Index        int    `json:"index"`
	Delta        Delta  `json:"delta"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Delta carries the incremental content fragment of a streaming chunk.
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// DeltaContent returns the incremental content of the chunk's first choice,
// or "" for metadata-only chunks (role announcements, finish markers).
func (c *StreamChunk) DeltaContent() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

// ErrorResponse is the error envelope upstream providers return for
// rejected requests. Providers disagree on the error field's shape: some
// send a bare string, others an object carrying a message. Both decode.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// Message returns the provider's error message, or "" when absent.
func (e *ErrorResponse) Message() string {
	return e.Error.Message
}

// ErrorDetail is the inner error field of an ErrorResponse.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

func (d *ErrorDetail) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		d.Message = s
		return nil
	}

	type detail ErrorDetail
	var obj detail
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*d = ErrorDetail(obj)
	return nil
}
