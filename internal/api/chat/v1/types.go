package v1

import "strings"

// ModelConfig is one named upstream endpoint saved through /models
type ModelConfig struct {
	Model       string `json:"model"`
	BaseURL     string `json:"baseUrl"`
	APIKey      string `json:"apiKey"`
	LastUpdated string `json:"lastUpdated"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a chat message
type Message struct {
	Role       Role    `json:"role"`
	Content    Content `json:"content"`
	Name       string  `json:"name,omitempty"`
	ToolCallID string  `json:"tool_call_id,omitempty"`
}

type PartType string

const (
	PartTypeText  PartType = "text"
	PartTypeImage PartType = "image"
)

// ContentPart is one element of a multi-part message. Image parts carry either inline
// bytes (MimeType and Data) or, when read back from history, a remote URL. Detail is the
// optional image_url detail hint and is passed through as given.
type ContentPart struct {
	Type     PartType
	Text     string
	MimeType string
	Data     []byte
	URL      string
	Detail   string
}

// TextPart returns a text content part
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartTypeText, Text: text}
}

// ImagePart returns an inline image content part
func ImagePart(mimeType string, data []byte) ContentPart {
	return ContentPart{Type: PartTypeImage, MimeType: mimeType, Data: data}
}

// Content is either a plain string (Parts == nil) or an ordered list of parts.
type Content struct {
	Text  string
	Parts []ContentPart
}

// TextContent returns plain string content
func TextContent(s string) Content {
	return Content{Text: s}
}

// PartsContent returns multi-part content
func PartsContent(parts ...ContentPart) Content {
	if parts == nil {
		parts = []ContentPart{}
	}
	return Content{Parts: parts}
}

// IsParts reports whether the content is a part list rather than a plain string
func (c Content) IsParts() bool {
	return c.Parts != nil
}

// Attachment is a file uploaded alongside a prompt
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// Endpoint identifies the upstream API and model a request is sent to
type Endpoint struct {
	Model   string
	BaseURL string
	APIKey  string
}

type ReasoningEffort string

const (
	ReasoningEffortLow    ReasoningEffort = "low"
	ReasoningEffortMedium ReasoningEffort = "medium"
	ReasoningEffortHigh   ReasoningEffort = "high"
)

// ParseReasoningEffort matches s case-insensitively against the supported efforts.
func ParseReasoningEffort(s string) (ReasoningEffort, bool) {
	switch e := ReasoningEffort(strings.ToLower(strings.TrimSpace(s))); e {
	case ReasoningEffortLow, ReasoningEffortMedium, ReasoningEffortHigh:
		return e, true
	}
	return "", false
}

// GenerationParams are the sampling parameters forwarded upstream. ReasoningEffort is nil
// when the caller did not ask for one, and is then left out of the outbound request.
type GenerationParams struct {
	Temperature     float64
	MaxTokens       int
	TopP            float64
	ReasoningEffort *ReasoningEffort
}

// ChatRequest represents one /chat call once its form has been parsed
type ChatRequest struct {
	Prompt      string
	History     []Message
	Endpoint    Endpoint
	Params      GenerationParams
	Attachments []Attachment
}
