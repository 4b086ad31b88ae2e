package relay

import (
	"context"
	"encoding/json"

	v1 "github.com/danilofalcao/chat-relay/internal/api/chat/v1"
	relayconstants "github.com/danilofalcao/chat-relay/internal/constants/relay"
	logutils "github.com/danilofalcao/chat-relay/internal/utils/logger"
	"github.com/sashabaranov/go-openai"
)

// DecodeHistory decodes the serialized prior messages of a chat request. Anything that is not
// a JSON array of messages yields an empty history instead of an error.
func DecodeHistory(ctx context.Context, raw string) []v1.Message {
	var history []v1.Message
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return emptyHistory(ctx, err)
	}
	if history == nil {
		return []v1.Message{}
	}
	return history
}

func emptyHistory(ctx context.Context, err error) []v1.Message {
	logutils.FromContext(ctx).Debugf(ctx, "ignoring undecodable message history: %s", err.Error())
	return []v1.Message{}
}

// CurrentMessage builds the user message for this turn. Without attachments the content is the
// prompt itself; with attachments it is the prompt as a text part followed by one image part per
// attachment, in upload order.
func CurrentMessage(prompt string, attachments []v1.Attachment) v1.Message {
	if len(attachments) == 0 {
		return v1.Message{Role: v1.RoleUser, Content: v1.TextContent(prompt)}
	}

	parts := make([]v1.ContentPart, 0, len(attachments)+1)
	parts = append(parts, v1.TextPart(prompt))
	for _, a := range attachments {
		mimeType := a.MimeType
		if mimeType == "" {
			mimeType = relayconstants.DefaultImageMimeType
		}
		parts = append(parts, v1.ImagePart(mimeType, a.Data))
	}
	return v1.Message{Role: v1.RoleUser, Content: v1.PartsContent(parts...)}
}

// BuildMessages returns the history with the current message appended.
func BuildMessages(req *v1.ChatRequest) []v1.Message {
	messages := make([]v1.Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	return append(messages, CurrentMessage(req.Prompt, req.Attachments))
}

func convertMessages(ctx context.Context, messages []v1.Message) []openai.ChatCompletionMessage {
	lgr := logutils.FromContext(ctx)
	converted := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		converted[i] = openai.ChatCompletionMessage{
			Role:       string(msg.Role),
			Name:       msg.Name,
			ToolCallID: msg.ToolCallID,
		}
		if !msg.Content.IsParts() {
			converted[i].Content = msg.Content.Text
			continue
		}

		lgr.Tracef(ctx, "Converting message %d - Role: %s, %d parts", i, msg.Role, len(msg.Content.Parts))
		parts := make([]openai.ChatMessagePart, len(msg.Content.Parts))
		for j, part := range msg.Content.Parts {
			parts[j] = convertPart(part)
		}
		converted[i].MultiContent = parts
	}
	return converted
}

func convertPart(part v1.ContentPart) openai.ChatMessagePart {
	if part.Type == v1.PartTypeImage {
		return openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    part.URLString(),
				Detail: openai.ImageURLDetail(part.Detail),
			},
		}
	}
	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: part.Text,
	}
}
