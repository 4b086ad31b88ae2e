package relay

import (
	"context"
	"math"

	v1 "github.com/danilofalcao/chat-relay/internal/api/chat/v1"
	logutils "github.com/danilofalcao/chat-relay/internal/utils/logger"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// BuildRequest constructs the outbound streaming completion request. Model, messages,
// temperature, max tokens, top p and stream are always set; reasoning_effort only when the
// caller supplied a recognised effort.
func BuildRequest(ctx context.Context, req *v1.ChatRequest) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:       req.Endpoint.Model,
		Messages:    convertMessages(ctx, BuildMessages(req)),
		Temperature: wireFloat(req.Params.Temperature),
		MaxTokens:   req.Params.MaxTokens,
		TopP:        wireFloat(req.Params.TopP),
		Stream:      true,
	}
	if req.Params.ReasoningEffort != nil {
		out.ReasoningEffort = string(*req.Params.ReasoningEffort)
	}

	// o-series and gpt-5 models refuse max_tokens; the same limit goes out as max_completion_tokens.
	err := openai.NewReasoningValidator().Validate(out)
	if errors.Is(err, openai.ErrReasoningModelMaxTokensDeprecated) {
		logutils.FromContext(ctx).Debugf(ctx, "Model %s takes max_completion_tokens, moving max_tokens=%d", out.Model, out.MaxTokens)
		out.MaxCompletionTokens = out.MaxTokens
		out.MaxTokens = 0
	}
	return out
}

// wireFloat keeps an explicit 0 on the wire. go-openai omits zero floats, and upstreams read
// the smallest float32 as 0.
func wireFloat(v float64) float32 {
	if v == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(v)
}
