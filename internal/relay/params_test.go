package relay

import (
	"context"
	"encoding/json"
	"testing"

	v1 "github.com/danilofalcao/chat-relay/internal/api/chat/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func effort(s string) *v1.ReasoningEffort {
	e, ok := v1.ParseReasoningEffort(s)
	if !ok {
		return nil
	}
	return &e
}

func chatRequest(model, reasoning string) *v1.ChatRequest {
	return &v1.ChatRequest{
		Prompt:   "hi",
		Endpoint: v1.Endpoint{Model: model, BaseURL: "http://upstream/v1", APIKey: "sk"},
		Params: v1.GenerationParams{
			Temperature:     0.5,
			MaxTokens:       256,
			TopP:            0.9,
			ReasoningEffort: effort(reasoning),
		},
	}
}

func requestJSON(t *testing.T, req *v1.ChatRequest) map[string]any {
	t.Helper()
	b, err := json.Marshal(BuildRequest(context.Background(), req))
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(b, &body))
	return body
}

func TestBuildRequestAlwaysIncludesCoreParams(t *testing.T) {
	body := requestJSON(t, chatRequest("gpt-4o", ""))

	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, true, body["stream"])
	assert.InDelta(t, 0.5, body["temperature"], 1e-6)
	assert.InDelta(t, 0.9, body["top_p"], 1e-6)
	assert.EqualValues(t, 256, body["max_tokens"])
	assert.Len(t, body["messages"], 1)
	assert.NotContains(t, body, "reasoning_effort")
}

func TestBuildRequestNormalizesReasoningEffort(t *testing.T) {
	body := requestJSON(t, chatRequest("gpt-4o", "HIGH"))
	assert.Equal(t, "high", body["reasoning_effort"])
}

func TestBuildRequestOmitsUnknownReasoningEffort(t *testing.T) {
	body := requestJSON(t, chatRequest("gpt-4o", "extreme"))
	assert.NotContains(t, body, "reasoning_effort")
}

func TestBuildRequestMovesMaxTokensForReasoningModels(t *testing.T) {
	req := chatRequest("o3-mini", "medium")
	req.Params.Temperature = 1
	req.Params.TopP = 1

	out := BuildRequest(context.Background(), req)
	assert.Equal(t, 0, out.MaxTokens)
	assert.Equal(t, 256, out.MaxCompletionTokens)
	assert.Equal(t, "medium", out.ReasoningEffort)
}

func TestBuildRequestKeepsZeroSamplingParams(t *testing.T) {
	req := chatRequest("gpt-4o", "")
	req.Params.Temperature = 0
	req.Params.TopP = 0

	body := requestJSON(t, req)
	require.Contains(t, body, "temperature")
	require.Contains(t, body, "top_p")
	assert.InDelta(t, 0, body["temperature"], 1e-9)
	assert.InDelta(t, 0, body["top_p"], 1e-9)
}
