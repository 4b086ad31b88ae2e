package v1

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReasoningEffort(t *testing.T) {
	cases := []struct {
		in   string
		want ReasoningEffort
		ok   bool
	}{
		{"low", ReasoningEffortLow, true},
		{"Medium", ReasoningEffortMedium, true},
		{"HIGH", ReasoningEffortHigh, true},
		{" high ", ReasoningEffortHigh, true},
		{"extreme", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseReasoningEffort(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestDataURI(t *testing.T) {
	uri := DataURI("image/png", []byte{0x89, 'P', 'N', 'G'})
	assert.Equal(t, "data:image/png;base64,iVBORw==", uri)

	mimeType, data, err := ParseDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)
}

func TestParseDataURIRejects(t *testing.T) {
	for _, uri := range []string{
		"https://example.com/cat.png",
		"data:image/png;base64",
		"data:text/plain,hello",
		"data:image/png;base64,!!!",
	} {
		_, _, err := ParseDataURI(uri)
		assert.Error(t, err, uri)
	}
}

func TestMessageStringContent(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":"hi there"}`), &msg))
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.False(t, msg.Content.IsParts())
	assert.Equal(t, "hi there", msg.Content.Text)

	b, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"assistant","content":"hi there"}`, string(b))
}

func TestMessagePartsContent(t *testing.T) {
	raw := `{"role":"user","content":[
		{"type":"text","text":"what is this?"},
		{"type":"image_url","image_url":{"url":"data:image/gif;base64,R0lG"}},
		{"type":"image_url","image_url":{"url":"https://example.com/a.png"}}
	]}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	require.True(t, msg.Content.IsParts())
	require.Len(t, msg.Content.Parts, 3)

	assert.Equal(t, TextPart("what is this?"), msg.Content.Parts[0])
	assert.Equal(t, ImagePart("image/gif", []byte("GIF")), msg.Content.Parts[1])
	assert.Equal(t, "https://example.com/a.png", msg.Content.Parts[2].URL)

	b, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":[
		{"type":"text","text":"what is this?"},
		{"type":"image_url","image_url":{"url":"data:image/gif;base64,R0lG"}},
		{"type":"image_url","image_url":{"url":"https://example.com/a.png"}}
	]}`, string(b))
}

func TestContentRejectsOtherShapes(t *testing.T) {
	var c Content
	assert.Error(t, json.Unmarshal([]byte(`42`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"text":"x"}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`[{"type":"image_url"}]`), &c))
}

func TestContentSkipsUnknownParts(t *testing.T) {
	var c Content
	require.NoError(t, json.Unmarshal([]byte(`[
		{"type":"input_audio","input_audio":{"data":"AAAA","format":"wav"}},
		{"type":"text","text":"transcribe this"}
	]`), &c))
	require.True(t, c.IsParts())
	assert.Equal(t, []ContentPart{TextPart("transcribe this")}, c.Parts)

	require.NoError(t, json.Unmarshal([]byte(`[{"type":"audio"}]`), &c))
	assert.True(t, c.IsParts())
	assert.Empty(t, c.Parts)
}

func TestMessageKeepsNameToolCallAndDetail(t *testing.T) {
	raw := `{"role":"tool","name":"lookup","tool_call_id":"call_1","content":[
		{"type":"image_url","image_url":{"url":"https://example.com/a.png","detail":"low"}}
	]}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	assert.Equal(t, "lookup", msg.Name)
	assert.Equal(t, "call_1", msg.ToolCallID)
	require.Len(t, msg.Content.Parts, 1)
	assert.Equal(t, "low", msg.Content.Parts[0].Detail)

	b, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(b))
}

func TestModelConfigJSONKeys(t *testing.T) {
	b, err := json.Marshal(ModelConfig{Model: "m", BaseURL: "u", APIKey: "k", LastUpdated: "t"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"m","baseUrl":"u","apiKey":"k","lastUpdated":"t"}`, string(b))
}
