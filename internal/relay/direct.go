package relay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// directUpstream posts a chat completion request as is and reads the event stream itself.
type directUpstream struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func (u *directUpstream) OpenStream(ctx context.Context, req openai.ChatCompletionRequest) (CompletionStream, error) {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "error encoding completion request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "error creating completion request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("Authorization", "Bearer "+u.apiKey)

	resp, err := u.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return &eventStream{body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

// statusError reports a rejected request the way go-openai does, falling back to the raw body.
func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	var errResp openai.ErrorResponse
	if err := json.Unmarshal(b, &errResp); err == nil && errResp.Error != nil {
		errResp.Error.HTTPStatus = resp.Status
		errResp.Error.HTTPStatusCode = resp.StatusCode
		return errResp.Error
	}
	return errors.Errorf("error, status code: %d, status: %s, body: %s",
		resp.StatusCode, resp.Status, strings.TrimSpace(string(b)))
}

type eventStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
}

func (s *eventStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	var chunk openai.ChatCompletionStreamResponse
	for {
		line, readErr := s.reader.ReadBytes('\n')
		if data, ok := eventData(line); ok {
			if string(data) == "[DONE]" {
				return chunk, io.EOF
			}
			var errResp openai.ErrorResponse
			if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error != nil {
				return chunk, fmt.Errorf("error, %w", errResp.Error)
			}
			if err := json.Unmarshal(data, &chunk); err != nil {
				return chunk, errors.Wrap(err, "error decoding stream chunk")
			}
			return chunk, nil
		}
		if readErr != nil {
			return chunk, readErr
		}
	}
}

func (s *eventStream) Close() error {
	return s.body.Close()
}

// eventData returns the payload of a non-empty "data:" line.
func eventData(line []byte) ([]byte, bool) {
	line = bytes.TrimSpace(line)
	data, ok := bytes.CutPrefix(line, []byte("data:"))
	if !ok {
		return nil, false
	}
	data = bytes.TrimSpace(data)
	return data, len(data) > 0
}
