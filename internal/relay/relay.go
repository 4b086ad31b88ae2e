// Package relay turns a parsed chat request into a streaming chat completion against an
// OpenAI-compatible endpoint and hands the generated text back as a sequence of fragments.
package relay

import (
	"context"
	"io"
	"net/http"
	"strings"

	v1 "github.com/danilofalcao/chat-relay/internal/api/chat/v1"
	relayconstants "github.com/danilofalcao/chat-relay/internal/constants/relay"
	logutils "github.com/danilofalcao/chat-relay/internal/utils/logger"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// Fragment is one element of a relayed response. A fragment with Err set is always the last
// one; its Text is the in-band "Error: <message>" line.
type Fragment struct {
	Text string
	Err  error
}

// CompletionStream yields streamed completion chunks until it returns io.EOF.
type CompletionStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// Upstream opens streaming chat completions against one endpoint.
type Upstream interface {
	OpenStream(ctx context.Context, req openai.ChatCompletionRequest) (CompletionStream, error)
}

// Dialer returns the Upstream for an endpoint. It is called once per request.
type Dialer func(endpoint v1.Endpoint) Upstream

type Options struct {
	// HTTPClient is used by the default dialer. NewHTTPClient is used when nil.
	HTTPClient *http.Client
	Dialer     Dialer
}

type Relay struct {
	dial Dialer
}

func New(opts Options) *Relay {
	dial := opts.Dialer
	if dial == nil {
		client := opts.HTTPClient
		if client == nil {
			client = NewHTTPClient()
		}
		dial = OpenAIDialer(client)
	}
	return &Relay{dial: dial}
}

// OpenAIDialer builds go-openai clients that share httpClient.
func OpenAIDialer(httpClient *http.Client) Dialer {
	return func(endpoint v1.Endpoint) Upstream {
		cfg := openai.DefaultConfig(endpoint.APIKey)
		cfg.BaseURL = strings.TrimRight(endpoint.BaseURL, "/")
		cfg.HTTPClient = httpClient
		return &openaiUpstream{
			client: openai.NewClientWithConfig(cfg),
			direct: &directUpstream{httpClient: httpClient, baseURL: cfg.BaseURL, apiKey: endpoint.APIKey},
		}
	}
}

type openaiUpstream struct {
	client *openai.Client
	direct *directUpstream
}

// OpenStream leaves model capability checks to the endpoint. Requests go-openai would refuse
// before sending are posted directly instead.
func (u *openaiUpstream) OpenStream(ctx context.Context, req openai.ChatCompletionRequest) (CompletionStream, error) {
	lgr := logutils.FromContext(ctx)
	if err := openai.NewReasoningValidator().Validate(req); err != nil {
		lgr.Debugf(ctx, "Posting %s request directly: %s", req.Model, err.Error())
		return u.direct.OpenStream(ctx, req)
	}

	stream, err := u.client.CreateChatCompletionStream(ctx, req)
	if errors.Is(err, openai.ErrChatCompletionInvalidModel) {
		lgr.Debugf(ctx, "Posting %s request directly: %s", req.Model, err.Error())
		return u.direct.OpenStream(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// Stream starts the upstream call and returns the fragments it produces. The channel is
// closed when the upstream stream ends, after an error fragment, or once ctx is done.
// Fragments are sent as soon as each chunk arrives; nothing is buffered.
func (r *Relay) Stream(ctx context.Context, req *v1.ChatRequest) <-chan Fragment {
	out := make(chan Fragment)
	go r.produce(ctx, req, out)
	return out
}

func (r *Relay) produce(ctx context.Context, req *v1.ChatRequest, out chan<- Fragment) {
	defer close(out)
	lgr, ctx := logutils.FromContext(ctx).Clone(ctx, "relay")

	payload := BuildRequest(ctx, req)
	lgr.Debugf(ctx, "Forwarding %d messages to %s (model %s, %d attachments)",
		len(payload.Messages), req.Endpoint.BaseURL, payload.Model, len(req.Attachments))

	stream, err := r.dial(req.Endpoint).OpenStream(ctx, payload)
	if err != nil {
		fail(ctx, out, errors.Wrap(err, "error opening upstream stream"), err)
		return
	}
	defer stream.Close()

	chunks := 0
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			lgr.Debugf(ctx, "upstream stream completed after %d fragments", chunks)
			return
		}
		if err != nil {
			fail(ctx, out, errors.Wrap(err, "error reading upstream stream"), err)
			return
		}

		delta := deltaContent(resp)
		if delta == "" {
			continue
		}
		if !send(ctx, out, Fragment{Text: delta}) {
			lgr.Info(ctx, "client went away, abandoning upstream stream")
			return
		}
		chunks++
	}
}

func deltaContent(resp openai.ChatCompletionStreamResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Delta.Content
}

// fail logs the wrapped error and emits the raw upstream message in-band.
func fail(ctx context.Context, out chan<- Fragment, wrapped, cause error) {
	logutils.FromContext(ctx).Error(ctx, wrapped.Error())
	send(ctx, out, Fragment{Text: relayconstants.ErrorPrefix + cause.Error(), Err: cause})
}

func send(ctx context.Context, out chan<- Fragment, f Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
