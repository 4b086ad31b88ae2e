package server

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	v1 "github.com/danilofalcao/chat-relay/internal/api/chat/v1"
	relayconstants "github.com/danilofalcao/chat-relay/internal/constants/relay"
	"github.com/danilofalcao/chat-relay/internal/relay"
	logutils "github.com/danilofalcao/chat-relay/internal/utils/logger"
	"github.com/pkg/errors"
)

// formError is a rejected /chat form, raised before any byte of the stream is written.
type formError struct {
	status int
	err    error
}

func (e *formError) Error() string { return e.err.Error() }
func (e *formError) Unwrap() error { return e.err }

func badForm(status int, err error) error {
	return &formError{status: status, err: err}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lgr := logutils.FromContext(ctx)
	// Validate request method
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	req, err := s.parseChatRequest(w, r)
	if err != nil {
		status := http.StatusBadRequest
		var fe *formError
		if errors.As(err, &fe) {
			status = fe.status
		}
		lgr.Warn(ctx, err.Error())
		http.Error(w, err.Error(), status)
		return
	}

	// From here on the status is 200; failures arrive in-band.
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	written := 0
	for fragment := range s.relay.Stream(ctx, req) {
		if _, err := io.WriteString(w, fragment.Text); err != nil {
			err = errors.Wrap(err, "error writing to downstream client stream")
			lgr.Error(ctx, err.Error())
			return
		}
		if err := rc.Flush(); err != nil {
			lgr.Debugf(ctx, "flush not supported: %s", err.Error())
		}
		written += len(fragment.Text)
	}
	lgr.Debugf(ctx, "streamed %d bytes for model %s", written, req.Endpoint.Model)
}

func (s *Server) parseChatRequest(w http.ResponseWriter, r *http.Request) (*v1.ChatRequest, error) {
	ctx := r.Context()
	lgr := logutils.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, badForm(http.StatusBadRequest, errors.Wrap(err, "error parsing chat form"))
	}

	temperature, err := floatField(r, "temperature", relayconstants.DefaultTemperature)
	if err != nil {
		return nil, err
	}
	maxTokens, err := intField(r, "max_tokens", relayconstants.DefaultMaxTokens)
	if err != nil {
		return nil, err
	}
	topP, err := floatField(r, "top_p", relayconstants.DefaultTopP)
	if err != nil {
		return nil, err
	}

	params := v1.GenerationParams{
		Temperature: temperature,
		MaxTokens:   maxTokens,
		TopP:        topP,
	}
	if raw := r.PostFormValue("reasoning_effort"); raw != "" {
		if effort, ok := v1.ParseReasoningEffort(raw); ok {
			params.ReasoningEffort = &effort
		} else {
			lgr.Debugf(ctx, "ignoring reasoning_effort %q", raw)
		}
	}

	attachments, err := readAttachments(r.MultipartForm)
	if err != nil {
		return nil, badForm(http.StatusBadRequest, err)
	}

	if sessionID := r.PostFormValue("session_id"); sessionID != "" {
		lgr.Debugf(ctx, "chat request for session %s", sessionID)
	}

	return &v1.ChatRequest{
		Prompt:  r.PostFormValue("user_prompt"),
		History: relay.DecodeHistory(ctx, r.PostFormValue("messages")),
		Endpoint: v1.Endpoint{
			Model:   r.PostFormValue("model_name"),
			BaseURL: r.PostFormValue("base_url"),
			APIKey:  r.PostFormValue("api_key"),
		},
		Params:      params,
		Attachments: attachments,
	}, nil
}

func readAttachments(form *multipart.Form) ([]v1.Attachment, error) {
	if form == nil {
		return nil, nil
	}
	headers := form.File["files"]
	attachments := make([]v1.Attachment, 0, len(headers))
	for _, fh := range headers {
		data, err := readFile(fh)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading attachment %q", fh.Filename)
		}
		attachments = append(attachments, v1.Attachment{
			Filename: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	return attachments, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func floatField(r *http.Request, name string, def float64) (float64, error) {
	raw := strings.TrimSpace(r.PostFormValue(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, badForm(http.StatusUnprocessableEntity, errors.Errorf("%s must be a number, got %q", name, raw))
	}
	return v, nil
}

func intField(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.PostFormValue(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badForm(http.StatusUnprocessableEntity, errors.Errorf("%s must be an integer, got %q", name, raw))
	}
	return v, nil
}
