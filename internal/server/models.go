package server

import (
	"context"
	"encoding/json"
	"net/http"

	v1 "github.com/danilofalcao/chat-relay/internal/api/chat/v1"
	"github.com/danilofalcao/chat-relay/internal/utils"
	logutils "github.com/danilofalcao/chat-relay/internal/utils/logger"
	"github.com/pkg/errors"
)

const savedMessage = "Saved successfully"

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listModels(w, r)
	case http.MethodPost:
		s.saveModels(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// listModels never fails: an unreadable store is reported as an empty list.
func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(ctx, w, http.StatusOK, s.store.List(ctx))
}

func (s *Server) saveModels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lgr := logutils.FromContext(ctx)

	var configs []v1.ModelConfig
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxUploadSize))
	if err := dec.Decode(&configs); err != nil {
		err = errors.Wrap(err, "error parsing model configs")
		lgr.Warn(ctx, err.Error())
		writeJSON(ctx, w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	if configs == nil {
		writeJSON(ctx, w, http.StatusUnprocessableEntity, map[string]string{"detail": "expected a JSON array of model configs"})
		return
	}

	if err := s.store.Replace(ctx, configs); err != nil {
		err = errors.Wrap(err, "error saving model configs")
		lgr.Error(ctx, err.Error())
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	lgr.Infof(ctx, "Saved %d model configs", len(configs))
	writeJSON(ctx, w, http.StatusOK, map[string]string{"message": savedMessage})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	if err := utils.WriteJSON(w, status, v); err != nil {
		err = errors.Wrap(err, "error encoding response")
		logutils.FromContext(ctx).Error(ctx, err.Error())
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	ctx := r.Context()
	logutils.FromContext(ctx).Infof(ctx, "Invalid method %s", r.Method)
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
