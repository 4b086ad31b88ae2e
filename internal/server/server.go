package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/danilofalcao/chat-relay/internal/relay"
	"github.com/danilofalcao/chat-relay/internal/server/logger"
	"github.com/danilofalcao/chat-relay/internal/server/middleware"
	"github.com/danilofalcao/chat-relay/internal/store"
	logutils "github.com/danilofalcao/chat-relay/internal/utils/logger"
	"golang.org/x/net/http2"
)

// Options configures the server
type Options struct {
	Port          string
	Store         store.ConfigStore
	Relay         *relay.Relay
	LogLevel      string
	Timeout       string
	MaxUploadSize int64
	ExitCh        chan string
}

// Server represents the API server
type Server struct {
	ctx           context.Context
	port          string
	store         store.ConfigStore
	relay         *relay.Relay
	timeout       time.Duration
	maxUploadSize int64
	started       time.Time
	exitCh        chan string
	srv           *http.Server
}

// New creates a new server instance
func New(ctx context.Context, opts Options) (*Server, error) {
	// set up the server's logger
	lgr := logger.New(
		ctx,
		"server",
		logger.LevelFromString(opts.LogLevel),
		opts.ExitCh,
	)
	ctx = logutils.ContextWithLogger(ctx, lgr)

	timeout, err := time.ParseDuration(opts.Timeout)
	if err != nil {
		timeout = 0
	}

	if opts.Port == "" {
		return nil, fmt.Errorf("port is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("config store is required")
	}
	if opts.Relay == nil {
		return nil, fmt.Errorf("relay is required")
	}

	maxUploadSize := opts.MaxUploadSize
	if maxUploadSize <= 0 {
		maxUploadSize = 32 << 20
	}

	return &Server{
		ctx:           ctx,
		port:          opts.Port,
		store:         opts.Store,
		relay:         opts.Relay,
		timeout:       timeout,
		maxUploadSize: maxUploadSize,
		started:       time.Now(),
		exitCh:        opts.ExitCh,
	}, nil
}

// Handler returns the routed handler wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("/models", s.handleModels)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/health", s.handleHealth)

	return middleware.Wrap(s.ctx, mux, middleware.Params{
		Timeout: s.timeout,
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:        ":" + s.port,
		Handler:     s.Handler(),
		BaseContext: func(l net.Listener) context.Context { return s.ctx },
	}

	// Enable HTTP/2 support
	if err := http2.ConfigureServer(s.srv, nil); err != nil {
		return fmt.Errorf("error configuring HTTP/2: %w", err)
	}

	logutils.FromContext(s.ctx).Infof(s.ctx, "Starting server on port %s", s.port)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx is done
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	logutils.FromContext(s.ctx).Info(s.ctx, "Shutting down server")
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}
