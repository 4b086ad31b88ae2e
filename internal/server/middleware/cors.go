package middleware

import (
	"context"
	"net/http"

	logutils "github.com/danilofalcao/chat-relay/internal/utils/logger"
	"github.com/rs/cors"
)

// corsLogger hands the cors handler's decisions to the server logger at trace level.
type corsLogger struct {
	ctx context.Context
}

func (l corsLogger) Printf(format string, args ...interface{}) {
	logutils.FromContext(l.ctx).Tracef(l.ctx, format, args...)
}

// withCors permits every origin, method and header. Origins are echoed back rather than
// answered with a wildcard so credentialed requests are accepted too.
func withCors(srvCtx context.Context, next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowOriginFunc: func(string) bool { return true },
		AllowedMethods: []string{
			http.MethodDelete, http.MethodGet, http.MethodHead, http.MethodOptions,
			http.MethodPatch, http.MethodPost, http.MethodPut,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           600,
		Logger:           corsLogger{ctx: srvCtx},
	})
	return c.Handler(next)
}
