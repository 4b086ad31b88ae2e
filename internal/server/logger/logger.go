package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/danilofalcao/chat-relay/internal/constants"
	contextutils "github.com/danilofalcao/chat-relay/internal/utils/context"
)

var (
	Fallback = New(context.Background(), "fallback", INFO, nil)
)

type Logger struct {
	name   string
	ctx    context.Context
	level  LogLevel
	exitCh chan string
	out    *output
}

// output is shared between a logger and its clones so a swapped writer applies to all of them.
type output struct {
	mu sync.Mutex
	w  io.Writer
}

func New(ctx context.Context, name string, level LogLevel, exitCh chan string) *Logger {
	return &Logger{
		name:   name,
		ctx:    ctx,
		level:  level,
		exitCh: exitCh,
		out:    &output{w: os.Stdout},
	}
}

func (l *Logger) print(ctx context.Context, s string, level LogLevel) {
	ts := time.Now().Local().Format(time.DateTime)
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if reqId := contextutils.GetRequestID(ctx); reqId != "" {
		fmt.Fprintf(l.out.w, "[%s][%s][%s][%s] %s\n", ts, level.String(), l.name, reqId, s)
		return
	}
	fmt.Fprintf(l.out.w, "[%s][%s][%s] %s\n", ts, level.String(), l.name, s)
}

// Clone returns a named child logger sharing this logger's level and output, along with a
// context derived from ctx that carries it.
func (l *Logger) Clone(ctx context.Context, name string) (*Logger, context.Context) {
	lgr := &Logger{
		name:   name,
		ctx:    l.ctx,
		level:  l.level,
		exitCh: l.exitCh,
		out:    l.out,
	}
	return lgr, context.WithValue(ctx, constants.LoggerKey, lgr)
}

func (l *Logger) WithLevel(level LogLevel) *Logger {
	l.level = level
	return l
}

// WithWriter redirects output for this logger and every clone of it.
func (l *Logger) WithWriter(w io.Writer) *Logger {
	l.out.mu.Lock()
	l.out.w = w
	l.out.mu.Unlock()
	return l
}

func (l *Logger) Level() LogLevel {
	return l.level
}

func (l *Logger) Trace(ctx context.Context, s string) {
	if l.level > TRACE {
		return
	}
	l.print(ctx, s, TRACE)
}

func (l *Logger) Tracef(ctx context.Context, s string, args ...any) {
	l.Trace(ctx, fmt.Sprintf(s, args...))
}

func (l *Logger) Debug(ctx context.Context, s string) {
	if l.level > DEBUG {
		return
	}
	l.print(ctx, s, DEBUG)
}

func (l *Logger) Debugf(ctx context.Context, s string, args ...any) {
	l.Debug(ctx, fmt.Sprintf(s, args...))
}

func (l *Logger) Info(ctx context.Context, s string) {
	if l.level > INFO {
		return
	}
	l.print(ctx, s, INFO)
}

func (l *Logger) Infof(ctx context.Context, s string, args ...any) {
	l.Info(ctx, fmt.Sprintf(s, args...))
}

func (l *Logger) Warn(ctx context.Context, s string) {
	if l.level > WARN {
		return
	}
	l.print(ctx, s, WARN)
}

func (l *Logger) Warnf(ctx context.Context, s string, args ...any) {
	l.Warn(ctx, fmt.Sprintf(s, args...))
}

func (l *Logger) Error(ctx context.Context, s string) {
	if l.level > ERROR {
		return
	}
	l.print(ctx, s, ERROR)
}

func (l *Logger) Errorf(ctx context.Context, s string, args ...any) {
	l.Error(ctx, fmt.Sprintf(s, args...))
}

// Fatal logs s and hands it to the exit channel, if there is one. The owner of the channel
// decides how to shut down.
func (l *Logger) Fatal(ctx context.Context, s string) {
	if l.level > FATAL {
		return
	}
	l.print(ctx, s, FATAL)
	if l.exitCh != nil {
		l.exitCh <- s
	}
}

func (l *Logger) Fatalf(ctx context.Context, s string, args ...any) {
	l.Fatal(ctx, fmt.Sprintf(s, args...))
}
