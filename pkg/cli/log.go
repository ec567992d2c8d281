package cli

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/xyproto/env/v2"

	"github.com/funvibe/diffsmith/internal/config"
)

// logLevel picks the level from the flags, falling back to
// DIFFSMITH_LOG_LEVEL.
func logLevel(verbose, quiet bool) slog.Level {
	switch {
	case verbose:
		return slog.LevelDebug
	case quiet:
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(env.Str(config.EnvLogLevel, "info"))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// syncWriter serializes writes from the logger, the summary and the
// stderr copiers of worker processes.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// colorEnabled reports whether w is a terminal that accepts ANSI colors.
func colorEnabled(w io.Writer) bool {
	if s, ok := w.(*syncWriter); ok {
		w = s.w
	}
	// NO_COLOR convention: https://no-color.org/
	if _, ok := os.LookupEnv(config.EnvNoColor); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiBold  = "\x1b[1m"
)

// painter colors status lines when the output supports it.
type painter struct{ on bool }

func newPainter(w io.Writer) painter { return painter{on: colorEnabled(w)} }

func (p painter) paint(code, s string) string {
	if !p.on {
		return s
	}
	return code + s + ansiReset
}

// status renders a verdict word.
func (p painter) status(ok bool) string {
	if ok {
		return p.paint(ansiGreen, "ok")
	}
	return p.paint(ansiBold+ansiRed, "FAIL")
}

// splitCommand splits a command line on white space. Arguments with
// spaces are not supported; use a wrapper script.
func splitCommand(s string) []string {
	return strings.Fields(s)
}
