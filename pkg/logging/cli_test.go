package logging

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(buf *bytes.Buffer, level slog.Level) *CLIHandler {
	h := NewCLIHandler(buf, level)
	h.noColor = false
	return h
}

func TestNewCLILogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			logger := NewCLILogger(level)
			require.NotNil(t, logger)
			logger.Info("test message")
		})
	}
}

func TestCLIHandler_Colors(t *testing.T) {
	tests := []struct {
		name  string
		log   func(*slog.Logger)
		color string
	}{
		{"info", func(l *slog.Logger) { l.Info("msg") }, colorGreen},
		{"warn", func(l *slog.Logger) { l.Warn("msg") }, colorYellow},
		{"error", func(l *slog.Logger) { l.Error("msg") }, colorRed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(slog.New(newTestHandler(&buf, slog.LevelInfo)))
			assert.True(t, strings.HasPrefix(buf.String(), tt.color))
			assert.Contains(t, buf.String(), colorReset)
		})
	}
}

func TestCLIHandler_NoColor(t *testing.T) {
	var buf bytes.Buffer
	h := NewCLIHandler(&buf, slog.LevelInfo)
	h.noColor = true

	slog.New(h).Error("plain")
	assert.Equal(t, "plain\n", buf.String())
}

func TestCLIHandler_LevelFiltering(t *testing.T) {
	tests := []struct {
		name         string
		handlerLevel slog.Level
		logFunc      func(*slog.Logger)
		shouldLog    bool
	}{
		{"info handler logs info", slog.LevelInfo, func(l *slog.Logger) { l.Info("test") }, true},
		{"info handler filters debug", slog.LevelInfo, func(l *slog.Logger) { l.Debug("test") }, false},
		{"debug handler logs debug", slog.LevelDebug, func(l *slog.Logger) { l.Debug("test") }, true},
		{"error handler filters info", slog.LevelError, func(l *slog.Logger) { l.Info("test") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(slog.New(newTestHandler(&buf, tt.handlerLevel)))
			assert.Equal(t, tt.shouldLog, buf.Len() > 0)
		})
	}
}

func TestCLIHandler_Attributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTestHandler(&buf, slog.LevelInfo)).With("table", "SCORED")

	logger.Info("loaded", "rows", 8)

	output := buf.String()
	assert.Contains(t, output, "loaded: table=SCORED rows=8")
}

func TestCLIHandler_WithAttrsEmpty(t *testing.T) {
	h := newTestHandler(&bytes.Buffer{}, slog.LevelInfo)
	assert.Equal(t, h, h.WithAttrs(nil))
}

func TestCLIHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTestHandler(&buf, slog.LevelInfo)).WithGroup("seed")

	logger.Info("hello")
	assert.Contains(t, buf.String(), "[seed] hello")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"  debug  ", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.input))
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := middleware.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data/education", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), "path=/data/education")
	assert.Contains(t, buf.String(), "status=418")
	assert.Contains(t, buf.String(), "request_id=")
}
