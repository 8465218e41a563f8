package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jobfinder/apiserver/config"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, parseLevel(tc.in), "parseLevel(%q)", tc.in)
	}
}

func TestNewFormats(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	New(config.LogConfig{Level: "info", Format: "text"}, &buf).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "msg=hello")

	buf.Reset()
	New(config.LogConfig{Level: "info", Format: "json"}, &buf).Info("hello")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))

	buf.Reset()
	New(config.LogConfig{Level: "error"}, &buf).Info("dropped")
	assert.Empty(t, buf.String())
}

func TestMiddlewareLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := middleware.RequestID(Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("tea"))
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "http.request", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "/brew", entry["path"])
	assert.EqualValues(t, http.StatusTeapot, entry["status"])
	assert.EqualValues(t, 3, entry["bytes"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestLogErrorIncludesOopsContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("upload_failed").With("folder", "avatars").Wrap(errors.New("boom"))
	LogError(logger, "request failed", err, "path", "/x")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "upload_failed", entry["code"])
	assert.Equal(t, "/x", entry["path"])
	ctx, ok := entry["context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "avatars", ctx["folder"])
}

func TestLogErrorPlain(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	LogError(logger, "request failed", errors.New("plain"))

	assert.Contains(t, buf.String(), `"error":"plain"`)
	assert.NotContains(t, buf.String(), `"code"`)
}
