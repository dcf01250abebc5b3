package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/multiman/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, slogx.ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, slogx.ParseLevel("warning"))
	require.Equal(t, slog.LevelError, slogx.ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, slogx.ParseLevel(""))
	require.Equal(t, slog.LevelInfo, slogx.ParseLevel("loud"))
}

func TestFromContext_DefaultsToSlogDefault(t *testing.T) {
	require.Same(t, slog.Default(), slogx.FromContext(context.Background()))
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	var sawLogger bool
	h := slogx.HTTPMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = slogx.FromContext(r.Context()) != slog.Default()
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	t.Run("propagates request id", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(slogx.HeaderRequestID, "abc-123")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		require.True(t, sawLogger)
		require.Equal(t, http.StatusTeapot, rec.Code)
		require.Equal(t, "abc-123", rec.Header().Get(slogx.HeaderRequestID))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		require.Equal(t, "http_request", line["msg"])
		require.Equal(t, "abc-123", line["req_id"])
		require.EqualValues(t, http.StatusTeapot, line["status"])
		require.EqualValues(t, len("short and stout"), line["bytes"])
	})

	t.Run("generates request id", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NotEmpty(t, rec.Header().Get(slogx.HeaderRequestID))
	})
}

func TestHTTPMiddleware_LogsCaller(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	h := slogx.HTTPMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := slogx.WithUser(r.Context(), "01JANN", "user")
		slogx.FromContext(ctx).Info("resource created")
		w.WriteHeader(http.StatusCreated)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/systems/library/books", nil))

	dec := json.NewDecoder(&buf)
	for _, msg := range []string{"resource created", "http_request"} {
		var line map[string]any
		require.NoError(t, dec.Decode(&line))
		require.Equal(t, msg, line["msg"])
		require.Equal(t, "01JANN", line["user_id"])
		require.Equal(t, "user", line["role"])
	}
}

func TestNew_FormatAndLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{
		Service: "multiman",
		Version: "test",
		Env:     "prod",
		Level:   "warn",
		Format:  "TEXT",
		Output:  &buf,
	})
	require.Same(t, logger, slog.Default())

	logger.Info("dropped")
	logger.Warn("kept", "system", "library")

	out := buf.String()
	require.NotContains(t, out, "dropped")
	require.Contains(t, out, "msg=kept")
	require.Contains(t, out, "service=multiman")
	require.Contains(t, out, "system=library")
}
