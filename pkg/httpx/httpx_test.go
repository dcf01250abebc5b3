package httpx_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/multiman/pkg/httpx"
	"github.com/aussiebroadwan/multiman/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("a"), mw("b"), mw("c"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "c", "handler"}, order)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, ok := httpx.BearerToken(req)
		require.Equal(t, tt.ok, ok, tt.header)
		require.Equal(t, tt.want, got, tt.header)
	}
}

func TestAuthnMiddleware(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	signer, err := jwtx.NewSignerHS256(secret)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(secret, jwtx.VerifyOptions{})
	require.NoError(t, err)

	var gotUser string
	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = httpx.UserIDFromContext(r.Context())
		claims, ok := httpx.ClaimsFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "admin", claims.Role)
		w.WriteHeader(http.StatusNoContent)
	}), httpx.AuthnMiddleware(verifier))

	valid, err := signer.Sign(jwtx.NewAccessClaims("u-1", "admin", "", time.Hour, time.Now()))
	require.NoError(t, err)
	expired, err := signer.Sign(jwtx.NewAccessClaims("u-1", "admin", "", time.Hour, time.Now().Add(-3*time.Hour)))
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantErr  string
	}{
		{"valid", "Bearer " + valid, http.StatusNoContent, ""},
		{"missing", "", http.StatusUnauthorized, httpx.CodeUnauthenticated},
		{"garbage", "Bearer nope", http.StatusUnauthorized, httpx.CodeInvalidToken},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, httpx.CodeTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr == "" {
				require.Equal(t, "u-1", gotUser)
				return
			}
			require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			var body httpx.ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tt.wantErr, body.Error)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("ok", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`+"\n"))
		var p payload
		require.NoError(t, httpx.DecodeJSON(req, &p))
		require.Equal(t, "x", p.Name)
	})

	t.Run("trailing data", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}{"name":"y"}`))
		var p payload
		require.Error(t, httpx.DecodeJSON(req, &p))
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		var p payload
		require.Error(t, httpx.DecodeJSON(req, &p))
	})

	t.Run("too large", func(t *testing.T) {
		big := `{"name":"` + strings.Repeat("a", httpx.MaxBodyBytes) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		var p payload
		require.ErrorIs(t, httpx.DecodeJSON(req, &p), httpx.ErrBodyTooLarge)
	})
}

func TestMetrics(t *testing.T) {
	m := httpx.NewMetrics("test")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	h := m.Middleware()(mux)

	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/1", nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	require.Contains(t, string(body), `test_http_requests_total{code="202",route="GET /things/{id}"} 3`)
	require.Contains(t, string(body), `test_http_requests_total{code="404",route="unmatched"} 1`)
	require.Contains(t, string(body), "test_http_request_duration_seconds_bucket")
}
