package resolver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPTransportSuccess(t *testing.T) {
	var got *http.Request
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"ok","links":[{"link":"https://cdn.example.com/v.mp4"}]}`))
	}))
	defer srv.Close()

	cfg := testConfig(MethodPost)
	cfg.BaseURL = srv.URL + "/smvd/get/all"

	raw, err := NewHTTPTransport(time.Second).Do(context.Background(), Build("https://x.com/a", cfg))
	require.NoError(t, err)
	assert.Equal(t, ObjectNode, raw.Kind())

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/smvd/get/all", got.URL.Path)
	assert.Equal(t, "secret-key", got.Header.Get(HeaderAPIKey))
	assert.Equal(t, cfg.APIHost, got.Header.Get(HeaderAPIHost))
	assert.Equal(t, "url=https%3A%2F%2Fx.com%2Fa", gotBody)
}

func TestHTTPTransportAuthorizationFailed(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		for _, body := range []string{``, `{"message":"You are not subscribed to this API."}`, `<html>forbidden</html>`} {
			srv := serve(t, status, body)
			cfg := testConfig(MethodGet)
			cfg.BaseURL = srv.URL

			_, err := NewHTTPTransport(time.Second).Do(context.Background(), Build("https://x.com/a", cfg))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAuthorizationFailed)
			assert.Equal(t, AuthorizationFailed, KindOf(err))
			assert.Equal(t, status, StatusOf(err))
		}
	}
}

func TestHTTPTransportServerErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", 500, `{"message":"upstream exploded"}`, "upstream exploded"},
		{"error field", 429, `{"error":"too many requests"}`, "too many requests"},
		{"nested error", 400, `{"error":{"message":"bad url"}}`, "bad url"},
		{"raw text", 502, "Bad Gateway\n", "Bad Gateway"},
		{"json without fields", 500, `{"code":7}`, `{"code":7}`},
		{"empty body", 503, "", "status 503"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body)
			cfg := testConfig(MethodGet)
			cfg.BaseURL = srv.URL

			_, err := NewHTTPTransport(time.Second).Do(context.Background(), Build("https://x.com/a", cfg))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrServer)

			var re *ResolutionError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.status, re.Status)
			assert.Equal(t, tt.want, re.Message)
		})
	}
}

func TestHTTPTransportMalformedJSON(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"links":[`)
	cfg := testConfig(MethodGet)
	cfg.BaseURL = srv.URL

	_, err := NewHTTPTransport(time.Second).Do(context.Background(), Build("https://x.com/a", cfg))
	assert.ErrorIs(t, err, ErrTransport)
}

func TestHTTPTransportNetworkFailure(t *testing.T) {
	srv := serve(t, http.StatusOK, `{}`)
	cfg := testConfig(MethodGet)
	cfg.BaseURL = srv.URL
	srv.Close()

	_, err := NewHTTPTransport(time.Second).Do(context.Background(), Build("https://x.com/a", cfg))
	require.Error(t, err)
	assert.Equal(t, TransportFailure, KindOf(err))
	assert.True(t, strings.HasPrefix(UserMessage(err), "could not reach the provider"))
}

func TestHTTPTransportTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	cfg := testConfig(MethodGet)
	cfg.BaseURL = srv.URL

	_, err := NewHTTPTransport(20*time.Millisecond).Do(context.Background(), Build("https://x.com/a", cfg))
	assert.ErrorIs(t, err, ErrTransport)
}

func TestUserMessages(t *testing.T) {
	assert.Equal(t, "could not extract a download link from the video", UserMessage(ErrNoCandidateFound))
	assert.Equal(t, "authorization failed, check your API key", UserMessage(&ResolutionError{Kind: AuthorizationFailed, Status: 403}))
	assert.Equal(t, "provider error (status 500): boom", UserMessage(ServerError(500, "boom")))
	assert.Equal(t, "please enter a valid video URL", UserMessage(ErrEmptyVideoURL))
	assert.Contains(t, UserMessage(testConfigMissingKey().Validate()), "not configured")
	assert.Equal(t, "", UserMessage(nil))
}

func testConfigMissingKey() ProviderConfig {
	cfg := testConfig(MethodGet)
	cfg.APIKey = ""
	return cfg
}

func TestServerMessageTruncatesOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", maxErrorMessageLen-1) + "é" + strings.Repeat("b", 10)
	srv := serve(t, http.StatusInternalServerError, body)
	cfg := testConfig(MethodGet)
	cfg.BaseURL = srv.URL

	_, err := NewHTTPTransport(time.Second).Do(context.Background(), Build("https://x.com/a", cfg))
	var re *ResolutionError
	require.True(t, errors.As(err, &re))

	assert.True(t, utf8.ValidString(re.Message))
	assert.Equal(t, strings.Repeat("a", maxErrorMessageLen-1)+"…", re.Message)

	assert.Equal(t, "short", truncate("short"))
	assert.Equal(t, strings.Repeat("é", maxErrorMessageLen/2)+"…", truncate(strings.Repeat("é", maxErrorMessageLen)))
}
