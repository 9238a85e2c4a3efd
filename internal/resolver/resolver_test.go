package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transportStub struct {
	raw   Node
	err   error
	calls int
	last  OutboundRequest
}

func (s *transportStub) Do(_ context.Context, req OutboundRequest) (Node, error) {
	s.calls++
	s.last = req
	return s.raw, s.err
}

func TestResolverResolve(t *testing.T) {
	stub := &transportStub{raw: mustParse(t, `{"title":"T","medias":[{"extension":"mp4","quality":"hd","url":"https://cdn.example.com/hd.mp4"}]}`)}
	r := New(stub)

	res, err := r.ResolveResult(context.Background(), "  https://x.com/a  ", testConfig(MethodGet))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/hd.mp4", res.Media.DownloadURL)
	assert.Equal(t, "T", res.Media.Title)
	assert.Equal(t, StrategyMediaList, res.Strategy)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, Build("https://x.com/a", testConfig(MethodGet)), stub.last)
}

func TestResolverRejectsInputBeforeCallingProvider(t *testing.T) {
	stub := &transportStub{}
	r := New(stub)

	_, err := r.Resolve(context.Background(), "   ", testConfig(MethodGet))
	assert.ErrorIs(t, err, ErrEmptyVideoURL)

	_, err = r.Resolve(context.Background(), "https://x.com/a", testConfigMissingKey())
	assert.ErrorIs(t, err, ErrProviderNotConfigured)

	assert.Zero(t, stub.calls)
}

func TestResolverPropagatesTransportErrors(t *testing.T) {
	stub := &transportStub{err: &ResolutionError{Kind: AuthorizationFailed, Status: 403}}

	_, err := New(stub).Resolve(context.Background(), "https://x.com/a", testConfig(MethodGet))
	assert.ErrorIs(t, err, ErrAuthorizationFailed)
	assert.Equal(t, 1, stub.calls)
}

func TestResolverUnresolvedHook(t *testing.T) {
	stub := &transportStub{raw: mustParse(t, `{"url":"https://x.com/a"}`)}

	var hookURL string
	var hookRaw Node
	r := New(stub, WithUnresolvedHook(func(_ context.Context, videoURL string, raw Node) {
		hookURL = videoURL
		hookRaw = raw
	}))

	_, err := r.Resolve(context.Background(), "https://x.com/a", testConfig(MethodGet))
	assert.ErrorIs(t, err, ErrNoCandidateFound)
	assert.Equal(t, "https://x.com/a", hookURL)
	assert.Equal(t, []string{"url"}, hookRaw.Keys())
}

func TestResolverWithoutTransport(t *testing.T) {
	_, err := New(nil).Resolve(context.Background(), "https://x.com/a", testConfig(MethodGet))
	assert.ErrorIs(t, err, ErrTransport)
}

func TestResolverEndToEndStatus403(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"medias":[{"extension":"mp4","url":"https://cdn.example.com/v.mp4"}]}`))
	}))
	defer srv.Close()

	cfg := testConfig(MethodGet)
	cfg.BaseURL = srv.URL

	_, err := New(NewHTTPTransport(time.Second)).Resolve(context.Background(), "https://x.com/a", cfg)
	assert.ErrorIs(t, err, ErrAuthorizationFailed)
}

func TestResolverCustomNormalizer(t *testing.T) {
	stub := &transportStub{raw: mustParse(t, `{"clip":"https://cdn.example.com/c.mkv"}`)}
	r := New(stub, WithNormalizer(NewNormalizer(WithFuzzyExtensions("mkv"))))

	got, err := r.Resolve(context.Background(), "https://x.com/a", testConfig(MethodGet))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/c.mkv", got.DownloadURL)
}
