package httpserver

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerServeAndShutdown(t *testing.T) {
	srv := New(0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}), time.Second)
	assert.Equal(t, DefaultWriteTimeout, srv.inner.WriteTimeout, "write timeout is floored")

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.ErrorIs(t, <-done, http.ErrServerClosed)
}

func TestNewKeepsLongerWriteTimeout(t *testing.T) {
	srv := New(8080, http.NotFoundHandler(), 45*time.Second)
	assert.Equal(t, 45*time.Second, srv.inner.WriteTimeout)
	assert.Equal(t, ":8080", srv.Addr())
}

func TestDrainRunsReleaseHooks(t *testing.T) {
	srv := New(0, http.NotFoundHandler(), time.Second)

	var order []string
	boom := errors.New("close cache")
	err := srv.Drain(
		func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok, "release hooks run under a deadline")
			order = append(order, "archive")
			return nil
		},
		nil,
		func(context.Context) error {
			order = append(order, "cache")
			return boom
		},
	)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"archive", "cache"}, order)
}
