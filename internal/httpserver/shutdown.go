package httpserver

import (
	"context"
	"errors"
	"time"
)

// ShutdownTimeout bounds Drain, covering in-flight provider calls and the
// release hooks that follow them.
var ShutdownTimeout = 10 * time.Second

// DefaultWriteTimeout is the floor for response write deadlines.
const DefaultWriteTimeout = 10 * time.Second

// Drain stops accepting requests, then runs release hooks in order under a
// single ShutdownTimeout budget. Hook errors are joined onto the shutdown error.
func (s *Server) Drain(release ...func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	err := s.Shutdown(ctx)
	for _, fn := range release {
		if fn == nil {
			continue
		}
		if rerr := fn(ctx); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}
	return err
}
