package resolver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vidfriends/linkresolver/internal/logging"
)

// UnresolvedHook observes provider responses that no strategy could use.
type UnresolvedHook func(ctx context.Context, videoURL string, raw Node)

// Option customises a Resolver.
type Option func(*Resolver)

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n Normalizer) Option {
	return func(r *Resolver) { r.normalizer = n }
}

// WithUnresolvedHook registers a callback for NoCandidateFound outcomes.
func WithUnresolvedHook(hook UnresolvedHook) Option {
	return func(r *Resolver) { r.onUnresolved = hook }
}

// Resolver runs one resolution end to end: build, send, normalize. It keeps
// no state between calls.
type Resolver struct {
	transport    Transport
	normalizer   Normalizer
	onUnresolved UnresolvedHook
}

// New constructs a Resolver sending requests through transport.
func New(transport Transport, opts ...Option) *Resolver {
	r := &Resolver{
		transport:  transport,
		normalizer: NewNormalizer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the download link for videoURL using the provider in cfg.
func (r *Resolver) Resolve(ctx context.Context, videoURL string, cfg ProviderConfig) (ResolvedMedia, error) {
	res, err := r.ResolveResult(ctx, videoURL, cfg)
	if err != nil {
		return ResolvedMedia{}, err
	}
	return res.Media, nil
}

// ResolveResult is Resolve with the winning strategy attached.
func (r *Resolver) ResolveResult(ctx context.Context, videoURL string, cfg ProviderConfig) (Result, error) {
	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return Result{}, ErrEmptyVideoURL
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if r == nil || r.transport == nil {
		return Result{}, TransportError(errTransportMissing)
	}

	ctx, span := logging.StartSpan(ctx, "resolve")
	defer span.End()
	logger := logging.FromContext(ctx)

	req := Build(videoURL, cfg)
	logger.Debug("sending provider request",
		slog.String("method", string(req.Method)),
		slog.String("host", cfg.APIHost),
		slog.Bool("proxy", cfg.UseProxy),
	)

	raw, err := r.transport.Do(ctx, req)
	if err != nil {
		logger.Warn("provider request failed",
			slog.String("kind", KindOf(err).String()),
			slog.Int("status", StatusOf(err)),
			slog.Any("error", err),
		)
		return Result{}, err
	}

	res, err := r.normalizer.NormalizeResult(raw)
	if err != nil {
		logger.Info("no download link in provider response", slog.String("video_url", videoURL))
		if r.onUnresolved != nil {
			r.onUnresolved(ctx, videoURL, raw)
		}
		return Result{}, err
	}

	logger.Info("resolved video",
		slog.String("strategy", res.Strategy),
		slog.String("media_kind", res.Candidate.Kind.String()),
	)
	return res, nil
}
