package handlers

import (
	"context"
	"net/http"

	"github.com/vidfriends/linkresolver/internal/models"
	"github.com/vidfriends/linkresolver/internal/resolver"
)

// MediaResolver turns a video page URL into a download link.
type MediaResolver interface {
	ResolveResult(ctx context.Context, videoURL string, cfg resolver.ProviderConfig) (resolver.Result, error)
}

// SettingsStore persists the provider configuration.
type SettingsStore interface {
	Load(ctx context.Context) (resolver.ProviderConfig, error)
	Save(ctx context.Context, cfg resolver.ProviderConfig) error
}

// HistoryStore records and lists resolution outcomes.
type HistoryStore interface {
	Record(ctx context.Context, record models.ResolutionRecord) error
	Recent(ctx context.Context, limit int) ([]models.ResolutionRecord, error)
}

// AdminVerifier authorizes requests that change settings.
type AdminVerifier interface {
	VerifyRequest(r *http.Request) error
}
