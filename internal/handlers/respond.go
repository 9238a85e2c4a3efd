package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vidfriends/linkresolver/internal/logging"
	"github.com/vidfriends/linkresolver/internal/repositories"
	"github.com/vidfriends/linkresolver/internal/resolver"
)

type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Status int    `json:"status,omitempty"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, errorResponse{Error: message})
}

// respondResolutionError maps a resolution failure to its HTTP status and
// user-facing message.
func respondResolutionError(ctx context.Context, w http.ResponseWriter, err error) {
	status, kind := resolutionStatus(err)
	respondJSON(ctx, w, status, errorResponse{
		Error:  resolver.UserMessage(err),
		Kind:   kind,
		Status: resolver.StatusOf(err),
	})
}

func resolutionStatus(err error) (int, string) {
	switch {
	case errors.Is(err, resolver.ErrEmptyVideoURL):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, resolver.ErrProviderNotConfigured):
		return http.StatusPreconditionFailed, "not_configured"
	}

	kind := resolver.KindOf(err)
	switch kind {
	case resolver.NoCandidateFound:
		return http.StatusUnprocessableEntity, kind.String()
	case resolver.AuthorizationFailed:
		return http.StatusUnauthorized, kind.String()
	case resolver.ServerFailure:
		return http.StatusBadGateway, kind.String()
	case resolver.TransportFailure:
		return http.StatusGatewayTimeout, kind.String()
	default:
		return http.StatusInternalServerError, kind.String()
	}
}

// currentProvider returns the stored provider settings, falling back to
// defaults when nothing has been saved.
func currentProvider(ctx context.Context, store SettingsStore, defaults resolver.ProviderConfig) (resolver.ProviderConfig, bool, error) {
	if store == nil {
		return defaults, false, nil
	}
	cfg, err := store.Load(ctx)
	if errors.Is(err, repositories.ErrNotFound) {
		return defaults, false, nil
	}
	if err != nil {
		return resolver.ProviderConfig{}, false, err
	}
	return cfg, true, nil
}
