package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/vidfriends/linkresolver/internal/logging"
	"github.com/vidfriends/linkresolver/internal/resolver"
)

const maxSettingsBody = 16 << 10

// SettingsHandler implements GET and PUT /api/v1/settings.
type SettingsHandler struct {
	Store    SettingsStore
	Defaults resolver.ProviderConfig
	Admin    AdminVerifier
}

type settingsResponse struct {
	resolver.ProviderConfig
	Source string `json:"source"`
}

// Handle dispatches on the request method.
func (h SettingsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.put(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cfg, stored, err := currentProvider(ctx, h.Store, h.Defaults)
	if err != nil {
		logging.FromContext(ctx).Error("load provider settings", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load provider settings")
		return
	}

	respondJSON(ctx, w, http.StatusOK, newSettingsResponse(cfg, stored))
}

func (h SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Admin == nil || h.Store == nil {
		respondError(ctx, w, http.StatusForbidden, "settings are read-only")
		return
	}
	if err := h.Admin.VerifyRequest(r); err != nil {
		logger.Warn("settings update unauthorized", "error", err)
		w.Header().Set("WWW-Authenticate", `Bearer realm="linkresolver"`)
		respondError(ctx, w, http.StatusUnauthorized, "admin token required")
		return
	}

	var cfg resolver.ProviderConfig
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSettingsBody)).Decode(&cfg); err != nil {
		logger.Warn("invalid settings payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, stored, err := currentProvider(ctx, h.Store, h.Defaults)
	if err != nil {
		logger.Error("load provider settings", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load provider settings")
		return
	}
	// Echoing back the masked key from GET keeps the current one.
	if cfg.APIKey == "" || cfg.APIKey == current.Masked().APIKey {
		cfg.APIKey = current.APIKey
	}
	cfg.APIHost = strings.TrimSpace(cfg.APIHost)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.ProxyEndpoint = strings.TrimSpace(cfg.ProxyEndpoint)
	if cfg.Method == "" {
		cfg.Method = resolver.MethodGet
	}
	if method, err := resolver.ParseMethod(string(cfg.Method)); err == nil {
		cfg.Method = method
	}

	if err := cfg.Validate(); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "not_configured"})
		return
	}

	if err := h.Store.Save(ctx, cfg); err != nil {
		logger.Error("save provider settings", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to save provider settings")
		return
	}

	logger.Info("provider settings updated", "host", cfg.APIHost, "method", string(cfg.Method), "proxy", cfg.UseProxy, "previously_stored", stored)
	respondJSON(ctx, w, http.StatusOK, newSettingsResponse(cfg, true))
}

func newSettingsResponse(cfg resolver.ProviderConfig, stored bool) settingsResponse {
	source := "defaults"
	if stored {
		source = "stored"
	}
	return settingsResponse{ProviderConfig: cfg.Masked(), Source: source}
}
