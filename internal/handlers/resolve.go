package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vidfriends/linkresolver/internal/logging"
	"github.com/vidfriends/linkresolver/internal/models"
	"github.com/vidfriends/linkresolver/internal/resolver"
)

const maxResolveBody = 64 << 10

// StrategyHeader names the strategy that produced a download link.
const StrategyHeader = "X-Resolution-Strategy"

// ResolveHandler implements POST /api/v1/resolve.
type ResolveHandler struct {
	Resolver MediaResolver
	Settings SettingsStore
	Defaults resolver.ProviderConfig
	History  HistoryStore
	NowFunc  func() time.Time
}

type resolveRequest struct {
	URL string `json:"url"`
}

// Handle resolves the submitted video URL into a download link.
func (h ResolveHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Resolver == nil {
		logger.Error("resolve dependencies unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "resolver unavailable")
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxResolveBody)).Decode(&req); err != nil {
		logger.Warn("invalid resolve payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	ctx, logger = logging.With(ctx, "video_url", req.URL)

	cfg, _, err := currentProvider(ctx, h.Settings, h.Defaults)
	if err != nil {
		logger.Error("load provider settings", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load provider settings")
		return
	}

	start := h.now()
	res, err := h.Resolver.ResolveResult(ctx, req.URL, cfg)
	h.record(r, req.URL, res, err, h.now().Sub(start))
	if err != nil {
		respondResolutionError(ctx, w, err)
		return
	}

	w.Header().Set(StrategyHeader, res.Strategy)
	respondJSON(ctx, w, http.StatusOK, res.Media)
}

func (h ResolveHandler) record(r *http.Request, videoURL string, res resolver.Result, err error, elapsed time.Duration) {
	if h.History == nil || errors.Is(err, resolver.ErrEmptyVideoURL) {
		return
	}

	rec := models.ResolutionRecord{
		VideoURL:   videoURL,
		Outcome:    models.OutcomeResolved,
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  h.now().UTC(),
	}
	if err != nil {
		_, kind := resolutionStatus(err)
		rec.Outcome = models.OutcomeFailed
		rec.ErrorKind = kind
		rec.Status = resolver.StatusOf(err)
	} else {
		rec.Strategy = res.Strategy
		rec.DownloadURL = res.Media.DownloadURL
	}

	if err := h.History.Record(r.Context(), rec); err != nil {
		logging.FromContext(r.Context()).Warn("record resolution history", "error", err)
	}
}

func (h ResolveHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now()
}
