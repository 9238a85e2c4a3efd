package handlers

import (
	"net/http"
	"strconv"

	"github.com/vidfriends/linkresolver/internal/logging"
	"github.com/vidfriends/linkresolver/internal/models"
)

// HistoryHandler implements GET /api/v1/history.
type HistoryHandler struct {
	History HistoryStore
}

// Handle lists the most recent resolutions, newest first.
func (h HistoryHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.History == nil {
		respondJSON(ctx, w, http.StatusOK, map[string][]models.ResolutionRecord{"items": {}})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(ctx, w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.History.Recent(ctx, limit)
	if err != nil {
		logging.FromContext(ctx).Error("list resolution history", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load history")
		return
	}
	if records == nil {
		records = []models.ResolutionRecord{}
	}

	respondJSON(ctx, w, http.StatusOK, map[string][]models.ResolutionRecord{"items": records})
}
