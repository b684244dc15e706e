package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"selfAPI/services"
)

type StatsHandler struct {
	stats  *services.StatsService
	logger zerolog.Logger
}

func NewStatsHandler(stats *services.StatsService, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		stats:  stats,
		logger: logger.With().Str("component", "stats_handler").Logger(),
	}
}

func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	summary, err := h.stats.Summary(ctx, mux.Vars(r)["collection"])
	if errors.Is(err, services.ErrUnknownCollection) {
		respondWithError(w, http.StatusNotFound, "Unknown collection")
		return
	}
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dashboard, err := h.stats.Dashboard(ctx)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, dashboard)
}

func (h *StatsHandler) AdminOverview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	overview, err := h.stats.AdminOverview(ctx)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, overview)
}
