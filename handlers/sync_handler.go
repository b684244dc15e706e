package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"selfAPI/middleware"
	"selfAPI/services"
)

const syncAll = "all"

type SyncHandler struct {
	syncs  *services.SyncService
	logger zerolog.Logger
}

func NewSyncHandler(syncs *services.SyncService, logger zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		syncs:  syncs,
		logger: logger.With().Str("component", "sync_handler").Logger(),
	}
}

// Run triggers one source, or every source for "all". Skipped and failed
// runs still answer 200 with the result describing why.
func (h *SyncHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	source := mux.Vars(r)["source"]
	clerkID, _ := middleware.GetClerkID(r.Context())
	h.logger.Info().Str("source", source).Str("clerk_id", clerkID).Msg("manual sync requested")

	if source == syncAll {
		respondWithJSON(w, http.StatusOK, h.syncs.RunAll(ctx))
		return
	}

	result, err := h.syncs.Run(ctx, source)
	if errors.Is(err, services.ErrUnknownSource) {
		respondWithError(w, http.StatusNotFound, "Unknown sync source")
		return
	}
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
