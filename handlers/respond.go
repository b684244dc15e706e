package handlers

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"selfAPI/internal/store"
	"selfAPI/services"
)

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps service and store errors to status codes.
// Anything unexpected is logged and reported without detail.
func respondWithServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondWithJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "Validation failed",
			"fields": vErr.Fields,
		})
	case errors.Is(err, services.ErrValidation):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Record not found")
	case errors.Is(err, store.ErrDuplicate):
		respondWithError(w, http.StatusConflict, "A record with this apiId already exists")
	default:
		logger.Error().Err(err).Msg("request failed")
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
