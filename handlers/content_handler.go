package handlers

import (
	"context"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"selfAPI/internal/feedsync"
	"selfAPI/middleware"
	"selfAPI/services"
)

const SyncStatusHeader = "X-Sync-Status"

// SyncIgnored is reported when a non-admin asks for a sync.
const SyncIgnored = "ignored"

// resource erases the record type of a content service for routing.
type resource interface {
	list(ctx context.Context) (any, error)
	create(ctx context.Context, body []byte) (any, error)
	update(ctx context.Context, id string, patch map[string]any) (any, error)
	delete(ctx context.Context, id string) (any, error)
}

type crud[T any, PT interface {
	*T
	services.Entity
}] struct {
	svc *services.ContentService[T, PT]
}

func (c crud[T, PT]) list(ctx context.Context) (any, error) {
	return c.svc.List(ctx)
}

func (c crud[T, PT]) create(ctx context.Context, body []byte) (any, error) {
	item := PT(new(T))
	if err := json.Unmarshal(body, item); err != nil {
		return nil, &services.ValidationError{Fields: map[string]string{"body": "invalid JSON: " + err.Error()}}
	}
	return c.svc.Create(ctx, item)
}

func (c crud[T, PT]) update(ctx context.Context, id string, patch map[string]any) (any, error) {
	return c.svc.Update(ctx, id, patch)
}

func (c crud[T, PT]) delete(ctx context.Context, id string) (any, error) {
	return c.svc.Delete(ctx, id)
}

func wrap[T any, PT interface {
	*T
	services.Entity
}](svc *services.ContentService[T, PT]) resource {
	return crud[T, PT]{svc: svc}
}

type ContentHandler struct {
	resources map[string]resource
	syncs     *services.SyncService
	// syncOnList maps a collection name to the sync source refreshed by
	// GET ?sync=true.
	syncOnList map[string]string
	logger     zerolog.Logger
}

func NewContentHandler(catalog *services.Catalog, syncs *services.SyncService, logger zerolog.Logger) *ContentHandler {
	return &ContentHandler{
		resources: map[string]resource{
			services.NameDSA:       wrap(catalog.DSA),
			services.NameVideos:    wrap(catalog.Videos),
			services.NameInstagram: wrap(catalog.Instagram),
			services.NameLinkedIn:  wrap(catalog.LinkedIn),
			services.NameProjects:  wrap(catalog.Projects),
			services.NameTasks:     wrap(catalog.Tasks),
		},
		syncs: syncs,
		syncOnList: map[string]string{
			services.NameVideos:    feedsync.SourceYouTube,
			services.NameInstagram: feedsync.SourceInstagram,
			services.NameProjects:  feedsync.SourceVercel,
		},
		logger: logger.With().Str("component", "content_handler").Logger(),
	}
}

func (h *ContentHandler) resource(w http.ResponseWriter, r *http.Request) (resource, bool) {
	res, ok := h.resources[mux.Vars(r)["collection"]]
	if !ok {
		respondWithError(w, http.StatusNotFound, "Unknown collection")
	}
	return res, ok
}

// List returns the collection newest first. An admin may ask for a fresh
// sync with ?sync=true; the list is served whatever the sync outcome.
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("sync") == "true" {
		h.syncBeforeList(w, r, mux.Vars(r)["collection"])
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := res.list(ctx)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, items)
}

func (h *ContentHandler) syncBeforeList(w http.ResponseWriter, r *http.Request, collection string) {
	source, ok := h.syncOnList[collection]
	if !ok || h.syncs == nil {
		return
	}

	if !middleware.IsAdmin(r.Context()) {
		w.Header().Set(SyncStatusHeader, SyncIgnored)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result, err := h.syncs.Run(ctx, source)
	if err != nil {
		h.logger.Error().Err(err).Str("source", source).Msg("sync on list failed")
		w.Header().Set(SyncStatusHeader, feedsync.StatusFailed)
		return
	}
	w.Header().Set(SyncStatusHeader, result.Status())
}

func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := res.create(ctx, raw)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

// Update takes the record id from the body or the id query parameter.
func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil || patch == nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, _ := patch["id"].(string)
	if id == "" {
		id = r.URL.Query().Get("id")
	}
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "ID is required")
		return
	}

	updated, err := res.update(ctx, id, patch)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	deleted, err := res.delete(ctx, id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    deleted,
	})
}
