package handlers

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/mux"

	"selfAPI/services"
)

// Routes wires the API handlers under /api/v1. RequireAdmin guards the
// admin subrouter; OptionalAdmin only annotates public requests.
type Routes struct {
	Content       *ContentHandler
	Stats         *StatsHandler
	Sync          *SyncHandler
	RequireAdmin  mux.MiddlewareFunc
	OptionalAdmin mux.MiddlewareFunc
}

func (rt *Routes) Register(r *mux.Router) {
	collection := "/{collection:" + strings.Join(services.Names, "|") + "}"
	private := "/{collection:" + strings.Join(services.PrivateNames, "|") + "}"
	writable := "/{collection:" + strings.Join(slices.Concat(services.Names, services.PrivateNames), "|") + "}"

	api := r.PathPrefix("/api/v1").Subrouter()

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(rt.RequireAdmin)
	admin.HandleFunc("/overview", rt.Stats.AdminOverview).Methods(http.MethodGet)
	admin.HandleFunc("/sync/{source}", rt.Sync.Run).Methods(http.MethodPost)
	admin.HandleFunc(private, rt.Content.List).Methods(http.MethodGet)
	admin.HandleFunc(writable, rt.Content.Create).Methods(http.MethodPost)
	admin.HandleFunc(writable, rt.Content.Update).Methods(http.MethodPut)
	admin.HandleFunc(writable, rt.Content.Delete).Methods(http.MethodDelete)

	public := api.NewRoute().Subrouter()
	public.Use(rt.OptionalAdmin)
	public.HandleFunc("/dashboard", rt.Stats.Dashboard).Methods(http.MethodGet)
	public.HandleFunc("/stats/{collection}", rt.Stats.Summary).Methods(http.MethodGet)
	public.HandleFunc(collection, rt.Content.List).Methods(http.MethodGet)
}
