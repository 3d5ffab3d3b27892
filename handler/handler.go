// Package handler provides the HTTP API for the POI editor.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/riandyrn/otelchi"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/stevemurr/poi-editor-server/config"
	"github.com/stevemurr/poi-editor-server/metrics"
	"github.com/stevemurr/poi-editor-server/poi"
)

var tracer = otel.Tracer("poi-editor-server/handler")

// Options configures a Handler.
type Options struct {
	ServiceName    string
	AllowedOrigins []string
	Map            config.MapDefaults
	Logger         *zerolog.Logger
}

// Handler holds the server dependencies and registers routes.
type Handler struct {
	manager *poi.Manager
	router  *chi.Mux
	opts    Options
	logger  zerolog.Logger
}

// New creates a Handler and wires up all routes.
func New(m *poi.Manager, opts Options) *Handler {
	if opts.ServiceName == "" {
		opts.ServiceName = "poi-editor-server"
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	h := &Handler{manager: m, router: chi.NewRouter(), opts: opts, logger: logger}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	r := h.router

	r.Use(cors.New(cors.Options{
		AllowedOrigins:   h.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler)
	r.Use(otelchi.Middleware(h.opts.ServiceName, otelchi.WithChiRoutes(r)))
	r.Use(RequestLogger(h.logger))

	// Health / status
	r.Get("/", h.root)
	r.Get("/health", h.health)
	r.Get("/config", h.mapConfig)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/pois", func(r chi.Router) {
		r.Get("/", h.getPOIs)
		r.Post("/", h.addPOI)
		r.Delete("/", h.clearPOIs)
		r.Get("/count", h.countPOIs)
		r.Get("/bounds", h.boundsPOIs)
		r.Patch("/{index}", h.updatePOI)
		r.Delete("/{index}", h.deletePOI)
		r.Patch("/id/{id}", h.updatePOIByID)
		r.Delete("/id/{id}", h.deletePOIByID)
	})

	r.Post("/import", h.importGeoJSON)
	r.Get("/export", h.export)
	r.Post("/resolve", h.resolve)
	r.Get("/events", h.events)
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeMutation answers a mutating request. The change is already visible
// when saving failed, so the error is reported but not rolled back.
func writeMutation(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		if errors.Is(err, poi.ErrSaveFailed) {
			writeError(w, http.StatusInternalServerError, "change applied but not saved: "+err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, status, v)
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "POI Editor Server",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) mapConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.opts.Map)
}
