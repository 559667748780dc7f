// Package httpapi exposes the records domain over REST. Every request
// flows through the middleware pipeline, gets a fresh dependency bundle,
// runs exactly one command, and renders its outcome through the envelope
// mapper.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/latticeworks/substrate/internal/app/records"
	"github.com/latticeworks/substrate/internal/apperr"
	"github.com/latticeworks/substrate/internal/httputil"
	"github.com/latticeworks/substrate/internal/identity"
	"github.com/latticeworks/substrate/internal/logging"
	"github.com/latticeworks/substrate/internal/metrics"
	"github.com/latticeworks/substrate/internal/middleware"
	"github.com/latticeworks/substrate/internal/retry"
	"github.com/latticeworks/substrate/internal/store"
)

// Handler bundles the long-lived resources shared across requests. The
// store and notifier clients are safe for concurrent use; everything
// request-scoped is built per request in commands().
type Handler struct {
	store    *store.Client
	notifier *httputil.ServiceClient
	policy   retry.Policy
	logger   *logging.Logger
}

// Config wires a Handler.
type Config struct {
	Store          *store.Client
	Notifier       *httputil.ServiceClient
	Policy         retry.Policy
	Logger         *logging.Logger
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
}

// NewRouter builds the full router: middleware chain plus routes.
func NewRouter(cfg Config) http.Handler {
	h := &Handler{
		store:    cfg.Store,
		notifier: cfg.Notifier,
		policy:   cfg.Policy,
		logger:   cfg.Logger,
	}

	r := mux.NewRouter()
	r.Use(middleware.NewCORSMiddleware(cfg.AllowedOrigins).Handler)
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.NewTracingMiddleware(cfg.Logger).Handler)
	r.Use(httputil.Recovery(cfg.Logger))

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// The limiter sits behind auth so authenticated callers are keyed by
	// user id rather than by address.
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.NewAuthMiddleware(cfg.Logger).Handler)
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Handler)
	}
	api.HandleFunc("/records", h.createRecord).Methods(http.MethodPost)
	api.HandleFunc("/records", h.listRecords).Methods(http.MethodGet)
	api.HandleFunc("/records/{id}", h.getRecord).Methods(http.MethodGet)
	api.HandleFunc("/records/{id}", h.updateRecord).Methods(http.MethodPut)
	api.Handle("/records/{id}",
		middleware.RequireRole("admin")(http.HandlerFunc(h.deleteRecord)),
	).Methods(http.MethodDelete)

	internal := r.PathPrefix("/internal").Subrouter()
	internal.Use(middleware.NewServiceAuthMiddleware(cfg.Logger).Handler)
	if cfg.RateLimiter != nil {
		internal.Use(cfg.RateLimiter.Handler)
	}
	internal.HandleFunc("/records", h.listRecords).Methods(http.MethodGet)

	return r
}

// commands builds the per-request dependency bundles, bound to this
// request's identity and logger. Nothing here outlives the request.
func (h *Handler) commands(r *http.Request) records.Commands {
	id, _ := identity.FromContext(r.Context())
	log := h.logger.WithContext(r.Context())

	deps := records.Deps{
		Repos:    records.NewRepos(h.policy, h.store, id, log),
		Services: records.NewServices(h.policy, h.notifier, id, log),
	}
	return records.NewCommands(deps, id, log)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.CodeSuccess, map[string]string{"status": "ok"})
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	var in records.CreateInput
	mustDecode(r, &in)

	oc := h.commands(r).Create(r.Context(), in)
	httputil.WriteOutcome(w, oc, http.StatusCreated)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	oc := h.commands(r).Get(r.Context(), mux.Vars(r)["id"])
	httputil.WriteOutcome(w, oc, http.StatusOK)
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	var in records.CreateInput
	mustDecode(r, &in)

	oc := h.commands(r).Update(r.Context(), records.UpdateArgs{
		ID:    mux.Vars(r)["id"],
		Input: in,
	})
	httputil.WriteOutcome(w, oc, http.StatusOK)
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	oc := h.commands(r).List(r.Context(), records.ListQuery{
		Owner: r.URL.Query().Get("owner"),
	})
	httputil.WriteOutcome(w, oc, http.StatusOK)
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	oc := h.commands(r).Delete(r.Context(), mux.Vars(r)["id"])
	httputil.WriteOutcome(w, oc, http.StatusOK)
}

// mustDecode parses the request body, raising the validation issues to
// the top-level boundary on malformed input.
func mustDecode(r *http.Request, target any) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		panic(&apperr.ValidationIssues{Issues: []string{"body: " + err.Error()}})
	}
}
