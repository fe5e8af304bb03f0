// Package api implements the HTTP surface of the discovery service.
//
// Routes:
//
//	GET  /health    → liveness
//	GET  /metrics   → Prometheus exposition
//	GET  /          → landing: on-demand ingestion, then recent listings
//	GET  /listings  → recent listings (?limit=N, default 20, max 100)
//	POST /ingest    → run one ingestion cycle and return its report
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"adluc/discovery-service/internal/db"
	"adluc/discovery-service/internal/model"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	version          = "1.0.0"
)

// Landing page ingestion status.
const (
	StatusDone    = "done"
	StatusPending = "pending"
	StatusFailed  = "failed"
)

// Trigger runs an ingestion cycle or joins the one in progress.
type Trigger interface {
	Trigger(ctx context.Context) (*model.IngestReport, error)
}

// LandingResponse is the JSON shape of GET /.
type LandingResponse struct {
	Ingestion string              `json:"ingestion"`
	Report    *model.IngestReport `json:"report,omitempty"`
	Listings  []model.Listing     `json:"listings"`
}

// Handler holds shared dependencies.
type Handler struct {
	store           db.ListingStore
	ingest          Trigger
	onDemandTimeout time.Duration
	metrics         http.Handler
	logger          *zap.Logger
}

// NewHandler returns a configured Handler. metrics may be nil.
func NewHandler(
	store db.ListingStore,
	ingest Trigger,
	onDemandTimeout time.Duration,
	metrics http.Handler,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		store:           store,
		ingest:          ingest,
		onDemandTimeout: onDemandTimeout,
		metrics:         metrics,
		logger:          logger.Named("api"),
	}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))

	r.Get("/health", h.health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}
	r.Get("/", h.landing)
	r.Get("/listings", h.listListings)
	r.Post("/ingest", h.runIngest)
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]string{
		"status":  "ok",
		"service": "discovery-service",
		"version": version,
	})
}

// landing refreshes external listings before answering. The wait is bounded
// by onDemandTimeout; a slower cycle keeps running and is reported pending.
func (h *Handler) landing(w http.ResponseWriter, r *http.Request) {
	resp := LandingResponse{Ingestion: StatusDone}

	ctx := r.Context()
	if h.onDemandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.onDemandTimeout)
		defer cancel()
	}

	report, err := h.ingest.Trigger(ctx)
	switch {
	case err == nil:
		resp.Report = report
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		resp.Ingestion = StatusPending
	default:
		resp.Ingestion = StatusFailed
		h.logger.Error("on-demand ingestion failed", zap.Error(err))
	}

	listings, err := h.store.ListRecent(r.Context(), defaultListLimit)
	if err != nil {
		h.logger.Error("list recent listings", zap.Error(err))
		jsonError(w, "could not load listings", http.StatusInternalServerError)
		return
	}
	resp.Listings = nonNil(listings)
	jsonOK(w, resp)
}

func (h *Handler) listListings(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	listings, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("list recent listings", zap.Error(err))
		jsonError(w, "could not load listings", http.StatusInternalServerError)
		return
	}
	jsonOK(w, nonNil(listings))
}

func (h *Handler) runIngest(w http.ResponseWriter, r *http.Request) {
	report, err := h.ingest.Trigger(r.Context())
	if err != nil {
		if r.Context().Err() != nil {
			return // client went away
		}
		h.logger.Error("ingestion failed", zap.Error(err))
		jsonError(w, "ingestion failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonOK(w, report)
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("requestId", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func nonNil(l []model.Listing) []model.Listing {
	if l == nil {
		return []model.Listing{}
	}
	return l
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
