package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/trustbrief/internal/config"
	domai "github.com/bryanwahyu/trustbrief/internal/domain/ai"
	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
	"github.com/bryanwahyu/trustbrief/internal/domain/history"
	"github.com/bryanwahyu/trustbrief/internal/middleware"
)

// Assessor is the application surface served over HTTP.
type Assessor interface {
	Assess(ctx context.Context, raw string, forceRefresh bool) (*assessment.Assessment, error)
	Compare(ctx context.Context, left, right string, forceRefresh bool) (*assessment.Comparison, error)
	Get(ctx context.Context, key string) (*assessment.Assessment, error)
	Entries(ctx context.Context) ([]assessment.CacheEntry, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) (int, error)
	Runs(ctx context.Context, limit int) ([]*history.Run, error)
}

// Options configures the router. Zero values disable the optional parts.
type Options struct {
	Public      config.Public
	CORSOrigins []string
	APIKeys     map[string]string
	Limiter     *middleware.RateLimiter
	Observer    middleware.HTTPObserver
	Metrics     http.Handler
	Checkers    map[string]middleware.HealthChecker
}

type Router struct {
	svc    Assessor
	public config.Public
}

func NewRouter(svc Assessor, opts Options) http.Handler {
	r := &Router{svc: svc, public: opts.Public}
	mux := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))
	mux.Use(middleware.LoggingMiddleware)
	if opts.Observer != nil {
		mux.Use(middleware.MetricsMiddleware(opts.Observer))
	}
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	if opts.Limiter != nil {
		mux.Use(middleware.RateLimit(opts.Limiter))
	}

	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.ReadinessHandler(opts.Checkers))
	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	mux.Route("/api", func(rt chi.Router) {
		rt.Get("/health", middleware.HealthHandler(opts.Checkers))
		rt.Get("/config", r.wrap(r.handleConfig))
		rt.Post("/assess", r.wrap(r.handleAssess))
		rt.Post("/compare", r.wrap(r.handleCompare))
		rt.Get("/cache", r.wrap(r.handleCacheList))
		rt.Delete("/cache", r.wrap(r.handleCacheClear))
		rt.Get("/cache/{key}", r.wrap(r.handleCacheGet))
		rt.Delete("/cache/{key}", r.wrap(r.handleCacheDelete))
		rt.Get("/history", r.wrap(r.handleHistory))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks errors caused by the request itself.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status, body := mapError(err)
			if status >= 500 {
				slog.Error("request failed", "path", req.URL.Path, "status", status, "error", err)
			}
			middleware.WriteError(w, status, body)
		}
	}
}

func mapError(err error) (int, middleware.ErrorBody) {
	var serr *assessment.StageError
	var bad badRequest
	switch {
	case errors.As(err, &serr):
		body := middleware.ErrorBody{Stage: string(serr.Stage), Message: err.Error()}
		switch {
		case serr.Stage == assessment.StageInput:
			body.Error = "invalid_input"
			return http.StatusBadRequest, body
		case errors.Is(err, domai.ErrQuotaExceeded):
			body.Error = "quota_exceeded"
			return http.StatusTooManyRequests, body
		case serr.Timeout():
			body.Error = "timeout"
			return http.StatusGatewayTimeout, body
		case errors.Is(err, domai.ErrModelShape):
			body.Error = "model_shape"
			return http.StatusBadGateway, body
		default:
			body.Error = "stage_failed"
			return http.StatusBadGateway, body
		}
	case errors.Is(err, assessment.ErrCacheMiss):
		return http.StatusNotFound, middleware.ErrorBody{Error: "not_found", Message: "no cached assessment for this key"}
	case errors.As(err, &bad):
		return http.StatusBadRequest, middleware.ErrorBody{Error: "bad_request", Message: err.Error()}
	default:
		return http.StatusInternalServerError, middleware.ErrorBody{Error: "internal", Message: err.Error()}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, req *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, 1<<16))
	if err := dec.Decode(v); err != nil {
		return badRequest{fmt.Errorf("invalid JSON body: %w", err)}
	}
	return nil
}

// GET /api/config
func (r *Router) handleConfig(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, r.public)
}

// POST /api/assess
// Body: {"target": "Slack", "force_refresh": false}
func (r *Router) handleAssess(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Target       string `json:"target"`
		ForceRefresh bool   `json:"force_refresh"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}

	target, err := validTarget(body.Target)
	if err != nil {
		return err
	}
	a, err := r.svc.Assess(req.Context(), target, body.ForceRefresh)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// POST /api/compare
// Body: {"left": "Slack", "right": "Microsoft Teams"}
func (r *Router) handleCompare(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Left         string `json:"left"`
		Right        string `json:"right"`
		ForceRefresh bool   `json:"force_refresh"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}

	left, err := validTarget(body.Left)
	if err != nil {
		return err
	}
	right, err := validTarget(body.Right)
	if err != nil {
		return err
	}
	c, err := r.svc.Compare(req.Context(), left, right, body.ForceRefresh)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, c)
}

// validTarget rejects unusable input before any stage runs. Errors carry the
// input stage so they map like pipeline input failures.
func validTarget(raw string) (string, error) {
	target, err := middleware.ValidateTarget(raw)
	if err != nil {
		return "", &assessment.StageError{Stage: assessment.StageInput, Input: middleware.SanitizeString(raw), Err: err}
	}
	return target, nil
}

// GET /api/cache
func (r *Router) handleCacheList(w http.ResponseWriter, req *http.Request) error {
	entries, err := r.svc.Entries(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"count": len(entries), "entries": entries})
}

// GET /api/cache/{key}
func (r *Router) handleCacheGet(w http.ResponseWriter, req *http.Request) error {
	key := chi.URLParam(req, "key")
	if err := middleware.ValidateCacheKey(key); err != nil {
		return badRequest{err}
	}
	a, err := r.svc.Get(req.Context(), key)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// DELETE /api/cache/{key}
func (r *Router) handleCacheDelete(w http.ResponseWriter, req *http.Request) error {
	key := chi.URLParam(req, "key")
	if err := middleware.ValidateCacheKey(key); err != nil {
		return badRequest{err}
	}
	if err := r.svc.Delete(req.Context(), key); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// DELETE /api/cache
func (r *Router) handleCacheClear(w http.ResponseWriter, req *http.Request) error {
	n, err := r.svc.Clear(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

// GET /api/history?limit=20
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	runs, err := r.svc.Runs(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, runs)
}
