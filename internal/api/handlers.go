package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 50
	defaultMaxWalkM    = 1000
	defaultStopRadiusM = 2000
)

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	gen     PlanGenerator
	archive PlanArchive
	transit TransitPlanner
	stops   StopFinder
	log     *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(gen PlanGenerator, archive PlanArchive, transit TransitPlanner, stops StopFinder, log *slog.Logger) *Handlers {
	return &Handlers{
		gen:     gen,
		archive: archive,
		transit: transit,
		stops:   stops,
		log:     log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// GeneratePlans handles POST /api/v1/plans. Archiving the generation is
// best-effort; a storage failure never blocks the response.
func (h *Handlers) GeneratePlans(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	plans, err := h.gen.Generate(r.Context(), req.toEngine())
	if err != nil {
		h.log.Error("plan generation failed", "err", err)
		writeError(w, http.StatusInternalServerError, "plan generation failed")
		return
	}

	if len(plans) > 0 {
		if _, err := h.archive.SavePlans(r.Context(), req.toEngine(), plans); err != nil {
			h.log.Warn("plan archive failed", "err", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

// RecentPlans handles GET /api/v1/plans/recent.
func (h *Handlers) RecentPlans(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	generations, err := h.archive.RecentGenerations(r.Context(), limit)
	if err != nil {
		h.log.Error("recent generations query failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load recent plans")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"generations": generations})
}

// TransitRoute handles GET /api/v1/transit/route.
func (h *Handlers) TransitRoute(w http.ResponseWriter, r *http.Request) {
	from, ok := pointParams(r, "fromLat", "fromLon")
	if !ok {
		writeError(w, http.StatusBadRequest, "fromLat and fromLon must be valid coordinates")
		return
	}
	to, ok := pointParams(r, "toLat", "toLon")
	if !ok {
		writeError(w, http.StatusBadRequest, "toLat and toLon must be valid coordinates")
		return
	}

	maxWalk := defaultMaxWalkM
	if raw := r.URL.Query().Get("maxWalk"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "maxWalk must be a non-negative integer")
			return
		}
		maxWalk = n
	}

	result := h.transit.PlanRoute(r.Context(), from, to, time.Now(), maxWalk)
	writeJSON(w, http.StatusOK, result)
}

// TransitStops handles GET /api/v1/transit/stops.
func (h *Handlers) TransitStops(w http.ResponseWriter, r *http.Request) {
	center, ok := pointParams(r, "lat", "lon")
	if !ok {
		writeError(w, http.StatusBadRequest, "lat and lon must be valid coordinates")
		return
	}

	radius := defaultStopRadiusM
	if raw := r.URL.Query().Get("radius"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "radius must be a positive integer")
			return
		}
		radius = n
	}

	stops, err := h.stops.FetchTransitStops(r.Context(), center, radius, 50)
	if err != nil {
		h.log.Error("transit stop discovery failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to discover transit stops")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"stops": stops})
}

type dbPinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerFunc returns an http.HandlerFunc that checks db and redis connectivity.
func HealthHandlerFunc(db dbPinger, redis redisPinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		dbStatus := "ok"
		redisStatus := "ok"

		if err := db.Ping(ctx); err != nil {
			log.Error("health check: db ping failed", "err", err)
			dbStatus = "error"
			status = http.StatusServiceUnavailable
		}

		if err := redis.Ping(ctx); err != nil {
			log.Error("health check: redis ping failed", "err", err)
			redisStatus = "error"
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, map[string]string{
			"status": func() string {
				if status == http.StatusOK {
					return "ok"
				}
				return "degraded"
			}(),
			"db":    dbStatus,
			"redis": redisStatus,
		})
	}
}
