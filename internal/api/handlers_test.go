package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/cityplan/internal/api"
	"github.com/neexbeast/cityplan/internal/geo"
	"github.com/neexbeast/cityplan/internal/plan"
	"github.com/neexbeast/cityplan/internal/poi"
	"github.com/neexbeast/cityplan/internal/storage"
	"github.com/neexbeast/cityplan/internal/transit"
)

// ---- mock implementations ----

type mockGenerator struct {
	generateFn func(ctx context.Context, req plan.Request) ([]plan.Plan, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req plan.Request) ([]plan.Plan, error) {
	return m.generateFn(ctx, req)
}

type mockArchive struct {
	saveFn   func(ctx context.Context, req plan.Request, plans []plan.Plan) (string, error)
	recentFn func(ctx context.Context, limit int) ([]storage.Generation, error)
}

func (m *mockArchive) SavePlans(ctx context.Context, req plan.Request, plans []plan.Plan) (string, error) {
	if m.saveFn == nil {
		return "id", nil
	}
	return m.saveFn(ctx, req, plans)
}
func (m *mockArchive) RecentGenerations(ctx context.Context, limit int) ([]storage.Generation, error) {
	return m.recentFn(ctx, limit)
}

type mockTransit struct {
	planFn func(ctx context.Context, from, to geo.Point, when time.Time, maxWalkM int) transit.RouteResult
}

func (m *mockTransit) PlanRoute(ctx context.Context, from, to geo.Point, when time.Time, maxWalkM int) transit.RouteResult {
	return m.planFn(ctx, from, to, when, maxWalkM)
}

type mockStops struct {
	fetchFn func(ctx context.Context, center geo.Point, radiusM, limitPerMode int) ([]poi.TransitStop, error)
}

func (m *mockStops) FetchTransitStops(ctx context.Context, center geo.Point, radiusM, limitPerMode int) ([]poi.TransitStop, error) {
	return m.fetchFn(ctx, center, radiusM, limitPerMode)
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// ---- helpers ----

const testToken = "secret-token"

func samplePlans() []plan.Plan {
	cost := 40.0
	return []plan.Plan{{
		ID:    "A",
		Title: "Balanced",
		Mode:  plan.ModeFoot,
		Steps: []plan.Step{
			{Kind: plan.StepStart, Name: "Start", Coord: geo.Point{Lat: 44.4268, Lon: 26.1025}},
			{Kind: plan.StepPOI, Name: "Corner Cafe", Coord: geo.Point{Lat: 44.43, Lon: 26.10}, Category: poi.CategoryCafe},
		},
		Stops:         []plan.Stop{{Name: "Corner Cafe", Lat: 44.43, Lon: 26.10}},
		Km:            0.6,
		Min:           42,
		Cost:          &cost,
		RouteSegments: []plan.RouteSegment{},
	}}
}

func buildRouter(gen api.PlanGenerator, archive api.PlanArchive, tr api.TransitPlanner, stops api.StopFinder, db, redis *mockPinger) http.Handler {
	if gen == nil {
		gen = &mockGenerator{generateFn: func(context.Context, plan.Request) ([]plan.Plan, error) {
			return samplePlans(), nil
		}}
	}
	if archive == nil {
		archive = &mockArchive{}
	}
	if tr == nil {
		tr = &mockTransit{planFn: func(_ context.Context, from, to geo.Point, _ time.Time, _ int) transit.RouteResult {
			return transit.Fallback(from, to)
		}}
	}
	if stops == nil {
		stops = &mockStops{fetchFn: func(context.Context, geo.Point, int, int) ([]poi.TransitStop, error) {
			return nil, nil
		}}
	}
	if db == nil {
		db = &mockPinger{}
	}
	if redis == nil {
		redis = &mockPinger{}
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handlers := api.NewHandlers(gen, archive, tr, stops, log)
	return api.NewRouter(handlers, testToken, db, redis, log)
}

func authedRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

// ---- POST /api/v1/plans ----

func TestGeneratePlans_Success(t *testing.T) {
	var seenReq plan.Request
	gen := &mockGenerator{generateFn: func(_ context.Context, req plan.Request) ([]plan.Plan, error) {
		seenReq = req
		return samplePlans(), nil
	}}
	router := buildRouter(gen, nil, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/plans",
		`{"duration":120,"transport":"walk","withWho":"friends","budget":200}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 120, seenReq.DurationMin)
	assert.Equal(t, plan.TransportWalk, seenReq.Transport)
	require.NotNil(t, seenReq.Budget)
	assert.Equal(t, 200.0, *seenReq.Budget)

	var body struct {
		Plans []plan.Plan `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Plans, 1)
	assert.Equal(t, "Balanced", body.Plans[0].Title)
}

func TestGeneratePlans_ArchivesGeneration(t *testing.T) {
	saved := false
	archive := &mockArchive{saveFn: func(_ context.Context, _ plan.Request, plans []plan.Plan) (string, error) {
		saved = true
		require.Len(t, plans, 1)
		return "id", nil
	}}
	router := buildRouter(nil, archive, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/plans", `{"duration":120}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, saved)
}

func TestGeneratePlans_ArchiveFailureDoesNotBlock(t *testing.T) {
	archive := &mockArchive{saveFn: func(context.Context, plan.Request, []plan.Plan) (string, error) {
		return "", fmt.Errorf("db down")
	}}
	router := buildRouter(nil, archive, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/plans", `{"duration":120}`))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGeneratePlans_EmptyResultSkipsArchive(t *testing.T) {
	gen := &mockGenerator{generateFn: func(context.Context, plan.Request) ([]plan.Plan, error) {
		return []plan.Plan{}, nil
	}}
	archive := &mockArchive{saveFn: func(context.Context, plan.Request, []plan.Plan) (string, error) {
		t.Fatal("archive should not be called for an empty generation")
		return "", nil
	}}
	router := buildRouter(gen, archive, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/plans", `{"duration":120}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"plans":[]`)
}

func TestGeneratePlans_InvalidBody(t *testing.T) {
	router := buildRouter(nil, nil, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/plans", `{not json`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGeneratePlans_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing duration", `{"transport":"walk"}`},
		{"bad transport", `{"duration":120,"transport":"rocket"}`},
		{"bad companion", `{"duration":120,"withWho":"strangers"}`},
		{"negative budget", `{"duration":120,"budget":-5}`},
		{"center out of range", `{"duration":120,"center":{"lat":120,"lon":26}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := buildRouter(nil, nil, nil, nil, nil, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/plans", tc.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGeneratePlans_DurationClamped(t *testing.T) {
	var seen int
	gen := &mockGenerator{generateFn: func(_ context.Context, req plan.Request) ([]plan.Plan, error) {
		seen = req.DurationMin
		return samplePlans(), nil
	}}
	router := buildRouter(gen, nil, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/plans", `{"duration":5000}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 720, seen)
}

func TestGeneratePlans_GeneratorError(t *testing.T) {
	gen := &mockGenerator{generateFn: func(context.Context, plan.Request) ([]plan.Plan, error) {
		return nil, fmt.Errorf("upstream broke")
	}}
	router := buildRouter(gen, nil, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/plans", `{"duration":120}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ---- GET /api/v1/plans/recent ----

func TestRecentPlans_DefaultLimit(t *testing.T) {
	var seenLimit int
	archive := &mockArchive{recentFn: func(_ context.Context, limit int) ([]storage.Generation, error) {
		seenLimit = limit
		return []storage.Generation{{ID: "id-1"}}, nil
	}}
	router := buildRouter(nil, archive, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/plans/recent", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, seenLimit)
	assert.Contains(t, rec.Body.String(), "id-1")
}

func TestRecentPlans_LimitCapped(t *testing.T) {
	var seenLimit int
	archive := &mockArchive{recentFn: func(_ context.Context, limit int) ([]storage.Generation, error) {
		seenLimit = limit
		return nil, nil
	}}
	router := buildRouter(nil, archive, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/plans/recent?limit=500", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, seenLimit)
}

func TestRecentPlans_BadLimit(t *testing.T) {
	router := buildRouter(nil, nil, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/plans/recent?limit=abc", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecentPlans_ArchiveError(t *testing.T) {
	archive := &mockArchive{recentFn: func(context.Context, int) ([]storage.Generation, error) {
		return nil, fmt.Errorf("db down")
	}}
	router := buildRouter(nil, archive, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/plans/recent", ""))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ---- GET /api/v1/transit/route ----

func TestTransitRoute_Success(t *testing.T) {
	var seenFrom, seenTo geo.Point
	var seenWalk int
	tr := &mockTransit{planFn: func(_ context.Context, from, to geo.Point, _ time.Time, maxWalkM int) transit.RouteResult {
		seenFrom, seenTo, seenWalk = from, to, maxWalkM
		return transit.RouteResult{Legs: []transit.Leg{{Kind: transit.LegFoot}}}
	}}
	router := buildRouter(nil, nil, tr, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet,
		"/api/v1/transit/route?fromLat=44.42&fromLon=26.10&toLat=44.45&toLon=26.12&maxWalk=500", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, geo.Point{Lat: 44.42, Lon: 26.10}, seenFrom)
	assert.Equal(t, geo.Point{Lat: 44.45, Lon: 26.12}, seenTo)
	assert.Equal(t, 500, seenWalk)
}

func TestTransitRoute_DefaultMaxWalk(t *testing.T) {
	var seenWalk int
	tr := &mockTransit{planFn: func(_ context.Context, _, _ geo.Point, _ time.Time, maxWalkM int) transit.RouteResult {
		seenWalk = maxWalkM
		return transit.RouteResult{}
	}}
	router := buildRouter(nil, nil, tr, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet,
		"/api/v1/transit/route?fromLat=44.42&fromLon=26.10&toLat=44.45&toLon=26.12", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1000, seenWalk)
}

func TestTransitRoute_MissingCoordinates(t *testing.T) {
	router := buildRouter(nil, nil, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/transit/route?fromLat=44.42", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---- GET /api/v1/transit/stops ----

func TestTransitStops_Success(t *testing.T) {
	stops := &mockStops{fetchFn: func(_ context.Context, center geo.Point, radiusM, _ int) ([]poi.TransitStop, error) {
		assert.Equal(t, 2000, radiusM)
		return []poi.TransitStop{{ID: "n1", Name: "Piata Romana", Mode: "metro"}}, nil
	}}
	router := buildRouter(nil, nil, nil, stops, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/transit/stops?lat=44.42&lon=26.10", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Piata Romana")
}

func TestTransitStops_FetchError(t *testing.T) {
	stops := &mockStops{fetchFn: func(context.Context, geo.Point, int, int) ([]poi.TransitStop, error) {
		return nil, fmt.Errorf("all mirrors down")
	}}
	router := buildRouter(nil, nil, nil, stops, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/transit/stops?lat=44.42&lon=26.10", ""))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ---- GET /api/v1/health ----

func TestHealth_OK(t *testing.T) {
	router := buildRouter(nil, nil, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealth_DBDown(t *testing.T) {
	router := buildRouter(nil, nil, nil, nil, &mockPinger{err: fmt.Errorf("down")}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"db":"error"`)
}

func TestHealth_RedisDown(t *testing.T) {
	router := buildRouter(nil, nil, nil, nil, nil, &mockPinger{err: fmt.Errorf("down")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"error"`)
}

// ---- bearer auth ----

func TestBearerAuth_NoHeader(t *testing.T) {
	router := buildRouter(nil, nil, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans/recent", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuth_WrongToken(t *testing.T) {
	router := buildRouter(nil, nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plans/recent", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuth_MissingBearerPrefix(t *testing.T) {
	router := buildRouter(nil, nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plans/recent", nil)
	req.Header.Set("Authorization", testToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuth_HealthNoAuth(t *testing.T) {
	router := buildRouter(nil, nil, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
}
