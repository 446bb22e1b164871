package plan

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"log/slog"

	"github.com/neexbeast/cityplan/internal/geo"
	"github.com/neexbeast/cityplan/internal/location"
	"github.com/neexbeast/cityplan/internal/poi"
	"github.com/neexbeast/cityplan/internal/scoring"
	"github.com/neexbeast/cityplan/internal/weather"
)

// Default center when no center is given and resolution fails: Bucharest.
var defaultCenter = geo.Point{Lat: 44.4268, Lon: 26.1025}

// Categories an outing is actually built from. The wider allow-list is still
// fetched so ranking context and future themes have material.
var wantedCategories = []poi.Category{
	poi.CategoryCafe, poi.CategoryRestaurant, poi.CategoryBar,
	poi.CategoryPark, poi.CategoryCinema,
}

const (
	perCategoryLimit = 20
	locationTimeout  = 8 * time.Second
	anchorAttempts   = 5
	maxPlans         = 3
	anchorPoolSize   = 10
)

// CandidateSource supplies points of interest around a center or within the
// administrative area containing it.
type CandidateSource interface {
	FetchAround(ctx context.Context, center geo.Point, cats []poi.Category, radiusM, limitPerCat int) ([]poi.POI, error)
	FetchInCity(ctx context.Context, center geo.Point, cats []poi.Category, limitPerCat int) ([]poi.POI, error)
}

// WeatherSource reduces a short-range forecast to adaptation signals.
type WeatherSource interface {
	Fetch(ctx context.Context, lat, lon float64) (weather.Signal, error)
}

// LocationSource resolves the current coordinate.
type LocationSource interface {
	Resolve(ctx context.Context, opts location.Options) (location.Fix, error)
}

// Engine generates outing plans. Construct with NewEngine; safe for
// concurrent use.
type Engine struct {
	candidates CandidateSource
	weather    WeatherSource
	location   LocationSource
	dist       *geo.DistanceCache
	weights    scoring.Weights

	rngMu sync.Mutex // rand.Rand is not safe for concurrent use
	rng   *rand.Rand

	now func() time.Time
	log *slog.Logger
}

// NewEngine constructs an Engine seeded from the current time.
func NewEngine(candidates CandidateSource, wx WeatherSource, loc LocationSource, log *slog.Logger) *Engine {
	return NewEngineWithClock(candidates, wx, loc, log, time.Now().UnixNano(), time.Now)
}

// NewEngineWithClock fixes the random seed and clock, for tests.
func NewEngineWithClock(candidates CandidateSource, wx WeatherSource, loc LocationSource, log *slog.Logger, seed int64, now func() time.Time) *Engine {
	return &Engine{
		candidates: candidates,
		weather:    wx,
		location:   loc,
		dist:       geo.NewDistanceCache(),
		weights:    scoring.DefaultWeights(),
		rng:        rand.New(rand.NewSource(seed)),
		now:        now,
		log:        log,
	}
}

// Generate produces up to three plans for the request. Steps run in strict
// sequence: location, weather, candidate acquisition, itinerary
// construction. A canceled context returns ctx.Err with no plans; an
// exhausted candidate search returns an empty list and no error.
func (e *Engine) Generate(ctx context.Context, req Request) ([]Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	center := e.resolveCenter(ctx, req)

	sig, err := e.weather.Fetch(ctx, center.Lat, center.Lon)
	if err != nil {
		e.log.Warn("weather signals unavailable", "err", err)
		sig = weather.Signal{}
	}

	candidates, radiusM, err := e.selectCandidates(ctx, center, req)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		e.log.Info("no candidates after all radius attempts", "center", center)
		return []Plan{}, nil
	}

	ranked := e.rank(candidates, center, req, sig, radiusM)
	anchors := e.sampleAnchors(ranked)

	return e.diversify(ctx, req, center, sig, ranked, anchors), nil
}

// resolveCenter prefers an explicit request center, then the resolver, then
// the default city center.
func (e *Engine) resolveCenter(ctx context.Context, req Request) geo.Point {
	if req.Center != nil {
		return *req.Center
	}

	fix, err := e.location.Resolve(ctx, location.Options{
		Timeout:      locationTimeout,
		UseCache:     true,
		HighAccuracy: true,
	})
	if err != nil {
		e.log.Warn("location resolution failed, using default center", "err", err)
		return defaultCenter
	}
	return geo.Point{Lat: fix.Lat, Lon: fix.Lon}
}

// selectCandidates walks the relaxation schedule left to right and returns
// the first non-empty filtered set, or the last attempt's result. The radius
// of the accepted attempt is returned for score normalization.
func (e *Engine) selectCandidates(ctx context.Context, center geo.Point, req Request) ([]poi.POI, int, error) {
	attempts := SearchAttempts(req.DurationMin, req.Transport)
	allowed := poi.AllCategories()

	var selected []poi.POI
	radiusM := attempts[len(attempts)-1].RadiusM

	for _, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		pois, err := e.candidates.FetchAround(ctx, center, allowed, attempt.RadiusM, perCategoryLimit)
		if err != nil {
			e.log.Warn("around-point query failed, trying city area", "radiusM", attempt.RadiusM, "err", err)
			pois, err = e.candidates.FetchInCity(ctx, center, allowed, perCategoryLimit)
			if err != nil {
				e.log.Warn("city area query failed", "err", err)
				pois = nil
			}
		}

		filtered := filterCandidates(pois, attempt.RequireOpen)
		selected = filtered
		radiusM = attempt.RadiusM
		if len(filtered) > 0 {
			break
		}
	}

	return selected, radiusM, nil
}

func filterCandidates(pois []poi.POI, requireOpen bool) []poi.POI {
	wanted := make(map[poi.Category]bool, len(wantedCategories))
	for _, c := range wantedCategories {
		wanted[c] = true
	}

	var out []poi.POI
	for _, p := range pois {
		if requireOpen && p.OpenStatus == poi.OpenStatusClosed {
			continue
		}
		if !wanted[p.Category] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// rank orders candidates by descending score with a stable tie-breaker.
func (e *Engine) rank(candidates []poi.POI, center geo.Point, req Request, sig weather.Signal, radiusM int) []poi.POI {
	sctx := scoring.Context{
		WithWho:       req.WithWho,
		Weather:       sig,
		Hour:          e.now().Hour(),
		MaxDistanceKm: float64(radiusM) / 1000,
	}
	if req.UserPrefs != nil {
		sctx.Activity = req.UserPrefs.Activity
		sctx.Accessibility = req.UserPrefs.Accessibility
	}

	type scored struct {
		p   poi.POI
		s   float64
		tie string
	}
	out := make([]scored, len(candidates))
	for i, p := range candidates {
		d := e.dist.DistanceKm(center, point(p))
		out[i] = scored{p: p, s: scoring.Score(p, d, sctx, e.weights), tie: scoring.TieBreaker(p)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].s != out[j].s {
			return out[i].s > out[j].s
		}
		return out[i].tie < out[j].tie
	})

	ranked := make([]poi.POI, len(out))
	for i, s := range out {
		ranked[i] = s.p
	}
	return ranked
}

// sampleAnchors draws up to 5 anchors without replacement from the top of
// the ranking.
func (e *Engine) sampleAnchors(ranked []poi.POI) []geo.Point {
	pool := ranked
	if len(pool) > anchorPoolSize {
		pool = pool[:anchorPoolSize]
	}

	e.rngMu.Lock()
	idx := e.rng.Perm(len(pool))
	e.rngMu.Unlock()
	n := anchorAttempts
	if n > len(idx) {
		n = len(idx)
	}

	anchors := make([]geo.Point, 0, n)
	for _, i := range idx[:n] {
		anchors = append(anchors, point(pool[i]))
	}
	return anchors
}

// km display factor per mode, applied to travel minutes.
func kmPerTravelMinute(m Mode) float64 {
	switch m {
	case ModeBike:
		return 0.24
	case ModeDriving:
		return 0.3
	default:
		return 0.08
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
