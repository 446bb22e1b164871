package poi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/cityplan/internal/geo"
)

const (
	requestTimeout  = 3 * time.Second
	retriesPerURL   = 3
	firstRetryDelay = 150 * time.Millisecond
	nextRetryDelay  = 300 * time.Millisecond
)

// Public Overpass mirrors tried in order.
var defaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://overpass.openstreetmap.ru/api/interpreter",
}

// tagFilters maps each category to its Overpass tag selectors. A category may
// match more than one selector.
var tagFilters = map[Category][]string{
	CategoryCafe:           {`amenity="cafe"`},
	CategoryRestaurant:     {`amenity="restaurant"`},
	CategoryFastFood:       {`amenity="fast_food"`},
	CategoryTeaRoom:        {`amenity="tearoom"`, `amenity="tea_room"`},
	CategoryBar:            {`amenity="bar"`},
	CategoryPub:            {`amenity="pub"`},
	CategoryCinema:         {`amenity="cinema"`},
	CategoryLibrary:        {`amenity="library"`},
	CategoryMuseum:         {`tourism="museum"`},
	CategoryGallery:        {`tourism="gallery"`},
	CategoryZoo:            {`tourism="zoo"`},
	CategoryAquarium:       {`tourism="aquarium"`},
	CategoryAttraction:     {`tourism="attraction"`},
	CategoryFitnessCentre:  {`leisure="fitness_centre"`},
	CategorySportsCentre:   {`leisure="sports_centre"`},
	CategoryBowlingAlley:   {`leisure="bowling_alley"`},
	CategoryEscapeGame:     {`leisure="escape_game"`},
	CategorySwimmingPool:   {`leisure="swimming_pool"`},
	CategoryClimbingIndoor: {`leisure="climbing"`, `sport="climbing"`},
	CategoryArcade:         {`leisure="amusement_arcade"`, `amenity="arcade"`},
	CategoryKaraoke:        {`amenity="karaoke"`},
	CategorySpa:            {`leisure="spa"`, `amenity="spa"`},
	CategoryPark:           {`leisure="park"`},
}

// Client queries an Overpass-compatible POI service.
type Client struct {
	endpoints []string
	client    *http.Client
	log       *slog.Logger
	now       func() time.Time
}

// NewClient constructs a Client against the public Overpass mirrors. If
// overrideURL is non-empty it replaces the mirror list entirely.
func NewClient(overrideURL string, log *slog.Logger) *Client {
	endpoints := defaultEndpoints
	if overrideURL != "" {
		endpoints = []string{overrideURL}
	}
	return &Client{
		endpoints: endpoints,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log,
		now:       time.Now,
	}
}

// NewClientWithClock constructs a Client with a fixed clock (for tests).
func NewClientWithClock(overrideURL string, log *slog.Logger, now func() time.Time) *Client {
	c := NewClient(overrideURL, log)
	c.now = now
	return c
}

// call posts one Overpass QL body, walking the mirror list with bounded
// retries and short backoff.
func (c *Client) call(ctx context.Context, body string) (*overpassResponse, error) {
	var lastErr error
	for _, endpoint := range c.endpoints {
		for attempt := 0; attempt < retriesPerURL; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			resp, err := c.post(ctx, endpoint, body)
			if err == nil {
				return resp, nil
			}
			lastErr = err

			delay := firstRetryDelay
			if attempt > 0 {
				delay = nextRetryDelay
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("overpass: no endpoints configured")
	}
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, endpoint, body string) (*overpassResponse, error) {
	rctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "text/plain;charset=UTF-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("POST %s returned status %d", endpoint, resp.StatusCode)
	}

	var out overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response from %s: %w", endpoint, err)
	}
	return &out, nil
}

type bbox struct {
	s, w, n, e float64
}

func bboxFromCenter(center geo.Point, radiusM int) bbox {
	dLat := float64(radiusM) / 111320
	dLon := float64(radiusM) / (111320 * math.Cos(center.Lat*math.Pi/180))
	return bbox{s: center.Lat - dLat, w: center.Lon - dLon, n: center.Lat + dLat, e: center.Lon + dLon}
}

func (b bbox) String() string {
	return fmt.Sprintf("%f,%f,%f,%f", b.s, b.w, b.n, b.e)
}

// FetchAround returns deduplicated POIs of the given categories within
// radiusM of center. Individual category query failures are skipped; the call
// fails only when every category fails.
func (c *Client) FetchAround(ctx context.Context, center geo.Point, cats []Category, radiusM, limitPerCat int) ([]POI, error) {
	bb := bboxFromCenter(center, radiusM)

	bodies := make(map[Category]string, len(cats))
	for _, cat := range cats {
		var sb strings.Builder
		for _, filter := range tagFilters[cat] {
			fmt.Fprintf(&sb, "nwr[%s](%s);", filter, bb)
		}
		bodies[cat] = fmt.Sprintf("[out:json][timeout:20];(%s);out center %d;", sb.String(), limitPerCat)
	}

	return c.fetchCategories(ctx, bodies)
}

// FetchInCity returns POIs of the given categories inside the administrative
// area (admin_level 8 or 9) containing center.
func (c *Client) FetchInCity(ctx context.Context, center geo.Point, cats []Category, limitPerCat int) ([]POI, error) {
	bodies := make(map[Category]string, len(cats))
	for _, cat := range cats {
		var sb strings.Builder
		for _, filter := range tagFilters[cat] {
			fmt.Fprintf(&sb, "nwr[%s](area.city);", filter)
		}
		bodies[cat] = fmt.Sprintf(
			"[out:json][timeout:25];is_in(%f,%f)->.a;area.a[boundary=\"administrative\"][admin_level~\"^(8|9)$\"]->.city;(%s);out center %d;",
			center.Lat, center.Lon, sb.String(), limitPerCat)
	}

	return c.fetchCategories(ctx, bodies)
}

// fetchCategories runs one query per category in parallel, collecting parsed
// POIs and swallowing per-category failures.
func (c *Client) fetchCategories(ctx context.Context, bodies map[Category]string) ([]POI, error) {
	now := c.now()

	var mu sync.Mutex
	var all []POI
	failures := 0

	g, gCtx := errgroup.WithContext(ctx)
	for cat, body := range bodies {
		g.Go(func() error {
			resp, err := c.call(gCtx, body)
			if err != nil {
				c.log.Warn("poi category query failed", "category", cat, "err", err)
				mu.Lock()
				failures++
				mu.Unlock()
				return nil
			}
			parsed := parseElements(resp.Elements, now)
			mu.Lock()
			all = append(all, parsed...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching poi categories: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failures == len(bodies) && len(bodies) > 0 {
		return nil, fmt.Errorf("all %d poi category queries failed", failures)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})

	seen := make(map[string]bool, len(all))
	deduped := all[:0]
	for _, p := range all {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		deduped = append(deduped, p)
	}
	return deduped, nil
}

// FetchTransitStops discovers bus stops and metro stations/entrances within
// radiusM of center, deduplicated by element id. Per-mode failures are
// skipped.
func (c *Client) FetchTransitStops(ctx context.Context, center geo.Point, radiusM, limitPerMode int) ([]TransitStop, error) {
	bb := bboxFromCenter(center, radiusM)
	queries := []struct {
		mode string
		q    string
	}{
		{mode: "bus", q: fmt.Sprintf(`nwr[highway="bus_stop"](%s);`, bb)},
		{mode: "metro", q: fmt.Sprintf(`nwr[railway="station"][station="subway"](%s);nwr[railway="subway_entrance"](%s);`, bb, bb)},
	}

	var out []TransitStop
	for _, query := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body := fmt.Sprintf("[out:json][timeout:20];(%s);out center %d;", query.q, limitPerMode)
		resp, err := c.call(ctx, body)
		if err != nil {
			c.log.Warn("transit stop query failed", "mode", query.mode, "err", err)
			continue
		}
		for _, el := range resp.Elements {
			var lat, lon float64
			switch {
			case el.Type == "node" && el.Lat != nil && el.Lon != nil:
				lat, lon = *el.Lat, *el.Lon
			case el.Center != nil:
				lat, lon = el.Center.Lat, el.Center.Lon
			default:
				continue
			}
			name := el.Tags["name"]
			if name == "" {
				if query.mode == "bus" {
					name = "Bus stop"
				} else {
					name = "Metro station"
				}
			}
			out = append(out, TransitStop{
				ID:   fmt.Sprintf("%d", el.ID),
				Name: name,
				Lat:  lat,
				Lon:  lon,
				Mode: query.mode,
			})
		}
	}

	seen := make(map[string]bool, len(out))
	deduped := out[:0]
	for _, s := range out {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		deduped = append(deduped, s)
	}
	return deduped, nil
}
