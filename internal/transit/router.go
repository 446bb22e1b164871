// Package transit plans transit routes between two coordinates. A trip
// planner service (OpenTripPlanner) is the primary path; when it is not
// configured or fails, a heuristic synthesizer produces a best-effort
// walk-ride-walk route that cannot itself fail.
package transit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/neexbeast/cityplan/internal/geo"
)

// LegKind classifies a route leg.
type LegKind string

const (
	LegFoot  LegKind = "foot"
	LegBus   LegKind = "bus"
	LegMetro LegKind = "metro"
)

// Leg is one segment of a transit route.
type Leg struct {
	Kind        LegKind     `json:"kind"`
	From        geo.Point   `json:"from"`
	To          geo.Point   `json:"to"`
	Shape       []geo.Point `json:"shape,omitempty"`
	BoardName   string      `json:"boardName,omitempty"`
	AlightName  string      `json:"alightName,omitempty"`
	DurationSec int         `json:"duration,omitempty"`
	DistanceM   float64     `json:"distance,omitempty"`
	RouteName   string      `json:"routeName,omitempty"`
}

// RouteResult is an ordered leg list with totals. Error carries a
// descriptive message alongside a best-effort result; it is never a reason
// to discard the legs.
type RouteResult struct {
	Legs             []Leg   `json:"legs"`
	TotalDurationSec int     `json:"totalDuration"`
	TotalDistanceM   float64 `json:"totalDistance"`
	Error            string  `json:"error,omitempty"`
}

const (
	otpTimeout      = 3 * time.Second
	walkSpeedMPS    = 1.4
	shortTripM      = 500
	metroThresholdM = 5000
	accessWalkM     = 200
	busSpeedKmh     = 15
	metroSpeedKmh   = 25
)

// Router plans transit routes. An empty base URL disables the primary path
// entirely and every request goes straight to heuristic synthesis.
type Router struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// NewRouter constructs a Router against the given trip planner base URL.
func NewRouter(baseURL string, log *slog.Logger) *Router {
	return &Router{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: otpTimeout},
		log:     log,
	}
}

// PlanRoute plans a transit route from one coordinate to another. Primary
// path failures always fall through to the fallback; the returned result is
// never nil.
func (r *Router) PlanRoute(ctx context.Context, from, to geo.Point, when time.Time, maxWalkM int) RouteResult {
	if r.baseURL != "" {
		legs, err := r.planViaOTP(ctx, from, to, when, maxWalkM)
		if err != nil {
			r.log.Warn("trip planner request failed, using fallback", "err", err)
		} else if len(legs) > 0 {
			return RouteResult{Legs: legs}
		}
	}

	return Fallback(from, to)
}

type otpResponse struct {
	Error *struct {
		Msg string `json:"msg"`
	} `json:"error"`
	Plan struct {
		Itineraries []struct {
			Legs []otpLeg `json:"legs"`
		} `json:"itineraries"`
	} `json:"plan"`
}

type otpLeg struct {
	Mode string `json:"mode"`
	From struct {
		Lat  float64 `json:"lat"`
		Lon  float64 `json:"lon"`
		Name string  `json:"name"`
	} `json:"from"`
	To struct {
		Lat  float64 `json:"lat"`
		Lon  float64 `json:"lon"`
		Name string  `json:"name"`
	} `json:"to"`
	LegGeometry struct {
		Points string `json:"points"`
	} `json:"legGeometry"`
}

func (r *Router) planViaOTP(ctx context.Context, from, to geo.Point, when time.Time, maxWalkM int) ([]Leg, error) {
	q := url.Values{}
	q.Set("fromPlace", fmt.Sprintf("%f,%f", from.Lat, from.Lon))
	q.Set("toPlace", fmt.Sprintf("%f,%f", to.Lat, to.Lon))
	q.Set("mode", "TRANSIT,WALK")
	q.Set("date", when.Format("2006-01-02"))
	q.Set("time", when.Format("15:04"))
	q.Set("numItineraries", "1")
	q.Set("maxWalkDistance", fmt.Sprintf("%d", maxWalkM))

	reqURL := r.baseURL + "/otp/routers/default/plan?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building trip planner request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling trip planner: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trip planner returned status %d", resp.StatusCode)
	}

	var out otpResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding trip planner response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("trip planner error: %s", out.Error.Msg)
	}
	if len(out.Plan.Itineraries) == 0 {
		return nil, nil
	}

	var legs []Leg
	for _, ol := range out.Plan.Itineraries[0].Legs {
		leg := Leg{
			Kind:       legKind(ol.Mode),
			From:       geo.Point{Lat: ol.From.Lat, Lon: ol.From.Lon},
			To:         geo.Point{Lat: ol.To.Lat, Lon: ol.To.Lon},
			BoardName:  ol.From.Name,
			AlightName: ol.To.Name,
		}
		if ol.LegGeometry.Points != "" {
			if shape, err := decodeShape(ol.LegGeometry.Points); err == nil {
				leg.Shape = shape
			}
		}
		legs = append(legs, leg)
	}
	return legs, nil
}

func legKind(mode string) LegKind {
	switch strings.ToUpper(mode) {
	case "BUS":
		return LegBus
	case "SUBWAY", "TRAM", "RAIL":
		return LegMetro
	default:
		return LegFoot
	}
}

func decodeShape(points string) ([]geo.Point, error) {
	coords, _, err := polyline.DecodeCoords([]byte(points))
	if err != nil {
		return nil, err
	}
	shape := make([]geo.Point, len(coords))
	for i, c := range coords {
		shape[i] = geo.Point{Lat: c[0], Lon: c[1]}
	}
	return shape, nil
}

// Fallback synthesizes a route from straight-line geometry. Under 500 m it
// is a single walking leg; otherwise a fixed 200 m walk on each end brackets
// one ride, metro for trips over 5 km, bus below.
func Fallback(from, to geo.Point) RouteResult {
	distanceM := geo.DistanceKm(from, to) * 1000

	if distanceM < shortTripM {
		leg := Leg{
			Kind:        LegFoot,
			From:        from,
			To:          to,
			DurationSec: int(math.Round(distanceM / walkSpeedMPS)),
			DistanceM:   distanceM,
		}
		return RouteResult{
			Legs:             []Leg{leg},
			TotalDurationSec: leg.DurationSec,
			TotalDistanceM:   distanceM,
		}
	}

	mid := geo.Point{Lat: (from.Lat + to.Lat) / 2, Lon: (from.Lon + to.Lon) / 2}
	board := geo.Point{
		Lat: from.Lat + (mid.Lat-from.Lat)*0.3,
		Lon: from.Lon + (mid.Lon-from.Lon)*0.3,
	}
	alight := geo.Point{
		Lat: to.Lat + (mid.Lat-to.Lat)*0.3,
		Lon: to.Lon + (mid.Lon-to.Lon)*0.3,
	}

	rideKind := LegBus
	routeName := "Bus Route"
	speedKmh := float64(busSpeedKmh)
	if distanceM > metroThresholdM {
		rideKind = LegMetro
		routeName = "Metro Line"
		speedKmh = metroSpeedKmh
	}

	walkSec := int(math.Round(accessWalkM / walkSpeedMPS))
	rideDistanceM := distanceM - 2*accessWalkM
	rideSec := int(math.Round(rideDistanceM / 1000 * 3600 / speedKmh))

	legs := []Leg{
		{
			Kind:        LegFoot,
			From:        from,
			To:          board,
			DurationSec: walkSec,
			DistanceM:   accessWalkM,
			AlightName:  "Transit Stop",
		},
		{
			Kind:        rideKind,
			From:        board,
			To:          alight,
			DurationSec: rideSec,
			DistanceM:   rideDistanceM,
			BoardName:   "Transit Stop",
			AlightName:  "Transit Stop",
			RouteName:   routeName,
		},
		{
			Kind:        LegFoot,
			From:        alight,
			To:          to,
			DurationSec: walkSec,
			DistanceM:   accessWalkM,
			BoardName:   "Transit Stop",
		},
	}

	return RouteResult{
		Legs:             legs,
		TotalDurationSec: 2*walkSec + rideSec,
		TotalDistanceM:   distanceM,
	}
}
