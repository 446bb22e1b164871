package geo_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/cityplan/internal/geo"
)

func TestHaversineKm(t *testing.T) {
	// Bucharest (44.4268, 26.1025) to Cluj-Napoca (46.7712, 23.6236) ~ 320-330 km
	d := geo.HaversineKm(44.4268, 26.1025, 46.7712, 23.6236)
	require.Greater(t, d, 300.0)
	require.Less(t, d, 350.0)
}

func TestHaversineKm_ZeroForSamePoint(t *testing.T) {
	assert.Zero(t, geo.HaversineKm(44.4268, 26.1025, 44.4268, 26.1025))
}

func TestDistanceCache_HitSkipsRecomputation(t *testing.T) {
	c := geo.NewDistanceCache()
	a := geo.Point{Lat: 44.4268, Lon: 26.1025}
	b := geo.Point{Lat: 44.4378, Lon: 26.0969}

	first := c.DistanceKm(a, b)
	second := c.DistanceKm(a, b)
	assert.Equal(t, first, second)

	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestDistanceCache_KeysAreDirectional(t *testing.T) {
	// a→b and b→a are distinct entries even though the distances are equal.
	c := geo.NewDistanceCache()
	a := geo.Point{Lat: 44.4268, Lon: 26.1025}
	b := geo.Point{Lat: 44.4378, Lon: 26.0969}

	dab := c.DistanceKm(a, b)
	dba := c.DistanceKm(b, a)
	assert.InDelta(t, dab, dba, 1e-9)

	_, misses := c.Stats()
	assert.Equal(t, 2, misses, "reverse direction must be a separate cache entry")
	assert.Equal(t, 2, c.Len())
}

func TestDistanceCache_EvictsOldestInserted(t *testing.T) {
	c := geo.NewDistanceCache()
	origin := geo.Point{Lat: 0, Lon: 0}

	points := make([]geo.Point, 0, 1001)
	for i := 0; i < 1001; i++ {
		points = append(points, geo.Point{Lat: float64(i) * 0.001, Lon: 1})
	}
	for _, p := range points {
		c.DistanceKm(origin, p)
	}
	assert.Equal(t, 1000, c.Len())

	// The first-inserted entry was evicted, so asking again is a miss.
	_, missesBefore := c.Stats()
	c.DistanceKm(origin, points[0])
	_, missesAfter := c.Stats()
	assert.Equal(t, missesBefore+1, missesAfter)
}

func TestDistanceCache_Clear(t *testing.T) {
	c := geo.NewDistanceCache()
	c.DistanceKm(geo.Point{Lat: 1, Lon: 1}, geo.Point{Lat: 2, Lon: 2})
	require.Equal(t, 1, c.Len())
	c.Clear()
	assert.Zero(t, c.Len())
}

func TestDistanceCache_RoundsKeysToFiveDecimals(t *testing.T) {
	c := geo.NewDistanceCache()
	a := geo.Point{Lat: 44.426800001, Lon: 26.102500001}
	b := geo.Point{Lat: 44.4378, Lon: 26.0969}

	c.DistanceKm(a, b)
	c.DistanceKm(geo.Point{Lat: 44.426800002, Lon: 26.102500002}, b)

	hits, _ := c.Stats()
	assert.Equal(t, 1, hits, fmt.Sprintf("sub-meter jitter should share a key, cache size %d", c.Len()))
}
