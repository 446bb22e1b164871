package geo

import (
	"fmt"
	"math"
	"sync"
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between two
// coordinates.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// DistanceKm is HaversineKm over Points.
func DistanceKm(a, b Point) float64 {
	return HaversineKm(a.Lat, a.Lon, b.Lat, b.Lon)
}

func toRad(deg float64) float64 {
	return deg * (math.Pi / 180)
}

const maxCacheEntries = 1000

// DistanceCache memoizes point-to-point distances. Keys round both endpoints
// to 5 decimal places (~1 m precision) and are directional: a→b and b→a are
// stored as distinct entries. Once the cache exceeds maxCacheEntries the
// oldest-inserted entry is evicted.
type DistanceCache struct {
	mu      sync.Mutex
	entries map[string]float64
	order   []string
	hits    int
	misses  int
}

// NewDistanceCache constructs an empty DistanceCache.
func NewDistanceCache() *DistanceCache {
	return &DistanceCache{entries: make(map[string]float64)}
}

// DistanceKm returns the cached distance between a and b, computing and
// storing it on a miss.
func (c *DistanceCache) DistanceKm(a, b Point) float64 {
	key := cacheKey(a, b)

	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.entries[key]; ok {
		c.hits++
		return d
	}

	d := DistanceKm(a, b)
	c.misses++
	c.entries[key] = d
	c.order = append(c.order, key)

	if len(c.entries) > maxCacheEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	return d
}

// Len returns the number of cached entries.
func (c *DistanceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counters.
func (c *DistanceCache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Clear drops all cached entries.
func (c *DistanceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]float64)
	c.order = nil
}

func cacheKey(a, b Point) string {
	return fmt.Sprintf("%.5f,%.5f-%.5f,%.5f", a.Lat, a.Lon, b.Lat, b.Lon)
}
