package plan

// Speed classes used to derive the base search radius, in km/h.
var radiusSpeedKmh = map[Transport]float64{
	TransportWalk:   4.5,
	TransportBike:   15,
	TransportPublic: 20,
	TransportCar:    35,
}

// Per-mode clamps on the derived radius, in km.
var radiusBoundsKm = map[Transport][2]float64{
	TransportWalk:   {1, 5},
	TransportBike:   {1, 10},
	TransportPublic: {1, 15},
	TransportCar:    {2, 20},
}

// outerRadiusCapM is the fixed widest search radius in meters, used as the
// final relaxation attempt regardless of transport.
const outerRadiusCapM = 12000

// SearchRadiusKm derives a base search radius from the outing duration and
// transport speed class. Roughly half the round-trip distance with a 0.6
// margin, clamped to mode-specific bounds.
func SearchRadiusKm(durationMin int, transport Transport) float64 {
	speed, ok := radiusSpeedKmh[transport]
	if !ok {
		speed = radiusSpeedKmh[TransportWalk]
		transport = TransportWalk
	}

	mins := durationMin
	if mins < 15 {
		mins = 15
	}
	km := speed * float64(mins) / 60 * 0.6

	bounds := radiusBoundsKm[transport]
	if km < bounds[0] {
		return bounds[0]
	}
	if km > bounds[1] {
		return bounds[1]
	}
	return km
}

// SearchAttempt is one step of the progressive relaxation strategy.
type SearchAttempt struct {
	RadiusM     int
	RequireOpen bool
}

// SearchAttempts returns the ordered relaxation schedule: 1x, 1.5x, and 2x
// the base radius, then the fixed outer cap. Only the first two attempts
// insist on not-closed candidates.
func SearchAttempts(durationMin int, transport Transport) []SearchAttempt {
	base := int(SearchRadiusKm(durationMin, transport)*1000 + 0.5)
	return []SearchAttempt{
		{RadiusM: base, RequireOpen: true},
		{RadiusM: int(float64(base)*1.5 + 0.5), RequireOpen: true},
		{RadiusM: base * 2, RequireOpen: false},
		{RadiusM: outerRadiusCapM, RequireOpen: false},
	}
}
