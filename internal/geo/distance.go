// internal/geo/distance.go
package geo

import (
	"fmt"
	"math"
)

const EarthRadiusKm = 6371.0

const (
	DefaultAverageSpeedKmh = 20.0
	DefaultPrepMinutes     = 10
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180 &&
		!math.IsNaN(c.Latitude) && !math.IsNaN(c.Longitude)
}

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b Coordinates) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h just outside [0,1] for identical or antipodal points
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Policy turns a distance into a delivery ETA. The result is a display
// heuristic, not a delivery promise.
type Policy struct {
	AverageSpeedKmh float64
	PrepMinutes     int
}

func DefaultPolicy() Policy {
	return Policy{AverageSpeedKmh: DefaultAverageSpeedKmh, PrepMinutes: DefaultPrepMinutes}
}

func (p Policy) ETA(distanceKm float64) int {
	speed := p.AverageSpeedKmh
	if speed <= 0 {
		speed = DefaultAverageSpeedKmh
	}
	return int(math.Floor(distanceKm/speed*60)) + p.PrepMinutes
}

// Estimate is either a known distance/ETA pair or unknown. Unknown never
// collapses to zero.
type Estimate struct {
	Known      bool
	DistanceKm float64
	ETAMinutes int
}

func Unknown() Estimate {
	return Estimate{}
}

// Estimate returns an unknown estimate when either end has no coordinates.
func (p Policy) Estimate(from, to *Coordinates) Estimate {
	if from == nil || to == nil {
		return Unknown()
	}
	d := Haversine(*from, *to)
	return Estimate{Known: true, DistanceKm: d, ETAMinutes: p.ETA(d)}
}

// Less orders known estimates by distance and puts unknown ones last.
func (e Estimate) Less(o Estimate) bool {
	if e.Known != o.Known {
		return e.Known
	}
	if !e.Known {
		return false
	}
	return e.DistanceKm < o.DistanceKm
}

func (e Estimate) DistanceText() string {
	if !e.Known {
		return ""
	}
	if e.DistanceKm < 1 {
		return fmt.Sprintf("%d m", int(math.Round(e.DistanceKm*1000)))
	}
	return fmt.Sprintf("%.1f km", e.DistanceKm)
}

func (e Estimate) ETAText() string {
	if !e.Known {
		return ""
	}
	return fmt.Sprintf("~%d min", e.ETAMinutes)
}
