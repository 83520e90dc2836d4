package bus

import (
	"math"
	"regexp"
	"strings"
)

const (
	earthRadius = 6371000 // metres

	// AtStopRadius is how close (in metres) a bus must be to a stop to be "at" it.
	AtStopRadius = 500
)

// DefaultMapCenter is used when no bus reports a usable location (VIT-AP MH1 hostel).
var DefaultMapCenter = Location{Lat: 16.5096, Long: 80.6470}

var (
	parenthesisRegex = regexp.MustCompile(`\(.*?\)`)
	nonAlphaNumRegex = regexp.MustCompile(`[^0-9a-zA-Z ]`)
)

// Distance returns the great-circle distance in metres between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// NearestStopIndex returns the index of the stop the bus is at (within AtStopRadius),
// otherwise the index of the last stop it passed. Stops without coordinates are skipped.
func NearestStopIndex(loc *Location, route *Route) int {
	if !loc.Valid() || route == nil || len(route.Stops) == 0 {
		return 0
	}
	minDist := math.Inf(1)
	closest := 0
	for i, stop := range route.Stops {
		if !stop.HasCoordinates() {
			continue
		}
		if d := Distance(loc.Lat, loc.Long, *stop.Lat, *stop.Long); d < minDist {
			minDist = d
			closest = i
		}
	}
	if minDist < AtStopRadius || closest == 0 {
		return closest
	}
	return closest - 1
}

// CoveragePoints matches the route's coverage areas to its stops and tags each point
// passed/current/upcoming relative to currentStop. A negative currentStop leaves points untagged.
func CoveragePoints(route *Route, currentStop int) []CoveragePoint {
	points := make([]CoveragePoint, 0)
	if route == nil {
		return points
	}
	for idx, area := range route.CoverageAreas {
		normArea := normalizeName(area)
		point := CoveragePoint{Name: area, Order: idx}
		if stop, ok := matchStop(route.Stops, normArea); ok {
			point.Name, point.Lat, point.Long = stop.Name, stop.Lat, stop.Long
		}
		if currentStop >= 0 {
			switch {
			case idx < currentStop:
				point.Status = PointPassed
			case idx == currentStop:
				point.Status = PointCurrent
			default:
				point.Status = PointUpcoming
			}
		}
		points = append(points, point)
	}
	return points
}

func matchStop(stops []Stop, normArea string) (Stop, bool) {
	for _, stop := range stops {
		if normalizeName(stop.Name) == normArea {
			return stop, true
		}
	}
	for _, stop := range stops {
		if normArea != "" && strings.Contains(normalizeName(stop.Name), normArea) {
			return stop, true
		}
	}
	return Stop{}, false
}

func normalizeName(name string) string {
	s := parenthesisRegex.ReplaceAllString(name, "")
	s = nonAlphaNumRegex.ReplaceAllString(s, "")
	return strings.ToLower(strings.TrimSpace(s))
}

// MapCenter returns the location of the first bus with usable coordinates, or DefaultMapCenter.
func MapCenter(buses []Bus) Location {
	for _, b := range buses {
		if b.CurrentLocation.Valid() {
			return *b.CurrentLocation
		}
	}
	return DefaultMapCenter
}
