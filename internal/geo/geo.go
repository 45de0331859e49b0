// Package geo provides great-circle distance math for the map features.
package geo

import "math"

// EarthRadiusKm is the sphere radius used for haversine distances.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Distance returns the haversine great-circle distance between two points
// in kilometers.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := 0.5 - math.Cos(dLat)/2 + math.Cos(lat1)*math.Cos(lat2)*(1-math.Cos(dLon))/2
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// Nearest scans candidates and returns the index of the one closest to
// from, along with its distance in kilometers. The comparison is a strict
// less-than, so ties keep the earliest-scanned candidate. With no
// candidates the index is -1.
func Nearest(from Point, candidates []Point) (int, float64) {
	nearest := -1
	minDist := math.Inf(1)
	for i, c := range candidates {
		if d := Distance(from, c); d < minDist {
			minDist = d
			nearest = i
		}
	}
	return nearest, minDist
}
