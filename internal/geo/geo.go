// Geographic primitives shared by the mission and telemetry subsystems.
package geo

import "math"

// Coordinate holds latitude and longitude in degrees.
type Coordinate struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

const (
	earthRadiusM = 6371000.0

	// MinPolygonPoints is the minimum vertex count for a polygon to be
	// usable for geofencing or broadcast.
	MinPolygonPoints = 3
	// MaxBroadcastPoints caps the coordinates included in a zone command.
	MaxBroadcastPoints = 6
)

// Distance returns the haversine distance between two coordinates in meters.
func Distance(a, b Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Long - a.Long) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}

// NearAnyVertex reports whether p lies within thresholdM meters of any
// vertex of any polygon. This is a vertex-proximity check, not
// point-in-polygon containment; polygons with fewer than MinPolygonPoints
// vertices are skipped.
func NearAnyVertex(p Coordinate, polygons [][]Coordinate, thresholdM float64) bool {
	for _, polygon := range polygons {
		if len(polygon) < MinPolygonPoints {
			continue
		}
		for _, vertex := range polygon {
			if Distance(p, vertex) <= thresholdM {
				return true
			}
		}
	}
	return false
}
