package helpers

import "math"

const earthRadiusKm = 6371.0

// Geofence admits coordinates within RadiusKm of the center. With Enforce off
// every location is accepted.
type Geofence struct {
	CenterLat float64
	CenterLng float64
	RadiusKm  float64
	Enforce   bool
}

func (g Geofence) Allows(lat, lng float64) bool {
	if !g.Enforce {
		return true
	}
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return HaversineKm(g.CenterLat, g.CenterLng, lat, lng) <= g.RadiusKm
}

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
