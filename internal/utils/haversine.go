package utils

import "math"

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two lat/lon points.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := radians(lat1), radians(lat2)
	h := hav(radians(lat2-lat1)) + math.Cos(phi1)*math.Cos(phi2)*hav(radians(lon2-lon1))
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(math.Min(1, h)))
}

func hav(x float64) float64 {
	s := math.Sin(x / 2)
	return s * s
}

func radians(d float64) float64 { return d * math.Pi / 180 }
