package geo

import "math"

// EarthRadiusKM is the mean Earth radius used for great-circle distances.
const EarthRadiusKM = 6371.0

// Haversine returns the great-circle distance in km between two points given
// in degrees, rounded to one decimal.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := toRadians(lat1)
	rlat2 := toRadians(lat2)
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Pow(math.Sin(dLat/2), 2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Pow(math.Sin(dLon/2), 2)
	d := 2 * EarthRadiusKM * math.Asin(math.Sqrt(a))
	return math.Round(d*10) / 10
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
