package repository

import "math"

const kmPerDegree = 111.32

// boundingBox returns the latitude/longitude window that contains every
// point within radiusKm of center.
func boundingBox(lat, lon, radiusKm float64) (minLat, maxLat, minLon, maxLon float64) {
	dLat := radiusKm / kmPerDegree
	minLat = math.Max(lat-dLat, -90)
	maxLat = math.Min(lat+dLat, 90)

	// widest longitude span is at the latitude closest to a pole
	cos := math.Cos(math.Max(math.Abs(minLat), math.Abs(maxLat)) * math.Pi / 180)
	if cos < 1e-6 {
		return minLat, maxLat, -180, 180
	}
	dLon := radiusKm / (kmPerDegree * cos)
	if dLon >= 180 {
		return minLat, maxLat, -180, 180
	}
	return minLat, maxLat, lon - dLon, lon + dLon
}

// inLonRange handles windows crossing the antimeridian.
func inLonRange(lon, minLon, maxLon float64) bool {
	if minLon < -180 {
		return lon >= minLon+360 || lon <= maxLon
	}
	if maxLon > 180 {
		return lon >= minLon || lon <= maxLon-360
	}
	return lon >= minLon && lon <= maxLon
}
