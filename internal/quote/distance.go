package quote

import (
	"fmt"
	"math"

	"github.com/taipay/cashme/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// ComputeDistanceKm returns the great-circle distance between two points
// using the haversine formula.
func ComputeDistanceKm(userLat, userLon, pointLat, pointLon float64) (float64, error) {
	if err := validateCoordinate(userLat, userLon); err != nil {
		return 0, err
	}
	if err := validateCoordinate(pointLat, pointLon); err != nil {
		return 0, err
	}

	dLat := toRadians(pointLat - userLat)
	dLon := toRadians(pointLon - userLon)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(userLat))*math.Cos(toRadians(pointLat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push a just past 1 for near-antipodal points
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c, nil
}

// ValidateLocation reports whether loc is a finite, in-range WGS84 point.
func ValidateLocation(loc models.Location) error {
	return validateCoordinate(loc.Latitude, loc.Longitude)
}

func validateCoordinate(lat, lon float64) error {
	if !isFinite(lat) || !isFinite(lon) {
		return fmt.Errorf("%w: (%v, %v) is not finite", ErrInvalidCoordinate, lat, lon)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, lon)
	}
	return nil
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
