package geo

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const EarthRadiusMeters = 6371000.0

// DistanceMeters returns the haversine great-circle distance between two
// points on a sphere of radius EarthRadiusMeters. The result is exactly
// symmetric in its arguments and exactly zero for identical points.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRad(lat1)
	phi2 := toRad(lat2)
	sinDLat := math.Sin((phi2 - phi1) / 2)
	sinDLon := math.Sin(toRad(lon2-lon1) / 2)

	a := sinDLat*sinDLat + (math.Cos(phi1)*math.Cos(phi2))*(sinDLon*sinDLon)
	if a > 1 {
		a = 1
	}
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Bearing returns the initial bearing from point 1 to point 2 in radians,
// clockwise from north, normalized to [0, 2π).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)

	dLon := p2.Lng.Radians() - p1.Lng.Radians()
	y := math.Sin(dLon) * math.Cos(p2.Lat.Radians())
	x := math.Cos(p1.Lat.Radians())*math.Sin(p2.Lat.Radians()) -
		math.Sin(p1.Lat.Radians())*math.Cos(p2.Lat.Radians())*math.Cos(dLon)
	return math.Mod(math.Atan2(y, x)+2*math.Pi, 2*math.Pi)
}

// Destination moves distance meters from (lat, lon) along bearing (radians).
func Destination(lat, lon, bearing, distance float64) (float64, float64) {
	p := s2.LatLngFromDegrees(lat, lon)
	delta := distance / EarthRadiusMeters
	latRad := p.Lat.Radians()

	lat2 := math.Asin(math.Sin(latRad)*math.Cos(delta) +
		math.Cos(latRad)*math.Sin(delta)*math.Cos(bearing))
	lon2 := p.Lng.Radians() + math.Atan2(
		math.Sin(bearing)*math.Sin(delta)*math.Cos(latRad),
		math.Cos(delta)-math.Sin(latRad)*math.Sin(lat2))

	out := s2.LatLng{Lat: s1.Angle(lat2), Lng: s1.Angle(lon2)}.Normalized()
	return out.Lat.Degrees(), out.Lng.Degrees()
}

// MoveToward returns the point reached after travelling step meters from
// (lat, lon) toward (targetLat, targetLon) along the great circle. The
// target is returned when it is closer than step.
func MoveToward(lat, lon, targetLat, targetLon, step float64) (float64, float64) {
	d := DistanceMeters(lat, lon, targetLat, targetLon)
	if d <= step || d == 0 {
		return targetLat, targetLon
	}
	a := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	b := s2.PointFromLatLng(s2.LatLngFromDegrees(targetLat, targetLon))
	ll := s2.LatLngFromPoint(s2.Interpolate(step/d, a, b))
	return ll.Lat.Degrees(), ll.Lng.Degrees()
}

// Valid reports whether lat/lon are finite and within WGS84 bounds.
func Valid(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
