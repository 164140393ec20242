// Package geolocation converts observatory positions from geodetic
// coordinates to geocentric cartesian coordinates.
package geolocation

import "math"

// WGS84 reference ellipsoid radii in meters.
const (
	equatorialRadius = 6378137.0
	polarRadius      = 6356752.3
)

// Geolocation returns the cartesian (X, Y, Z) coordinates in meters
// relative to the center of the Earth for a position given as geodetic
// longitude and latitude in decimal degrees and elevation above sea
// level in meters.
//
// The computed position is only accurate to a few kilometers, which is
// acceptable for identifying an observatory site. Observatory positions
// can be found in the Astronomical Almanac Online, e.g.
//
//	Geolocation(-155.470000, 19.821667, 4198.0)
//
// yields approximately (-5464386, -2493720, 2150558) for the JCMT,
// whose actual location is (-5461061, -2491394, 2149258).
func Geolocation(longitude, latitude, elevation float64) (x, y, z float64) {
	a := equatorialRadius
	b := polarRadius

	cos2oe := (b / a) * (b / a)
	sin2oe := (a + b) * (a - b) / (a * a)

	theta := longitude * math.Pi / 180.0
	phi := latitude * math.Pi / 180.0

	sinPhi := math.Sin(phi)
	n := a / math.Sqrt(1.0-sin2oe*sinPhi*sinPhi)
	h := elevation

	x = (n + h) * math.Cos(theta) * math.Cos(phi)
	y = (n + h) * math.Sin(theta) * math.Cos(phi)
	z = (cos2oe*n + h) * sinPhi
	return x, y, z
}
