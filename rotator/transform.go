package rotator

import "math"

// equhor converts between hour-angle/declination and azimuth/altitude.
// Phi is the observer's latitude.
// Arguments are in radians.
// Algorithm from https://metacpan.org/dist/Astro-Montenbruck/source/lib/Astro/Montenbruck/CoCo.pm
func equhorRad(x, y, phi float64) (float64, float64) {
	sx, sy, sphi := math.Sin(x), math.Sin(y), math.Sin(phi)
	cx, cy, cphi := math.Cos(x), math.Cos(y), math.Cos(phi)

	sq := (sy * sphi) + (cy * cphi * cx)
	q := math.Asin(sq)

	cp := (sy - (sphi * sq)) / (cphi * math.Cos(q))
	p := math.Acos(cp)
	if sx > 0 {
		p = 2*math.Pi - p
	}
	return p, q
}

func deg2rad(x float64) float64 {
	return x * math.Pi / 180
}

func rad2deg(x float64) float64 {
	return x * 180 / math.Pi
}

// EquHorDeg converts an hour angle and declination to azimuth (from north,
// clockwise) and altitude for an observer at latitude phi. All arguments
// and results are in degrees.
func EquHorDeg(ha, dec, phi float64) (az, alt float64) {
	p, q := equhorRad(deg2rad(ha), deg2rad(dec), deg2rad(phi))
	return rad2deg(p), rad2deg(q)
}
