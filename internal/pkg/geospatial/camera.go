package geospatial

import "math"

const (
	tileSize     = 256.0
	maxMercator  = 85.05112878
	minimumZoom  = 0.0
	defaultZoom  = 17
	worldDegrees = 360.0
)

// FitZoom returns the largest whole zoom level at which the box fits into a
// width×height pixel viewport after padding, on a Web Mercator tile pyramid.
// The result never exceeds maxZoom; a degenerate box (a single point)
// therefore lands exactly on maxZoom.
func FitZoom(minLat, minLon, maxLat, maxLon, width, height, padding float64, maxZoom int) float64 {
	if maxZoom <= 0 {
		maxZoom = defaultZoom
	}
	innerW := math.Max(width-2*padding, 1)
	innerH := math.Max(height-2*padding, 1)

	zoom := float64(maxZoom)

	if lonFrac := (maxLon - minLon) / worldDegrees; lonFrac > 0 {
		zoom = math.Min(zoom, math.Log2(innerW/(tileSize*lonFrac)))
	}
	if latFrac := math.Abs(mercatorY(maxLat) - mercatorY(minLat)); latFrac > 0 {
		zoom = math.Min(zoom, math.Log2(innerH/(tileSize*latFrac)))
	}

	return math.Max(minimumZoom, math.Floor(zoom))
}

// mercatorY returns the normalised [0,1] Web Mercator Y of a latitude.
func mercatorY(lat float64) float64 {
	lat = math.Max(-maxMercator, math.Min(maxMercator, lat))
	rad := toRad(lat)
	return (1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2
}
