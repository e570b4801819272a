package geospatial

import (
	"math"
	"strconv"
	"strings"
)

// Viewport is the fixed drawing area boundary maps are fitted into.
type Viewport struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Padding float64 `json:"padding"`
}

// DefaultViewport is an 800×600 surface without padding.
var DefaultViewport = Viewport{Width: 800, Height: 600}

// Extent is an axis-aligned box in source coordinate space.
type Extent struct {
	MinX, MinY, MaxX, MaxY float64
}

// ExtentOf returns the extent of a set of multipolygons. ok is false when
// there are no coordinates at all.
func ExtentOf(shapes ...[][][][]float64) (e Extent, ok bool) {
	for _, mp := range shapes {
		for _, poly := range mp {
			for _, ring := range poly {
				for _, c := range ring {
					if len(c) < 2 {
						continue
					}
					x, y := c[0], c[1]
					if !ok {
						e = Extent{MinX: x, MinY: y, MaxX: x, MaxY: y}
						ok = true
						continue
					}
					e.MinX = math.Min(e.MinX, x)
					e.MinY = math.Min(e.MinY, y)
					e.MaxX = math.Max(e.MaxX, x)
					e.MaxY = math.Max(e.MaxY, y)
				}
			}
		}
	}
	return e, ok
}

// Projection is a uniform-scale affine transform from source space into a
// viewport with the Y axis reflected:
//
//	x' = Scale*x + TX
//	y' = TY - Scale*y
type Projection struct {
	Scale    float64  `json:"scale"`
	TX       float64  `json:"tx"`
	TY       float64  `json:"ty"`
	Viewport Viewport `json:"viewport"`
}

// Fit computes the projection that centres ext in vp at the largest scale
// that keeps the whole extent visible without distorting its aspect ratio.
func Fit(ext Extent, vp Viewport) Projection {
	innerW := vp.Width - 2*vp.Padding
	innerH := vp.Height - 2*vp.Padding
	if innerW <= 0 || innerH <= 0 {
		innerW, innerH = vp.Width, vp.Height
	}

	dx := ext.MaxX - ext.MinX
	dy := ext.MaxY - ext.MinY

	var scale float64
	switch {
	case dx > 0 && dy > 0:
		scale = math.Min(innerW/dx, innerH/dy)
	case dx > 0:
		scale = innerW / dx
	case dy > 0:
		scale = innerH / dy
	default:
		scale = 1
	}

	cx := (ext.MinX + ext.MaxX) / 2
	cy := (ext.MinY + ext.MaxY) / 2

	return Projection{
		Scale:    scale,
		TX:       vp.Width/2 - scale*cx,
		TY:       vp.Height/2 + scale*cy,
		Viewport: vp,
	}
}

// Project maps a source coordinate into the viewport.
func (p Projection) Project(x, y float64) (float64, float64) {
	return p.Scale*x + p.TX, p.TY - p.Scale*y
}

// Invert maps a viewport point back into source space.
func (p Projection) Invert(px, py float64) (float64, float64) {
	if p.Scale == 0 {
		return 0, 0
	}
	return (px - p.TX) / p.Scale, (p.TY - py) / p.Scale
}

// PathData renders a multipolygon as SVG path data using p.
func (p Projection) PathData(mp [][][][]float64) string {
	var b strings.Builder
	buf := make([]byte, 0, 16)
	for _, poly := range mp {
		for _, ring := range poly {
			for i, c := range ring {
				if len(c) < 2 {
					continue
				}
				x, y := p.Project(c[0], c[1])
				if i == 0 {
					b.WriteByte('M')
				} else {
					b.WriteByte('L')
				}
				buf = strconv.AppendFloat(buf[:0], x, 'f', 2, 64)
				b.Write(buf)
				b.WriteByte(',')
				buf = strconv.AppendFloat(buf[:0], y, 'f', 2, 64)
				b.Write(buf)
			}
			if len(ring) > 0 {
				b.WriteByte('Z')
			}
		}
	}
	return b.String()
}

// ContainsPoint reports whether (x, y) in source space falls inside mp,
// using the even-odd rule so holes are excluded.
func ContainsPoint(mp [][][][]float64, x, y float64) bool {
	for _, poly := range mp {
		inside := false
		for _, ring := range poly {
			n := len(ring)
			for i, j := 0, n-1; i < n; j, i = i, i+1 {
				if len(ring[i]) < 2 || len(ring[j]) < 2 {
					continue
				}
				xi, yi := ring[i][0], ring[i][1]
				xj, yj := ring[j][0], ring[j][1]
				if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
					inside = !inside
				}
			}
		}
		if inside {
			return true
		}
	}
	return false
}
