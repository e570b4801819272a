package geospatial

import (
	"math"
	"strings"
	"testing"
)

func square(minX, minY, maxX, maxY float64) [][][][]float64 {
	return [][][][]float64{{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}}
}

func TestFit_WideExtentIsWidthBound(t *testing.T) {
	ext := Extent{MinX: 0, MinY: 0, MaxX: 400, MaxY: 100}
	p := Fit(ext, DefaultViewport)

	if math.Abs(p.Scale-2) > 1e-9 {
		t.Fatalf("expected scale 2, got %f", p.Scale)
	}

	tests := []struct {
		x, y         float64
		wantX, wantY float64
	}{
		{0, 0, 0, 400},       // bottom-left stays below the centre line
		{400, 100, 800, 200}, // top-right is above it
		{200, 50, 400, 300},  // centre maps to viewport centre
	}
	for _, tt := range tests {
		x, y := p.Project(tt.x, tt.y)
		if math.Abs(x-tt.wantX) > 1e-6 || math.Abs(y-tt.wantY) > 1e-6 {
			t.Errorf("Project(%f, %f) = (%f, %f); want (%f, %f)", tt.x, tt.y, x, y, tt.wantX, tt.wantY)
		}
	}
}

func TestFit_TallExtentIsHeightBound(t *testing.T) {
	ext := Extent{MinX: -10, MinY: -30, MaxX: 10, MaxY: 30}
	p := Fit(ext, DefaultViewport)

	if math.Abs(p.Scale-10) > 1e-9 {
		t.Fatalf("expected scale 10, got %f", p.Scale)
	}
	x, y := p.Project(0, 30)
	if math.Abs(x-400) > 1e-6 || math.Abs(y-0) > 1e-6 {
		t.Errorf("expected top centre (400, 0), got (%f, %f)", x, y)
	}
}

func TestFit_EverythingVisibleWithPadding(t *testing.T) {
	vp := Viewport{Width: 800, Height: 600, Padding: 20}
	ext := Extent{MinX: 3.2, MinY: 41.9, MaxX: 7.1, MaxY: 51.0}
	p := Fit(ext, vp)

	corners := [][2]float64{
		{ext.MinX, ext.MinY}, {ext.MaxX, ext.MinY}, {ext.MaxX, ext.MaxY}, {ext.MinX, ext.MaxY},
	}
	for _, c := range corners {
		x, y := p.Project(c[0], c[1])
		if x < vp.Padding-1e-6 || x > vp.Width-vp.Padding+1e-6 || y < vp.Padding-1e-6 || y > vp.Height-vp.Padding+1e-6 {
			t.Errorf("corner %v projected outside padded viewport: (%f, %f)", c, x, y)
		}
	}
}

func TestFit_DegenerateExtent(t *testing.T) {
	p := Fit(Extent{MinX: 5, MinY: 5, MaxX: 5, MaxY: 5}, DefaultViewport)
	x, y := p.Project(5, 5)
	if math.Abs(x-400) > 1e-6 || math.Abs(y-300) > 1e-6 {
		t.Errorf("single point should sit at the centre, got (%f, %f)", x, y)
	}
}

func TestProjection_InvertRoundTrip(t *testing.T) {
	p := Fit(Extent{MinX: -120, MinY: 20, MaxX: -70, MaxY: 50}, DefaultViewport)
	for _, pt := range [][2]float64{{-100, 35}, {-70, 50}, {-120, 20}} {
		px, py := p.Project(pt[0], pt[1])
		x, y := p.Invert(px, py)
		if math.Abs(x-pt[0]) > 1e-9 || math.Abs(y-pt[1]) > 1e-9 {
			t.Errorf("Invert(Project(%v)) = (%f, %f)", pt, x, y)
		}
	}
}

func TestExtentOf(t *testing.T) {
	e, ok := ExtentOf(square(0, 0, 1, 1), square(-2, 3, -1, 4))
	if !ok {
		t.Fatal("expected extent")
	}
	want := Extent{MinX: -2, MinY: 0, MaxX: 1, MaxY: 4}
	if e != want {
		t.Errorf("expected %+v, got %+v", want, e)
	}

	if _, ok := ExtentOf(); ok {
		t.Error("expected no extent for empty input")
	}
}

func TestPathData(t *testing.T) {
	p := Projection{Scale: 1, TX: 0, TY: 10}
	d := p.PathData(square(0, 0, 2, 2))
	if !strings.HasPrefix(d, "M0.00,10.00L2.00,10.00") {
		t.Errorf("unexpected path prefix: %s", d)
	}
	if !strings.HasSuffix(d, "Z") {
		t.Errorf("expected closed path, got %s", d)
	}
}

func TestContainsPoint(t *testing.T) {
	withHole := [][][][]float64{{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
	}}

	tests := []struct {
		name string
		x, y float64
		want bool
	}{
		{"inside outer ring", 2, 2, true},
		{"inside hole", 5, 5, false},
		{"outside", 11, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsPoint(withHole, tt.x, tt.y); got != tt.want {
				t.Errorf("ContainsPoint(%f, %f) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}
