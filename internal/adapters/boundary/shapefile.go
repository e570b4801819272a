package boundary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	geojson "github.com/paulmach/go.geojson"

	"github.com/samirrijal/wayfarer/internal/core/domain"
)

// Natural Earth admin-1 attribute names.
var (
	isoFields  = []string{"iso_a2", "ISO_A2"}
	nameFields = []string{"name", "NAME", "name_en", "NAME_EN", "woe_name"}
)

// ShapefileProvider reads subdivisions from a Natural Earth admin-1 states
// and provinces shapefile and returns them as a GeoJSON FeatureCollection.
type ShapefileProvider struct {
	path string
}

// NewShapefileProvider creates a new ShapefileProvider.
func NewShapefileProvider(path string) *ShapefileProvider {
	return &ShapefileProvider{path: path}
}

// Fetch returns every subdivision whose ISO alpha-2 attribute matches code.
func (p *ShapefileProvider) Fetch(ctx context.Context, code string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.BoundaryLoadError{Code: code, Err: err}
	}

	if !strings.EqualFold(filepath.Ext(p.path), ".shp") {
		return nil, &domain.BoundaryLoadError{Code: code, Err: fmt.Errorf("not a .shp file: %s", p.path)}
	}
	reader, err := shp.Open(p.path)
	if err != nil {
		return nil, &domain.BoundaryLoadError{Code: code, Err: fmt.Errorf("open shapefile: %w", err)}
	}
	defer reader.Close()
	// The reader opens the attribute table lazily and drops the error.
	dbf := p.path[:len(p.path)-len("shp")] + "dbf"
	if _, err := os.Stat(dbf); err != nil {
		return nil, &domain.BoundaryLoadError{Code: code, Err: fmt.Errorf("open attribute table: %w", err)}
	}

	fields := reader.Fields()
	isoIdx := fieldIndex(fields, isoFields)
	if isoIdx < 0 {
		return nil, &domain.BoundaryLoadError{Code: code, Err: errors.New("shapefile has no iso_a2 attribute")}
	}
	nameIdx := fieldIndex(fields, nameFields)

	fc := geojson.NewFeatureCollection()
	for reader.Next() {
		n, shape := reader.Shape()
		if !strings.EqualFold(strings.TrimSpace(reader.ReadAttribute(n, isoIdx)), code) {
			continue
		}
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		polygons := rings(poly)
		if len(polygons) == 0 {
			continue
		}
		f := geojson.NewMultiPolygonFeature(polygons...)
		if nameIdx >= 0 {
			f.SetProperty("name", strings.TrimSpace(reader.ReadAttribute(n, nameIdx)))
		}
		fc.AddFeature(f)
	}
	if err := reader.Err(); err != nil {
		return nil, &domain.BoundaryLoadError{Code: code, Err: fmt.Errorf("read shapefile: %w", err)}
	}
	if len(fc.Features) == 0 {
		return nil, &domain.BoundaryLoadError{Code: code, Err: errors.New("no subdivisions for country")}
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, &domain.BoundaryLoadError{Code: code, Err: fmt.Errorf("encode features: %w", err)}
	}
	return data, nil
}

func fieldIndex(fields []shp.Field, names []string) int {
	for _, want := range names {
		for i, f := range fields {
			if strings.TrimRight(string(f.Name[:]), "\x00 ") == want {
				return i
			}
		}
	}
	return -1
}

// rings splits a shapefile polygon into GeoJSON polygons. Clockwise parts
// are outer rings; counter-clockwise parts are holes of the preceding outer.
func rings(poly *shp.Polygon) [][][][]float64 {
	var out [][][][]float64
	for i := 0; i < int(poly.NumParts); i++ {
		start := int(poly.Parts[i])
		end := len(poly.Points)
		if i+1 < int(poly.NumParts) {
			end = int(poly.Parts[i+1])
		}
		if start < 0 || end > len(poly.Points) || end-start < 3 {
			continue
		}
		ring := make([][]float64, 0, end-start)
		for _, pt := range poly.Points[start:end] {
			ring = append(ring, []float64{pt.X, pt.Y})
		}
		if signedArea(ring) > 0 && len(out) > 0 {
			last := len(out) - 1
			out[last] = append(out[last], ring)
			continue
		}
		out = append(out, [][][]float64{ring})
	}
	return out
}

// signedArea is positive for counter-clockwise rings.
func signedArea(ring [][]float64) float64 {
	var sum float64
	for i := 0; i < len(ring); i++ {
		j := (i + 1) % len(ring)
		sum += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	return sum / 2
}
