// Package topology decodes country subdivision datasets into named
// MultiPolygons. It accepts TopoJSON topologies, GeoJSON feature and geometry
// collections, and wrapper documents that nest one of those under an
// arbitrary key.
package topology

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	geojson "github.com/paulmach/go.geojson"
)

// ErrNoCollection is returned when no member of the document holds a
// non-empty geometry collection.
var ErrNoCollection = errors.New("topology: no non-empty geometry collection found")

// NameKeys are the property keys tried, in order, for a subdivision's name.
var NameKeys = []string{"name", "NAME", "name_en", "NAME_1", "shapeName", "woe-name", "hc-key"}

// Region is one named subdivision. Geometry is always a MultiPolygon.
type Region struct {
	Name     string
	Geometry *geojson.Geometry
}

// Decode probes data for the first usable collection and returns its regions
// in document order. Parts that share a name are merged into one region.
func Decode(data []byte) ([]Region, error) {
	regions, ok, err := probe(data, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoCollection
	}
	return regions, nil
}

type member struct {
	key   string
	value json.RawMessage
}

// members returns the members of a JSON object in document order. A value
// that is not an object yields no members.
func members(raw []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil
	}

	var out []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("member %q: %w", key, err)
		}
		out = append(out, member{key: key, value: v})
	}
	return out, nil
}

func isObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func probe(raw []byte, walk bool) ([]Region, bool, error) {
	if !isObject(raw) {
		return nil, false, nil
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, false, fmt.Errorf("decode document: %w", err)
	}

	var (
		regions []Region
		err     error
	)
	switch head.Type {
	case "Topology":
		regions, err = decodeTopology(raw)
	case "FeatureCollection":
		regions, err = decodeFeatures(raw)
	case "GeometryCollection":
		regions, err = decodeGeometries(raw)
	}
	if err != nil {
		return nil, false, err
	}
	if len(regions) > 0 {
		return regions, true, nil
	}
	if !walk {
		return nil, false, nil
	}

	ms, err := members(raw)
	if err != nil {
		return nil, false, fmt.Errorf("walk document: %w", err)
	}
	for _, m := range ms {
		// A malformed member does not qualify; keep probing.
		regions, ok, err := probe(m.value, false)
		if err == nil && ok {
			return regions, true, nil
		}
	}
	return nil, false, nil
}

func decodeFeatures(raw []byte) ([]Region, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	var c collector
	for i, f := range fc.Features {
		if f == nil {
			continue
		}
		name := NameOf(f.Properties)
		if name == "" && f.ID != nil {
			name = fmt.Sprint(f.ID)
		}
		c.add(name, i, polygonsOf(f.Geometry))
	}
	return c.regions(), nil
}

func decodeGeometries(raw []byte) ([]Region, error) {
	var gc struct {
		Geometries []json.RawMessage `json:"geometries"`
	}
	if err := json.Unmarshal(raw, &gc); err != nil {
		return nil, fmt.Errorf("decode geometry collection: %w", err)
	}

	var c collector
	for i, g := range gc.Geometries {
		geom, err := geojson.UnmarshalGeometry(g)
		if err != nil {
			return nil, fmt.Errorf("geometry %d: %w", i, err)
		}
		var props struct {
			Properties map[string]interface{} `json:"properties"`
		}
		_ = json.Unmarshal(g, &props)
		c.add(NameOf(props.Properties), i, polygonsOf(geom))
	}
	return c.regions(), nil
}

// NameOf returns the first non-empty name property.
func NameOf(props map[string]interface{}) string {
	for _, k := range NameKeys {
		if s, ok := props[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func polygonsOf(g *geojson.Geometry) [][][][]float64 {
	if g == nil {
		return nil
	}
	switch {
	case g.IsPolygon():
		return [][][][]float64{g.Polygon}
	case g.IsMultiPolygon():
		return g.MultiPolygon
	case g.IsCollection():
		var out [][][][]float64
		for _, child := range g.Geometries {
			out = append(out, polygonsOf(child)...)
		}
		return out
	}
	return nil
}

// collector merges polygons by name, keeping first-seen order.
type collector struct {
	order []string
	parts map[string][][][][]float64
}

func (c *collector) add(name string, index int, polys [][][][]float64) {
	if len(polys) == 0 {
		return
	}
	if name == "" {
		name = fmt.Sprintf("Region %d", index+1)
	}
	if c.parts == nil {
		c.parts = make(map[string][][][][]float64)
	}
	if _, ok := c.parts[name]; !ok {
		c.order = append(c.order, name)
	}
	c.parts[name] = append(c.parts[name], polys...)
}

func (c *collector) regions() []Region {
	out := make([]Region, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, Region{Name: name, Geometry: geojson.NewMultiPolygonGeometry(c.parts[name]...)})
	}
	return out
}
