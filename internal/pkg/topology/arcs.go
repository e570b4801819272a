package topology

import (
	"encoding/json"
	"fmt"
)

type transform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

type topologyDoc struct {
	Transform *transform      `json:"transform"`
	Arcs      [][][]float64   `json:"arcs"`
	Objects   json.RawMessage `json:"objects"`
}

type topoGeometry struct {
	Type       string                 `json:"type"`
	ID         interface{}            `json:"id"`
	Arcs       json.RawMessage        `json:"arcs"`
	Properties map[string]interface{} `json:"properties"`
	Geometries []topoGeometry         `json:"geometries"`
}

// decodeTopology walks the topology's objects in document order and decodes
// the first GeometryCollection that yields any polygon.
func decodeTopology(raw []byte) ([]Region, error) {
	var doc topologyDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}
	arcs := doc.absoluteArcs()

	objects, err := members(doc.Objects)
	if err != nil {
		return nil, fmt.Errorf("decode topology objects: %w", err)
	}
	for _, obj := range objects {
		var g topoGeometry
		if err := json.Unmarshal(obj.value, &g); err != nil {
			return nil, fmt.Errorf("object %q: %w", obj.key, err)
		}
		if g.Type != "GeometryCollection" || len(g.Geometries) == 0 {
			continue
		}

		var c collector
		for i, child := range g.Geometries {
			polys, err := child.polygons(arcs)
			if err != nil {
				return nil, fmt.Errorf("object %q geometry %d: %w", obj.key, i, err)
			}
			name := NameOf(child.Properties)
			if name == "" && child.ID != nil {
				name = fmt.Sprint(child.ID)
			}
			c.add(name, i, polys)
		}
		if regions := c.regions(); len(regions) > 0 {
			return regions, nil
		}
	}
	return nil, nil
}

// absoluteArcs resolves delta encoding and the quantization transform.
func (d *topologyDoc) absoluteArcs() [][][]float64 {
	out := make([][][]float64, len(d.Arcs))
	for i, arc := range d.Arcs {
		pts := make([][]float64, 0, len(arc))
		var x, y float64
		for _, p := range arc {
			if len(p) < 2 {
				continue
			}
			if d.Transform == nil {
				pts = append(pts, []float64{p[0], p[1]})
				continue
			}
			x += p[0]
			y += p[1]
			pts = append(pts, []float64{
				x*d.Transform.Scale[0] + d.Transform.Translate[0],
				y*d.Transform.Scale[1] + d.Transform.Translate[1],
			})
		}
		out[i] = pts
	}
	return out
}

func (g topoGeometry) polygons(arcs [][][]float64) ([][][][]float64, error) {
	switch g.Type {
	case "Polygon":
		var rings [][]int
		if err := json.Unmarshal(g.Arcs, &rings); err != nil {
			return nil, err
		}
		poly, err := stitchPolygon(rings, arcs)
		if err != nil {
			return nil, err
		}
		return [][][][]float64{poly}, nil
	case "MultiPolygon":
		var polys [][][]int
		if err := json.Unmarshal(g.Arcs, &polys); err != nil {
			return nil, err
		}
		out := make([][][][]float64, 0, len(polys))
		for _, rings := range polys {
			poly, err := stitchPolygon(rings, arcs)
			if err != nil {
				return nil, err
			}
			out = append(out, poly)
		}
		return out, nil
	case "GeometryCollection":
		var out [][][][]float64
		for _, child := range g.Geometries {
			polys, err := child.polygons(arcs)
			if err != nil {
				return nil, err
			}
			out = append(out, polys...)
		}
		return out, nil
	}
	return nil, nil
}

func stitchPolygon(rings [][]int, arcs [][][]float64) ([][][]float64, error) {
	poly := make([][][]float64, 0, len(rings))
	for _, ring := range rings {
		var pts [][]float64
		for k, idx := range ring {
			reversed := idx < 0
			if reversed {
				idx = ^idx
			}
			if idx >= len(arcs) {
				return nil, fmt.Errorf("arc index %d out of range", idx)
			}
			arc := arcs[idx]
			if reversed {
				arc = reverse(arc)
			}
			if k > 0 && len(arc) > 0 {
				arc = arc[1:]
			}
			pts = append(pts, arc...)
		}
		if len(pts) > 0 {
			poly = append(poly, pts)
		}
	}
	return poly, nil
}

func reverse(pts [][]float64) [][]float64 {
	out := make([][]float64, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}
