package topology

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecode_NestedUnderLaterKey(t *testing.T) {
	doc := `{
		"title": "",
		"meta": {"type": "FeatureCollection", "features": []},
		"data": {
			"type": "FeatureCollection",
			"features": [{
				"type": "Feature",
				"properties": {"hc-key": "th-bm", "name": "Bangkok"},
				"geometry": {"type": "Polygon", "coordinates": [[[100,13],[101,13],[101,14],[100,14],[100,13]]]}
			}]
		}
	}`

	regions, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d", len(regions))
	}
	if regions[0].Name != "Bangkok" {
		t.Errorf("expected Bangkok, got %s", regions[0].Name)
	}
	if !regions[0].Geometry.IsMultiPolygon() {
		t.Errorf("expected MultiPolygon, got %s", regions[0].Geometry.Type)
	}
}

func TestDecode_FeatureCollection(t *testing.T) {
	doc := `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "properties": {"NAME_1": "Chiang Mai"},
			 "geometry": {"type": "MultiPolygon", "coordinates": [[[[98,18],[99,18],[99,19],[98,18]]],[[[97,17],[97.5,17],[97.5,17.5],[97,17]]]]}},
			{"type": "Feature", "properties": {"name": "Capital"},
			 "geometry": {"type": "Point", "coordinates": [100.5, 13.75]}},
			{"type": "Feature", "properties": {"NAME_1": "Chiang Mai"},
			 "geometry": {"type": "Polygon", "coordinates": [[[96,16],[96.5,16],[96.5,16.5],[96,16]]]}},
			{"type": "Feature", "properties": {},
			 "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}}
		]
	}`

	regions, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(regions))
	}
	if regions[0].Name != "Chiang Mai" {
		t.Errorf("expected Chiang Mai, got %s", regions[0].Name)
	}
	if n := len(regions[0].Geometry.MultiPolygon); n != 3 {
		t.Errorf("expected parts sharing a name to merge into 3 polygons, got %d", n)
	}
	if regions[1].Name != "Region 4" {
		t.Errorf("expected fallback name Region 4, got %s", regions[1].Name)
	}
}

func TestDecode_TopologyWithSharedArcs(t *testing.T) {
	doc := `{
		"type": "Topology",
		"arcs": [
			[[1,0],[1,1]],
			[[1,1],[0,1],[0,0],[1,0]],
			[[1,0],[2,0],[2,1],[1,1]]
		],
		"objects": {
			"regions": {
				"type": "GeometryCollection",
				"geometries": [
					{"type": "Polygon", "arcs": [[0, 1]], "properties": {"name": "West"}},
					{"type": "Polygon", "arcs": [[2, -1]], "properties": {"name": "East"}}
				]
			}
		}
	}`

	regions, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(regions))
	}

	west := regions[0].Geometry.MultiPolygon[0][0]
	wantWest := [][]float64{{1, 0}, {1, 1}, {0, 1}, {0, 0}, {1, 0}}
	if !reflect.DeepEqual(west, wantWest) {
		t.Errorf("west ring: expected %v, got %v", wantWest, west)
	}

	east := regions[1].Geometry.MultiPolygon[0][0]
	wantEast := [][]float64{{1, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 0}}
	if !reflect.DeepEqual(east, wantEast) {
		t.Errorf("east ring: expected %v, got %v", wantEast, east)
	}
}

func TestDecode_QuantizedTopologySkipsEmptyObjects(t *testing.T) {
	doc := `{
		"type": "Topology",
		"transform": {"scale": [0.5, 0.5], "translate": [10, 20]},
		"arcs": [[[0,0],[2,0],[0,2],[-2,0],[0,-2]]],
		"objects": {
			"first": {"type": "GeometryCollection", "geometries": []},
			"second": {"type": "GeometryCollection", "geometries": [
				{"type": "MultiPolygon", "arcs": [[[0]]], "properties": {"woe-name": "Isan"}}
			]}
		}
	}`

	regions, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 1 || regions[0].Name != "Isan" {
		t.Fatalf("expected single region Isan, got %+v", regions)
	}
	ring := regions[0].Geometry.MultiPolygon[0][0]
	want := [][]float64{{10, 20}, {11, 20}, {11, 21}, {10, 21}, {10, 20}}
	if !reflect.DeepEqual(ring, want) {
		t.Errorf("expected %v, got %v", want, ring)
	}
}

func TestDecode_NoCollection(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty object", `{}`},
		{"empty collections only", `{"a": {"type": "FeatureCollection", "features": []}, "b": {"type": "Topology", "arcs": [], "objects": {}}}`},
		{"array", `[1, 2, 3]`},
		{"points only", `{"type": "FeatureCollection", "features": [{"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [1, 2]}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			if !errors.Is(err, ErrNoCollection) {
				t.Errorf("expected ErrNoCollection, got %v", err)
			}
		})
	}
}

func TestNameOf_Precedence(t *testing.T) {
	props := map[string]interface{}{"hc-key": "th-cm", "NAME": "", "name_en": "Chiang Mai"}
	if got := NameOf(props); got != "Chiang Mai" {
		t.Errorf("expected Chiang Mai, got %s", got)
	}
}
