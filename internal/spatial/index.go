// Package spatial implements the pure point-in-polygon test the area
// lifecycle and sync cascade use to decide which areas a point falls
// inside. No third-party GIS library in the reference corpus covers
// GeoJSON point-in-polygon, so this is a direct, dependency-free
// implementation over encoding/json and math, matching the narrow
// surface the specification actually needs (Polygon, MultiPolygon,
// LineString ring containment with a required bbox pre-filter).
package spatial

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/payplaces/directory/internal/model"
)

// Ring is a closed linear ring of [lon, lat] pairs.
type Ring [][2]float64

// Geometry is a parsed GeoJSON Polygon, MultiPolygon, or LineString,
// reduced to the rings needed for containment testing.
type Geometry struct {
	Type     string
	Polygons []Polygon // one polygon for Polygon/LineString, many for MultiPolygon
}

// Polygon is an outer ring plus zero or more hole rings, GeoJSON order.
type Polygon struct {
	Outer Ring
	Holes []Ring
}

type rawGeoJSON struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Geometries []rawGeoJSON    `json:"geometries"`
	Features   []rawGeoJSON    `json:"features"`
	Feature    json.RawMessage `json:"feature"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ParseGeoJSON accepts a FeatureCollection, Feature, or bare Geometry
// (per spec.md §3 Area.geo_json) and returns every polygon/linestring
// ring found within it.
func ParseGeoJSON(raw interface{}) ([]Geometry, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("spatial: marshal geo_json: %w", err)
	}
	var doc rawGeoJSON
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("spatial: invalid geo_json: %w", err)
	}
	return collectGeometries(doc)
}

func collectGeometries(doc rawGeoJSON) ([]Geometry, error) {
	switch doc.Type {
	case "FeatureCollection":
		var out []Geometry
		for _, f := range doc.Features {
			geoms, err := collectGeometries(f)
			if err != nil {
				return nil, err
			}
			out = append(out, geoms...)
		}
		return out, nil
	case "Feature":
		var geomDoc rawGeoJSON
		if len(doc.Geometry) == 0 {
			return nil, fmt.Errorf("spatial: feature missing geometry")
		}
		if err := json.Unmarshal(doc.Geometry, &geomDoc); err != nil {
			return nil, fmt.Errorf("spatial: invalid feature geometry: %w", err)
		}
		return collectGeometries(geomDoc)
	case "GeometryCollection":
		var out []Geometry
		for _, g := range doc.Geometries {
			geoms, err := collectGeometries(g)
			if err != nil {
				return nil, err
			}
			out = append(out, geoms...)
		}
		return out, nil
	case "Polygon":
		poly, err := decodePolygonCoords(doc.Coordinates)
		if err != nil {
			return nil, err
		}
		return []Geometry{{Type: doc.Type, Polygons: []Polygon{poly}}}, nil
	case "MultiPolygon":
		var raw [][][][2]float64
		if err := json.Unmarshal(doc.Coordinates, &raw); err != nil {
			return nil, fmt.Errorf("spatial: invalid MultiPolygon coordinates: %w", err)
		}
		var polys []Polygon
		for _, p := range raw {
			polys = append(polys, polygonFromRings(p))
		}
		return []Geometry{{Type: doc.Type, Polygons: polys}}, nil
	case "LineString":
		var raw [][2]float64
		if err := json.Unmarshal(doc.Coordinates, &raw); err != nil {
			return nil, fmt.Errorf("spatial: invalid LineString coordinates: %w", err)
		}
		return []Geometry{{Type: doc.Type, Polygons: []Polygon{{Outer: Ring(raw)}}}}, nil
	default:
		return nil, fmt.Errorf("spatial: unsupported geometry type %q", doc.Type)
	}
}

func decodePolygonCoords(raw json.RawMessage) (Polygon, error) {
	var rings [][][2]float64
	if err := json.Unmarshal(raw, &rings); err != nil {
		return Polygon{}, fmt.Errorf("spatial: invalid Polygon coordinates: %w", err)
	}
	return polygonFromRings(rings), nil
}

func polygonFromRings(rings [][][2]float64) Polygon {
	if len(rings) == 0 {
		return Polygon{}
	}
	p := Polygon{Outer: Ring(rings[0])}
	for _, h := range rings[1:] {
		p.Holes = append(p.Holes, Ring(h))
	}
	return p
}

// BBox returns the bounding box enclosing every ring of geoms.
func BBox(geoms []Geometry) (west, south, east, north float64) {
	west, south, east, north = math.MaxFloat64, math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64
	for _, g := range geoms {
		for _, p := range g.Polygons {
			for _, pt := range append(append([][2]float64{}, p.Outer...), ringsFlat(p.Holes)...) {
				lon, lat := pt[0], pt[1]
				if lon < west {
					west = lon
				}
				if lon > east {
					east = lon
				}
				if lat < south {
					south = lat
				}
				if lat > north {
					north = lat
				}
			}
		}
	}
	if west > east {
		return -180, -90, 180, 90
	}
	return
}

func ringsFlat(rings []Ring) [][2]float64 {
	var out [][2]float64
	for _, r := range rings {
		out = append(out, r...)
	}
	return out
}

// Index is the pure point-in-polygon/area containment test. Stateless:
// callers that want caching wrap it (internal/area's Redis-backed layer).
type Index struct{}

func New() *Index { return &Index{} }

// Contains applies the required bbox pre-filter first; only on pass
// does it run true point-in-polygon against every geometry in the
// area's geo_json. The bbox is an optimisation, never a correctness
// shortcut.
func (idx *Index) Contains(area *model.Area, lat, lon float64) bool {
	if !(area.West < lon && lon < area.East && area.South < lat && lat < area.North) {
		return false
	}
	geoms, err := ParseGeoJSON(area.GeoJSON())
	if err != nil {
		return false
	}
	for _, g := range geoms {
		for _, p := range g.Polygons {
			if pointInPolygon(p, lon, lat) {
				return true
			}
		}
	}
	return false
}

// AreasContaining linear-scans areas with the bbox pre-filter,
// skipping the "earth" global sentinel (never auto-mapped).
func (idx *Index) AreasContaining(lat, lon float64, areas []model.Area) []model.Area {
	var out []model.Area
	for _, a := range areas {
		if a.IsGlobalSentinel() {
			continue
		}
		if idx.Contains(&a, lat, lon) {
			out = append(out, a)
		}
	}
	return out
}

// pointInPolygon runs an even-odd ray-casting test against the outer
// ring, honoring holes (a point inside a hole is outside the polygon).
// LineString geometries have no holes and use the same ring test,
// matching the original implementation's treatment of route-shaped
// areas as closed boundaries.
func pointInPolygon(p Polygon, lon, lat float64) bool {
	if !ringContains(p.Outer, lon, lat) {
		return false
	}
	for _, hole := range p.Holes {
		if ringContains(hole, lon, lat) {
			return false
		}
	}
	return true
}

// ringContains is the standard even-odd ray casting algorithm.
func ringContains(ring Ring, lon, lat float64) bool {
	inside := false
	n := len(ring)
	if n < 3 {
		return false
	}
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > lat) != (yj > lat) {
			xIntersect := (xj-xi)*(lat-yi)/(yj-yi) + xi
			if lon < xIntersect {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
