package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payplaces/directory/internal/model"
)

func squareArea(alias string) *model.Area {
	// A 1x1 degree square with its centroid at (0.5, 0.5), [lon, lat] order.
	outer := [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	geoJSON := map[string]interface{}{
		"type":        "Polygon",
		"coordinates": [][][2]float64{outer},
	}
	return &model.Area{ID: 1, URLAlias: alias, West: 0, South: 0, East: 1, North: 1,
		Tags: model.Tags{"geo_json": geoJSON}}
}

func TestIndex_Contains_PointInsideSquare(t *testing.T) {
	idx := New()
	a := squareArea("test-square")
	assert.True(t, idx.Contains(a, 0.5, 0.5))
}

func TestIndex_Contains_PointOutsideBBoxIsRejectedWithoutParsing(t *testing.T) {
	idx := New()
	a := squareArea("test-square")
	assert.False(t, idx.Contains(a, 10, 10))
}

func TestIndex_Contains_PointInBBoxButOutsidePolygon(t *testing.T) {
	idx := New()
	// An L-shaped polygon whose bbox is the full unit square but which
	// excludes the top-right quadrant.
	outer := [][2]float64{{0, 0}, {1, 0}, {1, 0.5}, {0.5, 0.5}, {0.5, 1}, {0, 1}, {0, 0}}
	a := &model.Area{ID: 2, URLAlias: "l-shape", West: 0, South: 0, East: 1, North: 1,
		Tags: model.Tags{"geo_json": map[string]interface{}{
			"type": "Polygon", "coordinates": [][][2]float64{outer},
		}}}

	assert.True(t, idx.Contains(a, 0.25, 0.25), "bottom-left quadrant should be inside the L")
	assert.False(t, idx.Contains(a, 0.75, 0.75), "top-right notch should be outside the L despite being in bbox")
}

func TestIndex_Contains_Hole(t *testing.T) {
	idx := New()
	outer := [][2]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	hole := [][2]float64{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}}
	a := &model.Area{ID: 3, URLAlias: "donut", West: 0, South: 0, East: 10, North: 10,
		Tags: model.Tags{"geo_json": map[string]interface{}{
			"type":        "Polygon",
			"coordinates": [][][2]float64{outer, hole},
		}}}

	assert.True(t, idx.Contains(a, 1, 1), "outside the hole, inside the outer ring")
	assert.False(t, idx.Contains(a, 5, 5), "inside the hole should not count as contained")
}

func TestIndex_Contains_MultiPolygon(t *testing.T) {
	idx := New()
	squareA := [][][2]float64{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	squareB := [][][2]float64{{{5, 5}, {6, 5}, {6, 6}, {5, 6}, {5, 5}}}
	a := &model.Area{ID: 4, URLAlias: "two-blocks", West: 0, South: 0, East: 6, North: 6,
		Tags: model.Tags{"geo_json": map[string]interface{}{
			"type":        "MultiPolygon",
			"coordinates": [][][][2]float64{squareA, squareB},
		}}}

	assert.True(t, idx.Contains(a, 0.5, 0.5))
	assert.True(t, idx.Contains(a, 5.5, 5.5))
	assert.False(t, idx.Contains(a, 3, 3), "gap between the two blocks")
}

func TestIndex_AreasContaining_ExcludesGlobalSentinel(t *testing.T) {
	idx := New()
	earth := squareArea("earth")
	named := squareArea("somewhere")
	named.ID = 2

	matches := idx.AreasContaining(0.5, 0.5, []model.Area{*earth, *named})
	require.Len(t, matches, 1)
	assert.Equal(t, int64(2), matches[0].ID)
}

func TestBBox_ComputesEnclosingExtent(t *testing.T) {
	geoms, err := ParseGeoJSON(map[string]interface{}{
		"type":        "Polygon",
		"coordinates": [][][2]float64{{{-1, -2}, {3, -2}, {3, 4}, {-1, 4}, {-1, -2}}},
	})
	require.NoError(t, err)

	west, south, east, north := BBox(geoms)
	assert.Equal(t, -1.0, west)
	assert.Equal(t, -2.0, south)
	assert.Equal(t, 3.0, east)
	assert.Equal(t, 4.0, north)
}

func TestParseGeoJSON_FeatureCollection(t *testing.T) {
	doc := map[string]interface{}{
		"type": "FeatureCollection",
		"features": []interface{}{
			map[string]interface{}{
				"type": "Feature",
				"geometry": map[string]interface{}{
					"type":        "Polygon",
					"coordinates": [][][2]float64{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}},
				},
			},
		},
	}
	geoms, err := ParseGeoJSON(doc)
	require.NoError(t, err)
	require.Len(t, geoms, 1)
	assert.Equal(t, "Polygon", geoms[0].Type)
}

func TestParseGeoJSON_UnsupportedType(t *testing.T) {
	_, err := ParseGeoJSON(map[string]interface{}{"type": "Point", "coordinates": []float64{0, 0}})
	assert.Error(t, err)
}
