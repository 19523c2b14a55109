package area

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/payplaces/directory/internal/model"
	"github.com/payplaces/directory/internal/spatial"
	"github.com/payplaces/directory/pkg/cache"
)

const (
	cacheTTL      = 10 * time.Minute
	cellPrecision = 1000.0 // ~110m grid cell at the equator, prefilter only
)

// Cache wraps the pure spatial.Index with a quantized-cell candidate
// cache. The cache only ever narrows which areas are *worth* an exact
// polygon test for a given cell (their bbox overlaps the cell's
// bounds); it never caches the inside/outside verdict itself, so the
// polygon test in spatial.Index stays authoritative per spec.md §4.3 —
// every Contains/AreasContaining result is computed against the exact
// (lat, lon) on every call, cached candidates or not.
type Cache struct {
	index *spatial.Index
	cache cache.Cache
}

func NewCache(c cache.Cache) *Cache {
	return &Cache{index: spatial.New(), cache: c}
}

// Contains runs the exact bbox+polygon test for this point; there is
// nothing to prefilter for a single area, so this is a direct
// pass-through to the pure index.
func (c *Cache) Contains(ctx context.Context, a *model.Area, lat, lon float64) bool {
	return c.index.Contains(a, lat, lon)
}

// AreasContaining narrows `areas` to the candidates whose bbox
// overlaps the quantized cell containing (lat, lon) — a cached,
// conservative (over-inclusive) prefilter — then runs the real
// per-point polygon test against every candidate, uncached, for the
// final verdict.
func (c *Cache) AreasContaining(ctx context.Context, lat, lon float64, areas []model.Area) []model.Area {
	key := cellCacheKey(lat, lon)
	var ids []int64
	if hit, err := c.cache.Get(ctx, key, &ids); err == nil && hit {
		return c.index.AreasContaining(lat, lon, filterByIDs(areas, ids))
	}

	cw, cs, ce, cn := cellBounds(lat, lon)
	candidates := make([]model.Area, 0, len(areas))
	ids = make([]int64, 0, len(areas))
	for _, a := range areas {
		if a.West < ce && cw < a.East && a.South < cn && cs < a.North {
			candidates = append(candidates, a)
			ids = append(ids, a.ID)
		}
	}
	_ = c.cache.Set(ctx, key, ids, cacheTTL)

	return c.index.AreasContaining(lat, lon, candidates)
}

// InvalidateArea drops every cached candidate list that might involve
// areaID. Cell-level entries are keyed by location only, so a geometry
// change invalidates the whole prefix rather than individual keys —
// correctness over cache hit rate.
func (c *Cache) InvalidateArea(ctx context.Context, areaID int64) {
	_ = c.cache.InvalidatePrefix(ctx, "area:cell:")
}

func cellCacheKey(lat, lon float64) string {
	return fmt.Sprintf("area:cell:%d:%d", quantize(lat), quantize(lon))
}

// cellBounds returns the bounding rectangle of the quantized grid cell
// containing (lat, lon), used to conservatively widen a candidate area
// list so every area whose bbox could contain ANY point in the cell is
// included — never just the one point that happened to populate the
// cache entry.
func cellBounds(lat, lon float64) (west, south, east, north float64) {
	qlat := math.Round(lat * cellPrecision)
	qlon := math.Round(lon * cellPrecision)
	return (qlon - 0.5) / cellPrecision, (qlat - 0.5) / cellPrecision,
		(qlon + 0.5) / cellPrecision, (qlat + 0.5) / cellPrecision
}

func quantize(v float64) int64 {
	return int64(math.Round(v * cellPrecision))
}

func filterByIDs(areas []model.Area, ids []int64) []model.Area {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]model.Area, 0, len(ids))
	for _, a := range areas {
		if _, ok := want[a.ID]; ok {
			out = append(out, a)
		}
	}
	return out
}
