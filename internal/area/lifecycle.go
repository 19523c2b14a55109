// Package area owns the Area lifecycle — create, patch, soft-delete —
// and keeps the AreaElement mapping consistent with each area's
// geometry, wrapping the pure spatial index with a Redis-backed cache
// for the hot path.
package area

import (
	"context"
	"fmt"

	"github.com/payplaces/directory/internal/model"
	"github.com/payplaces/directory/internal/spatial"
	"github.com/payplaces/directory/internal/store"
	svcerrors "github.com/payplaces/directory/pkg/errors"
)

// Lifecycle implements Create/Patch/SoftDelete and the area–element
// reconciliation algorithm.
type Lifecycle struct {
	store *store.Store
	index *Cache
}

func NewLifecycle(st *store.Store, index *Cache) *Lifecycle {
	return &Lifecycle{store: st, index: index}
}

// Create validates url_alias and geo_json, derives the bounding box,
// inserts the area, then maps in every point the spatial index finds
// inside the new geometry.
func (l *Lifecycle) Create(ctx context.Context, urlAlias string, tags model.Tags) (*model.Area, error) {
	if urlAlias == "" {
		return nil, svcerrors.InvalidInput("url_alias", "must be present")
	}
	exists, err := l.store.Areas.ExistsByAlias(ctx, urlAlias)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, svcerrors.Conflict(fmt.Sprintf("area with url_alias %q already exists", urlAlias))
	}

	geoJSON, ok := tags["geo_json"]
	if !ok {
		return nil, svcerrors.InvalidInput("geo_json", "must be present")
	}
	geoms, err := spatial.ParseGeoJSON(geoJSON)
	if err != nil {
		return nil, svcerrors.InvalidInput("geo_json", err.Error())
	}
	west, south, east, north := spatial.BBox(geoms)

	merged := tags.Merge(model.Tags{"url_alias": urlAlias})

	var created *model.Area
	err = l.store.WithTx(ctx, func(ctx context.Context) error {
		a := &model.Area{URLAlias: urlAlias, Tags: merged, West: west, South: south, East: east, North: north}
		out, insertErr := l.store.Areas.Insert(ctx, a)
		if insertErr != nil {
			return insertErr
		}
		created = out

		points, listErr := l.store.Points.ListAllActive(ctx)
		if listErr != nil {
			return listErr
		}
		for _, p := range points {
			if !l.index.Contains(ctx, created, p.Lat, p.Lon) {
				continue
			}
			if _, insErr := l.store.AreaElements.Insert(ctx, created.ID, p.ID); insErr != nil {
				return insErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Patch rejects a url_alias change, applies a plain tag patch when
// geo_json is untouched, and otherwise records the current mappings
// (S1), applies the geometry and bbox change, computes the points
// inside the new geometry (S2) and reconciles every point in S1 ∪ S2.
func (l *Lifecycle) Patch(ctx context.Context, id int64, patch model.Tags) (*model.Area, error) {
	if _, changesAlias := patch["url_alias"]; changesAlias {
		return nil, svcerrors.InvalidInput("url_alias", "cannot be changed after creation")
	}

	current, err := l.store.Areas.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	geoJSON, changesGeo := patch["geo_json"]
	if !changesGeo {
		if err := l.store.Areas.PatchTagsAndBBox(ctx, id, patch, nil); err != nil {
			return nil, err
		}
		return l.store.Areas.Get(ctx, id)
	}

	geoms, err := spatial.ParseGeoJSON(geoJSON)
	if err != nil {
		return nil, svcerrors.InvalidInput("geo_json", err.Error())
	}
	west, south, east, north := spatial.BBox(geoms)

	var result *model.Area
	err = l.store.WithTx(ctx, func(ctx context.Context) error {
		s1, listErr := l.store.AreaElements.ListForArea(ctx, id)
		if listErr != nil {
			return listErr
		}
		s1Points := make(map[int64]struct{}, len(s1))
		for _, m := range s1 {
			s1Points[m.ElementID] = struct{}{}
		}

		bboxPatch := &model.Area{West: west, South: south, East: east, North: north}
		if err := l.store.Areas.PatchTagsAndBBox(ctx, id, patch, bboxPatch); err != nil {
			return err
		}
		l.index.InvalidateArea(ctx, id)

		patched, getErr := l.store.Areas.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		result = patched

		points, listErr := l.store.Points.ListAllActive(ctx)
		if listErr != nil {
			return listErr
		}
		s2Points := make(map[int64]struct{})
		for _, p := range points {
			if l.index.Contains(ctx, patched, p.Lat, p.Lon) {
				s2Points[p.ID] = struct{}{}
			}
		}

		touched := make(map[int64]struct{}, len(s1Points)+len(s2Points))
		for pointID := range s1Points {
			touched[pointID] = struct{}{}
		}
		for pointID := range s2Points {
			touched[pointID] = struct{}{}
		}

		for pointID := range touched {
			if err := l.reconcilePoint(ctx, pointID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SoftDelete marks the area deleted without touching its mappings —
// they carry their own lifecycle — and strips any legacy "areas" tag
// still present on points mapped to it.
func (l *Lifecycle) SoftDelete(ctx context.Context, id int64) error {
	return l.store.WithTx(ctx, func(ctx context.Context) error {
		if err := l.store.Areas.SoftDelete(ctx, id); err != nil {
			return err
		}
		l.index.InvalidateArea(ctx, id)

		mappings, err := l.store.AreaElements.ListForArea(ctx, id)
		if err != nil {
			return err
		}
		for _, m := range mappings {
			p, getErr := l.store.Points.Get(ctx, m.ElementID)
			if getErr != nil {
				continue
			}
			if p.Tags.Has("areas") {
				if err := l.store.Points.RemoveTag(ctx, p.ID, "areas"); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// RecomputeMemberships runs the per-point reconciliation for a single
// point — the hook the sync engine calls for every point touched in
// phases U and C.
func (l *Lifecycle) RecomputeMemberships(ctx context.Context, pointID int64) error {
	return l.reconcilePoint(ctx, pointID)
}

// reconcilePoint computes the point's current full area membership set
// A and reconciles persisted (possibly soft-deleted) mappings against
// it: drop mappings to areas no longer in A, un-soft-delete or insert
// mappings to areas now in A.
func (l *Lifecycle) reconcilePoint(ctx context.Context, pointID int64) error {
	p, err := l.store.Points.Get(ctx, pointID)
	if err != nil {
		return err
	}

	areas, err := l.store.Areas.ListAllActive(ctx)
	if err != nil {
		return err
	}
	inside := l.index.AreasContaining(ctx, p.Lat, p.Lon, areas)
	insideByID := make(map[int64]struct{}, len(inside))
	for _, a := range inside {
		insideByID[a.ID] = struct{}{}
	}

	existing, err := l.store.AreaElements.ListForElement(ctx, pointID)
	if err != nil {
		return err
	}
	// ListForElement only returns non-deleted rows; fetch the full set
	// (deleted or not) so we can also un-soft-delete a re-entered area.
	allMappings := map[int64]model.AreaElement{}
	for _, m := range existing {
		allMappings[m.AreaID] = m
	}
	for _, a := range areas {
		if m, err := l.store.AreaElements.GetMapping(ctx, a.ID, pointID); err == nil && m != nil {
			allMappings[a.ID] = *m
		}
	}

	for areaID, m := range allMappings {
		_, stillInside := insideByID[areaID]
		switch {
		case !stillInside:
			if !m.IsDeleted() {
				if err := l.store.AreaElements.SoftDelete(ctx, m.ID); err != nil {
					return err
				}
			}
		case m.IsDeleted():
			if err := l.store.AreaElements.Undelete(ctx, m.ID); err != nil {
				return err
			}
		}
	}

	for areaID := range insideByID {
		if _, exists := allMappings[areaID]; exists {
			continue
		}
		if _, err := l.store.AreaElements.Insert(ctx, areaID, pointID); err != nil {
			return err
		}
	}

	return nil
}
