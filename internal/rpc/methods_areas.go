package rpc

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/payplaces/directory/internal/model"
	svcerrors "github.com/payplaces/directory/pkg/errors"
)

type addAreaParams struct {
	URLAlias string     `json:"url_alias"`
	Tags     model.Tags `json:"tags"`
}

func handleAddArea(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p addAreaParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return d.areas.Create(ctx, p.URLAlias, p.Tags)
}

type getAreaParams struct {
	ID       int64  `json:"id"`
	URLAlias string `json:"url_alias"`
}

func handleGetArea(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p getAreaParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.URLAlias != "" {
		return d.store.Areas.GetByAlias(ctx, p.URLAlias)
	}
	return d.store.Areas.Get(ctx, p.ID)
}

type setAreaTagParams struct {
	ID    int64       `json:"id"`
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

func handleSetAreaTag(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p setAreaTagParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.Key == "" {
		return nil, svcerrors.InvalidInput("key", "must be present")
	}
	return d.areas.Patch(ctx, p.ID, model.Tags{p.Key: p.Value})
}

type removeAreaTagParams struct {
	ID  int64  `json:"id"`
	Key string `json:"key"`
}

func handleRemoveAreaTag(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p removeAreaTagParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.Key == "" {
		return nil, svcerrors.InvalidInput("key", "must be present")
	}
	if err := d.store.Areas.RemoveTag(ctx, p.ID, p.Key); err != nil {
		return nil, err
	}
	return d.store.Areas.Get(ctx, p.ID)
}

type removeAreaParams struct {
	ID int64 `json:"id"`
}

func handleRemoveArea(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p removeAreaParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if err := d.areas.SoftDelete(ctx, p.ID); err != nil {
		return nil, err
	}
	return generateCountResult{Processed: 1}, nil
}

// generateAreasElementsMappingParams's ID is optional: zero means
// "recompute membership for every active point".
type generateAreasElementsMappingParams struct {
	ID int64 `json:"id"`
}

func handleGenerateAreasElementsMapping(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p generateAreasElementsMappingParams
	_ = decodeParams(raw, &p)

	points, err := pointsForScope(ctx, d.store, p.ID)
	if err != nil {
		return nil, err
	}
	for _, pt := range points {
		if err := d.areas.RecomputeMemberships(ctx, pt.ID); err != nil {
			return nil, err
		}
	}
	return generateCountResult{Processed: len(points)}, nil
}

type trendingParams struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

type trendingEntry struct {
	AreaID     int64  `json:"area_id"`
	URLAlias   string `json:"url_alias"`
	EventCount int    `json:"event_count"`
}

func handleGetTrendingCountries(ctx context.Context, d *Dispatcher, call *callContext, raw json.RawMessage) (interface{}, error) {
	return trending(ctx, d, raw, "country")
}

func handleGetTrendingCommunities(ctx context.Context, d *Dispatcher, call *callContext, raw json.RawMessage) (interface{}, error) {
	return trending(ctx, d, raw, "community")
}

// trending ranks areas of the given tags["type"] by the number of
// events attributed to their member points within [period_start,
// period_end), grounded on the original implementation's
// trending-areas report.
func trending(ctx context.Context, d *Dispatcher, raw json.RawMessage, areaType string) ([]trendingEntry, error) {
	var p trendingParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	from, err := time.Parse("2006-01-02", p.PeriodStart)
	if err != nil {
		return nil, svcerrors.InvalidInput("period_start", "must be an ISO date")
	}
	to, err := time.Parse("2006-01-02", p.PeriodEnd)
	if err != nil {
		return nil, svcerrors.InvalidInput("period_end", "must be an ISO date")
	}

	areas, err := d.store.Areas.ListAllActive(ctx)
	if err != nil {
		return nil, err
	}

	var out []trendingEntry
	for _, a := range areas {
		if a.Tags.String("type") != areaType {
			continue
		}
		mappings, err := d.store.AreaElements.ListForArea(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		elementIDs := make([]int64, 0, len(mappings))
		for _, m := range mappings {
			if !m.IsDeleted() {
				elementIDs = append(elementIDs, m.ElementID)
			}
		}
		count, err := d.store.Events.CountBetweenForElements(ctx, elementIDs, from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, trendingEntry{AreaID: a.ID, URLAlias: a.URLAlias, EventCount: count})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].EventCount > out[j].EventCount })
	return out, nil
}
