package store

import (
	"context"
	"fmt"

	"github.com/payplaces/directory/internal/model"
	svcerrors "github.com/payplaces/directory/pkg/errors"
)

// AreaStore persists Area rows. The area lifecycle package is the
// sole mutator of geometry/bbox fields.
type AreaStore struct{ Base }

func NewAreaStore(base Base) *AreaStore { return &AreaStore{base} }

const areaColumns = `id, url_alias, tags, bbox_west, bbox_south, bbox_east, bbox_north,
	created_at, updated_at, deleted_at`

func (s *AreaStore) Get(ctx context.Context, id int64) (*model.Area, error) {
	var a model.Area
	err := s.q(ctx).GetContext(ctx, &a, `SELECT `+areaColumns+` FROM areas WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, svcerrors.NotFound("area", fmt.Sprint(id))
	}
	if err != nil {
		return nil, svcerrors.Database("get area", err)
	}
	return &a, nil
}

func (s *AreaStore) GetByAlias(ctx context.Context, alias string) (*model.Area, error) {
	var a model.Area
	err := s.q(ctx).GetContext(ctx, &a, `SELECT `+areaColumns+` FROM areas WHERE url_alias = $1`, alias)
	if isNoRows(err) {
		return nil, svcerrors.NotFound("area", alias)
	}
	if err != nil {
		return nil, svcerrors.Database("get area by alias", err)
	}
	return &a, nil
}

func (s *AreaStore) ExistsByAlias(ctx context.Context, alias string) (bool, error) {
	var n int
	err := s.q(ctx).GetContext(ctx, &n, `SELECT count(*) FROM areas WHERE url_alias = $1`, alias)
	if err != nil {
		return false, svcerrors.Database("check area alias", err)
	}
	return n > 0, nil
}

func (s *AreaStore) ListUpdatedSince(ctx context.Context, p ListingParams) ([]model.Area, error) {
	query := `SELECT ` + areaColumns + ` FROM areas WHERE updated_at > $1`
	if !p.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY updated_at, id LIMIT $2`

	var out []model.Area
	if err := s.q(ctx).SelectContext(ctx, &out, query, p.UpdatedSince, p.limitOrDefault()); err != nil {
		return nil, svcerrors.Database("list areas", err)
	}
	return out, nil
}

// ListAllActive returns every non-deleted, non-sentinel area, used by
// AreasContaining full scans.
func (s *AreaStore) ListAllActive(ctx context.Context) ([]model.Area, error) {
	var out []model.Area
	err := s.q(ctx).SelectContext(ctx, &out,
		`SELECT `+areaColumns+` FROM areas WHERE deleted_at IS NULL AND url_alias <> 'earth' ORDER BY id`)
	if err != nil {
		return nil, svcerrors.Database("list active areas", err)
	}
	return out, nil
}

func (s *AreaStore) Insert(ctx context.Context, a *model.Area) (*model.Area, error) {
	var out model.Area
	err := s.q(ctx).GetContext(ctx, &out, `
		INSERT INTO areas (url_alias, tags, bbox_west, bbox_south, bbox_east, bbox_north)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+areaColumns,
		a.URLAlias, a.Tags, a.West, a.South, a.East, a.North)
	if err != nil {
		return nil, svcerrors.Database("insert area", err)
	}
	return &out, nil
}

// PatchTagsAndBBox applies a tag patch and, when geometry changed,
// a recomputed bounding box in one statement.
func (s *AreaStore) PatchTagsAndBBox(ctx context.Context, id int64, patch model.Tags, bbox *model.Area) error {
	if bbox != nil {
		_, err := s.q(ctx).ExecContext(ctx, `
			UPDATE areas SET tags = tags || $2::jsonb,
				bbox_west = $3, bbox_south = $4, bbox_east = $5, bbox_north = $6,
				updated_at = now()
			WHERE id = $1`,
			id, patch, bbox.West, bbox.South, bbox.East, bbox.North)
		if err != nil {
			return svcerrors.Database("patch area geometry", err)
		}
		return nil
	}
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE areas SET tags = tags || $2::jsonb, updated_at = now() WHERE id = $1`, id, patch)
	if err != nil {
		return svcerrors.Database("patch area tags", err)
	}
	return nil
}

func (s *AreaStore) SoftDelete(ctx context.Context, id int64) error {
	_, err := s.q(ctx).ExecContext(ctx, `UPDATE areas SET deleted_at = now(), updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return svcerrors.Database("soft delete area", err)
	}
	return nil
}

// RemoveTag deletes one key from the area's tag map; url_alias and
// geo_json cannot be removed this way since they're mandatory.
func (s *AreaStore) RemoveTag(ctx context.Context, id int64, key string) error {
	if key == "url_alias" || key == "geo_json" {
		return svcerrors.InvalidInput("key", fmt.Sprintf("%q cannot be removed", key))
	}
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE areas SET tags = tags - $2, updated_at = now() WHERE id = $1`, id, key)
	if err != nil {
		return svcerrors.Database("remove area tag", err)
	}
	return nil
}
