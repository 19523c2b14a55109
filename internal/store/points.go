package store

import (
	"context"
	"fmt"

	svcerrors "github.com/payplaces/directory/pkg/errors"
	"github.com/payplaces/directory/internal/model"
)

// PointStore persists Point rows. The sync engine is the sole mutator
// of snapshot fields; everything else (issue engine, area lifecycle)
// only patches the local tag map.
type PointStore struct{ Base }

func NewPointStore(base Base) *PointStore { return &PointStore{base} }

const pointColumns = `id, upstream_kind, upstream_id, overpass_snapshot, changeset_id,
	author_id, lat, lon, tags, created_at, updated_at, deleted_at`

func (s *PointStore) Get(ctx context.Context, id int64) (*model.Point, error) {
	var p model.Point
	err := s.q(ctx).GetContext(ctx, &p, `SELECT `+pointColumns+` FROM points WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, svcerrors.NotFound("point", fmt.Sprint(id))
	}
	if err != nil {
		return nil, svcerrors.Database("get point", err)
	}
	return &p, nil
}

// GetByKey looks up a point by its external (kind, id) identity,
// including soft-deleted rows so Phase U can un-delete on reappearance.
func (s *PointStore) GetByKey(ctx context.Context, key model.Key) (*model.Point, error) {
	var p model.Point
	err := s.q(ctx).GetContext(ctx, &p,
		`SELECT `+pointColumns+` FROM points WHERE upstream_kind = $1 AND upstream_id = $2`,
		key.Kind, key.ID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, svcerrors.Database("get point by key", err)
	}
	return &p, nil
}

// ListUpdatedSince is the canonical select_updated_since read for points.
func (s *PointStore) ListUpdatedSince(ctx context.Context, p ListingParams) ([]model.Point, error) {
	query := `SELECT ` + pointColumns + ` FROM points WHERE updated_at > $1`
	if !p.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY updated_at, id LIMIT $2`

	var out []model.Point
	if err := s.q(ctx).SelectContext(ctx, &out, query, p.UpdatedSince, p.limitOrDefault()); err != nil {
		return nil, svcerrors.Database("list points", err)
	}
	return out, nil
}

// Insert creates a new point from a fresh upstream element (Phase C).
func (s *PointStore) Insert(ctx context.Context, p *model.Point) (*model.Point, error) {
	var out model.Point
	err := s.q(ctx).GetContext(ctx, &out, `
		INSERT INTO points (upstream_kind, upstream_id, overpass_snapshot, changeset_id, author_id, lat, lon, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+pointColumns,
		p.UpstreamKind, p.UpstreamID, p.OverpassSnapshot, p.ChangesetID, p.AuthorID, p.Lat, p.Lon, p.Tags)
	if err != nil {
		return nil, svcerrors.Database("insert point", err)
	}
	return &out, nil
}

// OverwriteSnapshot replaces the upstream snapshot fields wholesale
// (Phase U step 5), recomputing lat/lon from the fresh element.
func (s *PointStore) OverwriteSnapshot(ctx context.Context, id int64, snapshot model.Tags, changesetID, authorID int64, lat, lon float64) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE points SET overpass_snapshot = $2, changeset_id = $3, author_id = $4,
			lat = $5, lon = $6, updated_at = now()
		WHERE id = $1`,
		id, snapshot, changesetID, authorID, lat, lon)
	if err != nil {
		return svcerrors.Database("overwrite point snapshot", err)
	}
	return nil
}

// PatchTags merges patch into the point's local tag map (JSON-patch
// semantics: new keys added, existing overwritten).
func (s *PointStore) PatchTags(ctx context.Context, id int64, patch model.Tags) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE points SET tags = tags || $2::jsonb, updated_at = now() WHERE id = $1`,
		id, patch)
	if err != nil {
		return svcerrors.Database("patch point tags", err)
	}
	return nil
}

// RemoveTag deletes one key from the point's local tag map.
func (s *PointStore) RemoveTag(ctx context.Context, id int64, key string) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE points SET tags = tags - $2, updated_at = now() WHERE id = $1`,
		id, key)
	if err != nil {
		return svcerrors.Database("remove point tag", err)
	}
	return nil
}

// SoftDelete marks the point deleted (Phase D, on confirmation).
func (s *PointStore) SoftDelete(ctx context.Context, id int64) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE points SET deleted_at = now(), updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return svcerrors.Database("soft delete point", err)
	}
	return nil
}

// Undelete clears deleted_at (Phase U step 1, a retracted point reappearing).
func (s *PointStore) Undelete(ctx context.Context, id int64) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE points SET deleted_at = NULL, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return svcerrors.Database("undelete point", err)
	}
	return nil
}

// ListAllActive returns every non-deleted point, used by full scans
// (area creation's get_points_within, report generation).
func (s *PointStore) ListAllActive(ctx context.Context) ([]model.Point, error) {
	var out []model.Point
	err := s.q(ctx).SelectContext(ctx, &out,
		`SELECT `+pointColumns+` FROM points WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, svcerrors.Database("list active points", err)
	}
	return out, nil
}

// Search does a case-insensitive substring match against the point's
// name tag, newest first, capped at limit.
func (s *PointStore) Search(ctx context.Context, query string, limit int) ([]model.Point, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []model.Point
	err := s.q(ctx).SelectContext(ctx, &out, `
		SELECT `+pointColumns+` FROM points
		WHERE deleted_at IS NULL AND tags->>'name' ILIKE '%' || $1 || '%'
		ORDER BY id DESC LIMIT $2`,
		query, limit)
	if err != nil {
		return nil, svcerrors.Database("search points", err)
	}
	return out, nil
}

// ListRecentlyCreated returns the newest non-deleted points by
// creation time, capped at limit, for the new-places Atom feed.
func (s *PointStore) ListRecentlyCreated(ctx context.Context, limit int) ([]model.Point, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	var out []model.Point
	err := s.q(ctx).SelectContext(ctx, &out, `
		SELECT `+pointColumns+` FROM points
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, svcerrors.Database("list recently created points", err)
	}
	return out, nil
}

// ListByIDs fetches points by id, including soft-deleted rows, used
// when reconciling an area's S1 ∪ S2 membership set.
func (s *PointStore) ListByIDs(ctx context.Context, ids []int64) ([]model.Point, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlxIn(`SELECT `+pointColumns+` FROM points WHERE id IN (?)`, ids)
	if err != nil {
		return nil, svcerrors.Database("list points by ids", err)
	}
	var out []model.Point
	if err := s.q(ctx).SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, svcerrors.Database("list points by ids", err)
	}
	return out, nil
}
