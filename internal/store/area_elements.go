package store

import (
	"context"

	"github.com/payplaces/directory/internal/model"
	svcerrors "github.com/payplaces/directory/pkg/errors"
)

// AreaElementStore persists the n:m mapping between areas and points,
// preserving row identity across soft-delete/un-soft-delete cycles.
type AreaElementStore struct{ Base }

func NewAreaElementStore(base Base) *AreaElementStore { return &AreaElementStore{base} }

const areaElementColumns = `id, area_id, element_id, created_at, updated_at, deleted_at`

// GetMapping returns the (possibly soft-deleted) mapping row for
// (areaID, elementID), or nil if one was never created.
func (s *AreaElementStore) GetMapping(ctx context.Context, areaID, elementID int64) (*model.AreaElement, error) {
	var ae model.AreaElement
	err := s.q(ctx).GetContext(ctx, &ae,
		`SELECT `+areaElementColumns+` FROM area_elements WHERE area_id = $1 AND element_id = $2`,
		areaID, elementID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, svcerrors.Database("get area element mapping", err)
	}
	return &ae, nil
}

// ListForArea returns every mapping (deleted or not) for areaID, the
// S1 set used by the area geometry patch algorithm.
func (s *AreaElementStore) ListForArea(ctx context.Context, areaID int64) ([]model.AreaElement, error) {
	var out []model.AreaElement
	err := s.q(ctx).SelectContext(ctx, &out,
		`SELECT `+areaElementColumns+` FROM area_elements WHERE area_id = $1`, areaID)
	if err != nil {
		return nil, svcerrors.Database("list area elements for area", err)
	}
	return out, nil
}

// ListForElement returns every non-deleted mapping for elementID.
func (s *AreaElementStore) ListForElement(ctx context.Context, elementID int64) ([]model.AreaElement, error) {
	var out []model.AreaElement
	err := s.q(ctx).SelectContext(ctx, &out,
		`SELECT `+areaElementColumns+` FROM area_elements WHERE element_id = $1 AND deleted_at IS NULL`, elementID)
	if err != nil {
		return nil, svcerrors.Database("list area elements for element", err)
	}
	return out, nil
}

func (s *AreaElementStore) Insert(ctx context.Context, areaID, elementID int64) (*model.AreaElement, error) {
	var out model.AreaElement
	err := s.q(ctx).GetContext(ctx, &out, `
		INSERT INTO area_elements (area_id, element_id) VALUES ($1, $2)
		RETURNING `+areaElementColumns,
		areaID, elementID)
	if err != nil {
		return nil, svcerrors.Database("insert area element", err)
	}
	return &out, nil
}

func (s *AreaElementStore) SoftDelete(ctx context.Context, id int64) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE area_elements SET deleted_at = now(), updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return svcerrors.Database("soft delete area element", err)
	}
	return nil
}

// Undelete clears deleted_at while preserving the row's identity, the
// spec's required behaviour for a point re-entering an area.
func (s *AreaElementStore) Undelete(ctx context.Context, id int64) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE area_elements SET deleted_at = NULL, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return svcerrors.Database("undelete area element", err)
	}
	return nil
}

func (s *AreaElementStore) ListUpdatedSince(ctx context.Context, p ListingParams) ([]model.AreaElement, error) {
	query := `SELECT ` + areaElementColumns + ` FROM area_elements WHERE updated_at > $1`
	if !p.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY updated_at, id LIMIT $2`

	var out []model.AreaElement
	if err := s.q(ctx).SelectContext(ctx, &out, query, p.UpdatedSince, p.limitOrDefault()); err != nil {
		return nil, svcerrors.Database("list area elements", err)
	}
	return out, nil
}
