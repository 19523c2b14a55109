package store

import (
	"context"
	"fmt"
	"time"

	"github.com/payplaces/directory/internal/model"
	svcerrors "github.com/payplaces/directory/pkg/errors"
)

// EventStore persists the append-only Event log.
type EventStore struct{ Base }

func NewEventStore(base Base) *EventStore { return &EventStore{base} }

const eventColumns = `id, user_id, element_id, kind, tags, created_at, updated_at, deleted_at`

func (s *EventStore) Get(ctx context.Context, id int64) (*model.Event, error) {
	var e model.Event
	err := s.q(ctx).GetContext(ctx, &e, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, svcerrors.NotFound("event", fmt.Sprint(id))
	}
	if err != nil {
		return nil, svcerrors.Database("get event", err)
	}
	return &e, nil
}

func (s *EventStore) Insert(ctx context.Context, e *model.Event) (*model.Event, error) {
	var out model.Event
	err := s.q(ctx).GetContext(ctx, &out, `
		INSERT INTO events (user_id, element_id, kind, tags) VALUES ($1, $2, $3, $4)
		RETURNING `+eventColumns,
		e.UserID, e.ElementID, e.Kind, e.Tags)
	if err != nil {
		return nil, svcerrors.Database("insert event", err)
	}
	return &out, nil
}

func (s *EventStore) ListUpdatedSince(ctx context.Context, p ListingParams) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE updated_at > $1`
	if !p.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY updated_at, id LIMIT $2`

	var out []model.Event
	if err := s.q(ctx).SelectContext(ctx, &out, query, p.UpdatedSince, p.limitOrDefault()); err != nil {
		return nil, svcerrors.Database("list events", err)
	}
	return out, nil
}

// ListForElement returns the events attributed to one point, newest first.
func (s *EventStore) ListForElement(ctx context.Context, elementID int64, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []model.Event
	err := s.q(ctx).SelectContext(ctx, &out,
		`SELECT `+eventColumns+` FROM events WHERE element_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		elementID, limit)
	if err != nil {
		return nil, svcerrors.Database("list events for element", err)
	}
	return out, nil
}

// CountSinceForElements counts non-deleted events for elementIDs
// created after since. Callers resolve an area to its element ids
// through area_elements first.
func (s *EventStore) CountSinceForElements(ctx context.Context, elementIDs []int64, since interface{}) (int, error) {
	if len(elementIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlxIn(
		`SELECT count(*) FROM events WHERE element_id IN (?) AND created_at > ? AND deleted_at IS NULL`,
		elementIDs, since)
	if err != nil {
		return 0, svcerrors.Database("count events for elements", err)
	}
	var n int
	if err := s.q(ctx).GetContext(ctx, &n, s.db.Rebind(query), args...); err != nil {
		return 0, svcerrors.Database("count events for elements", err)
	}
	return n, nil
}

// CountBetweenForElements counts non-deleted events for elementIDs
// created within [from, to); used by the trending-areas report.
func (s *EventStore) CountBetweenForElements(ctx context.Context, elementIDs []int64, from, to time.Time) (int, error) {
	if len(elementIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlxIn(
		`SELECT count(*) FROM events WHERE element_id IN (?) AND created_at >= ? AND created_at < ? AND deleted_at IS NULL`,
		elementIDs, from, to)
	if err != nil {
		return 0, svcerrors.Database("count events for elements", err)
	}
	var n int
	if err := s.q(ctx).GetContext(ctx, &n, s.db.Rebind(query), args...); err != nil {
		return 0, svcerrors.Database("count events for elements", err)
	}
	return n, nil
}

// ListForUser returns the events attributed to one local osm_users.id,
// newest first, used by the user-activity report.
func (s *EventStore) ListForUser(ctx context.Context, userID int64, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []model.Event
	err := s.q(ctx).SelectContext(ctx, &out,
		`SELECT `+eventColumns+` FROM events WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, svcerrors.Database("list events for user", err)
	}
	return out, nil
}

// PatchTags backfills tag fields on an already-inserted event (e.g.
// attaching the preserved area list at delete time after the fact).
func (s *EventStore) PatchTags(ctx context.Context, id int64, patch model.Tags) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE events SET tags = tags || $2::jsonb, updated_at = now() WHERE id = $1`, id, patch)
	if err != nil {
		return svcerrors.Database("patch event tags", err)
	}
	return nil
}
