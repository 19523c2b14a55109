package sync

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/payplaces/directory/internal/model"
	"github.com/payplaces/directory/internal/store"
	"github.com/payplaces/directory/internal/upstream"
)

type fakeUpstream struct {
	element *upstream.FullElement
	err     error
}

func (f *fakeUpstream) GetPointsSnapshot(ctx context.Context) ([]model.UpstreamElement, error) {
	return nil, nil
}

func (f *fakeUpstream) GetElement(ctx context.Context, kind model.UpstreamKind, id int64) (*upstream.FullElement, error) {
	return f.element, f.err
}

func (f *fakeUpstream) GetUser(ctx context.Context, id int64) (*upstream.UserProfile, error) {
	return nil, nil
}

type recordingSink struct {
	messages []string
}

func (r *recordingSink) Post(ctx context.Context, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

func newTestEngine(t *testing.T, up upstream.Client, sink *recordingSink) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	st := store.New(sqlxDB)
	return &Engine{store: st, upstream: up, notify: sink}, mock
}

func TestProcessDeletion_SnapshotLieLeavesPointUntouched(t *testing.T) {
	// Scenario 1: local point still has the payment tag upstream claims
	// is visible, so the apparent deletion must be treated as a lie.
	up := &fakeUpstream{element: &upstream.FullElement{Visible: true, Tags: model.Tags{model.PaymentTagKey: "yes"}}}
	sink := &recordingSink{}
	e, mock := newTestEngine(t, up, sink)

	p := &model.Point{ID: 42, UpstreamKind: model.UpstreamKindNode, UpstreamID: 2702291726}
	result := &MergeResult{}
	var events []model.Event

	err := e.processDeletion(context.Background(), p, result, &events)
	require.NoError(t, err)

	require.Empty(t, events, "no delete event should be appended")
	require.Empty(t, result.Deleted)
	require.Equal(t, 1, result.Skipped)
	require.Len(t, sink.messages, 1, "a warning should be posted to the notification sink")
	require.NoError(t, mock.ExpectationsWereMet(), "no database calls should happen for a lied-about deletion")
}

func TestProcessDeletion_ConfirmedDeletionCascades(t *testing.T) {
	// Scenario 2: editing API says the element is no longer visible, so
	// the deletion is confirmed and must cascade: soft-delete the point,
	// soft-delete its issues, and append one delete event.
	up := &fakeUpstream{element: &upstream.FullElement{Visible: false}}
	sink := &recordingSink{}
	e, mock := newTestEngine(t, up, sink)

	now := time.Now()
	p := &model.Point{ID: 42, UpstreamKind: model.UpstreamKindNode, UpstreamID: 12181429828, AuthorID: 9}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM osm_users WHERE external_id = \$1`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_id", "tags", "created_at", "updated_at", "deleted_at"}).
			AddRow(3, 9, []byte(`{}`), now, now, nil))
	mock.ExpectExec(`UPDATE points SET deleted_at = now\(\)`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE element_issues SET deleted_at = now\(\)`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO events`).
		WithArgs(int64(3), int64(42), "delete", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "element_id", "kind", "tags", "created_at", "updated_at", "deleted_at"}).
			AddRow(1, 3, 42, "delete", []byte(`{}`), now, now, nil))
	mock.ExpectCommit()

	result := &MergeResult{}
	var events []model.Event

	err := e.processDeletion(context.Background(), p, result, &events)
	require.NoError(t, err)

	require.Len(t, events, 1)
	require.Equal(t, model.EventKindDelete, events[0].Kind)
	require.Equal(t, []int64{42}, result.Deleted)
	require.Empty(t, sink.messages)
	require.NoError(t, mock.ExpectationsWereMet())
}
