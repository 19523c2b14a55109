package rpc

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/payplaces/directory/internal/model"
	"github.com/payplaces/directory/internal/store"
	svcerrors "github.com/payplaces/directory/pkg/errors"
	"github.com/payplaces/directory/pkg/logger"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	st := store.New(sqlxDB)
	d := New(st, nil, nil, nil, nil, nil, logger.New("directory-test", "error", "text"), 100, 10)
	return d, mock
}

func TestHandle_UnknownMethodNeverTouchesAuth(t *testing.T) {
	d, _ := newTestDispatcher(t)
	resp := d.Handle(context.Background(), Request{Method: "doesnotexist", Auth: "irrelevant"})
	require.NotNil(t, resp.Error)
	require.Equal(t, string(svcerrors.KindInvalidInput), resp.Error.Code)
}

func TestHandle_MissingAuthIsUnauthorized(t *testing.T) {
	d, _ := newTestDispatcher(t)
	resp := d.Handle(context.Background(), Request{Method: "search", Auth: ""})
	require.NotNil(t, resp.Error)
	require.Equal(t, string(svcerrors.KindUnauthorized), resp.Error.Code)
}

func TestHandle_UnknownTokenIsUnauthorized(t *testing.T) {
	d, mock := newTestDispatcher(t)
	mock.ExpectQuery(`SELECT .* FROM access_tokens WHERE secret = \$1 AND deleted_at IS NULL`).
		WithArgs("bad-secret").
		WillReturnError(sql.ErrNoRows)

	resp := d.Handle(context.Background(), Request{Method: "search", Auth: "bad-secret"})
	require.NotNil(t, resp.Error)
	require.Equal(t, string(svcerrors.KindUnauthorized), resp.Error.Code)
}

func TestHandle_UserTokenForbiddenFromAdminMethod(t *testing.T) {
	d, mock := newTestDispatcher(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM access_tokens WHERE secret = \$1 AND deleted_at IS NULL`).
		WithArgs("user-secret").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "secret", "label", "roles", "created_at", "updated_at", "deleted_at"}).
			AddRow(1, 1, "user-secret", "", []byte(`["user"]`), now, now, nil))

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "password_hash", "roles", "created_at", "updated_at", "deleted_at"}).
			AddRow(1, "alice", "hash", []byte(`["user"]`), now, now, nil))

	resp := d.Handle(context.Background(), Request{Method: "addarea", Auth: "user-secret"})
	require.NotNil(t, resp.Error)
	require.Equal(t, string(svcerrors.KindForbidden), resp.Error.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIntersectRoles(t *testing.T) {
	tokenRoles := model.RoleSet{model.RoleAdmin}
	userRoles := model.RoleSet{model.RoleUser}
	require.Empty(t, intersectRoles(tokenRoles, userRoles))

	tokenRoles = model.RoleSet{model.RoleAdmin, model.RoleUser}
	userRoles = model.RoleSet{model.RoleUser}
	got := intersectRoles(tokenRoles, userRoles)
	require.Len(t, got, 1)
	require.True(t, got.Contains(model.RoleUser))
}
