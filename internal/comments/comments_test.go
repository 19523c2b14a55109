package comments

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/payplaces/directory/internal/commerce"
	"github.com/payplaces/directory/internal/lightning"
	"github.com/payplaces/directory/internal/store"
	"github.com/payplaces/directory/pkg/config"
)

type fakeGateway struct{}

func (fakeGateway) CreateInvoice(ctx context.Context, amountSats int64, description string) (*lightning.IssuedInvoice, error) {
	return &lightning.IssuedInvoice{PaymentRequest: "lnbc1comment", GatewayRef: "gw-comment-1"}, nil
}

func (fakeGateway) CheckStatus(ctx context.Context, gatewayRef string) (lightning.InvoiceStatus, error) {
	return lightning.StatusUnpaid, nil
}

func pointRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "upstream_kind", "upstream_id", "overpass_snapshot", "changeset_id",
		"author_id", "lat", "lon", "tags", "created_at", "updated_at", "deleted_at",
	}).AddRow(7, "node", 100, []byte(`{}`), 1, 1, 0.0, 0.0, []byte(`{}`), time.Now(), time.Now(), nil)
}

func TestAdd_CreatesHiddenPendingCommentAndIssuesInvoice(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlxDB := sqlx.NewDb(db, "postgres")
	st := store.New(sqlxDB)
	cm := commerce.New(st, fakeGateway{}, config.LightningConfig{CommentPriceSats: 1000})
	lc := NewLifecycle(st, cm)

	mock.ExpectQuery(`SELECT .* FROM points WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(pointRows())

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO element_comments`).
		WithArgs(int64(7), "hi").
		WillReturnRows(sqlmock.NewRows([]string{"id", "element_id", "body", "hidden", "created_at", "updated_at", "deleted_at"}).
			AddRow(42, 7, "hi", true, time.Now(), time.Now(), nil))
	mock.ExpectCommit()

	mock.ExpectQuery(`INSERT INTO invoices`).
		WithArgs(sqlmock.AnyArg(), "lnbc1comment", "gw-comment-1", int64(1000), "element_comment:42", "unpaid").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "uuid", "payment_request", "gateway_ref", "amount_sats", "description", "status",
			"created_at", "updated_at", "deleted_at",
		}).AddRow(1, "inv-uuid", "lnbc1comment", "gw-comment-1", 1000, "element_comment:42", "unpaid", time.Now(), time.Now(), nil))

	paymentRequest, invoiceUUID, err := lc.Add(context.Background(), 7, "hi")
	require.NoError(t, err)
	require.Equal(t, "lnbc1comment", paymentRequest)
	require.Equal(t, "inv-uuid", invoiceUUID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdd_RejectsUnknownPoint(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlxDB := sqlx.NewDb(db, "postgres")
	st := store.New(sqlxDB)
	cm := commerce.New(st, fakeGateway{}, config.LightningConfig{})
	lc := NewLifecycle(st, cm)

	mock.ExpectQuery(`SELECT .* FROM points WHERE id = \$1`).
		WithArgs(int64(999)).
		WillReturnError(sql.ErrNoRows)

	_, _, err = lc.Add(context.Background(), 999, "hi")
	require.Error(t, err)
}
