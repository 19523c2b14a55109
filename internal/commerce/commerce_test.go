package commerce

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/payplaces/directory/internal/lightning"
	"github.com/payplaces/directory/internal/model"
	"github.com/payplaces/directory/internal/store"
	"github.com/payplaces/directory/pkg/config"
)

type fakeGateway struct {
	createRef string
	status    lightning.InvoiceStatus
}

func (f *fakeGateway) CreateInvoice(ctx context.Context, amountSats int64, description string) (*lightning.IssuedInvoice, error) {
	return &lightning.IssuedInvoice{PaymentRequest: "lnbc1fake", GatewayRef: f.createRef}, nil
}

func (f *fakeGateway) CheckStatus(ctx context.Context, gatewayRef string) (lightning.InvoiceStatus, error) {
	return f.status, nil
}

func newTestCommerce(t *testing.T, gw lightning.Gateway) (*Commerce, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	st := store.New(sqlxDB)
	cfg := config.LightningConfig{Boost30DaySats: 5000, Boost90DaySats: 12000, Boost365DaySats: 40000, CommentPriceSats: 1000}
	return New(st, gw, cfg), mock
}

func TestCreateBoostInvoice_RejectsInvalidDuration(t *testing.T) {
	c, _ := newTestCommerce(t, &fakeGateway{})
	_, _, err := c.CreateBoostInvoice(context.Background(), 1, 45)
	require.Error(t, err)
}

func TestCreateBoostInvoice_IssuesAndPersists(t *testing.T) {
	c, mock := newTestCommerce(t, &fakeGateway{createRef: "gw-ref-1"})

	mock.ExpectQuery(`SELECT .* FROM points WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "upstream_kind", "upstream_id", "overpass_snapshot", "changeset_id",
			"author_id", "lat", "lon", "tags", "created_at", "updated_at", "deleted_at",
		}).AddRow(7, "node", 100, []byte(`{}`), 1, 1, 0.0, 0.0, []byte(`{}`), time.Now(), time.Now(), nil))

	mock.ExpectQuery(`INSERT INTO invoices`).
		WithArgs(sqlmock.AnyArg(), "lnbc1fake", "gw-ref-1", int64(5000), "element_boost:7:30", string(model.InvoiceStatusUnpaid)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "uuid", "payment_request", "gateway_ref", "amount_sats", "description", "status",
			"created_at", "updated_at", "deleted_at",
		}).AddRow(1, "some-uuid", "lnbc1fake", "gw-ref-1", 5000, "element_boost:7:30", "unpaid", time.Now(), time.Now(), nil))

	paymentRequest, uuid, err := c.CreateBoostInvoice(context.Background(), 7, 30)
	require.NoError(t, err)
	require.Equal(t, "lnbc1fake", paymentRequest)
	require.NotEmpty(t, uuid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInvoice_AppliesBoostExactlyOnceWhenNewlyPaid(t *testing.T) {
	c, mock := newTestCommerce(t, &fakeGateway{status: lightning.StatusPaid})

	invoiceRows := func(status string) *sqlmock.Rows {
		return sqlmock.NewRows([]string{
			"id", "uuid", "payment_request", "gateway_ref", "amount_sats", "description", "status",
			"created_at", "updated_at", "deleted_at",
		}).AddRow(1, "inv-uuid", "lnbc1fake", "gw-ref-1", 5000, "element_boost:7:30", status, time.Now(), time.Now(), nil)
	}

	mock.ExpectQuery(`SELECT .* FROM invoices WHERE uuid = \$1`).
		WithArgs("inv-uuid").
		WillReturnRows(invoiceRows("unpaid"))

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)UPDATE invoices SET status = 'paid'.*WHERE id = \$1 AND status = 'unpaid'`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(`SELECT .* FROM points WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "upstream_kind", "upstream_id", "overpass_snapshot", "changeset_id",
			"author_id", "lat", "lon", "tags", "created_at", "updated_at", "deleted_at",
		}).AddRow(7, "node", 100, []byte(`{}`), 1, 1, 0.0, 0.0, []byte(`{}`), time.Now(), time.Now(), nil))

	mock.ExpectExec(`UPDATE points SET tags = tags \|\| \$2::jsonb`).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT .* FROM invoices WHERE uuid = \$1`).
		WithArgs("inv-uuid").
		WillReturnRows(invoiceRows("paid"))

	inv, err := c.GetInvoice(context.Background(), "inv-uuid")
	require.NoError(t, err)
	require.Equal(t, model.InvoiceStatusPaid, inv.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInvoice_AlreadyPaidSkipsGatewayCall(t *testing.T) {
	c, mock := newTestCommerce(t, &fakeGateway{status: lightning.StatusPaid})

	mock.ExpectQuery(`SELECT .* FROM invoices WHERE uuid = \$1`).
		WithArgs("inv-uuid").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "uuid", "payment_request", "gateway_ref", "amount_sats", "description", "status",
			"created_at", "updated_at", "deleted_at",
		}).AddRow(1, "inv-uuid", "lnbc1fake", "gw-ref-1", 5000, "element_boost:7:30", "paid", time.Now(), time.Now(), nil))

	inv, err := c.GetInvoice(context.Background(), "inv-uuid")
	require.NoError(t, err)
	require.Equal(t, model.InvoiceStatusPaid, inv.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
