package store

import (
	"context"
	"fmt"

	"github.com/payplaces/directory/internal/model"
	svcerrors "github.com/payplaces/directory/pkg/errors"
)

// InvoiceStore persists the Lightning-backed paywall Invoice rows.
// Commerce is the sole mutator of Invoice status.
type InvoiceStore struct{ Base }

func NewInvoiceStore(base Base) *InvoiceStore { return &InvoiceStore{base} }

const invoiceColumns = `id, uuid, payment_request, gateway_ref, amount_sats, description, status,
	created_at, updated_at, deleted_at`

func (s *InvoiceStore) GetByUUID(ctx context.Context, uuid string) (*model.Invoice, error) {
	var inv model.Invoice
	err := s.q(ctx).GetContext(ctx, &inv, `SELECT `+invoiceColumns+` FROM invoices WHERE uuid = $1`, uuid)
	if isNoRows(err) {
		return nil, svcerrors.NotFound("invoice", uuid)
	}
	if err != nil {
		return nil, svcerrors.Database("get invoice", err)
	}
	return &inv, nil
}

func (s *InvoiceStore) Insert(ctx context.Context, inv *model.Invoice) (*model.Invoice, error) {
	var out model.Invoice
	err := s.q(ctx).GetContext(ctx, &out, `
		INSERT INTO invoices (uuid, payment_request, gateway_ref, amount_sats, description, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+invoiceColumns,
		inv.UUID, inv.PaymentRequest, inv.GatewayRef, inv.AmountSats, inv.Description, inv.Status)
	if err != nil {
		return nil, svcerrors.Database("insert invoice", err)
	}
	return &out, nil
}

// MarkPaidIfUnpaid performs the idempotent unpaid -> paid transition
// and reports whether this call was the one that made it happen
// (false means the invoice was already paid, so the caller must not
// re-apply the paid action).
func (s *InvoiceStore) MarkPaidIfUnpaid(ctx context.Context, id int64) (bool, error) {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE invoices SET status = 'paid', updated_at = now()
		WHERE id = $1 AND status = 'unpaid'`, id)
	if err != nil {
		return false, svcerrors.Database("mark invoice paid", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, svcerrors.Database("mark invoice paid", err)
	}
	return n > 0, nil
}

// ListUnpaid returns every invoice still awaiting payment, oldest
// first, for the periodic gateway-polling sweep.
func (s *InvoiceStore) ListUnpaid(ctx context.Context, limit int) ([]model.Invoice, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	var out []model.Invoice
	err := s.q(ctx).SelectContext(ctx, &out, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE status = 'unpaid'
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, svcerrors.Database("list unpaid invoices", err)
	}
	return out, nil
}

func (s *InvoiceStore) MarkCancelled(ctx context.Context, id int64) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE invoices SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status = 'unpaid'`, id)
	if err != nil {
		return svcerrors.Database("cancel invoice", err)
	}
	return nil
}

// ElementCommentStore persists comments on points, paywalled via Invoice.
type ElementCommentStore struct{ Base }

func NewElementCommentStore(base Base) *ElementCommentStore { return &ElementCommentStore{base} }

const commentColumns = `id, element_id, body, hidden, created_at, updated_at, deleted_at`

func (s *ElementCommentStore) Get(ctx context.Context, id int64) (*model.ElementComment, error) {
	var c model.ElementComment
	err := s.q(ctx).GetContext(ctx, &c, `SELECT `+commentColumns+` FROM element_comments WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, svcerrors.NotFound("comment", fmt.Sprint(id))
	}
	if err != nil {
		return nil, svcerrors.Database("get comment", err)
	}
	return &c, nil
}

// InsertPending creates a hidden comment awaiting payment.
func (s *ElementCommentStore) InsertPending(ctx context.Context, elementID int64, body string) (*model.ElementComment, error) {
	var out model.ElementComment
	err := s.q(ctx).GetContext(ctx, &out, `
		INSERT INTO element_comments (element_id, body, hidden) VALUES ($1, $2, true)
		RETURNING `+commentColumns,
		elementID, body)
	if err != nil {
		return nil, svcerrors.Database("insert pending comment", err)
	}
	return &out, nil
}

// Unhide reveals a comment once its invoice is paid.
func (s *ElementCommentStore) Unhide(ctx context.Context, id int64) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE element_comments SET hidden = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return svcerrors.Database("unhide comment", err)
	}
	return nil
}

func (s *ElementCommentStore) SoftDelete(ctx context.Context, id int64) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE element_comments SET deleted_at = now(), updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return svcerrors.Database("soft delete comment", err)
	}
	return nil
}

// ListForElement returns only paid (non-hidden), non-deleted comments, newest first.
func (s *ElementCommentStore) ListForElement(ctx context.Context, elementID int64) ([]model.ElementComment, error) {
	var out []model.ElementComment
	err := s.q(ctx).SelectContext(ctx, &out, `
		SELECT `+commentColumns+` FROM element_comments
		WHERE element_id = $1 AND hidden = false AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC`, elementID)
	if err != nil {
		return nil, svcerrors.Database("list comments for element", err)
	}
	return out, nil
}

// ListRecentlyCreated returns the newest paid, non-deleted comments,
// capped at limit, for the new-comments Atom feed.
func (s *ElementCommentStore) ListRecentlyCreated(ctx context.Context, limit int) ([]model.ElementComment, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	var out []model.ElementComment
	err := s.q(ctx).SelectContext(ctx, &out, `
		SELECT `+commentColumns+` FROM element_comments
		WHERE hidden = false AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, svcerrors.Database("list recently created comments", err)
	}
	return out, nil
}

func (s *ElementCommentStore) ListUpdatedSince(ctx context.Context, p ListingParams) ([]model.ElementComment, error) {
	query := `SELECT ` + commentColumns + ` FROM element_comments WHERE updated_at > $1 AND hidden = false`
	if !p.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY updated_at, id LIMIT $2`

	var out []model.ElementComment
	if err := s.q(ctx).SelectContext(ctx, &out, query, p.UpdatedSince, p.limitOrDefault()); err != nil {
		return nil, svcerrors.Database("list comments", err)
	}
	return out, nil
}
