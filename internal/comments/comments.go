// Package comments implements the paywalled comment lifecycle: a
// pending comment is created hidden, an invoice is issued for it, and
// commerce's paid-action cascade reveals it once paid.
package comments

import (
	"context"

	"github.com/payplaces/directory/internal/commerce"
	"github.com/payplaces/directory/internal/model"
	"github.com/payplaces/directory/internal/store"
)

// Lifecycle adds, lists, and moderates comments, reusing Commerce for
// the paywall.
type Lifecycle struct {
	store    *store.Store
	commerce *commerce.Commerce
}

func NewLifecycle(st *store.Store, c *commerce.Commerce) *Lifecycle {
	return &Lifecycle{store: st, commerce: c}
}

// Add validates the point exists, creates a hidden pending comment,
// and issues an invoice for it, returning the invoice's payment request
// and the invoice's UUID. Comments have no UUID of their own; the
// pending comment is identified only by its numeric id.
func (l *Lifecycle) Add(ctx context.Context, pointID int64, text string) (paymentRequest, invoiceUUID string, err error) {
	if _, err := l.store.Points.Get(ctx, pointID); err != nil {
		return "", "", err
	}

	var pending *model.ElementComment
	err = l.store.WithTx(ctx, func(ctx context.Context) error {
		p, insertErr := l.store.Comments.InsertPending(ctx, pointID, text)
		if insertErr != nil {
			return insertErr
		}
		pending = p
		return nil
	})
	if err != nil {
		return "", "", err
	}

	paymentRequest, invoiceUUID, err = l.commerce.CreateCommentInvoice(ctx, pending.ID)
	if err != nil {
		return "", "", err
	}
	return paymentRequest, invoiceUUID, nil
}

// List returns only paid, non-deleted comments for a point, newest first.
func (l *Lifecycle) List(ctx context.Context, pointID int64) ([]model.ElementComment, error) {
	return l.store.Comments.ListForElement(ctx, pointID)
}

// SoftDelete is the moderator action.
func (l *Lifecycle) SoftDelete(ctx context.Context, commentID int64) error {
	return l.store.Comments.SoftDelete(ctx, commentID)
}
