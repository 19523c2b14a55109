// Package commerce implements the Lightning-invoice-backed paywall:
// boost quotes, invoice issuance, polling, and the on-paid mutation
// encoded in each invoice's description.
package commerce

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/payplaces/directory/internal/lightning"
	"github.com/payplaces/directory/internal/model"
	"github.com/payplaces/directory/internal/store"
	"github.com/payplaces/directory/pkg/config"
	svcerrors "github.com/payplaces/directory/pkg/errors"
)

const (
	descBoostPrefix   = "element_boost:"
	descCommentPrefix = "element_comment:"
)

// Quote is the set of configured boost prices.
type Quote struct {
	Days30Sats  int64
	Days90Sats  int64
	Days365Sats int64
}

// Commerce owns Invoice's status transitions.
type Commerce struct {
	store   *store.Store
	gateway lightning.Gateway
	cfg     config.LightningConfig
}

func New(st *store.Store, gateway lightning.Gateway, cfg config.LightningConfig) *Commerce {
	return &Commerce{store: st, gateway: gateway, cfg: cfg}
}

// BoostQuote returns the three configured boost prices.
func (c *Commerce) BoostQuote() Quote {
	return Quote{Days30Sats: c.cfg.Boost30DaySats, Days90Sats: c.cfg.Boost90DaySats, Days365Sats: c.cfg.Boost365DaySats}
}

func (c *Commerce) priceForDays(days int) (int64, error) {
	switch days {
	case 30:
		return c.cfg.Boost30DaySats, nil
	case 90:
		return c.cfg.Boost90DaySats, nil
	case 365:
		return c.cfg.Boost365DaySats, nil
	default:
		return 0, svcerrors.InvalidInput("days", "must be one of 30, 90, 365")
	}
}

// CreateBoostInvoice validates the duration, issues a Lightning
// invoice, and persists the pending record.
func (c *Commerce) CreateBoostInvoice(ctx context.Context, pointID int64, days int) (paymentRequest, invoiceUUID string, err error) {
	price, err := c.priceForDays(days)
	if err != nil {
		return "", "", err
	}
	if _, err := c.store.Points.Get(ctx, pointID); err != nil {
		return "", "", err
	}

	description := fmt.Sprintf("%s%d:%d", descBoostPrefix, pointID, days)
	return c.issueInvoice(ctx, price, description)
}

// CreateCommentInvoice issues an invoice for a pending comment at the
// configured flat price.
func (c *Commerce) CreateCommentInvoice(ctx context.Context, pendingCommentID int64) (paymentRequest, invoiceUUID string, err error) {
	description := fmt.Sprintf("%s%d", descCommentPrefix, pendingCommentID)
	return c.issueInvoice(ctx, c.cfg.CommentPriceSats, description)
}

func (c *Commerce) issueInvoice(ctx context.Context, amountSats int64, description string) (string, string, error) {
	issued, err := c.gateway.CreateInvoice(ctx, amountSats, description)
	if err != nil {
		return "", "", err
	}

	id := uuid.New().String()
	_, err = c.store.Invoices.Insert(ctx, &model.Invoice{
		UUID: id, PaymentRequest: issued.PaymentRequest, GatewayRef: issued.GatewayRef, AmountSats: amountSats,
		Description: description, Status: model.InvoiceStatusUnpaid,
	})
	if err != nil {
		return "", "", err
	}
	return issued.PaymentRequest, id, nil
}

// GetInvoice reads the local invoice row, polling the gateway and
// applying the paid action exactly once if it has newly settled.
func (c *Commerce) GetInvoice(ctx context.Context, invoiceUUID string) (*model.Invoice, error) {
	inv, err := c.store.Invoices.GetByUUID(ctx, invoiceUUID)
	if err != nil {
		return nil, err
	}
	if inv.Status != model.InvoiceStatusUnpaid {
		return inv, nil
	}

	status, err := c.gateway.CheckStatus(ctx, inv.GatewayRef)
	if err != nil {
		return nil, err
	}
	if status != lightning.StatusPaid {
		return inv, nil
	}

	if err := c.store.WithTx(ctx, func(ctx context.Context) error {
		applied, markErr := c.store.Invoices.MarkPaidIfUnpaid(ctx, inv.ID)
		if markErr != nil {
			return markErr
		}
		if !applied {
			return nil // another poll already settled this invoice
		}
		return c.applyPaidAction(ctx, inv.Description)
	}); err != nil {
		return nil, err
	}

	return c.store.Invoices.GetByUUID(ctx, invoiceUUID)
}

// applyPaidAction parses the invoice's description and performs the
// mutation it encodes.
func (c *Commerce) applyPaidAction(ctx context.Context, description string) error {
	switch {
	case strings.HasPrefix(description, descBoostPrefix):
		return c.applyBoost(ctx, strings.TrimPrefix(description, descBoostPrefix))
	case strings.HasPrefix(description, descCommentPrefix):
		return c.applyComment(ctx, strings.TrimPrefix(description, descCommentPrefix))
	default:
		return svcerrors.Database("apply paid action", fmt.Errorf("unrecognised invoice description %q", description))
	}
}

func (c *Commerce) applyBoost(ctx context.Context, rest string) error {
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return svcerrors.Database("apply boost", fmt.Errorf("malformed boost description %q", rest))
	}
	pointID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return svcerrors.Database("apply boost", fmt.Errorf("malformed boost point id %q", parts[0]))
	}
	days, err := strconv.Atoi(parts[1])
	if err != nil {
		return svcerrors.Database("apply boost", fmt.Errorf("malformed boost days %q", parts[1]))
	}

	p, err := c.store.Points.Get(ctx, pointID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	base := now
	if currentExpiry, ok := parseExpiry(p.Tags.String("boost:expires")); ok && currentExpiry.After(base) {
		base = currentExpiry
	}
	newExpiry := base.Add(time.Duration(days) * 24 * time.Hour)

	return c.store.Points.PatchTags(ctx, pointID, model.Tags{"boost:expires": newExpiry.Format(time.RFC3339)})
}

func (c *Commerce) applyComment(ctx context.Context, rest string) error {
	pendingID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return svcerrors.Database("apply comment", fmt.Errorf("malformed comment description %q", rest))
	}
	return c.store.Comments.Unhide(ctx, pendingID)
}

func parseExpiry(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
