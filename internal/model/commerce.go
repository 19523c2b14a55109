package model

import "time"

// InvoiceStatus is the lifecycle state of a paywall Invoice.
type InvoiceStatus string

const (
	InvoiceStatusUnpaid    InvoiceStatus = "unpaid"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice is the paywall object backing boosts and paywalled comments.
type Invoice struct {
	ID int64 `db:"id" json:"id"`

	UUID           string `db:"uuid" json:"uuid"`
	PaymentRequest string `db:"payment_request" json:"payment_request"`
	GatewayRef     string `db:"gateway_ref" json:"gateway_ref,omitempty"` // the Lightning gateway's own reference, used to poll status
	AmountSats     int64  `db:"amount_sats" json:"amount_sats"`
	// Description encodes the action to apply once paid, e.g.
	// "element_boost:<id>:<days>" or "element_comment:<pending_id>".
	Description string        `db:"description" json:"description"`
	Status      InvoiceStatus `db:"status" json:"status"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// ElementComment is a user comment on a point, visible only once its
// backing invoice has been paid.
type ElementComment struct {
	ID int64 `db:"id" json:"id"`

	ElementID int64  `db:"element_id" json:"element_id"`
	Body      string `db:"body" json:"body"`

	// Hidden is true for a pending comment awaiting payment.
	Hidden bool `db:"hidden" json:"hidden"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (c *ElementComment) IsDeleted() bool { return c.DeletedAt != nil }
func (i *Invoice) IsPaid() bool           { return i.Status == InvoiceStatusPaid }
