package rpc

import (
	"context"
	"encoding/json"

	"github.com/payplaces/directory/internal/classify"
	"github.com/payplaces/directory/internal/issues"
	"github.com/payplaces/directory/internal/model"
	"github.com/payplaces/directory/internal/store"
	svcerrors "github.com/payplaces/directory/pkg/errors"
)

type getElementParams struct {
	ID int64 `json:"id"`
}

func handleGetElement(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p getElementParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return d.store.Points.Get(ctx, p.ID)
}

type setElementTagParams struct {
	ID    int64       `json:"id"`
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

func handleSetElementTag(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p setElementTagParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.Key == "" {
		return nil, svcerrors.InvalidInput("key", "must be present")
	}
	if _, err := d.store.Points.Get(ctx, p.ID); err != nil {
		return nil, err
	}
	if err := d.store.Points.PatchTags(ctx, p.ID, model.Tags{p.Key: p.Value}); err != nil {
		return nil, err
	}
	return reconcileOne(ctx, d, p.ID)
}

type removeElementTagParams struct {
	ID  int64  `json:"id"`
	Key string `json:"key"`
}

func handleRemoveElementTag(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p removeElementTagParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.Key == "" {
		return nil, svcerrors.InvalidInput("key", "must be present")
	}
	if _, err := d.store.Points.Get(ctx, p.ID); err != nil {
		return nil, err
	}
	if err := d.store.Points.RemoveTag(ctx, p.ID, p.Key); err != nil {
		return nil, err
	}
	return reconcileOne(ctx, d, p.ID)
}

// reconcileOne recomputes the icon and issue set for a point whose
// local tags just changed, returning its refreshed row.
func reconcileOne(ctx context.Context, d *Dispatcher, id int64) (*model.Point, error) {
	p, err := d.store.Points.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	icon := classify.Icon(p.OverpassSnapshot.Merge(p.Tags))
	if icon != p.Tags.String("icon:android") {
		if err := d.store.Points.PatchTags(ctx, id, model.Tags{"icon:android": icon}); err != nil {
			return nil, err
		}
		p, err = d.store.Points.Get(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	reconciler := issues.NewReconciler(d.store.Issues, d.store.Points)
	if err := reconciler.Reconcile(ctx, p); err != nil {
		return nil, err
	}
	return d.store.Points.Get(ctx, id)
}

type boostElementParams struct {
	ID   int64 `json:"id"`
	Days int   `json:"days"`
}

type invoiceResult struct {
	PaymentRequest string `json:"payment_request"`
	InvoiceUUID    string `json:"invoice_uuid"`
}

func handleBoostElement(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p boostElementParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	paymentRequest, invoiceUUID, err := d.commerce.CreateBoostInvoice(ctx, p.ID, p.Days)
	if err != nil {
		return nil, err
	}
	return invoiceResult{PaymentRequest: paymentRequest, InvoiceUUID: invoiceUUID}, nil
}

type addElementCommentParams struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

func handleAddElementComment(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p addElementCommentParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.Text == "" {
		return nil, svcerrors.InvalidInput("text", "must be present")
	}
	paymentRequest, invoiceUUID, err := d.comments.Add(ctx, p.ID, p.Text)
	if err != nil {
		return nil, err
	}
	return invoiceResult{PaymentRequest: paymentRequest, InvoiceUUID: invoiceUUID}, nil
}

// generateElementIssuesParams's ID is optional: zero means "every
// active point".
type generateElementIssuesParams struct {
	ID int64 `json:"id"`
}

type generateCountResult struct {
	Processed int `json:"processed"`
}

func handleGenerateElementIssues(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p generateElementIssuesParams
	_ = decodeParams(raw, &p) // absent params means "all points"

	reconciler := issues.NewReconciler(d.store.Issues, d.store.Points)
	points, err := pointsForScope(ctx, d.store, p.ID)
	if err != nil {
		return nil, err
	}
	for i := range points {
		if err := reconciler.Reconcile(ctx, &points[i]); err != nil {
			return nil, err
		}
	}
	return generateCountResult{Processed: len(points)}, nil
}

type generateElementIconsParams struct {
	ID int64 `json:"id"`
}

func handleGenerateElementIcons(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p generateElementIconsParams
	_ = decodeParams(raw, &p)

	points, err := pointsForScope(ctx, d.store, p.ID)
	if err != nil {
		return nil, err
	}
	for _, pt := range points {
		icon := classify.Icon(pt.OverpassSnapshot.Merge(pt.Tags))
		if icon == pt.Tags.String("icon:android") {
			continue
		}
		if err := d.store.Points.PatchTags(ctx, pt.ID, model.Tags{"icon:android": icon}); err != nil {
			return nil, err
		}
	}
	return generateCountResult{Processed: len(points)}, nil
}

type generateElementCategoriesParams struct {
	ID int64 `json:"id"`
}

func handleGenerateElementCategories(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p generateElementCategoriesParams
	_ = decodeParams(raw, &p)

	points, err := pointsForScope(ctx, d.store, p.ID)
	if err != nil {
		return nil, err
	}
	for _, pt := range points {
		category := classify.Category(pt.OverpassSnapshot.Merge(pt.Tags))
		if category == pt.Tags.String("category") {
			continue
		}
		if err := d.store.Points.PatchTags(ctx, pt.ID, model.Tags{"category": category}); err != nil {
			return nil, err
		}
	}
	return generateCountResult{Processed: len(points)}, nil
}

// pointsForScope returns a single point (wrapped in a slice) when id
// is non-zero, otherwise every active point.
func pointsForScope(ctx context.Context, st *store.Store, id int64) ([]model.Point, error) {
	if id != 0 {
		p, err := st.Points.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return []model.Point{*p}, nil
	}
	return st.Points.ListAllActive(ctx)
}

type searchParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func handleSearch(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p searchParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.Query == "" {
		return nil, svcerrors.InvalidInput("query", "must be present")
	}
	return d.store.Points.Search(ctx, p.Query, p.Limit)
}
