package issues

import (
	"context"
	"sort"
	"strings"

	"github.com/payplaces/directory/internal/model"
	"github.com/payplaces/directory/internal/store"
)

// Store is the subset of the persistence layer the reconciler needs.
type Store interface {
	ListForElement(ctx context.Context, elementID int64) ([]model.ElementIssue, error)
	Insert(ctx context.Context, elementID int64, code string, severity int) (*model.ElementIssue, error)
	UpdateSeverity(ctx context.Context, id int64, severity int) error
	SoftDelete(ctx context.Context, id int64) error
	Undelete(ctx context.Context, id int64) error
}

// PointTagPatcher is the subset of PointStore the reconciler needs to
// keep the point's "issues" tag in sync with persisted rows.
type PointTagPatcher interface {
	PatchTags(ctx context.Context, id int64, patch model.Tags) error
	RemoveTag(ctx context.Context, id int64, key string) error
}

var _ Store = (*store.IssueStore)(nil)
var _ PointTagPatcher = (*store.PointStore)(nil)

// Reconciler keeps persisted ElementIssue rows and a point's "issues"
// tag in sync with the pure rule-set's current output.
type Reconciler struct {
	issues Store
	points PointTagPatcher
}

func NewReconciler(issueStore Store, pointStore PointTagPatcher) *Reconciler {
	return &Reconciler{issues: issueStore, points: pointStore}
}

// Reconcile runs Issues(p) against the persisted rows for p and
// applies every insert/update/soft-delete/un-soft-delete the diff
// requires, then keeps the point's "issues" tag consistent with the
// resulting non-deleted set.
func (r *Reconciler) Reconcile(ctx context.Context, p *model.Point) error {
	current := Issues(p)
	currentByCode := make(map[string]model.Issue, len(current))
	for _, iss := range current {
		currentByCode[iss.Code] = iss
	}

	persisted, err := r.issues.ListForElement(ctx, p.ID)
	if err != nil {
		return err
	}
	persistedByCode := make(map[string]model.ElementIssue, len(persisted))
	for _, row := range persisted {
		persistedByCode[row.Code] = row
	}

	for code, row := range persistedByCode {
		current, stillMatches := currentByCode[code]
		switch {
		case !stillMatches:
			if !row.IsDeleted() {
				if err := r.issues.SoftDelete(ctx, row.ID); err != nil {
					return err
				}
			}
		case row.IsDeleted():
			if err := r.issues.Undelete(ctx, row.ID); err != nil {
				return err
			}
			if row.Severity != current.Severity {
				if err := r.issues.UpdateSeverity(ctx, row.ID, current.Severity); err != nil {
					return err
				}
			}
		case row.Severity != current.Severity:
			if err := r.issues.UpdateSeverity(ctx, row.ID, current.Severity); err != nil {
				return err
			}
		}
	}

	for code, iss := range currentByCode {
		if _, exists := persistedByCode[code]; exists {
			continue
		}
		if _, err := r.issues.Insert(ctx, p.ID, code, iss.Severity); err != nil {
			return err
		}
	}

	return r.syncIssuesTag(ctx, p, current)
}

// syncIssuesTag overwrites the point's "issues" tag with the sorted
// list of current issue codes, or removes it if there are none.
func (r *Reconciler) syncIssuesTag(ctx context.Context, p *model.Point, current []model.Issue) error {
	codes := make([]string, 0, len(current))
	for _, iss := range current {
		codes = append(codes, iss.Code)
	}
	sort.Strings(codes)

	existing := p.Tags.String("issues")
	serialized := strings.Join(codes, ",")

	if len(codes) == 0 {
		if existing == "" {
			return nil
		}
		return r.points.RemoveTag(ctx, p.ID, "issues")
	}
	if existing == serialized {
		return nil
	}
	return r.points.PatchTags(ctx, p.ID, model.Tags{"issues": serialized})
}
