package store

import (
	"context"

	"github.com/payplaces/directory/internal/model"
	svcerrors "github.com/payplaces/directory/pkg/errors"
)

// IssueStore persists ElementIssue rows. The issue engine's reconciler
// is the sole mutator.
type IssueStore struct{ Base }

func NewIssueStore(base Base) *IssueStore { return &IssueStore{base} }

const issueColumns = `id, element_id, code, severity, created_at, updated_at, deleted_at`

// ListForElement returns every issue row (deleted or not) for a point,
// keyed by code for the reconciler to diff against the current rule
// output.
func (s *IssueStore) ListForElement(ctx context.Context, elementID int64) ([]model.ElementIssue, error) {
	var out []model.ElementIssue
	err := s.q(ctx).SelectContext(ctx, &out,
		`SELECT `+issueColumns+` FROM element_issues WHERE element_id = $1`, elementID)
	if err != nil {
		return nil, svcerrors.Database("list issues for element", err)
	}
	return out, nil
}

func (s *IssueStore) Insert(ctx context.Context, elementID int64, code string, severity int) (*model.ElementIssue, error) {
	var out model.ElementIssue
	err := s.q(ctx).GetContext(ctx, &out, `
		INSERT INTO element_issues (element_id, code, severity) VALUES ($1, $2, $3)
		RETURNING `+issueColumns,
		elementID, code, severity)
	if err != nil {
		return nil, svcerrors.Database("insert issue", err)
	}
	return &out, nil
}

func (s *IssueStore) UpdateSeverity(ctx context.Context, id int64, severity int) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE element_issues SET severity = $2, updated_at = now() WHERE id = $1`, id, severity)
	if err != nil {
		return svcerrors.Database("update issue severity", err)
	}
	return nil
}

func (s *IssueStore) SoftDelete(ctx context.Context, id int64) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE element_issues SET deleted_at = now(), updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return svcerrors.Database("soft delete issue", err)
	}
	return nil
}

func (s *IssueStore) Undelete(ctx context.Context, id int64) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE element_issues SET deleted_at = NULL, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return svcerrors.Database("undelete issue", err)
	}
	return nil
}

// SoftDeleteAllForElement is used by Phase D on confirmed deletion.
func (s *IssueStore) SoftDeleteAllForElement(ctx context.Context, elementID int64) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE element_issues SET deleted_at = now(), updated_at = now()
		 WHERE element_id = $1 AND deleted_at IS NULL`, elementID)
	if err != nil {
		return svcerrors.Database("soft delete issues for element", err)
	}
	return nil
}

func (s *IssueStore) ListUpdatedSince(ctx context.Context, p ListingParams) ([]model.ElementIssue, error) {
	query := `SELECT ` + issueColumns + ` FROM element_issues WHERE updated_at > $1`
	if !p.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY updated_at, id LIMIT $2`

	var out []model.ElementIssue
	if err := s.q(ctx).SelectContext(ctx, &out, query, p.UpdatedSince, p.limitOrDefault()); err != nil {
		return nil, svcerrors.Database("list issues", err)
	}
	return out, nil
}

// CountActiveForElements is used by report generation's total_issues counter.
func (s *IssueStore) CountActiveForElements(ctx context.Context, elementIDs []int64) (int, error) {
	if len(elementIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlxIn(
		`SELECT count(*) FROM element_issues WHERE element_id IN (?) AND deleted_at IS NULL`, elementIDs)
	if err != nil {
		return 0, svcerrors.Database("count issues for elements", err)
	}
	var n int
	if err := s.q(ctx).GetContext(ctx, &n, s.db.Rebind(query), args...); err != nil {
		return 0, svcerrors.Database("count issues for elements", err)
	}
	return n, nil
}
