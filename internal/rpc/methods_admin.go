package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/payplaces/directory/internal/issues"
	"github.com/payplaces/directory/internal/model"
	svcerrors "github.com/payplaces/directory/pkg/errors"
)

func handleSyncElements(ctx context.Context, d *Dispatcher, _ *callContext, _ json.RawMessage) (interface{}, error) {
	return d.syncEng.Run(ctx)
}

type addAdminParams struct {
	Name         string `json:"name"`
	PasswordHash string `json:"password_hash"`
}

func handleAddAdmin(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p addAdminParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.Name == "" || p.PasswordHash == "" {
		return nil, svcerrors.InvalidInput("name/password_hash", "must both be present")
	}
	return d.store.Users.Insert(ctx, p.Name, p.PasswordHash, model.RoleSet{model.RoleAdmin})
}

type allowedActionParams struct {
	TokenID int64  `json:"token_id"`
	Role    string `json:"role"`
}

// handleAddAllowedAction widens an access token's scoped role subset
// by one role, refusing to grant a role the owner User doesn't hold.
func handleAddAllowedAction(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p allowedActionParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	role := model.Role(p.Role)

	token, err := d.store.AccessTokens.Get(ctx, p.TokenID)
	if err != nil {
		return nil, err
	}
	owner, err := d.store.Users.Get(ctx, token.UserID)
	if err != nil {
		return nil, err
	}
	if !owner.HasRole(role) {
		return nil, svcerrors.Forbidden("owner does not hold the " + p.Role + " role")
	}
	if token.Roles.Contains(role) {
		return token, nil
	}
	roles := append(token.Roles, role)
	if err := d.store.AccessTokens.SetRoles(ctx, p.TokenID, roles); err != nil {
		return nil, err
	}
	return d.store.AccessTokens.Get(ctx, p.TokenID)
}

func handleRemoveAllowedAction(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p allowedActionParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	role := model.Role(p.Role)

	token, err := d.store.AccessTokens.Get(ctx, p.TokenID)
	if err != nil {
		return nil, err
	}
	remaining := make(model.RoleSet, 0, len(token.Roles))
	for _, r := range token.Roles {
		if r != role {
			remaining = append(remaining, r)
		}
	}
	if err := d.store.AccessTokens.SetRoles(ctx, p.TokenID, remaining); err != nil {
		return nil, err
	}
	return d.store.AccessTokens.Get(ctx, p.TokenID)
}

type getUserActivityParams struct {
	OsmUserID int64 `json:"osm_user_id"`
	Limit     int   `json:"limit"`
}

func handleGetUserActivity(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p getUserActivityParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return d.store.Events.ListForUser(ctx, p.OsmUserID, p.Limit)
}

type generateReportsParams struct {
	AreaID *int64 `json:"area_id"`
	Date   string `json:"date"`
}

type reportResult struct {
	AreaID             *int64 `json:"area_id"`
	Date               string `json:"date"`
	TotalElements      int    `json:"total_elements"`
	UpToDateElements   int    `json:"up_to_date_elements"`
	OutdatedElements   int    `json:"outdated_elements"`
	TotalIssues        int    `json:"total_issues"`
}

// handleGenerateReports computes and persists one report row — for an
// area's member points if area_id is set, otherwise across every
// active point (the global report).
func handleGenerateReports(ctx context.Context, d *Dispatcher, _ *callContext, raw json.RawMessage) (interface{}, error) {
	var p generateReportsParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	date := p.Date
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	var points []model.Point
	if p.AreaID != nil {
		mappings, err := d.store.AreaElements.ListForArea(ctx, *p.AreaID)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, 0, len(mappings))
		for _, m := range mappings {
			if !m.IsDeleted() {
				ids = append(ids, m.ElementID)
			}
		}
		pts, err := d.store.Points.ListByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		points = pts
	} else {
		pts, err := d.store.Points.ListAllActive(ctx)
		if err != nil {
			return nil, err
		}
		points = pts
	}

	outdated := 0
	elementIDs := make([]int64, 0, len(points))
	for i := range points {
		elementIDs = append(elementIDs, points[i].ID)
		for _, iss := range issues.Issues(&points[i]) {
			if iss.Code == issues.CodeOutdated {
				outdated++
				break
			}
		}
	}

	totalIssues, err := d.store.Issues.CountActiveForElements(ctx, elementIDs)
	if err != nil {
		return nil, err
	}

	tags := model.Tags{
		"total_elements":      len(points),
		"up_to_date_elements": len(points) - outdated,
		"outdated_elements":   outdated,
		"total_issues":        totalIssues,
	}
	if _, err := d.store.Reports.Upsert(ctx, p.AreaID, date, tags); err != nil {
		return nil, err
	}

	return reportResult{
		AreaID: p.AreaID, Date: date,
		TotalElements: len(points), UpToDateElements: len(points) - outdated,
		OutdatedElements: outdated, TotalIssues: totalIssues,
	}, nil
}
