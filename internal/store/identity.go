package store

import (
	"context"
	"fmt"

	"github.com/payplaces/directory/internal/model"
	svcerrors "github.com/payplaces/directory/pkg/errors"
)

// OsmUserStore caches external editing-API identities.
type OsmUserStore struct{ Base }

func NewOsmUserStore(base Base) *OsmUserStore { return &OsmUserStore{base} }

const osmUserColumns = `id, external_id, tags, created_at, updated_at, deleted_at`

func (s *OsmUserStore) Get(ctx context.Context, id int64) (*model.OsmUser, error) {
	var u model.OsmUser
	err := s.q(ctx).GetContext(ctx, &u, `SELECT `+osmUserColumns+` FROM osm_users WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, svcerrors.Database("get osm user", err)
	}
	return &u, nil
}

func (s *OsmUserStore) GetByExternalID(ctx context.Context, externalID int64) (*model.OsmUser, error) {
	var u model.OsmUser
	err := s.q(ctx).GetContext(ctx, &u, `SELECT `+osmUserColumns+` FROM osm_users WHERE external_id = $1`, externalID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, svcerrors.Database("get osm user", err)
	}
	return &u, nil
}

func (s *OsmUserStore) Insert(ctx context.Context, externalID int64, tags model.Tags) (*model.OsmUser, error) {
	var out model.OsmUser
	err := s.q(ctx).GetContext(ctx, &out, `
		INSERT INTO osm_users (external_id, tags) VALUES ($1, $2)
		ON CONFLICT (external_id) DO UPDATE SET tags = osm_users.tags
		RETURNING `+osmUserColumns,
		externalID, tags)
	if err != nil {
		return nil, svcerrors.Database("insert osm user", err)
	}
	return &out, nil
}

func (s *OsmUserStore) PatchTags(ctx context.Context, id int64, patch model.Tags) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE osm_users SET tags = tags || $2::jsonb, updated_at = now() WHERE id = $1`, id, patch)
	if err != nil {
		return svcerrors.Database("patch osm user tags", err)
	}
	return nil
}

func (s *OsmUserStore) ListUpdatedSince(ctx context.Context, p ListingParams) ([]model.OsmUser, error) {
	query := `SELECT ` + osmUserColumns + ` FROM osm_users WHERE updated_at > $1`
	if !p.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY updated_at, id LIMIT $2`

	var out []model.OsmUser
	if err := s.q(ctx).SelectContext(ctx, &out, query, p.UpdatedSince, p.limitOrDefault()); err != nil {
		return nil, svcerrors.Database("list osm users", err)
	}
	return out, nil
}

// UserStore persists local admin identities and their bearer tokens.
type UserStore struct{ Base }

func NewUserStore(base Base) *UserStore { return &UserStore{base} }

const userColumns = `id, name, password_hash, roles, created_at, updated_at, deleted_at`

func (s *UserStore) Get(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := s.q(ctx).GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, svcerrors.NotFound("user", fmt.Sprint(id))
	}
	if err != nil {
		return nil, svcerrors.Database("get user", err)
	}
	return &u, nil
}

func (s *UserStore) GetByName(ctx context.Context, name string) (*model.User, error) {
	var u model.User
	err := s.q(ctx).GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE name = $1`, name)
	if isNoRows(err) {
		return nil, svcerrors.NotFound("user", name)
	}
	if err != nil {
		return nil, svcerrors.Database("get user by name", err)
	}
	return &u, nil
}

func (s *UserStore) Insert(ctx context.Context, name, passwordHash string, roles model.RoleSet) (*model.User, error) {
	var out model.User
	err := s.q(ctx).GetContext(ctx, &out, `
		INSERT INTO users (name, password_hash, roles) VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		name, passwordHash, roles)
	if err != nil {
		return nil, svcerrors.Database("insert user", err)
	}
	return &out, nil
}

func (s *UserStore) AddRole(ctx context.Context, id int64, role model.Role) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.HasRole(role) {
		return nil
	}
	roles := append(user.Roles, role)
	_, execErr := s.q(ctx).ExecContext(ctx,
		`UPDATE users SET roles = $2, updated_at = now() WHERE id = $1`, id, model.RoleSet(roles))
	if execErr != nil {
		return svcerrors.Database("add user role", execErr)
	}
	return nil
}

// AccessTokenStore persists bearer tokens scoped to a subset of their
// owner's roles.
type AccessTokenStore struct{ Base }

func NewAccessTokenStore(base Base) *AccessTokenStore { return &AccessTokenStore{base} }

const accessTokenColumns = `id, user_id, secret, label, roles, created_at, updated_at, deleted_at`

// GetBySecret resolves a bearer token's secret to its row, excluding
// soft-deleted (revoked) tokens.
func (s *AccessTokenStore) GetBySecret(ctx context.Context, secret string) (*model.AccessToken, error) {
	var t model.AccessToken
	err := s.q(ctx).GetContext(ctx, &t,
		`SELECT `+accessTokenColumns+` FROM access_tokens WHERE secret = $1 AND deleted_at IS NULL`, secret)
	if isNoRows(err) {
		return nil, svcerrors.Unauthorized("unknown or revoked access token")
	}
	if err != nil {
		return nil, svcerrors.Database("get access token", err)
	}
	return &t, nil
}

func (s *AccessTokenStore) Get(ctx context.Context, id int64) (*model.AccessToken, error) {
	var t model.AccessToken
	err := s.q(ctx).GetContext(ctx, &t,
		`SELECT `+accessTokenColumns+` FROM access_tokens WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, svcerrors.NotFound("access token", fmt.Sprint(id))
	}
	if err != nil {
		return nil, svcerrors.Database("get access token", err)
	}
	return &t, nil
}

func (s *AccessTokenStore) Insert(ctx context.Context, userID int64, secret, label string, roles model.RoleSet) (*model.AccessToken, error) {
	var out model.AccessToken
	err := s.q(ctx).GetContext(ctx, &out, `
		INSERT INTO access_tokens (user_id, secret, label, roles) VALUES ($1, $2, $3, $4)
		RETURNING `+accessTokenColumns,
		userID, secret, label, roles)
	if err != nil {
		return nil, svcerrors.Database("insert access token", err)
	}
	return &out, nil
}

// SetRoles replaces a token's scoped role subset. Callers are
// responsible for checking it remains a subset of the owner's roles.
func (s *AccessTokenStore) SetRoles(ctx context.Context, id int64, roles model.RoleSet) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE access_tokens SET roles = $2, updated_at = now() WHERE id = $1`, id, roles)
	if err != nil {
		return svcerrors.Database("set access token roles", err)
	}
	return nil
}

func (s *AccessTokenStore) Revoke(ctx context.Context, id int64) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE access_tokens SET deleted_at = now(), updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return svcerrors.Database("revoke access token", err)
	}
	return nil
}

// ConfStore reads/patches the singleton Conf row.
type ConfStore struct{ Base }

func NewConfStore(base Base) *ConfStore { return &ConfStore{base} }

func (s *ConfStore) Get(ctx context.Context) (*model.Conf, error) {
	var c model.Conf
	err := s.q(ctx).GetContext(ctx, &c, `SELECT id, tags, created_at, updated_at FROM conf ORDER BY id LIMIT 1`)
	if err != nil {
		return nil, svcerrors.Database("get conf", err)
	}
	return &c, nil
}

func (s *ConfStore) PatchTags(ctx context.Context, id int64, patch model.Tags) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE conf SET tags = tags || $2::jsonb, updated_at = now() WHERE id = $1`, id, patch)
	if err != nil {
		return svcerrors.Database("patch conf", err)
	}
	return nil
}

// ReportStore persists per-area and global daily report rows.
type ReportStore struct{ Base }

func NewReportStore(base Base) *ReportStore { return &ReportStore{base} }

const reportColumns = `id, area_id, date, tags, created_at, updated_at, deleted_at`

func (s *ReportStore) Get(ctx context.Context, id int64) (*model.Report, error) {
	var r model.Report
	err := s.q(ctx).GetContext(ctx, &r, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, svcerrors.NotFound("report", fmt.Sprint(id))
	}
	if err != nil {
		return nil, svcerrors.Database("get report", err)
	}
	return &r, nil
}

// Upsert inserts or replaces the report row for (areaID, date); areaID
// nil means the global report.
func (s *ReportStore) Upsert(ctx context.Context, areaID *int64, date string, tags model.Tags) (*model.Report, error) {
	var out model.Report
	err := s.q(ctx).GetContext(ctx, &out, `
		INSERT INTO reports (area_id, date, tags) VALUES ($1, $2, $3)
		ON CONFLICT (COALESCE(area_id, 0), date) DO UPDATE SET tags = $3, updated_at = now(), deleted_at = NULL
		RETURNING `+reportColumns,
		areaID, date, tags)
	if err != nil {
		return nil, svcerrors.Database("upsert report", err)
	}
	return &out, nil
}

func (s *ReportStore) ListForArea(ctx context.Context, areaID int64, limit int) ([]model.Report, error) {
	if limit <= 0 {
		limit = 30
	}
	var out []model.Report
	err := s.q(ctx).SelectContext(ctx, &out,
		`SELECT `+reportColumns+` FROM reports WHERE area_id = $1 AND deleted_at IS NULL ORDER BY date DESC LIMIT $2`,
		areaID, limit)
	if err != nil {
		return nil, svcerrors.Database("list reports for area", err)
	}
	return out, nil
}

func (s *ReportStore) ListUpdatedSince(ctx context.Context, p ListingParams) ([]model.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE updated_at > $1`
	if !p.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY updated_at, id LIMIT $2`

	var out []model.Report
	if err := s.q(ctx).SelectContext(ctx, &out, query, p.UpdatedSince, p.limitOrDefault()); err != nil {
		return nil, svcerrors.Database("list reports", err)
	}
	return out, nil
}
