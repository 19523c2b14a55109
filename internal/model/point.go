// Package model defines the persisted entities of the directory: the
// shapes every store, service and handler package operates on.
package model

import (
	"strconv"
	"time"
)

// UpstreamKind is the type of OpenStreetMap-style primitive a Point
// was sourced from.
type UpstreamKind string

const (
	UpstreamKindNode     UpstreamKind = "node"
	UpstreamKindWay      UpstreamKind = "way"
	UpstreamKindRelation UpstreamKind = "relation"
)

// Tags is a schemaless string-to-JSON-value map, stored as jsonb.
// Upstream tag evolution never requires a schema migration.
type Tags map[string]interface{}

// String returns the string value of key, or "" if absent or not a string.
func (t Tags) String(key string) string {
	if t == nil {
		return ""
	}
	v, ok := t[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Has reports whether key is present in t.
func (t Tags) Has(key string) bool {
	if t == nil {
		return false
	}
	_, ok := t[key]
	return ok
}

// Merge returns a new Tags with patch merged in (new keys added,
// existing overwritten), implementing the store's patch_tags semantics.
func (t Tags) Merge(patch Tags) Tags {
	out := make(Tags, len(t)+len(patch))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// WithoutKey returns a copy of t with key removed.
func (t Tags) WithoutKey(key string) Tags {
	out := make(Tags, len(t))
	for k, v := range t {
		if k != key {
			out[k] = v
		}
	}
	return out
}

// UpstreamElement is the verbatim snapshot of a point as returned by
// the upstream client, before it is attached to a local Point row.
type UpstreamElement struct {
	Kind       UpstreamKind
	ID         int64
	Lat        float64
	Lon        float64
	Tags       Tags
	ChangesetID int64
	AuthorID   int64
	Visible    *bool // nil when the snapshot source doesn't carry visibility
}

// PaymentTagKey is the upstream tag this directory filters and
// monitors points by.
const PaymentTagKey = "currency:XBT"

// Key identifies an UpstreamElement or Point by its external identity.
type Key struct {
	Kind UpstreamKind
	ID   int64
}

func (k Key) String() string {
	return string(k.Kind) + ":" + strconv.FormatInt(k.ID, 10)
}

// Point is the atom of interest: a geocoded place carrying a payment
// method tag in upstream data.
type Point struct {
	ID int64 `db:"id" json:"id"`

	UpstreamKind UpstreamKind `db:"upstream_kind" json:"upstream_kind"`
	UpstreamID   int64        `db:"upstream_id" json:"upstream_id"`

	// OverpassSnapshot is the verbatim upstream payload: tags,
	// coordinates, changeset, author id. Immutable during one sync
	// cycle; overwritten wholesale by Phase U.
	OverpassSnapshot Tags  `db:"overpass_snapshot" json:"overpass_snapshot"`
	ChangesetID      int64 `db:"changeset_id" json:"changeset_id"`
	AuthorID         int64 `db:"author_id" json:"author_id"`

	// Lat/Lon are derived from OverpassSnapshot's geometry (centroid
	// for ways/relations) and must always match it.
	Lat float64 `db:"lat" json:"lat"`
	Lon float64 `db:"lon" json:"lon"`

	// Tags is the mutable local tag map (category, icon:android,
	// boost:expires, and any user-set overrides).
	Tags Tags `db:"tags" json:"tags"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Key returns the point's external identity.
func (p *Point) Key() Key {
	return Key{Kind: p.UpstreamKind, ID: p.UpstreamID}
}

// IsDeleted reports whether the point is soft-deleted.
func (p *Point) IsDeleted() bool { return p.DeletedAt != nil }

// MergedTags returns the upstream snapshot tags overlaid with local
// overrides (local Tags wins on key collision), the view every rule
// and classifier outside the sync engine's snapshot-overwrite step
// should read rather than either map alone.
func (p *Point) MergedTags() Tags {
	return p.OverpassSnapshot.Merge(p.Tags)
}

// VerificationDate returns the latest parseable ISO date among
// survey:date, check_date, check_date:currency:XBT, or nil if none
// parses.
func (p *Point) VerificationDate() *time.Time {
	return latestISODate(p.MergedTags(), "survey:date", "check_date", "check_date:currency:XBT")
}

func latestISODate(tags Tags, keys ...string) *time.Time {
	var latest *time.Time
	for _, k := range keys {
		v := tags.String(k)
		if v == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			continue
		}
		if latest == nil || t.After(*latest) {
			latest = &t
		}
	}
	return latest
}

// IsISODate reports whether v parses as an ISO 8601 date (YYYY-MM-DD).
func IsISODate(v string) bool {
	_, err := time.Parse("2006-01-02", v)
	return err == nil
}
