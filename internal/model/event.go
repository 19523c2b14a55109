package model

import "time"

// EventKind is the kind of attribution an Event records.
type EventKind string

const (
	EventKindCreate EventKind = "create"
	EventKindUpdate EventKind = "update"
	EventKindDelete EventKind = "delete"
)

// Event is an append-only attribution record: a user caused a change
// of some kind to a point. Never updated after insertion except for
// tag patches used for backfill.
type Event struct {
	ID int64 `db:"id" json:"id"`

	UserID    int64     `db:"user_id" json:"user_id"`
	ElementID int64     `db:"element_id" json:"element_id"`
	Kind      EventKind `db:"kind" json:"kind"`
	Tags      Tags      `db:"tags" json:"tags"` // element_osm_type, element_osm_id, element_name, preserved area list at delete time

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// ElementIssue is a materialised quality finding for a point. At most
// one non-deleted row per (element_id, code).
type ElementIssue struct {
	ID int64 `db:"id" json:"id"`

	ElementID int64  `db:"element_id" json:"element_id"`
	Code      string `db:"code" json:"code"`
	Severity  int    `db:"severity" json:"severity"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (i *ElementIssue) IsDeleted() bool { return i.DeletedAt != nil }

// Issue is the pure rule-engine output before it is reconciled against
// persisted ElementIssue rows.
type Issue struct {
	Code        string `json:"code"`
	Severity    int    `json:"severity"`
	Description string `json:"description"`
}
