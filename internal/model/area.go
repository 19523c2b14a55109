package model

import "time"

// Area is a named polygonal region. url_alias is unique and immutable
// after creation.
type Area struct {
	ID int64 `db:"id" json:"id"`

	URLAlias string `db:"url_alias" json:"url_alias"`
	Tags     Tags   `db:"tags" json:"tags"` // includes the mandatory url_alias and geo_json entries

	// BBox is recomputed on every geometry write; it is the cache that
	// makes AreasContaining tractable across thousands of areas.
	West  float64 `db:"bbox_west" json:"bbox_west"`
	South float64 `db:"bbox_south" json:"bbox_south"`
	East  float64 `db:"bbox_east" json:"bbox_east"`
	North float64 `db:"bbox_north" json:"bbox_north"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (a *Area) IsDeleted() bool { return a.DeletedAt != nil }

// IsGlobalSentinel reports whether this is the "earth" area, which is
// never auto-mapped by AreasContaining.
func (a *Area) IsGlobalSentinel() bool { return a.URLAlias == "earth" }

// GeoJSON returns the raw geo_json tag value.
func (a *Area) GeoJSON() interface{} {
	if a.Tags == nil {
		return nil
	}
	return a.Tags["geo_json"]
}

// AreaElement is an n:m link indicating "this point lies in this
// area". (area_id, element_id) is unique across non-deleted rows.
type AreaElement struct {
	ID int64 `db:"id" json:"id"`

	AreaID    int64 `db:"area_id" json:"area_id"`
	ElementID int64 `db:"element_id" json:"element_id"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (ae *AreaElement) IsDeleted() bool { return ae.DeletedAt != nil }
