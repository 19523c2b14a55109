package store

import "time"

// ListingParams are the parameters shared by every entity's
// select_updated_since listing method.
type ListingParams struct {
	UpdatedSince   time.Time
	Limit          int
	IncludeDeleted bool
}

func (p ListingParams) limitOrDefault() int {
	if p.Limit <= 0 || p.Limit > 10000 {
		return 1000
	}
	return p.Limit
}
