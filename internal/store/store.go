package store

import "github.com/jmoiron/sqlx"

// Store bundles every entity store behind the shared transactional
// Base so service packages take one dependency instead of one per
// entity. Construct once per process and pass down through context,
// never through an ambient singleton.
type Store struct {
	Base

	Points        *PointStore
	Areas         *AreaStore
	AreaElements  *AreaElementStore
	Events        *EventStore
	Issues        *IssueStore
	Invoices      *InvoiceStore
	Comments      *ElementCommentStore
	OsmUsers      *OsmUserStore
	Users         *UserStore
	AccessTokens  *AccessTokenStore
	Conf          *ConfStore
	Reports       *ReportStore
}

// New builds a Store wired to db.
func New(db *sqlx.DB) *Store {
	base := NewBase(db)
	return &Store{
		Base:         base,
		Points:       NewPointStore(base),
		Areas:        NewAreaStore(base),
		AreaElements: NewAreaElementStore(base),
		Events:       NewEventStore(base),
		Issues:       NewIssueStore(base),
		Invoices:     NewInvoiceStore(base),
		Comments:     NewElementCommentStore(base),
		OsmUsers:     NewOsmUserStore(base),
		Users:        NewUserStore(base),
		AccessTokens: NewAccessTokenStore(base),
		Conf:         NewConfStore(base),
		Reports:      NewReportStore(base),
	}
}
