// Package feed renders Atom 1.0 XML feeds of recently created points
// and comments, globally or scoped to one area, per spec.md §6.
package feed

import (
	"encoding/xml"
	"time"
)

const maxEntries = 100

// atomFeed is the XML shape of one Atom 1.0 feed document.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	XMLNS   string      `xml:"xmlns,attr"`
	Title   string      `xml:"title"`
	ID      string      `xml:"id"`
	Updated string      `xml:"updated"`
	Link    atomLink    `xml:"link"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr,omitempty"`
}

type atomEntry struct {
	Title   string   `xml:"title"`
	ID      string   `xml:"id"`
	Updated string   `xml:"updated"`
	Link    atomLink `xml:"link"`
	Summary string   `xml:"summary"`
}

// entry is the feed-agnostic input one point or comment is rendered
// from.
type entry struct {
	Title     string
	ID        string
	CreatedAt time.Time
	Link      string
	Summary   string
}

// render marshals title/selfLink plus entries (already ordered newest
// first by the caller) into Atom 1.0 XML, keeping at most maxEntries.
func render(title, selfLink string, entries []entry) ([]byte, error) {
	if len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}

	feedUpdated := time.Time{}
	atomEntries := make([]atomEntry, 0, len(entries))
	for _, e := range entries {
		if e.CreatedAt.After(feedUpdated) {
			feedUpdated = e.CreatedAt
		}
		atomEntries = append(atomEntries, atomEntry{
			Title:   e.Title,
			ID:      e.ID,
			Updated: e.CreatedAt.Format(time.RFC3339),
			Link:    atomLink{Href: e.Link},
			Summary: e.Summary,
		})
	}
	if feedUpdated.IsZero() {
		feedUpdated = time.Unix(0, 0).UTC()
	}

	f := atomFeed{
		XMLNS:   "http://www.w3.org/2005/Atom",
		Title:   title,
		ID:      selfLink,
		Updated: feedUpdated.Format(time.RFC3339),
		Link:    atomLink{Href: selfLink, Rel: "self"},
		Entries: atomEntries,
	}

	body, err := xml.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
