package feed

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/payplaces/directory/internal/model"
	"github.com/payplaces/directory/internal/store"
	svcerrors "github.com/payplaces/directory/pkg/errors"
)

// Deps is the store dependency every feed handler reads from.
type Deps struct {
	Store *store.Store
}

// Register mounts the four Atom feed routes on r.
func Register(r *mux.Router, deps Deps) {
	r.HandleFunc("/feeds/new-places", newPlacesHandler(deps, "")).Methods(http.MethodGet)
	r.HandleFunc("/feeds/new-places/{area}", newPlacesAreaHandler(deps)).Methods(http.MethodGet)
	r.HandleFunc("/feeds/new-comments", newCommentsHandler(deps, "")).Methods(http.MethodGet)
	r.HandleFunc("/feeds/new-comments/{area}", newCommentsAreaHandler(deps)).Methods(http.MethodGet)
}

func newPlacesAreaHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		newPlacesHandler(deps, mux.Vars(r)["area"])(w, r)
	}
}

func newCommentsAreaHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		newCommentsHandler(deps, mux.Vars(r)["area"])(w, r)
	}
}

func newPlacesHandler(deps Deps, areaAlias string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Oversample so that, once filtered to one area, there is still
		// a good chance of reaching maxEntries; a point created outside
		// the area's membership index is filtered out below.
		fetchLimit := maxEntries
		if areaAlias != "" {
			fetchLimit = maxEntries * 5
		}

		points, err := deps.Store.Points.ListRecentlyCreated(ctx, fetchLimit)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if areaAlias != "" {
			allowed, ok, err := elementIDsForArea(ctx, deps, areaAlias)
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if !ok {
				http.Error(w, "area not found", http.StatusNotFound)
				return
			}
			points = filterPointsByID(points, allowed)
		}

		entries := make([]entry, 0, len(points))
		for _, p := range points {
			entries = append(entries, pointEntry(p))
		}

		writeAtom(w, "New places", feedSelfLink(r), entries)
	}
}

func newCommentsHandler(deps Deps, areaAlias string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		fetchLimit := maxEntries
		if areaAlias != "" {
			fetchLimit = maxEntries * 5
		}

		comments, err := deps.Store.Comments.ListRecentlyCreated(ctx, fetchLimit)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		var allowed map[int64]bool
		if areaAlias != "" {
			a, ok, err := elementIDsForArea(ctx, deps, areaAlias)
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if !ok {
				http.Error(w, "area not found", http.StatusNotFound)
				return
			}
			allowed = a
		}

		entries := make([]entry, 0, len(comments))
		for _, c := range comments {
			if allowed != nil && !allowed[c.ElementID] {
				continue
			}
			entries = append(entries, commentEntry(c))
		}

		writeAtom(w, "New comments", feedSelfLink(r), entries)
	}
}

// elementIDsForArea resolves areaAlias to its current non-deleted
// point membership set. ok is false if the alias doesn't resolve to
// an area.
func elementIDsForArea(ctx context.Context, deps Deps, areaAlias string) (map[int64]bool, bool, error) {
	area, err := deps.Store.Areas.GetByAlias(ctx, areaAlias)
	if err != nil {
		if svcErr, ok := svcerrors.As(err); ok && svcErr.Kind == svcerrors.KindNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}

	mappings, err := deps.Store.AreaElements.ListForArea(ctx, area.ID)
	if err != nil {
		return nil, false, err
	}

	allowed := make(map[int64]bool, len(mappings))
	for _, m := range mappings {
		if !m.IsDeleted() {
			allowed[m.ElementID] = true
		}
	}
	return allowed, true, nil
}

func writeAtom(w http.ResponseWriter, title, selfLink string, entries []entry) {
	body, err := render(title, selfLink, entries)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func feedSelfLink(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + r.Host + r.URL.Path
}

func filterPointsByID(points []model.Point, allowed map[int64]bool) []model.Point {
	out := make([]model.Point, 0, len(points))
	for _, p := range points {
		if allowed[p.ID] {
			out = append(out, p)
		}
		if len(out) >= maxEntries {
			break
		}
	}
	return out
}

func pointEntry(p model.Point) entry {
	tags := p.MergedTags()
	name := tags.String("name")
	if name == "" {
		name = "Unnamed place"
	}
	return entry{
		Title:     name,
		ID:        "urn:directory:point:" + strconv.FormatInt(p.ID, 10),
		CreatedAt: p.CreatedAt,
		Link:      "https://www.openstreetmap.org/" + string(p.UpstreamKind) + "/" + strconv.FormatInt(p.UpstreamID, 10),
		Summary:   name,
	}
}

func commentEntry(c model.ElementComment) entry {
	return entry{
		Title:     "New comment",
		ID:        "urn:directory:comment:" + strconv.FormatInt(c.ID, 10),
		CreatedAt: c.CreatedAt,
		Link:      "",
		Summary:   c.Body,
	}
}
