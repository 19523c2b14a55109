package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/payplaces/directory/internal/model"
	"github.com/payplaces/directory/internal/store"
	svcerrors "github.com/payplaces/directory/pkg/errors"
)

// resource describes one entity class's read API surface: list (the
// updated_since/limit/include_deleted scan) and get-by-id.
type resource struct {
	list func(ctx context.Context, p store.ListingParams) (interface{}, error)
	get  func(ctx context.Context, id int64) (interface{}, error)
}

func resourceTable(st *store.Store) map[string]resource {
	return map[string]resource{
		"points": {
			list: func(ctx context.Context, p store.ListingParams) (interface{}, error) {
				return st.Points.ListUpdatedSince(ctx, p)
			},
			get: func(ctx context.Context, id int64) (interface{}, error) {
				return st.Points.Get(ctx, id)
			},
		},
		"areas": {
			list: func(ctx context.Context, p store.ListingParams) (interface{}, error) {
				return st.Areas.ListUpdatedSince(ctx, p)
			},
			get: func(ctx context.Context, id int64) (interface{}, error) {
				return st.Areas.Get(ctx, id)
			},
		},
		"events": {
			list: func(ctx context.Context, p store.ListingParams) (interface{}, error) {
				return st.Events.ListUpdatedSince(ctx, p)
			},
			get: func(ctx context.Context, id int64) (interface{}, error) {
				return st.Events.Get(ctx, id)
			},
		},
		"comments": {
			list: func(ctx context.Context, p store.ListingParams) (interface{}, error) {
				return st.Comments.ListUpdatedSince(ctx, p)
			},
			get: func(ctx context.Context, id int64) (interface{}, error) {
				c, err := st.Comments.Get(ctx, id)
				if err != nil {
					return nil, err
				}
				if c.Hidden {
					return nil, svcerrors.Paywall(fmt.Sprintf("element_comment:%d", id))
				}
				return c, nil
			},
		},
		"issues": {
			list: func(ctx context.Context, p store.ListingParams) (interface{}, error) {
				return st.Issues.ListUpdatedSince(ctx, p)
			},
			get: nil, // issues have no single-item getter in the spec's resource model
		},
		"users": {
			list: func(ctx context.Context, p store.ListingParams) (interface{}, error) {
				return st.OsmUsers.ListUpdatedSince(ctx, p)
			},
			get: func(ctx context.Context, id int64) (interface{}, error) {
				return st.OsmUsers.Get(ctx, id)
			},
		},
		"reports": {
			list: func(ctx context.Context, p store.ListingParams) (interface{}, error) {
				return st.Reports.ListUpdatedSince(ctx, p)
			},
			get: func(ctx context.Context, id int64) (interface{}, error) {
				return st.Reports.Get(ctx, id)
			},
		},
	}
}

func registerResourceRoutes(r *mux.Router, deps Deps) {
	table := resourceTable(deps.Store)

	for name, res := range table {
		name, res := name, res
		r.HandleFunc("/"+name, listHandler(name, res)).Methods(http.MethodGet)
		if res.get != nil {
			r.HandleFunc("/"+name+"/{id}", getHandler(name, res)).Methods(http.MethodGet)
		}
	}
}

func listHandler(name string, res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := parseListingParams(r)
		if err != nil {
			writeJSONError(w, err)
			return
		}

		items, err := res.list(r.Context(), p)
		if err != nil {
			writeJSONError(w, err)
			return
		}

		if name == "points" {
			if fields := r.URL.Query().Get("fields"); fields != "" {
				points, _ := items.([]model.Point)
				writeJSON(w, http.StatusOK, projectPoints(points, fields))
				return
			}
		}

		writeJSON(w, http.StatusOK, items)
	}
}

func getHandler(name string, res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := mux.Vars(r)["id"]
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			writeJSONError(w, svcerrors.InvalidInput("id", "must be an integer"))
			return
		}

		item, err := res.get(r.Context(), id)
		if err != nil {
			writeJSONError(w, err)
			return
		}

		if name == "points" {
			if fields := r.URL.Query().Get("fields"); fields != "" {
				p, _ := item.(*model.Point)
				writeJSON(w, http.StatusOK, projectPoint(*p, fields))
				return
			}
		}

		writeJSON(w, http.StatusOK, item)
	}
}

// parseListingParams reads updated_since (RFC3339, defaulting to the
// epoch), limit, and include_deleted from the query string.
func parseListingParams(r *http.Request) (store.ListingParams, error) {
	q := r.URL.Query()

	p := store.ListingParams{UpdatedSince: time.Unix(0, 0).UTC()}

	if raw := q.Get("updated_since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return p, svcerrors.InvalidInput("updated_since", "must be RFC3339")
		}
		p.UpdatedSince = t
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p, svcerrors.InvalidInput("limit", "must be an integer")
		}
		p.Limit = n
	}

	if raw := q.Get("include_deleted"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return p, svcerrors.InvalidInput("include_deleted", "must be a boolean")
		}
		p.IncludeDeleted = b
	}

	return p, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, err error) {
	svcErr, ok := svcerrors.As(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": map[string]string{"code": "internal", "message": "internal error"},
		})
		return
	}
	writeJSON(w, svcErr.HTTPStatus, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    string(svcErr.Kind),
			"message": svcErr.Message,
			"details": svcErr.Details,
		},
	})
}
