package httpapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"

	"github.com/payplaces/directory/internal/model"
)

// fieldPaths maps a recognised projection field to the jsonpath
// expression evaluated against a point's JSON-ish document (built by
// pointDocument). Fields not listed here are computed directly in
// projectField since they either combine several tags (address) or
// come from the point row itself rather than its tags.
var fieldPaths = map[string]string{
	"name":           "$.tags.name",
	"phone":          "$.tags['contact:phone']",
	"website":        "$.tags['contact:website']",
	"twitter":        "$.tags['contact:twitter']",
	"facebook":       "$.tags['contact:facebook']",
	"instagram":      "$.tags['contact:instagram']",
	"line":           "$.tags['contact:line']",
	"email":          "$.tags['contact:email']",
	"opening_hours":  "$.tags['opening_hours']",
	"icon":           "$.tags['icon:android']",
	"required_app_url": "$.tags['payment:lightning:required_app_url']",
}

// pointDocument renders p as the generic map jsonpath evaluates
// against: the merged tag view under "tags". Row fields (id, lat, lon,
// timestamps) are not part of it; projectField reads those directly.
func pointDocument(p model.Point) map[string]interface{} {
	return map[string]interface{}{
		"tags": map[string]interface{}(p.MergedTags()),
	}
}

// projectPoint renders p down to the csv-requested field subset,
// omitting any field whose resolved value is missing or empty, per
// spec.md §6.
func projectPoint(p model.Point, fieldsCSV string) map[string]interface{} {
	out := make(map[string]interface{})
	doc := pointDocument(p)
	merged := p.MergedTags()

	for _, raw := range strings.Split(fieldsCSV, ",") {
		field := strings.TrimSpace(raw)
		if field == "" {
			continue
		}

		if strings.HasPrefix(field, "osm:") {
			tag := strings.TrimPrefix(field, "osm:")
			if v := merged.String(tag); v != "" {
				out[field] = v
			}
			continue
		}

		switch field {
		case "osm_id":
			out[field] = p.UpstreamID
		case "osm_url":
			out[field] = osmURL(p)
		case "lat":
			out[field] = p.Lat
		case "lon":
			out[field] = p.Lon
		case "address":
			if v := buildAddress(merged); v != "" {
				out[field] = v
			}
		case "boosted_until":
			if v := merged.String("boost:expires"); v != "" {
				out[field] = v
			}
		case "created_at":
			out[field] = p.CreatedAt.Format(time.RFC3339)
		case "updated_at":
			out[field] = p.UpdatedAt.Format(time.RFC3339)
		case "deleted_at":
			if p.DeletedAt != nil {
				out[field] = p.DeletedAt.Format(time.RFC3339)
			}
		case "verified_at":
			if v := p.VerificationDate(); v != nil {
				out[field] = v.Format(time.RFC3339)
			}
		case "comments":
			// Recognised but always omitted: a comment count needs a
			// store round trip this pure projection doesn't have, and no
			// caller fills it in.
		default:
			expr, ok := fieldPaths[field]
			if !ok {
				continue
			}
			v, err := jsonpath.Get(expr, doc)
			if err != nil {
				continue
			}
			if s, ok := v.(string); ok {
				if s == "" {
					continue
				}
				out[field] = s
			} else if v != nil {
				out[field] = v
			}
		}
	}

	return out
}

func projectPoints(points []model.Point, fieldsCSV string) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(points))
	for _, p := range points {
		out = append(out, projectPoint(p, fieldsCSV))
	}
	return out
}

func osmURL(p model.Point) string {
	return "https://www.openstreetmap.org/" + string(p.UpstreamKind) + "/" + strconv.FormatInt(p.UpstreamID, 10)
}

// buildAddress composes a single-line address from the standard
// addr:* tag set, in "street housenumber, city" order.
func buildAddress(tags model.Tags) string {
	housenumber := tags.String("addr:housenumber")
	street := tags.String("addr:street")
	city := tags.String("addr:city")

	var line string
	switch {
	case housenumber != "" && street != "":
		line = street + " " + housenumber
	case street != "":
		line = street
	}

	if city == "" {
		return line
	}
	if line == "" {
		return city
	}
	return line + ", " + city
}
