package classify

import "github.com/payplaces/directory/internal/model"

// Category returns the coarse category string for a point's upstream
// tags, or "other" if nothing in the cascade matches. The original
// classifier this is grounded on only special-cased amenity=atm;
// this cascade extends it to the small set of amenity/tourism values
// common among payment-accepting points, per the specification's
// category table.
func Category(tags model.Tags) string {
	amenity := tags.String("amenity")
	tourism := tags.String("tourism")
	shop := tags.String("shop")

	switch amenity {
	case "atm":
		return "atm"
	case "cafe":
		return "cafe"
	case "restaurant":
		return "restaurant"
	case "bar", "pub":
		return "bar"
	case "fuel":
		return "fuel"
	case "pharmacy":
		return "pharmacy"
	case "bank":
		return "bank"
	case "marketplace":
		return "marketplace"
	}

	if tourism == "hotel" {
		return "hotel"
	}
	if shop != "" {
		return "shop"
	}

	return "other"
}
