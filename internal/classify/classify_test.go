package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/payplaces/directory/internal/model"
)

func TestCategory(t *testing.T) {
	cases := []struct {
		name string
		tags model.Tags
		want string
	}{
		{"cafe", model.Tags{"amenity": "cafe"}, "cafe"},
		{"pub is bar", model.Tags{"amenity": "pub"}, "bar"},
		{"hotel via tourism", model.Tags{"tourism": "hotel"}, "hotel"},
		{"generic shop", model.Tags{"shop": "convenience"}, "shop"},
		{"unmatched falls to other", model.Tags{"amenity": "fire_station"}, "other"},
		{"empty tags falls to other", model.Tags{}, "other"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Category(tc.tags))
		})
	}
}

func TestIcon_DefaultsToQuestionMark(t *testing.T) {
	assert.Equal(t, "question_mark", Icon(model.Tags{}))
}

func TestIcon_MoreSpecificRuleOverridesEarlierDefault(t *testing.T) {
	// building=commercial sets "business" early in the cascade; a later,
	// more specific amenity=cafe rule must win.
	got := Icon(model.Tags{"building": "commercial", "amenity": "cafe"})
	assert.Equal(t, "local_cafe", got)
}

func TestIcon_Storefront(t *testing.T) {
	assert.Equal(t, "storefront", Icon(model.Tags{"landuse": "retail"}))
}
