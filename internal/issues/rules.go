// Package issues implements the pure quality rule-set over a point's
// tags (spec.md §4.4) and the reconciler that keeps persisted
// ElementIssue rows in sync with the rule-set's current output.
package issues

import (
	"fmt"

	"github.com/payplaces/directory/internal/model"
)

const (
	CodeInvalidSurveyDate        = "invalid_tag_value:survey:date"
	CodeInvalidCheckDate         = "invalid_tag_value:check_date"
	CodeInvalidCheckDateXBT      = "invalid_tag_value:check_date:currency:XBT"
	CodeMisspelledPaymentLightng = "misspelled_tag_name:payment:lighting"
	CodeMisspelledLightningTypo  = "misspelled_tag_name:lightning_contacless"
	CodeMisspelledLightingTypo   = "misspelled_tag_name:lighting_contactless"
	CodeMissingIcon              = "missing_icon"
	CodeNotVerified              = "not_verified"
	CodeOutdated                 = "outdated"
	CodeOutdatedSoon             = "outdated_soon"

	SeverityInvalidTagValue  = 600
	SeverityMisspelledTag    = 500
	SeverityMissingIcon      = 400
	SeverityNotVerified      = 300
	SeverityOutdated         = 200
	SeverityOutdatedSoon     = 100
)

const (
	outdatedAfterDays     = 365
	outdatedSoonStartDays = 275
)

// Issues runs every rule in spec.md's table against p's current tags
// and returns the stable set of findings. Pure: no I/O, no randomness.
func Issues(p *model.Point) []model.Issue {
	var out []model.Issue
	tags := p.MergedTags()

	if v := tags.String("survey:date"); v != "" && !model.IsISODate(v) {
		out = append(out, model.Issue{
			Code: CodeInvalidSurveyDate, Severity: SeverityInvalidTagValue,
			Description: fmt.Sprintf("survey:date value %q is not a valid ISO 8601 date", v),
		})
	}
	if v := tags.String("check_date"); v != "" && !model.IsISODate(v) {
		out = append(out, model.Issue{
			Code: CodeInvalidCheckDate, Severity: SeverityInvalidTagValue,
			Description: fmt.Sprintf("check_date value %q is not a valid ISO 8601 date", v),
		})
	}
	if v := tags.String("check_date:currency:XBT"); v != "" && !model.IsISODate(v) {
		out = append(out, model.Issue{
			Code: CodeInvalidCheckDateXBT, Severity: SeverityInvalidTagValue,
			Description: fmt.Sprintf("check_date:currency:XBT value %q is not a valid ISO 8601 date", v),
		})
	}

	if tags.Has("payment:lighting") {
		out = append(out, model.Issue{
			Code: CodeMisspelledPaymentLightng, Severity: SeverityMisspelledTag,
			Description: "tag name payment:lighting is a misspelling of payment:lightning",
		})
	}
	if tags.Has("payment:lightning_contacless") {
		out = append(out, model.Issue{
			Code: CodeMisspelledLightningTypo, Severity: SeverityMisspelledTag,
			Description: "tag name payment:lightning_contacless is a misspelling of payment:lightning_contactless",
		})
	}
	if tags.Has("payment:lighting_contactless") {
		out = append(out, model.Issue{
			Code: CodeMisspelledLightingTypo, Severity: SeverityMisspelledTag,
			Description: "tag name payment:lighting_contactless is a misspelling of payment:lightning_contactless",
		})
	}

	icon := tags.String("icon:android")
	if icon == "" || icon == "question_mark" {
		out = append(out, model.Issue{
			Code: CodeMissingIcon, Severity: SeverityMissingIcon,
			Description: "could not classify an Android icon for this point",
		})
	}

	verifiedAt := p.VerificationDate()
	switch {
	case verifiedAt == nil:
		out = append(out, model.Issue{
			Code: CodeNotVerified, Severity: SeverityNotVerified,
			Description: "point has never been surveyed or check-dated",
		})
	default:
		ageDays := int(daysSince(*verifiedAt))
		switch {
		case ageDays > outdatedAfterDays:
			out = append(out, model.Issue{
				Code: CodeOutdated, Severity: SeverityOutdated,
				Description: fmt.Sprintf("last verified %d days ago, exceeds %d day threshold", ageDays, outdatedAfterDays),
			})
		case ageDays >= outdatedSoonStartDays:
			out = append(out, model.Issue{
				Code: CodeOutdatedSoon, Severity: SeverityOutdatedSoon,
				Description: fmt.Sprintf("last verified %d days ago, will become outdated soon", ageDays),
			})
		}
	}

	return out
}
