package issues

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payplaces/directory/internal/model"
)

func pointWithTags(tags model.Tags) *model.Point {
	return &model.Point{ID: 1, OverpassSnapshot: model.Tags{}, Tags: tags}
}

func TestIssues_InvalidDates(t *testing.T) {
	p := pointWithTags(model.Tags{
		"survey:date":             "not-a-date",
		"check_date":              "2024-13-40",
		"check_date:currency:XBT": "2024-01-15",
		"icon:android":            "cafe",
	})
	found := Issues(p)

	codes := codeSet(found)
	assert.Contains(t, codes, CodeInvalidSurveyDate)
	assert.Contains(t, codes, CodeInvalidCheckDate)
	assert.NotContains(t, codes, CodeInvalidCheckDateXBT, "check_date:currency:XBT parses fine, so it shouldn't be flagged")
}

func TestIssues_MisspelledTagNames(t *testing.T) {
	p := pointWithTags(model.Tags{
		"payment:lighting":             "yes",
		"payment:lightning_contacless": "yes",
		"payment:lighting_contactless": "yes",
		"icon:android":                 "cafe",
		"check_date":                   time.Now().UTC().Format("2006-01-02"),
	})
	codes := codeSet(Issues(p))

	assert.Contains(t, codes, CodeMisspelledPaymentLightng)
	assert.Contains(t, codes, CodeMisspelledLightningTypo)
	assert.Contains(t, codes, CodeMisspelledLightingTypo)
}

func TestIssues_MissingIcon(t *testing.T) {
	for _, icon := range []string{"", "question_mark"} {
		p := pointWithTags(model.Tags{"icon:android": icon, "check_date": time.Now().UTC().Format("2006-01-02")})
		assert.Contains(t, codeSet(Issues(p)), CodeMissingIcon, "icon %q should be flagged", icon)
	}

	p := pointWithTags(model.Tags{"icon:android": "cafe", "check_date": time.Now().UTC().Format("2006-01-02")})
	assert.NotContains(t, codeSet(Issues(p)), CodeMissingIcon)
}

func TestIssues_VerificationAge(t *testing.T) {
	today := time.Now().UTC()

	never := pointWithTags(model.Tags{"icon:android": "cafe"})
	assert.Contains(t, codeSet(Issues(never)), CodeNotVerified)

	fresh := pointWithTags(model.Tags{"icon:android": "cafe", "check_date": today.Format("2006-01-02")})
	codes := codeSet(Issues(fresh))
	assert.NotContains(t, codes, CodeOutdated)
	assert.NotContains(t, codes, CodeOutdatedSoon)

	soon := pointWithTags(model.Tags{"icon:android": "cafe", "check_date": today.AddDate(0, 0, -280).Format("2006-01-02")})
	assert.Contains(t, codeSet(Issues(soon)), CodeOutdatedSoon)

	stale := pointWithTags(model.Tags{"icon:android": "cafe", "check_date": today.AddDate(0, 0, -400).Format("2006-01-02")})
	assert.Contains(t, codeSet(Issues(stale)), CodeOutdated)
}

func TestIssues_MergesUpstreamAndLocalTags(t *testing.T) {
	p := &model.Point{
		ID:               1,
		OverpassSnapshot: model.Tags{"icon:android": "cafe"},
		Tags:             model.Tags{"check_date": time.Now().UTC().Format("2006-01-02")},
	}
	assert.Empty(t, codeSet(Issues(p)))
}

func codeSet(found []model.Issue) map[string]bool {
	out := make(map[string]bool, len(found))
	for _, iss := range found {
		out[iss.Code] = true
	}
	return out
}

// fakeIssueStore is an in-memory Store for exercising the reconciler
// without a database.
type fakeIssueStore struct {
	rows   map[int64]*model.ElementIssue
	nextID int64
}

func newFakeIssueStore() *fakeIssueStore {
	return &fakeIssueStore{rows: make(map[int64]*model.ElementIssue)}
}

func (f *fakeIssueStore) ListForElement(_ context.Context, elementID int64) ([]model.ElementIssue, error) {
	var out []model.ElementIssue
	for _, row := range f.rows {
		if row.ElementID == elementID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeIssueStore) Insert(_ context.Context, elementID int64, code string, severity int) (*model.ElementIssue, error) {
	f.nextID++
	row := &model.ElementIssue{ID: f.nextID, ElementID: elementID, Code: code, Severity: severity}
	f.rows[row.ID] = row
	return row, nil
}

func (f *fakeIssueStore) UpdateSeverity(_ context.Context, id int64, severity int) error {
	f.rows[id].Severity = severity
	return nil
}

func (f *fakeIssueStore) SoftDelete(_ context.Context, id int64) error {
	now := time.Now().UTC()
	f.rows[id].DeletedAt = &now
	return nil
}

func (f *fakeIssueStore) Undelete(_ context.Context, id int64) error {
	f.rows[id].DeletedAt = nil
	return nil
}

// fakePointTagPatcher records the last patch/removal applied to a point's tags.
type fakePointTagPatcher struct {
	patched map[int64]model.Tags
	removed map[int64]string
}

func newFakePointTagPatcher() *fakePointTagPatcher {
	return &fakePointTagPatcher{patched: make(map[int64]model.Tags), removed: make(map[int64]string)}
}

func (f *fakePointTagPatcher) PatchTags(_ context.Context, id int64, patch model.Tags) error {
	f.patched[id] = patch
	return nil
}

func (f *fakePointTagPatcher) RemoveTag(_ context.Context, id int64, key string) error {
	f.removed[id] = key
	return nil
}

func TestReconciler_InsertsNewIssuesAndSyncsTag(t *testing.T) {
	store := newFakeIssueStore()
	patcher := newFakePointTagPatcher()
	r := NewReconciler(store, patcher)

	p := pointWithTags(model.Tags{}) // never verified, missing icon

	require.NoError(t, r.Reconcile(context.Background(), p))

	persisted, err := store.ListForElement(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, persisted, 2) // missing_icon + not_verified

	patch, ok := patcher.patched[p.ID]
	require.True(t, ok, "expected the issues tag to be patched")
	assert.Equal(t, CodeMissingIcon+","+CodeNotVerified, patch["issues"])
}

func TestReconciler_SoftDeletesResolvedIssueAndClearsTagWhenEmpty(t *testing.T) {
	store := newFakeIssueStore()
	patcher := newFakePointTagPatcher()
	r := NewReconciler(store, patcher)

	p := pointWithTags(model.Tags{})
	require.NoError(t, r.Reconcile(context.Background(), p))
	// Mirror the stored row: the patched issues tag is now on the point.
	p.Tags["issues"] = patcher.patched[p.ID]["issues"]

	// Fix every condition: set an icon and a fresh check date.
	p.Tags["icon:android"] = "cafe"
	p.Tags["check_date"] = time.Now().UTC().Format("2006-01-02")
	require.NoError(t, r.Reconcile(context.Background(), p))

	persisted, err := store.ListForElement(context.Background(), p.ID)
	require.NoError(t, err)
	for _, row := range persisted {
		assert.True(t, row.IsDeleted(), "issue %s should have been soft-deleted once resolved", row.Code)
	}
	assert.Equal(t, "issues", patcher.removed[p.ID])
}

func TestReconciler_UndeletesRecurringIssue(t *testing.T) {
	store := newFakeIssueStore()
	patcher := newFakePointTagPatcher()
	r := NewReconciler(store, patcher)

	p := pointWithTags(model.Tags{})
	require.NoError(t, r.Reconcile(context.Background(), p)) // creates not_verified, missing_icon

	p.Tags["icon:android"] = "cafe"
	p.Tags["check_date"] = time.Now().UTC().Format("2006-01-02")
	require.NoError(t, r.Reconcile(context.Background(), p)) // soft-deletes both

	delete(p.Tags, "icon:android")
	delete(p.Tags, "check_date")
	require.NoError(t, r.Reconcile(context.Background(), p)) // recurs: should undelete, not re-insert

	persisted, err := store.ListForElement(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, persisted, 2, "recurring issues should be undeleted in place, not duplicated")
}
