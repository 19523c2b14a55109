// Package sync implements the three-phase merge between the upstream
// map data snapshot and the local mirror: deletions (Phase D), updates
// (Phase U), creations (Phase C), followed by the event and
// area-membership cascades.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/payplaces/directory/internal/area"
	"github.com/payplaces/directory/internal/classify"
	"github.com/payplaces/directory/internal/event"
	"github.com/payplaces/directory/internal/issues"
	"github.com/payplaces/directory/internal/model"
	"github.com/payplaces/directory/internal/notify"
	"github.com/payplaces/directory/internal/store"
	"github.com/payplaces/directory/internal/upstream"
	"github.com/payplaces/directory/pkg/logger"
	pkgmetrics "github.com/payplaces/directory/pkg/metrics"
)

// MergeResult reports the outcome of one Run: the point ids touched in
// each phase and how long each phase took.
type MergeResult struct {
	Created []int64
	Updated []int64
	Deleted []int64

	PhaseDDuration time.Duration
	PhaseUDuration time.Duration
	PhaseCDuration time.Duration

	// Skipped counts points Phase D declined to delete (upstream
	// snapshot disagreed with the editing API) and points skipped on a
	// transient per-point failure in any phase.
	Skipped int
}

// Engine runs the merge. Callers (the scheduler, the syncelements RPC
// method) must not call Run concurrently; the internal mutex only
// guards against that being violated by accident.
type Engine struct {
	store      *store.Store
	upstream   upstream.Client
	areas      *area.Lifecycle
	events     *event.Handler
	notify     notify.Sink
	log        *logger.Logger
	reconciler *issues.Reconciler

	mu sync.Mutex
}

func NewEngine(
	st *store.Store,
	up upstream.Client,
	areas *area.Lifecycle,
	events *event.Handler,
	sink notify.Sink,
	log *logger.Logger,
) *Engine {
	return &Engine{
		store:      st,
		upstream:   up,
		areas:      areas,
		events:     events,
		notify:     sink,
		log:        log,
		reconciler: issues.NewReconciler(st.Issues, st.Points),
	}
}

func (e *Engine) Run(ctx context.Context) (*MergeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot, err := e.upstream.GetPointsSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	snapshotByKey := make(map[model.Key]model.UpstreamElement, len(snapshot))
	for _, el := range snapshot {
		snapshotByKey[model.Key{Kind: el.Kind, ID: el.ID}] = el
	}

	result := &MergeResult{}
	var newEvents []model.Event
	var touched []int64

	dStart := time.Now()
	if err := e.runPhaseD(ctx, snapshotByKey, result, &newEvents); err != nil {
		return nil, err
	}
	result.PhaseDDuration = time.Since(dStart)
	pkgmetrics.SyncPhaseDuration.WithLabelValues("delete").Observe(result.PhaseDDuration.Seconds())

	uStart := time.Now()
	for key, el := range snapshotByKey {
		existing, err := e.store.Points.GetByKey(ctx, key)
		if err != nil {
			e.log.WithContext(ctx).WithError(err).WithField("element_id", el.ID).Warn("sync: lookup existing point")
			result.Skipped++
			continue
		}
		if existing == nil {
			continue // handled in Phase C below
		}
		if err := e.processUpdate(ctx, existing, el, result, &newEvents, &touched); err != nil {
			e.log.WithContext(ctx).WithError(err).WithField("element_id", el.ID).Warn("sync: phase U failed for point")
			result.Skipped++
		}
	}
	result.PhaseUDuration = time.Since(uStart)
	pkgmetrics.SyncPhaseDuration.WithLabelValues("update").Observe(result.PhaseUDuration.Seconds())

	cStart := time.Now()
	for key, el := range snapshotByKey {
		existing, err := e.store.Points.GetByKey(ctx, key)
		if err != nil {
			e.log.WithContext(ctx).WithError(err).WithField("element_id", el.ID).Warn("sync: lookup before create")
			result.Skipped++
			continue
		}
		if existing != nil {
			continue // already handled in Phase U
		}
		if err := e.processCreation(ctx, el, result, &newEvents, &touched); err != nil {
			e.log.WithContext(ctx).WithError(err).WithField("element_id", el.ID).Warn("sync: phase C failed for point")
			result.Skipped++
		}
	}
	result.PhaseCDuration = time.Since(cStart)
	pkgmetrics.SyncPhaseDuration.WithLabelValues("create").Observe(result.PhaseCDuration.Seconds())

	pkgmetrics.SyncPointsTotal.WithLabelValues("delete", "ok").Add(float64(len(result.Deleted)))
	pkgmetrics.SyncPointsTotal.WithLabelValues("update", "ok").Add(float64(len(result.Updated)))
	pkgmetrics.SyncPointsTotal.WithLabelValues("create", "ok").Add(float64(len(result.Created)))
	pkgmetrics.SyncPointsTotal.WithLabelValues("all", "skipped").Add(float64(result.Skipped))

	e.events.Dispatch(ctx, newEvents)
	for _, pointID := range touched {
		if err := e.areas.RecomputeMemberships(ctx, pointID); err != nil {
			e.log.WithContext(ctx).WithError(err).WithField("element_id", pointID).Warn("sync: recompute area memberships")
		}
	}

	return result, nil
}

// runPhaseD processes every non-deleted local point whose key is no
// longer present in the snapshot.
func (e *Engine) runPhaseD(ctx context.Context, snapshotByKey map[model.Key]model.UpstreamElement, result *MergeResult, newEvents *[]model.Event) error {
	activePoints, err := e.store.Points.ListAllActive(ctx)
	if err != nil {
		return err
	}

	for i := range activePoints {
		p := activePoints[i]
		if _, present := snapshotByKey[p.Key()]; present {
			continue
		}
		if err := e.processDeletion(ctx, &p, result, newEvents); err != nil {
			e.log.WithContext(ctx).WithError(err).WithField("element_id", p.ID).Warn("sync: phase D failed for point")
			result.Skipped++
		}
	}
	return nil
}

// processDeletion confirms the suspected deletion against the editing
// API before acting: a network failure skips the point for this cycle
// (retried next cycle); a live element whose payment tag still reads
// "yes" means the snapshot lied and the point must not be touched.
func (e *Engine) processDeletion(ctx context.Context, p *model.Point, result *MergeResult, newEvents *[]model.Event) error {
	full, err := e.upstream.GetElement(ctx, p.UpstreamKind, p.UpstreamID)
	if err != nil {
		result.Skipped++
		return nil
	}
	if full != nil && full.Visible && full.Tags.String(model.PaymentTagKey) == "yes" {
		_ = e.notify.Post(ctx, "sync: snapshot omitted still-live element "+p.Key().String()+", skipping deletion")
		result.Skipped++
		return nil
	}

	return e.store.WithTx(ctx, func(ctx context.Context) error {
		author, err := e.ensureUser(ctx, p.AuthorID)
		if err != nil {
			return err
		}
		if err := e.store.Points.SoftDelete(ctx, p.ID); err != nil {
			return err
		}
		if err := e.store.Issues.SoftDeleteAllForElement(ctx, p.ID); err != nil {
			return err
		}
		ev, err := e.store.Events.Insert(ctx, &model.Event{
			UserID: localUserID(author), ElementID: p.ID, Kind: model.EventKindDelete,
			Tags: model.Tags{"element_osm_type": string(p.UpstreamKind), "element_osm_id": p.UpstreamID},
		})
		if err != nil {
			return err
		}
		*newEvents = append(*newEvents, *ev)
		result.Deleted = append(result.Deleted, p.ID)
		return nil
	})
}

// processUpdate handles one snapshot element whose key matches an
// existing local point (active or soft-deleted).
func (e *Engine) processUpdate(ctx context.Context, p *model.Point, el model.UpstreamElement, result *MergeResult, newEvents *[]model.Event, touched *[]int64) error {
	return e.store.WithTx(ctx, func(ctx context.Context) error {
		if p.IsDeleted() {
			if err := e.store.Points.Undelete(ctx, p.ID); err != nil {
				return err
			}
		}

		if snapshotEquals(p.OverpassSnapshot, el.Tags) && p.ChangesetID == el.ChangesetID {
			return nil
		}

		author, err := e.ensureUser(ctx, el.AuthorID)
		if err != nil {
			return err
		}

		if el.ChangesetID != p.ChangesetID {
			ev, err := e.store.Events.Insert(ctx, &model.Event{
				UserID: localUserID(author), ElementID: p.ID, Kind: model.EventKindUpdate,
				Tags: model.Tags{"element_osm_type": string(el.Kind), "element_osm_id": el.ID},
			})
			if err != nil {
				return err
			}
			*newEvents = append(*newEvents, *ev)
		}

		if err := e.store.Points.OverwriteSnapshot(ctx, p.ID, el.Tags, el.ChangesetID, el.AuthorID, el.Lat, el.Lon); err != nil {
			return err
		}

		merged := p.Tags.Merge(el.Tags)
		if icon := classify.Icon(merged); icon != p.Tags.String("icon:android") {
			if err := e.store.Points.PatchTags(ctx, p.ID, model.Tags{"icon:android": icon}); err != nil {
				return err
			}
		}

		refreshed, err := e.store.Points.Get(ctx, p.ID)
		if err != nil {
			return err
		}
		if err := e.reconciler.Reconcile(ctx, refreshed); err != nil {
			return err
		}

		result.Updated = append(result.Updated, p.ID)
		*touched = append(*touched, p.ID)
		return nil
	})
}

// processCreation handles one snapshot element with no local point.
func (e *Engine) processCreation(ctx context.Context, el model.UpstreamElement, result *MergeResult, newEvents *[]model.Event, touched *[]int64) error {
	return e.store.WithTx(ctx, func(ctx context.Context) error {
		author, err := e.ensureUser(ctx, el.AuthorID)
		if err != nil {
			return err
		}

		inserted, err := e.store.Points.Insert(ctx, &model.Point{
			UpstreamKind: el.Kind, UpstreamID: el.ID,
			OverpassSnapshot: el.Tags, ChangesetID: el.ChangesetID, AuthorID: el.AuthorID,
			Lat: el.Lat, Lon: el.Lon, Tags: model.Tags{},
		})
		if err != nil {
			return err
		}

		ev, err := e.store.Events.Insert(ctx, &model.Event{
			UserID: localUserID(author), ElementID: inserted.ID, Kind: model.EventKindCreate,
			Tags: model.Tags{"element_osm_type": string(el.Kind), "element_osm_id": el.ID},
		})
		if err != nil {
			return err
		}
		*newEvents = append(*newEvents, *ev)

		patch := model.Tags{
			"category":     classify.Category(el.Tags),
			"icon:android": classify.Icon(el.Tags),
		}
		if err := e.store.Points.PatchTags(ctx, inserted.ID, patch); err != nil {
			return err
		}

		refreshed, err := e.store.Points.Get(ctx, inserted.ID)
		if err != nil {
			return err
		}
		if err := e.reconciler.Reconcile(ctx, refreshed); err != nil {
			return err
		}

		result.Created = append(result.Created, inserted.ID)
		*touched = append(*touched, inserted.ID)
		return nil
	})
}

// ensureUser materialises the OsmUser for externalID: returns the
// existing row if present, otherwise fetches the editing API profile,
// inserting a stub tagged osm:missing on a 404.
func (e *Engine) ensureUser(ctx context.Context, externalID int64) (*model.OsmUser, error) {
	if externalID == 0 {
		return nil, nil
	}

	existing, err := e.store.OsmUsers.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	profile, err := e.upstream.GetUser(ctx, externalID)
	if err != nil {
		return nil, err
	}
	tags := model.Tags{}
	if profile == nil {
		tags["osm:missing"] = true
	} else {
		tags = profile.Tags
	}
	return e.store.OsmUsers.Insert(ctx, externalID, tags)
}

// localUserID extracts the local osm_users.id backing an Event's
// UserID column; a nil author (no OSM changeset author on the
// element) materialises as the zero user.
func localUserID(author *model.OsmUser) int64 {
	if author == nil {
		return 0
	}
	return author.ID
}

// snapshotEquals compares two tag maps by value, the Phase U "snapshot
// equals the stored snapshot" short-circuit.
func snapshotEquals(a, b model.Tags) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
