// Package event implements the append-only event log's post-insert
// cascade: notifying the sink and refreshing the authoring OsmUser.
package event

import (
	"context"
	"fmt"
	"time"

	"github.com/payplaces/directory/internal/model"
	"github.com/payplaces/directory/internal/notify"
	"github.com/payplaces/directory/internal/store"
	"github.com/payplaces/directory/internal/upstream"
	"github.com/payplaces/directory/pkg/logger"
)

const userRefreshThrottle = time.Hour

// Handler runs the best-effort side-effect cascade for newly inserted
// events: network and sink failures here are logged and never undo or
// retry the event insertion itself.
type Handler struct {
	store    *store.Store
	upstream upstream.Client
	sink     notify.Sink
	log      *logger.Logger
}

func NewHandler(st *store.Store, up upstream.Client, sink notify.Sink, log *logger.Logger) *Handler {
	return &Handler{store: st, upstream: up, sink: sink, log: log}
}

// Dispatch fans every event out to the notification sink and, at most
// once per hour per author, refreshes the authoring OsmUser from the
// editing API. Called after the enclosing sync phase commits, so
// readers of the event stream never observe a notification for an
// event that isn't actually visible yet.
func (h *Handler) Dispatch(ctx context.Context, events []model.Event) {
	for _, e := range events {
		h.dispatchOne(ctx, e)
	}
}

func (h *Handler) dispatchOne(ctx context.Context, e model.Event) {
	point, err := h.store.Points.Get(ctx, e.ElementID)
	if err != nil {
		h.log.WithContext(ctx).WithError(err).Warn("event dispatch: load point")
		return
	}

	message := renderMessage(e, point)
	if err := h.sink.Post(ctx, message); err != nil {
		h.log.WithContext(ctx).WithError(err).Warn("event dispatch: notify sink")
	}

	h.refreshUserIfStale(ctx, e.UserID)
}

func renderMessage(e model.Event, p *model.Point) string {
	name := e.Tags.String("element_name")
	if name == "" && p != nil {
		name = p.Tags.String("name")
	}
	if name == "" {
		name = "an unnamed place"
	}

	switch e.Kind {
	case model.EventKindCreate:
		return fmt.Sprintf("New place added: %s", name)
	case model.EventKindUpdate:
		return fmt.Sprintf("Place updated: %s", name)
	case model.EventKindDelete:
		return fmt.Sprintf("Place removed: %s", name)
	default:
		return fmt.Sprintf("Place event (%s): %s", e.Kind, name)
	}
}

// refreshUserIfStale refreshes an already-materialised OsmUser (keyed
// by its local row id, as attached to the event at insert time) from
// the editing API at most once per hour, tracked via
// tags["osm:sync:date"].
func (h *Handler) refreshUserIfStale(ctx context.Context, osmUserID int64) {
	if osmUserID == 0 {
		return
	}

	osmUser, err := h.store.OsmUsers.Get(ctx, osmUserID)
	if err != nil {
		h.log.WithContext(ctx).WithError(err).Warn("event dispatch: load osm user")
		return
	}
	if osmUser == nil || time.Since(osmUser.LastSyncDate()) < userRefreshThrottle {
		return
	}

	profile, err := h.upstream.GetUser(ctx, osmUser.ExternalID)
	if err != nil {
		h.log.WithContext(ctx).WithError(err).Warn("event dispatch: refresh osm user")
		return
	}
	if profile == nil {
		return
	}

	patch := profile.Tags.Merge(model.Tags{"osm:sync:date": time.Now().UTC().Format(time.RFC3339)})
	if err := h.store.OsmUsers.PatchTags(ctx, osmUser.ID, patch); err != nil {
		h.log.WithContext(ctx).WithError(err).Warn("event dispatch: patch osm user tags")
	}
}
