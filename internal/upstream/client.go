// Package upstream fetches the authoritative map data snapshot and
// per-element/per-user editing-API detail the sync engine diffs
// against the local mirror.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/payplaces/directory/internal/model"
	"github.com/payplaces/directory/pkg/config"
	svcerrors "github.com/payplaces/directory/pkg/errors"
)

// FullElement is the editing API's current view of one element,
// fetched to confirm a suspected deletion or to refresh tags.
type FullElement struct {
	Visible bool
	Tags    model.Tags
}

// UserProfile is the editing API's current view of one external user.
type UserProfile struct {
	ID   int64
	Tags model.Tags
}

// Client is the narrow collaborator interface the sync engine and
// area lifecycle depend on.
type Client interface {
	GetPointsSnapshot(ctx context.Context) ([]model.UpstreamElement, error)
	GetElement(ctx context.Context, kind model.UpstreamKind, id int64) (*FullElement, error)
	GetUser(ctx context.Context, id int64) (*UserProfile, error)
}

// HTTPClient is the production Client, parsing overpass-style JSON
// with gjson rather than fully typed structs — the upstream schema
// evolves independently of this service, matching the teacher's
// datafeed fetchers.
type HTTPClient struct {
	httpClient *http.Client
	cfg        config.UpstreamConfig
	limiter    *rate.Limiter
}

func NewHTTPClient(cfg config.UpstreamConfig) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		cfg:        cfg,
		// Phase D may issue thousands of confirmation calls; bound the
		// rate so a large deletion burst doesn't hammer the editing API.
		limiter: rate.NewLimiter(rate.Limit(cfg.EditingAPIRPS), cfg.EditingAPIBurst),
	}
}

// GetPointsSnapshot returns every currently-tagged point from the
// upstream snapshot endpoint.
func (c *HTTPClient) GetPointsSnapshot(ctx context.Context) ([]model.UpstreamElement, error) {
	body, err := c.get(ctx, c.cfg.SnapshotURL)
	if err != nil {
		return nil, err
	}

	elements := gjson.GetBytes(body, "elements")
	out := make([]model.UpstreamElement, 0, int(elements.Get("#").Int()))
	var parseErr error
	elements.ForEach(func(_, el gjson.Result) bool {
		ue, err := parseSnapshotElement(el)
		if err != nil {
			parseErr = err
			return false
		}
		out = append(out, ue)
		return true
	})
	if parseErr != nil {
		return nil, svcerrors.Upstream("parse snapshot element", parseErr)
	}
	return out, nil
}

func parseSnapshotElement(el gjson.Result) (model.UpstreamElement, error) {
	kind := model.UpstreamKind(el.Get("type").String())
	id := el.Get("id").Int()

	lat, lon := el.Get("lat").Float(), el.Get("lon").Float()
	if !el.Get("lat").Exists() {
		lat = el.Get("center.lat").Float()
		lon = el.Get("center.lon").Float()
	}

	tags := model.Tags{}
	el.Get("tags").ForEach(func(k, v gjson.Result) bool {
		tags[k.String()] = v.Value()
		return true
	})

	return model.UpstreamElement{
		Kind:        kind,
		ID:          id,
		Lat:         lat,
		Lon:         lon,
		Tags:        tags,
		ChangesetID: el.Get("changeset").Int(),
		AuthorID:    el.Get("uid").Int(),
	}, nil
}

// GetElement confirms the current editing-API state of one element.
// A 404 (element deleted, never existed, or access revoked) returns
// (nil, nil), distinct from a transport failure.
func (c *HTTPClient) GetElement(ctx context.Context, kind model.UpstreamKind, id int64) (*FullElement, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, svcerrors.Upstream("rate limit wait", err)
	}

	url := fmt.Sprintf("%s/api/0.6/%s/%d.json", c.cfg.EditingAPIBaseURL, kind, id)
	body, status, err := c.getStatus(ctx, url)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	root := gjson.GetBytes(body, "elements.0")
	if !root.Exists() {
		return nil, nil
	}

	tags := model.Tags{}
	root.Get("tags").ForEach(func(k, v gjson.Result) bool {
		tags[k.String()] = v.Value()
		return true
	})

	visible := true
	if v := root.Get("visible"); v.Exists() {
		visible = v.Bool()
	}

	return &FullElement{Visible: visible, Tags: tags}, nil
}

// GetUser fetches an external user's profile. A 404 returns (nil, nil).
func (c *HTTPClient) GetUser(ctx context.Context, id int64) (*UserProfile, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, svcerrors.Upstream("rate limit wait", err)
	}

	url := fmt.Sprintf("%s/api/0.6/user/%d.json", c.cfg.EditingAPIBaseURL, id)
	body, status, err := c.getStatus(ctx, url)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	root := gjson.GetBytes(body, "user")
	if !root.Exists() {
		return nil, nil
	}

	tags := model.Tags{}
	root.ForEach(func(k, v gjson.Result) bool {
		tags[k.String()] = v.Value()
		return true
	})

	return &UserProfile{ID: id, Tags: tags}, nil
}

func (c *HTTPClient) get(ctx context.Context, url string) ([]byte, error) {
	body, status, err := c.getStatus(ctx, url)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, svcerrors.Upstream("fetch "+url, fmt.Errorf("unexpected status %d", status))
	}
	return body, nil
}

func (c *HTTPClient) getStatus(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, svcerrors.Upstream("build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, svcerrors.Upstream("call "+url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, svcerrors.Upstream("read response body", err)
	}
	return body, resp.StatusCode, nil
}
