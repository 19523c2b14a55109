// Package rpc implements the single closed JSON-RPC control surface:
// {method, params, auth} requests are resolved to a bearer access
// token, then to its owner User, and dispatched through a fixed
// method table. There is no runtime-extensible handler registry.
package rpc

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/payplaces/directory/internal/area"
	"github.com/payplaces/directory/internal/commerce"
	"github.com/payplaces/directory/internal/comments"
	"github.com/payplaces/directory/internal/model"
	"github.com/payplaces/directory/internal/store"
	syncengine "github.com/payplaces/directory/internal/sync"
	"github.com/payplaces/directory/internal/upstream"
	svcerrors "github.com/payplaces/directory/pkg/errors"
	"github.com/payplaces/directory/pkg/logger"

	"golang.org/x/time/rate"
)

// Request is the wire shape of one RPC call.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Auth   string          `json:"auth"`
}

// Error is the {code, message} envelope the specification requires
// for every RPC failure.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response carries exactly one of Result or Error.
type Response struct {
	Result interface{} `json:"result,omitempty"`
	Error  *Error      `json:"error,omitempty"`
}

// callContext is the resolved caller identity a handler may consult.
type callContext struct {
	token *model.AccessToken
	user  *model.User
}

// handlerFunc is one method's implementation: decode params, do the
// work, return a result to be JSON-encoded or an error.
type handlerFunc func(ctx context.Context, d *Dispatcher, call *callContext, params json.RawMessage) (interface{}, error)

// methodDef pairs a handler with the role required to invoke it.
// requiredRole is checked against the intersection of the token's own
// role subset and its owner User's current roles, so a revoked user
// role takes effect immediately even for already-issued tokens.
type methodDef struct {
	requiredRole model.Role
	handler      handlerFunc
}

// Dispatcher owns the method table and every collaborator a handler
// may need.
type Dispatcher struct {
	store    *store.Store
	upstream upstream.Client
	areas    *area.Lifecycle
	syncEng  *syncengine.Engine
	commerce *commerce.Commerce
	comments *comments.Lifecycle
	log      *logger.Logger

	methods map[string]methodDef

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
	rpsLimit  rate.Limit
	burst     int
}

// New builds the dispatcher and its fixed method table.
func New(
	st *store.Store,
	up upstream.Client,
	areas *area.Lifecycle,
	syncEng *syncengine.Engine,
	comm *commerce.Commerce,
	comm2 *comments.Lifecycle,
	log *logger.Logger,
	rpsPerToken float64,
	burst int,
) *Dispatcher {
	d := &Dispatcher{
		store:    st,
		upstream: up,
		areas:    areas,
		syncEng:  syncEng,
		commerce: comm,
		comments: comm2,
		log:      log,
		limiters: make(map[string]*rate.Limiter),
		rpsLimit: rate.Limit(rpsPerToken),
		burst:    burst,
	}
	d.methods = d.buildMethodTable()
	return d
}

// Handle resolves auth, checks the rate limit and role requirement,
// and runs the method, always returning a well-formed Response.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Response {
	def, ok := d.methods[req.Method]
	if !ok {
		return errorResponse(svcerrors.InvalidInput("method", "unknown RPC method "+req.Method))
	}

	token, user, err := d.authenticate(ctx, req.Auth)
	if err != nil {
		return errorResponse(err)
	}

	if !d.allow(token.Secret) {
		return errorResponse(svcerrors.Forbidden("rate limit exceeded for this access token"))
	}

	effective := intersectRoles(token.Roles, user.Roles)
	if !effective.Contains(def.requiredRole) {
		return errorResponse(svcerrors.Forbidden("access token lacks the " + string(def.requiredRole) + " capability"))
	}

	call := &callContext{token: token, user: user}
	result, err := def.handler(ctx, d, call, req.Params)
	if err != nil {
		if svcerrors.KindOf(err) == svcerrors.KindDatabase || svcerrors.KindOf(err) == svcerrors.KindUpstream {
			d.log.WithContext(ctx).WithError(err).WithField("method", req.Method).Warn("rpc: handler failed")
		}
		return errorResponse(err)
	}
	return Response{Result: result}
}

func (d *Dispatcher) authenticate(ctx context.Context, secret string) (*model.AccessToken, *model.User, error) {
	if secret == "" {
		return nil, nil, svcerrors.Unauthorized("missing access token")
	}
	token, err := d.store.AccessTokens.GetBySecret(ctx, secret)
	if err != nil {
		return nil, nil, err
	}
	user, err := d.store.Users.Get(ctx, token.UserID)
	if err != nil {
		return nil, nil, err
	}
	return token, user, nil
}

// allow applies a per-token-secret token bucket, lazily created on
// first use.
func (d *Dispatcher) allow(secret string) bool {
	d.limiterMu.Lock()
	lim, ok := d.limiters[secret]
	if !ok {
		lim = rate.NewLimiter(d.rpsLimit, d.burst)
		d.limiters[secret] = lim
	}
	d.limiterMu.Unlock()
	return lim.Allow()
}

func intersectRoles(a, b model.RoleSet) model.RoleSet {
	out := make(model.RoleSet, 0, len(a))
	for _, r := range a {
		if b.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}

// errorResponse maps a ServiceError's Kind to the RPC code string;
// any other error is an internal failure the caller shouldn't see
// details of.
func errorResponse(err error) Response {
	svcErr, ok := svcerrors.As(err)
	if !ok {
		return Response{Error: &Error{Code: "internal", Message: "internal error"}}
	}
	return Response{Error: &Error{Code: string(svcErr.Kind), Message: svcErr.Message}}
}

func decodeParams(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return svcerrors.InvalidInput("params", "must be present")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return svcerrors.InvalidInput("params", "malformed JSON: "+err.Error())
	}
	return nil
}
