// Package httpapi implements the read-oriented resource API and the
// RPC POST endpoint on top of one gorilla/mux.Router, wired through
// the shared middleware chain (trace logging, metrics, recovery,
// timeout, CORS).
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/payplaces/directory/internal/middleware"
	"github.com/payplaces/directory/internal/rpc"
	"github.com/payplaces/directory/internal/store"
	"github.com/payplaces/directory/pkg/config"
	"github.com/payplaces/directory/pkg/logger"
	pkgmetrics "github.com/payplaces/directory/pkg/metrics"
)

// Deps bundles every collaborator a handler may need.
type Deps struct {
	Store      *store.Store
	Dispatcher *rpc.Dispatcher
	Log        *logger.Logger
	Version    string
}

// NewRouter builds the full router: health/metrics, the resource read
// API, and the RPC endpoint. Atom feed routes are registered
// separately by the caller via feed.Register, since internal/feed has
// its own collaborators.
func NewRouter(deps Deps, cfg config.ServerConfig) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging(deps.Log))
	r.Use(middleware.Metrics())
	r.Use(middleware.NewRecovery(deps.Log).Handler)
	r.Use(middleware.NewTimeout(cfg.RequestTimeout).Handler)
	r.Use(middleware.NewCORS(middleware.CORSConfig{
		AllowedOrigins: []string{"*"},
	}).Handler)

	health := middleware.NewHealthChecker(deps.Version)
	health.RegisterCheck("database", func() error {
		return deps.Store.Ping()
	})
	r.Handle("/healthz", health.Handler()).Methods(http.MethodGet)
	r.Handle("/livez", middleware.LivenessHandler()).Methods(http.MethodGet)
	r.Handle("/metrics", pkgmetrics.Handler()).Methods(http.MethodGet)

	registerResourceRoutes(r, deps)

	rl := middleware.NewRateLimit(50, 100, deps.Log)
	r.Handle("/rpc", rl.Handler(rpcKeyFunc)(rpcHandler(deps))).Methods(http.MethodPost)

	return r
}

func rpcKeyFunc(r *http.Request) string {
	return r.Header.Get("X-Forwarded-For")
}

// Addr formats host:port for http.Server from ServerConfig.
func Addr(cfg config.ServerConfig) string {
	host := cfg.Host
	if host == "" {
		host = "0.0.0.0"
	}
	port := cfg.Port
	if port == 0 {
		port = 8080
	}
	return host + ":" + strconv.Itoa(port)
}
