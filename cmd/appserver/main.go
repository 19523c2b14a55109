// Command appserver runs the directory service: the upstream sync
// scheduler, the Lightning invoice poller, and the HTTP server
// exposing the read API, the RPC control surface, and the Atom feeds.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/payplaces/directory/internal/area"
	"github.com/payplaces/directory/internal/commerce"
	"github.com/payplaces/directory/internal/comments"
	"github.com/payplaces/directory/internal/event"
	"github.com/payplaces/directory/internal/feed"
	"github.com/payplaces/directory/internal/httpapi"
	"github.com/payplaces/directory/internal/lightning"
	"github.com/payplaces/directory/internal/notify"
	"github.com/payplaces/directory/internal/rpc"
	"github.com/payplaces/directory/internal/scheduler"
	"github.com/payplaces/directory/internal/store"
	syncengine "github.com/payplaces/directory/internal/sync"
	"github.com/payplaces/directory/internal/upstream"
	"github.com/payplaces/directory/pkg/cache"
	"github.com/payplaces/directory/pkg/config"
	"github.com/payplaces/directory/pkg/logger"
)

const serviceVersion = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLog := logger.New("appserver", cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		appLog.WithError(err).Fatal("open database")
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := store.Migrate(db); err != nil {
			appLog.WithError(err).Fatal("run migrations")
		}
	}

	st := store.New(db)

	var appCache cache.Cache
	if cfg.Cache.RedisAddr != "" {
		appCache = cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
	} else {
		appCache = cache.NewMemoryCache()
	}

	areaCache := area.NewCache(appCache)
	areaLifecycle := area.NewLifecycle(st, areaCache)

	upstreamClient := upstream.NewHTTPClient(cfg.Upstream)
	lightningGateway := lightning.NewHTTPGateway(cfg.Lightning)
	notifySink := notify.NewWebhookSink(cfg.Notify)

	eventHandler := event.NewHandler(st, upstreamClient, notifySink, appLog)
	syncEngine := syncengine.NewEngine(st, upstreamClient, areaLifecycle, eventHandler, notifySink, appLog)

	commerceSvc := commerce.New(st, lightningGateway, cfg.Lightning)
	commentsSvc := comments.NewLifecycle(st, commerceSvc)

	dispatcher := rpc.New(st, upstreamClient, areaLifecycle, syncEngine, commerceSvc, commentsSvc, appLog,
		cfg.Auth.RPCRequestsPerSecond, cfg.Auth.RPCBurst)

	sched := scheduler.New(appLog)
	if err := sched.RegisterSync(cfg.Upstream.SyncSchedule, syncEngine); err != nil {
		appLog.WithError(err).Fatal("register sync schedule")
	}
	if err := sched.RegisterInvoicePoll(cfg.Lightning.InvoicePollPeriod, st, commerceSvc); err != nil {
		appLog.WithError(err).Fatal("register invoice poll schedule")
	}
	sched.Start()
	defer sched.Stop()

	router := httpapi.NewRouter(httpapi.Deps{
		Store:      st,
		Dispatcher: dispatcher,
		Log:        appLog,
		Version:    serviceVersion,
	}, cfg.Server)
	feed.Register(router, feed.Deps{Store: st})

	server := &http.Server{
		Addr:              httpapi.Addr(cfg.Server),
		Handler:           router,
		ReadTimeout:       cfg.Server.RequestTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		appLog.WithField("addr", server.Addr).Info("appserver listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Fatal("http server error")
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("graceful shutdown failed")
	}
}
