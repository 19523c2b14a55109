// Command directoryctl is the control CLI: a thin wrapper that
// dispatches through the same RPC method table appserver exposes over
// HTTP, but in-process against the configured database. It exits 0 on
// success and non-zero on failure.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/payplaces/directory/internal/area"
	"github.com/payplaces/directory/internal/commerce"
	"github.com/payplaces/directory/internal/comments"
	"github.com/payplaces/directory/internal/event"
	"github.com/payplaces/directory/internal/lightning"
	"github.com/payplaces/directory/internal/model"
	"github.com/payplaces/directory/internal/notify"
	"github.com/payplaces/directory/internal/rpc"
	"github.com/payplaces/directory/internal/store"
	syncengine "github.com/payplaces/directory/internal/sync"
	"github.com/payplaces/directory/internal/upstream"
	"github.com/payplaces/directory/pkg/cache"
	"github.com/payplaces/directory/pkg/config"
	"github.com/payplaces/directory/pkg/logger"
)

const (
	exitOK         = 0
	exitUsage      = 1
	exitRPCFailure = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		printUsage()
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return exitUsage
	}
	log := logger.New("directoryctl", cfg.Logging.Level, cfg.Logging.Format)

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		return exitUsage
	}
	defer db.Close()
	st := store.New(db)

	switch args[0] {
	case "bootstrap-admin":
		return runBootstrapAdmin(ctx, st, args[1:])
	case "call":
		return runCall(ctx, st, cfg, log, args[1:])
	case "help", "-h", "--help":
		printUsage()
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		printUsage()
		return exitUsage
	}
}

func printUsage() {
	fmt.Println(`directoryctl — in-process control CLI for the directory service

Usage:
  directoryctl bootstrap-admin --name <name> --password <plaintext>
  directoryctl call --method <name> --auth <token> [--params <json>]

Commands:
  bootstrap-admin   Create the first admin user directly in the store
                    (bypasses RPC auth, since no token exists yet).
  call              Dispatch one RPC method through the same method
                    table appserver serves at POST /rpc.`)
}

func runBootstrapAdmin(ctx context.Context, st *store.Store, args []string) int {
	fs := flag.NewFlagSet("bootstrap-admin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "Admin user name (required)")
	password := fs.String("password", "", "Admin password, plaintext (required)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	if *name == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "name and password are required")
		return exitUsage
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		return exitRPCFailure
	}

	user, err := st.Users.Insert(ctx, *name, string(hash), model.RoleSet{model.RoleAdmin})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create admin: %v\n", err)
		return exitRPCFailure
	}

	secret := uuid.NewString()
	token, err := st.AccessTokens.Insert(ctx, user.ID, secret, "bootstrap", model.RoleSet{model.RoleAdmin})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create access token: %v\n", err)
		return exitRPCFailure
	}

	fmt.Printf("created admin user %q (id=%d)\n", user.Name, user.ID)
	fmt.Printf("access token (save this, it is shown once): %s\n", token.Secret)
	return exitOK
}

func runCall(ctx context.Context, st *store.Store, cfg *config.Config, log *logger.Logger, args []string) int {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	method := fs.String("method", "", "RPC method name (required)")
	auth := fs.String("auth", "", "Bearer access token secret (required)")
	params := fs.String("params", "", "JSON params object")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	if *method == "" {
		fmt.Fprintln(os.Stderr, "method is required")
		return exitUsage
	}
	if *auth == "" {
		fmt.Fprintln(os.Stderr, "auth is required")
		return exitUsage
	}

	var raw json.RawMessage
	if strings.TrimSpace(*params) != "" {
		raw = json.RawMessage(*params)
	}

	dispatcher := buildDispatcher(st, cfg, log)
	resp := dispatcher.Handle(ctx, rpc.Request{Method: *method, Params: raw, Auth: *auth})

	encoded, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode response: %v\n", err)
		return exitRPCFailure
	}
	fmt.Println(string(encoded))

	if resp.Error != nil {
		return exitRPCFailure
	}
	return exitOK
}

// buildDispatcher wires the same collaborators appserver builds, minus
// the HTTP server and scheduler: directoryctl runs one call and exits.
func buildDispatcher(st *store.Store, cfg *config.Config, log *logger.Logger) *rpc.Dispatcher {
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

	eventHandler := event.NewHandler(st, upstreamClient, notifySink, log)
	syncEngine := syncengine.NewEngine(st, upstreamClient, areaLifecycle, eventHandler, notifySink, log)

	commerceSvc := commerce.New(st, lightningGateway, cfg.Lightning)
	commentsSvc := comments.NewLifecycle(st, commerceSvc)

	return rpc.New(st, upstreamClient, areaLifecycle, syncEngine, commerceSvc, commentsSvc, log,
		cfg.Auth.RPCRequestsPerSecond, cfg.Auth.RPCBurst)
}
