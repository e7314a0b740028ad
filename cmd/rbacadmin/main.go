package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/rbacadmin/rbac-console/api"
	"github.com/rbacadmin/rbac-console/credentials"
	"github.com/rbacadmin/rbac-console/gateway"
	"github.com/rbacadmin/rbac-console/identitycache"
	"github.com/rbacadmin/rbac-console/internal/config"
	"github.com/rbacadmin/rbac-console/notify"
	"github.com/rbacadmin/rbac-console/session"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		displayAppname("rbacadmin")
		printUsage()
		return nil
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	app, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Hydrate session state from disk before any command runs.
	if err := app.store.CheckAuth(); err != nil {
		logger.Warn().Err(err).Msg("session hydration failed")
	}

	return app.dispatch(ctx, args[0], args[1:])
}

// app bundles the wired client stack for the command handlers.
type app struct {
	cfg    config.Config
	logger zerolog.Logger

	store       *session.Store
	users       *api.UsersClient
	roles       *api.RolesClient
	permissions *api.PermissionsClient
	audit       *api.AuditClient
}

func buildApp(cfg config.Config, logger zerolog.Logger) (*app, error) {
	tokens, err := newTokenStorage(cfg)
	if err != nil {
		return nil, err
	}
	identity := identitycache.NewFileStore(cfg.IdentityFile)
	notifier := notify.NewLogNotifier(logger)

	authClient, err := api.NewAuthClient(cfg.APIURL)
	if err != nil {
		return nil, err
	}

	store, err := session.NewStore(session.Deps{
		Auth:     authClient,
		Tokens:   tokens,
		Identity: identity,
		Notifier: notifier,
	}, session.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	gwOptions := []gateway.Option{
		gateway.WithLogger(logger),
		gateway.WithTimeout(cfg.RequestTimeout()),
		gateway.WithAuthFailureHandler(func() {
			fmt.Fprintln(os.Stderr, "Session expired. Run 'rbacadmin login' to sign in again.")
		}),
	}
	if cfg.RateLimitRPS > 0 {
		gwOptions = append(gwOptions, gateway.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}
	gw, err := gateway.New(cfg.APIURL, tokens, store, notifier, gwOptions...)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		users:       api.NewUsersClient(gw),
		roles:       api.NewRolesClient(gw),
		permissions: api.NewPermissionsClient(gw),
		audit:       api.NewAuditClient(gw),
	}, nil
}

func newTokenStorage(cfg config.Config) (credentials.Storage, error) {
	if cfg.TokenPassphrase != "" {
		return credentials.NewEncryptedStorage(cfg.TokenFile+".enc", cfg.TokenPassphrase)
	}
	return credentials.NewFileStorage(cfg.TokenFile), nil
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(writer).Level(parsed).With().Timestamp().Logger()
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func printUsage() {
	fmt.Print(`Usage: rbacadmin <command> [options]

Commands:
  login        -email <email> [-password <password>]   Sign in
  logout                                               Sign out
  whoami                                               Show the current user
  users        list|get|activate|deactivate            Manage users
  roles        list|get                                Manage roles
  permissions  list                                    List permissions
  audit        list                                    Browse the audit log

Environment:
  RBAC_API_URL            API base URL
  RBAC_TOKEN_PASSPHRASE   Encrypt persisted tokens at rest
  RBAC_LOG_LEVEL          trace|debug|info|warn|error
`)
}
