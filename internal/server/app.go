// Package server initializes and runs the mailroom application server.
// It wires the key-value store, evidence object store, audit log, custody
// state machine and access gate, handles graceful shutdown, and starts the
// HTTP API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dputra/mailroom/internal/logging"
	"github.com/dputra/mailroom/internal/server/auth"
	"github.com/dputra/mailroom/internal/server/config"
	"github.com/dputra/mailroom/internal/server/httpapi"
	"github.com/dputra/mailroom/internal/server/objectstore"
	"github.com/dputra/mailroom/internal/server/repositories/kv"
	"github.com/dputra/mailroom/internal/server/services"
)

// App is the assembled mailroom service.
type App struct {
	config *config.Config
	logger logging.Logger
	server *httpapi.Server
	db     *sql.DB
}

// NewApp wires all components from the given configuration. An empty
// DatabaseDSN selects the in-memory store, which is useful for local runs
// without a database.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout)

	var repo kv.Repository
	var db *sql.DB
	if cfg.DatabaseDSN == "" {
		logger.Warn(ctx, "no database DSN configured, using in-memory store")
		repo = kv.NewInMemoryRepository()
	} else {
		pg, conn, err := kv.OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		repo = pg
		db = conn
	}

	objects := objectstore.NewS3Store(objectstore.S3Config{
		RootUser:     cfg.S3RootUser,
		RootPassword: cfg.S3RootPassword,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})

	auditSvc := services.NewAuditService(repo)
	custodySvc := services.NewCustodyService(repo, objects, auditSvc, logger, services.CustodyConfig{
		EvidenceURLTTL:     cfg.EvidenceURLTTL,
		ObjectStoreTimeout: cfg.ObjectStoreTimeout,
	})

	var gate auth.Gate
	if cfg.JWKSURL != "" {
		jwksGate, err := auth.NewJWKSGate(ctx, auth.JWKSGateConfig{
			URL:             cfg.JWKSURL,
			RefreshInterval: cfg.JWKSRefreshInterval,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("jwks gate init error: %w", err)
		}
		gate = jwksGate
	} else {
		gate = auth.NewHMACGate([]byte(cfg.SecretKey))
	}

	handler := httpapi.NewHandler(custodySvc, auditSvc, logger)
	srv := httpapi.NewServer(cfg.EndpointAddr, handler.Router(gate), logger)

	return &App{config: cfg, logger: logger, server: srv, db: db}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the HTTP API until the context is cancelled or a termination
// signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting mailroom server", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server error", "error", err.Error())
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close error", "error", err.Error())
		}
	}
}
