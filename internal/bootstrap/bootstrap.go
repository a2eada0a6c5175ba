// Package bootstrap wires configuration into a ready-to-use assessment service.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bryanwahyu/trustbrief/internal/application"
	aiapp "github.com/bryanwahyu/trustbrief/internal/application/ai"
	"github.com/bryanwahyu/trustbrief/internal/application/assess"
	"github.com/bryanwahyu/trustbrief/internal/config"
	"github.com/bryanwahyu/trustbrief/internal/domain/history"
	"github.com/bryanwahyu/trustbrief/internal/infra/ai/openai"
	"github.com/bryanwahyu/trustbrief/internal/infra/cache"
	mysqlp "github.com/bryanwahyu/trustbrief/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/trustbrief/internal/infra/db/postgres"
	sqlitep "github.com/bryanwahyu/trustbrief/internal/infra/db/sqlite"
	"github.com/bryanwahyu/trustbrief/internal/infra/notify"
	"github.com/bryanwahyu/trustbrief/internal/infra/probe"
	"github.com/bryanwahyu/trustbrief/internal/infra/storage"
	"github.com/bryanwahyu/trustbrief/internal/metrics"
	"github.com/bryanwahyu/trustbrief/internal/middleware"
)

// App holds the wired service and everything that must be closed with it.
type App struct {
	Config   *config.Config
	Service  *assess.Service
	Metrics  *metrics.Metrics
	Store    *cache.Store
	Checkers map[string]middleware.HealthChecker

	db *sql.DB
}

// New builds the pipeline from cfg. Optional parts (MinIO, history database,
// Slack) are only wired when configured.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	m := metrics.NewMetrics()
	app := &App{Config: cfg, Metrics: m, Checkers: map[string]middleware.HealthChecker{}}

	backend, err := newBackend(ctx, cfg, m)
	if err != nil {
		return nil, err
	}
	app.Store = cache.NewStore(backend)
	app.Checkers["cache"] = middleware.CheckerFunc(app.Store.Ping)

	repo, err := app.openHistory(ctx)
	if err != nil {
		return nil, err
	}

	client := openai.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
	ai := aiapp.NewService(client, m)
	clock := application.SystemClock{}

	prober := probe.NewProber(cfg.ProbeTimeout(), m)
	prober.Guard = middleware.ValidateURL
	prober.AddrGuard = middleware.ValidateIP
	kev := probe.NewKEVCatalog(cfg.Probe.KEVURL, cfg.KEVTimeout(), cfg.KEVRefresh())

	svc := &assess.Service{
		Resolver: &assess.Resolver{
			AI:       ai,
			Cache:    app.Store,
			Prober:   prober,
			KEV:      kev,
			Clock:    clock,
			TTL:      cfg.CacheTTL(),
			Observer: m,
		},
		Classifier: &assess.Classifier{AI: ai, Clock: clock},
		Suggester:  &assess.Suggester{AI: ai, Clock: clock},
		Cache:      app.Store,
		History:    repo,
		Observer:   m,
		Clock:      clock,
		TTL:        cfg.CacheTTL(),
		Timeouts: assess.Timeouts{
			Resolve:  cfg.ResolveTimeout(),
			Classify: cfg.ClassifyTimeout(),
			Suggest:  cfg.SuggestTimeout(),
		},
	}
	if cfg.Slack.Token != "" {
		svc.Notifier = notify.NewSlack(cfg.Slack.Token, cfg.Slack.Channel, cfg.Slack.APIURL, m)
		slog.Info("slack KEV alerts enabled", "channel", cfg.Slack.Channel)
	}
	app.Service = svc
	return app, nil
}

// newBackend returns the local store, fronted by MinIO when an endpoint is set.
// An unreachable MinIO at startup degrades to local-only.
func newBackend(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (storage.Backend, error) {
	local, err := storage.NewLocal(cfg.Cache.Dir)
	if err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}
	if cfg.Minio.Endpoint == "" {
		return local, nil
	}

	primary, err := storage.NewMinio(ctx, storage.MinioOptions{
		Endpoint:  cfg.Minio.Endpoint,
		Region:    cfg.Minio.Region,
		Bucket:    cfg.Minio.BucketName,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		UseSSL:    cfg.Minio.UseSSL,
	})
	if err != nil {
		slog.Warn("minio unavailable, using local cache only", "endpoint", cfg.Minio.Endpoint, "error", err)
		return local, nil
	}
	slog.Info("cache backend", "primary", "minio", "bucket", cfg.Minio.BucketName, "fallback", local.Root())
	return storage.NewFallback(primary, local, m), nil
}

type migrator interface {
	history.Repository
	Migrate(ctx context.Context) error
}

func (a *App) openHistory(ctx context.Context) (history.Repository, error) {
	cfg := a.Config
	var (
		db   *sql.DB
		repo migrator
		err  error
	)
	switch cfg.Database.Driver {
	case "":
		return history.Nop{}, nil
	case "sqlite":
		if db, err = sqlitep.Open(cfg.Database.Path); err == nil {
			repo = sqlitep.NewRunRepository(db)
		}
	case "mysql":
		if db, err = mysqlp.Connect(ctx, cfg.MySQLDSN()); err == nil {
			repo = mysqlp.NewRunRepository(db)
		}
	case "postgres":
		if db, err = postgresp.Connect(ctx, cfg.PostgresDSN()); err == nil {
			repo = postgresp.NewRunRepository(db)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s migrate: %w", cfg.Database.Driver, err)
	}

	a.db = db
	a.Checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	slog.Info("run history enabled", "driver", cfg.Database.Driver)
	return repo, nil
}

func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
