package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"remedy/internal/bootstrap/config"
	"remedy/internal/bootstrap/database"
	"remedy/internal/bootstrap/logging"
	cacheinfra "remedy/internal/infrastructure/cache"
	"remedy/internal/infrastructure/idgen"
	"remedy/internal/infrastructure/persistence/relational/repository"
	relationaluow "remedy/internal/infrastructure/persistence/relational/uow"
	"remedy/internal/ports"
	"remedy/internal/usecase/remediation"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(repository.NewStores),
	fx.Provide(
		fx.Annotate(
			relationaluow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewKVCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(
		fx.Annotate(
			idgen.NewUUIDGenerator,
			fx.As(new(ports.IDGenerator)),
		),
	),
	fx.Provide(provideClock),
	fx.Provide(provideServiceOptions),
	fx.Provide(remediation.NewService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideClock() ports.Clock {
	return ports.SystemClock{}
}

func provideServiceOptions(cfg config.Config) remediation.Options {
	opts := remediation.DefaultOptions()
	opts.MaxBatchSize = cfg.Remediation.MaxBatchSize
	opts.SystemActors = cfg.Remediation.SystemActors
	opts.DefaultPageSize = cfg.Remediation.DefaultPageSize
	opts.MaxPageSize = cfg.Remediation.MaxPageSize
	return opts
}
