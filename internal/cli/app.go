package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-stock-verifier/config"
	"github.com/fekuna/omnipos-stock-verifier/internal/logger"
	"github.com/fekuna/omnipos-stock-verifier/internal/metrics"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/processor"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/remote"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/repository"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/usecase"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// app is the wired engine for one command invocation.
type app struct {
	cfg     *config.Config
	logger  logger.ZapLogger
	db      *sqlx.DB
	repo    *repository.SQLiteRepository
	remote  stocktake.RemoteService
	engine  stocktake.Engine
	metrics *metrics.Collector
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	if opts.Config != nil {
		cfg := *opts.Config
		return &cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.ConfigFile != "" {
		if err := cfg.MergeFile(opts.ConfigFile); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) logger.ZapLogger {
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}
	return logger.NewZapLogger(logConfig)
}

func openApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg)

	db, err := repository.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	repo := repository.NewSQLiteRepository(db)

	rs := opts.Remote
	if rs == nil {
		rs = remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := usecase.NewStockTakeUseCase(rs, repo, log, usecase.Config{
		DeviceID: cfg.Remote.DeviceID,
		Online:   !(cfg.Sync.StartOffline || opts.Offline),
	})
	if err := engine.Load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  log,
		db:      db,
		repo:    repo,
		remote:  rs,
		engine:  engine,
		metrics: metrics.New(reg),
	}, nil
}

func (a *app) processor() *processor.Processor {
	return processor.NewProcessor(a.engine, a.remote, a.metrics, a.logger, processor.Config{
		SettleDelay: a.cfg.Sync.SettleDelay,
		RetryDelay:  a.cfg.Sync.RetryDelay,
	})
}

// close flushes the current state and releases the database.
func (a *app) close(ctx context.Context) error {
	st := a.engine.State()
	var errs []error
	if st.User != nil || st.ActiveSession != nil || len(st.Queue) > 0 {
		if err := a.repo.Save(ctx, &st); err != nil {
			errs = append(errs, fmt.Errorf("save snapshot: %w", err))
		}
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close db: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error("shutdown incomplete", zap.Error(err))
		return err
	}
	_ = a.logger.Sync()
	return nil
}

// withApp runs fn against a freshly loaded engine and persists the result.
func withApp(ctx context.Context, opts *RootOptions, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)
	closeErr := a.close(context.WithoutCancel(ctx))
	return errors.Join(runErr, closeErr)
}
