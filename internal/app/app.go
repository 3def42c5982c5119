package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"notionsync/internal/config"
	"notionsync/internal/notion"
	"notionsync/internal/runlog"
	"notionsync/internal/source"
	"notionsync/internal/syncer"
)

type App struct {
	Config   config.Config
	Source   source.Source
	Notion   *notion.Client
	Recorder *runlog.Recorder
	Syncer   *syncer.Service
	Logger   *zap.Logger
}

// New connects to both sides of the sync. The run cannot start unless the
// Notion database is reachable and the source answers a ping; the run
// recorder is best effort.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := notion.NewClient(notion.Options{
		Token:      cfg.Notion.Token,
		DatabaseID: cfg.Notion.DatabaseID,
		BaseURL:    cfg.Notion.APIURL,
		Version:    cfg.Notion.Version,
		RateLimit:  cfg.Notion.RateLimit,
		Timeout:    cfg.Notion.Timeout,
		Logger:     logger.Named("notion"),
	})
	if err != nil {
		return nil, err
	}
	schema, err := client.RetrieveDatabase(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to notion database: %w", err)
	}
	checkSchema(logger, cfg, schema)

	src, err := source.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to %s database: %w", cfg.Database.Type, err)
	}
	logger.Info("connected to source database", zap.String("type", src.Name()))

	svc := syncer.NewService(client, cfg.Mapping, logger.Named("sync"))
	if cfg.Database.MarkSynced {
		svc.Marker = src
	}

	a := &App{
		Config: cfg,
		Source: src,
		Notion: client,
		Syncer: svc,
		Logger: logger,
	}

	if cfg.Redis.URL != "" {
		rec, err := runlog.New(cfg.Redis.URL)
		if err != nil {
			logger.Warn("run log disabled", zap.Error(err))
		} else if err := rec.Ping(ctx); err != nil {
			logger.Warn("run log disabled", zap.Error(err))
			_ = rec.Close()
		} else {
			a.Recorder = rec
		}
	}
	return a, nil
}

// Run performs one full pass: fetch the pending rows, upsert them and record
// the outcome.
func (a *App) Run(ctx context.Context) (syncer.Summary, error) {
	records, err := a.Source.Fetch(ctx)
	if err != nil {
		return syncer.Summary{}, fmt.Errorf("fetch records: %w", err)
	}
	a.Logger.Info(fmt.Sprintf("Found %d records to sync", len(records)))

	summary, runErr := a.Syncer.Run(ctx, records)
	a.record(ctx, len(records), summary, runErr)
	return summary, runErr
}

func (a *App) record(ctx context.Context, fetched int, summary syncer.Summary, runErr error) {
	if a.Recorder == nil {
		return
	}
	entry := runlog.Entry{
		DatabaseID: a.Notion.DatabaseID(),
		Source:     a.Source.Name(),
		Fetched:    fetched,
		Summary:    summary,
	}
	if runErr != nil {
		entry.Aborted = runErr.Error()
	}
	// An interrupted run is still worth recording.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	runID, err := a.Recorder.Record(recCtx, entry)
	if err != nil {
		a.Logger.Warn("could not record run", zap.Error(err))
		return
	}
	a.Logger.Debug("recorded run", zap.String("run_id", runID))
}

func (a *App) Close() error {
	var err error
	if a.Source != nil {
		err = a.Source.Close()
	}
	if a.Recorder != nil {
		_ = a.Recorder.Close()
	}
	return err
}

func checkSchema(logger *zap.Logger, cfg config.Config, schema map[string]string) {
	for _, prop := range cfg.Mapping.Properties {
		typ, ok := schema[prop.Name]
		switch {
		case !ok:
			logger.Warn("mapped property missing from notion database", zap.String("property", prop.Name))
		case typ != prop.Type:
			logger.Warn("mapped property type differs from notion database",
				zap.String("property", prop.Name),
				zap.String("mapped", prop.Type),
				zap.String("notion", typ))
		}
	}
}
