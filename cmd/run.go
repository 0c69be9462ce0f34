package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/SergeOin/titan/internal/agent"
	"github.com/SergeOin/titan/internal/api"
	"github.com/SergeOin/titan/internal/classifier"
	"github.com/SergeOin/titan/internal/config"
	"github.com/SergeOin/titan/internal/ingest"
	"github.com/SergeOin/titan/internal/logger"
	"github.com/SergeOin/titan/internal/pacing"
	"github.com/SergeOin/titan/internal/ratelimit"
	"github.com/SergeOin/titan/internal/storage"
)

const shutdownGrace = 10 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ingestion loop and the HTTP API",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck // stderr sync failure is unactionable

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage cascade. The document tier is optional at startup; a dead
	// Mongo only shortens the cascade. SQLite is mandatory because the
	// dashboard reads from it.
	var backends []storage.Backend
	if cfg.Storage.MongoURI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Storage.ConnectTimeout)
		mongoStore, mongoErr := storage.NewMongoStore(connectCtx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase, log)
		cancel()
		if mongoErr != nil {
			log.Warn("mongodb unavailable, cascade starts at sqlite", logger.Error(mongoErr))
		} else {
			backends = append(backends, mongoStore)
			defer func() {
				closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer closeCancel()
				if err := mongoStore.Close(closeCtx); err != nil {
					log.Warn("mongodb close failed", logger.Error(err))
				}
			}()
		}
	}

	sqliteStore, err := storage.NewSQLiteStore(cfg.Storage.SQLitePath, log)
	if err != nil {
		return err
	}
	defer sqliteStore.Close() //nolint:errcheck

	fileStore, err := storage.NewFileStore(cfg.Storage.FallbackPath, log)
	if err != nil {
		return err
	}
	backends = append(backends, sqliteStore, fileStore)
	writer := storage.NewWriter(log, backends...)
	// The dashboard reads from SQLite; mirror every batch there so a
	// healthy Mongo tier never makes accepted posts invisible to it.
	writer.MirrorTo(sqliteStore)

	controller := pacing.NewController(cfg.Pacing, cfg.StatePath, log)
	risk := ratelimit.NewRiskMonitor(cfg.Cooldown, log)
	bucket := ratelimit.NewBucket(cfg.RateLimit, log)
	gate := ratelimit.NewSessionGate(cfg.RateLimit.Sessions)

	loop := ingest.NewLoop(
		cfg.Ingest,
		agent.NewClient(cfg.Agent),
		classifier.New(cfg.Classifier),
		controller,
		risk,
		bucket,
		gate,
		writer,
		log,
	)

	server := api.New(cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, api.Dependencies{
		Controller: controller,
		Loop:       loop,
		Writer:     writer,
		Store:      sqliteStore,
		Risk:       risk,
	}, log)

	// The daily quota also rolls over lazily inside the controller; the cron
	// entry just makes the reset prompt when the loop is sleeping.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@midnight", controller.RolloverDay); err != nil {
		return fmt.Errorf("schedule quota rollover: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(ctx)
	})

	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Redis.Enabled() {
		trig := ingest.NewRedisTrigger(cfg.Redis, loop.Trigger, log)
		defer trig.Close() //nolint:errcheck
		g.Go(func() error {
			return trig.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
