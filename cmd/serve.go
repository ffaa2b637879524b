package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"datalab/chart"
	"datalab/db"
	dhttp "datalab/http"
	"datalab/logger"
	"datalab/monitoring"
	"datalab/pipeline"
	"datalab/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		log, _, err := logger.New(logger.Options{
			Level:      c.Log.Level,
			File:       c.Log.File,
			Console:    c.Log.Console,
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			MaxAgeDays: c.Log.MaxAgeDays,
		})
		if err != nil {
			return err
		}
		defer log.Sync()

		store, err := db.Open(c.Database.Path, log)
		if err != nil {
			return err
		}
		defer store.Close()
		log.Info("database initialized", zap.String("path", c.Database.Path))

		sessions, err := session.NewStore(c.Sessions.Capacity, c.ML.Seed, log)
		if err != nil {
			return err
		}
		hub := monitoring.NewHub(log)
		go hub.Run()
		defer hub.Stop()

		api := dhttp.NewAPI(dhttp.Options{
			Sessions:  sessions,
			Runs:      store,
			Hub:       hub,
			Metrics:   monitoring.NewMetrics(),
			Renderer:  chart.HTMLRenderer{PlotlyCDN: c.Charts.PlotlyCDN},
			ModelPath: c.ML.ModelPath,
			TestSize:  c.ML.TestSize,
			Logger:    log,
		})

		if _, err := os.Stat(c.ML.ModelPath); err == nil {
			if err := api.ReloadDefault(c.ML.ModelPath); err != nil {
				log.Warn("existing model bundle not loaded", zap.String("path", c.ML.ModelPath), zap.Error(err))
			} else {
				log.Info("model bundle loaded", zap.String("path", c.ML.ModelPath))
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if c.ML.WatchModel {
			watcher := pipeline.NewBundleWatcher(c.ML.ModelPath, api.ReloadDefault, log)
			go func() {
				if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("model watcher stopped", zap.Error(err))
				}
			}()
		}

		server := dhttp.NewServer(dhttp.ServerConfig{
			Port:           c.HTTP.Port,
			Timeout:        c.HTTP.TimeoutDuration(),
			AllowedOrigins: c.HTTP.AllowedOrigins,
			MaxBodyBytes:   int64(c.HTTP.MaxUploadMB) << 20,
		}, api, log)

		errc := make(chan error, 1)
		go func() { errc <- server.Start() }()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}
		return server.Stop()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
