package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/carbon"
	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/config"
	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/dashboard"
	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/db"
	httpserver "github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/http"
	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/mqtt"
	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/watcher"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "tracker",
		Short:        "UK carbon intensity dashboard",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(newServeCmd(), newWatchCmd(), newRenderCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and its JSON API",
		RunE:  runServe,
	}
}

func newWatchCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the API on the refresh interval, archiving and publishing readings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single pass and exit")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var view string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one dashboard view to stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, view)
		},
	}
	cmd.Flags().StringVar(&view, "view", string(dashboard.ViewIntensity), "view to render (intensity|generation)")
	return cmd
}

// setup loads configuration and builds the logger and the upstream client.
func setup(cmd *cobra.Command) (config.Config, *logrus.Logger, *carbon.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("config error: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	client := carbon.NewClient(cfg.BaseURL, &http.Client{Timeout: cfg.RequestTimeout})
	return cfg, logger, client, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, client, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	var history httpserver.HistoryStore
	if cfg.ArchiveEnabled() {
		store, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db connection error: %w", err)
		}
		defer store.Close()
		history = store
	}

	srv := httpserver.New(cfg, client, history, logger)
	logger.WithFields(logrus.Fields{
		"upstream": client.BaseURL(),
		"refresh":  cfg.RefreshInterval.String(),
		"archive":  cfg.ArchiveEnabled(),
	}).Infof("dashboard listening on %s", cfg.ListenAddr())

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func runWatch(cmd *cobra.Command, once bool) error {
	cfg, logger, client, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	opts := watcher.Options{
		Source:   client,
		Interval: cfg.RefreshInterval,
		DryRun:   cfg.DryRun,
		Logger:   logger,
	}

	if cfg.ArchiveEnabled() {
		store, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db connection error: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate archive: %w", err)
		}
		opts.Archive = store
	} else {
		logger.Info("DATABASE_URL not set, archiving disabled")
	}

	if cfg.MQTTEnabled() {
		pub := mqtt.NewPublisher(cfg.MQTT, logger)
		if err := pub.Connect(); err != nil {
			return err
		}
		defer pub.Disconnect()
		opts.Publisher = pub
	} else {
		logger.Info("MQTT_BROKER not set, publishing disabled")
	}

	w := watcher.New(opts)
	if once {
		_, err := w.RunOnce(ctx)
		return err
	}

	logger.Infof("watching %s every %s", client.BaseURL(), cfg.RefreshInterval)
	return w.Run(ctx)
}

func runRender(cmd *cobra.Command, rawView string) error {
	view, err := dashboard.ParseView(rawView)
	if err != nil {
		return err
	}

	cfg, logger, client, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	out, renderErr := dashboard.New(client, cfg.RefreshInterval, logger).Render(ctx, view)
	if out != nil {
		if _, err := cmd.OutOrStdout().Write(out); err != nil {
			return err
		}
	}
	return renderErr
}
