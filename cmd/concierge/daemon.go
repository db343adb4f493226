package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/spf13/cobra"

	"github.com/fentz26/concierge/internal/audit"
	"github.com/fentz26/concierge/internal/config"
	"github.com/fentz26/concierge/internal/connectors"
	"github.com/fentz26/concierge/internal/connectors/localexec"
	"github.com/fentz26/concierge/internal/controlplane"
	"github.com/fentz26/concierge/internal/log"
	loglogrus "github.com/fentz26/concierge/internal/log/logrus"
	"github.com/fentz26/concierge/internal/scheduler"
	"github.com/fentz26/concierge/internal/seed"
	"github.com/fentz26/concierge/internal/store"
	"github.com/fentz26/concierge/internal/telemetry"
)

var (
	listenAddr string
	dbPath     string
	envDir     string
	seedStore  bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the Concierge daemon",
	Long: `Starts the Concierge daemon which serves the HTTP API.

Configuration is read from the environment, after loading .env.<APP_ENV>
from --env-dir when present.`,
	RunE: runDaemon,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the daemon health",
	RunE: func(cmd *cobra.Command, args []string) error {
		health, err := CheckHealth()
		if health != nil {
			fmt.Printf("OK:      %t\n", health.OK)
			fmt.Printf("DB:      %s\n", health.DB)
			fmt.Printf("Version: %s\n", health.Version)
			fmt.Printf("Time:    %s\n", health.Time)
		}
		return err
	},
}

func init() {
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (default 127.0.0.1:$PORT)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (default $DB_PATH)")
	daemonCmd.Flags().StringVar(&envDir, "env-dir", ".", "Directory holding .env.<APP_ENV> files")
	daemonCmd.Flags().BoolVar(&seedStore, "seed", false, "Load sample data into an empty store")

	rootCmd.AddCommand(statusCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = config.Default().App.Env
	}
	envFile, err := config.LoadEnvFile(envDir, env)
	if err != nil {
		return err
	}

	// Config is loaded before the final logger exists, so a bootstrap
	// logger reports the defaults that were applied.
	bootLogger := newLogger(config.Default().App)
	cfg, err := config.Load(bootLogger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.App).WithValues(log.Kv{"app": "concierge", "env": cfg.App.Env})
	logger.Infof("Starting Concierge daemon %s (env file %s)", Version, envFile)

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "concierge",
		ServiceVersion: Version,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warningf("Telemetry shutdown error: %v", err)
		}
	}()

	if dbPath == "" {
		dbPath = cfg.Store.DBPath
	}
	s, err := store.New(dbPath, logger)
	if err != nil {
		return err
	}
	defer func() {
		logger.Infof("Closing database connection...")
		if err := s.Close(); err != nil {
			logger.Errorf("Database close error: %v", err)
		}
	}()

	if seedStore {
		fx, err := seed.Default()
		if err != nil {
			return err
		}
		if err := seed.Load(ctx, s, fx, logger); err != nil {
			return fmt.Errorf("seed store: %w", err)
		}
	}

	service, err := controlplane.NewService(controlplane.ServiceConfig{
		Store:  s,
		PDR:    audit.NewPDRWriter(s),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	if listenAddr == "" {
		listenAddr = fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	}
	server := controlplane.NewServer(service, controlplane.ServerConfig{
		Addr:    listenAddr,
		Version: Version,
		DB:      s,
		Logger:  logger,
	})

	reminders, err := scheduler.New(scheduler.Options{
		Source:   s,
		PDR:      audit.NewPDRWriter(s),
		Notifier: newNotifier(cfg.Reminders, logger),
		Config:   &scheduler.Config{
			Interval:   cfg.Reminders.Interval,
			Lookahead:  cfg.Reminders.Lookahead,
			GlobalMax:  scheduler.DefaultConfig().GlobalMax,
			ByNotifier: scheduler.DefaultConfig().ByNotifier,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				logger.Infof("Termination signal received, initiating graceful shutdown...")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// HTTP API.
	{
		g.Add(
			func() error {
				return server.Start()
			},
			func(_ error) {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				logger.Infof("Shutting down HTTP server...")
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Errorf("HTTP server shutdown error: %v", err)
				}
			},
		)
	}

	// Reminders.
	{
		schedCtx, schedCancel := context.WithCancel(ctx)
		g.Add(
			func() error {
				return reminders.Run(schedCtx)
			},
			func(_ error) {
				schedCancel()
			},
		)
	}

	if err := g.Run(); err != nil {
		return err
	}
	stats := reminders.GetStats()
	logger.Infof("Shutdown complete (%d reminders delivered, %d failed)", stats.Delivered, stats.Failed)
	return nil
}

// newNotifier falls back to logging when the configured command cannot be used.
func newNotifier(cfg config.RemindersConfig, logger log.Logger) connectors.Notifier {
	if cfg.Command == "" {
		return connectors.NewLogNotifier(logger)
	}
	n, err := localexec.New(cfg.Command)
	if err != nil {
		logger.Warningf("REMINDER_COMMAND unusable, logging reminders instead: %v", err)
		return connectors.NewLogNotifier(logger)
	}
	return n
}

func newLogger(app config.AppConfig) log.Logger {
	return loglogrus.New(loglogrus.Options{
		Out:   os.Stderr,
		Level: log.ParseLevel(app.LogLevel),
		JSON:  app.LogFormat == "json",
	})
}
