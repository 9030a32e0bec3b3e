package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/string-search/config"
	"github.com/angeloszaimis/string-search/internal/dataset"
	"github.com/angeloszaimis/string-search/internal/handler"
	"github.com/angeloszaimis/string-search/internal/metrics"
	"github.com/angeloszaimis/string-search/internal/server"
	"github.com/angeloszaimis/string-search/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the lookup server",
	Long: `Run the lookup server with the settings from the config file and
STRINGSEARCH_* environment variables.

Examples:
  stringsearch serve
  stringsearch serve --config /etc/stringsearch/config.yaml
  STRINGSEARCH_SEARCH_ALGORITHM=jump stringsearch serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out, closer, err := logger.Output(cfg.Logging.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	log := logger.New(cfg.LogLevel(), true, cfg.Server.Environment, out)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return serve(ctx, cfg, log)
}

// serve runs the server until ctx is cancelled. Startup failures are logged
// and returned.
func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	provider, err := initializeDataset(cfg, log)
	if err != nil {
		log.Error("Failed to load dataset", slog.String("path", cfg.Dataset.Path), slog.Any("err", err))
		return err
	}

	alg := createAlgorithm(log, cfg.Search.Algorithm)

	stats := metrics.NewStats()
	connHandler := handler.NewConnectionHandler(log, provider, alg, stats, cfg.Request.MaxPayload)

	srv, err := server.New(server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		TLSEnabled:     cfg.TLS.Enabled,
		CertFile:       cfg.TLS.Cert,
		KeyFile:        cfg.TLS.Key,
		MaxConnections: cfg.Server.MaxConnections,
	}, connHandler, log)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		return err
	}

	log.Info("Starting server",
		slog.String("algorithm", alg.Name()),
		slog.Bool("reread_on_query", provider.Rereads()),
		slog.Int("max_payload", cfg.Request.MaxPayload))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	reporter := metrics.NewReporter(stats, cfg.ReportInterval(), log)
	reporter.Start(runCtx)

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start(runCtx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			runErr = err
		}
	}

	stop()
	<-reporter.Done()

	return runErr
}

// initializeDataset builds the configured provider. In reread mode the file
// is only probed so a missing file at startup is a warning.
func initializeDataset(cfg *config.Config, log *slog.Logger) (dataset.Provider, error) {
	if cfg.Dataset.RereadOnQuery {
		if _, err := dataset.Load(cfg.Dataset.Path); err != nil {
			log.Warn("Dataset not readable yet, queries will fail until it is",
				slog.String("path", cfg.Dataset.Path),
				slog.Any("err", err))
		}
	}

	return dataset.New(cfg.Dataset.Path, cfg.Dataset.RereadOnQuery, log)
}
