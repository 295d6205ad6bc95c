package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	_ "rms_pipeline/docs"
	"rms_pipeline/internal/config"
	"rms_pipeline/internal/export"
	"rms_pipeline/internal/handlers"
	"rms_pipeline/internal/logger"
	"rms_pipeline/internal/repository"
	"rms_pipeline/internal/repository/db"
	"rms_pipeline/internal/server"
	"rms_pipeline/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	flags := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	configPath := flags.String("config", "", "config file (default configs/config.yml)")
	hashKey := flags.String("hash-key", "", "print the bcrypt hash of an operator key and exit")
	flags.String("mode", config.ModeBatch, "batch | serve | import")
	flags.String("port", "", "HTTP port for serve mode")
	flags.String("log_level", "", "debug | info | warn | error")
	flags.String("data.source", "", "csv | sqlite")
	flags.String("data.dir", "", "CSV folder")
	flags.String("data.db_path", "", "SQLite file")
	flags.String("output.dir", "", "export folder for batch mode")
	_ = flags.Parse(os.Args[1:])

	if *hashKey != "" {
		hash, err := service.HashKey(*hashKey)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		fmt.Println(hash)
		return 0
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		logger.Get(logger.InfoLevel).Errorw("error reading config", "err", err)
		return 2
	}

	log := logger.Get(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, closeRepos, err := openRepository(cfg, log)
	if err != nil {
		log.Errorw("failed to open source", "source", cfg.Data.Source, "err", err)
		return 1
	}
	defer closeRepos()

	services := service.NewService(repos, cfg.AuthConfig(), log)

	switch cfg.Mode {
	case config.ModeServe:
		return serve(ctx, cfg, services, log)
	case config.ModeImport:
		return importCSV(ctx, cfg, log)
	default:
		return batch(ctx, cfg, services, log)
	}
}

// openRepository opens the configured source. The returned func releases it.
func openRepository(cfg *config.Config, log *logger.Logger) (*repository.Repository, func(), error) {
	if cfg.Data.Source != config.SourceSQLite {
		log.Infow("source_opened", "source", config.SourceCSV, "dir", cfg.Data.Dir)
		return repository.NewCSVRepository(cfg.Data.Dir), func() {}, nil
	}

	conn, err := db.InitDB(cfg.Data.DBPath)
	if err != nil {
		return nil, nil, err
	}
	log.Infow("source_opened", "source", config.SourceSQLite, "path", cfg.Data.DBPath)
	return repository.NewSQLiteRepository(conn), func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}, nil
}

// batch loads every unit, runs the pipeline once and exports the results.
// It returns 1 when any unit failed to load or process.
func batch(ctx context.Context, cfg *config.Config, services *service.Service, log *logger.Logger) int {
	units, loadErr := services.LoadUnits(ctx, service.UnitFilter{})
	if units == nil {
		log.Errorw("failed to load units", "err", loadErr)
		return 1
	}

	report, err := services.Pipeline.Run(ctx, units, cfg.Params())
	if err != nil {
		log.Errorw("run aborted", "run_id", report.RunID, "err", err)
		return 1
	}
	for id, warnings := range report.Warnings {
		for _, w := range warnings {
			log.Warnw("unit_warning", "unit", id, "warning", w)
		}
	}

	if cfg.Output.Dir != "" {
		paths, err := export.WriteReport(cfg.Output.Dir, report)
		if err != nil {
			log.Errorw("export failed", "dir", cfg.Output.Dir, "err", err)
			return 1
		}
		log.Infow("results_exported", "dir", cfg.Output.Dir, "files", len(paths))
	}

	if loadErr != nil || len(report.Errors) > 0 {
		log.Errorw("run finished with failures", "run_id", report.RunID, "load_err", loadErr, "unit_err", report.Err())
		return 1
	}
	return 0
}

// importCSV copies the CSV folder into the SQLite file.
func importCSV(ctx context.Context, cfg *config.Config, log *logger.Logger) int {
	conn, err := db.InitDB(cfg.Data.DBPath)
	if err != nil {
		log.Errorw("failed to init sqlite", "err", err)
		return 1
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	ingest := service.NewIngestService(repository.NewCSVFolder(cfg.Data.Dir), log)
	saved, err := ingest.CopyTo(ctx, repository.NewSQLiteSource(conn), service.UnitFilter{})
	if err != nil {
		log.Errorw("import finished with failures", "saved", saved, "err", err)
		return 1
	}
	log.Infow("import finished", "saved", saved, "db", cfg.Data.DBPath)
	return 0
}

// serve runs the HTTP API until ctx is canceled, then shuts down gracefully.
func serve(ctx context.Context, cfg *config.Config, services *service.Service, log *logger.Logger) int {
	apiHandler := handlers.NewHandler(services, cfg.Params(), log)
	if !services.Authorization.Enabled() {
		log.Warnw("auth disabled; /api/v1 is open", "hint", "set auth.signing_key and auth.key_hash")
	}

	ln, err := server.Listen(cfg.Port)
	if err != nil {
		log.Errorw("error starting server", "port", cfg.Port, "err", err)
		return 1
	}
	log.Infow("http_listening", "addr", ln.Addr().String())

	srv := &server.Server{}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln, apiHandler.InitRoutes())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Errorw("error starting server", "err", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	log.Infow("shutting down server...")

	// runs in flight get shutdownTimeout to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
		return 1
	}
	return 0
}
