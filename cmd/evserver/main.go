package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"evpredict/internal/api"
	"evpredict/internal/cfg"
	"evpredict/internal/dataset"
	"evpredict/internal/metrics"
	"evpredict/internal/predict"
	"evpredict/internal/registry"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c.LogLevel)

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	reg, err := registry.Load(c.ModelsDir, mw)
	if err != nil {
		log.Fatal().Err(err).Msg("model registry load failed")
	}
	log.Info().Strs("models", reg.List()).Str("default", reg.Default()).Msg("model registry ready")

	store := initializeDataset(c, mw)
	if store != nil {
		defer store.Close()
	}

	service := predict.NewService(reg, mw)

	server := api.NewServer(api.Config{
		Port:         c.Port,
		StaticDir:    c.StaticDir,
		TemplatesDir: c.TemplatesDir,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}, service, reg, store, mw)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	waitForShutdown(server)
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// initializeDataset opens the historical dataset store and imports the
// CSV export when configured. The dataset is optional: without it the
// prediction API still works, only the dashboard endpoints degrade.
func initializeDataset(c cfg.Settings, mw *metrics.Wrapper) *dataset.Store {
	if c.DataPath == "" {
		return nil
	}

	store, err := dataset.Open(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("dataset store unavailable, continuing without historical data")
		return nil
	}

	if c.DatasetCSV != "" {
		if _, err := store.ImportCSV(c.DatasetCSV); err != nil {
			log.Warn().Err(err).Str("csv", c.DatasetCSV).Msg("dataset import failed")
		}
	}

	if n, err := store.Count(); err == nil {
		mw.DatasetRecordsSet(float64(n))
		log.Info().Int("records", n).Msg("historical dataset ready")
	}

	return store
}

func waitForShutdown(server *api.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown timed out, forcing exit")
	}
}
