package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"example.com/carbontrack/internal/api"
	"example.com/carbontrack/internal/auth"
	"example.com/carbontrack/internal/config"
	"example.com/carbontrack/internal/domain"
	"example.com/carbontrack/internal/outbox"
	persistence "example.com/carbontrack/internal/persistence/postgres"
	httptransport "example.com/carbontrack/internal/transport/http"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()
	cfg := config.Load()

	table, err := domain.LoadFactorTable(cfg.FactorsPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load emission factor table")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)
	if err := repo.SeedFactors(ctx, table.Factors()); err != nil {
		log.WithError(err).Fatal("failed to seed emission factors")
	}

	producer := outbox.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	dispatcher := outbox.NewDispatcher(pool, producer, log, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	service := domain.NewService(table, repo, repo, domain.ServiceConfig{
		BaselineMode:        domain.BaselineMode(cfg.BaselineMode),
		FixedBaselineKg:     cfg.FixedBaselineKg,
		TreeSequestrationKg: cfg.TreeCO2KgPerYear,
	})

	handler := api.NewHandler(service, cfg.LeaderboardLimit)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(httptransport.RequestLogger(log, mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithField("address", cfg.HTTPAddress).Info("carbon tracker listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}

	dispatcher.Wait()
}
