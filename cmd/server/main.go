package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"taxiihub/internal/api"
	"taxiihub/internal/api/handlers"
	"taxiihub/internal/config"
	"taxiihub/internal/infrastructure/cache"
	"taxiihub/internal/infrastructure/database"
	"taxiihub/internal/infrastructure/database/repository"
	"taxiihub/internal/streaming"
	"taxiihub/internal/taxii/dispatch"
	taxiihandlers "taxiihub/internal/taxii/handlers"
	"taxiihub/internal/taxii/query"
	"taxiihub/pkg/logger"
)

// Handler ids referenced by service records
const (
	handlerDiscovery  = "discovery"
	handlerCollection = "collection_management"
	handlerInbox      = "inbox"
	handlerPoll       = "poll"
	handlerQuerySTIX  = "stix-1.1.1"
)

func main() {
	// Load configuration
	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var log *logger.Logger
	if cfg.App.Environment == "production" {
		log = logger.NewProduction()
	} else {
		log = logger.NewDevelopment()
	}
	logger.SetGlobal(log)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting TAXII hub")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize infrastructure
	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer db.Close()

	redisCache, err := cache.NewRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisCache.Close()

	// Initialize repositories
	serviceRepo := repository.NewServiceRepository(db.Pool())
	collectionRepo := repository.NewCollectionRepository(db.Pool())
	blockRepo := repository.NewBlockRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db.Pool())
	inboxRepo := repository.NewInboxRepository(db.Pool())
	handlerMetaRepo := repository.NewHandlerMetaRepository(db.Pool())

	resultStore := cache.NewResultSetStore(redisCache, cfg.TAXII.ResultRetention)

	// Optional NATS publisher for content events
	var events taxiihandlers.EventPublisher
	if cfg.NATS.Enabled {
		publisher, err := streaming.NewNATSPublisher(ctx, cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, continuing without content events")
		} else {
			defer publisher.Close()
			events = publisher
		}
	}

	// Register message and query handlers
	registry := dispatch.NewRegistry(log)

	registry.RegisterQueryHandler(
		query.NewHandler(handlerQuerySTIX, query.TargetingExpressionSTIX111, query.STIX111Schema(), log),
		"Default query evaluation over STIX 1.1.1 content")

	registry.RegisterMessageHandler(handlerDiscovery,
		taxiihandlers.NewDiscoveryHandler(serviceRepo, registry, log),
		"Discovery service")
	registry.RegisterMessageHandler(handlerCollection,
		dispatch.NewMultiHandler(
			taxiihandlers.NewCollectionInformationHandler(collectionRepo, serviceRepo, log),
			taxiihandlers.NewSubscriptionHandler(collectionRepo, subscriptionRepo, serviceRepo, log),
		),
		"Collection management service")
	registry.RegisterMessageHandler(handlerInbox,
		taxiihandlers.NewInboxHandler(collectionRepo, blockRepo, inboxRepo, events, log),
		"Inbox service")
	registry.RegisterMessageHandler(handlerPoll,
		dispatch.NewMultiHandler(
			taxiihandlers.NewPollHandler(collectionRepo, blockRepo, subscriptionRepo, resultStore, registry, cfg.TAXII, log),
			taxiihandlers.NewFulfillmentHandler(blockRepo, resultStore, log),
		),
		"Poll service")

	if err := registry.SyncMetadata(ctx, handlerMetaRepo); err != nil {
		log.Warn().Err(err).Msg("handler metadata sync incomplete")
	}

	dispatcher := dispatch.NewDispatcher(registry, cfg.TAXII.VerboseStatus, log)

	// Initialize handlers and router
	h := handlers.New(serviceRepo, dispatcher, db, redisCache, log)
	router := api.NewRouter(*cfg, h, redisCache, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("shutdown complete")
}
