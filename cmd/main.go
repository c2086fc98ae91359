package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/clarify"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/compliance"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/config"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/crisisgate"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/db"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/encoder"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/handlers"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/logger"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/observability"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/orchestrator"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/repos"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/server"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/sessioncache"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/utils"
)

const serviceName = "saoriverse-console"

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	log.Info("Loading configuration from main...")
	cfg, err := config.Load(log)
	if err != nil {
		log.Error("Configuration invalid", "error", err)
		os.Exit(1)
	}

	// Tracing
	ctx := context.Background()
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: logMode,
		Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
	})

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	encodedRecordRepo := repos.NewEncodedRecordRepo(thePG, log)
	clarificationRepo := repos.NewClarificationRepo(thePG, log)
	transcriptRepo := repos.NewConsentTranscriptRepo(thePG, log)

	// Session cache
	var cache sessioncache.Cache
	if addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log)); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: utils.GetEnv("REDIS_PASSWORD", "", nil),
		})
		cache = sessioncache.NewRedisCache(rdb, log)
		log.Info("Session cache backed by redis", "addr", addr)
	} else {
		cache = sessioncache.NewMemoryCache()
		log.Info("Session cache is in-memory; sessions will not survive restarts")
	}

	// Components
	log.Info("Setting up components from main...")
	enc, err := encoder.New(cfg)
	if err != nil {
		log.Error("Could not init Encoder", "error", err)
		os.Exit(1)
	}
	lexicon := crisisgate.DefaultLexicon()
	if cfg.CrisisLexiconPath != "" {
		lexicon, err = crisisgate.LoadLexiconFile(cfg.CrisisLexiconPath)
		if err != nil {
			log.Warn("Lexicon override unavailable, using defaults", "error", err)
		}
	}
	gate := crisisgate.New(lexicon, cfg.CrisisLocale)
	clarificationStore, err := clarify.NewStore(clarify.Config{
		Repo:      clarificationRepo,
		Path:      cfg.ClarificationStorePath,
		DBTimeout: cfg.ClarificationDBTimeout,
		Patterns:  cfg.ClarificationPatterns,
	}, log)
	if err != nil {
		log.Error("Could not init ClarificationStore", "error", err)
		os.Exit(1)
	}
	storage := orchestrator.NewRepoStorage(encodedRecordRepo, transcriptRepo)
	verifier := compliance.NewVerifier(storage, log)
	orch, err := orchestrator.New(orchestrator.Config{
		Encoder:        enc,
		Gate:           gate,
		Storage:        storage,
		Clarifications: clarificationStore,
		Cache:          cache,
	}, log)
	if err != nil {
		log.Error("Could not init Orchestrator", "error", err)
		os.Exit(1)
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	turnHandler := handlers.NewTurnHandler(log, orch)
	complianceHandler := handlers.NewComplianceHandler(log, verifier)
	clarificationHandler := handlers.NewClarificationHandler(log, clarificationStore)
	transcriptHandler := handlers.NewTranscriptHandler(log, transcriptRepo)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ServiceName:          serviceName,
		TurnHandler:          turnHandler,
		ComplianceHandler:    complianceHandler,
		ClarificationHandler: clarificationHandler,
		TranscriptHandler:    transcriptHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	srv := &http.Server{Addr: ":" + port, Handler: router}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if otelShutdown != nil {
			_ = otelShutdown(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})
	if err := group.Wait(); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
	log.Info("Server stopped cleanly")
}
