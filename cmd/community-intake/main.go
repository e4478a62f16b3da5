package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"community-intake-service/internal/api"
	"community-intake-service/internal/app"
	"community-intake-service/internal/config"
	"community-intake-service/internal/forum"
	"community-intake-service/internal/identity"
	"community-intake-service/internal/intake"
	"community-intake-service/internal/notify"
	"community-intake-service/internal/observability"
	"community-intake-service/internal/pipeline"
	"community-intake-service/internal/store"
	"community-intake-service/internal/stt"
	"community-intake-service/internal/stt/google"
	"community-intake-service/internal/stt/mock"
)

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	logger := application.Logger

	ctx := context.Background()

	st, err := store.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure database schema")
	}

	if cfg.Identity.SeedBadgeID != "" && cfg.Identity.SeedPassword != "" {
		if err := seedOfficer(ctx, st, cfg.Identity); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed officer")
		}
		logger.Info().Str("badgeId", cfg.Identity.SeedBadgeID).Msg("officer seeded")
	}

	notifier := notify.New(&notify.Config{
		Enabled:   cfg.Kafka.Enabled,
		Brokers:   cfg.Kafka.Brokers,
		Topic:     cfg.Kafka.Topic,
		Principal: cfg.Kafka.Principal,
	})
	defer notifier.Close()

	recognizer, closeRec, err := buildRecognizer(ctx, cfg.STT.Provider)
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.STT.Provider).Msg("failed to build recognizer")
	}
	defer closeRec()

	pipe, err := pipeline.New(recognizer, pipeline.Options{
		MaxSegmentMs: cfg.Pipeline.MaxSegmentMs,
		Parallelism:  cfg.Pipeline.Parallelism,
		CallTimeout:  cfg.Pipeline.CallTimeout,
		Provider:     cfg.STT.Provider,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build transcription pipeline")
	}

	intakeSvc := intake.NewService(st, notifier, pipe, logger)
	forumSvc := forum.NewService(st, cfg.Forum.DuplicateWindow, logger)
	directory := identity.NewDirectory(st)
	if cfg.Identity.JWTSecret == "" {
		logger.Warn().Msg("JWT_SECRET not set, officer tokens are signed with an empty key")
	}
	tokens := identity.NewTokenVerifier([]byte(cfg.Identity.JWTSecret), cfg.Identity.Issuer)

	apiServer := api.NewServer(cfg.Service.APIAddr, intakeSvc, forumSvc, directory, tokens, cfg.Pipeline.LanguageTag, logger)
	apiServer.Start()

	opsServer := observability.NewServer(cfg.Observability.HTTPAddr, st.Ping)
	opsServer.Start()

	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start application")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("API server shutdown error")
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("observability server shutdown error")
	}
	application.Shutdown()
}

// buildRecognizer selects the recognition backend by provider name.
func buildRecognizer(ctx context.Context, provider string) (stt.Recognizer, func(), error) {
	switch provider {
	case "google":
		adapter, err := google.New(ctx)
		if err != nil {
			return nil, nil, err
		}
		return adapter, func() { _ = adapter.Close() }, nil
	default:
		return mock.New(), func() {}, nil
	}
}

// seedOfficer registers the bootstrap officer account so a fresh
// deployment has at least one identity that can reply on the forum.
func seedOfficer(ctx context.Context, st *store.Store, cfg config.IdentityConfig) error {
	hash, err := identity.HashPassword(cfg.SeedPassword)
	if err != nil {
		return err
	}
	name := cfg.SeedName
	if name == "" {
		name = cfg.SeedBadgeID
	}
	return st.UpsertOfficer(ctx, &store.OfficerRecord{
		BadgeID:        cfg.SeedBadgeID,
		DisplayName:    name,
		CredentialHash: hash,
		Role:           "officer",
	})
}
