package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"creditbot/internal/config"
	"creditbot/internal/infrastructure"
	httpapi "creditbot/internal/interfaces/http"
	"creditbot/internal/interfaces/telegram"
	"creditbot/internal/repository"
	"creditbot/internal/usecases"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration")
	}

	pgClient, err := infrastructure.NewPostgresClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer pgClient.Close()

	if err := pgClient.Migrate(cfg.OwnerID, cfg.OwnerName); err != nil {
		log.Fatal().Err(err).Msg("migrate schema")
	}

	telegramClient, err := infrastructure.NewTelegramClient(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to telegram")
	}
	toolClient := infrastructure.NewToolClient()

	userRepo := repository.NewUserRepository(pgClient.Pool)
	referralRepo := repository.NewReferralRepository(pgClient.Pool)
	adminRepo := repository.NewAdminRepository(pgClient.Pool)
	settingsRepo := repository.NewSettingsRepository(pgClient.Pool)
	activityRepo := repository.NewActivityRepository(pgClient.Pool)

	ledger := usecases.NewLedgerUsecase(userRepo)
	referrals := usecases.NewReferralUsecase(userRepo, referralRepo, settingsRepo)
	security := usecases.NewAdminSecurityUsecase(adminRepo, userRepo, cfg.OwnerID)
	audit := usecases.NewAuditUsecase(activityRepo, adminRepo)
	conv := usecases.NewConversationUsecase(ledger, toolClient, audit)
	users := usecases.NewUserUsecase(userRepo, referrals, settingsRepo, security)
	broadcast := usecases.NewBroadcastUsecase(userRepo, ledger, telegramClient)
	export := usecases.NewExportUsecase(userRepo, adminRepo, cfg.OwnerID)

	opsAuth, err := usecases.NewOpsAuthUsecase(cfg.OpsUser, cfg.OpsPassword, cfg.JWTSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("ops auth setup")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	httpapi.SetupRoutes(router, opsAuth, users, security, audit, httpapi.NewMiddleware(opsAuth))

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("ops API listening")
		if err := router.Run(cfg.HTTPAddr); err != nil {
			log.Error().Err(err).Msg("ops API stopped")
		}
	}()

	handler := telegram.NewHandler(
		telegramClient.Bot, telegramClient,
		users, ledger, referrals, security, conv, broadcast, export, audit,
		settingsRepo, cfg.OwnerID,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Int64("owner_id", cfg.OwnerID).Str("session_id", audit.SessionID()).Msg("bot starting")
	handler.Run(ctx)
	log.Info().Msg("bot stopped")
}
