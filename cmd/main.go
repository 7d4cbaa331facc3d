package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/punchlog/timeclock-service/internal/app"
	"github.com/punchlog/timeclock-service/internal/config"
	"github.com/punchlog/timeclock-service/internal/controllers"
	"github.com/punchlog/timeclock-service/internal/middleware"
	"github.com/punchlog/timeclock-service/internal/repositories"
	"github.com/punchlog/timeclock-service/internal/services"
	"github.com/punchlog/timeclock-service/internal/utils"
)

func main() {
	utils.InitLogger("timeclock")
	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := app.ConnectDB(ctx, cfg)
	if err != nil {
		utils.Logger.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	// Repositories.
	credRepo := repositories.NewPasskeyCredentialRepository(pool)
	regChallengeRepo := repositories.NewRegistrationChallengeRepository(pool)
	authChallengeRepo := repositories.NewAuthenticationChallengeRepository(pool)
	workerRepo := repositories.NewWorkerRepository(pool)
	adminRepo := repositories.NewAdminRepository(pool)
	attemptsRepo := repositories.NewLoginAttemptsRepository(pool)
	tokenRepo := repositories.NewRefreshTokenRepository(pool)
	entryRepo := repositories.NewTimeEntryRepository(pool)
	syncOpRepo := repositories.NewSyncOperationRepository(pool)

	// Services.
	jwtService, err := services.NewJWTService(cfg, tokenRepo)
	if err != nil {
		utils.Logger.Fatalf("initializing jwt service: %v", err)
	}
	passkeyService, err := services.NewPasskeyService(cfg, credRepo, regChallengeRepo, authChallengeRepo, workerRepo)
	if err != nil {
		utils.Logger.Fatalf("initializing passkey service: %v", err)
	}
	adminAuthService := services.NewAdminAuthService(cfg, adminRepo, attemptsRepo, jwtService)
	entryService := services.NewTimeEntryService(entryRepo)
	syncService := services.NewSyncService(cfg, syncOpRepo, entryRepo, services.NewConflictResolver())
	cleanupService := services.NewCleanupService(regChallengeRepo, authChallengeRepo, tokenRepo)

	// Controllers.
	passkeyController := controllers.NewPasskeyController(passkeyService, jwtService, cfg.RefreshTokenTTL)
	authController := controllers.NewAuthController(jwtService, cfg.RefreshTokenTTL)
	adminAuthController := controllers.NewAdminAuthController(adminAuthService, cfg.RefreshTokenTTL)
	entryController := controllers.NewTimeEntryController(entryService)
	syncController := controllers.NewSyncController(syncService)
	healthController := controllers.NewHealthController(pool)

	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	router := mux.NewRouter()
	router.Use(controllers.SecurityHeaders)
	router.HandleFunc("/healthz", healthController.Health).Methods(http.MethodGet)

	// Public auth surface.
	auth := router.PathPrefix("/auth/v1").Subrouter()
	auth.HandleFunc("/passkey/login/options", passkeyController.BeginLogin).Methods(http.MethodPost)
	auth.HandleFunc("/passkey/login/verify", passkeyController.FinishLogin).Methods(http.MethodPost)
	auth.HandleFunc("/admin/login", adminAuthController.Login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh_token", authController.Refresh).Methods(http.MethodPost)
	auth.HandleFunc("/logout", authController.Logout).Methods(http.MethodPost)

	// Credential management needs a live worker session.
	authed := router.PathPrefix("/auth/v1/passkey").Subrouter()
	authed.Use(authMiddleware.Authenticate, authMiddleware.RequireRole(services.RoleWorker))
	authed.HandleFunc("/register/options", passkeyController.BeginRegistration).Methods(http.MethodPost)
	authed.HandleFunc("/register/verify", passkeyController.FinishRegistration).Methods(http.MethodPost)
	authed.HandleFunc("/credentials", passkeyController.ListCredentials).Methods(http.MethodGet)
	authed.HandleFunc("/credentials/{id}", passkeyController.RemoveCredential).Methods(http.MethodDelete)

	// Worker time tracking.
	worker := router.PathPrefix("/time/v1").Subrouter()
	worker.Use(authMiddleware.Authenticate, authMiddleware.RequireRole(services.RoleWorker))
	worker.HandleFunc("/entries", entryController.Create).Methods(http.MethodPost)
	worker.HandleFunc("/entries", entryController.List).Methods(http.MethodGet)
	worker.HandleFunc("/entries/{id}", entryController.Get).Methods(http.MethodGet)
	worker.HandleFunc("/entries/{id}", entryController.Update).Methods(http.MethodPut)
	worker.HandleFunc("/entries/{id}", entryController.Delete).Methods(http.MethodDelete)
	worker.HandleFunc("/entries/{id}/submit", entryController.Submit).Methods(http.MethodPost)
	worker.HandleFunc("/sync", syncController.Push).Methods(http.MethodPost)
	worker.HandleFunc("/sync/unresolved", syncController.ListUnresolved).Methods(http.MethodGet)
	worker.HandleFunc("/sync/{id}/resolve", syncController.Resolve).Methods(http.MethodPost)

	// Admin review surface.
	admin := router.PathPrefix("/time/v1/admin").Subrouter()
	admin.Use(authMiddleware.Authenticate, authMiddleware.RequireRole(services.RoleAdmin))
	admin.HandleFunc("/entries", entryController.ListForReview).Methods(http.MethodGet)
	admin.HandleFunc("/entries/{id}/approve", entryController.Approve).Methods(http.MethodPost)
	admin.HandleFunc("/entries/{id}/reject", entryController.Reject).Methods(http.MethodPost)
	admin.HandleFunc("/sync/online", syncController.SetOnline).Methods(http.MethodPut)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Platform", "X-Device-ID"},
		AllowCredentials: true,
	})

	// Expired challenges are purged often since they only live for minutes;
	// dead refresh tokens once a night.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("*/15 * * * *", func() {
		cleanupService.CleanupChallenges(context.Background())
	}); err != nil {
		utils.Logger.Fatalf("scheduling challenge cleanup job: %v", err)
	}
	if _, err := scheduler.AddFunc("5 3 * * *", func() {
		cleanupService.CleanupTokens(context.Background())
	}); err != nil {
		utils.Logger.Fatalf("scheduling token cleanup job: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		utils.Logger.Infof("listening on :%s", cfg.AppPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	utils.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.Logger.Errorf("graceful shutdown: %v", err)
	}
}
