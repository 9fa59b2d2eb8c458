package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-cookieconsent/internal/app"
	"go-cookieconsent/internal/auth"
	"go-cookieconsent/internal/banner"
	"go-cookieconsent/internal/config"
	"go-cookieconsent/internal/handler"
	"go-cookieconsent/internal/logger"
	"go-cookieconsent/internal/middleware"
	"go-cookieconsent/internal/session"
	"go-cookieconsent/internal/view"
	"go-cookieconsent/web"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, os.Stdout)

	if cfg.Privacy.IPHashKey == "" {
		log.Warn("privacy.ipHashKey is empty; IP digests are unkeyed. Set COOKIECONSENT_PRIVACY_IPHASHKEY in production.")
	}

	// --- Store, Migrations and Services ---
	log.Info(fmt.Sprintf("Opening %s document store...", cfg.DB.Driver))
	ctx := context.Background()
	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal(err, "Failed to initialize application")
	}
	defer application.Close()
	log.Info("Document store ready.")

	if cfg.Seed.Categories {
		created, err := application.Admin.SeedCategories(ctx)
		if err != nil {
			log.Fatal(err, "Failed to seed default categories")
		}
		log.Info(fmt.Sprintf("Category seeding complete, %d created.", created))
	}

	// --- Session Management Setup ---
	sessionManager := session.New(cfg.Session, cfg.DB.Driver, application.DB, cfg.Server.TLS.Enabled)

	// --- Authorization Setup ---
	log.Info("Initializing authorization...")
	enforcer, err := auth.NewEnforcer(cfg.DB.Driver, application.DB)
	if err != nil {
		log.Fatal(err, "Failed to initialize enforcer")
	}
	auth.SeedDefaultPolicies(enforcer, log)

	// --- View Template Initialization ---
	viewService, err := view.New(web.TemplateFS)
	if err != nil {
		log.Fatal(err, "Failed to initialize view templates")
	}

	// --- Handler Initialization ---
	renderer := banner.NewRenderer(application.Config, banner.ClientOptions{
		Endpoint:   cfg.Consent.Endpoint,
		LibraryURL: cfg.Consent.LibraryURL,
	}, log)
	router := handler.NewRouter(handler.Router{
		Consent:    handler.NewConsentHandler(application.Consent, log),
		Banner:     handler.NewBannerHandler(application.Config, renderer, viewService, cfg.Consent.DefaultLocale, log),
		Admin:      handler.NewAdminHandler(application.Admin, sessionManager, log),
		Sessions:   sessionManager,
		Authz:      middleware.Authorizer(enforcer, log),
		APIErrors:  middleware.JSONError(log),
		PageErrors: middleware.Error(log, viewService),
		Metrics:    application.Metrics.Handler(),
	})

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err, "Server forced to shutdown")
	}
	log.Info("Server exiting")
}
