package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nextstep-care/platform/internal/analytics"
	"github.com/nextstep-care/platform/internal/assistant"
	"github.com/nextstep-care/platform/internal/audit"
	"github.com/nextstep-care/platform/internal/client"
	"github.com/nextstep-care/platform/internal/llm"
	"github.com/nextstep-care/platform/internal/matching"
	"github.com/nextstep-care/platform/internal/notification"
	"github.com/nextstep-care/platform/internal/referral"
	"github.com/nextstep-care/platform/internal/resource"
	"github.com/nextstep-care/platform/internal/risk"
	"github.com/nextstep-care/platform/internal/search"
	"github.com/nextstep-care/platform/internal/shared/auth"
	"github.com/nextstep-care/platform/internal/shared/config"
	"github.com/nextstep-care/platform/internal/shared/database"
	"github.com/nextstep-care/platform/internal/shared/events"
	"github.com/nextstep-care/platform/internal/shared/metrics"
	secmiddleware "github.com/nextstep-care/platform/internal/shared/middleware"
	"github.com/nextstep-care/platform/internal/survey"
)

// App holds all application dependencies
type App struct {
	Config *config.Config
	DB     *database.DB
	Bus    events.EventBus

	Clients   client.Store
	Resources resource.Store
	LLM       *llm.Client
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	app := &App{Config: cfg, Bus: events.NoopBus{}}

	// Client store: Postgres when enabled, JSON file otherwise.
	if cfg.Database.Enabled {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			fmt.Fprintf(os.Stderr, "database not available: %v\n", err)
			os.Exit(1)
		}
		app.DB = db
		defer db.Close()

		store, err := client.NewPostgresStore(ctx, db.Pool)
		if err != nil {
			fmt.Fprintf(os.Stderr, "client store init failed: %v\n", err)
			os.Exit(1)
		}
		app.Clients = store
		fmt.Println("Client store: Postgres")
	} else {
		store, err := client.NewFileStore(cfg.Data.Dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "client store init failed: %v\n", err)
			os.Exit(1)
		}
		app.Clients = store
		fmt.Printf("Client store: %s/clients.json\n", cfg.Data.Dir)
	}

	app.Resources = resource.NewFileStore(cfg.Data.Dir)

	// Event bus (optional - skip if KurrentDB is not available)
	if cfg.KurrentDB.Enabled {
		bus, err := events.NewBus(ctx, cfg.KurrentDB)
		if err != nil {
			fmt.Printf("Warning: KurrentDB not available: %v\n", err)
			fmt.Println("Running without event streaming...")
		} else {
			app.Bus = bus
			defer bus.Close()
			fmt.Println("KurrentDB Event Bus initialized")
		}
	}

	// Gemini collaborator (optional - matching and the assistant degrade
	// to canned responses without it)
	var generator llm.TextGenerator
	var embedder llm.Embedder
	if cfg.LLM.APIKey != "" {
		llmClient, err := llm.NewClient(ctx, cfg.LLM)
		if err != nil {
			fmt.Printf("Warning: LLM client init failed: %v\n", err)
		} else {
			app.LLM = llmClient
			generator = llmClient
			embedder = llmClient
			defer llmClient.Close()
			fmt.Printf("Gemini initialized (model: %s)\n", cfg.LLM.Model)
		}
	} else {
		fmt.Println("Warning: GEMINI_API_KEY not set, AI features degraded")
	}

	// Resource index for the matcher.
	resources, err := app.Resources.List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load resource directory: %v\n", err)
		os.Exit(1)
	}
	var index search.Index
	if embedder != nil {
		built, err := search.BuildIndex(ctx, "resources", matching.Documents(resources), embedder)
		if err != nil {
			fmt.Printf("Warning: resource index unavailable: %v\n", err)
		} else {
			index = built
			fmt.Printf("Resource index ready (%d documents)\n", built.Size())
		}
	}
	matcher := matching.NewMatcher(index, generator, resources, cfg.Matching)

	// Notification pipeline. Mock providers when SMTP/Twilio credentials
	// are absent so local development still exercises the full path.
	var emailProvider notification.EmailProvider
	var smsProvider notification.SMSProvider
	if cfg.Notification.SMTPUsername != "" {
		emailProvider = notification.NewSMTPEmailProvider(cfg.Notification)
	} else {
		emailProvider = notification.NewMockEmailProvider()
		fmt.Println("Warning: SMTP not configured, using mock email provider")
	}
	if cfg.Notification.TwilioAccountSID != "" {
		smsProvider = notification.NewTwilioSMSProvider(cfg.Notification)
	} else {
		smsProvider = notification.NewMockSMSProvider()
		fmt.Println("Warning: Twilio not configured, using mock SMS provider")
	}

	notifyConfig := notification.DefaultServiceConfig()
	notifyConfig.Workers = cfg.Notification.Workers
	notifyConfig.BufferSize = cfg.Notification.BufferSize
	notifier := notification.NewService(emailProvider, smsProvider, notifyConfig)
	if err := notifier.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "notification service failed to start: %v\n", err)
		os.Exit(1)
	}
	defer notifier.Stop()

	// Needs-assessment pipeline.
	var formSource survey.FormSource
	if cfg.Survey.SpreadsheetID != "" && cfg.Survey.GoogleAPIKey != "" {
		source, err := survey.NewSheetsFormSource(ctx, cfg.Survey.SpreadsheetID, cfg.Survey.GoogleAPIKey)
		if err != nil {
			fmt.Printf("Warning: Google Sheets source unavailable: %v\n", err)
		} else {
			formSource = source
			fmt.Println("Google Sheets form source initialized")
		}
	}
	surveyService := survey.NewService(app.Clients, notifier, formSource, app.Bus, cfg.Survey.FormURL, cfg.Data.Dir)
	surveyAnalyzer := survey.NewAnalyzer(generator)

	if cfg.Survey.PollEnabled && formSource != nil {
		poller := survey.NewPoller(surveyService, cfg.Survey.PollInterval)
		poller.Start(ctx)
		defer poller.Stop()
		fmt.Printf("Survey response poller started (every %s)\n", cfg.Survey.PollInterval)
	}

	// Audit log: Postgres when available, in-memory otherwise.
	var auditRepo audit.Repository
	if app.DB != nil {
		repo, err := audit.NewPostgresRepository(ctx, app.DB.Pool)
		if err != nil {
			fmt.Printf("Warning: audit repository init failed: %v\n", err)
			auditRepo = audit.NewMemoryRepository()
		} else {
			auditRepo = repo
		}
	} else {
		auditRepo = audit.NewMemoryRepository()
	}
	if err := auditRepo.Initialize(ctx); err != nil {
		fmt.Printf("Warning: audit initialization failed: %v\n", err)
	}
	auditSubscriber := audit.NewSubscriber(auditRepo, app.Bus)
	if err := auditSubscriber.Start(ctx); err != nil {
		fmt.Printf("Warning: audit subscriber failed to start: %v\n", err)
	}

	engine := risk.NewEngine()
	analyticsService := analytics.NewService(app.Clients, app.Resources, engine)
	assistantService := assistant.NewService(generator)
	referralService := referral.NewService(notifier, app.Bus)

	analyticsHandler := analytics.NewHandler(analyticsService)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.CORS(cfg.Server.CORSOrigins))
	r.Use(secmiddleware.RateLimiter(50, 100))
	r.Use(metrics.Middleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	// API info
	r.Get("/", infoHandler)

	r.Route("/api", func(r chi.Router) {
		if cfg.Server.Env == "production" {
			r.Use(auth.Middleware(cfg.Auth))
		}

		r.Mount("/clients", client.NewHandler(app.Clients, app.Bus).Routes())
		r.Mount("/resources", resource.NewHandler(app.Resources).Routes())
		r.Mount("/assess-risk", risk.NewHandler(app.Clients, engine, app.Bus).Routes())
		r.Mount("/match-resources", matching.NewHandler(matcher, app.Bus).Routes())
		r.Mount("/", assistant.NewHandler(assistantService).Routes())
		r.Mount("/needs-assessment", survey.NewHandler(surveyService, surveyAnalyzer).Routes())
		r.Mount("/referrals", referral.NewHandler(referralService).Routes())
		r.Mount("/analytics", analyticsHandler.Routes())
		r.Mount("/audit", audit.NewHandler(auditRepo).Routes())
		r.Get("/dashboard/resource-status", analyticsHandler.ResourceStatus)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Println("\nShutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}
		close(done)
	}()

	fmt.Println("============================================")
	fmt.Println("NextStep Case Management Platform")
	fmt.Println("============================================")
	fmt.Printf("Environment: %s\n", cfg.Server.Env)
	fmt.Printf("Server:      http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("API:         http://localhost:%d/api\n", cfg.Server.Port)
	fmt.Printf("Health:      http://localhost:%d/health\n", cfg.Server.Port)
	fmt.Printf("Data dir:    %s\n", cfg.Data.Dir)
	fmt.Println("============================================")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	<-done
	fmt.Println("Server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "NextStep Case Management Platform",
		"version": "0.1.0",
		"docs":    "/api",
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if app.DB != nil {
			if err := app.DB.Health(r.Context()); err != nil {
				checks["database"] = "not ready: " + err.Error()
			} else {
				checks["database"] = "ready"
			}
		} else {
			checks["database"] = "not configured"
		}

		if err := app.Bus.Health(); err != nil {
			checks["kurrentdb"] = "not ready: " + err.Error()
		} else {
			checks["kurrentdb"] = "ready"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}
