package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KARTIK027-CODE/StubbleX/internal/auth"
	"github.com/KARTIK027-CODE/StubbleX/internal/config"
	"github.com/KARTIK027-CODE/StubbleX/internal/guard"
	"github.com/KARTIK027-CODE/StubbleX/internal/handlers"
	"github.com/KARTIK027-CODE/StubbleX/internal/inference"
	"github.com/KARTIK027-CODE/StubbleX/internal/session"
	"github.com/KARTIK027-CODE/StubbleX/internal/store"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const workspaceIdleTTL = 30 * time.Minute

func main() {
	// Configure slog to output DEBUG level messages
	// This should be done as early as possible in main
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	// Using TextHandler for console readability; for production JSONHandler might be preferred.
	logger := slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Init DB
	db, err := store.NewStore(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}

	// Run Migrations
	if err := db.Migrate("migrations"); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// 3. Session Setup
	sessions := session.NewManager(cfg.SessionKey, cfg.SessionTTL, cfg.CookieSecure, cfg.CookieDomain)

	// 4. External inference service + per-client workflow registry
	model := inference.NewClient(cfg.InferenceURL)
	registry := handlers.NewRegistry(model, model, workspaceIdleTTL)

	// 5. Setup Handlers
	authHandler := &handlers.AuthHandler{
		Auth:     auth.NewAuthenticator(db, cfg.OTPTTL, cfg.OTPDemoMode),
		Sessions: sessions,
		Store:    db,
		Registry: registry,
	}
	classifyHandler := &handlers.ClassifyHandler{
		Sessions: sessions,
		Registry: registry,
	}
	priceHandler := &handlers.PriceHandler{
		Sessions: sessions,
		Registry: registry,
	}
	leaderboardHandler := &handlers.LeaderboardHandler{
		Fetcher:  model,
		Sessions: sessions,
		Store:    db,
	}
	listingsHandler := &handlers.ListingsHandler{
		Sessions: sessions,
		Store:    db,
	}
	dashboardHandler := &handlers.DashboardHandler{
		Sessions: sessions,
		Store:    db,
		Registry: registry,
	}

	mux := http.NewServeMux()

	// Rate Limiter for OTP sends (1 request per 30s per IP)
	rateLimiter := handlers.NewRateLimiter(30 * time.Second)

	// Public Routes
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{"status": "healthy", "inference": "active"}
		if err := model.Health(ctx); err != nil {
			status["inference"] = "unreachable"
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"` + status["status"] + `","inference":"` + status["inference"] + `"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/csrf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CSRF-Token", csrf.Token(r))
		w.WriteHeader(http.StatusNoContent)
	})

	// Auth
	mux.HandleFunc("POST /api/send-otp", rateLimiter.Middleware(authHandler.SendOTP))
	mux.HandleFunc("POST /api/verify-otp", authHandler.VerifyOTP)
	mux.HandleFunc("POST /api/register", authHandler.Register)
	mux.HandleFunc("GET /login", authHandler.Login)
	mux.HandleFunc("POST /logout", authHandler.Logout)

	// AI Classification (per-session workflow)
	mux.HandleFunc("POST /api/classify-waste", classifyHandler.Classify)
	mux.HandleFunc("POST /api/classify-waste/retry", classifyHandler.Retry)
	mux.HandleFunc("GET /api/classify-waste", classifyHandler.Status)
	mux.HandleFunc("DELETE /api/classify-waste", classifyHandler.Clear)

	// Price Estimation (debounced per-session estimator)
	mux.HandleFunc("POST /api/predict-price", priceHandler.Update)
	mux.HandleFunc("GET /api/predict-price", priceHandler.Snapshot)

	// Marketplace
	mux.HandleFunc("GET /api/leaderboard", leaderboardHandler.Get)
	mux.HandleFunc("GET /api/listings", listingsHandler.List)
	mux.HandleFunc("POST /api/listings", listingsHandler.Create)
	mux.HandleFunc("POST /api/listings/status", listingsHandler.UpdateStatus)

	// Role-scoped dashboards (behind the route guard)
	mux.HandleFunc("GET /dashboard/farmer", dashboardHandler.Farmer)
	mux.HandleFunc("GET /dashboard/buyer", dashboardHandler.Buyer)

	// 6. Middleware Setup
	CSRF := csrf.Protect(
		cfg.CSRFKey,
		csrf.Secure(cfg.CookieSecure),
		// Trust local development origins
		csrf.TrustedOrigins([]string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"}),
	)

	// Chain: Logger -> Security Headers -> CSRF -> Route Guard -> Mux
	handler := handlers.LoggingMiddleware(
		handlers.SecurityHeadersMiddleware(
			CSRF(guard.Middleware(sessions, mux)),
		),
	)

	// 7. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	// Create a channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Goroutine to start the server
	go func() {
		slog.Info("Server starting", "port", cfg.Port, "inference_url", cfg.InferenceURL, "demo_mode", cfg.OTPDemoMode)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	// Block until a signal is received
	<-stop

	slog.Info("Shutting down server gracefully...")

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited gracefully.")
}
