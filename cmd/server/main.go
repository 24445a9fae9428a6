package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/msgguard/msgguard/internal/classify"
	"github.com/msgguard/msgguard/internal/config"
	"github.com/msgguard/msgguard/internal/db"
	"github.com/msgguard/msgguard/internal/handlers"
	"github.com/msgguard/msgguard/internal/ratelimit"
	"github.com/msgguard/msgguard/internal/risk"
	"github.com/msgguard/msgguard/internal/server"
	"github.com/msgguard/msgguard/internal/sse"
	msgtls "github.com/msgguard/msgguard/internal/tls"
	"github.com/msgguard/msgguard/internal/urlintel"
	"github.com/msgguard/msgguard/internal/ws"
)

func main() {
	configPath := flag.String("config", os.Getenv("MSGGUARD_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	logger := server.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The classifier is loaded once; without it the text pipeline cannot serve.
	classifier, err := classify.New(ctx, classify.Options{
		Backend:   cfg.Classifier.Backend,
		ModelPath: cfg.Classifier.ModelPath,
		Claude: classify.ClaudeOptions{
			Model:  cfg.Classifier.AnthropicModel,
			APIKey: cfg.Classifier.AnthropicAPIKey,
		},
	}, logger)
	if err != nil {
		logger.Error("failed to load classifier", "backend", cfg.Classifier.Backend, "err", err)
		os.Exit(1)
	}

	// Domain blocklist, disabled when DATABASE_URL is not set
	var database *db.DB
	intelOpts := urlintel.Options{
		Timeout:      cfg.URLIntel.FetchTimeout,
		MaxBodyBytes: cfg.URLIntel.MaxBodyBytes,
		UserAgent:    cfg.URLIntel.UserAgent,
	}
	var blocklist handlers.Pinger
	if cfg.DatabaseURL != "" {
		database, err = db.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect to database", "err", err)
			os.Exit(1)
		}
		defer database.Close()
		intelOpts.Reputation = database
		blocklist = database
	} else {
		logger.Warn("domain blocklist disabled", "reason", "DATABASE_URL not set")
	}

	engine := risk.NewEngine(classifier, urlintel.New(intelOpts, logger), logger)

	buckets := make(map[string]ratelimit.Bucket, len(cfg.RateLimit))
	for name, rl := range cfg.RateLimit {
		buckets[name] = ratelimit.Bucket{MaxRequests: rl.MaxRequests, Window: rl.Window}
	}
	limiter := ratelimit.New(buckets)
	sseHub := sse.NewHub(logger)

	verdictHandler := handlers.NewVerdictHandler(engine, sseHub, limiter, logger)
	streamHandler := handlers.NewStreamHandler(sseHub, limiter)
	healthHandler := handlers.NewHealthHandler(engine, cfg.Classifier.Backend, blocklist)
	wsManager := ws.NewManager(engine, sseHub, limiter, logger)

	// Build router
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware)

	r.Get("/ping", healthHandler.Ping)
	r.Get("/healthz", healthHandler.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/predict", verdictHandler.Predict)
	r.Post("/predict-malware", verdictHandler.PredictMalware)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/classify", verdictHandler.Predict)
		v1.Post("/assess-url", verdictHandler.PredictMalware)
		v1.Get("/stream", streamHandler.HandleSSE)
		v1.Get("/ws", wsManager.HandleWS)
	})

	// Start background goroutines
	go server.RunWithRecovery(ctx, logger, "ratelimit-cleanup", func(ctx context.Context) {
		limiter.CleanupLoop(ctx, 5*time.Minute)
	})

	if len(cfg.TLS.Domains) > 0 {
		cm := msgtls.NewCertManager(msgtls.Options{
			Domains:    cfg.TLS.Domains,
			Email:      cfg.TLS.Email,
			Production: cfg.Production,
		}, logger)
		go server.RunWithRecovery(ctx, logger, "tls-server", func(ctx context.Context) {
			if err := cm.ListenAndServe(ctx, r); err != nil {
				logger.Error("TLS server failed", "err", err)
			}
		})
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE + WebSocket need unlimited write time
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "err", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Port, "classifier", cfg.Classifier.Backend, "blocklist", database != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// corsMiddleware allows any origin to call the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
