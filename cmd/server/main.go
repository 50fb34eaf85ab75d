package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paper-trading-go/internal/auth"
	"paper-trading-go/internal/config"
	"paper-trading-go/internal/database"
	"paper-trading-go/internal/logger"
	"paper-trading-go/internal/quote"
	"paper-trading-go/internal/session"
	"paper-trading-go/internal/trading"
	"paper-trading-go/internal/web"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	// A local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load application configuration. This fails when the quote provider
	// API key is missing: without it no operation can price anything.
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Connect to the database
	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated")

	// Quote provider client
	quoteClient := quote.NewClient(&cfg.Quote, log)

	// Session store
	sessionTTL := time.Duration(cfg.Session.TTLMinutes) * time.Minute
	var sessions session.Store
	switch cfg.Session.Store {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sessions, err = session.NewRedisStore(context.Background(), rdb, sessionTTL)
		if err != nil {
			log.Fatal("Failed to initialize redis session store", zap.Error(err))
		}
		log.Info("Using redis session store", zap.String("addr", cfg.Redis.Addr))
	default:
		sessions = session.NewMemoryStore(sessionTTL)
		log.Info("Using in-memory session store")
	}

	// Services and router
	authSvc := auth.NewService(db, log, decimal.NewFromFloat(cfg.Trading.StartingCash))
	tradingSvc := trading.NewService(db, quoteClient, log)
	handler := web.NewHandler(log, authSvc, tradingSvc, sessions, cfg.Session.CookieName, sessionTTL)
	router := web.NewRouter(handler)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Setup context for graceful shutdown
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Starting web server", zap.String("address", server.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Web server failed", zap.Error(err))
	}

	log.Info("Server has been shut down")
}
