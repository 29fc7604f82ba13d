package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/playmatatu/tombola/internal/admin"
	"github.com/playmatatu/tombola/internal/api"
	"github.com/playmatatu/tombola/internal/api/handlers"
	"github.com/playmatatu/tombola/internal/auth"
	"github.com/playmatatu/tombola/internal/config"
	"github.com/playmatatu/tombola/internal/database"
	"github.com/playmatatu/tombola/internal/draws"
	"github.com/playmatatu/tombola/internal/migrations"
	"github.com/playmatatu/tombola/internal/redis"
	"github.com/playmatatu/tombola/internal/registry"
	"github.com/playmatatu/tombola/internal/tombola"
	"github.com/playmatatu/tombola/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Database is optional: without it there is no draw history and
	// operators come from OPERATOR_NAME/OPERATOR_TOKEN
	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		if cfg.MigrateOnStart {
			log.Println("↗ Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}

		var err error
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := admin.ApplyRuntimeConfigToConfig(db, cfg); err != nil {
			log.Printf("[CONFIG] Runtime config not applied: %v", err)
		}
	} else {
		log.Println("[DB] DATABASE_URL not set; draw history and operator accounts disabled")
	}

	hub := ws.NewHub()
	go hub.Run(ctx.Done())

	opts := tombola.Options{
		Mode:          tombola.ParseMode(cfg.Mode),
		SpinDuration:  time.Duration(cfg.SpinDurationMs) * time.Millisecond,
		WinnerWait:    time.Duration(cfg.WinnerWaitMs) * time.Millisecond,
		FrameInterval: time.Duration(cfg.FrameIntervalMs) * time.Millisecond,
		Observers:     []tombola.Observer{hub},
	}

	deps := api.Deps{Config: cfg, DB: db, Hub: hub}

	if opts.Mode == tombola.ModeRegistry {
		client, err := registry.NewClient(cfg)
		if err != nil {
			log.Fatalf("Registry mode requires REGISTRY_BASE_URL: %v", err)
		}
		opts.Registry = client
		deps.Stats = client
		log.Printf("[REGISTRY] Client initialized (base=%s)", cfg.RegistryBaseURL)
	}

	if db != nil {
		repo := draws.NewRepository(db, cfg.InstanceID)
		opts.Recorder = repo
		deps.Draws = repo
		deps.Validator = handlers.DBOperatorValidator(db)
	} else if cfg.OperatorName != "" && cfg.OperatorToken != "" {
		deps.Validator = handlers.StaticOperatorValidator(cfg.OperatorName, cfg.OperatorToken)
		log.Printf("[AUTH] Static operator %s enabled", cfg.OperatorName)
	} else {
		log.Println("[AUTH] No operator accounts configured; operator routes are unreachable")
	}

	// Redis is optional: it fans session events out to other instances
	if cfg.RedisURL != "" {
		rdb, err := redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()

		if last, err := redis.LoadSession(ctx, rdb); err != nil {
			log.Printf("[REDIS] Failed to read cached session: %v", err)
		} else if last != nil {
			log.Printf("[REDIS] Last cached session: state=%s generation=%d winners=%d", last.State, last.Generation, len(last.WinnersHistory))
		}

		publisher := redis.NewPublisher(rdb, cfg.InstanceID)
		go publisher.Run(ctx)
		opts.Observers = append(opts.Observers, publisher)

		ws.StartEventSubscriber(ctx, rdb, cfg.InstanceID, hub)
	} else {
		log.Println("[REDIS] REDIS_URL not set; running as a single instance")
	}

	ctrl, err := tombola.NewController(opts)
	if err != nil {
		log.Fatalf("Failed to create tombola controller: %v", err)
	}
	deps.Controller = ctrl
	deps.Issuer = auth.NewIssuer(cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)

	if opts.Mode == tombola.ModeRegistry {
		go func() {
			loadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			defer cancel()
			if err := ctrl.LoadCategories(loadCtx); err != nil {
				log.Printf("[TOMBOLA] Initial category load failed: %v", err)
			}
		}()
	}

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	api.SetupRoutes(router, deps)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		log.Printf("Starting tombola server on port %s (mode=%s, instance=%s)", port, opts.Mode, cfg.InstanceID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	ctrl.Reset()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
