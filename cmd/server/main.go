package main // Entry point package

import (
	"log"  // Logging library
	"time" // Session TTL arithmetic

	"github.com/joho/godotenv"    // Optional .env loading for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/auth-portal/internal/config"     // Internal config loader
	"github.com/iliyamo/auth-portal/internal/database"   // MySQL connection
	"github.com/iliyamo/auth-portal/internal/handler"    // HTTP handlers
	"github.com/iliyamo/auth-portal/internal/queue"      // Auth event consumer
	"github.com/iliyamo/auth-portal/internal/repository" // Credential store
	"github.com/iliyamo/auth-portal/internal/router"     // Route registration
	"github.com/iliyamo/auth-portal/internal/session"    // Redis session store
	"github.com/iliyamo/auth-portal/internal/validator"  // Form validation engine
)

func main() {
	_ = godotenv.Load() // .env is optional; real environment variables win

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}

	rdb := config.NewRedisClient() // Redis holds all session state
	if rdb == nil {
		log.Fatal("redis unreachable; sessions cannot be served")
	}

	store := session.NewStore(rdb, time.Duration(cfg.SessionTTLMin)*time.Minute)
	users := repository.NewUserRepo(db)
	valid := validator.New(users) // the repo backs the "unique" rule
	auth := handler.NewAuthHandler(cfg, users, valid)

	// Audit-trail consumer; runs its own reconnect loop for the broker.
	go func() {
		if err := queue.StartConsumer(); err != nil {
			log.Printf("auth-consumer stopped: %v", err)
		}
	}()

	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e)
	router.RegisterPortal(e, auth, store, cfg)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
