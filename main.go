package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tablebook/auth"
	"tablebook/config"
	"tablebook/db"
	"tablebook/globals"
	"tablebook/live"
	"tablebook/mq"
	"tablebook/ratelim"
	"tablebook/rdx"
	"tablebook/receipts"
	"tablebook/reservations"
	"tablebook/restaurants"
	"tablebook/routes"
	"tablebook/seed"
	"tablebook/store"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

// backend is what both store implementations provide.
type backend interface {
	reservations.Store
	restaurants.Repository
	auth.UserStore
	seed.Writer
}

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s - %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func openStore(ctx context.Context, cfg *config.Config) (backend, error) {
	if cfg.Store == config.StoreMemory {
		log.Println("Using in-memory store")
		return store.NewMemory(cfg.TxMaxAttempts), nil
	}
	if err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase); err != nil {
		return nil, err
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return store.NewMongo(cfg.TxMaxAttempts), nil
}

func main() {
	seedOnly := flag.Bool("seed", false, "replace all restaurants with generated demo data and exit")
	seedCount := flag.Int("seed-count", 100, "number of restaurants generated by -seed")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	globals.JwtSecret = []byte(cfg.JWTSecret)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Store error: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	if *seedOnly {
		if err := seed.Run(ctx, st, rng, *seedCount); err != nil {
			log.Fatalf("Seed error: %v", err)
		}
		db.Disconnect(ctx)
		return
	}
	if cfg.Store == config.StoreMemory {
		if err := seed.Run(ctx, st, rng, *seedCount); err != nil {
			log.Fatalf("Seed error: %v", err)
		}
	}

	var conn *redis.Client
	if cfg.RedisAddr != "" {
		conn, err = rdx.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("Redis unavailable, running without cache and fan-out: %v", err)
			conn = nil
		}
	}

	hub := live.NewHub(cfg.AllowedOrigins)
	emitter := mq.NewEmitter(conn, hub)
	if conn != nil {
		go mq.StartRelay(ctx, conn, hub)
	}

	directory := restaurants.NewDirectory(st, rdx.NewCache(conn, cfg.CacheTTL))
	service := reservations.NewService(st, directory, emitter)
	go reservations.NewSweeper(service, cfg.SweepInterval).Start(ctx)

	rateLimiter := ratelim.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rateLimiter.Cleanup()
			}
		}
	}()

	router := httprouter.New()
	router.GET("/health", Index)
	routes.RoutesWrapper(router, routes.Handlers{
		Auth:         auth.NewHandler(st, cfg.TokenTTL, cfg.RequestTimeout),
		Restaurants:  restaurants.NewHandler(directory, cfg.RequestTimeout),
		Reservations: reservations.NewHandler(service, directory, receipts.NewSigner(cfg.ReceiptSecret), cfg.RequestTimeout),
		Live:         hub,
	}, rateLimiter)

	// apply middleware: CORS -> security headers -> logging -> router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           loggingMiddleware(securityHeaders(corsHandler)),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Println("Closing websocket subscribers...")
		hub.Close()
	})

	go func() {
		log.Printf("Server listening on %s (store=%s)", cfg.Port, cfg.Store)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutdown signal received; shutting down gracefully...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}

	db.Disconnect(shutdownCtx)
	rdx.Close()
	log.Println("Server stopped cleanly")
}
