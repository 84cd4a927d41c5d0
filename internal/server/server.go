package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"account-ledger/internal/config"
	"account-ledger/internal/domain"
	"account-ledger/internal/handler"
	"account-ledger/internal/lock"
	"account-ledger/internal/migrations"
	"account-ledger/internal/repository"
	"account-ledger/internal/service"
	applog "account-ledger/pkg/logger"
)

// Server represents the HTTP server
type Server struct {
	router *mux.Router
	server *http.Server
	db     *sql.DB
	redis  *redis.Client
	logger *slog.Logger
	port   string
}

// NewServer connects to Postgres (and Redis when configured), applies the
// schema migrations and wires the HTTP routes.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	// Initialize database connection
	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("Successfully connected to database")

	if cfg.RunMigrations {
		if err := migrations.Up(db, cfg.DBName, logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Server{
		db:     db,
		logger: logger,
	}

	locker, err := s.newLocker(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Initialize store (Unit of Work)
	store := repository.NewStore(db, logger)
	s.router = NewRouter(store, locker, cfg.ConflictMaxRetries, logger)
	return s, nil
}

// newLocker returns a Redis-backed lock when REDIS_ADDR is set and an
// in-process one otherwise.
func (s *Server) newLocker(ctx context.Context, cfg *config.Config) (lock.Locker, error) {
	if cfg.RedisAddr == "" {
		s.logger.Info("Using in-process account lock")
		return lock.NewLocalLocker(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	s.redis = client

	opts := lock.DefaultRedisOptions()
	if cfg.LockTTL > 0 {
		opts.Expiry = cfg.LockTTL
	}
	s.logger.Info("Using redis account lock", "addr", cfg.RedisAddr, "expiry", opts.Expiry)
	return lock.NewRedisLocker(client, opts, s.logger), nil
}

// NewRouter builds the full HTTP surface over any domain.Store.
func NewRouter(store domain.Store, locker lock.Locker, maxRetries uint64, logger *slog.Logger) *mux.Router {
	retrier := service.NewRetrier(maxRetries, logger)

	// Initialize services
	accountService := service.NewAccountService(store, locker, retrier, logger)
	transactionService := service.NewTransactionService(store, locker, retrier, logger)

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(accountService)
	transactionHandler := handler.NewTransactionHandler(transactionService, accountService)

	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(loggingMiddleware(logger))

	handler.RegisterRoutes(router, accountHandler, transactionHandler)

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := store.Ping(r.Context()); err != nil {
			applog.FromContext(r.Context(), logger).Warn("Health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
			return
		}

		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods(http.MethodGet)

	return router
}

// loggingMiddleware attaches a request-scoped logger to the context and logs
// each completed request.
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := middleware.GetReqID(r.Context())
			reqLogger, ctx := applog.With(applog.ToContext(r.Context(), logger),
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
			)
			w.Header().Set(middleware.RequestIDHeader, reqID)

			// Create response wrapper to capture status code
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("request completed",
				"status", ww.statusCode,
				"duration", time.Since(start),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) (string, error) {
	// Create listener first to get actual port
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	// Get the actual port being used
	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed to start", "error", err)
		}
	}()

	return s.port, nil
}

// Stop drains in-flight requests, then closes the database and Redis clients.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return err
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// StartServer starts the server with the given configuration. Port "0" picks
// a free port and silences logging, which is what the tests use.
func StartServer(cfg *config.Config) (*Server, string, error) {
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
		logger = applog.Discard()
	} else {
		logger = applog.New(cfg.LogLevel, os.Stdout)
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		server.Stop(context.Background())
		return nil, "", err
	}

	return server, port, nil
}
