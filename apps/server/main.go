package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	gogithub "github.com/google/go-github/v75/github"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/nbhson/git-book-reader/apps/server/internal/book"
	ghadapter "github.com/nbhson/git-book-reader/apps/server/internal/book/adapters/github"
	"github.com/nbhson/git-book-reader/apps/server/internal/book/handler"
	"github.com/nbhson/git-book-reader/apps/server/internal/book/store"
	"github.com/nbhson/git-book-reader/apps/server/internal/book/store/pgmigrations"
	ghplatform "github.com/nbhson/git-book-reader/apps/server/internal/platform/github"
	pgplatform "github.com/nbhson/git-book-reader/apps/server/internal/platform/postgres"
	redisplatform "github.com/nbhson/git-book-reader/apps/server/internal/platform/redis"
	"github.com/nbhson/git-book-reader/apps/server/internal/platform/telemetry"
	"github.com/nbhson/git-book-reader/apps/server/internal/platform/validation"
	"github.com/nbhson/git-book-reader/pkg/logging"
	"github.com/nbhson/git-book-reader/schemas"
)

func main() {
	log := logging.New(serviceName)
	if err := run(log); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---

	tel, err := telemetry.New(ctx, serviceName, cfg.OTelEnabled)
	if err != nil {
		return fmt.Errorf("telemetry init: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "error", err)
		}
	}()

	// --- Platform: GitHub ---

	gh, err := newGitHubClient(cfg)
	if err != nil {
		return err
	}

	// --- Platform: Redis (optional) ---

	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		rdb, err = redisplatform.New(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	// --- Stores ---

	historyStore, closeHistory, err := newHistoryStore(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	defer closeHistory()

	var contentStore book.ContentStore
	switch cfg.ContentCache {
	case "redis":
		contentStore = store.NewRedisContentStore(rdb, cfg.ContentCacheTTL)
	default:
		contentStore = book.NewMemoryContentStore(cfg.ContentCacheMaxBytes, 0)
	}

	// --- Service + HTTP ---

	history, err := book.NewHistory(ctx, historyStore, log)
	if err != nil {
		return err
	}
	loader := book.NewLoader(ghadapter.New(gh), history, cfg.GitHubRawURL, log)
	cache := book.NewContentCache(ghadapter.NewRawFetcher(gh), contentStore, log)
	svc := book.NewService(loader, cache, history)

	validator, err := validation.New(schemas.OpenAPISpec)
	if err != nil {
		return fmt.Errorf("openapi validation middleware init: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName), validator)
	handler.RegisterRoutes(router, svc, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info("starting git-book-reader", "port", cfg.Port,
		"historyBackend", cfg.HistoryBackend, "contentCache", cfg.ContentCache)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newGitHubClient(cfg config) (*gogithub.Client, error) {
	if cfg.AppID != 0 {
		c, err := ghplatform.NewAppClient(cfg.AppID, cfg.InstallationID, cfg.AppKeyPath, cfg.GitHubAPIURL)
		if err != nil {
			return nil, fmt.Errorf("github app client: %w", err)
		}
		return c, nil
	}
	c, err := ghplatform.NewTokenClient(cfg.GitHubToken, cfg.GitHubAPIURL)
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}
	return c, nil
}

// newHistoryStore opens the configured history backend. The returned func
// releases whatever the backend opened.
func newHistoryStore(ctx context.Context, cfg config, rdb *goredis.Client) (book.HistoryStore, func(), error) {
	switch cfg.HistoryBackend {
	case "redis":
		return store.NewRedisHistoryStore(rdb), func() {}, nil
	case "postgres":
		pool, err := pgplatform.New(ctx, cfg.PostgresURL, pgmigrations.FS)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		return store.NewPGHistoryStore(pool), pool.Close, nil
	default:
		return store.NewFileHistoryStore(cfg.HistoryFile), func() {}, nil
	}
}
