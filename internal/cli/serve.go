package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jstackviz/jstackviz/pkg/cache"
	"github.com/jstackviz/jstackviz/pkg/server"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var (
		addr     string
		redis    string
		mongoURI string
		mongoDB  string
		cacheDir string
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analyzer over HTTP",
		Long: `Serve starts an HTTP server exposing the analyzer: POST a thread dump to
/api/analyze for DOT text or to /api/render for an SVG/PNG image.

Rendered artifacts are cached on disk, or in redis when --redis is set.
With --mongo-uri each analysis is recorded for GET /api/reports.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			cfg := configFromContext(ctx)

			if addr == "" {
				addr = cfg.Server.Addr
			}
			if redis == "" {
				redis = cfg.Server.RedisAddr
			}
			if mongoURI == "" {
				mongoURI = cfg.Server.MongoURI
			}
			if mongoDB == "" {
				mongoDB = cfg.Server.MongoDB
			}
			if cacheDir == "" {
				cacheDir = cfg.CacheDir()
			}

			store, err := buildCache(ctx, logger, redis, cacheDir, noCache)
			if err != nil {
				return err
			}
			defer store.Close()

			var history *server.History
			if mongoURI != "" {
				connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				history, err = server.NewHistory(connectCtx, mongoURI, mongoDB)
				cancel()
				if err != nil {
					return err
				}
				defer func() {
					closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = history.Close(closeCtx)
				}()
				logger.Info("Report history enabled", "db", mongoDB)
			}

			srv := server.New(server.Options{
				Logger:          logger,
				Cache:           store,
				History:         history,
				CacheTTL:        cfg.Cache.TTL(),
				HighlightFill:   cfg.Highlight.Fill,
				HighlightFont:   cfg.Highlight.Font,
				IncludeIsolated: cfg.IncludeIsolated,
			})

			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Listening", "addr", addr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				logger.Info("Shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return httpSrv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("serve: %w", err)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8080)")
	cmd.Flags().StringVar(&redis, "redis", "", "redis address for the artifact cache (default: file cache)")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "mongo connection string for report history")
	cmd.Flags().StringVar(&mongoDB, "mongo-db", "", "mongo database name")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "file cache directory")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the artifact cache")

	return cmd
}

// buildCache picks the cache backend for the server: redis when configured,
// otherwise the file cache, or the null cache when caching is off.
func buildCache(ctx context.Context, logger *log.Logger, redisAddr, dir string, disabled bool) (cache.Cache, error) {
	if disabled {
		return cache.NewNullCache(), nil
	}
	if redisAddr != "" {
		store, err := cache.NewRedisCache(ctx, redisAddr)
		if err != nil {
			return nil, err
		}
		logger.Info("Using redis cache", "addr", redisAddr)
		return store, nil
	}
	store, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	logger.Info("Using file cache", "dir", dir)
	return store, nil
}
