// Package server assembles the gateway process: storage, the token store, the
// upstream client, services, the Gin router and the HTTP server, plus the
// maintenance loop that evicts idle guards and purges expired tokens.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/agritrade-gateway/internal/config"
	httpapi "github.com/tbourn/agritrade-gateway/internal/http"
	"github.com/tbourn/agritrade-gateway/internal/http/handlers"
	"github.com/tbourn/agritrade-gateway/internal/idempotency"
	"github.com/tbourn/agritrade-gateway/internal/observability"
	"github.com/tbourn/agritrade-gateway/internal/querycache"
	"github.com/tbourn/agritrade-gateway/internal/repo"
	"github.com/tbourn/agritrade-gateway/internal/services"
	"github.com/tbourn/agritrade-gateway/internal/upstream"
)

// Token store backends selectable with TOKEN_STORE.
const (
	StoreSQLite = "sqlite"
	StoreBolt   = "bolt"
	StoreMemory = "memory"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 30 * time.Second

// maintenanceEvery is the period of the guard sweep and token purge.
const maintenanceEvery = time.Minute

// Server is a wired gateway process.
type Server struct {
	cfg    config.Config
	log    zerolog.Logger
	db     *gorm.DB
	engine *gin.Engine
	http   *http.Server

	guards *idempotency.Registry
	purge  func(context.Context) (int64, error)

	closers []func() error
}

// New wires every component from cfg. Call Close when done, or Run, which
// closes on return.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger, version string) (*Server, error) {
	s := &Server{cfg: cfg, log: log}

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}
	s.closers = append(s.closers, func() error {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownOTel(c)
	})

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open db: %w", err)
	}
	s.db = db
	s.closers = append(s.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			s.Close()
			return nil, fmt.Errorf("db tracing: %w", err)
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	store, err := s.openTokenStore()
	if err != nil {
		s.Close()
		return nil, err
	}

	client, err := upstream.New(upstream.Options{
		BaseURL:     cfg.UpstreamURL,
		Timeout:     cfg.UpstreamTimeout,
		PingTimeout: cfg.PingTimeout,
		WeatherURL:  cfg.WeatherURL,
		UserAgent:   "agritrade-gateway/" + version,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("upstream: %w", err)
	}

	cache := querycache.New(cfg.CacheTTL)
	s.guards = idempotency.NewRegistry(store, cfg.GuardIdleTTL)
	sub := services.NewSubmitter(db, s.guards, cache)

	deps := handlers.Deps{
		Resources: services.NewResourceService(client, cache, sub),
		Forms:     sub,
		Reference: services.NewReferenceData(client, cfg.ReferenceTTL),
		Lookups:   &services.LookupService{Src: client},
		Upstream:  client,
	}

	gin.SetMode(cfg.GinMode)
	s.engine = gin.New()
	httpapi.RegisterRoutes(s.engine, deps, store, cfg)

	s.http = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	return s, nil
}

// openTokenStore selects the completed-token store named by cfg.TokenStore.
func (s *Server) openTokenStore() (idempotency.Store, error) {
	switch s.cfg.TokenStore {
	case StoreMemory:
		return idempotency.NewMemoryStore(s.cfg.IdempotencyTTL), nil
	case StoreBolt:
		bs, err := idempotency.OpenBoltStore(s.cfg.BoltPath, s.cfg.IdempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		s.closers = append(s.closers, bs.Close)
		s.purge = func(context.Context) (int64, error) {
			n, err := bs.Purge()
			return int64(n), err
		}
		return bs, nil
	case StoreSQLite, "":
		ts := repo.NewTokenStore(s.db, s.cfg.IdempotencyTTL)
		s.purge = ts.Purge
		return ts, nil
	default:
		return nil, fmt.Errorf("unknown token store %q", s.cfg.TokenStore)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Maintain evicts idle guards and purges expired tokens once.
func (s *Server) Maintain(ctx context.Context) {
	if n := s.guards.Sweep(); n > 0 {
		s.log.Debug().Int("evicted", n).Msg("idle guards evicted")
	}
	if s.purge == nil {
		return
	}
	n, err := s.purge(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("token purge failed")
		return
	}
	if n > 0 {
		s.log.Debug().Int64("purged", n).Msg("expired tokens purged")
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully and closes
// every resource. A nil ln listens on the configured port.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	defer s.Close()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.http.Addr).Str("upstream", s.cfg.UpstreamURL).Msg("starting gateway")
		var err error
		if ln != nil {
			err = s.http.Serve(ln)
		} else {
			err = s.http.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	tick := time.NewTicker(maintenanceEvery)
	defer tick.Stop()

	for {
		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		case <-tick.C:
			s.Maintain(ctx)
		case <-ctx.Done():
			s.log.Info().Msg("shutting down gateway")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := s.http.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			s.log.Info().Msg("gateway stopped")
			return nil
		}
	}
}

// Close releases the database, token store and tracer. It is safe to call
// more than once.
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.log.Warn().Err(err).Msg("close")
		}
	}
	s.closers = nil
}
