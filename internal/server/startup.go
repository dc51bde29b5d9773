package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"job-portal/internal/config"
	"job-portal/internal/logger"
	"job-portal/internal/metrics"
	"job-portal/internal/storage"
	"job-portal/internal/tokenstore"
	"job-portal/internal/uploads"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 30 * time.Second

var ErrMissingDatabaseURI = errors.New("MONGODB_URI is not set")

type State string

const (
	StateIdle         State = "idle"
	StateConnectingDB State = "connecting_db"
	StateListening    State = "listening"
	StateFailed       State = "failed"
)

// Sequencer brings the process up in a fixed order: database first, then the
// listening socket. Any failure on the way is terminal; there is no retry.
type Sequencer struct {
	config *config.Config

	connect func(cfg config.MongoDBConfig) (storage.Store, error)
	listen  func(network, addr string) (net.Listener, error)

	mu    sync.RWMutex
	state State
	addr  net.Addr
}

func NewSequencer(cfg *config.Config) *Sequencer {
	return &Sequencer{
		config:  cfg,
		connect: connectMongo,
		listen:  net.Listen,
		state:   StateIdle,
	}
}

func connectMongo(cfg config.MongoDBConfig) (storage.Store, error) {
	return storage.NewMongoStorage(cfg.URI, cfg.Database, cfg.Timeout)
}

func (s *Sequencer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Addr is the bound listening address, or nil before StateListening.
func (s *Sequencer) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

func (s *Sequencer) setState(state State) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"from": prev,
		"to":   state,
	}).Debug("Startup state changed")
}

func (s *Sequencer) fail(err error) error {
	s.setState(StateFailed)
	metrics.SetDatabaseUp(false)
	return err
}

// Run starts the server and blocks until ctx is cancelled or the server
// stops on its own. A non-nil error means the process should exit non-zero.
func (s *Sequencer) Run(ctx context.Context) error {
	if s.config.MongoDB.URI == "" {
		return s.fail(ErrMissingDatabaseURI)
	}

	s.setState(StateConnectingDB)
	logger.WithFields(logrus.Fields{
		"database": s.config.MongoDB.Database,
		"timeout":  s.config.MongoDB.Timeout.String(),
	}).Info("Connecting to MongoDB")

	store, err := s.connect(s.config.MongoDB)
	if err != nil {
		return s.fail(fmt.Errorf("database connection failed: %w", err))
	}
	defer store.Close()
	metrics.SetDatabaseUp(true)
	logger.Info("MongoDB connected")

	tokens, err := s.tokenStore(ctx)
	if err != nil {
		return s.fail(err)
	}
	defer tokens.Close()

	files, err := uploads.NewStore(s.config.Uploads.Dir, s.config.Uploads.MaxBytes)
	if err != nil {
		return s.fail(err)
	}

	srv, err := New(s.config, store, tokens, files)
	if err != nil {
		return s.fail(err)
	}

	ln, err := s.listen("tcp", s.config.Addr())
	if err != nil {
		return s.fail(fmt.Errorf("failed to bind %s: %w", s.config.Addr(), err))
	}

	var metricsServer *metrics.Server
	if s.config.Metrics.Enabled {
		metricsServer = metrics.NewServer(s.config.Metrics.Port)
		metricsLn, err := s.listen("tcp", metricsServer.Addr())
		if err != nil {
			_ = ln.Close()
			return s.fail(fmt.Errorf("failed to bind metrics %s: %w", metricsServer.Addr(), err))
		}
		go metricsServer.Serve(metricsLn)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	s.setState(StateListening)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return s.fail(fmt.Errorf("HTTP server stopped: %w", err))
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown failed")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Metrics server shutdown failed")
		}
	}
	metrics.SetDatabaseUp(false)

	logger.Info("Server shutdown complete")
	return nil
}

// tokenStore uses Redis when REDIS_ADDR is set and process memory otherwise.
func (s *Sequencer) tokenStore(ctx context.Context) (tokenstore.Store, error) {
	if s.config.Redis.Addr == "" {
		logger.Info("REDIS_ADDR not set, keeping revoked tokens in memory")
		return tokenstore.NewMemoryStore(), nil
	}

	rs := tokenstore.NewRedisStore(s.config.Redis.Addr, s.config.Redis.Password, s.config.Redis.DB)
	pingCtx, cancel := context.WithTimeout(ctx, s.config.MongoDB.Timeout)
	defer cancel()
	if err := rs.Ping(pingCtx); err != nil {
		_ = rs.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rs, nil
}
