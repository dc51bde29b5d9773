package server

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"job-portal/internal/auth"
	"job-portal/internal/config"
	"job-portal/internal/logger"
	"job-portal/internal/metrics"
	"job-portal/internal/pipeline"
	"job-portal/internal/routes"
	"job-portal/internal/storage"
	tlsconfig "job-portal/internal/tls"
	"job-portal/internal/tokenstore"
	"job-portal/internal/uploads"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	config     *config.Config
	storage    storage.Store
	tokens     tokenstore.Store
	files      *uploads.Store
	auth       *auth.Manager
	router     *gin.Engine
	httpServer *http.Server
}

func New(cfg *config.Config, store storage.Store, tokens tokenstore.Store, files *uploads.Store) (*Server, error) {
	manager := auth.NewManager(auth.Config{
		JWTSecret: cfg.Security.JWTSecret,
		TokenTTL:  cfg.Security.TokenTTL,
	}, tokens)

	s := &Server{
		config:  cfg,
		storage: store,
		tokens:  tokens,
		files:   files,
		auth:    manager,
	}
	s.setupRouter()

	httpServer, err := tlsconfig.NewTLSConfig(&cfg.Security).CreateHTTPServer(s.router, cfg.Addr(), cfg.Server.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP server: %w", err)
	}
	s.httpServer = httpServer

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve blocks accepting connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	logger.WithFields(logrus.Fields{
		"addr":        ln.Addr().String(),
		"environment": s.config.Server.Environment,
		"tls":         s.httpServer.TLSConfig != nil,
	}).Info("HTTP server listening")
	return tlsconfig.Serve(s.httpServer, ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) groups() []routes.Group {
	return []routes.Group{
		routes.NewAuthRoutes(s.storage, s.auth),
		routes.NewJobRoutes(s.storage, s.auth),
		routes.NewUserRoutes(s.storage, s.auth, s.files),
		routes.NewApplicationRoutes(s.storage, s.auth, s.files),
	}
}

// setupRouter assembles the request pipeline:
//
//	CORS gate -> body decoder -> access log -> uploads | health | route groups -> 404
//
// Recovery and the error translator wrap everything so any failure, including
// one raised by a stage, ends in the same 500 response. Trailing-slash
// redirects are off: gin answers them before any middleware runs.
func (s *Server) setupRouter() {
	production := s.config.IsProduction()
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(metrics.Middleware())
	router.Use(pipeline.Recovery(production))
	router.Use(pipeline.ErrorTranslator(production))
	router.Use(pipeline.Dispatch(
		pipeline.NewCORSGate(s.config.CORS.AllowedOrigins, s.config.CORS.AllowCredentials).Stage(),
		pipeline.NewBodyDecoder(s.config.Server.BodyLimit).Stage(),
		pipeline.AccessLog(),
	))

	router.GET(uploads.URLPrefix+"/*filepath", s.files.Serve)
	router.HEAD(uploads.URLPrefix+"/*filepath", s.files.Serve)

	router.GET("/api/health", s.apiHealth)
	router.GET("/health", s.healthCheck)

	for _, g := range s.groups() {
		g.Register(router.Group(g.Prefix()))
	}

	router.NoRoute(pipeline.NotFound)
	router.NoMethod(pipeline.NotFound)

	s.router = router
}
