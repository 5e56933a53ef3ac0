package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ducminhle1904/crypto-trading-bot/internal/bot"
	boterrors "github.com/ducminhle1904/crypto-trading-bot/internal/errors"
	"github.com/ducminhle1904/crypto-trading-bot/internal/logger"
	"github.com/ducminhle1904/crypto-trading-bot/internal/monitoring"
	"github.com/ducminhle1904/crypto-trading-bot/internal/portfolio"
	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
	"github.com/ducminhle1904/crypto-trading-bot/internal/safety"
)

// Controller is the part of the orchestrator the API drives
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() bot.Snapshot
	RiskReport() portfolio.Report
	PortfolioMetrics() risk.PortfolioMetrics
}

// SafetyReporter reports circuit breaker and rate limiter state
type SafetyReporter interface {
	Stats() safety.GuardStats
}

// Server exposes health, status and start/stop over HTTP
type Server struct {
	ctrl   Controller
	health *monitoring.HealthChecker
	guard  SafetyReporter
	log    *logger.Logger
	srv    *http.Server
}

// NewServer builds the router; call Run to listen. guard may be nil.
func NewServer(addr string, ctrl Controller, health *monitoring.HealthChecker, guard SafetyReporter, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Server{ctrl: ctrl, health: health, guard: guard, log: log}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the gin engine with every route loaded
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery(), s.requestLogger)

	g.GET("/health", s.getHealth)
	g.GET("/status", s.getStatus)
	g.GET("/risk", s.getRisk)
	g.GET("/portfolio/metrics", s.getMetrics)
	if s.guard != nil {
		g.GET("/safety", s.getSafety)
	}
	g.POST("/start", s.postStart)
	g.POST("/stop", s.postStop)
	g.GET("/metrics", gin.WrapH(monitoring.MetricsHandler()))
	return g
}

// Run blocks until the server is shut down
func (s *Server) Run() error {
	s.log.Info("HTTP server listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, "api", "listen")
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) requestLogger(c *gin.Context) {
	t := time.Now()
	c.Next()
	s.log.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(t))
}

func (s *Server) getHealth(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": monitoring.StatusHealthy})
		return
	}
	status := s.health.Status()
	code := http.StatusOK
	if status.Status == monitoring.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Status())
}

func (s *Server) getRisk(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.RiskReport())
}

func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.PortfolioMetrics())
}

func (s *Server) getSafety(c *gin.Context) {
	c.JSON(http.StatusOK, s.guard.Stats())
}

func (s *Server) postStart(c *gin.Context) {
	err := s.ctrl.Start(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, s.ctrl.Status())
	case errors.Is(err, bot.ErrAlreadyRunning), errors.Is(err, bot.ErrStopping):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.log.LogError("API start", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "category": boterrors.CategoryOf(err)})
	}
}

func (s *Server) postStop(c *gin.Context) {
	if err := s.ctrl.Stop(c.Request.Context()); err != nil {
		s.log.LogError("API stop", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "state": s.ctrl.Status().State})
		return
	}
	c.JSON(http.StatusOK, s.ctrl.Status())
}
