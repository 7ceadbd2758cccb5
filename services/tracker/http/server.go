package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/config"
	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/dashboard"
	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/models"
)

// HistoryStore serves archived readings.
type HistoryStore interface {
	IntensitySince(ctx context.Context, since time.Time) ([]models.IntensitySnapshot, error)
}

// Server bundles router and dependencies for the dashboard and its JSON API.
type Server struct {
	cfg       config.Config
	source    dashboard.Source
	dashboard *dashboard.Dashboard
	history   HistoryStore
	logger    *logrus.Logger
	engine    *gin.Engine
	now       func() time.Time
}

// New constructs a server with routes and middleware. history may be nil when no
// archive is configured.
func New(cfg config.Config, source dashboard.Source, history HistoryStore, logger *logrus.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))
	engine.Use(corsMiddleware())

	server := &Server{
		cfg:       cfg,
		source:    source,
		dashboard: dashboard.New(source, cfg.RefreshInterval, logger),
		history:   history,
		logger:    logger,
		engine:    engine,
		now:       time.Now,
	}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// WithClock overrides the clock used by the page and the history window (for tests).
func (s *Server) WithClock(now func() time.Time) *Server {
	s.now = now
	s.dashboard.WithClock(now)
	return s
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.engine.GET("/", s.handleDashboard)
	s.registerV1Routes()
}

// handleDashboard renders the selected view.
// GET /?view=intensity|generation
func (s *Server) handleDashboard(c *gin.Context) {
	view, err := dashboard.ParseView(c.Query("view"))
	if err != nil {
		s.writePage(c, http.StatusBadRequest, s.dashboard.ErrorPage(dashboard.ViewIntensity, err))
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	page, err := s.dashboard.Build(ctx, view)
	if err != nil {
		s.logger.WithError(err).WithField("view", view).Error("dashboard render failed")
		s.writePage(c, http.StatusBadGateway, s.dashboard.ErrorPage(view, err))
		return
	}
	s.writePage(c, http.StatusOK, page)
}

func (s *Server) writePage(c *gin.Context, status int, page *dashboard.Page) {
	var buf bytes.Buffer
	if err := dashboard.WritePage(&buf, page); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// requestContext bounds upstream calls made on behalf of a request.
func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"query":   c.Request.URL.RawQuery,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Info("request")
	}
}
