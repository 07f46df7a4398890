// Package api is the HTTP surface over the snapshot service.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/formicag/ACEReportHub/internal/ai"
	"github.com/formicag/ACEReportHub/internal/auth"
	"github.com/formicag/ACEReportHub/internal/logger"
	"github.com/formicag/ACEReportHub/internal/snapshots"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// ConfirmHeader carries the confirmation token of a guarded delete.
const ConfirmHeader = "X-Confirm-Token"

// Config holds the optional collaborators of the server.
type Config struct {
	AdminSecret    string
	ExcludedIDs    []string
	AllowedOrigins []string
	BodyLimit      string // echo size notation, e.g. "10M"
	Summarizer     *ai.Summarizer
	Metrics        http.Handler
	Logger         *slog.Logger
}

type Server struct {
	Service *snapshots.Service
	Echo    *echo.Echo

	excluded   []string
	summarizer *ai.Summarizer
	log        *slog.Logger
}

func NewServer(svc *snapshots.Service, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = "10M"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:4200"}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(requestLogger(cfg.Logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, auth.AdminHeader, ConfirmHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	s := &Server{
		Service:    svc,
		Echo:       e,
		excluded:   cfg.ExcludedIDs,
		summarizer: cfg.Summarizer,
		log:        cfg.Logger,
	}
	s.routes(cfg)
	return s
}

func (s *Server) routes(cfg Config) {
	s.Echo.GET("/health", s.handleHealth)
	if cfg.Metrics != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(cfg.Metrics))
	}

	api := s.Echo.Group("/api/v1")
	api.GET("/snapshots", s.handleListSnapshots)
	api.GET("/snapshots/baseline", s.handleBaseline)
	api.GET("/snapshots/latest", s.handleLatest)
	api.GET("/snapshots/week/:week", s.handleFindWeek)
	api.GET("/snapshots/:id", s.handleGetSnapshot)
	api.POST("/preview", s.handlePreview)

	admin := api.Group("")
	admin.Use(auth.AdminMiddleware(strings.TrimSpace(cfg.AdminSecret)))
	admin.POST("/snapshots", s.handleSave)
	admin.POST("/snapshots/:id/confirm-token", s.handleConfirmToken)
	admin.DELETE("/snapshots/:id", s.handleDelete)
	admin.POST("/backups", s.handleBackup)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				log.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	})
}
