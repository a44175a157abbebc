package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/pagetrans/internal/db"
	"horse.fit/pagetrans/internal/engine"
	"horse.fit/pagetrans/internal/globaltime"
	"horse.fit/pagetrans/internal/reader"
	"horse.fit/pagetrans/internal/settings"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

type Options struct {
	Addr              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration
	AllowedOrigins    []string
	BodyLimit         string
	DefaultTargetLang string
	Fetch             reader.FetchOptions
}

// textTranslator serves one-off translations outside any hosted document.
type textTranslator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// RunStore lists finished page runs.
type RunStore interface {
	ListRecentPageRuns(ctx context.Context, limit int) ([]db.PageRunRow, error)
	CountPageRuns(ctx context.Context) (int64, error)
}

type Server struct {
	docs       *engine.Registry
	translator textTranslator
	settings   settings.Store
	runs       RunStore
	logger     zerolog.Logger
	opts       Options
}

// NewServer wires the HTTP API. runs may be nil when no database is
// configured.
func NewServer(docs *engine.Registry, translator textTranslator, store settings.Store, runs RunStore, logger zerolog.Logger, opts Options) *Server {
	if strings.TrimSpace(opts.Addr) == "" {
		opts.Addr = ":8090"
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if strings.TrimSpace(opts.BodyLimit) == "" {
		opts.BodyLimit = "4M"
	}
	if strings.TrimSpace(opts.DefaultTargetLang) == "" {
		opts.DefaultTargetLang = "zh"
	}
	if store == nil {
		store = settings.NewMemoryStore()
	}

	return &Server{
		docs:       docs,
		translator: translator,
		settings:   store,
		runs:       runs,
		logger:     logger,
		opts:       opts,
	}
}

// Handler builds the echo router.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(s.opts.BodyLimit))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/ping", s.handlePing)
	api.GET("/languages", s.handleLanguages)
	api.GET("/settings", s.handleGetSettings)
	api.PUT("/settings", s.handlePutSettings)
	api.POST("/translate", s.handleTranslate)
	api.GET("/runs", s.handleRuns)

	api.GET("/documents", s.handleListDocuments)
	api.POST("/documents", s.handleCreateDocument)
	api.GET("/documents/:id", s.handleGetDocument)
	api.DELETE("/documents/:id", s.handleDeleteDocument)
	api.POST("/documents/:id/messages", s.handleDocumentMessage)
	api.GET("/documents/:id/annotations", s.handleDocumentAnnotations)
	api.GET("/documents/:id/panel", s.handleDocumentPanel)

	return e
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.docs == nil || s.translator == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.Handler()
	httpServer := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
		s.docs.Close()
	}()

	s.logger.Info().Str("addr", s.opts.Addr).Msg("pagetrans server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("pagetrans server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		if status >= 500 {
			_ = internalError(c, "Internal server error")
			return
		}
		_ = fail(c, status, message, nil)
		return
	}

	_ = c.String(status, message)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service":   "pagetrans",
		"time":      globaltime.UTC(),
		"documents": s.docs.Len(),
		"history":   s.runs != nil,
	})
}

// handlePing is the liveness probe hosts send before injecting anything.
func (s *Server) handlePing(c echo.Context) error {
	return success(c, map[string]any{"pong": true})
}

type pageRunItem struct {
	RunUUID    string     `json:"run_uuid"`
	DocumentID string     `json:"document_id"`
	Mode       string     `json:"mode"`
	TargetLang string     `json:"target_lang"`
	Outcome    string     `json:"outcome"`
	Units      int        `json:"units"`
	Translated int        `json:"translated"`
	Failed     int        `json:"failed"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (s *Server) handleRuns(c echo.Context) error {
	if s.runs == nil {
		return fail(c, http.StatusServiceUnavailable, "Run history requires DATABASE_URL", nil)
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultRunLimit, 1, maxRunLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	ctx := c.Request().Context()
	rows, err := s.runs.ListRecentPageRuns(ctx, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list page runs failed")
		return internalError(c, "Failed to load runs")
	}
	total, err := s.runs.CountPageRuns(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("count page runs failed")
		return internalError(c, "Failed to load runs")
	}

	items := make([]pageRunItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, pageRunItem{
			RunUUID:    row.RunUUID,
			DocumentID: row.DocumentID,
			Mode:       row.Mode,
			TargetLang: row.TargetLang,
			Outcome:    row.Outcome,
			Units:      row.Units,
			Translated: row.Translated,
			Failed:     row.Failed,
			StartedAt:  row.StartedAt,
			FinishedAt: row.FinishedAt,
		})
	}
	return success(c, map[string]any{
		"items": items,
		"total": total,
	})
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
