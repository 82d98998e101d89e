package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tool-pressure/xiaohongshu/config"
	"github.com/tool-pressure/xiaohongshu/internal/agent/core"
	"github.com/tool-pressure/xiaohongshu/internal/agent/telemetry"
	"github.com/tool-pressure/xiaohongshu/provider"
	"github.com/tool-pressure/xiaohongshu/repository"
)

// Generator runs one content-generation workflow to completion.
type Generator interface {
	GenerateAndPublish(ctx context.Context, topic string) core.Report
}

// GeneratorFactory builds a fresh Generator per run so every run gets
// its own tool connections.
type GeneratorFactory func(ctx context.Context, cfg config.Config) (Generator, error)

// Server owns the HTTP API over the workflow engine.
type Server struct {
	mu      sync.RWMutex
	cfg     *config.Config
	cfgPath string

	runs    repository.RunRepository
	tele    *telemetry.Telemetry
	factory GeneratorFactory
	logger  *log.Logger

	// probe client for /api/test-login, 5s timeout
	probe *http.Client
	// adapter constructor for /api/validate-model, swapped in tests
	adapterFor func(opts provider.Options) provider.Adapter
}

func New(cfg *config.Config, cfgPath string, runs repository.RunRepository, tele *telemetry.Telemetry, factory GeneratorFactory, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	return &Server{
		cfg:     cfg,
		cfgPath: cfgPath,
		runs:    runs,
		tele:    tele,
		factory: factory,
		logger:  logger,
		probe:   &http.Client{Timeout: 5 * time.Second},
		adapterFor: func(opts provider.Options) provider.Adapter {
			return provider.NewAdapter(provider.OpenAI, opts)
		},
	}
}

// NewEcho builds the echo app with the shared middleware stack.
func NewEcho(logger *log.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	// Unified HTTP error handler with structured JSON and logging
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"success": false, "error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))
	return e
}

// Register mounts all routes.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/", s.index)
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.GET("/config", s.getConfig)
	api.POST("/config", s.saveConfig)
	api.POST("/validate-model", s.validateModel)
	api.POST("/test-login", s.testLogin)
	api.POST("/generate-and-publish", s.generateAndPublish)
	api.GET("/status/:task_id", s.taskStatus)
	api.GET("/runs", s.listRuns)
}

func (s *Server) index(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"service": "小红书内容自动生成与发布系统",
		"version": "1.0.0",
	})
}

// Run wires the production dependencies and serves until the listener
// stops.
func Run(cfgPath string) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	runs := repository.NewRunRepository(ctx, cfg.Storage.Redis)
	tele := telemetry.NewTelemetry(cfg.Telemetry)
	if cfg.Telemetry.PeriodicLogs {
		tele.StartPeriodicLogging(ctx, time.Minute)
	}

	flags := log.LstdFlags
	if cfg.General.Debug {
		flags |= log.Lshortfile
	}
	logger := log.New(log.Writer(), "[HTTP] ", flags)
	srv := New(cfg, cfgPath, runs, tele, NewWorkflowFactory(tele), logger)

	e := NewEcho(logger)
	e.Debug = cfg.General.Debug
	e.Logger.SetLevel(echoLogLevel(cfg.General.LogLevel))
	srv.Register(e)

	addr := cfg.Server.Listen
	if addr == "" {
		addr = ":8080"
	}
	logger.Printf("listening on %s", addr)
	return e.Start(addr)
}

// echoLogLevel maps the settings log level onto echo's logger levels.
func echoLogLevel(level string) glog.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return glog.DEBUG
	case "warn", "warning":
		return glog.WARN
	case "error":
		return glog.ERROR
	default:
		return glog.INFO
	}
}
