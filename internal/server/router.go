package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/monitor"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/pipeline"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/store"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// Monitor is the part of the monitor service the HTTP surface drives
type Monitor interface {
	Accounts() []monitor.AccountView
	Settings() models.Settings
	UpsertAccount(ctx context.Context, account models.MonitoredAccount) error
	RemoveAccount(ctx context.Context, address string) error
	SetMode(ctx context.Context, mode models.Mode, signingKey *string) error
	TestConnection(ctx context.Context, account models.MonitoredAccount) error
}

// Deps dependencies of the router
type Deps struct {
	Monitor   Monitor
	Store     store.Store
	Submitter pipeline.Submitter
	Realtime  http.Handler // websocket endpoint
	Logger    *slog.Logger
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(deps Deps) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(deps.Logger))

	accounts := NewAccountHandler(deps.Monitor, deps.Logger)
	codes := NewCodeHandler(deps.Store, deps.Logger)
	webhook := NewWebhookHandler(deps.Monitor, deps.Submitter, deps.Logger)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if deps.Realtime != nil {
		r.GET("/ws", gin.WrapH(deps.Realtime))
	}

	api := r.Group("/api")
	{
		api.GET("/codes", codes.List)
		api.GET("/accounts", accounts.List)
		api.POST("/accounts", accounts.Upsert)
		api.DELETE("/accounts/:email", accounts.Remove)
		api.POST("/settings/mode", accounts.SetMode)
		api.POST("/test-connection", accounts.TestConnection)
	}

	r.GET("/webhooks/mailgun", webhook.Status)
	r.POST("/webhooks/mailgun", webhook.Receive)

	return &Router{Engine: r}
}

// Server returns an http.Server for addr
func (r *Router) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// requestLogger logs every request once it completes
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
