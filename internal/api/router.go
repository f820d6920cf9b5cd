package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookreviews/internal/auth"
	"bookreviews/internal/feedback"
	"bookreviews/internal/reviews"
	synchub "bookreviews/internal/sync"
	"bookreviews/pkg/logger"
	"bookreviews/pkg/metrics"
)

type Deps struct {
	DB     *sql.DB
	DBPath string
	Hub    *synchub.Hub
	Logger *slog.Logger

	Users    *auth.Repo
	Tokens   auth.TokenService
	Reviews  *reviews.Service
	Feedback *feedback.Service
}

// NewRouter wires every HTTP route onto a fresh gin engine.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), logger.Middleware(d.Logger), metrics.Middleware())

	// Optional: avoid “trusted all proxies” warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": d.DBPath})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hubStats(d.Hub)
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := d.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	router.GET("/debug", func(c *gin.Context) {
		stats := hubStats(d.Hub)
		c.JSON(http.StatusOK, gin.H{
			"db":            d.DBPath,
			"tcp_clients":   stats.TCPClients,
			"ws_clients":    stats.WSClients,
			"queued_events": stats.Queued,
		})
	})

	router.GET("/metrics", metrics.Handler())
	if d.Hub != nil {
		router.GET("/ws", synchub.WSHandler(d.Hub))
	}

	authHandler := auth.NewHandler(d.Users, d.Tokens)
	api := router.Group("")
	api.Use(auth.Identify(authHandler.Auth))

	authHandler.RegisterRoutes(api.Group("/auth"))
	reviews.NewHandler(d.Reviews).RegisterRoutes(api)
	feedback.NewHandler(d.Feedback).RegisterRoutes(api)

	return router
}

func hubStats(h *synchub.Hub) synchub.Stats {
	if h == nil {
		return synchub.Stats{}
	}
	return h.Stats()
}
