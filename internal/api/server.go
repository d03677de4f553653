// Package api is the HTTP surface of the check-in desk.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eventdesk/internal/auth"
	"eventdesk/internal/httpmiddleware"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Options carries what the router needs beyond the handler.
type Options struct {
	SigningKey  string
	Issuer      string
	CORSOrigins []string
	Production  bool
	// SearchLimiter throttles the public lookup routes. Nil disables it.
	SearchLimiter httpmiddleware.Limiter
	Checks        map[string]HealthCheck
	Log           *slog.Logger
}

// NewRouter mounts every route on a fresh gin engine.
func NewRouter(h *ParticipantHandler, opts Options) *gin.Engine {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(requestid.New())
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))
	r.Use(httpmiddleware.SecurityHeaders(opts.Production))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", healthz(opts.Checks))

	v1 := r.Group("/v1", auth.Authenticate(opts.SigningKey, opts.Issuer))

	lookup := v1.Group("")
	if opts.SearchLimiter != nil {
		lookup.Use(httpmiddleware.RateLimit(opts.SearchLimiter, log))
	}
	lookup.GET("/participants/search", h.HandleSearch)
	lookup.GET("/participants/:id", h.HandleGet)

	session := v1.Group("", auth.RequireSession())
	session.PATCH("/participants/:id", h.HandleUpdate)

	admin := v1.Group("", auth.RequireAdmin())
	{
		admin.GET("/participants", h.HandleList)
		admin.POST("/participants", h.HandleCreate)
		admin.DELETE("/participants/:id", h.HandleDelete)
		admin.POST("/participants/:id/milestones/:milestone", h.HandleMilestone)
		admin.POST("/imports", h.HandleImport)
		admin.GET("/imports/:id", h.HandleImportStatus)
		admin.GET("/exports/participants.csv", h.HandleExport)
		admin.GET("/stats", h.HandleStats)
		admin.POST("/stats/recompute", h.HandleRecomputeStats)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func healthz(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := gin.H{"status": "ok"}
		for name, check := range checks {
			ok := check(ctx)
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
		c.JSON(status, body)
	}
}
