/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sakarnDev/jira-worklog/internal/config"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc aggregator, sessions sessionStore) *gin.Engine {
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Next()
		log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
	})
	r.Use(observeDuration())

	h := NewHandlers(cfg, log, svc, sessions)
	rl := NewRateLimiter(cfg.RateLimitPerMin)

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)

	api := r.Group("/api", RequireSession(sessions), rl.Middleware())
	api.GET("/worklogs", h.Worklogs)

	return r
}
