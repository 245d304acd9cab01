// Package api exposes the waitlist and inbound email webhook over HTTP.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/suntvalg/suntvalg-server/internal/jobs"
	"github.com/suntvalg/suntvalg-server/internal/middleware"
	"github.com/suntvalg/suntvalg-server/internal/webhook"
)

// Dependencies wires the router. DB, RateLimiter and MetricsPath are optional.
type Dependencies struct {
	Waitlist         WaitlistService
	Verifier         *webhook.Verifier
	Dispatcher       jobs.Dispatcher
	FetchMissingBody bool
	DB               Pinger
	RateLimiter      *middleware.RateLimiter
	MetricsPath      string
	Logger           zerolog.Logger
}

func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(deps.Logger),
		middleware.Recovery(deps.Logger),
	)

	r.GET("/healthz", healthHandler(deps.DB))
	if deps.MetricsPath != "" {
		r.GET(deps.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	waitlist := NewWaitlistHandler(deps.Waitlist)
	hooks := NewWebhookHandler(deps.Verifier, deps.Dispatcher, deps.FetchMissingBody)

	apiGroup := r.Group("/api")
	{
		join := []gin.HandlerFunc{waitlist.Join}
		if deps.RateLimiter != nil {
			join = append([]gin.HandlerFunc{deps.RateLimiter.Limit()}, join...)
		}
		apiGroup.POST("/waitlist", join...)
		apiGroup.GET("/waitlist", waitlist.List)
		apiGroup.POST("/webhooks/email", hooks.HandleEmail)
	}

	return r
}
