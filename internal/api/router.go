package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "hookbot/internal/api/context"
	"hookbot/internal/api/handlers"
	"hookbot/internal/api/middleware"
	"hookbot/internal/pkg/errors"
)

type Dependencies struct {
	WebhookHandler  *handlers.WebhookHandler
	CaptureHandler  *handlers.CaptureHandler
	TemplateHandler *handlers.TemplateHandler
	StatsHandler    *handlers.StatsHandler
	SettingsHandler *handlers.SettingsHandler
	HealthHandler   *handlers.HealthHandler
	MetricsHandler  *handlers.MetricsHandler
	AuthMiddleware  *middleware.AuthMiddleware
	RateLimiter     *middleware.RateLimiter
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, errors.NotFound("Not found", "No route for "+r.Method+" "+r.URL.Path))
	})

	// Public endpoints
	router.POST("/webhook/:uuid", chain(deps.WebhookHandler.Receive, deps.RateLimiter.Handle))
	router.POST("/capture/:session_id", chain(deps.CaptureHandler.Complete, deps.RateLimiter.Handle))
	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	authMid := deps.AuthMiddleware
	operator := middleware.RequireRole("admin", "operator")

	// Capture sessions
	router.POST("/api/v1/capture-sessions",
		chain(deps.CaptureHandler.Create, authMid.Handle, operator))
	router.GET("/api/v1/capture-sessions/:session_id",
		chain(deps.CaptureHandler.Poll, authMid.Handle, operator))
	router.DELETE("/api/v1/capture-sessions/:session_id",
		chain(deps.CaptureHandler.Cancel, authMid.Handle, operator))
	router.GET("/api/v1/capture-sessions/:session_id/qr",
		chain(deps.CaptureHandler.QRCode, authMid.Handle, operator))

	// Templates
	router.POST("/api/v1/webhooks/:webhook_id/refresh",
		chain(deps.TemplateHandler.Refresh, authMid.Handle, operator))
	router.POST("/api/v1/webhooks/:webhook_id/preview",
		chain(deps.TemplateHandler.Preview, authMid.Handle, operator))

	// Stats and settings
	router.GET("/api/v1/stats",
		chain(deps.StatsHandler.Get, authMid.Handle, operator))
	router.GET("/api/v1/settings",
		chain(deps.SettingsHandler.Get, authMid.Handle, operator))
	router.PUT("/api/v1/settings",
		chain(deps.SettingsHandler.Update, authMid.Handle, middleware.RequireRole("admin")))

	return router
}

// chain applies middlewares outermost first.
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// wrap converts an http.HandlerFunc to an httprouter.Handle, injecting the route params.
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
