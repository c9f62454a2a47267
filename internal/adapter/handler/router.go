package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/johnquangdev/persona-panel/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg      *config.Config
	analysis *Analysis
	progress *Progress
	metrics  http.Handler
	auth     echo.MiddlewareFunc
}

// NewRouter creates a new router with all handlers. metrics may be nil.
func NewRouter(cfg *config.Config, analysis *Analysis, progress *Progress, metrics http.Handler, auth echo.MiddlewareFunc) *Router {
	return &Router{
		cfg:      cfg,
		analysis: analysis,
		progress: progress,
		metrics:  metrics,
		auth:     auth,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)
	if rt.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(rt.metrics))
	}

	v1 := e.Group("/v1")
	v1.GET("/questions", rt.analysis.ListQuestions)
	v1.GET("/schema/report", rt.analysis.ReportSchema)

	rt.setupAnalysisRoutes(v1)
}

// setupAnalysisRoutes configures analysis job routes
func (rt *Router) setupAnalysisRoutes(g *echo.Group) {
	var mw []echo.MiddlewareFunc
	if rt.auth != nil {
		mw = append(mw, rt.auth)
	}
	g.GET("/model/check", rt.analysis.CheckModel, mw...)

	jobs := g.Group("/analyses", mw...)

	jobs.POST("", rt.analysis.StartAnalysis)
	jobs.GET("", rt.analysis.ListJobs)
	jobs.GET("/:id", rt.analysis.GetJob)
	jobs.POST("/:id/stop", rt.analysis.StopJob)
	jobs.GET("/:id/answers", rt.analysis.GetAnswers)
	jobs.GET("/:id/report", rt.analysis.GetReport)
	jobs.GET("/:id/export", rt.analysis.Export)
	jobs.GET("/:id/archive", rt.analysis.ArchiveURL)
	if rt.progress != nil {
		jobs.GET("/:id/ws", rt.progress.Stream)
	}
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	environment := "production"
	if rt.cfg != nil {
		environment = rt.cfg.Server.Environment
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": environment,
	})
}
