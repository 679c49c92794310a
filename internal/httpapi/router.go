package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/topaplus/commandcenter/internal/reports"
)

// Options configures the router.
type Options struct {
	CORSOrigin string
	AdminKey   string
	// Limit, when set, bounds concurrency and duration of API calls.
	Limit gin.HandlerFunc
}

// Router builds the gin engine for the JSON API.
func Router(svc *reports.Service, opts Options, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Logger(logger))

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", AdminKeyHeader, RequestIDHeader},
		MaxAge:       12 * time.Hour,
	}
	if opts.CORSOrigin == "" || opts.CORSOrigin == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{opts.CORSOrigin}
	}
	r.Use(cors.New(corsCfg))

	h := &Handler{Service: svc, Logger: logger}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	if opts.Limit != nil {
		api.Use(opts.Limit)
	}
	{
		api.GET("/sources", h.SourcesList)
		api.GET("/sources/:source/options", h.SourceOptions)
		api.GET("/sources/:source/reports/:report", h.RunReport)
		api.GET("/sources/:source/stages/:stage", h.StageRecords)
	}

	admin := api.Group("")
	admin.Use(AdminKey(opts.AdminKey))
	{
		admin.POST("/sources/:source/refresh", h.Refresh)
	}

	return r
}
