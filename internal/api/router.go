package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"market-curves/internal/api/handlers"
	"market-curves/internal/api/middleware"
)

// Options wires the router's collaborators.
type Options struct {
	GridStep       float64
	MaxGridPoints  int
	Store          handlers.RunStore // nil disables the /runs routes
	RegionsFile    string
	AllowedOrigins []string
}

// NewRouter builds the HTTP API.
func NewRouter(opts Options) *gin.Engine {
	router := gin.New()

	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.NoRoute(middleware.NotFound())

	curveHandler := handlers.NewCurveHandler(opts.GridStep, opts.MaxGridPoints)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/curves", curveHandler.BuildCurves)
		v1.POST("/cross", curveHandler.FindCross)
		v1.POST("/distance", curveHandler.Distance)

		v1.GET("/regions", handlers.ListRegions(opts.RegionsFile))

		if opts.Store != nil {
			runHandler := handlers.NewRunHandler(opts.Store)
			v1.GET("/runs/:id/days", runHandler.ListDays)
			v1.GET("/runs/:id/days/:day", runHandler.ListIntervals)
			v1.GET("/runs/:id/curves", runHandler.GetCurves)
		}
	}

	return router
}
