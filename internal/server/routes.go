package server

import (
	"github.com/labstack/echo/v4"

	"github.com/otienoanyango/hansard-tales-sub004/internal/server/middleware"
	"github.com/otienoanyango/hansard-tales-sub004/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	apiRoutes.GET("/analyses", routes.GetAnalysesHandler)
	apiRoutes.GET("/statements/:id/status", routes.GetStatementStatusHandler)
	apiRoutes.GET("/bills/:id/edges", routes.GetBillEdgesHandler)
	apiRoutes.GET("/batches/:id", routes.GetBatchHandler)
}
