package api

import (
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"hanidl/internal/api/controllers"
	"hanidl/internal/app"
	"hanidl/internal/engine"
)

func RegisterRoutes(e *echo.Echo, appCtx *app.Context, queue *engine.QueueManager) {

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			appCtx.Logger.Info("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	queueCtrl := &controllers.QueueController{App: appCtx, Queue: queue}

	e.GET("/api/queue", queueCtrl.List)
	e.POST("/api/queue", queueCtrl.Add)
	e.GET("/api/queue/:id", queueCtrl.Get)
	e.DELETE("/api/queue/:id", queueCtrl.Cancel)

	e.GET("/api/history", queueCtrl.History)
}
