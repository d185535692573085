package api

import (
	"errors"
	"strconv"
	"time"

	"exchange-widget/internals/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(app *fiber.App, handler *Handler, m *metrics.Metrics, gatherer prometheus.Gatherer) {

	// Middleware
	app.Use(logger.New())
	app.Use(metricsMiddleware(m))

	// Routes
	v1 := app.Group("/v1")
	{
		v1.Get("/widget", handler.GetWidget)
		v1.Put("/range", handler.SetRange)
		v1.Put("/mode", handler.SetMode)
		v1.Post("/refresh", handler.Refresh)
		v1.Delete("/errors/:id", handler.AcknowledgeError)
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "UP"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

func metricsMiddleware(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		if path == "/metrics" {
			return err
		}

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				status = e.Code
			}
		}

		m.HTTPRequestDuration.WithLabelValues(path, c.Method()).Observe(time.Since(start).Seconds())
		m.HTTPRequestsTotal.WithLabelValues(path, c.Method(), strconv.Itoa(status/100)+"xx").Inc()
		return err
	}
}
