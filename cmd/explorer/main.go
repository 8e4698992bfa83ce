package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/lyzr/explorer/cmd/explorer/container"
	"github.com/lyzr/explorer/cmd/explorer/middleware"
	"github.com/lyzr/explorer/cmd/explorer/routes"
	"github.com/lyzr/explorer/common/bootstrap"
	"github.com/lyzr/explorer/common/db"
	"github.com/lyzr/explorer/common/repository"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (DB, logger, redis, bus, kv, metrics)
	components, err := bootstrap.Setup(ctx, "explorer", bootstrap.WithDBInitHook(checkRecordsTable(ctx)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap explorer: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	stop, err := serviceContainer.Start(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start explorer: %v\n", err)
		os.Exit(1)
	}
	defer stop()

	// Initialize Echo server
	e := setupEcho()

	// Setup middleware
	setupMiddleware(e, components)

	// Setup health check and metrics
	setupHealthCheck(e, serviceContainer)
	setupMetrics(e, components)

	// Register all routes
	registerRoutes(e, serviceContainer)

	// Start server
	startServer(e, components)
}

// checkRecordsTable fails startup when the records table cannot be queried
func checkRecordsTable(ctx context.Context) func(*db.DB) error {
	return func(d *db.DB) error {
		if _, err := repository.NewRecordRepository(d.SQL()).CountActive(ctx); err != nil {
			return fmt.Errorf("records table is not readable: %w", err)
		}
		return nil
	}
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo, components *bootstrap.Components) {
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestMetrics(components.Metrics))
	e.Use(middleware.ExtractUsername())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, c *container.Container) {
	e.GET("/health", func(ctx echo.Context) error {
		if err := c.Components.Health(ctx.Request().Context()); err != nil {
			return ctx.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status":  "unhealthy",
				"service": "explorer",
				"error":   err.Error(),
			})
		}

		return ctx.JSON(http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"service":  "explorer",
			"snapshot": c.RecordService.Stats(),
			"watchers": c.Hub.GetConnectionCount(),
		})
	})
}

// setupMetrics exposes the Prometheus registry when metrics are enabled
func setupMetrics(e *echo.Echo, components *bootstrap.Components) {
	if components.Metrics == nil {
		return
	}
	e.GET(components.Config.Metrics.Path, echo.WrapHandler(components.Metrics.Handler()))
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterRecordRoutes(e, serviceContainer)
	routes.RegisterTagRoutes(e, serviceContainer)
	routes.RegisterRealtimeRoutes(e, serviceContainer)
}

// startServer runs the Echo server until SIGINT or SIGTERM
func startServer(e *echo.Echo, components *bootstrap.Components) {
	port := components.Config.Service.Port
	components.Logger.Info("Starting explorer", "port", port)

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			components.Logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	components.Logger.Info("Shutting down explorer")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		components.Logger.Error("Server shutdown error", "error", err)
	}
}
