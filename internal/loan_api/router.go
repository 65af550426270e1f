package loan_api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microlending/loan-engine/internal/config"
	"github.com/microlending/loan-engine/internal/loan_api/handler"
	"github.com/microlending/loan-engine/internal/loan_api/middleware"
	"github.com/redis/go-redis/v9"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether one backing dependency is reachable
type HealthCheck func(ctx context.Context) error

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	idem config.IdempotencyConfig,
	rdb redis.Cmdable,
	loanHandler *handler.LoanHandler,
	installmentHandler *handler.InstallmentHandler,
	checks map[string]HealthCheck,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	if idem.Enabled && rdb != nil {
		r.Use(middleware.Idempotency(logger, rdb, idem.TTL))
	}

	loans := r.Group("/prestamos")
	{
		loans.POST("", loanHandler.Create)
		loans.GET("", loanHandler.List)
		loans.GET("/:id", loanHandler.GetByID)
		loans.PUT("/:id", loanHandler.Update)
		loans.DELETE("/:id", loanHandler.Delete)
		loans.GET("/:id/notificaciones", loanHandler.ListNotifications)
		loans.GET("/cliente/:clienteId", loanHandler.ListByClient)
		loans.POST("/aprobar/:id", loanHandler.Approve)
		loans.POST("/rechazar/:id", loanHandler.Reject)
	}

	installments := r.Group("/cuotas")
	{
		installments.GET("", installmentHandler.List)
		installments.GET("/:id", installmentHandler.GetByID)
		installments.GET("/prestamo/:prestamoId", installmentHandler.ListByLoan)
		installments.POST("/pagar/:cuentaId/:id", installmentHandler.Pay)
	}

	// Health check endpoint for monitoring
	r.GET("/health", healthHandler(checks))
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				components[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{"status": overall, "components": components, "timestamp": time.Now().UTC()})
	}
}
