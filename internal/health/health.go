// Package health reports liveness and readiness over HTTP and the standard gRPC health service.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported alongside the overall ("") status.
const ServiceName = "recruit-intake.Intake"

// Pinger checks a dependency. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker evaluates readiness. A nil pinger (in-memory repositories) is always ready.
type Checker struct {
	db      Pinger
	timeout time.Duration
	logger  *zap.Logger
}

// NewChecker returns a Checker.
func NewChecker(db Pinger, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{db: db, timeout: 2 * time.Second, logger: logger}
}

// Ready returns nil when every dependency responds.
func (c *Checker) Ready(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

// Register mounts /healthz (liveness) and /readyz (readiness) on r.
func (c *Checker) Register(r gin.IRouter) {
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(ctx *gin.Context) {
		if err := c.Ready(ctx.Request.Context()); err != nil {
			c.logger.Warn("readiness check failed", zap.Error(err))
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Watch re-evaluates readiness every interval and publishes it on srv until ctx is done, then marks
// everything NOT_SERVING.
func (c *Checker) Watch(ctx context.Context, srv *grpchealth.Server, interval time.Duration) {
	c.publish(ctx, srv)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			srv.Shutdown()
			return
		case <-ticker.C:
			c.publish(ctx, srv)
		}
	}
}

func (c *Checker) publish(ctx context.Context, srv *grpchealth.Server) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := c.Ready(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	srv.SetServingStatus("", status)
	srv.SetServingStatus(ServiceName, status)
}
