package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"icepay-gateway/internal/infrastructure/metrics"
	"icepay-gateway/pkg/container"
)

const healthAddr = ":9999"

// startServices runs the startup checks and exposes health and metrics.
func startServices(c *container.Container) error {
	checks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"PostgreSQL", c.DB.HealthCheck},
		{"Redis", c.Redis.HealthCheck},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, check := range checks {
		if err := check.fn(ctx); err != nil {
			return fmt.Errorf("%s failed: %w", check.name, err)
		}
		log.Info().Str("check", check.name).Msg("health check passed")
	}

	go startHealthCheckServer()

	return nil
}

func startHealthCheckServer() {
	r := gin.New()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "service": "icepay-worker"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler(prometheus.DefaultGatherer)))

	log.Info().Str("addr", healthAddr).Msg("health check server starting")
	if err := http.ListenAndServe(healthAddr, r); err != nil {
		log.Error().Err(err).Msg("health check server failed")
	}
}
