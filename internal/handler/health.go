package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/infra"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Health checks store and Redis connectivity and reports the mailer breaker.
// A nil rdb or breakerState reports the dependency as disabled.
func Health(store Pinger, rdb *redis.Client, breakerState func() infra.CBState) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		storeStatus := "connected"
		if store.Ping(ctx) != nil {
			storeStatus = "error"
		}

		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			}
		}

		mailer := "disabled"
		if breakerState != nil {
			mailer = breakerState().String()
		}

		status := http.StatusOK
		if storeStatus == "error" || redisStatus == "error" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":     status == http.StatusOK,
			"store":  storeStatus,
			"redis":  redisStatus,
			"mailer": mailer,
		})
	}
}
