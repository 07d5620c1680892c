package handler

import (
	"context"
	"net/http"
	"time"

	"confcheckin/internal/infra"
	"confcheckin/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity; never exposes credentials or internals.
// The mail breaker state and dead letter depth are informational and do
// not affect the status.
func Health(db *gorm.DB, rdb *redis.Client, mailCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		if rdb == nil || rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		var mailDLQ int64 = -1
		if rdb != nil {
			if n, err := worker.NewDeadLetters(rdb).Len(ctx, worker.QueueEmail); err == nil {
				mailDLQ = n
			}
		}

		mailStatus := "disabled"
		if mailCB != nil {
			mailStatus = mailCB.State().String()
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":       status == http.StatusOK,
			"db":       dbStatus,
			"redis":    redisStatus,
			"mail":     mailStatus,
			"mail_dlq": mailDLQ, // -1 when unknown
		})
	}
}
