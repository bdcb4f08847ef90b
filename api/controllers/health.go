package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/matheuslopes/garimpei-backend/api/responses"
	"github.com/matheuslopes/garimpei-backend/pkg/config"
	"github.com/matheuslopes/garimpei-backend/pkg/logger"
)

// Pinger is the readiness contract the database and redis clients share.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live", "env": cfg.App.Env})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, db Pinger, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				checks["database"] = "down"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "readiness database check failed", err)
				}
			} else {
				checks["database"] = "up"
			}
		}

		if redis != nil {
			if err := redis.Ping(ctx); err != nil {
				checks["redis"] = "down"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "readiness redis check failed", err)
				}
			} else {
				checks["redis"] = "up"
			}
		}

		status := http.StatusOK
		state := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{"status": state, "checks": checks})
	}
}
