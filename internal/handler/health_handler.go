package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"tg-chats-collector/internal/messaging"
	"tg-chats-collector/internal/telegram"
)

const readinessTimeout = 5 * time.Second

// Health returns basic health check
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status    string         `json:"status"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Check probes one dependency.
type Check struct {
	Name string
	Run  func(ctx context.Context) HealthCheckResult
}

// Ready returns readiness check with dependencies. Only configured
// dependencies are passed in; all of them must be up.
func Ready(checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		// Check dependencies in parallel
		results := make([]HealthCheckResult, len(checks))
		var wg sync.WaitGroup
		for i, check := range checks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = check.Run(ctx)
			}()
		}
		wg.Wait()

		byName := make(map[string]HealthCheckResult, len(checks))
		allHealthy := true
		for i, check := range checks {
			byName[check.Name] = results[i]
			allHealthy = allHealthy && results[i].Status == "up"
		}

		response := map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks":    byName,
		}

		w.Header().Set("Content-Type", "application/json")
		if allHealthy {
			response["status"] = "ready"
			w.WriteHeader(http.StatusOK)
		} else {
			response["status"] = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(response)
	}
}

// GatewayCheck verifies the Telegram gateway answers and is logged in.
func GatewayCheck(client telegram.Client) Check {
	return Check{Name: "telegram", Run: func(ctx context.Context) HealthCheckResult {
		start := time.Now()
		me, err := client.GetMe(ctx)
		latency := time.Since(start)
		if err != nil {
			return HealthCheckResult{Status: "down", LatencyMs: latency.Milliseconds(), Error: err.Error()}
		}
		return HealthCheckResult{
			Status:    "up",
			LatencyMs: latency.Milliseconds(),
			Metadata:  map[string]any{"user_id": me.ID},
		}
	}}
}

// DatabaseCheck verifies database connectivity
func DatabaseCheck(db *sql.DB) Check {
	return Check{Name: "database", Run: func(ctx context.Context) HealthCheckResult {
		start := time.Now()
		err := db.PingContext(ctx)
		latency := time.Since(start)

		if err != nil {
			return HealthCheckResult{
				Status:    "down",
				LatencyMs: latency.Milliseconds(),
				Error:     err.Error(),
			}
		}

		stats := db.Stats()
		return HealthCheckResult{
			Status:    "up",
			LatencyMs: latency.Milliseconds(),
			Metadata: map[string]any{
				"connections_open":   stats.OpenConnections,
				"connections_in_use": stats.InUse,
				"connections_idle":   stats.Idle,
				"max_open":           stats.MaxOpenConnections,
			},
		}
	}}
}

// RabbitMQCheck verifies RabbitMQ connectivity
func RabbitMQCheck(rmq *messaging.RabbitMQ) Check {
	return Check{Name: "rabbitmq", Run: func(ctx context.Context) HealthCheckResult {
		if rmq.IsClosed() {
			return HealthCheckResult{
				Status: "down",
				Error:  "connection closed",
			}
		}
		return HealthCheckResult{Status: "up"}
	}}
}
