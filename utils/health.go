package utils

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Postgres  bool      `json:"postgres"`
	Mongo     bool      `json:"mongo"`
	Redis     []bool    `json:"redis"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Healthy reports whether the system of record is reachable.
func (h HealthStatus) Healthy() bool {
	return h.Postgres
}

// HealthMonitor periodically pings the backing stores and keeps the latest
// snapshot in memory. Nil dependencies are skipped.
type HealthMonitor struct {
	db           *sql.DB
	redisClients []*redis.Client
	mongoClient  *mongo.Client

	mu      sync.RWMutex
	current HealthStatus
}

func NewHealthMonitor(db *sql.DB, mongoClient *mongo.Client, redisClients ...*redis.Client) *HealthMonitor {
	return &HealthMonitor{db: db, mongoClient: mongoClient, redisClients: redisClients}
}

// Status returns latest stored health snapshot.
func (m *HealthMonitor) Status() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Check pings every dependency once and stores the result.
func (m *HealthMonitor) Check(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	status := HealthStatus{CheckedAt: time.Now()}
	if m.db != nil {
		status.Postgres = m.db.PingContext(ctx) == nil
	}
	if m.mongoClient != nil {
		status.Mongo = m.mongoClient.Ping(ctx, nil) == nil
	}
	for _, client := range m.redisClients {
		status.Redis = append(status.Redis, client.Ping(ctx).Err() == nil)
	}

	m.mu.Lock()
	m.current = status
	m.mu.Unlock()
	return status
}

// Start runs Check every interval until ctx is cancelled.
func (m *HealthMonitor) Start(ctx context.Context, interval time.Duration) {
	m.Check(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}
