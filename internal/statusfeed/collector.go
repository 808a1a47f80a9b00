package statusfeed

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/fixpoint-io/fixpoint-api/internal/metrics"
	"github.com/rs/zerolog"
)

// Snapshot is the system-health payload emitted on the feed.
type Snapshot struct {
	UptimeSeconds   int64     `json:"uptime_seconds"`
	Goroutines      int       `json:"goroutines"`
	HeapAllocBytes  uint64    `json:"heap_alloc_bytes"`
	DBHealthy       bool      `json:"db_healthy"`
	DBPingMillis    int64     `json:"db_ping_ms"`
	DBOpenConns     int       `json:"db_open_conns"`
	ConnectedClient int       `json:"connected_clients"`
	Timestamp       time.Time `json:"timestamp"`
}

// Collector periodically samples process and database health and broadcasts
// a system-update frame to the hub.
type Collector struct {
	db       *sql.DB
	hub      *Hub
	interval time.Duration
	logger   zerolog.Logger
	started  time.Time
}

func NewCollector(db *sql.DB, hub *Hub, interval time.Duration, logger zerolog.Logger) *Collector {
	return &Collector{
		db:       db,
		hub:      hub,
		interval: interval,
		logger:   logger.With().Str("component", "statusfeed_collector").Logger(),
		started:  time.Now(),
	}
}

// Run blocks, emitting a snapshot every interval, until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("status feed collector stopped")
			return
		case <-ticker.C:
			c.hub.Broadcast(Frame{Type: FrameSystemUpdate, Data: c.Collect(ctx)})
		}
	}
}

// Collect samples a single snapshot.
func (c *Collector) Collect(ctx context.Context) Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	snapshot := Snapshot{
		UptimeSeconds:   int64(time.Since(c.started).Seconds()),
		Goroutines:      runtime.NumGoroutine(),
		HeapAllocBytes:  mem.HeapAlloc,
		ConnectedClient: c.hub.ClientCount(),
		Timestamp:       time.Now(),
	}
	metrics.StatusFeedClients.Set(float64(snapshot.ConnectedClient))

	if c.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		start := time.Now()
		err := c.db.PingContext(pingCtx)
		snapshot.DBPingMillis = time.Since(start).Milliseconds()
		snapshot.DBHealthy = err == nil
		snapshot.DBOpenConns = c.db.Stats().OpenConnections
		if err != nil {
			c.logger.Warn().Err(err).Msg("database ping failed")
		}
	}
	return snapshot
}
