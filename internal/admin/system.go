// AngelaMos | 2026
// system.go

package admin

import (
	"context"
	"database/sql"
	"runtime"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 2 * time.Second

var processStart = time.Now()

// SystemProbe reads the state of the backing stores for the admin
// dashboard. Any nil func is skipped and its store reported healthy.
type SystemProbe struct {
	DBStats     func() sql.DBStats
	DBPing      func(ctx context.Context) error
	RedisStats  func() *redis.PoolStats
	RedisPing   func(ctx context.Context) error
	UploadsPing func(ctx context.Context) error
	UploadsDir  string
}

// Collect pings the stores concurrently, then snapshots pools and runtime.
func (p SystemProbe) Collect(ctx context.Context) SystemStatsResponse {
	var dbOK, redisOK, uploadsOK bool

	var wg sync.WaitGroup
	wg.Go(func() { dbOK = pingOK(ctx, p.DBPing) })
	wg.Go(func() { redisOK = pingOK(ctx, p.RedisPing) })
	wg.Go(func() { uploadsOK = pingOK(ctx, p.UploadsPing) })
	wg.Wait()

	resp := SystemStatsResponse{
		Database:    DatabaseStatus{Healthy: dbOK},
		Redis:       RedisStatus{Healthy: redisOK},
		Uploads:     UploadsStatus{Healthy: uploadsOK, Dir: p.UploadsDir},
		Runtime:     readRuntime(),
		CollectedAt: time.Now().UTC(),
	}

	if p.DBStats != nil {
		s := p.DBStats()
		resp.Database.Stats = &DBPoolStats{
			MaxOpen:    s.MaxOpenConnections,
			Open:       s.OpenConnections,
			InUse:      s.InUse,
			Idle:       s.Idle,
			WaitCount:  s.WaitCount,
			WaitMillis: s.WaitDuration.Milliseconds(),
		}
	}

	if p.RedisStats != nil {
		if s := p.RedisStats(); s != nil {
			resp.Redis.Stats = &RedisPoolStats{
				Hits:       s.Hits,
				Misses:     s.Misses,
				Timeouts:   s.Timeouts,
				TotalConns: s.TotalConns,
				IdleConns:  s.IdleConns,
			}
		}
	}

	return resp
}

func pingOK(ctx context.Context, ping func(context.Context) error) bool {
	if ping == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return ping(ctx) == nil
}

func readRuntime() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return RuntimeStats{
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		HeapAlloc:     m.HeapAlloc,
		NumGC:         m.NumGC,
		UptimeSeconds: int64(time.Since(processStart).Seconds()),
	}
}

type SystemStatsResponse struct {
	Database    DatabaseStatus `json:"database"`
	Redis       RedisStatus    `json:"redis"`
	Uploads     UploadsStatus  `json:"uploads"`
	Runtime     RuntimeStats   `json:"runtime"`
	CollectedAt time.Time      `json:"collectedAt"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type UploadsStatus struct {
	Healthy bool   `json:"healthy"`
	Dir     string `json:"dir,omitempty"`
}

type DBPoolStats struct {
	MaxOpen    int   `json:"maxOpen"`
	Open       int   `json:"open"`
	InUse      int   `json:"inUse"`
	Idle       int   `json:"idle"`
	WaitCount  int64 `json:"waitCount"`
	WaitMillis int64 `json:"waitMillis"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"totalConns"`
	IdleConns  uint32 `json:"idleConns"`
}

type RuntimeStats struct {
	GoVersion     string `json:"goVersion"`
	Goroutines    int    `json:"goroutines"`
	NumCPU        int    `json:"numCPU"`
	HeapAlloc     uint64 `json:"heapAllocBytes"`
	NumGC         uint32 `json:"numGC"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}
