package http

import (
	"time"

	"github.com/cwrk-planet/presence-relay/internal/domain"
)

type HealthReport struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Server    ServerReport   `json:"server"`
	Sockets   SocketReport   `json:"sockets"`
	Events    []domain.Event `json:"events"`
}

type ServerReport struct {
	UptimeSeconds float64      `json:"uptime_seconds"`
	PID           int          `json:"pid"`
	Goroutines    int          `json:"goroutines"`
	Memory        MemoryReport `json:"memory"`
}

type MemoryReport struct {
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
	HeapInuseBytes uint64 `json:"heap_inuse_bytes"`
	SysBytes       uint64 `json:"sys_bytes"`
	NumGC          uint32 `json:"num_gc"`
}

type SocketReport struct {
	ActiveConnections int `json:"active_connections"`
	ActiveSessions    int `json:"active_sessions"`
}
