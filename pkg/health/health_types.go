package health

import (
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check is the result of one probe
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ns"`
}

// CheckFunc performs a probe
type CheckFunc func() Check

// Kind selects which set of checks to run
type Kind string

const (
	KindHealth    Kind = "health"
	KindReadiness Kind = "readiness"
	KindLiveness  Kind = "liveness"
)

// Checker holds the health, readiness and liveness probes of a process
type Checker struct {
	mu      sync.RWMutex
	checks  map[Kind]map[string]CheckFunc
	started time.Time
	version string
}

// Response is the aggregated result of one set of checks
type Response struct {
	Status    Status           `json:"status"`
	Version   string           `json:"version,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Checks    map[string]Check `json:"checks"`
}
