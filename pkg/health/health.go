// Package health aggregates process probes for the HTTP server.
package health

import (
	"time"
)

// NewChecker creates a checker whose uptime counts from started
func NewChecker(version string, started time.Time) *Checker {
	return &Checker{
		checks: map[Kind]map[string]CheckFunc{
			KindHealth:    {},
			KindReadiness: {},
			KindLiveness:  {},
		},
		started: started,
		version: version,
	}
}

// Register adds a probe to the given set. Registering a name twice
// replaces the earlier probe.
func (c *Checker) Register(kind Kind, name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.checks[kind]
	if !ok {
		set = make(map[string]CheckFunc)
		c.checks[kind] = set
	}
	set[name] = check
}

// Run performs every probe of a set. The worst status wins.
func (c *Checker) Run(kind Kind) Response {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	resp := Response{
		Status:    StatusHealthy,
		Version:   c.version,
		Timestamp: now,
		Uptime:    now.Sub(c.started).Round(time.Second).String(),
		Checks:    make(map[string]Check, len(c.checks[kind])),
	}

	for name, probe := range c.checks[kind] {
		start := time.Now()
		check := probe()
		check.Duration = time.Since(start)
		check.LastChecked = start
		if check.Name == "" {
			check.Name = name
		}
		resp.Checks[name] = check
		resp.Status = worse(resp.Status, check.Status)
	}
	return resp
}

func worse(a, b Status) Status {
	rank := func(s Status) int {
		switch s {
		case StatusUnhealthy:
			return 2
		case StatusDegraded:
			return 1
		}
		return 0
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
