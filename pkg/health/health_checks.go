package health

import (
	"fmt"
	"runtime"
)

// ProbeCheck is unhealthy while probe returns an error
func ProbeCheck(name string, probe func() error) CheckFunc {
	return func() Check {
		check := Check{Name: name, Status: StatusHealthy}
		if err := probe(); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		}
		return check
	}
}

// DrainCheck fails once the server starts shutting down
func DrainCheck(draining func() bool) CheckFunc {
	return func() Check {
		if draining() {
			return Check{Name: "drain", Status: StatusUnhealthy, Message: "shutting down"}
		}
		return Check{Name: "drain", Status: StatusHealthy}
	}
}

// CapacityCheck reports how many engines are in flight. It degrades at
// limit and is unhealthy past twice the limit.
func CapacityCheck(inFlight func() int64, limit int64) CheckFunc {
	return func() Check {
		n := inFlight()
		check := Check{
			Name:    "engines",
			Status:  StatusHealthy,
			Details: map[string]any{"in_flight": n, "limit": limit},
		}
		switch {
		case limit <= 0:
		case n > 2*limit:
			check.Status = StatusUnhealthy
			check.Message = fmt.Sprintf("%d engines in flight", n)
		case n >= limit:
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("%d engines in flight", n)
		}
		return check
	}
}

// MemoryCheck degrades when the heap exceeds limit bytes
func MemoryCheck(limit uint64) CheckFunc {
	return memoryCheck(limit, func() uint64 {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.HeapAlloc
	})
}

func memoryCheck(limit uint64, heap func() uint64) CheckFunc {
	return func() Check {
		alloc := heap()
		check := Check{
			Name:    "memory",
			Status:  StatusHealthy,
			Details: map[string]any{"heap_bytes": alloc, "limit_bytes": limit},
		}
		if limit > 0 && alloc > limit {
			check.Status = StatusDegraded
			check.Message = "heap above limit"
		}
		return check
	}
}
