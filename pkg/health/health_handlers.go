package health

import (
	"encoding/json"
	"net/http"
)

// Handler serves one set of checks. Health answers 200 while degraded;
// readiness and liveness are binary.
func (c *Checker) Handler(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := c.Run(kind)

		status := http.StatusOK
		switch {
		case resp.Status == StatusUnhealthy:
			status = http.StatusServiceUnavailable
		case resp.Status == StatusDegraded && kind != KindHealth:
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}
}
