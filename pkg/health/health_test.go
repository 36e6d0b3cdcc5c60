package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestNewChecker(t *testing.T) {
	c := NewChecker("1.0", time.Now())

	for _, kind := range []Kind{KindHealth, KindReadiness, KindLiveness} {
		resp := c.Run(kind)
		if resp.Status != StatusHealthy {
			t.Errorf("%s: empty checker should be healthy, got %s", kind, resp.Status)
		}
		if len(resp.Checks) != 0 {
			t.Errorf("%s: expected no checks, got %d", kind, len(resp.Checks))
		}
		if resp.Version != "1.0" {
			t.Errorf("%s: expected version 1.0, got %q", kind, resp.Version)
		}
	}
}

func TestRegisterIsolatesKinds(t *testing.T) {
	c := NewChecker("", time.Now())

	called := false
	c.Register(KindReadiness, "ready", func() Check {
		called = true
		return Check{Status: StatusHealthy}
	})

	c.Run(KindHealth)
	c.Run(KindLiveness)
	if called {
		t.Error("Readiness check should only run for readiness")
	}

	resp := c.Run(KindReadiness)
	if !called {
		t.Error("Readiness check was not called")
	}
	check, ok := resp.Checks["ready"]
	if !ok {
		t.Fatal("Readiness check missing from response")
	}
	if check.Name != "ready" {
		t.Errorf("Expected name to default to registration name, got %q", check.Name)
	}
	if check.LastChecked.IsZero() {
		t.Error("LastChecked should be set")
	}
}

func TestRegisterReplaces(t *testing.T) {
	c := NewChecker("", time.Now())
	c.Register(KindHealth, "x", func() Check { return Check{Status: StatusUnhealthy} })
	c.Register(KindHealth, "x", func() Check { return Check{Status: StatusHealthy} })

	if got := c.Run(KindHealth).Status; got != StatusHealthy {
		t.Errorf("Expected replaced check to be healthy, got %s", got)
	}
}

func TestStatusAggregation(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"one unhealthy", []Status{StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
		{"degraded and unhealthy", []Status{StatusDegraded, StatusUnhealthy, StatusDegraded}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker("", time.Now())
			for i, s := range tt.statuses {
				status := s
				c.Register(KindHealth, string(rune('a'+i)), func() Check { return Check{Status: status} })
			}
			if got := c.Run(KindHealth).Status; got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCheckDuration(t *testing.T) {
	c := NewChecker("", time.Now())
	c.Register(KindHealth, "slow", func() Check {
		time.Sleep(5 * time.Millisecond)
		return Check{Status: StatusHealthy}
	})

	if d := c.Run(KindHealth).Checks["slow"].Duration; d < 5*time.Millisecond {
		t.Errorf("Expected duration >= 5ms, got %v", d)
	}
}

func TestUptime(t *testing.T) {
	c := NewChecker("", time.Now().Add(-90*time.Second))
	if got := c.Run(KindHealth).Uptime; got != "1m30s" {
		t.Errorf("Expected uptime 1m30s, got %s", got)
	}
}

func TestProbeCheck(t *testing.T) {
	ok := ProbeCheck("surface", func() error { return nil })()
	if ok.Status != StatusHealthy || ok.Name != "surface" {
		t.Errorf("Expected healthy surface check, got %+v", ok)
	}

	bad := ProbeCheck("surface", func() error { return errors.New("font missing") })()
	if bad.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", bad.Status)
	}
	if bad.Message != "font missing" {
		t.Errorf("Expected probe error as message, got %q", bad.Message)
	}
}

func TestDrainCheck(t *testing.T) {
	draining := false
	check := DrainCheck(func() bool { return draining })

	if got := check().Status; got != StatusHealthy {
		t.Errorf("Expected healthy before drain, got %s", got)
	}
	draining = true
	if got := check().Status; got != StatusUnhealthy {
		t.Errorf("Expected unhealthy while draining, got %s", got)
	}
}

func TestCapacityCheck(t *testing.T) {
	tests := []struct {
		inFlight int64
		limit    int64
		want     Status
	}{
		{0, 4, StatusHealthy},
		{3, 4, StatusHealthy},
		{4, 4, StatusDegraded},
		{8, 4, StatusDegraded},
		{9, 4, StatusUnhealthy},
		{100, 0, StatusHealthy},
	}

	for _, tt := range tests {
		n := tt.inFlight
		check := CapacityCheck(func() int64 { return n }, tt.limit)()
		if check.Status != tt.want {
			t.Errorf("CapacityCheck(%d, %d) = %s, want %s", tt.inFlight, tt.limit, check.Status, tt.want)
		}
		if check.Details["in_flight"] != tt.inFlight {
			t.Errorf("Expected in_flight detail %d, got %v", tt.inFlight, check.Details["in_flight"])
		}
	}
}

func TestMemoryCheck(t *testing.T) {
	tests := []struct {
		heap  uint64
		limit uint64
		want  Status
	}{
		{100, 1000, StatusHealthy},
		{1001, 1000, StatusDegraded},
		{1 << 40, 0, StatusHealthy},
	}

	for _, tt := range tests {
		heap := tt.heap
		check := memoryCheck(tt.limit, func() uint64 { return heap })()
		if check.Status != tt.want {
			t.Errorf("memoryCheck(heap=%d, limit=%d) = %s, want %s", tt.heap, tt.limit, check.Status, tt.want)
		}
	}

	if got := MemoryCheck(0)().Status; got != StatusHealthy {
		t.Errorf("Unlimited memory check should be healthy, got %s", got)
	}
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		status Status
		code   int
	}{
		{"health ok", KindHealth, StatusHealthy, http.StatusOK},
		{"health degraded", KindHealth, StatusDegraded, http.StatusOK},
		{"health unhealthy", KindHealth, StatusUnhealthy, http.StatusServiceUnavailable},
		{"ready ok", KindReadiness, StatusHealthy, http.StatusOK},
		{"ready degraded", KindReadiness, StatusDegraded, http.StatusServiceUnavailable},
		{"live unhealthy", KindLiveness, StatusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker("test", time.Now())
			c.Register(tt.kind, "probe", func() Check { return Check{Status: tt.status} })

			rr := httptest.NewRecorder()
			c.Handler(tt.kind)(rr, httptest.NewRequest(http.MethodGet, "/", nil))

			if rr.Code != tt.code {
				t.Errorf("Expected status code %d, got %d", tt.code, rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected application/json, got %q", ct)
			}

			var resp Response
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.status {
				t.Errorf("Expected body status %s, got %s", tt.status, resp.Status)
			}
			if resp.Checks["probe"].Name != "probe" {
				t.Errorf("Expected probe in body, got %+v", resp.Checks)
			}
		})
	}
}

func TestConcurrentRegisterAndRun(t *testing.T) {
	c := NewChecker("", time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Register(KindHealth, string(rune('a'+i)), func() Check { return Check{Status: StatusHealthy} })
		}(i)
		go func() {
			defer wg.Done()
			c.Run(KindHealth)
		}()
	}
	wg.Wait()

	if n := len(c.Run(KindHealth).Checks); n != 20 {
		t.Errorf("Expected 20 checks, got %d", n)
	}
}
