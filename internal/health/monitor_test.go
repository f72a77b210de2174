package health

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatarsim/internal/api"
)

func newTestMonitor(t *testing.T, handler http.HandlerFunc) *Monitor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := api.NewClient(api.Config{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	return NewMonitor(client, time.Minute, zerolog.Nop())
}

func TestMonitor_InitialStatusIsOptimistic(t *testing.T) {
	m := newTestMonitor(t, func(w http.ResponseWriter, r *http.Request) {})
	assert.True(t, m.Status().Connected)
}

func TestMonitor_CheckNowHealthy(t *testing.T) {
	m := newTestMonitor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status":"ok"}`))
	})

	st := m.CheckNow()
	assert.True(t, st.Connected)
	assert.Greater(t, st.Latency, time.Duration(0))
	assert.False(t, st.CheckedAt.IsZero())
}

func TestMonitor_CheckNowUnhealthy(t *testing.T) {
	m := newTestMonitor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	st := m.CheckNow()
	assert.False(t, st.Connected)
	assert.False(t, m.Status().Connected)
}

func TestMonitor_OnChangeFiresOnlyOnFlip(t *testing.T) {
	var mu sync.Mutex
	healthy := false
	m := newTestMonitor(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ok := healthy
		mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})

	var flips []bool
	m.SetOnChange(func(st Status) { flips = append(flips, st.Connected) })

	// connected(optimistic) -> down is a flip; down -> down is not
	m.CheckNow()
	m.CheckNow()
	require.Equal(t, []bool{false}, flips)

	mu.Lock()
	healthy = true
	mu.Unlock()
	m.CheckNow()
	assert.Equal(t, []bool{false, true}, flips)
}

func TestMonitor_StartStop(t *testing.T) {
	m := newTestMonitor(t, func(w http.ResponseWriter, r *http.Request) {})

	m.Start()
	// Idempotent start
	m.Start()

	require.Eventually(t, func() bool {
		return !m.Status().CheckedAt.IsZero()
	}, time.Second, 10*time.Millisecond, "immediate probe on start")

	m.Stop()
	m.Stop()
}

func TestMonitor_RestartAfterStop(t *testing.T) {
	var probes atomic.Int32
	m := newTestMonitor(t, func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
	})

	m.Start()
	require.Eventually(t, func() bool { return probes.Load() >= 1 }, time.Second, 10*time.Millisecond)
	m.Stop()

	// A fresh Start must probe again, not exit on the old stop signal
	m.Start()
	require.Eventually(t, func() bool { return probes.Load() >= 2 }, time.Second, 10*time.Millisecond,
		"restarted monitor never probed")
	m.Stop()
}
