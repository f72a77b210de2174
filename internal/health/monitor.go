// Package health periodically probes backend reachability. The probe is
// fully decoupled from the chat flow: it shares nothing with it but the API
// client, and neither blocks the other.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"avatarsim/internal/api"
)

// Status is the result of the most recent probe.
type Status struct {
	Connected bool          `json:"connected"`
	Latency   time.Duration `json:"latency"`
	CheckedAt time.Time     `json:"checkedAt"`
}

// Monitor polls the backend's health endpoint at a fixed interval.
type Monitor struct {
	api      *api.Client
	interval time.Duration
	logger   zerolog.Logger

	mu       sync.Mutex
	status   Status
	onChange func(Status)
	stopCh   chan struct{}
	running  bool
}

// DefaultInterval between probes.
const DefaultInterval = 30 * time.Second

// NewMonitor creates a monitor. A non-positive interval uses the default.
func NewMonitor(client *api.Client, interval time.Duration, logger zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		api:      client,
		interval: interval,
		logger:   logger.With().Str("component", "health").Logger(),
		// Optimistic until the first probe completes, matching the UI's
		// initial "connected" badge.
		status: Status{Connected: true},
	}
}

// SetOnChange registers the callback invoked whenever connectivity flips.
func (m *Monitor) SetOnChange(fn func(Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Start probes immediately, then on every interval tick until Stop. A
// stopped monitor can be started again.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	go func() {
		m.CheckNow()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				m.CheckNow()
			}
		}
	}()

	m.logger.Info().Dur("interval", m.interval).Msg("Health monitor started")
}

// Stop halts the probe loop.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)
	m.logger.Info().Msg("Health monitor stopped")
}

// CheckNow performs one probe synchronously and returns the result.
func (m *Monitor) CheckNow() Status {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()

	latency, err := m.api.Health(ctx)
	status := Status{
		Connected: err == nil,
		Latency:   latency,
		CheckedAt: time.Now(),
	}
	if err != nil {
		m.logger.Debug().Err(err).Msg("Health probe failed")
	}

	m.mu.Lock()
	flipped := m.status.Connected != status.Connected
	m.status = status
	fn := m.onChange
	m.mu.Unlock()

	if flipped {
		m.logger.Info().Bool("connected", status.Connected).Msg("Backend connectivity changed")
		if fn != nil {
			fn(status)
		}
	}
	return status
}

// Status returns the most recent probe result.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}
