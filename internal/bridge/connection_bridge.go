package bridge

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"avatarsim/internal/bus"
	"avatarsim/internal/health"
)

// ConnectionBridge exposes backend reachability to the frontend
type ConnectionBridge struct {
	ctx      context.Context
	monitor  *health.Monitor
	eventBus *bus.EventBus
	baseURL  string
}

// NewConnectionBridge creates the connection bridge
func NewConnectionBridge(monitor *health.Monitor, eventBus *bus.EventBus, baseURL string) *ConnectionBridge {
	return &ConnectionBridge{
		monitor:  monitor,
		eventBus: eventBus,
		baseURL:  baseURL,
	}
}

// Bind sets the Wails runtime context
func (b *ConnectionBridge) Bind(ctx context.Context) {
	b.ctx = ctx

	b.eventBus.Subscribe(bus.EventTypeHealthChanged, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "connection:status", e.Data)
	})
}

// CheckNow forces a probe outside the regular interval
func (b *ConnectionBridge) CheckNow() health.Status {
	return b.monitor.CheckNow()
}

// GetStatus returns the most recent probe result
func (b *ConnectionBridge) GetStatus() health.Status {
	return b.monitor.Status()
}

// IsConnected reports whether the last probe succeeded
func (b *ConnectionBridge) IsConnected() bool {
	return b.monitor.Status().Connected
}

// GetServerURL returns the configured backend URL
func (b *ConnectionBridge) GetServerURL() string {
	return b.baseURL
}
