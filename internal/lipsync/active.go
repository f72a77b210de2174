// Package lipsync schedules viseme activations against playing audio and
// drives the facial blend weights toward them each frame.
package lipsync

import (
	"sync"

	"avatarsim/internal/viseme"
)

// ActiveViseme is the single cell holding the currently active viseme, or
// none. The scheduler is the only writer; the blend controller reads it once
// per frame.
type ActiveViseme struct {
	mu    sync.RWMutex
	shape viseme.Shape
}

// NewActiveViseme returns an empty cell.
func NewActiveViseme() *ActiveViseme {
	return &ActiveViseme{}
}

// Set activates a viseme, replacing whatever was active.
func (a *ActiveViseme) Set(s viseme.Shape) {
	a.mu.Lock()
	a.shape = s
	a.mu.Unlock()
}

// ClearIf clears the cell only when it still holds s. A clear scheduled for
// an earlier activation must not erase a later one that already replaced it.
func (a *ActiveViseme) ClearIf(s viseme.Shape) {
	a.mu.Lock()
	if a.shape == s {
		a.shape = ""
	}
	a.mu.Unlock()
}

// Clear unconditionally empties the cell.
func (a *ActiveViseme) Clear() {
	a.mu.Lock()
	a.shape = ""
	a.mu.Unlock()
}

// Current returns the active shape, or false when none is active.
func (a *ActiveViseme) Current() (viseme.Shape, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.shape, a.shape != ""
}
