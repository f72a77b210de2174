// Package model loads the avatar's glTF model and exposes the morph target
// dictionaries the blend controller animates. Only morph metadata is read
// here; geometry lives in the webview renderer.
package model

import "sync"

// MorphMesh holds one mesh's morph target dictionary (name to index) and its
// weight vector. Weights persist frame to frame; the blend controller is the
// only writer once the app is running.
type MorphMesh struct {
	mu      sync.RWMutex
	name    string
	dict    map[string]int
	weights []float32
}

// NewMorphMesh builds a mesh from an ordered list of morph target names.
func NewMorphMesh(name string, targetNames []string) *MorphMesh {
	dict := make(map[string]int, len(targetNames))
	for i, n := range targetNames {
		dict[n] = i
	}
	return &MorphMesh{
		name:    name,
		dict:    dict,
		weights: make([]float32, len(targetNames)),
	}
}

// Name returns the mesh name (e.g. "Wolf3D_Head").
func (m *MorphMesh) Name() string {
	return m.name
}

// Index returns the morph target index for a name.
func (m *MorphMesh) Index(target string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.dict[target]
	return i, ok
}

// Weight returns the current weight at an index, or 0 for out-of-range.
func (m *MorphMesh) Weight(i int) float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i < 0 || i >= len(m.weights) {
		return 0
	}
	return m.weights[i]
}

// SetWeight stores a weight, clamped to [0,1].
func (m *MorphMesh) SetWeight(i int, v float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.weights) {
		return
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	m.weights[i] = v
}

// Weights returns a copy of the weight vector for the renderer.
func (m *MorphMesh) Weights() []float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]float32, len(m.weights))
	copy(out, m.weights)
	return out
}

// TargetNames returns the dictionary keys in index order.
func (m *MorphMesh) TargetNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.weights))
	for n, i := range m.dict {
		if i >= 0 && i < len(out) {
			out[i] = n
		}
	}
	return out
}

// TargetCount returns the number of morph targets.
func (m *MorphMesh) TargetCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.weights)
}

// Reset zeroes every weight.
func (m *MorphMesh) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.weights {
		m.weights[i] = 0
	}
}
