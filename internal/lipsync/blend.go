package lipsync

import (
	"sync"

	"avatarsim/internal/model"
)

// Per-frame smoothing factors. Attack is snappier than release so the mouth
// opens quickly and settles softly.
const (
	attackSmoothing  = 0.3
	releaseSmoothing = 0.15
)

// BlendController advances the facial blend weights once per rendered frame.
// With an active viseme, that target's weight on the head (and teeth, when
// present) moves toward 1; with none, every known target decays toward 0.
// Weights left behind by a previous viseme persist until the next no-active
// frame, so multiple targets can be transiently nonzero during fast speech.
type BlendController struct {
	mu     sync.Mutex
	head   *model.MorphMesh
	teeth  *model.MorphMesh
	active *ActiveViseme
}

// NewBlendController creates a controller over the avatar's meshes. teeth
// may be nil for models that only animate the head.
func NewBlendController(head, teeth *model.MorphMesh, active *ActiveViseme) *BlendController {
	return &BlendController{head: head, teeth: teeth, active: active}
}

// SetMeshes swaps the driven meshes, resetting their weights. Used when the
// model file is hot-reloaded.
func (c *BlendController) SetMeshes(head, teeth *model.MorphMesh) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = head
	c.teeth = teeth
	head.Reset()
	if teeth != nil {
		teeth.Reset()
	}
}

// Step runs one frame of interpolation. It is a pure function of the active
// viseme and the weight vectors; the vectors themselves are the only memory.
func (c *BlendController) Step() {
	c.mu.Lock()
	head, teeth := c.head, c.teeth
	c.mu.Unlock()
	if head == nil {
		return
	}

	shape, ok := c.active.Current()
	if !ok {
		decayAll(head, teeth)
		return
	}

	idx, known := head.Index(string(shape))
	if !known {
		// Active viseme with no matching morph target: hold this frame.
		return
	}

	head.SetWeight(idx, lerp(head.Weight(idx), 1, attackSmoothing))
	if teeth != nil {
		if ti, ok := teeth.Index(string(shape)); ok {
			teeth.SetWeight(ti, lerp(teeth.Weight(ti), 1, attackSmoothing))
		}
	}
}

// ResetAll zeroes every weight on both meshes immediately. The scheduler
// invokes this, delayed, after each utterance ends.
func (c *BlendController) ResetAll() {
	c.mu.Lock()
	head, teeth := c.head, c.teeth
	c.mu.Unlock()
	if head != nil {
		head.Reset()
	}
	if teeth != nil {
		teeth.Reset()
	}
}

// Weights returns copies of the current head and teeth weight vectors for
// the renderer. The teeth slice is nil when the model has no teeth mesh.
func (c *BlendController) Weights() (headWeights, teethWeights []float32) {
	c.mu.Lock()
	head, teeth := c.head, c.teeth
	c.mu.Unlock()
	if head != nil {
		headWeights = head.Weights()
	}
	if teeth != nil {
		teethWeights = teeth.Weights()
	}
	return headWeights, teethWeights
}

func decayAll(head, teeth *model.MorphMesh) {
	for _, name := range head.TargetNames() {
		if idx, ok := head.Index(name); ok {
			head.SetWeight(idx, lerp(head.Weight(idx), 0, releaseSmoothing))
		}
		if teeth != nil {
			if ti, ok := teeth.Index(name); ok {
				teeth.SetWeight(ti, lerp(teeth.Weight(ti), 0, releaseSmoothing))
			}
		}
	}
}

func lerp(current, target, t float32) float32 {
	return current + (target-current)*t
}
