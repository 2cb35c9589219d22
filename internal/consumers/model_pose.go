package consumers

import (
	"sync"

	"github.com/relabs-tech/head_tracker/internal/orientation"
)

// PoseTarget is anything with a settable world transform, typically a node
// in a 3D scene.
type PoseTarget interface {
	SetTransform(orientation.Transform)
}

// ModelPose drives a model from head orientation. The model keeps its own
// initial pose; each sample sets transform·initial.
type ModelPose struct {
	target  PoseTarget
	initial orientation.Transform
}

func NewModelPose(target PoseTarget, initial orientation.Transform) *ModelPose {
	return &ModelPose{target: target, initial: initial}
}

func (m *ModelPose) ReceiveOrientation(t orientation.Transform) {
	m.target.SetTransform(t.Mul(m.initial))
}

// LatestPose is a PoseTarget that remembers the last transform for readers
// on other goroutines.
type LatestPose struct {
	mu   sync.RWMutex
	t    orientation.Transform
	have bool
}

func (l *LatestPose) SetTransform(t orientation.Transform) {
	l.mu.Lock()
	l.t, l.have = t, true
	l.mu.Unlock()
}

// Get returns the last transform and whether one was ever set.
func (l *LatestPose) Get() (orientation.Transform, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.have {
		return orientation.Identity(), false
	}
	return l.t, true
}
