package consumers

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/relabs-tech/head_tracker/internal/orientation"
	"github.com/relabs-tech/head_tracker/internal/pipeline"
)

// Readout writes a text rendition of the orientation and connection status.
// With every > 1 only one sample in every is printed.
type Readout struct {
	mu     sync.Mutex
	w      io.Writer
	every  int
	count  int
	status pipeline.Status
}

func NewReadout(w io.Writer, every int) *Readout {
	if every < 1 {
		every = 1
	}
	return &Readout{w: w, every: every}
}

func (r *Readout) ReceiveOrientation(t orientation.Transform) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.count++
	if (r.count-1)%r.every != 0 {
		return
	}
	if _, err := io.WriteString(r.w, FormatReadout(t, r.status)); err != nil {
		Logf("readout: %v", err)
	}
}

func (r *Readout) StatusChanged(s pipeline.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status = s
	if _, err := fmt.Fprintf(r.w, "[STATUS] %s\n", s); err != nil {
		Logf("readout: %v", err)
	}
}

// FormatReadout renders the rotation rows followed by roll/pitch/yaw.
func FormatReadout(t orientation.Transform, s pipeline.Status) string {
	var b strings.Builder
	m := t.Linear()
	for i, row := range m {
		fmt.Fprintf(&b, "  [% .3f % .3f % .3f]", row[0], row[1], row[2])
		if i < len(m)-1 {
			b.WriteByte('\n')
		}
	}
	p := orientation.PoseFromTransform(t)
	fmt.Fprintf(&b, "\n[POSE]  ROLL=%6.2f  PITCH=%6.2f  YAW=%6.2f  (%s)\n", p.Roll, p.Pitch, p.Yaw, s)
	return b.String()
}
