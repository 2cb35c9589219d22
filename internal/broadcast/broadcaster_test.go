package broadcast

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/head_tracker/internal/orientation"
)

// recorder is a fake consumer that logs every delivery into a shared trace.
type recorder struct {
	name  string
	trace *[]string
	got   []orientation.Transform
}

func (r *recorder) ReceiveOrientation(t orientation.Transform) {
	*r.trace = append(*r.trace, r.name)
	r.got = append(r.got, t)
}

func muteLogs(t *testing.T) {
	t.Helper()
	prev := Logf
	Logf = func(string, ...interface{}) {}
	t.Cleanup(func() { Logf = prev })
}

func TestBroadcaster_FanOutInRegistrationOrder(t *testing.T) {
	b := New()
	var trace []string
	consumers := []*recorder{
		{name: "pose", trace: &trace},
		{name: "audio", trace: &trace},
		{name: "readout", trace: &trace},
	}
	for _, c := range consumers {
		b.Register(c)
	}

	tr := orientation.RotationY(math.Pi / 3)
	b.Publish(tr)

	if diff := cmp.Diff([]string{"pose", "audio", "readout"}, trace); diff != "" {
		t.Errorf("delivery order mismatch (-want +got):\n%s", diff)
	}
	for _, c := range consumers {
		require.Len(t, c.got, 1, c.name)
		assert.Equal(t, tr, c.got[0])
	}
}

func TestBroadcaster_NoReplayForLateRegistrants(t *testing.T) {
	b := New()
	var trace []string
	early := &recorder{name: "early", trace: &trace}
	b.Register(early)

	b.Publish(orientation.Identity())

	late := &recorder{name: "late", trace: &trace}
	b.Register(late)
	assert.Empty(t, late.got)

	b.Publish(orientation.RotationX(0.1))
	assert.Len(t, early.got, 2)
	assert.Len(t, late.got, 1)
	assert.Equal(t, orientation.RotationX(0.1), late.got[0])
}

func TestBroadcaster_Unregister(t *testing.T) {
	b := New()
	var trace []string
	a := &recorder{name: "a", trace: &trace}
	c := &recorder{name: "c", trace: &trace}

	ha := b.Register(a)
	hc := b.Register(c)
	require.NotEqual(t, ha, hc)
	require.Equal(t, 2, b.Len())

	assert.True(t, b.Unregister(ha))
	assert.False(t, b.Unregister(ha), "second unregister is a no-op")
	assert.Equal(t, 1, b.Len())

	b.Publish(orientation.Identity())
	assert.Empty(t, a.got)
	assert.Len(t, c.got, 1)
}

func TestBroadcaster_RegisterDuringPublish(t *testing.T) {
	b := New()
	var added []orientation.Transform
	calls := 0

	b.Register(ConsumerFunc(func(orientation.Transform) {
		calls++
		b.Register(ConsumerFunc(func(tr orientation.Transform) {
			added = append(added, tr)
		}))
	}))

	b.Publish(orientation.Identity())
	assert.Equal(t, 1, calls)
	assert.Empty(t, added, "consumer registered mid-publish must not see that sample")
	assert.Equal(t, 2, b.Len())

	b.Publish(orientation.Identity())
	assert.Len(t, added, 1)
}

func TestBroadcaster_UnregisterDuringPublish(t *testing.T) {
	b := New()
	var second int
	var h Handle
	b.Register(ConsumerFunc(func(orientation.Transform) {
		b.Unregister(h)
	}))
	h = b.Register(ConsumerFunc(func(orientation.Transform) {
		second++
	}))

	b.Publish(orientation.Identity())
	assert.Equal(t, 1, second, "in-flight publish uses its snapshot")

	b.Publish(orientation.Identity())
	assert.Equal(t, 1, second)
}

func TestBroadcaster_PanickingConsumerIsIsolated(t *testing.T) {
	muteLogs(t)
	b := New()
	b.Register(ConsumerFunc(func(orientation.Transform) {
		panic("boom")
	}))
	var got int
	b.Register(ConsumerFunc(func(orientation.Transform) {
		got++
	}))

	assert.NotPanics(t, func() { b.Publish(orientation.Identity()) })
	assert.Equal(t, 1, got)
}

func TestBroadcaster_PublishWithoutConsumers(t *testing.T) {
	b := New()
	assert.NotPanics(t, func() { b.Publish(orientation.Identity()) })
	assert.Zero(t, b.Len())
}
