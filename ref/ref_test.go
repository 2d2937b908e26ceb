package ref

import (
	"reflect"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	name string
}

// closable reports its own liveness through the Alive interface.
type closable struct {
	closed bool
}

func (c *closable) Alive() bool { return !c.closed }

func TestWeak_Live(t *testing.T) {
	target := &payload{name: "live"}
	r := Weak(target, nil)

	got, ok := r.Target()
	require.True(t, ok, "expected a live target")
	assert.Same(t, target, got)
	assert.Equal(t, reflect.TypeOf(target), r.Kind())
}

func TestWeak_NilTarget(t *testing.T) {
	r := Weak[payload](nil, nil)

	_, ok := r.Target()
	assert.False(t, ok, "a nil target is dead from the start")
	assert.Equal(t, reflect.TypeOf((*payload)(nil)), r.Kind(), "kind metadata survives without a referent")
}

func TestWeak_Reclaimed(t *testing.T) {
	r := func() Ref {
		target := &payload{name: "doomed"}
		r := Weak(target, nil)

		got, ok := r.Target()
		require.True(t, ok, "expected the target live before reclamation")
		require.Same(t, target, got)
		runtime.KeepAlive(target)
		return r
	}()

	// Nothing references the payload anymore; the weak pointer must not
	// keep it alive.
	runtime.GC()
	runtime.GC()

	_, ok := r.Target()
	assert.False(t, ok, "expected the ref to go stale after reclamation")
	assert.Equal(t, reflect.TypeOf(&payload{}), r.Kind(), "kind metadata survives reclamation")
}

func TestWeak_ProbeOverridesReferenceLiveness(t *testing.T) {
	probe := NewProbe()
	probe.Bind(reflect.TypeOf(&payload{}), func(target any) bool {
		return target.(*payload).name != "dead"
	})

	healthy := &payload{name: "ok"}
	r := Weak(healthy, probe)
	_, ok := r.Target()
	assert.True(t, ok)

	// The object is still reachable, yet the host predicate declares it
	// torn down.
	healthy.name = "dead"
	_, ok = r.Target()
	assert.False(t, ok, "expected the probe to veto a reachable target")
}

func TestPinned(t *testing.T) {
	target := &payload{name: "pinned"}
	r := Pinned(target, nil)

	got, ok := r.Target()
	require.True(t, ok)
	assert.Same(t, target, got)
	assert.Equal(t, reflect.TypeOf(target), r.Kind())
}

func TestPinned_NilTarget(t *testing.T) {
	r := Pinned(nil, nil)

	_, ok := r.Target()
	assert.False(t, ok)
	assert.Nil(t, r.Kind())
}

func TestPinned_AliveSelfReport(t *testing.T) {
	c := &closable{}
	r := Pinned(c, nil)

	_, ok := r.Target()
	require.True(t, ok, "expected an open closable to be live")

	c.closed = true
	_, ok = r.Target()
	assert.False(t, ok, "expected a closed closable to be dead")
}

func TestFree(t *testing.T) {
	r := Free()

	got, ok := r.Target()
	assert.True(t, ok, "a free ref is always live")
	assert.Nil(t, got, "a free ref has no referent")
	assert.Nil(t, r.Kind())
}

func TestProbe_Check(t *testing.T) {
	probe := NewProbe()
	probe.Bind(reflect.TypeOf(&payload{}), func(target any) bool {
		return target.(*payload).name != "torn down"
	})

	assert.True(t, probe.Check(&payload{name: "fine"}))
	assert.False(t, probe.Check(&payload{name: "torn down"}))
	assert.True(t, probe.Check("unknown kind"), "kinds without a predicate are usable")
}

func TestProbe_CheckAliveFirst(t *testing.T) {
	probe := NewProbe()

	// No predicate bound for closable; the self-report alone decides.
	c := &closable{}
	assert.True(t, probe.Check(c))

	c.closed = true
	assert.False(t, probe.Check(c))

	// A predicate cannot resurrect a target whose self-report says dead.
	probe.Bind(reflect.TypeOf(&closable{}), func(any) bool { return true })
	assert.False(t, probe.Check(c))
}

func TestProbe_BindReplacesAndRemoves(t *testing.T) {
	kind := reflect.TypeOf(&payload{})
	probe := NewProbe()

	probe.Bind(kind, func(any) bool { return false })
	assert.False(t, probe.Check(&payload{}))

	// Rebinding replaces the predicate.
	probe.Bind(kind, func(any) bool { return true })
	assert.True(t, probe.Check(&payload{}))

	// Binding nil removes it.
	probe.Bind(kind, nil)
	assert.True(t, probe.Check(&payload{}))
}

func TestProbe_NilSafety(t *testing.T) {
	var probe *Probe

	assert.True(t, probe.Check(&payload{}), "a nil probe reports every target usable")
	assert.False(t, probe.Check(&closable{closed: true}), "a nil probe still honors Alive")

	// Bind on a nil probe must not panic.
	probe.Bind(reflect.TypeOf(&payload{}), func(any) bool { return false })
}

func TestProbe_ConcurrentAccess(t *testing.T) {
	probe := NewProbe()
	kind := reflect.TypeOf(&payload{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			probe.Bind(kind, func(any) bool { return true })
		}
	}()
	for i := 0; i < 1000; i++ {
		probe.Check(&payload{})
	}
	<-done
}
