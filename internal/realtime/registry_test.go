package realtime

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NuoNuo720/TheNuo2/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	events []models.Event
	fail   bool
	closed bool
}

func (c *fakeConn) WriteEvent(event models.Event, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.events = append(c.events, event)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Event(nil), c.events...)
}

type transitionRecord struct {
	userID models.UserID
	online bool
}

type presenceRecorder struct {
	mu          sync.Mutex
	transitions []transitionRecord
}

func (p *presenceRecorder) Transition(userID models.UserID, online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transitions = append(p.transitions, transitionRecord{userID, online})
}

func (p *presenceRecorder) all() []transitionRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]transitionRecord(nil), p.transitions...)
}

func newTestRegistry() (*Registry, *presenceRecorder) {
	r := NewRegistry(time.Second)
	p := &presenceRecorder{}
	r.BindPresence(p)
	return r, p
}

func TestMultiDeviceTransitions(t *testing.T) {
	r, p := newTestRegistry()
	h1, h2 := &fakeConn{}, &fakeConn{}

	r.Register("alice", h1)
	r.Register("alice", h2)
	r.Unregister("alice", h1)

	assert.True(t, r.IsOnline("alice"), "one handle still live")
	require.Len(t, p.all(), 1, "only the first handle triggers a transition")
	assert.Equal(t, transitionRecord{"alice", true}, p.all()[0])

	r.Unregister("alice", h2)
	assert.False(t, r.IsOnline("alice"))
	require.Len(t, p.all(), 2)
	assert.Equal(t, transitionRecord{"alice", false}, p.all()[1])
}

func TestRegisterIdempotent(t *testing.T) {
	r, p := newTestRegistry()
	h := &fakeConn{}

	r.Register("alice", h)
	r.Register("alice", h)

	out := r.Send("alice", models.NewEvent(models.EventMessageSent, "bob", "alice", nil))
	assert.True(t, out.Delivered)
	assert.Equal(t, 1, out.HandleCount, "no duplicate handle")
	assert.Len(t, p.all(), 1)
}

func TestUnregisterAbsentHandleIsNoop(t *testing.T) {
	r, p := newTestRegistry()

	h := &fakeConn{}
	r.Unregister("alice", h)
	assert.Empty(t, p.all())
	assert.False(t, r.IsOnline("alice"))
	assert.True(t, h.closed, "an unknown handle is still closed")
}

func TestSendOfflineUser(t *testing.T) {
	r, _ := newTestRegistry()

	out := r.Send("ghost", models.NewEvent(models.EventMessageSent, "bob", "ghost", nil))
	assert.False(t, out.Delivered)
	assert.Equal(t, 0, out.HandleCount)
}

func TestSendFansOutToAllHandles(t *testing.T) {
	r, _ := newTestRegistry()
	h1, h2 := &fakeConn{}, &fakeConn{}
	r.Register("alice", h1)
	r.Register("alice", h2)

	event := models.NewEvent(models.EventRequestCreated, "bob", "alice", nil)
	out := r.Send("alice", event)

	assert.True(t, out.Delivered)
	assert.Equal(t, 2, out.HandleCount)
	require.Len(t, h1.received(), 1)
	require.Len(t, h2.received(), 1)
	assert.Equal(t, event.ID, h1.received()[0].ID)
}

func TestDeadHandleIsPruned(t *testing.T) {
	r, p := newTestRegistry()
	good, bad := &fakeConn{}, &fakeConn{fail: true}
	r.Register("alice", good)
	r.Register("alice", bad)

	out := r.Send("alice", models.NewEvent(models.EventMessageSent, "bob", "alice", nil))

	assert.True(t, out.Delivered, "a failing handle never fails the send")
	assert.Equal(t, 1, out.HandleCount)
	require.Eventually(t, func() bool {
		bad.mu.Lock()
		defer bad.mu.Unlock()
		return bad.closed
	}, time.Second, 5*time.Millisecond, "dead handle is pruned")
	assert.True(t, r.IsOnline("alice"), "alice still has a live handle")
	assert.Len(t, p.all(), 1, "no offline transition while a handle survives")
}

func TestLastDeadHandleGoesOffline(t *testing.T) {
	r, p := newTestRegistry()
	bad := &fakeConn{fail: true}
	r.Register("alice", bad)

	out := r.Send("alice", models.NewEvent(models.EventMessageSent, "bob", "alice", nil))

	assert.False(t, out.Delivered)
	require.Eventually(t, func() bool {
		return !r.IsOnline("alice") && len(p.all()) == 2
	}, time.Second, 5*time.Millisecond, "pruning the last handle goes offline")
	assert.Equal(t, transitionRecord{"alice", false}, p.all()[1])
}

// gatedRecorder stalls inside offline transitions until released, so a test
// can hold a disconnect mid-flight while a reconnect races it.
type gatedRecorder struct {
	presenceRecorder
	gate chan struct{}
}

func (p *gatedRecorder) Transition(userID models.UserID, online bool) {
	if !online {
		<-p.gate
	}
	p.presenceRecorder.Transition(userID, online)
}

func TestReconnectWaitsForInFlightOffline(t *testing.T) {
	r := NewRegistry(time.Second)
	p := &gatedRecorder{gate: make(chan struct{})}
	r.BindPresence(p)

	h1 := &fakeConn{}
	r.Register("alice", h1)

	unregistered := make(chan struct{})
	go func() {
		r.Unregister("alice", h1)
		close(unregistered)
	}()

	registered := make(chan struct{})
	go func() {
		// Give the unregister goroutine time to reach the offline transition.
		time.Sleep(20 * time.Millisecond)
		r.Register("alice", &fakeConn{})
		close(registered)
	}()

	select {
	case <-registered:
		t.Fatal("reconnect finished while the offline transition was still in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(p.gate)
	<-unregistered
	<-registered

	transitions := p.all()
	require.Len(t, transitions, 3)
	assert.Equal(t, transitionRecord{"alice", false}, transitions[1])
	assert.Equal(t, transitionRecord{"alice", true}, transitions[2], "the reconnect's online lands after the stale offline")
	assert.True(t, r.IsOnline("alice"))
}

func TestRapidReconnectOrdering(t *testing.T) {
	r, p := newTestRegistry()

	for i := 0; i < 50; i++ {
		h := &fakeConn{}
		r.Register("alice", h)
		r.Unregister("alice", h)
	}

	transitions := p.all()
	require.Len(t, transitions, 100)
	for i, tr := range transitions {
		assert.Equal(t, i%2 == 0, tr.online, "transitions alternate online/offline")
	}
}
