package realtime

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeConn struct {
	mu       sync.Mutex
	payloads []interface{}
	failWith error
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.payloads = append(f.payloads, v)
	return nil
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func TestBroadcaster_ToRoomWithExclusion(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	b := NewBroadcaster(r)

	sender := &fakeConn{}
	peer := &fakeConn{}
	outside := &fakeConn{}
	r.RegisterConnection("u1", "sender", sender)
	r.RegisterConnection("u2", "peer", peer)
	r.RegisterConnection("u3", "outside", outside)
	r.Subscribe("sender", "room1")
	r.Subscribe("peer", "room1")

	b.ToRoom("room1", "typing", "sender")
	assert.Equal(t, 0, sender.count(), "excluded connection gets nothing")
	assert.Equal(t, 1, peer.count())
	assert.Equal(t, 0, outside.count(), "non-subscribers get nothing")

	// Without exclusion the sender is included.
	b.ToRoom("room1", "message", "")
	assert.Equal(t, 1, sender.count())
	assert.Equal(t, 2, peer.count())
}

func TestBroadcaster_ToUserReachesEveryDevice(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	b := NewBroadcaster(r)

	deviceX := &fakeConn{}
	deviceY := &fakeConn{}
	other := &fakeConn{}
	r.RegisterConnection("u1", "x", deviceX)
	r.RegisterConnection("u1", "y", deviceY)
	r.RegisterConnection("u2", "z", other)

	b.ToUser("u1", "notification")
	assert.Equal(t, 1, deviceX.count())
	assert.Equal(t, 1, deviceY.count())
	assert.Equal(t, 0, other.count())
}

func TestBroadcaster_Global(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	b := NewBroadcaster(r)

	a := &fakeConn{}
	c := &fakeConn{}
	r.RegisterConnection("u1", "a", a)
	r.RegisterConnection("u2", "c", c)

	b.Global("presence")
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, c.count())
}

func TestBroadcaster_FailingConnDoesNotAbortDelivery(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	b := NewBroadcaster(r)

	broken := &fakeConn{failWith: errors.New("broken pipe")}
	healthy := &fakeConn{}
	r.RegisterConnection("u1", "broken", broken)
	r.RegisterConnection("u2", "healthy", healthy)
	r.Subscribe("broken", "room1")
	r.Subscribe("healthy", "room1")

	b.ToRoom("room1", "message", "")
	assert.Equal(t, 1, healthy.count(), "delivery continues past failing connections")
}
