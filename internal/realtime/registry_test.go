package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_MultiDeviceLifecycle(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	first := r.RegisterConnection("u1", "deviceX", &fakeConn{})
	assert.True(t, first, "first connection brings the user online")

	first = r.RegisterConnection("u1", "deviceY", &fakeConn{})
	assert.False(t, first, "second device does not change online state")
	assert.True(t, r.IsUserOnline("u1"))

	last := r.DeregisterConnection("deviceX")
	assert.False(t, last, "another device is still live")
	assert.True(t, r.IsUserOnline("u1"))

	last = r.DeregisterConnection("deviceY")
	assert.True(t, last, "last connection takes the user offline")
	assert.False(t, r.IsUserOnline("u1"))
}

func TestRegistry_DeregisterUnknownConnection(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	assert.False(t, r.DeregisterConnection("ghost"))
}

func TestRegistry_Subscriptions(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.RegisterConnection("u1", "c1", &fakeConn{})
	r.RegisterConnection("u2", "c2", &fakeConn{})

	r.Subscribe("c1", "room1")
	r.Subscribe("c2", "room1")
	r.Subscribe("c2", "room2")

	assert.ElementsMatch(t, []string{"c1", "c2"}, r.ConnectionsInRoom("room1"))
	assert.ElementsMatch(t, []string{"c2"}, r.ConnectionsInRoom("room2"))
	assert.True(t, r.IsSubscribed("c1", "room1"))
	assert.False(t, r.IsSubscribed("c1", "room2"))

	// Unsubscribing a connection from a room it never joined is a no-op.
	r.Unsubscribe("c1", "room2")
	r.Unsubscribe("ghost", "room1")
	assert.ElementsMatch(t, []string{"c1", "c2"}, r.ConnectionsInRoom("room1"))

	r.Unsubscribe("c1", "room1")
	assert.ElementsMatch(t, []string{"c2"}, r.ConnectionsInRoom("room1"))
}

func TestRegistry_SubscribeUnknownConnectionIsIgnored(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.Subscribe("ghost", "room1")
	assert.Empty(t, r.ConnectionsInRoom("room1"))
}

func TestRegistry_DeregisterRemovesSubscriptions(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.RegisterConnection("u1", "c1", &fakeConn{})
	r.Subscribe("c1", "room1")
	r.Subscribe("c1", "room2")

	r.DeregisterConnection("c1")
	assert.Empty(t, r.ConnectionsInRoom("room1"))
	assert.Empty(t, r.ConnectionsInRoom("room2"))
}

func TestRegistry_OnlineUserIDs(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.RegisterConnection("u1", "c1", &fakeConn{})
	r.RegisterConnection("u1", "c2", &fakeConn{})
	r.RegisterConnection("u2", "c3", &fakeConn{})

	assert.ElementsMatch(t, []string{"u1", "u2"}, r.OnlineUserIDs())
}
