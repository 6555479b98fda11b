package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_Groups(t *testing.T) {
	// Given
	hub := NewHub()
	c1 := NewClient(nil, 4)
	c2 := NewClient(nil, 4)
	hub.Register(c1)
	hub.Register(c2)

	// When
	hub.Join("ROOM01", c1)
	hub.Join("ROOM01", c2)
	hub.Join("ROOM02", c1)

	// Then
	assert.Equal(t, 2, hub.GroupSize("ROOM01"))
	assert.True(t, hub.InRoom("ROOM02", c1.ID))
	assert.False(t, hub.InRoom("ROOM02", c2.ID))
	assert.Equal(t, []string{"ROOM01", "ROOM02"}, hub.RoomsOf(c1.ID))

	hub.Leave("ROOM01", c1.ID)
	assert.Equal(t, []string{"ROOM02"}, hub.RoomsOf(c1.ID))
	assert.Equal(t, 1, hub.GroupSize("ROOM01"))
}

func TestHub_JoinIgnoresUnregisteredClient(t *testing.T) {
	hub := NewHub()
	c1 := NewClient(nil, 4)

	hub.Join("ROOM01", c1)

	assert.Equal(t, 0, hub.GroupSize("ROOM01"))
	assert.Empty(t, hub.RoomsOf(c1.ID))
}

func TestHub_BroadcastRoom(t *testing.T) {
	// Given
	hub := NewHub()
	c1 := NewClient(nil, 4)
	c2 := NewClient(nil, 4)
	c3 := NewClient(nil, 4)
	for _, c := range []*Client{c1, c2, c3} {
		hub.Register(c)
	}
	hub.Join("ROOM01", c1)
	hub.Join("ROOM01", c2)

	// When
	hub.BroadcastRoom("ROOM01", []byte("hello"), c1.ID)

	// Then
	assert.Len(t, c1.send, 0)
	require.Len(t, c2.send, 1)
	assert.Equal(t, []byte("hello"), <-c2.send)
	assert.Len(t, c3.send, 0)
}

func TestHub_BroadcastAll(t *testing.T) {
	hub := NewHub()
	c1 := NewClient(nil, 4)
	c2 := NewClient(nil, 4)
	hub.Register(c1)
	hub.Register(c2)

	hub.BroadcastAll([]byte("hello"), c2.ID)

	assert.Len(t, c1.send, 1)
	assert.Len(t, c2.send, 0)
}

func TestHub_Dissolve(t *testing.T) {
	hub := NewHub()
	c1 := NewClient(nil, 4)
	c2 := NewClient(nil, 4)
	hub.Register(c1)
	hub.Register(c2)
	hub.Join("ROOM01", c1)
	hub.Join("ROOM01", c2)
	hub.Join("ROOM02", c2)

	members := hub.Dissolve("ROOM01")

	assert.ElementsMatch(t, []*Client{c1, c2}, members)
	assert.Equal(t, 0, hub.GroupSize("ROOM01"))
	assert.Empty(t, hub.RoomsOf(c1.ID))
	assert.Equal(t, []string{"ROOM02"}, hub.RoomsOf(c2.ID))
}

func TestHub_Unregister(t *testing.T) {
	// Given
	hub := NewHub()
	c1 := NewClient(nil, 4)
	hub.Register(c1)
	hub.Join("ROOM01", c1)

	// When
	hub.Unregister(c1)
	hub.Unregister(c1)

	// Then
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.GroupSize("ROOM01"))
	assert.False(t, c1.Send([]byte("late")))
	_, open := <-c1.send
	assert.False(t, open)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	c1 := NewClient(nil, 1)
	hub.Register(c1)
	hub.Join("ROOM01", c1)

	hub.BroadcastRoom("ROOM01", []byte("one"), "")
	hub.BroadcastRoom("ROOM01", []byte("two"), "")

	assert.False(t, c1.Send([]byte("three")))
	assert.Equal(t, []byte("one"), <-c1.send)
	_, open := <-c1.send
	assert.False(t, open)
}
