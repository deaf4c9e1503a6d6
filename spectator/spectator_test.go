package spectator_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"netplay-adapter/protocol"
	"netplay-adapter/spectator"
)

type recordingSender struct {
	mu  sync.Mutex
	got []protocol.Message
}

func (r *recordingSender) Send(msg protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, msg)
	return nil
}

func (r *recordingSender) messages() []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Message(nil), r.got...)
}

func TestHub_LateJoinerGetsBacklogThenLive(t *testing.T) {
	hub := spectator.NewHub(10)

	hub.Broadcast(protocol.MenuIndex{Index: 1})
	hub.Broadcast(protocol.MenuIndex{Index: 2})

	sender := &recordingSender{}
	assert.NoError(t, hub.Join("late", sender))

	hub.Broadcast(protocol.MenuIndex{Index: 3})

	assert.Equal(t, []protocol.Message{
		protocol.MenuIndex{Index: 1},
		protocol.MenuIndex{Index: 2},
		protocol.MenuIndex{Index: 3},
	}, sender.messages())
}

func TestHub_BacklogIsCapped(t *testing.T) {
	hub := spectator.NewHub(2)

	hub.Broadcast(protocol.MenuIndex{Index: 1})
	hub.Broadcast(protocol.MenuIndex{Index: 2})
	hub.Broadcast(protocol.MenuIndex{Index: 3})

	sender := &recordingSender{}
	assert.NoError(t, hub.Join("late", sender))

	assert.Equal(t, []protocol.Message{
		protocol.MenuIndex{Index: 2},
		protocol.MenuIndex{Index: 3},
	}, sender.messages())
}

func TestHub_LeaveRemovesSpectator(t *testing.T) {
	hub := spectator.NewHub(10)
	sender := &recordingSender{}
	assert.NoError(t, hub.Join("a", sender))
	assert.Equal(t, 1, hub.Count())

	hub.Leave("a")
	assert.Equal(t, 0, hub.Count())
}
