// Package spectator fans the negotiated config and live game-state
// snapshots out to any number of spectators, generalizing
// webrtc.PeerManager's peer-map-plus-broadcast shape from WebRTC data
// channels onto plain control-channel connections.
package spectator

import (
	"sync"

	"go.uber.org/zap"

	"netplay-adapter/applog"
	"netplay-adapter/protocol"
)

// maxSpectators mirrors the teacher's maxLobbyPeers as the default
// capacity hint for the spectator map; like maxLobbyPeers it does not cap
// the map's actual size.
const maxSpectators = 30

// Sender is the narrow interface a spectator connection exposes to the
// hub — a transport.ControlChannel satisfies this.
type Sender interface {
	Send(msg protocol.Message) error
}

// Hub tracks connected spectators and queues a backlog of state updates
// for any spectator that joins mid-match, flushing the backlog to them
// once and then switching to live broadcast.
type Hub struct {
	mu         sync.Mutex
	spectators map[string]Sender
	backlog    []protocol.Message
	maxBacklog int
}

func NewHub(maxBacklog int) *Hub {
	return &Hub{
		spectators: make(map[string]Sender, maxSpectators),
		maxBacklog: maxBacklog,
	}
}

// Join registers a spectator under id and flushes the accumulated backlog
// to it before any future Broadcast calls reach it, so a late joiner sees
// the run of state updates it missed instead of jumping in mid-stream.
func (h *Hub) Join(id string, sender Sender) error {
	h.mu.Lock()
	backlog := append([]protocol.Message(nil), h.backlog...)
	h.spectators[id] = sender
	count := len(h.spectators)
	h.mu.Unlock()

	applog.Info("Spectator joined", zap.String("id", id), zap.Int("count", count))

	for _, msg := range backlog {
		if err := sender.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hub) Leave(id string) {
	h.mu.Lock()
	delete(h.spectators, id)
	count := len(h.spectators)
	h.mu.Unlock()
	applog.Info("Spectator left", zap.String("id", id), zap.Int("count", count))
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.spectators)
}

// Broadcast sends msg to every connected spectator and appends it to the
// backlog (capped at maxBacklog) for anyone who joins afterward. A
// spectator whose Send fails is logged and skipped rather than dropping
// the whole broadcast.
func (h *Hub) Broadcast(msg protocol.Message) {
	h.mu.Lock()
	h.backlog = append(h.backlog, msg)
	if len(h.backlog) > h.maxBacklog {
		h.backlog = h.backlog[len(h.backlog)-h.maxBacklog:]
	}
	targets := make(map[string]Sender, len(h.spectators))
	for id, s := range h.spectators {
		targets[id] = s
	}
	h.mu.Unlock()

	for id, sender := range targets {
		if err := sender.Send(msg); err != nil {
			applog.Warn("Failed to broadcast to spectator", zap.String("id", id), zap.Error(err))
		}
	}
}
