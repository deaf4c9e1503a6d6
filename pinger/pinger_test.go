package pinger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"netplay-adapter/pinger"
	"netplay-adapter/protocol"
)

type loopbackSender struct {
	mu  sync.Mutex
	p   *pinger.Pinger
	out []protocol.Datagram
}

func (l *loopbackSender) SendDatagram(d protocol.Datagram) error {
	l.mu.Lock()
	l.out = append(l.out, d)
	l.mu.Unlock()

	if d.Type == protocol.DatagramPing {
		return l.p.OnPing(d)
	}
	return nil
}

func TestPinger_PingPongRoundTrip(t *testing.T) {
	sender := &loopbackSender{}
	p := pinger.NewPinger(sender, 5*time.Millisecond, time.Second)
	sender.p = p

	responder := pinger.NewPinger(&directSender{target: p}, time.Hour, time.Second)
	_ = responder

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	stats := p.Stats()
	assert.GreaterOrEqual(t, stats.Latency.Samples, uint32(1))
}

// directSender feeds Pongs straight back into the originating pinger,
// modeling a peer that always answers immediately.
type directSender struct {
	target *pinger.Pinger
}

func (d *directSender) SendDatagram(dg protocol.Datagram) error {
	if dg.Type == protocol.DatagramPong {
		d.target.OnPong(dg)
	}
	return nil
}

func TestMergeStats_Commutative(t *testing.T) {
	a := protocol.PingStats{
		Latency:    protocol.LatencyStats{MeanMs: 30, WorstMs: 60, StdDevMs: 4, StdErrMs: 1, Samples: 100},
		PacketLoss: 2,
	}
	b := protocol.PingStats{
		Latency:    protocol.LatencyStats{MeanMs: 45, WorstMs: 90, StdDevMs: 6, StdErrMs: 1.5, Samples: 50},
		PacketLoss: 5,
	}

	ab := pinger.MergeStats(a, b)
	ba := pinger.MergeStats(b, a)

	assert.InDelta(t, ab.Latency.MeanMs, ba.Latency.MeanMs, 1e-9)
	assert.InDelta(t, ab.Latency.StdDevMs, ba.Latency.StdDevMs, 1e-9)
	assert.InDelta(t, ab.Latency.WorstMs, ba.Latency.WorstMs, 1e-9)
	assert.Equal(t, ab.Latency.Samples, ba.Latency.Samples)
	assert.InDelta(t, ab.PacketLoss, ba.PacketLoss, 1e-9)
}

func TestMergeStats_EmptySideIsIdentity(t *testing.T) {
	a := protocol.PingStats{
		Latency:    protocol.LatencyStats{MeanMs: 30, WorstMs: 60, StdDevMs: 4, StdErrMs: 1, Samples: 100},
		PacketLoss: 2,
	}
	empty := protocol.PingStats{}

	merged := pinger.MergeStats(a, empty)
	assert.Equal(t, a.Latency, merged.Latency)
}
