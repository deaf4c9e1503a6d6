// Package pinger measures round-trip latency and packet loss over a peer's
// UDP data channel, generalizing moho.Packet's sequence/ack bookkeeping
// from Forged Alliance's resend protocol to simple RTT sampling.
package pinger

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"netplay-adapter/applog"
	"netplay-adapter/protocol"
)

// DatagramSender is the narrow slice of transport.SmartSocket the pinger
// needs: fire a datagram at the peer without knowing how it gets there
// (direct UDP or relay).
type DatagramSender interface {
	SendDatagram(d protocol.Datagram) error
}

// Pinger periodically sends Ping datagrams and tracks RTT/loss stats from
// the matching Pong replies, which OnPong feeds in as they're received by
// whatever owns the socket read loop.
type Pinger struct {
	sender   DatagramSender
	interval time.Duration
	timeout  time.Duration

	mu         sync.Mutex
	nextSeq    uint32
	pending    map[uint32]time.Time
	stats      runningStats
	sent       uint32
	recv       uint32
	lastPongAt time.Time
}

func NewPinger(sender DatagramSender, interval, timeout time.Duration) *Pinger {
	return &Pinger{
		sender:     sender,
		interval:   interval,
		timeout:    timeout,
		pending:    make(map[uint32]time.Time),
		lastPongAt: time.Now(),
	}
}

// Run sends a Ping every interval until ctx is cancelled, pruning any
// pings that never got a Pong within timeout so they count toward loss.
func (p *Pinger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sendPing()
			p.prune()
		}
	}
}

// RunN sends exactly n Ping datagrams at interval, then waits one more
// timeout window for straggling Pongs before pruning and returning, so
// Stats afterward reflects a fixed probing window rather than however many
// pings a deadline happened to fit.
func (p *Pinger) RunN(ctx context.Context, n int) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	sent := 0
	for sent < n {
		select {
		case <-ctx.Done():
			p.prune()
			return
		case <-ticker.C:
			p.sendPing()
			sent++
		}
	}

	select {
	case <-ctx.Done():
	case <-time.After(p.timeout):
	}
	p.prune()
}

func (p *Pinger) sendPing() {
	p.mu.Lock()
	seq := p.nextSeq
	p.nextSeq++
	now := time.Now()
	p.pending[seq] = now
	p.sent++
	p.mu.Unlock()

	d := protocol.Datagram{Type: protocol.DatagramPing, Sequence: seq, SentAtUnixNs: now.UnixNano()}
	if err := p.sender.SendDatagram(d); err != nil {
		applog.Warn("pinger: failed to send ping", zap.Error(err))
	}
}

// OnPong records the RTT for a Pong matching a still-pending Ping. Pongs
// for unknown or already-timed-out sequences are ignored.
func (p *Pinger) OnPong(d protocol.Datagram) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sentAt, ok := p.pending[d.Sequence]
	if !ok {
		return
	}
	delete(p.pending, d.Sequence)

	rttMs := float64(time.Since(sentAt).Microseconds()) / 1000.0
	p.stats.add(rttMs)
	p.recv++
	p.lastPongAt = time.Now()
}

// LastPongAt reports when the most recent Pong was recorded, letting a
// caller detect a data channel that's gone quiet without polling Stats.
func (p *Pinger) LastPongAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPongAt
}

// OnPing answers an incoming Ping from the peer with a Pong carrying the
// same sequence and original timestamp back.
func (p *Pinger) OnPing(d protocol.Datagram) error {
	pong := protocol.Datagram{Type: protocol.DatagramPong, Sequence: d.Sequence, SentAtUnixNs: d.SentAtUnixNs}
	return p.sender.SendDatagram(pong)
}

func (p *Pinger) prune() {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-p.timeout)
	for seq, sentAt := range p.pending {
		if sentAt.Before(cutoff) {
			delete(p.pending, seq)
		}
	}
}

// Stats snapshots the locally measured latency/loss so far.
func (p *Pinger) Stats() protocol.PingStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	loss := 0.0
	if p.sent > 0 {
		loss = 100 * (1 - float64(p.recv)/float64(p.sent))
	}
	return protocol.PingStats{
		Latency:    p.stats.finalize(),
		PacketLoss: loss,
	}
}

// runningStats accumulates mean/variance/worst incrementally (Welford's
// algorithm) so MergeStats can combine two independently accumulated
// windows without retaining raw samples.
type runningStats struct {
	count uint32
	mean  float64
	m2    float64
	worst float64
}

func (s *runningStats) add(x float64) {
	s.count++
	delta := x - s.mean
	s.mean += delta / float64(s.count)
	delta2 := x - s.mean
	s.m2 += delta * delta2
	if x > s.worst {
		s.worst = x
	}
}

func (s runningStats) finalize() protocol.LatencyStats {
	if s.count == 0 {
		return protocol.LatencyStats{}
	}
	variance := s.m2 / float64(s.count)
	stdDev := math.Sqrt(variance)
	stdErr := stdDev / math.Sqrt(float64(s.count))
	return protocol.LatencyStats{
		MeanMs:   s.mean,
		WorstMs:  s.worst,
		StdDevMs: stdDev,
		StdErrMs: stdErr,
		Samples:  s.count,
	}
}

// MergeStats combines two independently measured PingStats — typically the
// locally measured window and the window the remote peer reported — into
// one. It is commutative: MergeStats(a, b) == MergeStats(b, a).
func MergeStats(a, b protocol.PingStats) protocol.PingStats {
	return protocol.PingStats{
		Latency:    mergeLatency(a.Latency, b.Latency),
		PacketLoss: (a.PacketLoss + b.PacketLoss) / 2,
	}
}

// mergeLatency implements Chan et al.'s parallel-variance combination so
// two Welford-accumulated windows merge into the stats a single pass over
// the union of their samples would have produced.
func mergeLatency(a, b protocol.LatencyStats) protocol.LatencyStats {
	if a.Samples == 0 {
		return b
	}
	if b.Samples == 0 {
		return a
	}

	na, nb := float64(a.Samples), float64(b.Samples)
	n := na + nb
	delta := b.MeanMs - a.MeanMs
	mean := a.MeanMs + delta*nb/n

	m2a := a.StdDevMs * a.StdDevMs * na
	m2b := b.StdDevMs * b.StdDevMs * nb
	m2 := m2a + m2b + delta*delta*na*nb/n

	variance := m2 / n
	stdDev := math.Sqrt(variance)
	stdErr := stdDev / math.Sqrt(n)

	worst := a.WorstMs
	if b.WorstMs > worst {
		worst = b.WorstMs
	}

	return protocol.LatencyStats{
		MeanMs:   mean,
		WorstMs:  worst,
		StdDevMs: stdDev,
		StdErrMs: stdErr,
		Samples:  a.Samples + b.Samples,
	}
}
