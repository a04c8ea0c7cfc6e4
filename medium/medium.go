// Package medium implements the shared broadcast channel nodes
// transmit over: independent per-peer loss and deterministic peer
// iteration order. Propagation delay is paid by the sender before it
// calls Broadcast (the sender-side suspension spec.md §5 calls the
// "post-transmit propagation delay"); the medium itself adds none, it
// only rolls loss and hands delivery to the scheduler as a fresh task.
package medium

import (
	"math/rand"

	"github.com/zefrenchwan/ehwsn-sim/scheduler"
)

// Kind identifies which of the three packet shapes a Packet carries.
type Kind uint8

const (
	KindDISC Kind = iota
	KindSYNC
	KindACK
)

// Packet is the single wire-level record the medium transports. To is
// nil for a broadcast DISC; every other kind is always directed.
type Packet struct {
	Kind         Kind
	From         int
	To           *int
	SenderTimeMs int64
}

// Receiver is implemented by anything the medium can deliver packets
// to. Receiving reports whether the peer's radio is currently in a
// state where it would accept a delivery; the medium consults it at
// the moment a packet would arrive, not at broadcast time.
type Receiver interface {
	ID() int
	Receiving() bool
	Deliver(packet Packet)
}

// Medium is the registered set of peers and the loss model applied to
// every broadcast.
type Medium struct {
	sched *scheduler.Scheduler
	rng   *rand.Rand

	lossProb float64

	peers []Receiver
}

// New creates a Medium driven by sched's virtual clock, using rng for
// every loss roll (callers own determinism by seeding rng themselves).
func New(sched *scheduler.Scheduler, rng *rand.Rand, lossProb float64) *Medium {
	return &Medium{sched: sched, rng: rng, lossProb: lossProb}
}

// Register adds a peer to the medium. Peers are iterated on broadcast
// in registration order, so that order is the single source of
// determinism for same-timestamp delivery ordering.
func (m *Medium) Register(r Receiver) {
	m.peers = append(m.peers, r)
}

// Broadcast delivers packet from the node with id senderID to every
// other registered peer, applying an independent loss roll per peer.
// Survivors are scheduled as a new receive task at the medium's
// current virtual time, so delivery is still serialized through the
// scheduler rather than invoked inline, but carries no extra latency
// beyond what the sender already paid before calling Broadcast.
func (m *Medium) Broadcast(senderID int, packet Packet) {
	now := m.sched.Now()
	for _, peer := range m.peers {
		if peer.ID() == senderID {
			continue
		}
		if m.rng.Float64() < m.lossProb {
			continue
		}
		p := peer
		m.sched.At(now, func() {
			if !p.Receiving() {
				return
			}
			p.Deliver(packet)
		})
	}
}
