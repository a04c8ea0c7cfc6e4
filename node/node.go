// Package node implements the per-node protocol state machine: the
// charge/listen/transmit/listen cycle, DISC/SYNC/ACK reception, the
// neighbor table, and the clock-drift offset applied to local time.
package node

import (
	"math"
	"math/rand"

	"github.com/zefrenchwan/ehwsn-sim/energy"
	"github.com/zefrenchwan/ehwsn-sim/kpi"
	"github.com/zefrenchwan/ehwsn-sim/medium"
	"github.com/zefrenchwan/ehwsn-sim/scheduler"
)

// Class distinguishes the two power tiers spec.md §3 assigns by id
// range: low-powered nodes draw illuminance from the configured low
// light range, high-powered nodes from the high light range.
type Class int

const (
	LowPower Class = iota
	HighPower
)

// RadioState is the node's current activity; transitions happen only
// at the points spec.md §4.4 names.
type RadioState int

const (
	StateIdle RadioState = iota
	StateReceiving
	StateTransmitting
	StateDecoding
)

// Interrupt reasons delivered to a suspended listen window. Any reason
// means "end the wait early without failure" — handlers never branch
// on which one fired, they exist purely for observability.
const (
	ReasonDiscovered   scheduler.Reason = "discovered"
	ReasonAckSent      scheduler.Reason = "ack_sent"
	ReasonAckReceived  scheduler.Reason = "ack_received"
)

// Constants bundles the timing/energy parameters a node's cycle logic
// needs. The sim package derives these from simconfig.Config when it
// assembles the network.
type Constants struct {
	EReceive, ETx, ERx float64

	PTTimeMs int64

	ListenTimeMinMs, ListenTimeMaxMs int64

	SyncIntervalMs        int64
	SyncPreparationTimeMs int64
	SyncTimeMs            int64
	SyncTimeMinMs         int64
	SyncTimeMaxMs         int64

	DelayMinMs, DelayMaxMs int64

	AckSendDelayMinMs, AckSendDelayMaxMs int64

	NeighborWindow int
}

// meetPoint is one recorded rendezvous: this node's local time and the
// peer-reported local time at that same reception.
type meetPoint struct {
	mine, their int64
}

// neighborEntry is one row of a node's neighbor table.
type neighborEntry struct {
	points        []meetPoint
	lastMeetMine  int64
	lastMeetTheir int64
}

// CycleRecord is appended once per SYNC cycle, per spec.md §3.
type CycleRecord struct {
	Partners     []int
	SyncReceived int
	AcksReceived int
}

// Node is one simulated sensor: energy store, neighbor table, clock
// offset, and the cycle state machine that drives them.
type Node struct {
	id    int
	class Class

	sched *scheduler.Scheduler
	med   *medium.Medium
	rng   *rand.Rand
	cfg   Constants

	store *energy.Store
	kpi   *kpi.Accumulator

	offsetMs int64

	state        RadioState
	isSync       bool
	listenTimeMs int64
	syncWith     []int
	cycles       []CycleRecord

	neighbors     map[int]*neighborEntry
	neighborOrder []int

	currentListen *scheduler.Suspension
}

// New creates a Node registered on neither the scheduler's event queue
// nor the medium; callers must Medium.Register it and call Start to
// begin its cycle loop.
func New(id int, class Class, sched *scheduler.Scheduler, med *medium.Medium, store *energy.Store, acc *kpi.Accumulator, rng *rand.Rand, startOffsetMs int64, cfg Constants) *Node {
	return &Node{
		id:        id,
		class:     class,
		sched:     sched,
		med:       med,
		rng:       rng,
		cfg:       cfg,
		store:     store,
		kpi:       acc,
		offsetMs:  startOffsetMs,
		neighbors: make(map[int]*neighborEntry),
	}
}

// ID returns the node's identity.
func (n *Node) ID() int { return n.id }

// Class reports the node's power tier.
func (n *Node) Class() Class { return n.class }

// Receiving implements medium.Receiver: the medium only delivers to
// peers whose radio is in Receive state at the moment of arrival.
func (n *Node) Receiving() bool { return n.state == StateReceiving }

// LocalTime returns the node's clock: simulator virtual time plus its
// accumulated drift offset.
func (n *Node) LocalTime() int64 {
	return int64(n.sched.Now()) + n.offsetMs
}

// NeighborCount reports how many peers this node has ever recorded a
// meeting point with.
func (n *Node) NeighborCount() int {
	return len(n.neighbors)
}

// Cycles returns the SYNC cycle records accumulated so far.
func (n *Node) Cycles() []CycleRecord {
	return n.cycles
}

// ApplyClockDrift adds deltaMs to the node's offset. The sim package
// calls this at checkpoint boundaries with a draw bounded by the
// configured per-day drift; offset is otherwise never touched, so it
// is monotonically nondecreasing by construction as long as deltaMs is
// never negative, which is the contract the caller must uphold.
func (n *Node) ApplyClockDrift(deltaMs int64) {
	n.offsetMs += deltaMs
}

// Start kicks off the node's cycle loop. Call it once, after every
// node in the network has been constructed and registered.
func (n *Node) Start() {
	n.runCycle()
}

func (n *Node) interruptListen(reason scheduler.Reason) {
	if n.currentListen != nil {
		n.currentListen.Interrupt(reason)
	}
}

// runCycle implements spec.md §4.4's cycle loop, steps 1-7.
func (n *Node) runCycle() {
	listenTimeMs := n.drawListenTime()
	eDisc := float64(listenTimeMs)*n.cfg.EReceive + n.cfg.ETx + n.cfg.ERx

	partners := n.upcomingSyncPartners()
	eSync := float64(n.cfg.SyncTimeMs)*n.cfg.EReceive + n.cfg.ETx + float64(len(partners))*n.cfg.ERx
	idleForSync := n.store.TimeToChargeTo(eSync, n.LocalTime())
	syncIn := n.soonestSync(-1)

	n.isSync = false

	var idleMs int64
	var budget float64
	if syncIn != math.MaxInt64 {
		lead := syncIn - idleForSync
		if lead > 0 && lead < n.cfg.SyncPreparationTimeMs {
			n.isSync = true
			listenTimeMs = n.cfg.SyncTimeMs
			budget = eSync
			idleMs = syncIn
		}
	}
	if !n.isSync {
		budget = eDisc
		idleMs = n.store.TimeToChargeTo(eDisc, n.LocalTime())
	}
	n.listenTimeMs = listenTimeMs

	n.sched.Timeout(scheduler.VTime(idleMs), func(scheduler.Reason) {
		n.store.Harvest(idleMs, n.LocalTime())
		n.afterCharge(listenTimeMs, budget, partners)
	})
}

func (n *Node) afterCharge(listenTimeMs int64, budget float64, partners []int) {
	if n.store.Remaining() < budget {
		n.endCycle()
		return
	}

	if !n.isSync {
		n.kpi.StartDiscovery(n.LocalTime())
	}

	var listenFor int64
	if n.isSync {
		listenFor = n.drawSyncListen()
	} else {
		listenFor = listenTimeMs / 2
	}

	n.listen(listenFor, func(heard bool) {
		if n.isSync {
			n.syncWith = partners
			if len(n.syncWith) == 0 {
				n.isSync = false
				n.endCycle()
				return
			}
			n.cycles = append(n.cycles, CycleRecord{Partners: append([]int(nil), n.syncWith...)})
			n.finishActivation(listenTimeMs, listenFor, heard)
			return
		}
		n.finishActivation(listenTimeMs, listenFor, heard)
	})
}

// finishActivation implements cycle step 6b: if nothing relevant was
// heard during the first listen, transmit this cycle's packet and
// listen for the remainder of the window.
func (n *Node) finishActivation(listenTimeMs, listenFor int64, heard bool) {
	if heard {
		n.endCycle()
		return
	}

	kind := medium.KindDISC
	var target *int
	if n.isSync {
		kind = medium.KindSYNC
		target = &n.syncWith[0]
		n.kpi.RecordSyncSent()
	}

	n.transmit(kind, target, func(sent bool) {
		if sent && !n.isSync {
			n.kpi.SendDiscovery(listenTimeMs, n.cfg.EReceive, n.cfg.ETx)
			n.kpi.RecordDiscoverySent()
		}
		remaining := listenTimeMs - listenFor
		n.listen(remaining, func(bool) {
			n.endCycle()
		})
	})
}

func (n *Node) endCycle() {
	n.syncWith = nil
	n.state = StateIdle
	n.runCycle()
}

// listen implements the energy-capped listen window: it caps the
// requested duration to what remaining energy can pay for, discharges
// up front, then waits either the full duration or until interrupted
// by a qualifying reception. callback receives whether anything was
// heard (true only when an interrupt fired before the timeout).
func (n *Node) listen(durationMs int64, callback func(heard bool)) {
	if durationMs <= 0 {
		callback(false)
		return
	}
	remaining := n.store.Remaining()
	available := int64(math.Floor(remaining / n.cfg.EReceive))
	if available > durationMs {
		available = durationMs
	}
	cost := float64(available) * n.cfg.EReceive

	if n.state != StateIdle || remaining < cost || available <= 0 {
		callback(false)
		return
	}

	n.state = StateReceiving
	if err := n.store.Discharge(cost); err != nil {
		n.state = StateIdle
		callback(false)
		return
	}

	n.currentListen = n.sched.Timeout(scheduler.VTime(available), func(reason scheduler.Reason) {
		n.store.Harvest(available, n.LocalTime())
		n.kpi.AddEnergy(cost)
		n.state = StateIdle
		n.currentListen = nil
		callback(reason != scheduler.ElapsedNaturally)
	})
}

// transmit implements spec.md's transmit operation: decode cost, then
// propagation delay, both paid by the sender, before the packet is
// handed to the medium. onSent fires with whether the packet was
// actually sent (false when energy was insufficient, a recoverable
// no-op per spec.md §7).
func (n *Node) transmit(kind medium.Kind, target *int, onSent func(sent bool)) {
	if n.store.Remaining() < n.cfg.ETx {
		onSent(false)
		return
	}
	n.state = StateTransmitting
	if err := n.store.Discharge(n.cfg.ETx); err != nil {
		n.state = StateIdle
		onSent(false)
		return
	}

	n.sched.Timeout(scheduler.VTime(n.cfg.PTTimeMs), func(scheduler.Reason) {
		n.store.Harvest(n.cfg.PTTimeMs, n.LocalTime())
		delay := n.drawPropagationDelay()
		n.sched.Timeout(delay, func(scheduler.Reason) {
			n.store.Harvest(int64(delay), n.LocalTime())

			packet := medium.Packet{Kind: kind, From: n.id, To: target, SenderTimeMs: n.LocalTime()}
			n.med.Broadcast(n.id, packet)

			n.kpi.AddEnergy(n.cfg.ETx)
			n.state = StateIdle
			onSent(true)
		})
	})
}

// Deliver implements medium.Receiver: it is invoked by the medium when
// a packet survives loss and this node's radio was in Receive state at
// arrival. It pays the decode cost (E_RX, PT_TIME) before dispatching
// to the kind-specific handler.
func (n *Node) Deliver(packet medium.Packet) {
	if n.state != StateReceiving {
		return
	}
	if n.store.Remaining() < n.cfg.ERx {
		return
	}
	if err := n.store.Discharge(n.cfg.ERx); err != nil {
		return
	}

	n.state = StateDecoding
	n.sched.Timeout(scheduler.VTime(n.cfg.PTTimeMs), func(scheduler.Reason) {
		n.store.Harvest(n.cfg.PTTimeMs, n.LocalTime())
		n.state = StateReceiving
		n.kpi.AddEnergy(n.cfg.ERx)
		n.handlePacket(packet)
	})
}

func (n *Node) handlePacket(p medium.Packet) {
	switch p.Kind {
	case medium.KindDISC:
		n.handleDISC(p)
	case medium.KindSYNC:
		n.handleSYNC(p)
	case medium.KindACK:
		n.handleACK(p)
	default:
		panic("node: unreachable packet kind")
	}
}

// handleDISC implements spec.md §4.4's DISC reception rule.
func (n *Node) handleDISC(p medium.Packet) {
	if n.isSync {
		return
	}

	_, known := n.neighbors[p.From]
	overdue := known && n.soonestSync(p.From) < 0
	addressed := p.To != nil && *p.To == n.id
	acceptBroadcast := p.To == nil && (!known || overdue)

	if !addressed && !acceptBroadcast {
		return
	}

	n.kpi.ReceiveDiscovery(n.listenTimeMs, n.LocalTime(), n.cfg.EReceive, n.cfg.ERx)

	if addressed {
		n.kpi.ReceiveDiscAck(n.listenTimeMs, n.cfg.EReceive, n.cfg.ETx, n.cfg.ERx)
		n.kpi.RecordDiscoverySuccess()
		n.updateNeighbor(p.From, p.SenderTimeMs)
		n.interruptListen(ReasonDiscovered)
		return
	}

	from := p.From
	n.transmit(medium.KindDISC, &from, func(sent bool) {
		n.updateNeighbor(p.From, p.SenderTimeMs)
	})
}

// handleSYNC implements spec.md §4.4's SYNC reception rule: valid only
// during this node's own SYNC cycle, from a current partner.
func (n *Node) handleSYNC(p medium.Packet) {
	if !n.isSync || len(n.cycles) == 0 || !n.isCurrentPartner(p.From) {
		return
	}

	last := &n.cycles[len(n.cycles)-1]
	last.SyncReceived++

	jitter := n.drawAckJitter()
	n.sched.Timeout(jitter, func(scheduler.Reason) {
		sender := p.From
		senderTime := p.SenderTimeMs
		n.transmit(medium.KindACK, &sender, func(sent bool) {
			if sent {
				n.updateNeighbor(sender, senderTime)
				n.interruptListen(ReasonAckSent)
			}
		})
	})
}

// handleACK implements spec.md §4.4's ACK reception rule: valid only
// during this node's own SYNC cycle.
func (n *Node) handleACK(p medium.Packet) {
	if !n.isSync || len(n.syncWith) == 0 {
		return
	}
	if len(n.cycles) == 0 {
		n.cycles = append(n.cycles, CycleRecord{Partners: append([]int(nil), n.syncWith...)})
	}
	last := &n.cycles[len(n.cycles)-1]
	last.AcksReceived++

	n.kpi.RecordAckReceived()
	n.updateNeighbor(p.From, p.SenderTimeMs)
	n.interruptListen(ReasonAckReceived)
}

func (n *Node) isCurrentPartner(id int) bool {
	for _, p := range n.syncWith {
		if p == id {
			return true
		}
	}
	return false
}

func (n *Node) drawListenTime() int64 {
	return drawUniformCeil(n.rng, n.cfg.ListenTimeMinMs, n.cfg.ListenTimeMaxMs)
}

func (n *Node) drawSyncListen() int64 {
	return drawUniformCeil(n.rng, n.cfg.SyncTimeMinMs, n.cfg.SyncTimeMaxMs)
}

func (n *Node) drawPropagationDelay() scheduler.VTime {
	return scheduler.VTime(drawUniformCeil(n.rng, n.cfg.DelayMinMs, n.cfg.DelayMaxMs))
}

func (n *Node) drawAckJitter() scheduler.VTime {
	return scheduler.VTime(drawUniformCeil(n.rng, n.cfg.AckSendDelayMinMs, n.cfg.AckSendDelayMaxMs))
}

func drawUniformCeil(rng *rand.Rand, lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Int63n(hi-lo+1)
}
