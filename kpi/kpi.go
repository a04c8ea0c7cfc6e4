// Package kpi accumulates per-node key performance indicators: energy
// spent by role, discovery/sync attempt counts, and the timestamps
// needed to derive discovery latency and success rates.
package kpi

// Accumulator holds one node's running totals. It is mutated only by
// that node's own tasks, matching the engine's single-writer-per-node
// resource rule.
type Accumulator struct {
	// TotalEnergyJ is every joule discharged by the node's energy
	// store, regardless of role.
	TotalEnergyJ float64

	discoveryStartLocalMs int64
	hasDiscoveryStart     bool
	firstDiscoveryLocalMs int64
	hasFirstDiscovery     bool

	// DiscoverySent/DiscoveryReceived count DISC-cycle participation
	// from the sending and receiving side respectively.
	DiscoverySent     int
	DiscoveryReceived int
	// DiscoverySendEnergyJ/DiscoveryReceiveEnergyJ are the energy
	// shares attributed to each side of a DISC cycle.
	DiscoverySendEnergyJ    float64
	DiscoveryReceiveEnergyJ float64

	// SuccessfulDiscoveries counts DISC-ACK receptions (this node's
	// broadcast was answered). SuccessfulDiscoveryEnergyJ is the
	// energy spent across those successful cycles.
	SuccessfulDiscoveries      int
	SuccessfulDiscoveryEnergyJ float64

	// ActualDiscoverySent/ActualDiscoverySuccess count every DISC
	// broadcast transmitted and every one of those broadcasts that
	// was eventually acknowledged, independent of cycle bookkeeping.
	ActualDiscoverySent    int
	ActualDiscoverySuccess int

	// SyncAttempts counts one per transmitted SYNC packet, per the
	// engine's rule that a sync attempt is a transmission, not a
	// per-partner or per-cycle tally.
	SyncAttempts  int
	AcksReceived int
}

// New returns a zeroed Accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// AddEnergy adds joules to the running total. Call this once per
// discharge, immediately after the discharge succeeds.
func (a *Accumulator) AddEnergy(joules float64) {
	a.TotalEnergyJ += joules
}

// StartDiscovery records the local time at which this node's first
// DISC cycle began. Later calls are no-ops: only the first matters for
// latency.
func (a *Accumulator) StartDiscovery(localTimeMs int64) {
	if a.hasDiscoveryStart {
		return
	}
	a.hasDiscoveryStart = true
	a.discoveryStartLocalMs = localTimeMs
}

// SendDiscovery records one transmitted DISC cycle: the listen window
// the node paid for, and the fixed transmit cost.
func (a *Accumulator) SendDiscovery(listenTimeMs int64, eReceive, eTx float64) {
	a.DiscoverySent++
	listenE := float64(listenTimeMs) * eReceive
	a.DiscoverySendEnergyJ += listenE + eTx
	a.DiscoveryReceiveEnergyJ += listenE
}

// ReceiveDiscovery records one received DISC cycle (this node was the
// listener, not the broadcaster) and, on the first such reception,
// the local time of first discovery.
func (a *Accumulator) ReceiveDiscovery(listenTimeMs, localTimeMs int64, eReceive, eRx float64) {
	a.DiscoveryReceived++
	a.DiscoveryReceiveEnergyJ += float64(listenTimeMs)/2*eReceive + eRx

	if a.hasFirstDiscovery {
		return
	}
	a.hasFirstDiscovery = true
	a.firstDiscoveryLocalMs = localTimeMs
}

// ReceiveDiscAck records that a broadcast DISC this node sent was
// answered: the whole cycle's budget counts as spent toward a
// successful discovery.
func (a *Accumulator) ReceiveDiscAck(listenTimeMs int64, eReceive, eTx, eRx float64) {
	a.SuccessfulDiscoveries++
	a.SuccessfulDiscoveryEnergyJ += float64(listenTimeMs)*eReceive + eTx + eRx
}

// RecordDiscoverySent marks one DISC broadcast as transmitted, for the
// success-rate tally independent of cycle-level bookkeeping.
func (a *Accumulator) RecordDiscoverySent() {
	a.ActualDiscoverySent++
}

// RecordDiscoverySuccess marks that a previously transmitted DISC
// broadcast was eventually acknowledged.
func (a *Accumulator) RecordDiscoverySuccess() {
	a.ActualDiscoverySuccess++
}

// RecordSyncSent counts one transmitted SYNC packet.
func (a *Accumulator) RecordSyncSent() {
	a.SyncAttempts++
}

// RecordAckReceived counts one received ACK.
func (a *Accumulator) RecordAckReceived() {
	a.AcksReceived++
}

// DiscoverySuccessRatePct returns the percentage of transmitted DISC
// broadcasts that were eventually acknowledged, or 0 if none were
// sent.
func (a *Accumulator) DiscoverySuccessRatePct() float64 {
	if a.ActualDiscoverySent == 0 {
		return 0
	}
	return float64(a.ActualDiscoverySuccess) / float64(a.ActualDiscoverySent) * 100
}

// AverageSuccessfulDiscoveryEnergyJ returns the mean energy spent per
// successful discovery, or 0 if there were none.
func (a *Accumulator) AverageSuccessfulDiscoveryEnergyJ() float64 {
	if a.SuccessfulDiscoveries == 0 {
		return 0
	}
	return a.SuccessfulDiscoveryEnergyJ / float64(a.SuccessfulDiscoveries)
}

// DiscoveryEnergyJ returns the total energy attributed to the
// discovery role (sum of send-side and receive-side shares).
func (a *Accumulator) DiscoveryEnergyJ() float64 {
	return a.DiscoverySendEnergyJ + a.DiscoveryReceiveEnergyJ
}

// SyncEnergyJ returns the energy attributed to the sync role, derived
// as everything spent that was not attributed to discovery.
func (a *Accumulator) SyncEnergyJ() float64 {
	return a.TotalEnergyJ - a.DiscoveryEnergyJ()
}

// DiscoveryKPIs reports the energy-per-cycle, the time to first
// success in seconds, whether a first success has occurred at all,
// and the success rate percentage. applicable is false when the node
// never received a DISC packet (ReceiveDiscovery was never called);
// callers must report "not
// applicable" rather than a misleading zero latency in that case.
func (a *Accumulator) DiscoveryKPIs() (energyPerCycleJ, timeToSuccessSec float64, applicable bool, successRatePct float64) {
	cycles := a.DiscoverySent + a.DiscoveryReceived
	if cycles > 0 {
		energyPerCycleJ = (a.DiscoveryReceiveEnergyJ + a.DiscoverySendEnergyJ) / float64(cycles)
	}
	applicable = a.hasFirstDiscovery
	if applicable {
		timeToSuccessSec = float64(a.firstDiscoveryLocalMs-a.discoveryStartLocalMs) / 1000
	}
	successRatePct = a.DiscoverySuccessRatePct()
	return
}
