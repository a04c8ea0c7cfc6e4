package sim

// NodeSnapshot is one node's view at a checkpoint: the per-node KPIs
// spec.md §6 names, plus the supplemented discovery-progress view
// carried over from original_source's per-checkpoint reporting.
type NodeSnapshot struct {
	ID            int     `json:"id"`
	EnergyJ       float64 `json:"energyJ"`
	NeighborCount int     `json:"neighborCount"`

	// DiscoveryFraction is the supplemented convenience view: the
	// share of the other N-1 nodes this node has ever recorded a
	// meeting point with.
	DiscoveryFraction float64 `json:"discoveryFraction"`

	EnergyPerCycleJ         float64 `json:"energyPerCycleJ"`
	TimeToFirstSuccessSec   float64 `json:"timeToFirstSuccessSec"`
	DiscoveryApplicable     bool    `json:"discoveryApplicable"`
	DiscoverySuccessRatePct float64 `json:"discoverySuccessRatePct"`

	SyncAttempts int `json:"syncAttempts"`
	AcksReceived int `json:"acksReceived"`

	TotalEnergyJ     float64 `json:"totalEnergyJ"`
	DiscoveryEnergyJ float64 `json:"discoveryEnergyJ"`
	SyncEnergyJ      float64 `json:"syncEnergyJ"`
}

// CheckpointKPIs is the aggregate checkpoint tuple spec.md §6 names:
// checkpoint_time_ms -> (energy_per_cycle_J, first_disc_latency_s,
// disc_success_pct, sync_attempts_avg, acks_received_avg,
// sync_success_pct, energy_per_successful_disc_J,
// energy_per_sync_cycle_J).
type CheckpointKPIs struct {
	EnergyPerCycleJ            float64 `json:"energyPerCycleJ"`
	FirstDiscLatencySec        float64 `json:"firstDiscLatencySec"`
	FirstDiscLatencyApplicable bool    `json:"firstDiscLatencyApplicable"`
	DiscSuccessPct             float64 `json:"discSuccessPct"`
	SyncAttemptsAvg            float64 `json:"syncAttemptsAvg"`
	AcksReceivedAvg            float64 `json:"acksReceivedAvg"`
	SyncSuccessPct             float64 `json:"syncSuccessPct"`
	EnergyPerSuccessfulDiscJ   float64 `json:"energyPerSuccessfulDiscJ"`
	EnergyPerSyncCycleJ        float64 `json:"energyPerSyncCycleJ"`
}

// Snapshot is the result of Simulation.Snapshot: a checkpoint's
// per-node KPIs and the network-wide aggregate. Every field carries a
// JSON tag so the external aggregator named in spec.md §1 can consume
// it without linking this module.
type Snapshot struct {
	CheckpointMs int64          `json:"checkpointMs"`
	Nodes        []NodeSnapshot `json:"nodes"`
	Aggregate    CheckpointKPIs `json:"aggregate"`
}

// Snapshot reads the current per-node KPIs and neighbor-table
// summaries without advancing the scheduler.
func (s *Simulation) Snapshot() Snapshot {
	n := len(s.nodes)
	snap := Snapshot{CheckpointMs: s.lastCheckpointMs, Nodes: make([]NodeSnapshot, 0, n)}

	var (
		sumEnergyPerCycle      float64
		sumLatency             float64
		applicableCount        int
		sumSuccessRate         float64
		sumSyncAttempts        int
		sumAcksReceived        int
		sumSuccessfulDiscE     float64
		sumSuccessfulDiscCount int
		sumSyncEnergy          float64
		sumSyncCycles          int
	)

	for i, nd := range s.nodes {
		acc := s.accs[i]
		energyPerCycle, latencySec, applicable, successRate := acc.DiscoveryKPIs()

		discoveryFraction := 0.0
		if n > 1 {
			discoveryFraction = float64(nd.NeighborCount()) / float64(n-1)
		}

		ns := NodeSnapshot{
			ID:                      nd.ID(),
			EnergyJ:                 s.stores[i].Energy(),
			NeighborCount:           nd.NeighborCount(),
			DiscoveryFraction:       discoveryFraction,
			EnergyPerCycleJ:         energyPerCycle,
			TimeToFirstSuccessSec:   latencySec,
			DiscoveryApplicable:     applicable,
			DiscoverySuccessRatePct: successRate,
			SyncAttempts:            acc.SyncAttempts,
			AcksReceived:            acc.AcksReceived,
			TotalEnergyJ:            acc.TotalEnergyJ,
			DiscoveryEnergyJ:        acc.DiscoveryEnergyJ(),
			SyncEnergyJ:             acc.SyncEnergyJ(),
		}
		snap.Nodes = append(snap.Nodes, ns)

		sumEnergyPerCycle += energyPerCycle
		if applicable {
			sumLatency += latencySec
			applicableCount++
		}
		sumSuccessRate += successRate
		sumSyncAttempts += acc.SyncAttempts
		sumAcksReceived += acc.AcksReceived
		sumSuccessfulDiscE += acc.SuccessfulDiscoveryEnergyJ
		sumSuccessfulDiscCount += acc.SuccessfulDiscoveries
		sumSyncEnergy += acc.SyncEnergyJ()
		sumSyncCycles += len(nd.Cycles())
	}

	if n > 0 {
		snap.Aggregate.EnergyPerCycleJ = sumEnergyPerCycle / float64(n)
		snap.Aggregate.DiscSuccessPct = sumSuccessRate / float64(n)
		snap.Aggregate.SyncAttemptsAvg = float64(sumSyncAttempts) / float64(n)
		snap.Aggregate.AcksReceivedAvg = float64(sumAcksReceived) / float64(n)
	}
	if sumSyncCycles > 0 {
		snap.Aggregate.EnergyPerSyncCycleJ = sumSyncEnergy / float64(sumSyncCycles)
	}
	if applicableCount > 0 {
		snap.Aggregate.FirstDiscLatencyApplicable = true
		snap.Aggregate.FirstDiscLatencySec = sumLatency / float64(applicableCount)
	}
	if sumSyncAttempts > 0 {
		snap.Aggregate.SyncSuccessPct = float64(sumAcksReceived) / float64(sumSyncAttempts) * 100
	}
	if sumSuccessfulDiscCount > 0 {
		snap.Aggregate.EnergyPerSuccessfulDiscJ = sumSuccessfulDiscE / float64(sumSuccessfulDiscCount)
	}

	return snap
}
