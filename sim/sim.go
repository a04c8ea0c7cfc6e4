// Package sim is the network-assembly and orchestration layer named
// by spec.md §2's "Network assembly" component and exposed through
// the external interface in spec.md §6: it creates nodes, seeds RNGs
// deterministically, drives the scheduler to checkpoints, and applies
// the per-checkpoint clock-drift update.
package sim

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"github.com/zefrenchwan/ehwsn-sim/energy"
	"github.com/zefrenchwan/ehwsn-sim/kpi"
	"github.com/zefrenchwan/ehwsn-sim/medium"
	"github.com/zefrenchwan/ehwsn-sim/node"
	"github.com/zefrenchwan/ehwsn-sim/scheduler"
	"github.com/zefrenchwan/ehwsn-sim/simconfig"
)

// Simulation is one fully assembled network, advanced through
// checkpoints by its caller.
type Simulation struct {
	// ID distinguishes this run from any other Simulation value the
	// caller may be holding concurrently, even with the same seed.
	ID string

	cfg    simconfig.Config
	sched  *scheduler.Scheduler
	med    *medium.Medium
	rng    *rand.Rand
	logger *slog.Logger

	registry *kpi.Registry

	nodes  []*node.Node
	accs   []*kpi.Accumulator
	stores []*energy.Store

	lastCheckpointMs int64
}

// Option configures optional collaborators on a Simulation at
// construction time.
type Option func(*Simulation)

// WithLogger attaches a logger for the engine's own lifecycle events.
// A nil logger (the default, if this option is never used) means
// silent — a library should not force log output on its caller.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulation) { s.logger = logger }
}

// WithPrometheusRegistry wires a kpi.Registry that is kept current on
// every RunTo call, so an external scraper can read live totals.
func WithPrometheusRegistry(registry *kpi.Registry) Option {
	return func(s *Simulation) { s.registry = registry }
}

// New assembles a network from cfg, seeded deterministically from
// seed, and starts every node's cycle loop. Two Simulations built from
// the same cfg and seed produce identical event traces.
func New(cfg simconfig.Config, seed int64, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sim: invalid config: %w", err)
	}

	s := &Simulation{
		ID:    uuid.NewString(),
		cfg:   cfg,
		sched: scheduler.New(),
		rng:   rand.New(rand.NewSource(seed)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.med = medium.New(s.sched, s.rng, cfg.PTLoss)

	nodeConstants := node.Constants{
		EReceive: cfg.EReceive,
		ETx:      cfg.ETx,
		ERx:      cfg.ERx,

		PTTimeMs: cfg.PTTimeMs,

		ListenTimeMinMs: cfg.ListenTimeRangeMs.Min,
		ListenTimeMaxMs: cfg.ListenTimeRangeMs.Max,

		SyncIntervalMs:        cfg.SyncIntervalMs,
		SyncPreparationTimeMs: cfg.SyncPreparationTimeMs,
		SyncTimeMs:            cfg.SyncTimeMs,
		SyncTimeMinMs:         cfg.SyncTimeRangeMs.Min,
		SyncTimeMaxMs:         cfg.SyncTimeRangeMs.Max,

		DelayMinMs: cfg.DelayRangeMs.Min,
		DelayMaxMs: cfg.DelayRangeMs.Max,

		AckSendDelayMinMs: cfg.AckSendDelayRangeMs.Min,
		AckSendDelayMaxMs: cfg.AckSendDelayRangeMs.Max,

		NeighborWindow: cfg.NeighborWindow,
	}

	energyConstants := energy.Constants{
		EMax:             cfg.EMax,
		EThreshold:       cfg.EThreshold,
		EIdlePerMs:       cfg.EIdle,
		HarvestCoeffA:    cfg.HarvestCoeffA,
		HarvestCoeffB:    cfg.HarvestCoeffB,
		HarvestDivisor:   cfg.HarvestDivisor,
		DayCycleEnabled:  cfg.DayCycleEnabled,
		SunriseMs:        cfg.SunriseMs,
		SunsetMs:         cfg.SunsetMs,
		OneDayMs:         cfg.OneDayMs,
		FallbackChargeMs: cfg.OneDayMs / 24,
	}

	total := cfg.LowPowerNodes + cfg.HighPowerNodes
	for id := 0; id < total; id++ {
		class := node.LowPower
		lightRange := cfg.LowLightRangeLux
		if id >= cfg.LowPowerNodes {
			class = node.HighPower
			lightRange = cfg.HighLightRangeLux
		}
		lux := drawUniformFloat(s.rng, lightRange.Min, lightRange.Max)
		store := energy.NewStore(energyConstants, lux)
		acc := kpi.New()
		startOffset := drawUniformInt(s.rng, cfg.NodeStartOffsetRangeMs.Min, cfg.NodeStartOffsetRangeMs.Max)

		n := node.New(id, class, s.sched, s.med, store, acc, s.rng, startOffset, nodeConstants)
		s.med.Register(n)
		s.nodes = append(s.nodes, n)
		s.accs = append(s.accs, acc)
		s.stores = append(s.stores, store)

		if s.registry != nil {
			s.registry.Track(id, acc)
		}
	}

	for _, n := range s.nodes {
		n.Start()
	}

	if s.logger != nil {
		s.logger.Info("simulation assembled", "id", s.ID, "nodes", total, "seed", seed)
	}
	return s, nil
}

// RunTo advances the scheduler to checkpointMs and, if this is a new
// checkpoint boundary (not a repeated call at the same or an earlier
// point), applies one clock-drift update per node and refreshes the
// Prometheus registry if one is attached. Calling it again with the
// same checkpointMs is a no-op beyond that idempotence guarantee.
func (s *Simulation) RunTo(checkpointMs int64) error {
	if checkpointMs < int64(s.sched.Now()) {
		return fmt.Errorf("sim: checkpoint %d precedes current time %d", checkpointMs, s.sched.Now())
	}

	before := s.sched.Now()
	s.sched.RunUntil(scheduler.VTime(checkpointMs))

	if checkpointMs > int64(before) {
		if s.cfg.ClockDriftEnabled {
			for _, n := range s.nodes {
				delta := drawUniformInt(s.rng, 0, s.cfg.ClockDriftPerDayMs)
				n.ApplyClockDrift(delta)
			}
		}
		s.lastCheckpointMs = checkpointMs
	}

	if s.registry != nil {
		s.registry.Collect()
	}
	if s.logger != nil {
		s.logger.Debug("checkpoint reached", "id", s.ID, "ms", checkpointMs)
	}
	return nil
}

func drawUniformInt(rng *rand.Rand, lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Int63n(hi-lo+1)
}

func drawUniformFloat(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}
