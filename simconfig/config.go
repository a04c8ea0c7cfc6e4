// Package simconfig defines the simulation's external configuration
// surface: every tunable spec.md §6 enumerates, plus a YAML loading
// convenience for callers that keep configuration on disk.
package simconfig

import (
	"fmt"
)

// Range is an inclusive [Min, Max] bound used for every uniform draw
// in the engine (listen time, sync window, propagation delay, ...).
type Range struct {
	Min int64 `yaml:"min"`
	Max int64 `yaml:"max"`
}

// LightRange is a Range expressed in lux rather than milliseconds.
type LightRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Config enumerates every tunable named by spec.md §6.
type Config struct {
	LowPowerNodes  int `yaml:"lowPowerNodes"`
	HighPowerNodes int `yaml:"highPowerNodes"`

	SimDays  int   `yaml:"simDays"`
	OneDayMs int64 `yaml:"oneDayMs"`
	// CheckpointsPerDay controls how often the sim package's caller is
	// expected to call Simulation.RunTo; the engine itself does not
	// loop over checkpoints, it only needs OneDayMs for day-cycle math.
	CheckpointsPerDay int `yaml:"checkpointsPerDay"`

	PTLoss float64 `yaml:"ptLoss"`
	PTTimeMs int64 `yaml:"ptTimeMs"`

	DelayRangeMs Range `yaml:"delayRangeMs"`

	ListenTimeRangeMs Range `yaml:"listenTimeRangeMs"`

	SyncIntervalMs        int64 `yaml:"syncIntervalMs"`
	SyncPreparationTimeMs int64 `yaml:"syncPreparationTimeMs"`
	SyncTimeMs            int64 `yaml:"syncTimeMs"`
	SyncTimeRangeMs       Range `yaml:"syncTimeRangeMs"`

	AckSendDelayRangeMs Range `yaml:"ackSendDelayRangeMs"`

	LowLightRangeLux  LightRange `yaml:"lowLightRangeLux"`
	HighLightRangeLux LightRange `yaml:"highLightRangeLux"`

	EMax       float64 `yaml:"eMax"`
	EThreshold float64 `yaml:"eThreshold"`
	EIdle      float64 `yaml:"eIdle"`
	EReceive   float64 `yaml:"eReceive"`
	ETx        float64 `yaml:"eTx"`
	ERx        float64 `yaml:"eRx"`

	HarvestCoeffA  float64 `yaml:"harvestCoeffA"`
	HarvestCoeffB  float64 `yaml:"harvestCoeffB"`
	HarvestDivisor float64 `yaml:"harvestDivisor"`

	ClockDriftEnabled bool  `yaml:"clockDriftEnabled"`
	ClockDriftPerDayMs int64 `yaml:"clockDriftPerDayMs"`

	NodeStartOffsetRangeMs Range `yaml:"nodeStartOffsetRangeMs"`

	DayCycleEnabled bool  `yaml:"dayCycleEnabled"`
	SunriseMs       int64 `yaml:"sunriseMs"`
	SunsetMs        int64 `yaml:"sunsetMs"`

	NeighborWindow int `yaml:"neighborWindow"`
}

// Default returns the configuration the engine was validated against,
// carrying over the numeric constants from original_source's config.py
// that spec.md does not itself pin down (harvest coefficients, neighbor
// window). The ACK jitter range is not in config.py; its default
// (2-30 ms) is chosen here.
func Default() Config {
	const oneDayMs = 86_400_000

	return Config{
		LowPowerNodes:  18,
		HighPowerNodes: 36,

		SimDays:           14,
		OneDayMs:          oneDayMs,
		CheckpointsPerDay: 1,

		PTLoss:   0.05,
		PTTimeMs: 15,

		DelayRangeMs: Range{Min: 10, Max: 50},

		ListenTimeRangeMs: Range{Min: 1000, Max: 2000},

		SyncIntervalMs:        oneDayMs,
		SyncPreparationTimeMs: 45 * 60 * 1000,
		SyncTimeMs:            30_000,
		SyncTimeRangeMs:       Range{Min: 2, Max: 15_000},

		AckSendDelayRangeMs: Range{Min: 2, Max: 30},

		LowLightRangeLux:  LightRange{Min: 15, Max: 20},
		HighLightRangeLux: LightRange{Min: 30, Max: 35},

		EMax:       8.82,
		EThreshold: 1.62,
		EIdle:      0.00000495 / 1000,
		EReceive:   0.03564 / 1000,
		ETx:        0.1023 / 1000 * 15,
		ERx:        0.03564 / 1000 * 15,

		HarvestCoeffA:  0.9083,
		HarvestCoeffB:  -9.2714,
		HarvestDivisor: 1_000_000 * 1000,

		ClockDriftEnabled:  true,
		ClockDriftPerDayMs: 800,

		NodeStartOffsetRangeMs: Range{Min: 0, Max: 0},

		DayCycleEnabled: false,
		SunriseMs:       8 * 3600 * 1000,
		SunsetMs:        18 * 3600 * 1000,

		NeighborWindow: 8,
	}
}

// Validate checks the invariants the engine relies on before it will
// build a Simulation from this Config: no negative node counts, no
// inverted ranges, no zero divisors.
func (c Config) Validate() error {
	if c.LowPowerNodes < 0 || c.HighPowerNodes < 0 {
		return fmt.Errorf("simconfig: node counts must be non-negative")
	}
	if c.LowPowerNodes+c.HighPowerNodes == 0 {
		return fmt.Errorf("simconfig: at least one node is required")
	}
	if c.OneDayMs <= 0 {
		return fmt.Errorf("simconfig: oneDayMs must be positive")
	}
	if c.PTLoss < 0 || c.PTLoss > 1 {
		return fmt.Errorf("simconfig: ptLoss must be in [0, 1]")
	}
	for name, r := range map[string]Range{
		"delayRangeMs":        c.DelayRangeMs,
		"listenTimeRangeMs":   c.ListenTimeRangeMs,
		"syncTimeRangeMs":     c.SyncTimeRangeMs,
		"ackSendDelayRangeMs": c.AckSendDelayRangeMs,
		"nodeStartOffsetRangeMs": c.NodeStartOffsetRangeMs,
	} {
		if r.Min > r.Max {
			return fmt.Errorf("simconfig: %s has min > max", name)
		}
	}
	if c.EMax <= 0 {
		return fmt.Errorf("simconfig: eMax must be positive")
	}
	if c.EThreshold < 0 || c.EThreshold > c.EMax {
		return fmt.Errorf("simconfig: eThreshold must be in [0, eMax]")
	}
	if c.HarvestDivisor == 0 {
		return fmt.Errorf("simconfig: harvestDivisor must not be zero")
	}
	if c.NeighborWindow < 2 {
		return fmt.Errorf("simconfig: neighborWindow must be at least 2")
	}
	if c.DayCycleEnabled && c.SunsetMs <= c.SunriseMs {
		return fmt.Errorf("simconfig: sunsetMs must be after sunriseMs when dayCycleEnabled")
	}
	return nil
}
