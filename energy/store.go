// Package energy implements the per-node capacitor-and-harvester energy
// model: a bounded store of joules that charges from an ambient-light
// harvest rate and is spent by the protocol to pay for radio operations.
package energy

import (
	"errors"
	"math"
)

// ErrInsufficientEnergy is returned by Discharge when the requested
// amount exceeds the store's remaining (spendable) energy. Per the
// engine's error-handling design, callers must check Remaining before
// attempting an operation; this error exists so a caller that fails to
// do so gets a typed signal rather than a silently wrong energy trace.
var ErrInsufficientEnergy = errors.New("energy: insufficient remaining energy")

// Constants bundles the tunable energy-model parameters a Store needs.
// All energies are in joules, all rates in joules per millisecond.
type Constants struct {
	// EMax is the capacitor's maximum stored energy.
	EMax float64
	// EThreshold is the floor below which stored energy is not
	// spendable by the protocol (kept in reserve).
	EThreshold float64
	// EIdlePerMs is the self-discharge rate subtracted from the raw
	// harvest rate to get the net harvest rate.
	EIdlePerMs float64
	// HarvestCoeffA, HarvestCoeffB, HarvestDivisor parametrize the raw
	// harvest rate as max(0, A*lux + B) / Divisor, before subtracting
	// EIdlePerMs.
	HarvestCoeffA   float64
	HarvestCoeffB   float64
	HarvestDivisor  float64
	// DayCycleEnabled modulates the harvest rate by a sine profile
	// between SunriseMs and SunsetMs within each day, and zeroes it
	// outside that window, instead of holding it constant.
	DayCycleEnabled bool
	SunriseMs       int64
	SunsetMs        int64
	OneDayMs        int64
	// FallbackChargeMs is returned by TimeToChargeTo when the current
	// rate is non-positive, so callers never block forever waiting to
	// charge to an unreachable level.
	FallbackChargeMs int64
}

// Store is a single node's capacitor: bounded stored energy, harvested at
// a per-node rate derived from its fixed illuminance (constant unless
// day-cycle mode modulates it).
type Store struct {
	c       Constants
	lux     float64
	energy  float64
}

// NewStore creates a Store with zero stored energy and the given
// constant illuminance (drawn once, at construction, from the node's
// class light range).
func NewStore(c Constants, lux float64) *Store {
	return &Store{c: c, lux: lux}
}

// Lux returns the store's fixed illuminance.
func (s *Store) Lux() float64 {
	return s.lux
}

// Energy returns the current stored energy, in [0, EMax].
func (s *Store) Energy() float64 {
	return s.energy
}

// Remaining returns the spendable energy: stored energy above
// EThreshold, floored at zero.
func (s *Store) Remaining() float64 {
	return remaining(s.energy, s.c.EThreshold)
}

func remaining(energy, threshold float64) float64 {
	return math.Max(0, energy-threshold)
}

// rate returns the net harvest rate (joules/ms) at the given local time.
// Outside day-cycle mode this is constant; inside it, it is zero outside
// [SunriseMs, SunsetMs] within the day and modulated by
// sin(pi * fraction-of-daylight-elapsed) within that window.
func (s *Store) rate(localTimeMs int64) float64 {
	raw := math.Max(0, s.c.HarvestCoeffA*s.lux+s.c.HarvestCoeffB) / s.c.HarvestDivisor
	net := raw - s.c.EIdlePerMs

	if !s.c.DayCycleEnabled {
		return net
	}
	if s.c.OneDayMs <= 0 {
		return net
	}

	dayOffset := localTimeMs % s.c.OneDayMs
	if dayOffset < 0 {
		dayOffset += s.c.OneDayMs
	}
	if dayOffset < s.c.SunriseMs || dayOffset > s.c.SunsetMs {
		return 0
	}
	daylightSpan := s.c.SunsetMs - s.c.SunriseMs
	if daylightSpan <= 0 {
		return net
	}
	fraction := float64(dayOffset-s.c.SunriseMs) / float64(daylightSpan)
	return net * math.Sin(math.Pi*fraction)
}

// Harvest applies dtMs milliseconds of harvesting at localTimeMs's rate,
// clamping the result to EMax.
func (s *Store) Harvest(dtMs int64, localTimeMs int64) {
	if dtMs <= 0 {
		return
	}
	gained := s.rate(localTimeMs) * float64(dtMs)
	s.energy = math.Min(s.c.EMax, s.energy+gained)
}

// Discharge spends joules of stored energy. It fails before any state
// mutation if joules exceeds Remaining(), upholding the engine-wide rule
// that no operation may partially commit.
func (s *Store) Discharge(joules float64) error {
	if joules > s.Remaining() {
		return ErrInsufficientEnergy
	}
	s.energy -= joules
	return nil
}

// TimeToChargeTo returns the integer milliseconds until Remaining() would
// reach joules at the current rate, given localTimeMs as the time basis
// for a (possibly day-cycle-modulated) rate lookup. Returns 0 if already
// charged. Returns the configured fallback when the rate is non-positive,
// so a caller never computes an infinite or negative wait.
func (s *Store) TimeToChargeTo(joules float64, localTimeMs int64) int64 {
	if s.Remaining() >= joules {
		return 0
	}
	rate := s.rate(localTimeMs)
	if rate <= 0 {
		return s.c.FallbackChargeMs
	}
	needed := joules - s.Remaining()
	return int64(math.Ceil(needed / rate))
}
