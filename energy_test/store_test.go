package energy_test

import (
	"math"
	"testing"

	"github.com/zefrenchwan/ehwsn-sim/energy"
)

func constants() energy.Constants {
	return energy.Constants{
		EMax:             8.82,
		EThreshold:       1.62,
		EIdlePerMs:       0,
		HarvestCoeffA:    1,
		HarvestCoeffB:    0,
		HarvestDivisor:   1,
		DayCycleEnabled:  false,
		FallbackChargeMs: 3_600_000,
	}
}

func TestHarvestClampsToEMax(t *testing.T) {
	c := constants()
	s := energy.NewStore(c, 100) // rate = 100 J/ms with these coefficients

	s.Harvest(1, 0)
	if s.Energy() != c.EMax {
		t.Fatalf("Energy() = %v, want clamped to EMax %v", s.Energy(), c.EMax)
	}
}

func TestDischargeFailsBeforeMutatingOnInsufficientEnergy(t *testing.T) {
	c := constants()
	s := energy.NewStore(c, 0) // zero lux: never harvests

	before := s.Energy()
	if err := s.Discharge(0.01); err == nil {
		t.Fatal("Discharge succeeded with no stored energy above threshold")
	}
	if s.Energy() != before {
		t.Fatalf("Energy() changed after a failed Discharge: before=%v after=%v", before, s.Energy())
	}
}

func TestDischargeSucceedsWithinRemaining(t *testing.T) {
	c := constants()
	s := energy.NewStore(c, 100)
	s.Harvest(1, 0) // charges to EMax

	remainingBefore := s.Remaining()
	if err := s.Discharge(remainingBefore / 2); err != nil {
		t.Fatalf("Discharge failed within remaining budget: %v", err)
	}
	if s.Remaining() >= remainingBefore {
		t.Fatal("Remaining() did not decrease after a successful Discharge")
	}
}

func TestRemainingIsEnergyMinusThresholdFlooredAtZero(t *testing.T) {
	c := constants()
	s := energy.NewStore(c, 0)
	if s.Remaining() != 0 {
		t.Fatalf("Remaining() = %v on an empty store, want 0", s.Remaining())
	}
}

func TestTimeToChargeToFallsBackWhenRateNonPositive(t *testing.T) {
	c := constants()
	c.HarvestCoeffA = 0
	c.HarvestCoeffB = -1 // forces the raw rate to clamp at 0
	s := energy.NewStore(c, 100)

	got := s.TimeToChargeTo(c.EThreshold+1, 0)
	if got != c.FallbackChargeMs {
		t.Fatalf("TimeToChargeTo() = %d, want fallback %d", got, c.FallbackChargeMs)
	}
}

func TestTimeToChargeToZeroWhenAlreadyCharged(t *testing.T) {
	c := constants()
	s := energy.NewStore(c, 100)
	s.Harvest(1, 0)

	if got := s.TimeToChargeTo(0.01, 0); got != 0 {
		t.Fatalf("TimeToChargeTo() = %d for an already-charged store, want 0", got)
	}
}

func TestDayCycleZeroesRateOutsideDaylightWindow(t *testing.T) {
	c := constants()
	c.DayCycleEnabled = true
	c.OneDayMs = 1000
	c.SunriseMs = 200
	c.SunsetMs = 800
	s := energy.NewStore(c, 100)

	s.Harvest(1, 0) // midnight: outside [sunrise, sunset]
	if s.Energy() != 0 {
		t.Fatalf("Energy() = %v after harvesting outside daylight, want 0", s.Energy())
	}

	s.Harvest(1, 500) // solar noon: sin(pi*0.5) = 1, full rate
	if s.Energy() == 0 {
		t.Fatal("Energy() stayed 0 after harvesting at solar noon")
	}
}

func TestDayCycleModulationPeaksAtMidday(t *testing.T) {
	c := constants()
	c.DayCycleEnabled = true
	c.OneDayMs = 1000
	c.SunriseMs = 0
	c.SunsetMs = 1000

	// lux 1 keeps both harvests below EMax: sin(pi*0.25) ~ 0.707 J vs sin(pi*0.5) = 1 J.
	atQuarter := energy.NewStore(c, 1)
	atQuarter.Harvest(1, 250)

	atMidday := energy.NewStore(c, 1)
	atMidday.Harvest(1, 500)

	if !(atMidday.Energy() > atQuarter.Energy()) {
		t.Fatalf("expected midday harvest %v to exceed quarter-day harvest %v", atMidday.Energy(), atQuarter.Energy())
	}
	if math.IsNaN(atMidday.Energy()) {
		t.Fatal("Energy() is NaN")
	}
}
