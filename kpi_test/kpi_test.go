package kpi_test

import (
	"testing"

	"github.com/zefrenchwan/ehwsn-sim/kpi"
)

func TestDiscoveryKPIsNotApplicableBeforeFirstSuccess(t *testing.T) {
	acc := kpi.New()
	acc.StartDiscovery(1000)
	acc.SendDiscovery(500, 0.01, 0.05)

	_, _, applicable, _ := acc.DiscoveryKPIs()
	if applicable {
		t.Fatal("DiscoveryKPIs reported applicable before any successful reception, want not-applicable")
	}
}

func TestDiscoveryKPIsLatencyAfterFirstSuccess(t *testing.T) {
	acc := kpi.New()
	acc.StartDiscovery(1000)
	acc.ReceiveDiscovery(500, 6000, 0.01, 0.02)

	energyPerCycle, latencySec, applicable, _ := acc.DiscoveryKPIs()
	if !applicable {
		t.Fatal("DiscoveryKPIs reported not-applicable after a successful reception")
	}
	if want := 5.0; latencySec != want {
		t.Fatalf("timeToSuccessSec = %v, want %v", latencySec, want)
	}
	if energyPerCycle <= 0 {
		t.Fatalf("energyPerCycleJ = %v, want > 0", energyPerCycle)
	}
}

func TestStartDiscoveryOnlyRecordsTheFirstCall(t *testing.T) {
	acc := kpi.New()
	acc.StartDiscovery(1000)
	acc.StartDiscovery(5000)
	acc.ReceiveDiscovery(0, 1000, 0, 0)

	_, latencySec, _, _ := acc.DiscoveryKPIs()
	if latencySec != 0 {
		t.Fatalf("timeToSuccessSec = %v, want 0 (start time should have been pinned at the first call)", latencySec)
	}
}

func TestDiscoverySuccessRatePctIsZeroWithNoAttempts(t *testing.T) {
	acc := kpi.New()
	if rate := acc.DiscoverySuccessRatePct(); rate != 0 {
		t.Fatalf("DiscoverySuccessRatePct() = %v on a fresh accumulator, want 0", rate)
	}
}

func TestDiscoverySuccessRatePctTracksActualSends(t *testing.T) {
	acc := kpi.New()
	acc.RecordDiscoverySent()
	acc.RecordDiscoverySent()
	acc.RecordDiscoverySuccess()

	if got, want := acc.DiscoverySuccessRatePct(), 50.0; got != want {
		t.Fatalf("DiscoverySuccessRatePct() = %v, want %v", got, want)
	}
}

func TestEnergySplitBetweenDiscoveryAndSync(t *testing.T) {
	acc := kpi.New()
	acc.AddEnergy(10)
	acc.SendDiscovery(100, 0.01, 0.05)

	discovery := acc.DiscoveryEnergyJ()
	sync := acc.SyncEnergyJ()
	if discovery+sync != acc.TotalEnergyJ {
		t.Fatalf("discovery (%v) + sync (%v) != total (%v)", discovery, sync, acc.TotalEnergyJ)
	}
}
