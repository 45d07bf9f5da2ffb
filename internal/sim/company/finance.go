package company

import (
	"github.com/blackrab369/Versaas-ai/internal/protocol"
	"github.com/blackrab369/Versaas-ai/internal/sim/tuning"
)

// finances keeps the books in int64 minor units only. Daily sub-totals back
// the launch gate's cash-positive streak and reset at each day boundary.
type finances struct {
	cfg tuning.Finance

	RevenueMinor       int64
	BurnMinor          int64
	RevenueTodayMinor  int64
	BurnTodayMinor     int64
	CashPositiveStreak int
}

func newFinances(cfg tuning.Finance) finances {
	return finances{cfg: cfg}
}

// accrueRevenue books a completed revenue task at the phase multiplier,
// permille integer arithmetic throughout.
func (f *finances) accrueRevenue(baseMinor int64, phase int) {
	var mult int64
	if phase >= 0 && phase < len(f.cfg.RevenueMultiplierPermille) {
		mult = f.cfg.RevenueMultiplierPermille[phase]
	}
	delta := baseMinor * mult / 1000
	f.RevenueMinor += delta
	f.RevenueTodayMinor += delta
}

func (f *finances) accrueBurn(headcount, hours int64) {
	delta := f.cfg.OperatingCostPerAgentHourMinor * headcount * hours
	f.BurnMinor += delta
	f.BurnTodayMinor += delta
}

func (f *finances) reserves() int64 {
	return f.cfg.StartingReservesMinor + f.RevenueMinor - f.BurnMinor
}

// runwayDays divides reserves by the daily burn rate. A zero burn rate
// yields the infinite sentinel, never a division fault; exhausted reserves
// yield zero, never a negative runway.
func (f *finances) runwayDays(headcount int64) int64 {
	perDay := f.cfg.OperatingCostPerAgentHourMinor * headcount * 24
	if perDay == 0 {
		return protocol.RunwayInfinite
	}
	res := f.reserves()
	if res <= 0 {
		return 0
	}
	return res / perDay
}

func (f *finances) snapshot(headcount int64) protocol.FinanceSnapshot {
	return protocol.FinanceSnapshot{
		RevenueMinor:  f.RevenueMinor,
		BurnMinor:     f.BurnMinor,
		ReservesMinor: f.reserves(),
		RunwayDays:    f.runwayDays(headcount),
	}
}
