package risk

import (
	"fmt"
	"math"
	"strings"
)

// SizingInput carries everything a sizer may need
type SizingInput struct {
	Balance     float64
	EntryPrice  float64
	StopLossPct float64 // distance to stop as percent of entry
	Confidence  float64
	Volatility  float64
	RiskBudget  float64 // USD budget after confidence scaling and clamping
}

// PositionSizer turns a sizing input into a quantity in base units
type PositionSizer interface {
	Method() SizingMethod
	Size(in SizingInput) (float64, error)
}

// NewPositionSizer returns the sizer for the named method, Kelly when unknown
func NewPositionSizer(method SizingMethod, cfg Config) PositionSizer {
	switch SizingMethod(strings.ToLower(strings.TrimSpace(string(method)))) {
	case SizingFixed:
		return &FixedSizer{AmountUSD: cfg.FixedUSDAmount}
	case SizingPercentage:
		return &PercentageSizer{Percent: cfg.PercentageAmount}
	case SizingVolatilityAdjusted:
		return &VolatilityAdjustedSizer{
			HighThreshold: cfg.HighVolatilityThreshold,
			LowThreshold:  cfg.LowVolatilityThreshold,
		}
	default:
		return &KellySizer{FractionCap: cfg.KellyFractionCap}
	}
}

// KellyFraction returns the Kelly fraction for win probability p at the fixed
// reward:risk ratio, clamped to [0, cap]
func KellyFraction(p, cap float64) float64 {
	b := RewardRiskRatio
	f := (b*p - (1 - p)) / b
	if f < 0 {
		return 0
	}
	if f > cap {
		return cap
	}
	return f
}

// KellySizer sizes by the capped Kelly fraction of balance over stop distance
type KellySizer struct {
	FractionCap float64
}

func (s *KellySizer) Method() SizingMethod { return SizingKelly }

func (s *KellySizer) Size(in SizingInput) (float64, error) {
	if in.StopLossPct <= 0 {
		return 0, fmt.Errorf("kelly sizing requires a positive stop distance, got %.4f%%", in.StopLossPct)
	}
	f := KellyFraction(in.Confidence, s.FractionCap)
	return in.Balance * f / (in.StopLossPct / 100), nil
}

// FixedSizer buys a fixed USD notional
type FixedSizer struct {
	AmountUSD float64
}

func (s *FixedSizer) Method() SizingMethod { return SizingFixed }

func (s *FixedSizer) Size(in SizingInput) (float64, error) {
	if in.EntryPrice <= 0 {
		return 0, fmt.Errorf("fixed sizing requires a positive entry price")
	}
	return s.AmountUSD / in.EntryPrice, nil
}

// PercentageSizer buys a percentage of balance as notional
type PercentageSizer struct {
	Percent float64
}

func (s *PercentageSizer) Method() SizingMethod { return SizingPercentage }

func (s *PercentageSizer) Size(in SizingInput) (float64, error) {
	if in.EntryPrice <= 0 {
		return 0, fmt.Errorf("percentage sizing requires a positive entry price")
	}
	return in.Balance * s.Percent / 100 / in.EntryPrice, nil
}

// VolatilityAdjustedSizer shrinks size in high volatility and grows it in low
type VolatilityAdjustedSizer struct {
	HighThreshold float64
	LowThreshold  float64
}

func (s *VolatilityAdjustedSizer) Method() SizingMethod { return SizingVolatilityAdjusted }

func (s *VolatilityAdjustedSizer) Size(in SizingInput) (float64, error) {
	if in.StopLossPct <= 0 {
		return 0, fmt.Errorf("volatility sizing requires a positive stop distance, got %.4f%%", in.StopLossPct)
	}
	size := in.RiskBudget / (in.StopLossPct / 100)
	switch {
	case in.Volatility > s.HighThreshold:
		size *= 0.7
	case in.Volatility < s.LowThreshold:
		size *= 1.2
	}
	return size, nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
