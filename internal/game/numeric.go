package game

import "math"

func ClampMargin(m float64) float64 {
	return clamp(m, MinMargin, MaxMargin)
}

func CapGrowthRate(r float64) float64 {
	return clamp(r, MinGrowthRate, MaxGrowthRate)
}

// FloorResult is the EBITDA and margin pair left after the acquisition floor is enforced.
type FloorResult struct {
	Ebitda int64   `json:"ebitda"`
	Margin float64 `json:"margin"`
}

// ApplyEbitdaFloor holds EBITDA at 30% of acquisition EBITDA. When the floor binds the
// margin is re-derived from revenue so Ebitda == round(Revenue*Margin) still holds.
func ApplyEbitdaFloor(ebitda, revenue int64, margin float64, acquisitionEbitda int64) FloorResult {
	floor := roundInt(float64(acquisitionEbitda) * EbitdaFloorFraction)
	if ebitda >= floor {
		return FloorResult{Ebitda: ebitda, Margin: margin}
	}
	if revenue <= 0 {
		return FloorResult{Ebitda: floor, Margin: margin}
	}
	return FloorResult{Ebitda: floor, Margin: math.Max(MinMargin, float64(floor)/float64(revenue))}
}

func DeriveEbitda(revenue int64, margin float64) int64 {
	return roundInt(float64(revenue) * margin)
}

// RecomputeFinancials is the single mutation seam for revenue and margin. It clamps the
// margin, derives EBITDA, enforces the floor and advances the peaks.
func RecomputeFinancials(b Business, revenue int64, margin float64) Business {
	out := b.Clone()
	margin = ClampMargin(margin)
	floored := ApplyEbitdaFloor(DeriveEbitda(revenue, margin), revenue, margin, out.AcquisitionEbitda)
	out.Revenue = revenue
	out.EbitdaMargin = floored.Margin
	out.Ebitda = floored.Ebitda
	if out.Revenue > out.PeakRevenue {
		out.PeakRevenue = out.Revenue
	}
	if out.Ebitda > out.PeakEbitda {
		out.PeakEbitda = out.Ebitda
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundInt(v float64) int64 {
	return int64(math.Round(v))
}

func absInt(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
