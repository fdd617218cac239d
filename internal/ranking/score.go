package ranking

import (
	"math"

	"smartscore/internal/model"
)

// Components are the normalized inputs of a composite score.
type Components struct {
	WinRate float64
	ROI     float64
	Volume  float64
	Bait    float64
	Insider bool
}

// Normalize maps a feature row to [0,1] components. Absent values take the
// lowest component value.
func Normalize(f model.WalletDayFeatures, w Weights) Components {
	c := Components{
		Bait:    clamp(finite(f.BaitScore), 0, 1),
		Insider: f.InsiderFlag,
	}
	if f.WinRate != nil && isFinite(*f.WinRate) {
		c.WinRate = clamp(*f.WinRate, 0, 1)
	}
	if f.AvgROI != nil && isFinite(*f.AvgROI) {
		adjusted := *f.AvgROI - w.ROIStdPenalty*math.Max(finite(f.ROIStd), 0)
		c.ROI = 0.5 + 0.5*math.Tanh(adjusted/w.ROIScale)
	}
	if vol := finite(f.TotalVolume); vol > 0 {
		c.Volume = math.Min(1, math.Log1p(vol)/math.Log1p(w.VolumeCap))
	}
	return c
}

// Score returns the composite score of a feature row. The result lies in
// w.Range(): positive terms are a weighted mean scaled to 100, and the
// behavioral deductions are subtracted on the same scale.
func Score(f model.WalletDayFeatures, w Weights) float64 {
	c := Normalize(f, w)
	positive := (w.WinRate*c.WinRate + w.ROI*c.ROI + w.Volume*c.Volume) / (w.WinRate + w.ROI + w.Volume)
	penalty := w.Bait * c.Bait
	if c.Insider {
		penalty += w.InsiderPenalty
	}
	return 100 * (positive - penalty)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finite(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
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
