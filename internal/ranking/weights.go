package ranking

import "fmt"

// Weights is the named weight per feature in the composite score, plus the
// shaping parameters of the normalization steps.
type Weights struct {
	WinRate        float64
	ROI            float64
	Volume         float64
	Bait           float64
	InsiderPenalty float64

	// ROIStdPenalty is subtracted per unit of ROI standard deviation.
	ROIStdPenalty float64
	// ROIScale is the consistency-adjusted ROI that maps to tanh(1).
	ROIScale float64
	// VolumeCap is the total volume at which the volume term saturates.
	VolumeCap float64
}

// DefaultWeights is the reference weight set.
func DefaultWeights() Weights {
	return Weights{
		WinRate:        0.30,
		ROI:            0.40,
		Volume:         0.30,
		Bait:           0.20,
		InsiderPenalty: 0.25,
		ROIStdPenalty:  0.5,
		ROIScale:       0.25,
		VolumeCap:      1_000_000,
	}
}

func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"win_rate":        w.WinRate,
		"roi":             w.ROI,
		"volume":          w.Volume,
		"bait":            w.Bait,
		"insider_penalty": w.InsiderPenalty,
		"roi_std_penalty": w.ROIStdPenalty,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must be >= 0", name)
		}
	}
	if w.WinRate+w.ROI+w.Volume <= 0 {
		return fmt.Errorf("at least one of win_rate, roi, volume weights must be > 0")
	}
	if w.ROIScale <= 0 {
		return fmt.Errorf("roi scale must be > 0")
	}
	if w.VolumeCap <= 0 {
		return fmt.Errorf("volume cap must be > 0")
	}
	return nil
}

// Range returns the bounds of the composite score for these weights.
func (w Weights) Range() (min, max float64) {
	return -100 * (w.Bait + w.InsiderPenalty), 100
}
