package ranking

import (
	"fmt"

	"smartscore/internal/model"
)

// Reason codes attached to leaderboard entries.
const (
	ReasonHighWinRate     = "high_win_rate"
	ReasonConsistentROI   = "consistent_roi"
	ReasonPositiveROI     = "positive_roi"
	ReasonHighVolume      = "high_volume"
	ReasonDiversified     = "diversified"
	ReasonEarlyEntry      = "early_entry"
	ReasonLongHorizon     = "long_horizon"
	ReasonShallowDrawdown = "shallow_drawdown"
	ReasonLowBait         = "low_bait_score"
	ReasonHighBait        = "high_bait_score"
	ReasonInsider         = "insider_pattern"
	ReasonHighFrequency   = "high_frequency"
)

// ReasonThresholds are the cut-offs used by the default reason rules.
type ReasonThresholds struct {
	HighWinRate      float64
	ConsistentROIStd float64
	LowBait          float64
	HighBait         float64
	HighVolume       float64
	MaxConcentration float64
	LongHoldSeconds  float64
	MaxDrawdown      float64

	// EarlyEntrySeconds is the largest mean delay after a market's first
	// window trade that still counts as an early entry.
	EarlyEntrySeconds float64

	// MaxReasons is how many matching rules an entry keeps.
	MaxReasons int
}

func DefaultReasonThresholds() ReasonThresholds {
	return ReasonThresholds{
		HighWinRate:       0.6,
		ConsistentROIStd:  0.25,
		LowBait:           0.2,
		HighBait:          0.5,
		HighVolume:        50_000,
		MaxConcentration:  0.5,
		EarlyEntrySeconds: 6 * 60 * 60,
		LongHoldSeconds:   24 * 60 * 60,
		MaxDrawdown:       0.2,
		MaxReasons:        3,
	}
}

// Rule labels a feature row when its predicate matches.
type Rule struct {
	Code  string
	Match func(model.WalletDayFeatures) bool
}

// DefaultRules returns the rule list in evaluation order. positive_roi only
// matches when consistent_roi does not, and low_bait_score comes last among
// the positive rules since most wallets never bait.
func DefaultRules(th ReasonThresholds) []Rule {
	consistent := func(f model.WalletDayFeatures) bool {
		return f.AvgROI != nil && *f.AvgROI > 0 && f.Resolved() >= 2 && f.ROIStd <= th.ConsistentROIStd
	}
	return []Rule{
		{ReasonHighWinRate, func(f model.WalletDayFeatures) bool {
			return f.WinRate != nil && *f.WinRate >= th.HighWinRate
		}},
		{ReasonConsistentROI, consistent},
		{ReasonPositiveROI, func(f model.WalletDayFeatures) bool {
			return f.AvgROI != nil && *f.AvgROI > 0 && !consistent(f)
		}},
		{ReasonHighVolume, func(f model.WalletDayFeatures) bool {
			return f.TotalVolume >= th.HighVolume
		}},
		{ReasonDiversified, func(f model.WalletDayFeatures) bool {
			return f.UniqueMarkets > 1 && f.ConcentrationIndex <= th.MaxConcentration
		}},
		{ReasonEarlyEntry, func(f model.WalletDayFeatures) bool {
			return f.EntryTimingSeconds != nil && *f.EntryTimingSeconds <= th.EarlyEntrySeconds
		}},
		{ReasonLongHorizon, func(f model.WalletDayFeatures) bool {
			return f.MeanHoldSeconds != nil && *f.MeanHoldSeconds >= th.LongHoldSeconds
		}},
		{ReasonShallowDrawdown, func(f model.WalletDayFeatures) bool {
			return f.Resolved() > 0 && f.MaxDrawdown <= th.MaxDrawdown
		}},
		{ReasonLowBait, func(f model.WalletDayFeatures) bool {
			return f.Resolved() > 0 && f.BaitScore <= th.LowBait
		}},
		{ReasonHighBait, func(f model.WalletDayFeatures) bool {
			return f.BaitScore >= th.HighBait
		}},
		{ReasonInsider, func(f model.WalletDayFeatures) bool {
			return f.InsiderFlag
		}},
		{ReasonHighFrequency, func(f model.WalletDayFeatures) bool {
			return f.HighFrequency
		}},
	}
}

// SelectRules keeps the rules named in codes, in the order given. An empty
// list keeps every rule.
func SelectRules(rules []Rule, codes []string) ([]Rule, error) {
	if len(codes) == 0 {
		return rules, nil
	}
	byCode := make(map[string]Rule, len(rules))
	for _, rule := range rules {
		byCode[rule.Code] = rule
	}
	out := make([]Rule, 0, len(codes))
	for _, code := range codes {
		rule, ok := byCode[code]
		if !ok {
			return nil, fmt.Errorf("unknown reason code: %s", code)
		}
		out = append(out, rule)
	}
	return out, nil
}

// Reasons evaluates rules in order and keeps the first max matches.
func Reasons(f model.WalletDayFeatures, rules []Rule, max int) []string {
	out := make([]string, 0, max)
	for _, rule := range rules {
		if len(out) >= max {
			break
		}
		if rule.Match(f) {
			out = append(out, rule.Code)
		}
	}
	return out
}
