package ranking

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"smartscore/internal/model"
)

// DefaultTopK is the leaderboard size.
const DefaultTopK = 100

// Config controls ranking behavior.
type Config struct {
	Weights             Weights
	Reasons             ReasonThresholds
	ReasonCodes         []string
	MinTradesForRanking int
	TopK                int
}

// Engine orders wallets by composite score.
type Engine struct {
	cfg    Config
	rules  []Rule
	logger *zap.Logger
}

func NewEngine(cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Reasons.MaxReasons < 0 {
		return nil, fmt.Errorf("max reasons must be >= 0")
	}
	rules, err := SelectRules(DefaultRules(cfg.Reasons), cfg.ReasonCodes)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, rules: rules, logger: logger}, nil
}

type scored struct {
	features model.WalletDayFeatures
	score    float64
}

// less orders by score desc, total volume desc, wallet asc.
func (s scored) less(o scored) bool {
	if s.score != o.score {
		return s.score > o.score
	}
	if s.features.TotalVolume != o.features.TotalVolume {
		return s.features.TotalVolume > o.features.TotalVolume
	}
	return s.features.Wallet < o.features.Wallet
}

// BuildLeaderboard ranks the eligible feature rows of day and returns the top
// entries. Every wallet must appear at most once in features.
func (e *Engine) BuildLeaderboard(day time.Time, features []model.WalletDayFeatures) ([]model.LeaderboardEntry, error) {
	day = model.Day(day)
	seen := make(map[string]struct{}, len(features))
	candidates := make([]scored, 0, len(features))
	for _, f := range features {
		if _, ok := seen[f.Wallet]; ok {
			return nil, fmt.Errorf("duplicate wallet in features: %s", f.Wallet)
		}
		seen[f.Wallet] = struct{}{}
		if !f.Day.IsZero() && !model.Day(f.Day).Equal(day) {
			return nil, fmt.Errorf("wallet %s: features for %s, ranking %s", f.Wallet, model.FormatDay(f.Day), model.FormatDay(day))
		}
		if f.Trades < e.cfg.MinTradesForRanking {
			continue
		}
		candidates = append(candidates, scored{features: f, score: Score(f, e.cfg.Weights)})
	}

	eligible := len(candidates)
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].less(candidates[j])
	})
	if len(candidates) > e.cfg.TopK {
		candidates = candidates[:e.cfg.TopK]
	}

	entries := make([]model.LeaderboardEntry, 0, len(candidates))
	for i, c := range candidates {
		entries = append(entries, model.LeaderboardEntry{
			RankDate:    day,
			Rank:        i + 1,
			Wallet:      c.features.Wallet,
			Score:       c.score,
			Reasons:     Reasons(c.features, e.rules, e.cfg.Reasons.MaxReasons),
			WinRate:     c.features.WinRate,
			AvgROI:      c.features.AvgROI,
			TotalVolume: c.features.TotalVolume,
			BaitScore:   c.features.BaitScore,
		})
	}

	e.logger.Info("leaderboard built",
		zap.String("day", model.FormatDay(day)),
		zap.Int("features", len(features)),
		zap.Int("eligible", eligible),
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}
