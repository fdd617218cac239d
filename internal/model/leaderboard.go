package model

import "time"

// LeaderboardEntry is one ranked wallet for a ranking day.
type LeaderboardEntry struct {
	RankDate    time.Time `json:"rank_date"`
	Rank        int       `json:"rank"`
	Wallet      string    `json:"wallet"`
	Score       float64   `json:"smartscore"`
	Reasons     []string  `json:"reasons"`
	WinRate     *float64  `json:"win_rate"`
	AvgROI      *float64  `json:"avg_roi"`
	TotalVolume float64   `json:"total_volume"`
	BaitScore   float64   `json:"bait_score"`
}
