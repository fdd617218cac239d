package model

import "time"

// WalletDayFeatures stores the trailing-window features of one wallet as of one day.
// Nil pointers mean the value is undefined for the window.
type WalletDayFeatures struct {
	Wallet             string     `json:"wallet"`
	Day                time.Time  `json:"day"`
	Trades             int        `json:"trades"`
	Wins               int        `json:"wins"`
	Losses             int        `json:"losses"`
	WinRate            *float64   `json:"win_rate"`
	AvgROI             *float64   `json:"avg_roi"`
	ROIStd             float64    `json:"roi_std"`
	TotalVolume        float64    `json:"total_volume"`
	AvgTicketSize      float64    `json:"avg_ticket_size"`
	MedianTicketSize   float64    `json:"median_ticket_size"`
	UniqueMarkets      int        `json:"unique_markets"`
	ConcentrationIndex float64    `json:"concentration_index"`
	MeanHoldSeconds    *float64   `json:"mean_hold_time_seconds"`
	MaxDrawdown        float64    `json:"max_drawdown"`
	BaitScore          float64    `json:"bait_score"`
	EntryTimingSeconds *float64   `json:"entry_timing_seconds"`
	EntryCount         int        `json:"entry_count"`
	InsiderHitRate     *float64   `json:"insider_hit_rate"`
	InsiderFlag        bool       `json:"insider_flag"`
	HighFrequency      bool       `json:"is_high_freq"`
	LastTradeAt        *time.Time `json:"last_trade_at"`
}

// Resolved returns the number of trades classified as win or loss.
func (f WalletDayFeatures) Resolved() int {
	return f.Wins + f.Losses
}
