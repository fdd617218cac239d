package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"smartscore/internal/model"
)

func printLeaderboard(out io.Writer, entries []model.LeaderboardEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(out, "leaderboard is empty")
		return nil
	}
	fmt.Fprintf(out, "\nLeaderboard %s (%d wallets)\n", model.FormatDay(entries[0].RankDate), len(entries))

	table := tablewriter.NewWriter(out)
	table.Header("#", "Wallet", "Score", "Win rate", "Avg ROI", "Volume", "Bait", "Reasons")
	for _, e := range entries {
		if err := table.Append(
			fmt.Sprintf("%d", e.Rank),
			e.Wallet,
			fmt.Sprintf("%.2f", e.Score),
			formatRate(e.WinRate),
			formatRate(e.AvgROI),
			fmt.Sprintf("$%.2f", e.TotalVolume),
			fmt.Sprintf("%.2f", e.BaitScore),
			strings.Join(e.Reasons, ", "),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func printFeatures(out io.Writer, rows []model.WalletDayFeatures) error {
	if len(rows) == 0 {
		fmt.Fprintln(out, "no wallet features")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.Header("Wallet", "Trades", "W/L", "Win rate", "Avg ROI", "Volume", "Markets", "HHI", "Bait", "Entry", "Insider", "HF")
	for _, f := range rows {
		if err := table.Append(
			f.Wallet,
			fmt.Sprintf("%d", f.Trades),
			fmt.Sprintf("%d/%d", f.Wins, f.Losses),
			formatRate(f.WinRate),
			formatRate(f.AvgROI),
			fmt.Sprintf("$%.2f", f.TotalVolume),
			fmt.Sprintf("%d", f.UniqueMarkets),
			fmt.Sprintf("%.2f", f.ConcentrationIndex),
			fmt.Sprintf("%.2f", f.BaitScore),
			formatSeconds(f.EntryTimingSeconds),
			formatFlag(f.InsiderFlag),
			formatFlag(f.HighFrequency),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func formatRate(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

func formatSeconds(v *float64) string {
	if v == nil {
		return "-"
	}
	return (time.Duration(*v) * time.Second).String()
}

func formatFlag(v bool) string {
	if v {
		return "yes"
	}
	return ""
}
