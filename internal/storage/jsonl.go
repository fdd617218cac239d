package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"smartscore/internal/fsutil"
	"smartscore/internal/model"
)

// JsonlStorage keeps feature and leaderboard snapshots as one JSONL file per
// day under a base directory:
//
//	<dir>/features/<day>.jsonl     sorted by wallet
//	<dir>/leaderboard/<day>.jsonl  sorted by rank
//
// Files are replaced through a temp file and rename.
type JsonlStorage struct {
	dir string
	mu  sync.Mutex
}

func NewJsonlStorage(dir string) *JsonlStorage {
	return &JsonlStorage{dir: dir}
}

func (s *JsonlStorage) featuresPath(day time.Time) string {
	return filepath.Join(s.dir, "features", model.FormatDay(day)+".jsonl")
}

func (s *JsonlStorage) leaderboardPath(day time.Time) string {
	return filepath.Join(s.dir, "leaderboard", model.FormatDay(day)+".jsonl")
}

// UpsertFeatures merges rows into the per-day snapshot files, replacing rows
// of the same wallet.
func (s *JsonlStorage) UpsertFeatures(ctx context.Context, rows []model.WalletDayFeatures) error {
	if len(rows) == 0 {
		return nil
	}
	byDay := make(map[string][]model.WalletDayFeatures)
	for _, row := range rows {
		key := model.FormatDay(row.Day)
		byDay[key] = append(byDay[key], row)
	}
	days := make([]string, 0, len(byDay))
	for key := range byDay {
		days = append(days, key)
	}
	sort.Strings(days)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range days {
		if err := ctx.Err(); err != nil {
			return err
		}
		day, err := model.ParseDay(key)
		if err != nil {
			return err
		}
		path := s.featuresPath(day)
		existing, err := readJSONL[model.WalletDayFeatures](path)
		if err != nil {
			return err
		}
		merged := make(map[string]model.WalletDayFeatures, len(existing)+len(byDay[key]))
		for _, row := range existing {
			merged[row.Wallet] = row
		}
		for _, row := range byDay[key] {
			row.Day = day
			merged[row.Wallet] = row
		}
		out := make([]model.WalletDayFeatures, 0, len(merged))
		for _, row := range merged {
			out = append(out, row)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Wallet < out[j].Wallet })
		if err := writeJSONL(path, out); err != nil {
			return err
		}
	}
	return nil
}

// LoadFeatures returns the stored rows of day sorted by wallet.
func (s *JsonlStorage) LoadFeatures(ctx context.Context, day time.Time) ([]model.WalletDayFeatures, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readJSONL[model.WalletDayFeatures](s.featuresPath(day))
}

// ReplaceLeaderboard swaps the leaderboard file of day.
func (s *JsonlStorage) ReplaceLeaderboard(ctx context.Context, day time.Time, entries []model.LeaderboardEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out := make([]model.LeaderboardEntry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONL(s.leaderboardPath(day), out)
}

// LoadLeaderboard returns the stored entries of day in rank order.
func (s *JsonlStorage) LoadLeaderboard(ctx context.Context, day time.Time) ([]model.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readJSONL[model.LeaderboardEntry](s.leaderboardPath(day))
}

func readJSONL[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()

	var out []T
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", path, line, err)
		}
		out = append(out, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return out, nil
}

func writeJSONL[T any](path string, rows []T) error {
	return fsutil.WriteAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		for _, row := range rows {
			if err := enc.Encode(row); err != nil {
				return fmt.Errorf("encode row: %w", err)
			}
		}
		return nil
	})
}
