package pipeline

import (
	"context"
	"fmt"
	"time"

	"smartscore/internal/fsutil"
	"smartscore/internal/model"
	"smartscore/internal/storage/postgres"
)

// State records the last day whose leaderboard was written.
type State struct {
	LastDay time.Time
	RunID   string
}

// StateStore persists pipeline state between runs.
type StateStore interface {
	Load(ctx context.Context) (State, bool, error)
	Save(ctx context.Context, state State) error
}

// FileStateStore stores state in a local JSON file.
type FileStateStore struct {
	Path string
}

type stateRecord struct {
	LastDay   string `json:"last_day"`
	RunID     string `json:"run_id"`
	UpdatedAt string `json:"updated_at"`
}

func (s *FileStateStore) Load(ctx context.Context) (State, bool, error) {
	if s == nil || s.Path == "" {
		return State{}, false, nil
	}
	var rec stateRecord
	ok, err := fsutil.ReadJSON(s.Path, &rec)
	if err != nil || !ok {
		return State{}, false, err
	}
	day, err := model.ParseDay(rec.LastDay)
	if err != nil {
		return State{}, false, fmt.Errorf("parse state: %w", err)
	}
	return State{LastDay: day, RunID: rec.RunID}, true, nil
}

func (s *FileStateStore) Save(ctx context.Context, state State) error {
	if s == nil || s.Path == "" {
		return nil
	}
	return fsutil.WriteJSON(s.Path, stateRecord{
		LastDay:   model.FormatDay(state.LastDay),
		RunID:     state.RunID,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// DBStateStore stores state in the pipeline_state table.
type DBStateStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBStateStore) Load(ctx context.Context) (State, bool, error) {
	if s == nil || s.Store == nil {
		return State{}, false, nil
	}
	day, runID, ok, err := s.Store.LoadState(ctx, s.Name)
	if err != nil || !ok {
		return State{}, ok, err
	}
	return State{LastDay: day, RunID: runID}, true, nil
}

func (s *DBStateStore) Save(ctx context.Context, state State) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveState(ctx, s.Name, model.Day(state.LastDay), state.RunID)
}
