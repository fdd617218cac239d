package importer

import (
	"fmt"
	"time"

	"smartscore/internal/fsutil"
)

// Checkpoint records how far into a source file the importer got. LastLine is
// the last input line whose trades were committed.
type Checkpoint struct {
	Source    string `json:"source"`
	LastLine  int    `json:"last_line"`
	UpdatedAt string `json:"updated_at"`
}

// Covers reports whether line of source was already committed.
func (cp Checkpoint) Covers(source string, line int) bool {
	return cp.Source == source && line <= cp.LastLine
}

// CheckpointStore keeps one Checkpoint in a JSON file. A store without a
// path, or one that is disabled, never loads or saves anything.
type CheckpointStore struct {
	path string
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	if !enabled {
		path = ""
	}
	return &CheckpointStore{path: path}
}

func (c *CheckpointStore) Load() (Checkpoint, bool, error) {
	if c.path == "" {
		return Checkpoint{}, false, nil
	}
	var cp Checkpoint
	ok, err := fsutil.ReadJSON(c.path, &cp)
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("load checkpoint: %w", err)
	}
	return cp, ok, nil
}

func (c *CheckpointStore) Save(source string, lastLine int) error {
	if c.path == "" {
		return nil
	}
	err := fsutil.WriteJSON(c.path, Checkpoint{
		Source:    source,
		LastLine:  lastLine,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
