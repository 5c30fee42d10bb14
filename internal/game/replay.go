package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/openduel/duel-server-go/internal/game/cards"
)

// Replay captures everything needed to re-run a match exactly: the start
// configuration (including the random seed) and every committed decision in
// order. Re-running a completed match reproduces its final state, which
// makes the event log auditable against an independent execution.
type Replay struct {
	GameID     string
	Config     MatchConfig
	Steps      []ReplayStep
	RecordedAt time.Time
}

// ReplayStep is one committed decision: either a mulligan submission or a
// main-phase action.
type ReplayStep struct {
	PlayerID   string
	IsMulligan bool
	Mulligan   []int
	Action     Action
}

// ReplayOf snapshots the decision record of a match.
func (e *Engine) ReplayOf(gameID string) (*Replay, error) {
	m, err := e.match(gameID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r := &Replay{
		GameID:     gameID,
		Config:     m.cfg,
		RecordedAt: time.Now(),
	}
	for _, step := range m.steps {
		r.Steps = append(r.Steps, ReplayStep{
			PlayerID:   step.PlayerID,
			IsMulligan: step.IsMulligan,
			Mulligan:   append([]int(nil), step.Mulligan...),
			Action:     step.Action,
		})
	}
	return r, nil
}

// Rerun replays the recorded decisions on a fresh engine seeded identically
// and returns the resulting final state.
func (r *Replay) Rerun(catalog cards.Catalog, logger *zap.Logger) (*GameState, error) {
	engine := NewEngine(catalog, logger)
	if _, err := engine.StartMatch(r.Config); err != nil {
		return nil, fmt.Errorf("rerun start: %w", err)
	}
	for i, step := range r.Steps {
		var err error
		if step.IsMulligan {
			_, err = engine.SubmitMulligan(r.Config.GameID, step.PlayerID, step.Mulligan)
		} else {
			_, err = engine.SubmitAction(r.Config.GameID, step.PlayerID, step.Action)
		}
		if err != nil {
			return nil, fmt.Errorf("rerun step %d: %w", i, err)
		}
	}
	return engine.CurrentState(r.Config.GameID)
}

// replayFileVersion guards the on-disk format.
const replayFileVersion = 1

// replayMetadata prefixes a saved replay file.
type replayMetadata struct {
	GameID    string
	Version   int
	StepCount int
	SavedAt   time.Time
}

// SaveToFile writes the replay as a gzipped gob file named <gameID>.replay
// in the given directory, creating it if needed.
func (r *Replay) SaveToFile(directory string) error {
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("create replay directory: %w", err)
	}
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", r.GameID))
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create replay file: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	defer gz.Close()

	encoder := gob.NewEncoder(gz)
	metadata := replayMetadata{
		GameID:    r.GameID,
		Version:   replayFileVersion,
		StepCount: len(r.Steps),
		SavedAt:   time.Now(),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return fmt.Errorf("encode replay metadata: %w", err)
	}
	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("encode replay: %w", err)
	}
	return nil
}

// LoadReplayFromFile reads a replay saved by SaveToFile.
func LoadReplayFromFile(directory, gameID string) (*Replay, error) {
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", gameID))
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("open replay gzip: %w", err)
	}
	defer gz.Close()

	decoder := gob.NewDecoder(gz)
	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("decode replay metadata: %w", err)
	}
	if metadata.Version != replayFileVersion {
		return nil, fmt.Errorf("unsupported replay version %d", metadata.Version)
	}
	var replay Replay
	if err := decoder.Decode(&replay); err != nil {
		return nil, fmt.Errorf("decode replay: %w", err)
	}
	return &replay, nil
}
