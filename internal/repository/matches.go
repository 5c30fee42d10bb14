package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openduel/duel-server-go/internal/game"
)

// MatchRecord is the archived summary of a finished match.
type MatchRecord struct {
	GameID     string
	PlayerA    string
	PlayerB    string
	Winner     string
	WinReason  game.WinCondition
	Turns      int
	Seed       int64
	StartedAt  time.Time
	FinishedAt time.Time
}

// MatchRepository stores finished matches and their event logs.
type MatchRepository struct {
	db *DB
}

// NewMatchRepository creates a repository backed by the given database.
func NewMatchRepository(db *DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// SaveMatch archives a terminal game state together with its full event
// log, inside one transaction.
func (r *MatchRepository) SaveMatch(ctx context.Context, st *game.GameState) error {
	if !st.Over() {
		return fmt.Errorf("match %s is not finished", st.GameID)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO matches (game_id, player_a, player_b, winner, win_reason, turns, seed, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (game_id) DO NOTHING`,
		st.GameID,
		st.Players[0].PlayerID,
		st.Players[1].PlayerID,
		st.Winner,
		string(st.WinReason),
		st.Turn,
		st.Seed,
		st.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	for seq, ev := range st.Events {
		_, err = tx.Exec(ctx, `
			INSERT INTO match_events
				(game_id, seq, event_type, player_id, card_id, instance_id, target_id, amount, source, turn, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (game_id, seq) DO NOTHING`,
			st.GameID, seq, string(ev.Type), ev.PlayerID, ev.CardID,
			ev.InstanceID, ev.TargetID, ev.Amount, ev.Source, ev.Turn, ev.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", seq, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.db.logger.Info("match archived",
		zap.String("game_id", st.GameID),
		zap.String("winner", st.Winner),
		zap.String("win_reason", string(st.WinReason)),
		zap.Int("events", len(st.Events)),
	)
	return nil
}

// GetMatch loads one archived match summary.
func (r *MatchRepository) GetMatch(ctx context.Context, gameID string) (*MatchRecord, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT game_id, player_a, player_b, winner, win_reason, turns, seed, started_at, finished_at
		FROM matches WHERE game_id = $1`, gameID)

	var rec MatchRecord
	var reason string
	err := row.Scan(&rec.GameID, &rec.PlayerA, &rec.PlayerB, &rec.Winner,
		&reason, &rec.Turns, &rec.Seed, &rec.StartedAt, &rec.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("scan match %s: %w", gameID, err)
	}
	rec.WinReason = game.WinCondition(reason)
	return &rec, nil
}

// ListRecent returns the most recently finished matches, newest first.
func (r *MatchRepository) ListRecent(ctx context.Context, limit int) ([]MatchRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT game_id, player_a, player_b, winner, win_reason, turns, seed, started_at, finished_at
		FROM matches ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent matches: %w", err)
	}
	defer rows.Close()

	var records []MatchRecord
	for rows.Next() {
		var rec MatchRecord
		var reason string
		if err := rows.Scan(&rec.GameID, &rec.PlayerA, &rec.PlayerB, &rec.Winner,
			&reason, &rec.Turns, &rec.Seed, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan match row: %w", err)
		}
		rec.WinReason = game.WinCondition(reason)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// EventRows loads the archived event log for a match in order.
func (r *MatchRepository) EventRows(ctx context.Context, gameID string) ([]game.GameEvent, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT event_type, player_id, card_id, instance_id, target_id, amount, source, turn, occurred_at
		FROM match_events WHERE game_id = $1 ORDER BY seq`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []game.GameEvent
	for rows.Next() {
		var ev game.GameEvent
		var eventType string
		if err := rows.Scan(&eventType, &ev.PlayerID, &ev.CardID, &ev.InstanceID,
			&ev.TargetID, &ev.Amount, &ev.Source, &ev.Turn, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		ev.Type = game.EventType(eventType)
		events = append(events, ev)
	}
	return events, rows.Err()
}
