package game

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// maxConsecutiveRejections bounds how often a provider may submit illegal
// actions before the runner concedes on its behalf, so a buggy provider
// cannot wedge a match.
const maxConsecutiveRejections = 10

// RunMatch drives a started match to completion by pumping decisions from
// the players' providers: mulligans first, then one action at a time from
// the active player. Returns the terminal state.
func RunMatch(ctx context.Context, e *Engine, gameID string, providers map[string]DecisionProvider) (*GameState, error) {
	st, err := e.CurrentState(gameID)
	if err != nil {
		return nil, err
	}

	if st.Phase == PhaseMulligan {
		for _, p := range st.Players {
			provider, ok := providers[p.PlayerID]
			if !ok {
				return nil, fmt.Errorf("no decision provider for player %s", p.PlayerID)
			}
			replace, err := provider.RequestMulligan(ctx, st.ViewFor(p.PlayerID), p.PlayerID)
			if err != nil {
				return nil, fmt.Errorf("mulligan for %s: %w", p.PlayerID, err)
			}
			if st, err = e.SubmitMulligan(gameID, p.PlayerID, replace); err != nil {
				return nil, fmt.Errorf("submit mulligan for %s: %w", p.PlayerID, err)
			}
		}
	}

	rejections := 0
	for !st.Over() {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		active := st.activePlayer().PlayerID
		provider, ok := providers[active]
		if !ok {
			return nil, fmt.Errorf("no decision provider for player %s", active)
		}

		action, err := provider.RequestAction(ctx, st.ViewFor(active), active)
		if err != nil {
			return nil, fmt.Errorf("decision for %s: %w", active, err)
		}

		next, err := e.SubmitAction(gameID, active, action)
		if rejected, ok := AsRejected(err); ok {
			rejections++
			e.logger.Warn("provider action rejected",
				zap.String("game_id", gameID),
				zap.String("player", active),
				zap.String("reason", string(rejected.Reason)),
				zap.Int("consecutive", rejections),
			)
			if rejections >= maxConsecutiveRejections {
				if st, err = e.Concede(gameID, active); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		rejections = 0
		st = next
	}
	return st, nil
}
