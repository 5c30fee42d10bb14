package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ActionType is the closed set of actions a player can submit during the
// main phase.
type ActionType string

const (
	ActionPlayCard  ActionType = "PLAY_CARD"
	ActionAttack    ActionType = "ATTACK"
	ActionHeroPower ActionType = "HERO_POWER"
	ActionEndTurn   ActionType = "END_TURN"
	ActionConcede   ActionType = "CONCEDE"
)

// Action is a single player decision. Exactly one action is accepted and
// fully resolved per submission.
type Action struct {
	Type ActionType `json:"type"`
	// HandIndex selects the card to play for PLAY_CARD.
	HandIndex int `json:"hand_index,omitempty"`
	// TargetID is an explicit effect target for PLAY_CARD or HERO_POWER:
	// a creature instance id or a player id.
	TargetID string `json:"target_id,omitempty"`
	// AttackerID for ATTACK: a creature instance id, or the player's own id
	// for a hero weapon attack.
	AttackerID string `json:"attacker_id,omitempty"`
	// DefenderID for ATTACK: a creature instance id, or empty/player id for
	// a face attack.
	DefenderID string `json:"defender_id,omitempty"`
}

// DecisionProvider supplies the next decision when the engine prompts for
// one. Implementations may block (human input) or compute (AI); the engine
// only requires an eventual return.
type DecisionProvider interface {
	// RequestAction returns the next action for the given player. The state
	// is a redacted view for that player.
	RequestAction(ctx context.Context, state *GameState, playerID string) (Action, error)
	// RequestMulligan returns the hand indices the player wants to replace.
	RequestMulligan(ctx context.Context, state *GameState, playerID string) ([]int, error)
}

// RejectReason is the typed cause attached to a rejected action.
type RejectReason string

const (
	ReasonWrongPhase       RejectReason = "WRONG_PHASE"
	ReasonNotYourTurn      RejectReason = "NOT_YOUR_TURN"
	ReasonInsufficientMana RejectReason = "INSUFFICIENT_MANA"
	ReasonBoardFull        RejectReason = "BOARD_FULL"
	ReasonInvalidCard      RejectReason = "INVALID_CARD"
	ReasonInvalidTarget    RejectReason = "INVALID_TARGET"
	ReasonCannotAttack     RejectReason = "CANNOT_ATTACK"
	ReasonAlreadyAttacked  RejectReason = "ALREADY_ATTACKED"
	ReasonTauntInWay       RejectReason = "TAUNT_IN_WAY"
	ReasonNoWeapon         RejectReason = "NO_WEAPON"
	ReasonNoHeroPower      RejectReason = "NO_HERO_POWER"
	ReasonHeroPowerUsed    RejectReason = "HERO_POWER_USED"
	ReasonUnknownCard      RejectReason = "UNKNOWN_CARD"
	ReasonUnknownAction    RejectReason = "UNKNOWN_ACTION"
	ReasonMatchOver        RejectReason = "MATCH_OVER"
)

// ActionRejectedError reports a per-action legality failure. The match state
// is unchanged and no event was emitted; the caller should re-prompt.
type ActionRejectedError struct {
	Reason RejectReason
	Detail string
}

func (e *ActionRejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("action rejected: %s", e.Reason)
	}
	return fmt.Sprintf("action rejected: %s: %s", e.Reason, e.Detail)
}

// reject builds an ActionRejectedError with a formatted detail.
func reject(reason RejectReason, format string, args ...any) *ActionRejectedError {
	return &ActionRejectedError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// AsRejected unwraps err into an ActionRejectedError if it is one.
func AsRejected(err error) (*ActionRejectedError, bool) {
	var rejected *ActionRejectedError
	if errors.As(err, &rejected) {
		return rejected, true
	}
	return nil, false
}

// DeckInvalidError carries every construction violation found before a match
// could start.
type DeckInvalidError struct {
	Violations []string
}

func (e *DeckInvalidError) Error() string {
	return fmt.Sprintf("deck invalid: %s", strings.Join(e.Violations, "; "))
}

// MatchFailedError reports an unresolvable engine failure (catalog desync,
// runaway trigger cascade). The match is closed gracefully with an ABORTED
// outcome rather than left in undefined state.
type MatchFailedError struct {
	Cause error
}

func (e *MatchFailedError) Error() string {
	return fmt.Sprintf("match failed: %v", e.Cause)
}

func (e *MatchFailedError) Unwrap() error { return e.Cause }

// Sentinel errors for match-level conditions.
var (
	ErrMatchTerminated = errors.New("match already ended")
	ErrUnknownMatch    = errors.New("unknown match id")
	ErrUnknownPlayer   = errors.New("player not in match")
)
