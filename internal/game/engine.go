package game

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openduel/duel-server-go/internal/game/cards"
	"github.com/openduel/duel-server-go/internal/game/deck"
	"github.com/openduel/duel-server-go/internal/game/rng"
)

// PlayerSetup describes one participant of a match.
type PlayerSetup struct {
	PlayerID  string
	Name      string
	Deck      deck.Deck
	HeroPower *cards.HeroPower
}

// MatchConfig carries everything needed to start (or exactly re-run) a
// match. Players[0] takes the first turn; Players[1] draws the extra card
// and The Coin.
type MatchConfig struct {
	GameID  string
	Seed    int64
	Players [2]PlayerSetup
}

// replayStep records one committed decision for later re-runs.
type replayStep struct {
	PlayerID   string
	Mulligan   []int
	IsMulligan bool
	Action     Action
}

// match is the engine-internal record of one running game. The mutex
// serializes transitions: one action fully resolves, cascades included,
// before the next is accepted.
type match struct {
	mu       sync.Mutex
	cfg      MatchConfig
	state    *GameState
	rng      rng.Source
	bus      *EventBus
	mulligan [2][]int
	mullDone [2]bool
	steps    []replayStep
}

// Engine owns every active match. It holds no hidden process-wide state:
// each Engine instance is fully independent, so tests can run one match per
// engine in isolation.
type Engine struct {
	logger   *zap.Logger
	catalog  cards.Catalog
	finished func(*GameState)
	mu       sync.RWMutex
	matches  map[string]*match
}

// NewEngine creates an engine bound to a card catalog.
func NewEngine(catalog cards.Catalog, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger:  logger,
		catalog: catalog,
		matches: make(map[string]*match),
	}
}

// OnFinished registers a hook that runs once per match when its state
// reaches GameOver, with a snapshot of the terminal state. Hosts use it to
// archive results. The hook runs while the final transition commits, so it
// must call back into the engine only from a separate goroutine. Must be
// set before matches start.
func (e *Engine) OnFinished(hook func(*GameState)) {
	e.finished = hook
}

// StartMatch validates both decks and creates a match in the mulligan
// phase. Deck problems are reported together in a single DeckInvalidError.
// The returned state is a snapshot; the caller cannot mutate engine state
// through it.
func (e *Engine) StartMatch(cfg MatchConfig) (*GameState, error) {
	var violations []string
	for _, setup := range cfg.Players {
		res := deck.Validate(setup.Deck, e.catalog)
		for _, v := range res.Violations {
			violations = append(violations, fmt.Sprintf("player %s: %s", setup.PlayerID, v))
		}
	}
	if cfg.Players[0].PlayerID == cfg.Players[1].PlayerID {
		violations = append(violations, "players must have distinct ids")
	}
	if len(violations) > 0 {
		return nil, &DeckInvalidError{Violations: violations}
	}

	if cfg.GameID == "" {
		cfg.GameID = uuid.NewString()
	}
	if cfg.Seed == 0 {
		seed, err := rng.NewSeed()
		if err != nil {
			return nil, fmt.Errorf("seed match: %w", err)
		}
		cfg.Seed = seed
	}
	source := rng.NewSeeded(cfg.Seed)

	st := &GameState{
		GameID:    cfg.GameID,
		Seed:      cfg.Seed,
		Phase:     PhaseMulligan,
		StartedAt: time.Now(),
	}
	for i, setup := range cfg.Players {
		st.Players[i] = &PlayerState{
			PlayerID:  setup.PlayerID,
			Name:      setup.Name,
			HeroClass: setup.Deck.HeroClass,
			Health:    StartingHealth,
			MaxHealth: StartingHealth,
			Deck:      setup.Deck.CardIDs(),
			HeroPower: setup.HeroPower,
		}
		source.Shuffle(len(st.Players[i].Deck), func(a, b int) {
			st.Players[i].Deck[a], st.Players[i].Deck[b] = st.Players[i].Deck[b], st.Players[i].Deck[a]
		})
	}

	// Opening hands; the mulligan decides what stays.
	for i, size := range []int{openingHandFirst, openingHandSecond} {
		p := st.Players[i]
		for j := 0; j < size; j++ {
			cardID := p.Deck[0]
			p.Deck = p.Deck[1:]
			def, err := e.catalog.Lookup(cardID)
			if err != nil {
				return nil, fmt.Errorf("deal opening hand: %w", err)
			}
			p.Hand = append(p.Hand, def)
		}
	}

	st.appendEvent(GameEvent{Type: EventGameStarted, PlayerID: cfg.Players[0].PlayerID})

	m := &match{cfg: cfg, state: st, rng: source, bus: NewEventBus()}

	e.mu.Lock()
	if _, exists := e.matches[cfg.GameID]; exists {
		e.mu.Unlock()
		return nil, fmt.Errorf("match %s already exists", cfg.GameID)
	}
	e.matches[cfg.GameID] = m
	e.mu.Unlock()

	e.logger.Info("match started",
		zap.String("game_id", cfg.GameID),
		zap.Int64("seed", cfg.Seed),
		zap.String("player_a", cfg.Players[0].PlayerID),
		zap.String("player_b", cfg.Players[1].PlayerID),
	)

	m.bus.PublishBatch(st.Events)
	return st.Clone(), nil
}

// SubmitMulligan records one player's replace choices. When both players
// have submitted, hands are finalized and the first turn starts.
func (e *Engine) SubmitMulligan(gameID, playerID string, replace []int) (*GameState, error) {
	m, err := e.match(gameID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Over() {
		return nil, ErrMatchTerminated
	}
	if m.state.Phase != PhaseMulligan {
		return nil, reject(ReasonWrongPhase, "mulligan already resolved")
	}
	idx := m.state.playerIndex(playerID)
	if idx < 0 {
		return nil, ErrUnknownPlayer
	}
	if m.mullDone[idx] {
		return nil, reject(ReasonWrongPhase, "mulligan already submitted")
	}

	seen := make(map[int]bool, len(replace))
	for _, handIdx := range replace {
		if handIdx < 0 || handIdx >= len(m.state.Players[idx].Hand) {
			return nil, reject(ReasonInvalidCard, "mulligan index %d out of range", handIdx)
		}
		if seen[handIdx] {
			return nil, reject(ReasonInvalidCard, "mulligan index %d repeated", handIdx)
		}
		seen[handIdx] = true
	}

	m.mulligan[idx] = append([]int(nil), replace...)
	m.mullDone[idx] = true
	m.steps = append(m.steps, replayStep{PlayerID: playerID, Mulligan: m.mulligan[idx], IsMulligan: true})

	if !(m.mullDone[0] && m.mullDone[1]) {
		return m.state.Clone(), nil
	}

	work := m.state.Clone()
	x := newResolution(work, m.rng, e.catalog, e.logger)
	if err := x.resolveMulligans(m.mulligan); err != nil {
		return nil, e.abort(m, err)
	}
	checkWin(work)
	e.commit(m, work)
	return work.Clone(), nil
}

// SubmitAction applies exactly one main-phase action for the given player.
// Illegal actions return a typed rejection and leave the state untouched;
// no event is emitted for them.
func (e *Engine) SubmitAction(gameID, playerID string, action Action) (*GameState, error) {
	m, err := e.match(gameID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Over() {
		return nil, ErrMatchTerminated
	}
	idx := m.state.playerIndex(playerID)
	if idx < 0 {
		return nil, ErrUnknownPlayer
	}
	// Concede is legal in any non-terminal phase and from either player.
	if action.Type != ActionConcede {
		if m.state.Phase != PhaseMain {
			return nil, reject(ReasonWrongPhase, "phase is %s", m.state.Phase)
		}
		if idx != m.state.Active {
			return nil, reject(ReasonNotYourTurn, "it is %s's turn", m.state.activePlayer().PlayerID)
		}
	}

	work := m.state.Clone()
	x := newResolution(work, m.rng, e.catalog, e.logger)
	if err := x.applyAction(idx, action); err != nil {
		if rejected, ok := AsRejected(err); ok {
			e.logger.Debug("action rejected",
				zap.String("game_id", gameID),
				zap.String("player", playerID),
				zap.String("action", string(action.Type)),
				zap.String("reason", string(rejected.Reason)),
			)
			return nil, rejected
		}
		return nil, e.abort(m, err)
	}

	checkWin(work)
	m.steps = append(m.steps, replayStep{PlayerID: playerID, Action: action})
	e.commit(m, work)

	e.logger.Debug("action applied",
		zap.String("game_id", gameID),
		zap.String("player", playerID),
		zap.String("action", string(action.Type)),
		zap.Int("turn", work.Turn),
	)
	return work.Clone(), nil
}

// Concede ends the match in the opponent's favor; hosts abandoning a match
// route through this as well.
func (e *Engine) Concede(gameID, playerID string) (*GameState, error) {
	return e.SubmitAction(gameID, playerID, Action{Type: ActionConcede})
}

// CurrentState returns a snapshot of the latest committed state.
func (e *Engine) CurrentState(gameID string) (*GameState, error) {
	m, err := e.match(gameID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone(), nil
}

// Events returns a copy of the match's ordered, append-only event log.
func (e *Engine) Events(gameID string) ([]GameEvent, error) {
	m, err := e.match(gameID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GameEvent(nil), m.state.Events...), nil
}

// Subscribe registers a listener for the match's committed events.
func (e *Engine) Subscribe(gameID string, listener Listener) (int, error) {
	m, err := e.match(gameID)
	if err != nil {
		return 0, err
	}
	return m.bus.Subscribe(listener), nil
}

// Unsubscribe removes a previously registered listener.
func (e *Engine) Unsubscribe(gameID string, handle int) {
	if m, err := e.match(gameID); err == nil {
		m.bus.Unsubscribe(handle)
	}
}

// RemoveMatch drops a finished or abandoned match from the registry.
func (e *Engine) RemoveMatch(gameID string) {
	e.mu.Lock()
	delete(e.matches, gameID)
	e.mu.Unlock()
}

// MatchIDs lists the ids of all registered matches, sorted.
func (e *Engine) MatchIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.matches))
	for id := range e.matches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) match(gameID string) (*match, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.matches[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMatch, gameID)
	}
	return m, nil
}

// commit swaps in the new state and publishes the events it added.
func (e *Engine) commit(m *match, work *GameState) {
	prev := len(m.state.Events)
	wasOver := m.state.Over()
	m.state = work
	m.bus.PublishBatch(work.Events[prev:])
	if e.finished != nil && work.Over() && !wasOver {
		e.finished(work.Clone())
	}
}

// abort closes the match gracefully after an unresolvable failure, e.g. a
// catalog desync or a runaway trigger cascade. The committed state moves to
// GameOver with an ABORTED outcome; the caller gets a typed error.
func (e *Engine) abort(m *match, cause error) error {
	e.logger.Error("match aborted",
		zap.String("game_id", m.cfg.GameID),
		zap.Error(cause),
	)
	work := m.state.Clone()
	work.Phase = PhaseGameOver
	work.Winner = ""
	work.WinReason = WinAborted
	work.appendEvent(GameEvent{Type: EventGameEnded, WinReason: WinAborted})
	e.commit(m, work)
	return &MatchFailedError{Cause: cause}
}
