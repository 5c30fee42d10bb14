// Package server exposes the match engine over a websocket gateway. Each
// connection is one player seat; every request is a JSON envelope and every
// committed transition is pushed back as a redacted game_state message.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/openduel/duel-server-go/internal/config"
	"github.com/openduel/duel-server-go/internal/game"
	"github.com/openduel/duel-server-go/internal/game/cards"
	"github.com/openduel/duel-server-go/internal/game/deck"
)

// Envelope is the wire frame for every message in both directions.
type Envelope struct {
	Type     string          `json:"type"`
	GameID   string          `json:"game_id,omitempty"`
	PlayerID string          `json:"player_id,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Client-to-server message types.
const (
	MsgStartMatch = "start_match"
	MsgMulligan   = "mulligan"
	MsgAction     = "action"
	MsgConcede    = "concede"
	MsgState      = "state"
)

// Server-to-client message types.
const (
	MsgGameState = "game_state"
	MsgEvent     = "event"
	MsgError     = "error"
)

// StartMatchRequest carries both seats. Seed zero lets the engine pick one.
type StartMatchRequest struct {
	Seed    int64         `json:"seed,omitempty"`
	Players [2]PlayerSeat `json:"players"`
}

// PlayerSeat is one participant in a start_match request.
type PlayerSeat struct {
	PlayerID  string           `json:"player_id"`
	Name      string           `json:"name"`
	Deck      deck.Deck        `json:"deck"`
	HeroPower *cards.HeroPower `json:"hero_power,omitempty"`
}

// MulliganRequest lists opening-hand indexes to throw back.
type MulliganRequest struct {
	Replace []int `json:"replace"`
}

// ErrorPayload is the body of an error envelope.
type ErrorPayload struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// client is one websocket connection bound to a player seat.
type client struct {
	conn     *websocket.Conn
	send     chan []byte
	playerID string
	gameID   string
	sub      int
	hasSub   bool
}

// Server is the websocket gateway in front of an Engine.
type Server struct {
	cfg      config.ServerConfig
	engine   *game.Engine
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	httpSrv *http.Server
}

// New creates a gateway bound to the given engine.
func New(cfg config.ServerConfig, engine *game.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		engine: engine,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the HTTP mux for the gateway.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ListenAndServe runs the gateway until the context is cancelled, then
// shuts down within the configured timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:    s.cfg.Address,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("websocket gateway listening", zap.String("address", s.cfg.Address))
		if err := s.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.closeClients()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go s.writePump(c)
	s.readPump(c)
}

func (s *Server) readPump(c *client) {
	defer s.dropClient(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.sendError(c, "BAD_ENVELOPE", err.Error())
			continue
		}
		s.handleEnvelope(c, env)
	}
}

func (s *Server) writePump(c *client) {
	interval := s.cfg.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			s.setWriteDeadline(c)
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.setWriteDeadline(c)
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) setWriteDeadline(c *client) {
	if s.cfg.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
}

func (s *Server) handleEnvelope(c *client, env Envelope) {
	switch env.Type {
	case MsgStartMatch:
		s.handleStartMatch(c, env)
	case MsgMulligan:
		s.handleMulligan(c, env)
	case MsgAction:
		s.handleAction(c, env)
	case MsgConcede:
		st, err := s.engine.Concede(env.GameID, env.PlayerID)
		s.reply(c, env, st, err)
	case MsgState:
		st, err := s.engine.CurrentState(env.GameID)
		s.reply(c, env, st, err)
	default:
		s.sendError(c, "UNKNOWN_MESSAGE", env.Type)
	}
}

func (s *Server) handleStartMatch(c *client, env Envelope) {
	var req StartMatchRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		s.sendError(c, "BAD_REQUEST", err.Error())
		return
	}

	cfg := game.MatchConfig{Seed: req.Seed}
	for i, seat := range req.Players {
		cfg.Players[i] = game.PlayerSetup{
			PlayerID:  seat.PlayerID,
			Name:      seat.Name,
			Deck:      seat.Deck,
			HeroPower: seat.HeroPower,
		}
	}

	st, err := s.engine.StartMatch(cfg)
	if err != nil {
		var deckErr *game.DeckInvalidError
		if errors.As(err, &deckErr) {
			s.sendError(c, "DECK_INVALID", deckErr.Error())
			return
		}
		s.sendError(c, "START_FAILED", err.Error())
		return
	}

	c.gameID = st.GameID
	c.playerID = env.PlayerID
	s.subscribe(c, st.GameID)
	s.sendState(c, st)
	s.logger.Info("match started over websocket",
		zap.String("game_id", st.GameID),
		zap.String("player_a", cfg.Players[0].PlayerID),
		zap.String("player_b", cfg.Players[1].PlayerID),
	)
}

func (s *Server) handleMulligan(c *client, env Envelope) {
	var req MulliganRequest
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &req); err != nil {
			s.sendError(c, "BAD_REQUEST", err.Error())
			return
		}
	}
	s.attach(c, env)
	st, err := s.engine.SubmitMulligan(env.GameID, env.PlayerID, req.Replace)
	s.reply(c, env, st, err)
}

func (s *Server) handleAction(c *client, env Envelope) {
	var action game.Action
	if err := json.Unmarshal(env.Data, &action); err != nil {
		s.sendError(c, "BAD_REQUEST", err.Error())
		return
	}
	s.attach(c, env)
	st, err := s.engine.SubmitAction(env.GameID, env.PlayerID, action)
	s.reply(c, env, st, err)
}

// attach binds a client to a match it addresses, so it receives the event
// stream even when it never sent start_match itself.
func (s *Server) attach(c *client, env Envelope) {
	if c.gameID == "" && env.GameID != "" {
		c.gameID = env.GameID
		c.playerID = env.PlayerID
		s.subscribe(c, env.GameID)
	}
}

func (s *Server) subscribe(c *client, gameID string) {
	handle, err := s.engine.Subscribe(gameID, func(ev game.GameEvent) {
		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		frame, err := json.Marshal(Envelope{Type: MsgEvent, GameID: gameID, Data: payload})
		if err != nil {
			return
		}
		select {
		case c.send <- frame:
		default:
			// Slow consumer, drop the event rather than block the engine.
		}
	})
	if err != nil {
		s.logger.Warn("subscribe failed", zap.String("game_id", gameID), zap.Error(err))
		return
	}
	c.sub = handle
	c.hasSub = true
}

func (s *Server) reply(c *client, env Envelope, st *game.GameState, err error) {
	if err != nil {
		if rejected, ok := game.AsRejected(err); ok {
			s.sendError(c, string(rejected.Reason), rejected.Detail)
			return
		}
		s.sendError(c, "ENGINE_ERROR", err.Error())
		return
	}
	s.sendState(c, st)
}

func (s *Server) sendState(c *client, st *game.GameState) {
	view := st
	if c.playerID != "" {
		view = st.ViewFor(c.playerID)
	}
	payload, err := json.Marshal(view)
	if err != nil {
		s.logger.Error("marshal state", zap.Error(err))
		return
	}
	frame, _ := json.Marshal(Envelope{Type: MsgGameState, GameID: st.GameID, Data: payload})
	s.enqueue(c, frame)
}

func (s *Server) sendError(c *client, reason, detail string) {
	payload, _ := json.Marshal(ErrorPayload{Reason: reason, Detail: detail})
	frame, _ := json.Marshal(Envelope{Type: MsgError, Data: payload})
	s.enqueue(c, frame)
}

func (s *Server) enqueue(c *client, frame []byte) {
	select {
	case c.send <- frame:
	default:
		s.logger.Warn("client send buffer full, dropping connection",
			zap.String("player_id", c.playerID))
		s.dropClient(c)
	}
}

func (s *Server) dropClient(c *client) {
	s.mu.Lock()
	_, present := s.clients[c]
	if present {
		delete(s.clients, c)
	}
	s.mu.Unlock()
	if !present {
		return
	}
	if c.hasSub {
		s.engine.Unsubscribe(c.gameID, c.sub)
	}
	close(c.send)
	c.conn.Close()
}

func (s *Server) closeClients() {
	s.mu.Lock()
	open := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		open = append(open, c)
	}
	s.mu.Unlock()
	for _, c := range open {
		s.dropClient(c)
	}
}
