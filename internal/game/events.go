package game

import (
	"sync"
	"time"
)

// EventType is the closed set of events the engine records. Consumers are
// expected to handle every variant; adding one is a visible breaking change.
type EventType string

const (
	EventGameStarted      EventType = "GAME_STARTED"
	EventTurnStarted      EventType = "TURN_STARTED"
	EventCardDrawn        EventType = "CARD_DRAWN"
	EventCardPlayed       EventType = "CARD_PLAYED"
	EventCreatureAttacked EventType = "CREATURE_ATTACKED"
	EventCreatureDied     EventType = "CREATURE_DIED"
	EventPlayerDamaged    EventType = "PLAYER_DAMAGED"
	EventPlayerHealed     EventType = "PLAYER_HEALED"
	EventTurnEnded        EventType = "TURN_ENDED"
	EventGameEnded        EventType = "GAME_ENDED"
)

// GameEvent is a single entry in a match's append-only audit trail.
// Payload fields are populated per variant; unused fields stay zero.
type GameEvent struct {
	Type EventType
	// PlayerID is the acting player, or for PLAYER_DAMAGED/PLAYER_HEALED
	// the affected player.
	PlayerID  string
	Timestamp time.Time
	Turn      int
	// CardID for CARD_DRAWN, CARD_PLAYED and CREATURE_DIED.
	CardID string
	// InstanceID of the acting creature for CREATURE_ATTACKED/CREATURE_DIED.
	InstanceID string
	// TargetID of the attack target or effect target.
	TargetID string
	// Amount is the damage or healing magnitude.
	Amount int
	// Source describes what caused damage: "fatigue", "combat", or the
	// source card id for effects.
	Source string
	// Winner and WinReason for GAME_ENDED. Winner is empty on a draw.
	Winner    string
	WinReason WinCondition
}

// appendEvent records an event on the working state with the current turn
// number and timestamp filled in.
func (st *GameState) appendEvent(ev GameEvent) {
	ev.Timestamp = time.Now()
	ev.Turn = st.Turn
	st.Events = append(st.Events, ev)
}

// Listener receives committed game events.
type Listener func(GameEvent)

// typedListener pairs a subscription handle with a type filter.
type typedListener struct {
	handle    int
	eventType EventType
	callback  Listener
}

// EventBus is a synchronous publish/subscribe fan-out for committed events,
// used by transports to stream a match without polling. Events are only
// published after a transition commits; rejected actions publish nothing.
type EventBus struct {
	mu         sync.RWMutex
	listeners  map[int]Listener
	typed      map[EventType][]typedListener
	nextHandle int
}

// NewEventBus constructs an empty event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners: make(map[int]Listener),
		typed:     make(map[EventType][]typedListener),
	}
}

// Subscribe registers a listener for all events and returns its handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for one event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typed[eventType] = append(bus.typed[eventType], typedListener{
		handle:    handle,
		eventType: eventType,
		callback:  listener,
	})
	return handle
}

// Unsubscribe removes a listener by handle, regardless of how it was added.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typed {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].handle == handle {
				bus.typed[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event synchronously to all matching listeners.
func (bus *EventBus) Publish(event GameEvent) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	for _, listener := range bus.listeners {
		listener(event)
	}
	for _, tl := range bus.typed[event.Type] {
		tl.callback(event)
	}
}

// PublishBatch publishes events in order.
func (bus *EventBus) PublishBatch(events []GameEvent) {
	for _, event := range events {
		bus.Publish(event)
	}
}
