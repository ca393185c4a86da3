package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/whosdeal-backend/internal/entity"
)

var ErrUnknownModule = errors.New("unknown game module")

// Action is what a player (or a bot impersonating one) submits to a module.
type Action struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NoAction is the sentinel a bot returns when it has nothing legal to do.
var NoAction = Action{}

func (that Action) IsZero() bool {
	return that.Name == ""
}

// Event is an outbound notification for the realtime transport. An empty
// PlayerID means room-wide; otherwise the event is private to that player.
type Event struct {
	Name     string `json:"name"`
	PlayerID string `json:"-"`
	Payload  any    `json:"payload,omitempty"`
}

// Result of a game-over check. WinnerID is module-defined (a player for
// solo games, a team identifier for team games). Scores carries the
// current per-player score so the lobby roster can mirror it.
type Result struct {
	IsOver   bool
	WinnerID string
	Scores   map[string]int
}

// Advancement is a system-driven transition synthesized by a module when a
// stored deadline has elapsed. Guard is re-checked against the freshly read
// state immediately before the compare-and-swap so a transition computed
// from a stale snapshot is discarded instead of overwriting newer input.
// Recurse asks the caller to run the scheduler once more against the new
// state; callers apply it as a bounded loop.
type Advancement struct {
	State   json.RawMessage
	Guard   func(current json.RawMessage) bool
	Events  []Event
	Recurse bool
}

// Module is the contract every game on the platform implements over its own
// opaque state blob. All operations are pure with respect to storage: they
// read a snapshot and return a new one, nothing is persisted here.
type Module interface {
	ID() string

	// Initialize produces a fully-formed first round. It is total: any
	// four players and any settings blob yield a playable state.
	Initialize(players []*entity.Player, settings map[string]any, now time.Time) (json.RawMessage, []Event, error)

	// ApplyAction validates and applies one player action. A stale retry
	// of an already-applied action returns the unchanged state with no
	// error; a structurally invalid or out-of-turn request fails with a
	// typed error from apperror.
	ApplyAction(state json.RawMessage, playerID string, action Action, now time.Time) (json.RawMessage, []Event, error)

	// ComputeBotAction is a read-only decision over the same information
	// a client would see. It returns NoAction when the bot has nothing
	// legal to do.
	ComputeBotAction(state json.RawMessage, botID string) (Action, error)

	CheckGameOver(state json.RawMessage) (Result, error)

	// SanitizeForViewer strips what the viewer must not see (other hands,
	// the kitty) and adds viewer-relative conveniences such as hand-size
	// counts.
	SanitizeForViewer(state json.RawMessage, playerID string) (json.RawMessage, error)

	// ComputeScheduledAdvancement reports the next system-driven
	// transition once a stored deadline has passed, or nil if nothing is
	// due.
	ComputeScheduledAdvancement(state json.RawMessage, players []*entity.Player, now time.Time) (*Advancement, error)

	// ReassignOnDeparture substitutes a bot for every reference to a
	// departing player without touching any other invariant.
	ReassignOnDeparture(state json.RawMessage, departingID, botID string, seatIndex int, players []*entity.Player) (json.RawMessage, error)
}

// Registry dispatches modules by game identifier.
type Registry struct {
	modules map[string]Module
}

func NewRegistry(modules ...Module) *Registry {
	registry := &Registry{modules: make(map[string]Module, len(modules))}
	for _, module := range modules {
		registry.modules[module.ID()] = module
	}

	return registry
}

func (that *Registry) Lookup(id string) (Module, error) {
	module, ok := that.modules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}

	return module, nil
}
