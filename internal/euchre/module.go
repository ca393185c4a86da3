package euchre

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/rocketscienceinc/whosdeal-backend/internal/entity"
	"github.com/rocketscienceinc/whosdeal-backend/internal/events"
	"github.com/rocketscienceinc/whosdeal-backend/internal/game"
	"github.com/rocketscienceinc/whosdeal-backend/internal/pkg"
)

// Module adapts the engine to the platform's game-module contract:
// unmarshal the opaque blob, run the pure transition, marshal the result.
type Module struct {
	rng *rand.Rand
	tun Tunables
}

func NewModule(rng *rand.Rand, tun Tunables) *Module {
	return &Module{rng: rng, tun: tun}
}

func (that *Module) ID() string {
	return ModuleID
}

func (that *Module) Initialize(players []*entity.Player, settings map[string]any, now time.Time) (json.RawMessage, []game.Event, error) {
	var seats [seatCount]string
	for i := range seats {
		if i < len(players) {
			seats[i] = players[i].ID
		} else {
			// short tables are padded with bots so the state is
			// always fully formed
			seats[i] = pkg.GenerateBotID()
		}
	}

	state := NewGame(seats, targetFromSettings(settings, that.tun), that.rng, now, that.tun)

	raw, err := json.Marshal(state)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	evts := []game.Event{
		{Name: events.GameStarted, Payload: map[string]any{"target_score": state.TargetScore}},
		{Name: events.TeamsUpdated, Payload: map[string]any{"teams": state.Teams, "seats": state.Seats}},
	}
	evts = append(evts, state.newRoundEvents()...)

	return raw, evts, nil
}

func (that *Module) ApplyAction(raw json.RawMessage, playerID string, action game.Action, now time.Time) (json.RawMessage, []game.Event, error) {
	state, err := decode(raw)
	if err != nil {
		return nil, nil, err
	}

	evts, err := Apply(state, playerID, action, that.rng, now, that.tun)
	if err != nil {
		return nil, nil, err
	}

	next, err := json.Marshal(state)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	return next, evts, nil
}

func (that *Module) ComputeBotAction(raw json.RawMessage, botID string) (game.Action, error) {
	state, err := decode(raw)
	if err != nil {
		return game.NoAction, err
	}

	return BotAction(state, botID)
}

func (that *Module) CheckGameOver(raw json.RawMessage) (game.Result, error) {
	state, err := decode(raw)
	if err != nil {
		return game.Result{}, err
	}

	scores := make(map[string]int, len(state.Seats))
	for seat, id := range state.Seats {
		scores[id] = state.Teams[teamForSeat(seat)].Score
	}

	if state.Phase != PhaseGameOver {
		return game.Result{Scores: scores}, nil
	}

	return game.Result{IsOver: true, WinnerID: string(state.WinningTeam), Scores: scores}, nil
}

func (that *Module) SanitizeForViewer(raw json.RawMessage, playerID string) (json.RawMessage, error) {
	state, err := decode(raw)
	if err != nil {
		return nil, err
	}

	view, err := json.Marshal(Sanitize(state, playerID))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal view: %w", err)
	}

	return view, nil
}

func (that *Module) ComputeScheduledAdvancement(raw json.RawMessage, players []*entity.Player, now time.Time) (*game.Advancement, error) {
	state, err := decode(raw)
	if err != nil {
		return nil, err
	}

	adv, err := ScheduledAdvancement(state, players, that.rng, now, that.tun)
	if err != nil || adv == nil {
		return nil, err
	}

	next, err := json.Marshal(adv.state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	base := adv.base

	return &game.Advancement{
		State: next,
		Guard: func(current json.RawMessage) bool {
			fresh, decodeErr := decode(current)
			if decodeErr != nil {
				return false
			}

			return fresh.fingerprint() == base
		},
		Events:  adv.events,
		Recurse: adv.recurse,
	}, nil
}

func (that *Module) ReassignOnDeparture(raw json.RawMessage, departingID, botID string, _ int, _ []*entity.Player) (json.RawMessage, error) {
	state, err := decode(raw)
	if err != nil {
		return nil, err
	}

	Reassign(state, departingID, botID)

	next, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	return next, nil
}

func decode(raw json.RawMessage) (*GameState, error) {
	var state GameState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return &state, nil
}

func targetFromSettings(settings map[string]any, tun Tunables) int {
	raw, ok := settings["target_score"]
	if !ok {
		return tun.TargetScore
	}

	switch value := raw.(type) {
	case int:
		return value
	case float64:
		return int(value)
	default:
		return tun.TargetScore
	}
}
