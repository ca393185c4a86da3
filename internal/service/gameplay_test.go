package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/whosdeal-backend/internal/apperror"
	"github.com/rocketscienceinc/whosdeal-backend/internal/entity"
	"github.com/rocketscienceinc/whosdeal-backend/internal/euchre"
	"github.com/rocketscienceinc/whosdeal-backend/internal/events"
	"github.com/rocketscienceinc/whosdeal-backend/internal/game"
	"github.com/rocketscienceinc/whosdeal-backend/internal/repository"
	"github.com/rocketscienceinc/whosdeal-backend/internal/service"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakePlayerService struct {
	mu      sync.Mutex
	players map[string]*entity.Player
}

func newFakePlayerService(ids ...string) *fakePlayerService {
	players := make(map[string]*entity.Player, len(ids))
	for _, id := range ids {
		players[id] = &entity.Player{ID: id, Name: id, Connected: true}
	}

	return &fakePlayerService{players: players}
}

func (that *fakePlayerService) GetOrCreatePlayer(_ context.Context, id, name string) (*entity.Player, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if player, ok := that.players[id]; ok {
		return player, nil
	}

	player := &entity.Player{ID: id, Name: name, Connected: true}
	that.players[id] = player

	return player, nil
}

func (that *fakePlayerService) GetPlayerByID(_ context.Context, id string) (*entity.Player, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	player, ok := that.players[id]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}

	return player, nil
}

func (that *fakePlayerService) UpdatePlayer(_ context.Context, player *entity.Player) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.players[player.ID] = player

	return nil
}

func (that *fakePlayerService) RefreshSession(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.players[id]; !ok {
		return repository.ErrPlayerNotFound
	}

	return nil
}

func (that *fakePlayerService) get(id string) *entity.Player {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.players[id]
}

// fakeRoomService keeps rooms in memory with the same version-counter
// write rule the redis repository enforces.
type fakeRoomService struct {
	mu    sync.Mutex
	rooms map[string]*entity.Room
}

func newFakeRoomService() *fakeRoomService {
	return &fakeRoomService{rooms: make(map[string]*entity.Room)}
}

func (that *fakeRoomService) CreateRoom(_ context.Context, owner *entity.Player) (*entity.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room := entity.NewRoom(fmt.Sprintf("ROOM%02d", len(that.rooms)+1), owner)
	room.Version = 1
	that.rooms[room.Code] = room.Clone()

	return room, nil
}

func (that *fakeRoomService) GetRoomByCode(_ context.Context, code string) (*entity.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[code]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}

	return room.Clone(), nil
}

func (that *fakeRoomService) UpdateRoom(_ context.Context, room *entity.Room) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	stored, ok := that.rooms[room.Code]
	if !ok {
		return repository.ErrRoomNotFound
	}

	if stored.Version != room.Version {
		return repository.ErrVersionConflict
	}

	room.Version++
	that.rooms[room.Code] = room.Clone()

	return nil
}

func (that *fakeRoomService) RefreshRoom(_ context.Context, code string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.rooms[code]; !ok {
		return repository.ErrRoomNotFound
	}

	return nil
}

func (that *fakeRoomService) DeleteRoom(_ context.Context, code string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.rooms, code)

	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []game.Event
}

func (that *fakePublisher) Publish(_ context.Context, _ string, evts []game.Event) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.events = append(that.events, evts...)

	return nil
}

func (that *fakePublisher) names() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	names := make([]string, 0, len(that.events))
	for _, evt := range that.events {
		names = append(names, evt.Name)
	}

	return names
}

// stubModule reports a fixed scoreboard so roster propagation can be
// observed without driving a full round.
type stubModule struct {
	scores map[string]int
}

func (that *stubModule) ID() string { return "stub" }

func (that *stubModule) Initialize(_ []*entity.Player, _ map[string]any, _ time.Time) (json.RawMessage, []game.Event, error) {
	return json.RawMessage(`{}`), nil, nil
}

func (that *stubModule) ApplyAction(state json.RawMessage, _ string, _ game.Action, _ time.Time) (json.RawMessage, []game.Event, error) {
	return state, nil, nil
}

func (that *stubModule) ComputeBotAction(_ json.RawMessage, _ string) (game.Action, error) {
	return game.NoAction, nil
}

func (that *stubModule) CheckGameOver(_ json.RawMessage) (game.Result, error) {
	return game.Result{Scores: that.scores}, nil
}

func (that *stubModule) SanitizeForViewer(state json.RawMessage, _ string) (json.RawMessage, error) {
	return state, nil
}

func (that *stubModule) ComputeScheduledAdvancement(_ json.RawMessage, _ []*entity.Player, _ time.Time) (*game.Advancement, error) {
	return nil, nil
}

func (that *stubModule) ReassignOnDeparture(state json.RawMessage, _, _ string, _ int, _ []*entity.Player) (json.RawMessage, error) {
	return state, nil
}

func newTestService(t *testing.T, playerIDs ...string) (service.GamePlayService, *fakePlayerService, *fakeRoomService, *fakePublisher) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// zero delays so every scheduled transition is due immediately
	module := euchre.NewModule(rand.New(rand.NewSource(1)), euchre.Tunables{ //nolint: gosec // deterministic tests
		BotMoveDelay: 0,
		RoundBreak:   0,
		TargetScore:  10,
	})

	publisher := &fakePublisher{}
	players := newFakePlayerService(playerIDs...)
	rooms := newFakeRoomService()

	svc := service.NewGamePlayService(logger, players, rooms, game.NewRegistry(module), publisher)

	return svc, players, rooms, publisher
}

func decodeState(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	return decoded
}

func TestGamePlayService_Rooms(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates a room and binds the owner to it", func(t *testing.T) {
		svc, _, _, _ := newTestService(t, "alice")

		room, err := svc.CreateRoom(ctx, "alice")

		require.NoError(t, err)
		assert.True(t, room.IsWaiting())
		assert.Equal(t, "alice", room.OwnerID)
		assert.Len(t, room.Players, 1)
	})

	t.Run("Join is idempotent and announces the roster", func(t *testing.T) {
		svc, _, _, publisher := newTestService(t, "alice", "bob")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)

		joined, err := svc.JoinRoom(ctx, room.Code, "bob")
		require.NoError(t, err)
		assert.Len(t, joined.Players, 2)
		assert.Contains(t, publisher.names(), events.TeamsUpdated)

		again, err := svc.JoinRoom(ctx, room.Code, "bob")
		require.NoError(t, err)
		assert.Len(t, again.Players, 2)
	})

	t.Run("Only the owner may change the settings", func(t *testing.T) {
		svc, _, _, _ := newTestService(t, "alice", "bob")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)
		_, err = svc.JoinRoom(ctx, room.Code, "bob")
		require.NoError(t, err)

		_, err = svc.UpdateSettings(ctx, room.Code, "bob", map[string]any{"target_score": 5})
		require.ErrorIs(t, err, apperror.ErrNotRoomOwner)

		updated, err := svc.UpdateSettings(ctx, room.Code, "alice", map[string]any{"target_score": 5})
		require.NoError(t, err)
		assert.Equal(t, 5, updated.Settings["target_score"])
	})

	t.Run("The last player leaving deletes the room", func(t *testing.T) {
		svc, _, rooms, _ := newTestService(t, "alice")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)

		_, err = svc.LeaveRoom(ctx, room.Code, "alice")
		require.NoError(t, err)

		_, err = rooms.GetRoomByCode(ctx, room.Code)
		require.ErrorIs(t, err, repository.ErrRoomNotFound)
	})

	t.Run("Ownership moves when the owner leaves a waiting room", func(t *testing.T) {
		svc, _, _, _ := newTestService(t, "alice", "bob")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)
		_, err = svc.JoinRoom(ctx, room.Code, "bob")
		require.NoError(t, err)

		left, err := svc.LeaveRoom(ctx, room.Code, "alice")

		require.NoError(t, err)
		assert.Equal(t, "bob", left.OwnerID)
		assert.Len(t, left.Players, 1)
	})
}

func TestGamePlayService_StartGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Pads the table with bots and deals", func(t *testing.T) {
		svc, _, _, publisher := newTestService(t, "alice")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)

		started, err := svc.StartGame(ctx, room.Code, "alice", euchre.ModuleID, testNow)

		require.NoError(t, err)
		assert.True(t, started.IsPlaying())
		assert.Equal(t, euchre.ModuleID, started.Game)
		assert.Len(t, started.Players, entity.MaxSeats)
		assert.NotNil(t, started.State)
		assert.Contains(t, publisher.names(), events.GameStarted)

		bots := 0
		for _, player := range started.Players {
			if player.IsBot() {
				bots++
			}
		}
		assert.Equal(t, 3, bots)
	})

	t.Run("Only the owner may start", func(t *testing.T) {
		svc, _, _, _ := newTestService(t, "alice", "bob")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)
		_, err = svc.JoinRoom(ctx, room.Code, "bob")
		require.NoError(t, err)

		_, err = svc.StartGame(ctx, room.Code, "bob", euchre.ModuleID, testNow)

		require.ErrorIs(t, err, apperror.ErrNotRoomOwner)
	})

	t.Run("A running game cannot be started again", func(t *testing.T) {
		svc, _, _, _ := newTestService(t, "alice")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)
		_, err = svc.StartGame(ctx, room.Code, "alice", euchre.ModuleID, testNow)
		require.NoError(t, err)

		_, err = svc.StartGame(ctx, room.Code, "alice", euchre.ModuleID, testNow)

		require.ErrorIs(t, err, apperror.ErrRoomAlreadyPlaying)
	})

	t.Run("Rejects an unknown game", func(t *testing.T) {
		svc, _, _, _ := newTestService(t, "alice")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)

		_, err = svc.StartGame(ctx, room.Code, "alice", "minesweeper", testNow)

		require.ErrorIs(t, err, game.ErrUnknownModule)
	})
}

func TestGamePlayService_HandleAction(t *testing.T) {
	ctx := context.Background()

	t.Run("Rejects actions before the game starts", func(t *testing.T) {
		svc, _, _, _ := newTestService(t, "alice")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)

		_, err = svc.HandleAction(ctx, room.Code, "alice", game.Action{Name: euchre.ActionPassTrump}, testNow)

		require.ErrorIs(t, err, apperror.ErrGameIsNotStarted)
	})

	t.Run("Rejects actions from outside the room", func(t *testing.T) {
		svc, _, _, _ := newTestService(t, "alice", "mallory")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)
		_, err = svc.StartGame(ctx, room.Code, "alice", euchre.ModuleID, testNow)
		require.NoError(t, err)

		_, err = svc.HandleAction(ctx, room.Code, "mallory", game.Action{Name: euchre.ActionPassTrump}, testNow)

		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("Applies a legal action and bumps the stored version", func(t *testing.T) {
		// Given: four humans so seat 1 holds the opening turn
		svc, _, rooms, _ := newTestService(t, "p0", "p1", "p2", "p3")

		room, err := svc.CreateRoom(ctx, "p0")
		require.NoError(t, err)
		for _, id := range []string{"p1", "p2", "p3"} {
			_, err = svc.JoinRoom(ctx, room.Code, id)
			require.NoError(t, err)
		}

		started, err := svc.StartGame(ctx, room.Code, "p0", euchre.ModuleID, testNow)
		require.NoError(t, err)

		// When: the seat on turn passes
		updated, err := svc.HandleAction(ctx, room.Code, "p1", game.Action{Name: euchre.ActionPassTrump}, testNow)

		// Then: the write lands with a newer version
		require.NoError(t, err)
		assert.Greater(t, updated.Version, started.Version)

		stored, err := rooms.GetRoomByCode(ctx, room.Code)
		require.NoError(t, err)

		state := decodeState(t, stored.State)
		round, ok := state["round"].(map[string]any)
		require.True(t, ok)
		assert.Len(t, round["passed"], 1)
	})
}

func TestGamePlayService_Advance(t *testing.T) {
	ctx := context.Background()

	t.Run("Due bots act until a human holds the turn", func(t *testing.T) {
		// Given: one human owner and three due bots
		svc, _, rooms, publisher := newTestService(t, "alice")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)
		_, err = svc.StartGame(ctx, room.Code, "alice", euchre.ModuleID, testNow)
		require.NoError(t, err)

		// When: the scheduler runs just after the bot delay
		err = svc.Advance(ctx, room.Code, testNow.Add(time.Millisecond))

		// Then: the bidding has moved past the opening seat
		require.NoError(t, err)

		stored, err := rooms.GetRoomByCode(ctx, room.Code)
		require.NoError(t, err)

		state := decodeState(t, stored.State)
		round, ok := state["round"].(map[string]any)
		require.True(t, ok)

		passed, _ := round["passed"].([]any)
		trump, _ := round["trump"].(string)
		assert.True(t, len(passed) > 0 || trump != "", "no bot acted")
		assert.Contains(t, publisher.names(), events.TrumpAction)
	})

	t.Run("Is a no-op for a waiting room", func(t *testing.T) {
		svc, _, _, publisher := newTestService(t, "alice")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)

		require.NoError(t, svc.Advance(ctx, room.Code, testNow))
		assert.Empty(t, publisher.names())
	})
}

func TestGamePlayService_LeaveDuringGame(t *testing.T) {
	ctx := context.Background()

	t.Run("A leaver is swapped for a bot in room and state", func(t *testing.T) {
		svc, _, _, _ := newTestService(t, "alice", "bob")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)
		_, err = svc.JoinRoom(ctx, room.Code, "bob")
		require.NoError(t, err)
		_, err = svc.StartGame(ctx, room.Code, "alice", euchre.ModuleID, testNow)
		require.NoError(t, err)

		left, err := svc.LeaveRoom(ctx, room.Code, "bob")

		require.NoError(t, err)
		assert.Len(t, left.Players, entity.MaxSeats)
		assert.Nil(t, left.PlayerByID("bob"))

		state := decodeState(t, left.State)
		seats, ok := state["seats"].([]any)
		require.True(t, ok)
		assert.NotContains(t, seats, "bob")
	})
}

func TestGamePlayService_RoomView(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns a sanitized copy of the state", func(t *testing.T) {
		svc, _, rooms, _ := newTestService(t, "alice")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)
		_, err = svc.StartGame(ctx, room.Code, "alice", euchre.ModuleID, testNow)
		require.NoError(t, err)

		view, err := svc.RoomView(ctx, room.Code, "alice")
		require.NoError(t, err)

		state := decodeState(t, view.State)
		round, ok := state["round"].(map[string]any)
		require.True(t, ok)
		assert.NotContains(t, round, "hands")
		assert.NotContains(t, round, "kitty")
		assert.Contains(t, round, "hand_sizes")

		// and the stored room still holds the full state
		stored, err := rooms.GetRoomByCode(ctx, room.Code)
		require.NoError(t, err)
		full := decodeState(t, stored.State)
		fullRound, ok := full["round"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, fullRound, "hands")
	})
}

func TestGamePlayService_Heartbeat(t *testing.T) {
	ctx := context.Background()

	t.Run("Refreshes the session and lets the scheduler run", func(t *testing.T) {
		svc, _, _, _ := newTestService(t, "alice")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)

		require.NoError(t, svc.Heartbeat(ctx, room.Code, "alice", testNow))
	})

	t.Run("Fails for an expired session", func(t *testing.T) {
		svc, _, _, _ := newTestService(t, "alice")

		err := svc.Heartbeat(ctx, "", "ghost", testNow)

		require.ErrorIs(t, err, repository.ErrPlayerNotFound)
	})
}

func TestGamePlayService_Connectivity(t *testing.T) {
	ctx := context.Background()

	t.Run("Disconnect drops the roster flag and announces it", func(t *testing.T) {
		// Given: two connected players sharing a room
		svc, players, rooms, publisher := newTestService(t, "alice", "bob")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)
		_, err = svc.JoinRoom(ctx, room.Code, "bob")
		require.NoError(t, err)

		before := len(publisher.names())

		// When: bob's connection closes
		require.NoError(t, svc.Disconnect(ctx, room.Code, "bob"))

		// Then: both the session record and the roster copy flip, and the
		// room hears about it
		assert.False(t, players.get("bob").Connected)

		stored, err := rooms.GetRoomByCode(ctx, room.Code)
		require.NoError(t, err)
		require.NotNil(t, stored.PlayerByID("bob"))
		assert.False(t, stored.PlayerByID("bob").Connected)

		names := publisher.names()
		require.Greater(t, len(names), before)
		assert.Equal(t, events.TeamsUpdated, names[len(names)-1])
	})

	t.Run("Heartbeat marks the player connected again", func(t *testing.T) {
		svc, players, rooms, _ := newTestService(t, "alice", "bob")

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)
		_, err = svc.JoinRoom(ctx, room.Code, "bob")
		require.NoError(t, err)
		require.NoError(t, svc.Disconnect(ctx, room.Code, "bob"))

		require.NoError(t, svc.Heartbeat(ctx, room.Code, "bob", testNow))

		assert.True(t, players.get("bob").Connected)

		stored, err := rooms.GetRoomByCode(ctx, room.Code)
		require.NoError(t, err)
		require.NotNil(t, stored.PlayerByID("bob"))
		assert.True(t, stored.PlayerByID("bob").Connected)
	})

	t.Run("Disconnect outside a room touches the session only", func(t *testing.T) {
		svc, players, _, publisher := newTestService(t, "alice")

		require.NoError(t, svc.Disconnect(ctx, "", "alice"))

		assert.False(t, players.get("alice").Connected)
		assert.Empty(t, publisher.names())
	})
}

func TestGamePlayService_ScoreSync(t *testing.T) {
	ctx := context.Background()

	t.Run("Roster scores mirror the module's scoreboard", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		module := &stubModule{scores: map[string]int{"alice": 7}}
		rooms := newFakeRoomService()
		svc := service.NewGamePlayService(logger, newFakePlayerService("alice"), rooms, game.NewRegistry(module), &fakePublisher{})

		room, err := svc.CreateRoom(ctx, "alice")
		require.NoError(t, err)
		_, err = svc.StartGame(ctx, room.Code, "alice", "stub", testNow)
		require.NoError(t, err)

		updated, err := svc.HandleAction(ctx, room.Code, "alice", game.Action{Name: "noop"}, testNow)

		require.NoError(t, err)
		require.NotNil(t, updated.PlayerByID("alice"))
		assert.Equal(t, 7, updated.PlayerByID("alice").Score)
	})
}
