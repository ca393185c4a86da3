package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/whosdeal-backend/internal/apperror"
	"github.com/rocketscienceinc/whosdeal-backend/internal/entity"
	"github.com/rocketscienceinc/whosdeal-backend/internal/events"
	"github.com/rocketscienceinc/whosdeal-backend/internal/game"
	"github.com/rocketscienceinc/whosdeal-backend/internal/pkg"
)

// maxAdvancements caps the scheduled-transition loop per request so an
// all-bot table cannot race through unbounded work in one call.
const maxAdvancements = 8

type GamePlayService interface {
	CreateRoom(ctx context.Context, playerID string) (*entity.Room, error)
	JoinRoom(ctx context.Context, code, playerID string) (*entity.Room, error)
	LeaveRoom(ctx context.Context, code, playerID string) (*entity.Room, error)
	UpdateSettings(ctx context.Context, code, playerID string, settings map[string]any) (*entity.Room, error)

	StartGame(ctx context.Context, code, playerID, gameID string, now time.Time) (*entity.Room, error)
	HandleAction(ctx context.Context, code, playerID string, action game.Action, now time.Time) (*entity.Room, error)

	Heartbeat(ctx context.Context, code, playerID string, now time.Time) error
	Disconnect(ctx context.Context, code, playerID string) error
	Advance(ctx context.Context, code string, now time.Time) error

	RoomView(ctx context.Context, code, viewerID string) (*entity.Room, error)
}

type gamePlayService struct {
	logger *slog.Logger

	playerService PlayerService
	roomService   RoomService
	registry      *game.Registry
	publisher     events.Publisher
}

func NewGamePlayService(logger *slog.Logger, playerService PlayerService, roomService RoomService, registry *game.Registry, publisher events.Publisher) GamePlayService {
	return &gamePlayService{
		logger:        logger,
		playerService: playerService,
		roomService:   roomService,
		registry:      registry,
		publisher:     publisher,
	}
}

func (that *gamePlayService) CreateRoom(ctx context.Context, playerID string) (*entity.Room, error) {
	player, err := that.playerService.GetPlayerByID(ctx, playerID)
	if err != nil {
		return nil, err
	}

	room, err := that.roomService.CreateRoom(ctx, player)
	if err != nil {
		return nil, err
	}

	player.RoomCode = room.Code
	if err = that.playerService.UpdatePlayer(ctx, player); err != nil {
		return nil, err
	}

	return room, nil
}

func (that *gamePlayService) JoinRoom(ctx context.Context, code, playerID string) (*entity.Room, error) {
	room, err := that.roomService.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if room.PlayerByID(playerID) != nil {
		return room, nil
	}

	player, err := that.playerService.GetPlayerByID(ctx, playerID)
	if err != nil {
		return nil, err
	}

	if err = room.AddPlayer(player); err != nil {
		return nil, err
	}

	if err = that.roomService.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}

	player.RoomCode = room.Code
	if err = that.playerService.UpdatePlayer(ctx, player); err != nil {
		return nil, err
	}

	that.publish(ctx, room.Code, []game.Event{
		{Name: events.TeamsUpdated, Payload: map[string]any{"players": room.Players, "owner_id": room.OwnerID}},
	})

	return room, nil
}

// LeaveRoom removes a waiting player outright, or swaps in a bot when a
// game is running so the match keeps its shape.
func (that *gamePlayService) LeaveRoom(ctx context.Context, code, playerID string) (*entity.Room, error) {
	room, err := that.roomService.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if room.PlayerByID(playerID) == nil {
		return room, nil
	}

	if room.IsWaiting() {
		room.RemovePlayer(playerID)

		if len(room.Players) == 0 {
			if err = that.roomService.DeleteRoom(ctx, room.Code); err != nil {
				return nil, err
			}

			return room, nil
		}

		if room.OwnerID == playerID {
			room.OwnerID = room.Players[0].ID
		}
	} else {
		bot := entity.NewBotPlayer(pkg.GenerateBotID(), room.PlayerByID(playerID).Name+" (bot)")

		seat, err := room.ReplacePlayer(playerID, bot)
		if err != nil {
			return nil, err
		}

		module, err := that.registry.Lookup(room.Game)
		if err != nil {
			return nil, err
		}

		state, err := module.ReassignOnDeparture(room.State, playerID, bot.ID, seat, room.Players)
		if err != nil {
			return nil, fmt.Errorf("failed to reassign departing player: %w", err)
		}

		room.State = state
	}

	if err = that.roomService.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}

	that.publish(ctx, room.Code, []game.Event{
		{Name: events.TeamsUpdated, Payload: map[string]any{"players": room.Players, "owner_id": room.OwnerID}},
	})

	return room, nil
}

func (that *gamePlayService) UpdateSettings(ctx context.Context, code, playerID string, settings map[string]any) (*entity.Room, error) {
	room, err := that.roomService.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if room.OwnerID != playerID {
		return nil, apperror.ErrNotRoomOwner
	}

	if room.Settings == nil {
		room.Settings = make(map[string]any, len(settings))
	}
	for key, value := range settings {
		room.Settings[key] = value
	}

	if err = that.roomService.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}

	that.publish(ctx, room.Code, []game.Event{
		{Name: events.SettingsUpdated, Payload: map[string]any{"settings": room.Settings}},
	})

	return room, nil
}

// StartGame fills the empty seats with bots, initializes the module state
// and flips the room to playing.
func (that *gamePlayService) StartGame(ctx context.Context, code, playerID, gameID string, now time.Time) (*entity.Room, error) {
	room, err := that.roomService.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if room.OwnerID != playerID {
		return nil, apperror.ErrNotRoomOwner
	}

	if !room.IsWaiting() {
		return nil, apperror.ErrRoomAlreadyPlaying
	}

	module, err := that.registry.Lookup(gameID)
	if err != nil {
		return nil, err
	}

	for seat := len(room.Players); seat < entity.MaxSeats; seat++ {
		room.Players = append(room.Players, entity.NewBotPlayer(pkg.GenerateBotID(), fmt.Sprintf("Bot %d", seat+1)))
	}

	state, evts, err := module.Initialize(room.Players, room.Settings, now)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize game: %w", err)
	}

	room.Game = gameID
	room.State = state
	room.Status = entity.StatusPlaying

	if err = that.roomService.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}

	that.publish(ctx, room.Code, evts)

	return room, nil
}

// HandleAction runs one player action through the module and attempts the
// compare-and-swap write. A losing write propagates
// repository.ErrVersionConflict; the transport discards it silently and
// the client retries on its next interaction.
func (that *gamePlayService) HandleAction(ctx context.Context, code, playerID string, action game.Action, now time.Time) (*entity.Room, error) {
	room, err := that.roomService.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if room.IsWaiting() {
		return nil, apperror.ErrGameIsNotStarted
	}

	if room.PlayerByID(playerID) == nil {
		return nil, apperror.ErrNotYourTurn
	}

	module, err := that.registry.Lookup(room.Game)
	if err != nil {
		return nil, err
	}

	state, evts, err := module.ApplyAction(room.State, playerID, action, now)
	if err != nil {
		return nil, err
	}

	room.State = state
	if err = that.syncStatus(room, module); err != nil {
		return nil, err
	}

	if err = that.roomService.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}

	that.publish(ctx, room.Code, evts)

	return room, nil
}

// Heartbeat is the periodic liveness signal: it marks the player
// connected, refreshes the session and room TTLs and gives the scheduler
// its chance to run.
func (that *gamePlayService) Heartbeat(ctx context.Context, code, playerID string, now time.Time) error {
	if err := that.setConnected(ctx, code, playerID, true); err != nil {
		return err
	}

	if code == "" {
		return nil
	}

	if err := that.roomService.RefreshRoom(ctx, code); err != nil {
		return err
	}

	return that.Advance(ctx, code, now)
}

// Disconnect marks the player's session and roster entry as dropped. The
// seat stays reserved; a reconnect with the same session id resumes it.
func (that *gamePlayService) Disconnect(ctx context.Context, code, playerID string) error {
	return that.setConnected(ctx, code, playerID, false)
}

// setConnected flips the connectivity flag on the session record and on
// the room roster copy, announcing a roster change to the room.
func (that *gamePlayService) setConnected(ctx context.Context, code, playerID string, connected bool) error {
	player, err := that.playerService.GetPlayerByID(ctx, playerID)
	if err != nil {
		return err
	}

	if player.Connected != connected {
		player.Connected = connected
		if err = that.playerService.UpdatePlayer(ctx, player); err != nil {
			return err
		}
	} else if connected {
		if err = that.playerService.RefreshSession(ctx, playerID); err != nil {
			return err
		}
	}

	if code == "" {
		return nil
	}

	room, err := that.roomService.GetRoomByCode(ctx, code)
	if err != nil {
		return err
	}

	member := room.PlayerByID(playerID)
	if member == nil || member.Connected == connected {
		return nil
	}

	member.Connected = connected
	if err = that.roomService.UpdateRoom(ctx, room); err != nil {
		return err
	}

	that.publish(ctx, room.Code, []game.Event{
		{Name: events.TeamsUpdated, Payload: map[string]any{"players": room.Players, "owner_id": room.OwnerID}},
	})

	return nil
}

// Advance is the per-request scheduler: while a stored deadline has
// passed, synthesize the due transition, re-check its guard against a
// fresh read and try the compare-and-swap. One bounded loop covers the
// recurse flag; a lost write just waits for the next request.
func (that *gamePlayService) Advance(ctx context.Context, code string, now time.Time) error {
	log := that.logger.With("method", "Advance", "roomCode", code)

	for i := 0; i < maxAdvancements; i++ {
		room, err := that.roomService.GetRoomByCode(ctx, code)
		if err != nil {
			return err
		}

		if !room.IsPlaying() {
			return nil
		}

		module, err := that.registry.Lookup(room.Game)
		if err != nil {
			return err
		}

		adv, err := module.ComputeScheduledAdvancement(room.State, room.Players, now)
		if err != nil {
			return fmt.Errorf("failed to compute advancement: %w", err)
		}

		if adv == nil {
			return nil
		}

		// the guard runs against the snapshot the CAS will compare to;
		// a transition computed from a stale read is discarded here
		fresh, err := that.roomService.GetRoomByCode(ctx, code)
		if err != nil {
			return err
		}

		if !adv.Guard(fresh.State) {
			return nil
		}

		fresh.State = adv.State
		if err = that.syncStatus(fresh, module); err != nil {
			return err
		}

		if err = that.roomService.UpdateRoom(ctx, fresh); err != nil {
			log.Debug("scheduled advancement lost the write", "error", err)
			return nil
		}

		that.publish(ctx, code, adv.Events)

		if !adv.Recurse {
			return nil
		}
	}

	return nil
}

// RoomView returns a copy of the room whose state is sanitized for one
// viewer.
func (that *gamePlayService) RoomView(ctx context.Context, code, viewerID string) (*entity.Room, error) {
	room, err := that.roomService.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if room.State == nil {
		return room, nil
	}

	module, err := that.registry.Lookup(room.Game)
	if err != nil {
		return nil, err
	}

	view := room.Clone()
	view.State, err = module.SanitizeForViewer(room.State, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to sanitize state: %w", err)
	}

	return view, nil
}

func (that *gamePlayService) syncStatus(room *entity.Room, module game.Module) error {
	result, err := module.CheckGameOver(room.State)
	if err != nil {
		return fmt.Errorf("failed to check game over: %w", err)
	}

	if result.IsOver {
		room.Status = entity.StatusFinished
	} else {
		room.Status = entity.StatusPlaying
	}

	for _, player := range room.Players {
		if score, ok := result.Scores[player.ID]; ok {
			player.Score = score
		}
	}

	return nil
}

func (that *gamePlayService) publish(ctx context.Context, code string, evts []game.Event) {
	if len(evts) == 0 {
		return
	}

	if err := that.publisher.Publish(ctx, code, evts); err != nil {
		that.logger.Error("failed to publish events", "roomCode", code, "error", err)
	}
}
