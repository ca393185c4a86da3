package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/whosdeal-backend/internal/repository"
)

func parsePayload(msg *Message) (*Payload, error) {
	var payload Payload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}

	return &payload, nil
}

// handleConnect resolves or creates the player session and binds it to
// this connection.
func (that *Server) handleConnect(ctx context.Context, sess *session, msg *Message) error {
	log := that.logger.With("method", "handleConnect")

	payload, err := parsePayload(msg)
	if err != nil {
		return err
	}

	var claimedID string

	name := payload.Name
	if payload.Player != nil {
		claimedID = payload.Player.ID
		if payload.Player.Name != "" {
			name = payload.Player.Name
		}
	}

	player, err := that.playerService.GetOrCreatePlayer(ctx, claimedID, name)
	if err != nil {
		log.Error("failed to create or get player", "error", err)

		return that.sendErrorResponse(sess, msg.Action, "failed to create a new player")
	}

	sess.playerID = player.ID
	sess.roomCode = player.RoomCode

	if err = that.gamePlayService.Heartbeat(ctx, player.RoomCode, player.ID, time.Now()); err != nil {
		log.Error("failed to mark player connected", "error", err)
	}

	if player.RoomCode != "" {
		room, err := that.gamePlayService.RoomView(ctx, player.RoomCode, player.ID)
		if err == nil {
			return sess.send(msg.Action, Payload{Player: player, Room: room})
		}

		// the room expired while the player was away
		player.RoomCode = ""
		sess.roomCode = ""
		if err = that.playerService.UpdatePlayer(ctx, player); err != nil {
			log.Error("failed to update player", "error", err)
		}
	}

	log.Info("successfully connected player")

	return sess.send(msg.Action, Payload{Player: player})
}

// handleHeartbeat refreshes TTLs and lets the scheduler catch up on any
// elapsed deadline.
func (that *Server) handleHeartbeat(ctx context.Context, sess *session, msg *Message) error {
	if sess.playerID == "" {
		return that.sendErrorResponse(sess, msg.Action, "connect first")
	}

	if err := that.gamePlayService.Heartbeat(ctx, sess.roomCode, sess.playerID, time.Now()); err != nil {
		that.logger.Debug("heartbeat failed", "playerID", sess.playerID, "error", err)
	}

	return sess.send(msg.Action, Payload{})
}

func (that *Server) handleCreateRoom(ctx context.Context, sess *session, msg *Message) error {
	if sess.playerID == "" {
		return that.sendErrorResponse(sess, msg.Action, "connect first")
	}

	room, err := that.gamePlayService.CreateRoom(ctx, sess.playerID)
	if err != nil {
		that.logger.Error("failed to create room", "error", err)

		return that.sendErrorResponse(sess, msg.Action, "failed to create room")
	}

	sess.roomCode = room.Code

	player, err := that.playerService.GetPlayerByID(ctx, sess.playerID)
	if err != nil {
		return err
	}

	return sess.send(msg.Action, Payload{Player: player, Room: room})
}

func (that *Server) handleJoinRoom(ctx context.Context, sess *session, msg *Message) error {
	payload, err := parsePayload(msg)
	if err != nil {
		return err
	}

	if sess.playerID == "" || payload.RoomCode == "" {
		return that.sendErrorResponse(sess, msg.Action, "room code is required")
	}

	room, err := that.gamePlayService.JoinRoom(ctx, payload.RoomCode, sess.playerID)
	if err != nil {
		return that.sendErrorResponse(sess, msg.Action, err.Error())
	}

	sess.roomCode = room.Code

	player, err := that.playerService.GetPlayerByID(ctx, sess.playerID)
	if err != nil {
		return err
	}

	return that.sendRoomView(ctx, sess, msg.Action, room, player)
}

func (that *Server) handleLeaveRoom(ctx context.Context, sess *session, msg *Message) error {
	if sess.playerID == "" || sess.roomCode == "" {
		return sess.send(msg.Action, Payload{})
	}

	if _, err := that.gamePlayService.LeaveRoom(ctx, sess.roomCode, sess.playerID); err != nil {
		that.logger.Error("failed to leave room", "error", err)
	}

	player, err := that.playerService.GetPlayerByID(ctx, sess.playerID)
	if err == nil {
		player.RoomCode = ""
		if err = that.playerService.UpdatePlayer(ctx, player); err != nil {
			that.logger.Error("failed to update player", "error", err)
		}
	}

	sess.roomCode = ""

	return sess.send(msg.Action, Payload{})
}

func (that *Server) handleSettings(ctx context.Context, sess *session, msg *Message) error {
	payload, err := parsePayload(msg)
	if err != nil {
		return err
	}

	if sess.playerID == "" || sess.roomCode == "" {
		return that.sendErrorResponse(sess, msg.Action, "join a room first")
	}

	room, err := that.gamePlayService.UpdateSettings(ctx, sess.roomCode, sess.playerID, payload.Settings)
	if err != nil {
		return that.sendErrorResponse(sess, msg.Action, err.Error())
	}

	player, err := that.playerService.GetPlayerByID(ctx, sess.playerID)
	if err != nil {
		return err
	}

	return that.sendRoomView(ctx, sess, msg.Action, room, player)
}

func (that *Server) handleStartGame(ctx context.Context, sess *session, msg *Message) error {
	payload, err := parsePayload(msg)
	if err != nil {
		return err
	}

	if sess.playerID == "" || sess.roomCode == "" {
		return that.sendErrorResponse(sess, msg.Action, "join a room first")
	}

	room, err := that.gamePlayService.StartGame(ctx, sess.roomCode, sess.playerID, payload.Game, time.Now())
	if err != nil {
		return that.sendErrorResponse(sess, msg.Action, err.Error())
	}

	player, err := that.playerService.GetPlayerByID(ctx, sess.playerID)
	if err != nil {
		return err
	}

	return that.sendRoomView(ctx, sess, msg.Action, room, player)
}

// handleGameAction routes one gameplay action. A version conflict is a
// concurrency signal, not a failure: the reply just carries the current
// view and the client acts again from there.
func (that *Server) handleGameAction(ctx context.Context, sess *session, msg *Message) error {
	payload, err := parsePayload(msg)
	if err != nil {
		return err
	}

	if sess.playerID == "" || sess.roomCode == "" {
		return that.sendErrorResponse(sess, msg.Action, "join a room first")
	}

	if payload.Action == nil {
		return that.sendErrorResponse(sess, msg.Action, "game action is required")
	}

	now := time.Now()

	room, err := that.gamePlayService.HandleAction(ctx, sess.roomCode, sess.playerID, *payload.Action, now)
	if err != nil && !errors.Is(err, repository.ErrVersionConflict) {
		return that.sendErrorResponse(sess, msg.Action, err.Error())
	}

	if err := that.gamePlayService.Advance(ctx, sess.roomCode, now); err != nil {
		that.logger.Debug("advance after action failed", "error", err)
	}

	player, err := that.playerService.GetPlayerByID(ctx, sess.playerID)
	if err != nil {
		return err
	}

	if room == nil {
		view, viewErr := that.gamePlayService.RoomView(ctx, sess.roomCode, sess.playerID)
		if viewErr != nil {
			return viewErr
		}

		return sess.send(msg.Action, Payload{Player: player, Room: view})
	}

	return that.sendRoomView(ctx, sess, msg.Action, room, player)
}
