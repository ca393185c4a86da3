package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/whosdeal-backend/internal/entity"
	"github.com/rocketscienceinc/whosdeal-backend/internal/service"
)

// session is one live connection and the player identity attached to it
// by the connect handshake.
type session struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	playerID string
	roomCode string
}

func (that *session) send(action string, payload Payload) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err := that.conn.WriteJSON(Message{Action: action, Payload: mustMarshal(payload)}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func mustMarshal(payload Payload) json.RawMessage {
	raw, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage(`{}`)
	}

	return raw
}

type Server struct {
	logger *slog.Logger

	playerService   service.PlayerService
	gamePlayService service.GamePlayService

	upgrader websocket.Upgrader
	handlers map[string]func(ctx context.Context, sess *session, msg *Message) error
}

func New(logger *slog.Logger, playerService service.PlayerService, gamePlayService service.GamePlayService) *Server {
	server := &Server{
		logger:          logger,
		playerService:   playerService,
		gamePlayService: gamePlayService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		handlers: make(map[string]func(context.Context, *session, *Message) error),
	}

	server.handlers["connect"] = server.handleConnect
	server.handlers["heartbeat"] = server.handleHeartbeat
	server.handlers["room:create"] = server.handleCreateRoom
	server.handlers["room:join"] = server.handleJoinRoom
	server.handlers["room:leave"] = server.handleLeaveRoom
	server.handlers["room:settings"] = server.handleSettings
	server.handlers["game:start"] = server.handleStartGame
	server.handlers["game:action"] = server.handleGameAction

	return server
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  0,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) serveConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveConnection")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	defer conn.Close()

	log.Info("WebSocket connection established")

	sess := &session{conn: conn}

	// the read loop ending is the disconnect signal; the seat stays
	// reserved for a reconnect with the same session id
	defer func() {
		if sess.playerID == "" {
			return
		}

		if err := that.gamePlayService.Disconnect(ctx, sess.roomCode, sess.playerID); err != nil {
			log.Debug("failed to mark player disconnected", "playerID", sess.playerID, "error", err)
		}
	}()

	for {
		_, reqBody, err := conn.ReadMessage()
		if err != nil {
			log.Debug("connection closed", "error", err)
			return
		}

		var message Message
		if err = json.Unmarshal(reqBody, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Error("unknown action", "action", message.Action)
			continue
		}

		if err = handler(ctx, sess, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// sendRoomView replies with the room sanitized for the session's player.
func (that *Server) sendRoomView(ctx context.Context, sess *session, action string, room *entity.Room, player *entity.Player) error {
	view, err := that.gamePlayService.RoomView(ctx, room.Code, sess.playerID)
	if err != nil {
		return err
	}

	return sess.send(action, Payload{Player: player, Room: view})
}

func (that *Server) sendErrorResponse(sess *session, action, message string) error {
	return sess.send(action, Payload{Error: message})
}
