package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/whosdeal-backend/internal/entity"
	"github.com/rocketscienceinc/whosdeal-backend/internal/game"
)

// Message is one client request or server response, an action name plus a
// free-form payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Payload struct {
	Player   *entity.Player `json:"player,omitempty"`
	Room     *entity.Room   `json:"room,omitempty"`
	RoomCode string         `json:"room_code,omitempty"`
	Game     string         `json:"game,omitempty"`
	Name     string         `json:"name,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
	Action   *game.Action   `json:"game_action,omitempty"`
	Error    string         `json:"error,omitempty"`
}
