package entity

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/whosdeal-backend/internal/apperror"
)

const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

// MaxSeats - every game on the platform seats at most four players.
const MaxSeats = 4

// Room is the unit of storage: the whole room, lobby settings and the
// opaque per-game state travel together through every compare-and-swap.
type Room struct {
	Code     string          `json:"code"`
	Status   string          `json:"status"`
	OwnerID  string          `json:"owner_id"`
	Players  []*Player       `json:"players,omitempty"`
	Game     string          `json:"game,omitempty"`
	Settings map[string]any  `json:"settings,omitempty"`
	State    json.RawMessage `json:"state,omitempty"`

	// Version is the optimistic-lock token, incremented on every
	// successful write.
	Version int64 `json:"version"`
}

func NewRoom(code string, owner *Player) *Room {
	return &Room{
		Code:    code,
		Status:  StatusWaiting,
		OwnerID: owner.ID,
		Players: []*Player{owner},
	}
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Room) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Room) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Room) PlayerByID(id string) *Player {
	for _, player := range that.Players {
		if player.ID == id {
			return player
		}
	}

	return nil
}

func (that *Room) AddPlayer(player *Player) error {
	if that.PlayerByID(player.ID) != nil {
		return nil
	}

	if !that.IsWaiting() {
		return apperror.ErrRoomAlreadyPlaying
	}

	if len(that.Players) >= MaxSeats {
		return apperror.ErrRoomIsFull
	}

	that.Players = append(that.Players, player)

	return nil
}

func (that *Room) RemovePlayer(id string) {
	for i, player := range that.Players {
		if player.ID == id {
			that.Players = append(that.Players[:i], that.Players[i+1:]...)
			return
		}
	}
}

// ReplacePlayer swaps a departed player for a bot at the same seat.
func (that *Room) ReplacePlayer(id string, substitute *Player) (int, error) {
	for i, player := range that.Players {
		if player.ID == id {
			substitute.Score = player.Score
			that.Players[i] = substitute

			if that.OwnerID == id {
				that.transferOwnership()
			}

			return i, nil
		}
	}

	return -1, fmt.Errorf("player %s is not in room %s", id, that.Code)
}

func (that *Room) transferOwnership() {
	for _, player := range that.Players {
		if !player.IsBot() {
			that.OwnerID = player.ID
			return
		}
	}

	that.OwnerID = ""
}

// Clone returns a deep copy; transformations are applied to copies so a
// rejected compare-and-swap never leaves a half-mutated snapshot behind.
func (that *Room) Clone() *Room {
	clone := *that

	clone.Players = make([]*Player, len(that.Players))
	for i, player := range that.Players {
		playerCopy := *player
		clone.Players[i] = &playerCopy
	}

	if that.Settings != nil {
		clone.Settings = make(map[string]any, len(that.Settings))
		for k, v := range that.Settings {
			clone.Settings[k] = v
		}
	}

	if that.State != nil {
		clone.State = append(json.RawMessage(nil), that.State...)
	}

	return &clone
}
