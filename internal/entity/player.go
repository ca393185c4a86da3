package entity

import "strings"

type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Bot       bool   `json:"bot,omitempty"`
	Connected bool   `json:"connected"`
	Score     int    `json:"score"`
	RoomCode  string `json:"room_code,omitempty"`
}

func NewBotPlayer(id, name string) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Bot:       true,
		Connected: true,
	}
}

func (that *Player) IsBot() bool {
	return that.Bot || strings.HasPrefix(that.ID, "bot:")
}
