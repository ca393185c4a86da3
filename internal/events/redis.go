package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/whosdeal-backend/internal/game"
)

// Publisher is the sink for engine events; the realtime transport
// subscribes on the other side.
type Publisher interface {
	Publish(ctx context.Context, roomCode string, evts []game.Event) error
}

type redisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) Publisher {
	return &redisPublisher{
		client: client,
	}
}

func RoomChannel(code string) string {
	return "room:" + code + ":events"
}

func PlayerChannel(id string) string {
	return "player:" + id + ":events"
}

// Publish fans events out to the room channel, or to a private player
// channel for events that carry hidden information.
func (that *redisPublisher) Publish(ctx context.Context, roomCode string, evts []game.Event) error {
	for _, event := range evts {
		eventJSON, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.Name, err)
		}

		channel := RoomChannel(roomCode)
		if event.PlayerID != "" {
			channel = PlayerChannel(event.PlayerID)
		}

		if err = that.client.Publish(ctx, channel, eventJSON).Err(); err != nil {
			return fmt.Errorf("failed to publish event %s: %w", event.Name, err)
		}
	}

	return nil
}
