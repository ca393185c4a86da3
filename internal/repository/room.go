package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/whosdeal-backend/internal/entity"
)

var (
	ErrRoomNotFound = errors.New("room not found")

	// ErrVersionConflict - the optimistic lock lost: another writer
	// updated the room between read and write. Not a gameplay error;
	// callers retry on their next interaction.
	ErrVersionConflict = errors.New("room version conflict")
)

type RoomRepository interface {
	Save(ctx context.Context, room *entity.Room, ttl time.Duration) error
	GetByCode(ctx context.Context, code string) (*entity.Room, error)
	CompareAndSwap(ctx context.Context, room *entity.Room, ttl time.Duration) error
	Exists(ctx context.Context, code string) (bool, error)
	RefreshTTL(ctx context.Context, code string, ttl time.Duration) error
	DeleteByCode(ctx context.Context, code string) error
}

type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

func roomKey(code string) string {
	return "room:" + code
}

// Save writes unconditionally and bumps the version; used only for a
// freshly created room.
func (that *dbRoom) Save(ctx context.Context, room *entity.Room, ttl time.Duration) error {
	room.Version++

	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	if err = that.client.Set(ctx, roomKey(room.Code), roomJSON, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (that *dbRoom) GetByCode(ctx context.Context, code string) (*entity.Room, error) {
	response, err := that.client.Get(ctx, roomKey(code)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by code: %w", err)
	}

	var existingRoom entity.Room
	if err = json.Unmarshal([]byte(response), &existingRoom); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &existingRoom, nil
}

// CompareAndSwap writes the room only if the stored version still equals
// room.Version; the stored copy gets room.Version+1. The version counter
// is the optimistic-lock token, so no payload comparison is needed.
func (that *dbRoom) CompareAndSwap(ctx context.Context, room *entity.Room, ttl time.Duration) error {
	key := roomKey(room.Code)

	txf := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return ErrRoomNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to get room by code: %w", err)
		}

		var stored entity.Room
		if err = json.Unmarshal([]byte(response), &stored); err != nil {
			return fmt.Errorf("failed to unmarshal room: %w", err)
		}

		if stored.Version != room.Version {
			return ErrVersionConflict
		}

		candidate := *room
		candidate.Version++

		roomJSON, err := json.Marshal(&candidate)
		if err != nil {
			return fmt.Errorf("could not marshal room: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, roomJSON, ttl)
			return nil
		})

		return err
	}

	err := that.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}

	if err != nil {
		return err
	}

	room.Version++

	return nil
}

func (that *dbRoom) Exists(ctx context.Context, code string) (bool, error) {
	count, err := that.client.Exists(ctx, roomKey(code)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check room existence: %w", err)
	}

	return count > 0, nil
}

func (that *dbRoom) RefreshTTL(ctx context.Context, code string, ttl time.Duration) error {
	ok, err := that.client.Expire(ctx, roomKey(code), ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to refresh room ttl: %w", err)
	}

	if !ok {
		return ErrRoomNotFound
	}

	return nil
}

func (that *dbRoom) DeleteByCode(ctx context.Context, code string) error {
	if err := that.client.Del(ctx, roomKey(code)).Err(); err != nil {
		return fmt.Errorf("failed to delete room by code: %w", err)
	}

	return nil
}
