package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rocketscienceinc/whosdeal-backend/internal/entity"
	"github.com/rocketscienceinc/whosdeal-backend/internal/pkg"
)

type RoomService interface {
	CreateRoom(ctx context.Context, owner *entity.Player) (*entity.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*entity.Room, error)
	UpdateRoom(ctx context.Context, room *entity.Room) error
	RefreshRoom(ctx context.Context, code string) error
	DeleteRoom(ctx context.Context, code string) error
}

type roomRepo interface {
	Save(ctx context.Context, room *entity.Room, ttl time.Duration) error
	GetByCode(ctx context.Context, code string) (*entity.Room, error)
	CompareAndSwap(ctx context.Context, room *entity.Room, ttl time.Duration) error
	Exists(ctx context.Context, code string) (bool, error)
	RefreshTTL(ctx context.Context, code string, ttl time.Duration) error
	DeleteByCode(ctx context.Context, code string) error
}

type roomService struct {
	roomRepo roomRepo
	roomTTL  time.Duration
}

func NewRoomService(roomRepo roomRepo, roomTTL time.Duration) RoomService {
	return &roomService{
		roomRepo: roomRepo,
		roomTTL:  roomTTL,
	}
}

const maxCodeAttempts = 5

func (that *roomService) CreateRoom(ctx context.Context, owner *entity.Player) (*entity.Room, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := pkg.GenerateRoomCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate room code: %w", err)
		}

		taken, err := that.roomRepo.Exists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to check room code: %w", err)
		}

		if taken {
			continue
		}

		room := entity.NewRoom(code, owner)
		if err = that.roomRepo.Save(ctx, room, that.roomTTL); err != nil {
			return nil, fmt.Errorf("failed to save room: %w", err)
		}

		return room, nil
	}

	return nil, fmt.Errorf("no free room code after %d attempts", maxCodeAttempts)
}

func (that *roomService) GetRoomByCode(ctx context.Context, code string) (*entity.Room, error) {
	room, err := that.roomRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get room by code: %w", err)
	}

	return room, nil
}

// UpdateRoom attempts the compare-and-swap write; a version conflict
// propagates as repository.ErrVersionConflict for the caller to discard.
func (that *roomService) UpdateRoom(ctx context.Context, room *entity.Room) error {
	if err := that.roomRepo.CompareAndSwap(ctx, room, that.roomTTL); err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}

	return nil
}

func (that *roomService) RefreshRoom(ctx context.Context, code string) error {
	if err := that.roomRepo.RefreshTTL(ctx, code, that.roomTTL); err != nil {
		return fmt.Errorf("failed to refresh room: %w", err)
	}

	return nil
}

func (that *roomService) DeleteRoom(ctx context.Context, code string) error {
	if err := that.roomRepo.DeleteByCode(ctx, code); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	return nil
}
