package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/whosdeal-backend/internal/entity"
	"github.com/rocketscienceinc/whosdeal-backend/internal/pkg"
	"github.com/rocketscienceinc/whosdeal-backend/internal/repository"
)

type PlayerService interface {
	GetOrCreatePlayer(ctx context.Context, id, name string) (*entity.Player, error)
	GetPlayerByID(ctx context.Context, id string) (*entity.Player, error)
	UpdatePlayer(ctx context.Context, player *entity.Player) error
	RefreshSession(ctx context.Context, id string) error
}

type playerRepo interface {
	CreateOrUpdate(ctx context.Context, player *entity.Player, ttl time.Duration) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
	RefreshTTL(ctx context.Context, id string, ttl time.Duration) error
}

type playerService struct {
	playerRepo playerRepo
	sessionTTL time.Duration
}

func NewPlayerService(playerRepo playerRepo, sessionTTL time.Duration) PlayerService {
	return &playerService{
		playerRepo: playerRepo,
		sessionTTL: sessionTTL,
	}
}

// GetOrCreatePlayer resolves a claimed session id, creating a fresh
// session when the id is empty or expired.
func (that *playerService) GetOrCreatePlayer(ctx context.Context, id, name string) (*entity.Player, error) {
	if id != "" {
		player, err := that.playerRepo.GetByID(ctx, id)
		if err == nil {
			if name != "" && player.Name != name {
				player.Name = name
				if err = that.UpdatePlayer(ctx, player); err != nil {
					return nil, err
				}
			}

			return player, nil
		}

		if !errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, fmt.Errorf("failed to get player by id: %w", err)
		}
	}

	player := &entity.Player{
		ID:        pkg.GenerateNewSessionID(),
		Name:      name,
		Connected: true,
	}

	if err := that.playerRepo.CreateOrUpdate(ctx, player, that.sessionTTL); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	return player, nil
}

func (that *playerService) GetPlayerByID(ctx context.Context, id string) (*entity.Player, error) {
	player, err := that.playerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	return player, nil
}

func (that *playerService) UpdatePlayer(ctx context.Context, player *entity.Player) error {
	if err := that.playerRepo.CreateOrUpdate(ctx, player, that.sessionTTL); err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}

	return nil
}

func (that *playerService) RefreshSession(ctx context.Context, id string) error {
	if err := that.playerRepo.RefreshTTL(ctx, id, that.sessionTTL); err != nil {
		return fmt.Errorf("failed to refresh session: %w", err)
	}

	return nil
}
