package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/whosdeal-backend/internal/config"
	"github.com/rocketscienceinc/whosdeal-backend/internal/euchre"
	"github.com/rocketscienceinc/whosdeal-backend/internal/events"
	"github.com/rocketscienceinc/whosdeal-backend/internal/game"
	"github.com/rocketscienceinc/whosdeal-backend/internal/repository"
	"github.com/rocketscienceinc/whosdeal-backend/internal/repository/storage"
	"github.com/rocketscienceinc/whosdeal-backend/internal/service"
	"github.com/rocketscienceinc/whosdeal-backend/transport/rest"
	"github.com/rocketscienceinc/whosdeal-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	playerRepo := repository.NewPlayerRepository(redisStorage.Connection)
	roomRepo := repository.NewRoomRepository(redisStorage.Connection)

	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint: gosec // shuffling, not secrets
	registry := game.NewRegistry(
		euchre.NewModule(rng, euchre.Tunables{
			BotMoveDelay: conf.Game.BotMoveDelay,
			RoundBreak:   conf.Game.RoundBreak,
			TargetScore:  conf.Game.TargetScore,
		}),
	)

	publisher := events.NewRedisPublisher(redisStorage.Connection)

	playerService := service.NewPlayerService(playerRepo, conf.Game.SessionTTL)
	roomService := service.NewRoomService(roomRepo, conf.Game.RoomTTL)
	gamePlayService := service.NewGamePlayService(logger, playerService, roomService, registry, publisher)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		return rest.Start(conf.HTTPPort)
	})

	group.Go(func() error {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, playerService, gamePlayService)
		return wsServer.Start(groupCtx, conf.SocketPort)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("Application context canceled, shutting down")
		return groupCtx.Err()
	})

	if err = group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
