package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/tictactoe-coordinator/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-coordinator/internal/entity"
)

const (
	gameKeyPrefix = "game:"
	openGamesKey  = "games:open"
)

var ErrInvalidVersion = errors.New("next version must follow the expected version")

type GameRepository interface {
	Create(ctx context.Context, game *entity.Game) (string, error)
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	ConditionalUpdate(ctx context.Context, id string, expectedVersion int64, game *entity.Game) error

	ListOpen(ctx context.Context, offset, limit int64) ([]string, error)
	RemoveOpen(ctx context.Context, id string) error
}

type dbGame struct {
	client *redis.Client
}

func NewGameRepository(client *redis.Client) GameRepository {
	return &dbGame{
		client: client,
	}
}

// Create - stores a new game under a fresh id and indexes it while it waits for a second player.
func (that *dbGame) Create(ctx context.Context, game *entity.Game) (string, error) {
	if game.ID == "" {
		game.ID = uuid.NewString()
	}

	gameJSON, err := json.Marshal(game)
	if err != nil {
		return "", fmt.Errorf("could not marshal game: %w", err)
	}

	gameKey := gameKeyPrefix + game.ID

	err = that.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, gameKey).Result()
		if err != nil {
			return err
		}

		if exists > 0 {
			return fmt.Errorf("%w: game %s already exists", apperror.ErrConflict, game.ID)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gameKey, gameJSON, 0)
			if game.IsOpen() {
				pipe.ZAdd(ctx, openGamesKey, redis.Z{Score: float64(game.CreatedAt.UnixMilli()), Member: game.ID})
			}
			return nil
		})

		return err
	}, gameKey)
	if err != nil {
		return "", txError("failed to create game", err)
	}

	return game.ID, nil
}

func (that *dbGame) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	gameKey := gameKeyPrefix + id

	response, err := that.client.Get(ctx, gameKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: id %s", apperror.ErrNotFound, id)
	}

	if err != nil {
		return nil, storeError("failed to get game", err)
	}

	return decodeGame(response)
}

// ConditionalUpdate - replaces the stored game only if its version still equals expectedVersion.
func (that *dbGame) ConditionalUpdate(ctx context.Context, id string, expectedVersion int64, game *entity.Game) error {
	if game.Version != expectedVersion+1 {
		return fmt.Errorf("%w: expected %d, next %d", ErrInvalidVersion, expectedVersion, game.Version)
	}

	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	gameKey := gameKeyPrefix + id

	err = that.client.Watch(ctx, func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, gameKey).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: id %s", apperror.ErrNotFound, id)
		}

		if err != nil {
			return err
		}

		current, err := decodeGame(response)
		if err != nil {
			return err
		}

		if current.Version != expectedVersion {
			return fmt.Errorf("%w: expected version %d, stored %d", apperror.ErrConflict, expectedVersion, current.Version)
		}

		// EXEC is discarded if anyone touched the key after WATCH
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gameKey, gameJSON, 0)
			if !game.IsOpen() {
				pipe.ZRem(ctx, openGamesKey, id)
			}
			return nil
		})

		return err
	}, gameKey)
	if err != nil {
		return txError("failed to update game", err)
	}

	return nil
}

// ListOpen - a page of ids of games waiting for a second player, oldest first.
func (that *dbGame) ListOpen(ctx context.Context, offset, limit int64) ([]string, error) {
	if limit <= 0 || offset < 0 {
		return nil, nil
	}

	ids, err := that.client.ZRange(ctx, openGamesKey, offset, offset+limit-1).Result()
	if err != nil {
		return nil, storeError("failed to list open games", err)
	}

	return ids, nil
}

func (that *dbGame) RemoveOpen(ctx context.Context, id string) error {
	if err := that.client.ZRem(ctx, openGamesKey, id).Err(); err != nil {
		return storeError("failed to remove open game", err)
	}

	return nil
}

func decodeGame(data []byte) (*entity.Game, error) {
	var game entity.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal game: %w", apperror.ErrStoreUnavailable, err)
	}

	return &game, nil
}

// txError - keeps domain errors raised inside a WATCH callback, maps the rest.
func txError(msg string, err error) error {
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%s: %w: %w", msg, apperror.ErrConflict, err)
	case errors.Is(err, apperror.ErrConflict),
		errors.Is(err, apperror.ErrNotFound),
		errors.Is(err, apperror.ErrStoreUnavailable):
		return fmt.Errorf("%s: %w", msg, err)
	default:
		return storeError(msg, err)
	}
}

// storeError - a store failure is either a timeout or the store being unavailable.
func storeError(msg string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w: %w", msg, apperror.ErrStoreTimeout, err)
	}

	return fmt.Errorf("%s: %w: %w", msg, apperror.ErrStoreUnavailable, err)
}
