package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-coordinator/internal/entity"
)

// GameService - store access for the game services, every call bounded by the store timeout.
type GameService interface {
	CreateGame(ctx context.Context, playerID string) (*entity.Game, error)
	GetGameByID(ctx context.Context, id string) (*entity.Game, error)
	UpdateGame(ctx context.Context, expectedVersion int64, game *entity.Game) error

	// GetOpenGameIDs - one page of open game ids, oldest first, starting at offset.
	GetOpenGameIDs(ctx context.Context, offset int64) ([]string, error)
	DropOpenGame(ctx context.Context, id string) error
}

type gameRepo interface {
	Create(ctx context.Context, game *entity.Game) (string, error)
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	ConditionalUpdate(ctx context.Context, id string, expectedVersion int64, game *entity.Game) error

	ListOpen(ctx context.Context, offset, limit int64) ([]string, error)
	RemoveOpen(ctx context.Context, id string) error
}

const defaultOpenScanLimit = 20

type gameService struct {
	gameRepo      gameRepo
	storeTimeout  time.Duration
	openScanLimit int64
	now           func() time.Time
}

// NewGameService - a zero storeTimeout leaves deadlines to the caller's context.
func NewGameService(gameRepo gameRepo, storeTimeout time.Duration, openScanLimit int64, now func() time.Time) GameService {
	if now == nil {
		now = time.Now
	}

	if openScanLimit <= 0 {
		openScanLimit = defaultOpenScanLimit
	}

	return &gameService{
		gameRepo:      gameRepo,
		storeTimeout:  storeTimeout,
		openScanLimit: openScanLimit,
		now:           now,
	}
}

func (that *gameService) CreateGame(ctx context.Context, playerID string) (*entity.Game, error) {
	ctx, cancel := that.bound(ctx)
	defer cancel()

	game := entity.NewGame("", playerID, that.now().UTC())

	id, err := that.gameRepo.Create(ctx, game)
	if err != nil {
		return nil, fmt.Errorf("failed to create game in storage: %w", err)
	}

	game.ID = id

	return game, nil
}

func (that *gameService) GetGameByID(ctx context.Context, id string) (*entity.Game, error) {
	ctx, cancel := that.bound(ctx)
	defer cancel()

	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve game from storage: %w", err)
	}

	return game, nil
}

// UpdateGame - commits game only if the stored version is still expectedVersion.
func (that *gameService) UpdateGame(ctx context.Context, expectedVersion int64, game *entity.Game) error {
	ctx, cancel := that.bound(ctx)
	defer cancel()

	game.UpdatedAt = that.now().UTC()

	if err := that.gameRepo.ConditionalUpdate(ctx, game.ID, expectedVersion, game); err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	return nil
}

func (that *gameService) GetOpenGameIDs(ctx context.Context, offset int64) ([]string, error) {
	ctx, cancel := that.bound(ctx)
	defer cancel()

	ids, err := that.gameRepo.ListOpen(ctx, offset, that.openScanLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list open games: %w", err)
	}

	return ids, nil
}

func (that *gameService) DropOpenGame(ctx context.Context, id string) error {
	ctx, cancel := that.bound(ctx)
	defer cancel()

	if err := that.gameRepo.RemoveOpen(ctx, id); err != nil {
		return fmt.Errorf("failed to drop open game: %w", err)
	}

	return nil
}

func (that *gameService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if that.storeTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, that.storeTimeout)
}
