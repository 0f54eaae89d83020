package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-coordinator/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-coordinator/internal/entity"
	"github.com/rocketscienceinc/tictactoe-coordinator/internal/notifier"
)

// JoinResult - a player's seat in a game.
type JoinResult struct {
	Game      *entity.Game  `json:"game"`
	Symbol    entity.Symbol `json:"symbol"`
	ChannelID string        `json:"channel_id"`
}

func newJoinResult(game *entity.Game, playerID string, symbol entity.Symbol) *JoinResult {
	return &JoinResult{
		Game:      game,
		Symbol:    symbol,
		ChannelID: game.ChannelID(playerID),
	}
}

type MatchmakerService interface {
	// JoinOrCreate - seats playerID in gameID, or in the oldest open game, or in a new game.
	JoinOrCreate(ctx context.Context, playerID, gameID string) (*JoinResult, error)
}

type recorder interface {
	IncGamesCreated()
	IncGamesJoined()
	ObserveMove(result string)
}

type matchmakerService struct {
	logger *slog.Logger

	gameService GameService
	notifier    notifier.Notifier
	recorder    recorder
}

func NewMatchmakerService(logger *slog.Logger, gameService GameService, notifier notifier.Notifier, recorder recorder) MatchmakerService {
	return &matchmakerService{
		logger:      logger.With("component", "matchmaker"),
		gameService: gameService,
		notifier:    notifier,
		recorder:    recorder,
	}
}

func (that *matchmakerService) JoinOrCreate(ctx context.Context, playerID, gameID string) (*JoinResult, error) {
	if playerID == "" {
		return nil, apperror.ErrInvalidPlayer
	}

	if gameID != "" {
		return that.joinGameByID(ctx, playerID, gameID)
	}

	return that.joinOpenOrCreate(ctx, playerID)
}

func (that *matchmakerService) joinGameByID(ctx context.Context, playerID, gameID string) (*JoinResult, error) {
	game, err := that.gameService.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	// reload of a seat already held, also how the creator returns to their own game
	if symbol, ok := game.SymbolOf(playerID); ok {
		return newJoinResult(game, playerID, symbol), nil
	}

	if game.PlayerO != "" {
		return nil, fmt.Errorf("%w: game id %s", apperror.ErrGameFull, gameID)
	}

	if game.IsOver() {
		return nil, fmt.Errorf("%w: game id %s", apperror.ErrGameOver, gameID)
	}

	return that.seatAsO(ctx, game, playerID)
}

// joinOpenOrCreate - open games are tried oldest first; games of the requester are skipped.
func (that *matchmakerService) joinOpenOrCreate(ctx context.Context, playerID string) (*JoinResult, error) {
	log := that.logger.With("method", "joinOpenOrCreate", "playerID", playerID)

	// offset counts the entries of the index already looked at that are still in it
	var offset int64
	for {
		ids, err := that.gameService.GetOpenGameIDs(ctx, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to get open games: %w", err)
		}

		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			game, err := that.gameService.GetGameByID(ctx, id)
			if errors.Is(err, apperror.ErrNotFound) {
				if !that.dropOpenGame(ctx, log, id) {
					offset++
				}
				continue
			}

			if err != nil {
				return nil, fmt.Errorf("failed to get open game: %w", err)
			}

			if !game.IsOpen() {
				if !that.dropOpenGame(ctx, log, id) {
					offset++
				}
				continue
			}

			if game.PlayerX == playerID {
				offset++
				continue
			}

			return that.seatAsO(ctx, game, playerID)
		}
	}

	game, err := that.gameService.CreateGame(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	that.recorder.IncGamesCreated()
	log.Info("game created", "gameID", game.ID)

	return newJoinResult(game, playerID, entity.SymbolX), nil
}

// seatAsO - claims the O slot under the same version check as a move.
func (that *matchmakerService) seatAsO(ctx context.Context, game *entity.Game, playerID string) (*JoinResult, error) {
	next := game.Clone()
	next.PlayerO = playerID
	next.Version++

	if err := that.gameService.UpdateGame(ctx, game.Version, next); err != nil {
		return nil, fmt.Errorf("failed to join game %s: %w", game.ID, err)
	}

	that.recorder.IncGamesJoined()
	that.logger.Info("player joined game", "gameID", next.ID, "playerID", playerID)

	that.notifier.Notify(context.WithoutCancel(ctx), next.ChannelID(next.PlayerX), next.Event())

	return newJoinResult(next, playerID, entity.SymbolO), nil
}

// dropOpenGame - reports whether id left the open index.
func (that *matchmakerService) dropOpenGame(ctx context.Context, log *slog.Logger, id string) bool {
	if err := that.gameService.DropOpenGame(ctx, id); err != nil {
		log.Warn("failed to drop stale open game", "gameID", id, "error", err)
		return false
	}

	return true
}
