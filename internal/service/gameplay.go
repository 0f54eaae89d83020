package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-coordinator/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-coordinator/internal/entity"
	"github.com/rocketscienceinc/tictactoe-coordinator/internal/notifier"
)

type GamePlayService interface {
	// SubmitMove - places the player's symbol at cell. A lost race returns apperror.ErrConflict
	// and is not retried here; the caller reloads and decides.
	SubmitMove(ctx context.Context, gameID, playerID string, cell int) (*entity.Game, error)

	// GetGame - current state as seen by one of the participants.
	GetGame(ctx context.Context, gameID, playerID string) (*JoinResult, error)
}

type gamePlayService struct {
	logger *slog.Logger

	gameService GameService
	notifier    notifier.Notifier
	recorder    recorder
}

func NewGamePlayService(logger *slog.Logger, gameService GameService, notifier notifier.Notifier, recorder recorder) GamePlayService {
	return &gamePlayService{
		logger:      logger.With("component", "gameplay"),
		gameService: gameService,
		notifier:    notifier,
		recorder:    recorder,
	}
}

func (that *gamePlayService) SubmitMove(ctx context.Context, gameID, playerID string, cell int) (*entity.Game, error) {
	game, err := that.makeTurn(ctx, gameID, playerID, cell)
	if err != nil {
		that.recorder.ObserveMove(apperror.Kind(err))
		return nil, err
	}

	that.recorder.ObserveMove("ok")

	event := game.Event()
	for _, participant := range game.Players() {
		that.notifier.Notify(context.WithoutCancel(ctx), game.ChannelID(participant), event)
	}

	return game, nil
}

func (that *gamePlayService) makeTurn(ctx context.Context, gameID, playerID string, cell int) (*entity.Game, error) {
	log := that.logger.With("method", "makeTurn", "gameID", gameID, "playerID", playerID)

	game, err := that.gameService.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	if game.IsOver() {
		return nil, fmt.Errorf("%w: outcome %s", apperror.ErrGameOver, game.Outcome)
	}

	symbol, ok := game.SymbolOf(playerID)
	if !ok {
		return nil, fmt.Errorf("%w: player is not in game", apperror.ErrNotYourTurn)
	}

	if symbol != game.Turn {
		return nil, fmt.Errorf("%w: turn of %s", apperror.ErrNotYourTurn, game.Turn)
	}

	board, err := game.Board.ApplyMove(cell, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to make turn: %w", err)
	}

	next := game.Clone()
	next.Board = board
	next.Outcome = board.Evaluate()
	next.MoveCount++
	next.Turn = symbol.Next()
	next.Version++

	if err = next.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to store move: %w", err)
	}

	if err = that.gameService.UpdateGame(ctx, game.Version, next); err != nil {
		return nil, fmt.Errorf("failed to commit turn: %w", err)
	}

	log.Debug("turn committed", "cell", cell, "version", next.Version, "outcome", next.Outcome)

	return next, nil
}

func (that *gamePlayService) GetGame(ctx context.Context, gameID, playerID string) (*JoinResult, error) {
	game, err := that.gameService.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	symbol, ok := game.SymbolOf(playerID)
	if !ok {
		return nil, fmt.Errorf("%w: game id %s", apperror.ErrNotParticipant, gameID)
	}

	return newJoinResult(game, playerID, symbol), nil
}
