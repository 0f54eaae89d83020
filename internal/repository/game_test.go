package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-coordinator/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-coordinator/internal/entity"
	"github.com/rocketscienceinc/tictactoe-coordinator/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// nextOf - the game after X plays cell, as the move processor would build it.
func nextOf(t *testing.T, game *entity.Game, cell int) *entity.Game {
	t.Helper()

	next := game.Clone()
	board, err := next.Board.ApplyMove(cell, next.Turn)
	require.NoError(t, err)

	next.Board = board
	next.MoveCount++
	next.Turn = next.Turn.Next()
	next.Outcome = board.Evaluate()
	next.Version++

	return next
}

func TestGameRepository_Create(t *testing.T) {
	t.Run("Assigns id and indexes the open game", func(t *testing.T) {
		ctx, st := suite.New(t)
		gameRepo := NewGameRepository(st.Storage)

		// Given: a new game without an id
		game := entity.NewGame("", "alice", testNow)

		// When: Create is called
		id, err := gameRepo.Create(ctx, game)

		// Then: the returned id identifies the stored game
		require.NoError(t, err)
		require.NotEmpty(t, id)
		assert.Equal(t, id, game.ID)

		stored, err := gameRepo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "alice", stored.PlayerX)
		assert.Equal(t, int64(1), stored.Version)
		assert.True(t, stored.CreatedAt.Equal(testNow))

		open, err := gameRepo.ListOpen(ctx, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{id}, open)
	})

	t.Run("Never overwrites an existing id", func(t *testing.T) {
		ctx, st := suite.New(t)
		gameRepo := NewGameRepository(st.Storage)

		// Given: a stored game
		_, err := gameRepo.Create(ctx, entity.NewGame("g1", "alice", testNow))
		require.NoError(t, err)

		// When: another game is created with the same id
		_, err = gameRepo.Create(ctx, entity.NewGame("g1", "mallory", testNow))

		// Then: it conflicts and the original survives
		require.ErrorIs(t, err, apperror.ErrConflict)

		stored, err := gameRepo.GetByID(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, "alice", stored.PlayerX)
	})
}

func TestGameRepository_GetByID(t *testing.T) {
	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)
		gameRepo := NewGameRepository(st.Storage)

		// When: GetByID is called with non-existent ID
		game, err := gameRepo.GetByID(ctx, "9999999")

		// Then: an ErrNotFound error should be returned
		require.ErrorIs(t, err, apperror.ErrNotFound)
		assert.Nil(t, game)
	})

	t.Run("GetByID_StoreDown", func(t *testing.T) {
		ctx, st := suite.New(t)
		gameRepo := NewGameRepository(st.Storage)

		// Given: redis refuses commands
		st.Redis.SetError("LOADING redis is loading the dataset in memory")

		// When: GetByID is called
		_, err := gameRepo.GetByID(ctx, "g1")

		// Then: the failure is reported as an unavailable store
		require.ErrorIs(t, err, apperror.ErrStoreUnavailable)
	})

	t.Run("GetByID_Timeout", func(t *testing.T) {
		_, st := suite.New(t)
		gameRepo := NewGameRepository(st.Storage)

		// Given: a context whose deadline already passed
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()

		// When: GetByID is called
		_, err := gameRepo.GetByID(ctx, "g1")

		// Then: the failure is a timeout, not a missing game
		require.ErrorIs(t, err, apperror.ErrStoreTimeout)
		assert.NotErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestGameRepository_ConditionalUpdate(t *testing.T) {
	t.Run("Commits when the version matches", func(t *testing.T) {
		ctx, st := suite.New(t)
		gameRepo := NewGameRepository(st.Storage)

		// Given: a stored game at version 1
		game := entity.NewGame("g1", "alice", testNow)
		_, err := gameRepo.Create(ctx, game)
		require.NoError(t, err)

		// When: a move is committed against version 1
		next := nextOf(t, game, 4)
		err = gameRepo.ConditionalUpdate(ctx, "g1", 1, next)

		// Then: the stored game is at version 2
		require.NoError(t, err)

		stored, err := gameRepo.GetByID(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), stored.Version)
		assert.Equal(t, entity.Cell(entity.SymbolX), stored.Board[4])
	})

	t.Run("Fails with conflict on a stale version", func(t *testing.T) {
		ctx, st := suite.New(t)
		gameRepo := NewGameRepository(st.Storage)

		// Given: a game already advanced to version 2
		game := entity.NewGame("g1", "alice", testNow)
		_, err := gameRepo.Create(ctx, game)
		require.NoError(t, err)
		require.NoError(t, gameRepo.ConditionalUpdate(ctx, "g1", 1, nextOf(t, game, 0)))

		// When: another writer commits against version 1
		err = gameRepo.ConditionalUpdate(ctx, "g1", 1, nextOf(t, game, 8))

		// Then: it conflicts and the first write stays
		require.ErrorIs(t, err, apperror.ErrConflict)

		stored, err := gameRepo.GetByID(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, entity.EmptyCell, stored.Board[8])
	})

	t.Run("Times out without committing", func(t *testing.T) {
		ctx, st := suite.New(t)
		gameRepo := NewGameRepository(st.Storage)

		// Given: a stored game at version 1
		game := entity.NewGame("g1", "alice", testNow)
		_, err := gameRepo.Create(ctx, game)
		require.NoError(t, err)

		// When: the update runs on a context whose deadline already passed
		expired, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
		defer cancel()

		err = gameRepo.ConditionalUpdate(expired, "g1", 1, nextOf(t, game, 4))

		// Then: the caller sees a timeout, never a conflict, and nothing was written
		require.ErrorIs(t, err, apperror.ErrStoreTimeout)
		assert.NotErrorIs(t, err, apperror.ErrConflict)
		assert.Equal(t, "store_timeout", apperror.Kind(err))

		stored, err := gameRepo.GetByID(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.Version)
		assert.Equal(t, entity.EmptyCell, stored.Board[4])
	})

	t.Run("Fails with not found on a missing game", func(t *testing.T) {
		ctx, st := suite.New(t)
		gameRepo := NewGameRepository(st.Storage)

		game := entity.NewGame("ghost", "alice", testNow)

		err := gameRepo.ConditionalUpdate(ctx, "ghost", 1, nextOf(t, game, 0))

		require.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("Rejects a next state that skips versions", func(t *testing.T) {
		ctx, st := suite.New(t)
		gameRepo := NewGameRepository(st.Storage)

		game := entity.NewGame("g1", "alice", testNow)
		_, err := gameRepo.Create(ctx, game)
		require.NoError(t, err)

		next := nextOf(t, game, 0)
		next.Version = 5

		err = gameRepo.ConditionalUpdate(ctx, "g1", 1, next)

		require.ErrorIs(t, err, ErrInvalidVersion)
	})

	t.Run("Drops the game from the open index once O joins", func(t *testing.T) {
		ctx, st := suite.New(t)
		gameRepo := NewGameRepository(st.Storage)

		// Given: an open game
		game := entity.NewGame("g1", "alice", testNow)
		_, err := gameRepo.Create(ctx, game)
		require.NoError(t, err)

		// When: bob takes the O slot
		next := game.Clone()
		next.PlayerO = "bob"
		next.Version++
		require.NoError(t, gameRepo.ConditionalUpdate(ctx, "g1", 1, next))

		// Then: the game is no longer listed
		open, err := gameRepo.ListOpen(ctx, 0, 10)
		require.NoError(t, err)
		assert.Empty(t, open)
	})

	t.Run("Exactly one of many concurrent writers commits", func(t *testing.T) {
		ctx, st := suite.New(t)
		gameRepo := NewGameRepository(st.Storage)

		// Given: a stored game at version 1
		game := entity.NewGame("g1", "alice", testNow)
		_, err := gameRepo.Create(ctx, game)
		require.NoError(t, err)

		// When: several writers race against version 1
		const writers = 8

		candidates := make([]*entity.Game, writers)
		for i := range writers {
			candidates[i] = nextOf(t, game, i)
		}

		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for _, next := range candidates {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- gameRepo.ConditionalUpdate(ctx, "g1", 1, next)
			}()
		}
		wg.Wait()
		close(errs)

		// Then: one commits and the others see a conflict
		committed := 0
		for err := range errs {
			if err == nil {
				committed++
				continue
			}
			assert.ErrorIs(t, err, apperror.ErrConflict)
		}
		assert.Equal(t, 1, committed)

		stored, err := gameRepo.GetByID(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), stored.Version)
		assert.Equal(t, 1, stored.Board.Filled())
	})
}

func TestGameRepository_ListOpen(t *testing.T) {
	ctx, st := suite.New(t)
	gameRepo := NewGameRepository(st.Storage)

	// Given: three open games created one minute apart, stored out of order
	for _, g := range []struct {
		id  string
		age time.Duration
	}{
		{"middle", time.Minute},
		{"newest", 0},
		{"oldest", 2 * time.Minute},
	} {
		_, err := gameRepo.Create(ctx, entity.NewGame(g.id, "p-"+g.id, testNow.Add(-g.age)))
		require.NoError(t, err)
	}

	// When: listing with a limit of two
	open, err := gameRepo.ListOpen(ctx, 0, 2)

	// Then: the oldest games come first
	require.NoError(t, err)
	assert.Equal(t, []string{"oldest", "middle"}, open)

	t.Run("RemoveOpen prunes an entry", func(t *testing.T) {
		require.NoError(t, gameRepo.RemoveOpen(ctx, "oldest"))

		open, err := gameRepo.ListOpen(ctx, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"middle", "newest"}, open)
	})

	t.Run("Offset pages past the first entries", func(t *testing.T) {
		open, err := gameRepo.ListOpen(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"newest"}, open)

		open, err = gameRepo.ListOpen(ctx, 2, 10)
		require.NoError(t, err)
		assert.Empty(t, open)
	})

	t.Run("Zero limit lists nothing", func(t *testing.T) {
		open, err := gameRepo.ListOpen(ctx, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, open)
	})
}
