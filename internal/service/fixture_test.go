package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rocketscienceinc/tictactoe-coordinator/internal/entity"
	"github.com/rocketscienceinc/tictactoe-coordinator/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-coordinator/internal/repository"
	"github.com/rocketscienceinc/tictactoe-coordinator/testing/suite"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const storeTimeout = 2 * time.Second

type mockNotifier struct {
	mock.Mock
}

func (that *mockNotifier) Notify(_ context.Context, channelID string, event entity.Event) {
	that.Called(channelID, event)
}

// expectNotify - the event must be the committed state of gameID.
func (that *mockNotifier) expectNotify(channelID, gameID string) *mock.Call {
	return that.On("Notify", channelID, mock.MatchedBy(func(event entity.Event) bool {
		return event.GameID == gameID
	})).Once()
}

type fixture struct {
	ctx   context.Context
	suite *suite.Suite

	repo       repository.GameRepository
	games      GameService
	matchmaker MatchmakerService
	gameplay   GamePlayService
	notifier   *mockNotifier
	metrics    *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx, st := suite.New(t)

	// every reading is one second after the previous one
	var ticks atomic.Int64
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		return start.Add(time.Duration(ticks.Add(1)) * time.Second)
	}

	repo := repository.NewGameRepository(st.Storage)
	games := NewGameService(repo, storeTimeout, 20, clock)
	notifierMock := &mockNotifier{}
	m := metrics.New("test", prometheus.NewRegistry())

	t.Cleanup(func() {
		notifierMock.AssertExpectations(t)
	})

	return &fixture{
		ctx:        ctx,
		suite:      st,
		repo:       repo,
		games:      games,
		matchmaker: NewMatchmakerService(st.Logger, games, notifierMock, m),
		gameplay:   NewGamePlayService(st.Logger, games, notifierMock, m),
		notifier:   notifierMock,
		metrics:    m,
	}
}

// startGame - alice creates a game and bob joins it.
func (that *fixture) startGame(t *testing.T) *entity.Game {
	t.Helper()

	created, err := that.matchmaker.JoinOrCreate(that.ctx, "alice", "")
	require.NoError(t, err)

	that.notifier.expectNotify(created.Game.ChannelID("alice"), created.Game.ID)

	joined, err := that.matchmaker.JoinOrCreate(that.ctx, "bob", "")
	require.NoError(t, err)
	require.Equal(t, created.Game.ID, joined.Game.ID)

	return joined.Game
}

// expectMoveNotifications - a committed move is pushed to both players.
func (that *fixture) expectMoveNotifications(game *entity.Game) {
	that.notifier.expectNotify(game.ChannelID(game.PlayerX), game.ID)
	that.notifier.expectNotify(game.ChannelID(game.PlayerO), game.ID)
}

// barrierGames - holds every GetGameByID until parties readers have loaded the game.
type barrierGames struct {
	GameService

	parties int
	mu      sync.Mutex
	arrived int
	release chan struct{}
}

func newBarrierGames(games GameService, parties int) *barrierGames {
	return &barrierGames{
		GameService: games,
		parties:     parties,
		release:     make(chan struct{}),
	}
}

func (that *barrierGames) GetGameByID(ctx context.Context, id string) (*entity.Game, error) {
	game, err := that.GameService.GetGameByID(ctx, id)

	that.mu.Lock()
	that.arrived++
	if that.arrived == that.parties {
		close(that.release)
	}
	that.mu.Unlock()

	select {
	case <-that.release:
	case <-ctx.Done():
	}

	return game, err
}
