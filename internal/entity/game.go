package entity

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidGame = errors.New("invalid game state")

// Game - the persisted record of one match. PlayerO is empty until a second player joins.
type Game struct {
	ID        string    `json:"id"`
	PlayerX   string    `json:"player_x"`
	PlayerO   string    `json:"player_o,omitempty"`
	Board     Board     `json:"board"`
	Turn      Symbol    `json:"turn"`
	Outcome   Outcome   `json:"outcome"`
	Version   int64     `json:"version"`
	MoveCount int       `json:"move_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewGame(id, playerX string, now time.Time) *Game {
	return &Game{
		ID:        id,
		PlayerX:   playerX,
		Turn:      SymbolX,
		Outcome:   OutcomeInProgress,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SymbolOf - the symbol held by playerID, false when the player is not in the game.
func (that *Game) SymbolOf(playerID string) (Symbol, bool) {
	switch {
	case playerID == "":
		return "", false
	case playerID == that.PlayerX:
		return SymbolX, true
	case playerID == that.PlayerO:
		return SymbolO, true
	default:
		return "", false
	}
}

func (that *Game) IsOver() bool {
	return that.Outcome != OutcomeInProgress
}

// IsOpen - waiting for a second player.
func (that *Game) IsOpen() bool {
	return that.PlayerO == "" && !that.IsOver()
}

// Players - assigned player ids, X first.
func (that *Game) Players() []string {
	players := []string{that.PlayerX}
	if that.PlayerO != "" {
		players = append(players, that.PlayerO)
	}

	return players
}

// ChannelID - the push channel of playerID for this game.
func (that *Game) ChannelID(playerID string) string {
	return playerID + that.ID
}

// Clone - a copy safe to mutate; Board is an array so a value copy is enough.
func (that *Game) Clone() *Game {
	clone := *that
	return &clone
}

func (that *Game) Validate() error {
	if that.MoveCount < 0 || that.MoveCount > BoardSize {
		return fmt.Errorf("%w: move count %d", ErrInvalidGame, that.MoveCount)
	}

	if filled := that.Board.Filled(); filled != that.MoveCount {
		return fmt.Errorf("%w: move count %d but %d cells filled", ErrInvalidGame, that.MoveCount, filled)
	}

	if that.PlayerX == "" {
		return fmt.Errorf("%w: player X is unassigned", ErrInvalidGame)
	}

	if that.PlayerX == that.PlayerO {
		return fmt.Errorf("%w: player %s holds both symbols", ErrInvalidGame, that.PlayerX)
	}

	if !that.Turn.Valid() {
		return fmt.Errorf("%w: turn %q", ErrInvalidGame, that.Turn)
	}

	return nil
}

// Event - what participants are told after a committed change.
type Event struct {
	GameID  string  `json:"game_id"`
	Board   Board   `json:"board"`
	Turn    Symbol  `json:"turn"`
	Outcome Outcome `json:"outcome"`
	Version int64   `json:"version"`
	PlayerX string  `json:"player_x"`
	PlayerO string  `json:"player_o,omitempty"`
}

func (that *Game) Event() Event {
	return Event{
		GameID:  that.ID,
		Board:   that.Board,
		Turn:    that.Turn,
		Outcome: that.Outcome,
		Version: that.Version,
		PlayerX: that.PlayerX,
		PlayerO: that.PlayerO,
	}
}
