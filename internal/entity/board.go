package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-coordinator/internal/apperror"
)

// Symbol - the mark a player places on the board.
type Symbol string

const (
	SymbolX Symbol = "X"
	SymbolO Symbol = "O"
)

// Next - the symbol that moves after this one.
func (that Symbol) Next() Symbol {
	if that == SymbolX {
		return SymbolO
	}

	return SymbolX
}

func (that Symbol) Valid() bool {
	return that == SymbolX || that == SymbolO
}

type Cell string

const EmptyCell Cell = ""

type Outcome string

const (
	OutcomeInProgress Outcome = "in_progress"
	OutcomeXWins      Outcome = "x_wins"
	OutcomeOWins      Outcome = "o_wins"
	OutcomeDraw       Outcome = "draw"
)

const BoardSize = 9

var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

type Board [BoardSize]Cell

// ApplyMove - returns a copy of the board with symbol placed at cell.
func (that Board) ApplyMove(cell int, symbol Symbol) (Board, error) {
	if cell < 0 || cell >= BoardSize {
		return that, fmt.Errorf("%w: cell %d is out of range", apperror.ErrIllegalMove, cell)
	}

	if !symbol.Valid() {
		return that, fmt.Errorf("%w: unknown symbol %q", apperror.ErrIllegalMove, symbol)
	}

	if that[cell] != EmptyCell {
		return that, fmt.Errorf("%w: cell %d is occupied", apperror.ErrIllegalMove, cell)
	}

	that[cell] = Cell(symbol)

	return that, nil
}

// Evaluate - checks the winning lines, then whether the board is full.
func (that Board) Evaluate() Outcome {
	for _, combo := range WinCombos {
		a, b, c := that[combo[0]], that[combo[1]], that[combo[2]]
		if a != EmptyCell && a == b && b == c {
			if a == Cell(SymbolX) {
				return OutcomeXWins
			}
			return OutcomeOWins
		}
	}

	if that.Filled() == BoardSize {
		return OutcomeDraw
	}

	return OutcomeInProgress
}

// Filled - number of non-empty cells.
func (that Board) Filled() int {
	filled := 0
	for _, cell := range that {
		if cell != EmptyCell {
			filled++
		}
	}

	return filled
}
