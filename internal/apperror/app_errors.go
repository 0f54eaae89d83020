package apperror

import "errors"

var (
	ErrNotFound       = errors.New("game not found")
	ErrIllegalMove    = errors.New("illegal move")
	ErrNotYourTurn    = errors.New("it's not your turn")
	ErrGameOver       = errors.New("game is already finished")
	ErrGameFull       = errors.New("game is full")
	ErrConflict       = errors.New("game was updated concurrently")
	ErrInvalidPlayer  = errors.New("player id is required")
	ErrNotParticipant = errors.New("player is not in this game")

	ErrStoreTimeout     = errors.New("store operation timed out")
	ErrStoreUnavailable = errors.New("store is unavailable")
)

// kinds - stable short codes handed to transports, checked in order.
var kinds = []struct {
	err  error
	code string
}{
	{ErrNotFound, "not_found"},
	{ErrIllegalMove, "illegal_move"},
	{ErrNotYourTurn, "not_your_turn"},
	{ErrGameOver, "game_over"},
	{ErrGameFull, "game_full"},
	{ErrConflict, "conflict"},
	{ErrInvalidPlayer, "invalid_player"},
	{ErrNotParticipant, "not_participant"},
	{ErrStoreTimeout, "store_timeout"},
	{ErrStoreUnavailable, "store_unavailable"},
}

// Kind - returns the short code of the first known error wrapped by err, "internal" otherwise.
func Kind(err error) string {
	if err == nil {
		return ""
	}

	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}

	return "internal"
}

// IsRetryable - reports whether the caller may retry the whole operation from a fresh read.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrStoreTimeout) || errors.Is(err, ErrStoreUnavailable)
}
