package apperror

import "errors"

var (
	ErrLoadTable    = errors.New("could not load value table")
	ErrNoLegalMove  = errors.New("no legal moves on the board")
	ErrInvalidBoard = errors.New("invalid board")
)
