package entity

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/tictactoe-agent/internal/apperror"
)

type Cell string

const (
	PlayerX   Cell = "X"
	PlayerO   Cell = "O"
	EmptyCell Cell = " "

	// PlayerTie is reported by Winner when the board is full without a line.
	PlayerTie = "-"

	BoardSide = 3
	BoardSize = BoardSide * BoardSide
)

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board is a 3x3 grid stored in row-major order.
type Board [BoardSize]Cell

// Move points at a cell by row and column.
type Move struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// NewBoard returns a board with every cell empty.
func NewBoard() Board {
	var board Board
	for i := range board {
		board[i] = EmptyCell
	}
	return board
}

// ParseBoard converts the flattened request form into a Board.
// Marks are "X" and "O"; nil, false, 0, "" and " " stand for an empty cell.
func ParseBoard(cells []any) (Board, error) {
	var board Board

	if len(cells) != BoardSize {
		return board, fmt.Errorf("%w: expected %d cells, got %d", apperror.ErrInvalidBoard, BoardSize, len(cells))
	}

	for i, raw := range cells {
		cell, err := parseCell(raw)
		if err != nil {
			return board, fmt.Errorf("%w: cell %d: %w", apperror.ErrInvalidBoard, i, err)
		}
		board[i] = cell
	}

	return board, nil
}

func parseCell(raw any) (Cell, error) {
	switch value := raw.(type) {
	case nil:
		return EmptyCell, nil
	case bool:
		if !value {
			return EmptyCell, nil
		}
	case float64:
		if value == 0 {
			return EmptyCell, nil
		}
	case string:
		switch Cell(value) {
		case PlayerX, PlayerO:
			return Cell(value), nil
		case EmptyCell, "":
			return EmptyCell, nil
		}
	}

	return "", fmt.Errorf("unknown symbol %v", raw)
}

// StateKey concatenates the cell symbols in row-major order.
func (that Board) StateKey() string {
	var builder strings.Builder
	builder.Grow(BoardSize)

	for _, cell := range that {
		if cell == "" {
			cell = EmptyCell
		}
		builder.WriteString(string(cell))
	}

	return builder.String()
}

// LegalMoves lists the empty cells in row-major order.
func (that Board) LegalMoves() []Move {
	moves := make([]Move, 0, BoardSize)
	for i, cell := range that {
		if cell == EmptyCell || cell == "" {
			moves = append(moves, MoveFromIndex(i))
		}
	}
	return moves
}

func (that Board) IsFull() bool {
	return len(that.LegalMoves()) == 0
}

// Winner returns the mark holding a complete line, PlayerTie for a full board
// without one, and an empty string while the game can continue.
func (that Board) Winner() string {
	for _, combo := range WinCombos {
		a, b, c := that[combo[0]], that[combo[1]], that[combo[2]]
		if (a == PlayerX || a == PlayerO) && a == b && b == c {
			return string(a)
		}
	}

	if that.IsFull() {
		return PlayerTie
	}

	return ""
}

func MoveFromIndex(index int) Move {
	return Move{Row: index / BoardSide, Col: index % BoardSide}
}

func (that Move) Index() int {
	return that.Row*BoardSide + that.Col
}

func (that Move) IsValid() bool {
	return that.Row >= 0 && that.Row < BoardSide && that.Col >= 0 && that.Col < BoardSide
}

func (that Move) String() string {
	return fmt.Sprintf("(%d, %d)", that.Row, that.Col)
}
