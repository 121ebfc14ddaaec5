package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
	"github.com/rocketscienceinc/tictactoe-agent/internal/policy"
)

type MoveUseCase interface {
	NextMove(ctx context.Context, cells []any) (*MoveResult, error)
}

type decider interface {
	Decide(board entity.Board) (policy.Decision, error)
}

type MoveResult struct {
	Index     int
	Move      entity.Move
	Winner    string
	Selection policy.Selection
}

type moveUseCase struct {
	logger *slog.Logger
	engine decider
}

func NewMoveUseCase(logger *slog.Logger, engine decider) MoveUseCase {
	return &moveUseCase{
		logger: logger.With("component", "move"),
		engine: engine,
	}
}

func (that *moveUseCase) NextMove(ctx context.Context, cells []any) (*MoveResult, error) {
	log := that.logger.With("method", "NextMove")

	board, err := entity.ParseBoard(cells)
	if err != nil {
		return nil, fmt.Errorf("failed to parse board: %w", err)
	}

	decision, err := that.engine.Decide(board)
	if err != nil {
		return nil, fmt.Errorf("failed to choose move: %w", err)
	}

	if decision.Selection == policy.SelectionStaleValues {
		// possible state key collision in the table
		log.WarnContext(ctx, "best recorded moves are not legal, playing random",
			"state", decision.StateKey, "value", decision.Value)
	}

	result := &MoveResult{
		Index:     decision.Move.Index(),
		Move:      decision.Move,
		Winner:    board.Winner(),
		Selection: decision.Selection,
	}

	log.DebugContext(ctx, "move chosen",
		"state", decision.StateKey, "index", result.Index, "selection", decision.Selection)

	return result, nil
}
