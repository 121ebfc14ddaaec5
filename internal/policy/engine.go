// Package policy selects moves from a precomputed Q-table.
package policy

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/rocketscienceinc/tictactoe-agent/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
)

// Rand is the random source used for fallback play and tie-breaks.
type Rand interface {
	Intn(n int) int
}

// globalRand draws from frand's package-level generator, which is safe for concurrent use.
type globalRand struct{}

func (globalRand) Intn(n int) int {
	return frand.Intn(n)
}

type Option func(*Engine)

// WithRand replaces the random source. The source must be safe for the caller's concurrency.
func WithRand(rng Rand) Option {
	return func(engine *Engine) {
		engine.rng = rng
	}
}

// Selection tells how a move was picked.
type Selection string

const (
	SelectionTable       Selection = "table"
	SelectionUnseen      Selection = "unseen"
	SelectionStaleValues Selection = "stale"
)

type Decision struct {
	Move      entity.Move
	StateKey  string
	Selection Selection
	Value     float64
}

type Engine struct {
	table *Table
	rng   Rand
}

// Load reads a serialized table. Any failure wraps apperror.ErrLoadTable.
func Load(source io.Reader, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrLoadTable, errEmptySource)
	}

	data, err := io.ReadAll(source)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read source: %w", apperror.ErrLoadTable, err)
	}

	return LoadBytes(data, opts...)
}

func LoadBytes(data []byte, opts ...Option) (*Engine, error) {
	table, err := decodeTable(bytes.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrLoadTable, err)
	}

	return newEngine(table, opts...), nil
}

func newEngine(table *Table, opts ...Option) *Engine {
	engine := &Engine{
		table: table,
		rng:   globalRand{},
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

func (that *Engine) Size() int {
	return that.table.Size()
}

// ChooseMove returns the agent's move for the board.
func (that *Engine) ChooseMove(board entity.Board) (entity.Move, error) {
	decision, err := that.Decide(board)
	if err != nil {
		return entity.Move{}, err
	}
	return decision.Move, nil
}

// Decide is ChooseMove with the details of how the move was picked.
func (that *Engine) Decide(board entity.Board) (Decision, error) {
	legalMoves := board.LegalMoves()
	if len(legalMoves) == 0 {
		return Decision{}, apperror.ErrNoLegalMove
	}

	stateKey := board.StateKey()
	values := that.table.Lookup(stateKey)

	if len(values) == 0 {
		return Decision{
			Move:      that.pick(legalMoves),
			StateKey:  stateKey,
			Selection: SelectionUnseen,
		}, nil
	}

	// the maximum is taken over every recorded move, legal or not
	recorded := map[entity.Move]float64(values)
	maxValue := lo.Max(lo.Values(recorded))

	bestMoves := lo.Filter(lo.Keys(recorded), func(move entity.Move, _ int) bool {
		return values[move] == maxValue && lo.Contains(legalMoves, move)
	})

	if len(bestMoves) == 0 {
		return Decision{
			Move:      that.pick(legalMoves),
			StateKey:  stateKey,
			Selection: SelectionStaleValues,
			Value:     maxValue,
		}, nil
	}

	// map iteration order is random; sort so a seeded source is reproducible
	sort.Slice(bestMoves, func(i, j int) bool {
		return bestMoves[i].Index() < bestMoves[j].Index()
	})

	return Decision{
		Move:      that.pick(bestMoves),
		StateKey:  stateKey,
		Selection: SelectionTable,
		Value:     maxValue,
	}, nil
}

func (that *Engine) pick(moves []entity.Move) entity.Move {
	return moves[that.rng.Intn(len(moves))]
}
