package policy

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"

	"github.com/rocketscienceinc/tictactoe-agent/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
)

const trials = 500

func seededRand(seed byte) *frand.RNG {
	key := make([]byte, 32)
	key[0] = seed
	return frand.NewCustom(key, 1024, 20)
}

func mustLoad(t *testing.T, blob string, opts ...Option) *Engine {
	t.Helper()

	engine, err := LoadBytes([]byte(blob), opts...)
	require.NoError(t, err)

	return engine
}

func boardFromKey(key string) entity.Board {
	var board entity.Board
	for i, symbol := range key {
		board[i] = entity.Cell(symbol)
	}
	return board
}

func TestLoad(t *testing.T) {
	t.Run("Normalizes tuple and packed move keys", func(t *testing.T) {
		// Given: a table with both move encodings
		blob := `{"         ": {"(1, 1)": 0.5, "0,2": 0.25, "8": -1}}`

		// When: loading the table
		engine, err := Load(strings.NewReader(blob))

		// Then: every move is stored as a structured value
		require.NoError(t, err)
		assert.Equal(t, 1, engine.Size())
		assert.Equal(t, ActionValues{
			{Row: 1, Col: 1}: 0.5,
			{Row: 0, Col: 2}: 0.25,
			{Row: 2, Col: 2}: -1,
		}, engine.table.Lookup("         "))
	})

	t.Run("Fails with LoadError on malformed sources", func(t *testing.T) {
		cases := map[string]string{
			"empty":              "",
			"whitespace":         "  \n ",
			"null":               "null",
			"not json":           "pickle\x80\x04",
			"wrong shape":        `{"         ": [1, 2]}`,
			"short state key":    `{"XO": {"(0, 2)": 1}}`,
			"bad state symbol":   `{"Z        ": {"(0, 2)": 1}}`,
			"bad move key":       `{"         ": {"center": 1}}`,
			"move off the grid":  `{"         ": {"(3, 0)": 1}}`,
			"index off the grid": `{"         ": {"9": 1}}`,
			"same move twice":    `{"         ": {"4": 1, "(1, 1)": 0.5, "(0, 0)": 0.7}}`,
		}

		for name, blob := range cases {
			t.Run(name, func(t *testing.T) {
				// When: loading the table
				engine, err := LoadBytes([]byte(blob))

				// Then: ErrLoadTable is returned and no engine is built
				require.ErrorIs(t, err, apperror.ErrLoadTable)
				assert.Nil(t, engine)
			})
		}
	})

	t.Run("Rejects a move named by both encodings", func(t *testing.T) {
		// Given: the center recorded as a packed index and as a pair
		blob := `{"         ": {"4": 1, "(1, 1)": 0.5}}`

		for i := 0; i < 50; i++ {
			// When: loading the table
			_, err := LoadBytes([]byte(blob))

			// Then: the load fails every time instead of keeping either value
			require.ErrorIs(t, err, apperror.ErrLoadTable)
			require.ErrorIs(t, err, errDuplicateMove)
		}
	})

	t.Run("Fails with LoadError on unreadable source", func(t *testing.T) {
		// Given: a reader that always fails
		source := iotest.ErrReader(errors.New("disk on fire"))

		// When: loading the table
		_, err := Load(source)

		// Then: the read error is wrapped into ErrLoadTable
		require.ErrorIs(t, err, apperror.ErrLoadTable)
		assert.Contains(t, err.Error(), "disk on fire")
	})

	t.Run("Fails with LoadError on missing source", func(t *testing.T) {
		_, err := Load(nil)

		require.ErrorIs(t, err, apperror.ErrLoadTable)
	})
}

func TestTable_Lookup(t *testing.T) {
	// Given: a table without the requested state
	engine := mustLoad(t, `{"X        ": {"4": 1}}`)

	// When: looking up an unseen state
	values := engine.table.Lookup("O        ")

	// Then: an empty, non-nil set is returned
	require.NotNil(t, values)
	assert.Empty(t, values)
}

func TestEngine_ChooseMove(t *testing.T) {
	t.Run("Always returns an empty cell", func(t *testing.T) {
		// Given: a table whose best move for this state points at an occupied cell
		engine := mustLoad(t, `{"X O      ": {"(0, 0)": 9, "(1, 1)": 1}}`, WithRand(seededRand(1)))
		board := boardFromKey("X O      ")

		for i := 0; i < trials; i++ {
			// When: choosing a move
			move, err := engine.ChooseMove(board)

			// Then: the move targets an empty cell
			require.NoError(t, err)
			assert.Equal(t, entity.EmptyCell, board[move.Index()])
		}
	})

	t.Run("Full board fails with NoLegalMove", func(t *testing.T) {
		// Given: a board with no empty cell
		engine := mustLoad(t, `{}`)
		board := boardFromKey("XOXXOOOXX")

		// When: choosing a move
		_, err := engine.ChooseMove(board)

		// Then: ErrNoLegalMove is returned
		require.ErrorIs(t, err, apperror.ErrNoLegalMove)
	})

	t.Run("Unseen state falls back to every legal move", func(t *testing.T) {
		// Given: an empty table and a board with three empty cells
		engine := mustLoad(t, `{}`, WithRand(seededRand(2)))
		board := boardFromKey("XOXO X  O")

		// When: choosing many moves
		seen := map[entity.Move]int{}
		for i := 0; i < trials; i++ {
			decision, err := engine.Decide(board)
			require.NoError(t, err)
			assert.Equal(t, SelectionUnseen, decision.Selection)
			seen[decision.Move]++
		}

		// Then: each legal move shows up
		assert.ElementsMatch(t, board.LegalMoves(), keysOf(seen))
	})

	t.Run("State recorded with no values falls back to random", func(t *testing.T) {
		// Given: a state mapped to an empty set of values
		engine := mustLoad(t, `{"         ": {}}`, WithRand(seededRand(3)))
		board := entity.NewBoard()

		seen := map[entity.Move]int{}
		for i := 0; i < trials; i++ {
			decision, err := engine.Decide(board)
			require.NoError(t, err)
			assert.Equal(t, SelectionUnseen, decision.Selection)
			seen[decision.Move]++
		}

		assert.Len(t, seen, entity.BoardSize)
	})

	t.Run("Single best legal move is always chosen", func(t *testing.T) {
		// Given: a state where the center has the highest value
		engine := mustLoad(t, `{"         ": {"(1, 1)": 0.9, "(0, 0)": 0.3, "(2, 2)": 0.0}}`, WithRand(seededRand(4)))
		board := entity.NewBoard()

		for i := 0; i < trials; i++ {
			// When: choosing a move
			decision, err := engine.Decide(board)

			// Then: it is always the center
			require.NoError(t, err)
			assert.Equal(t, entity.Move{Row: 1, Col: 1}, decision.Move)
			assert.Equal(t, SelectionTable, decision.Selection)
			assert.InDelta(t, 0.9, decision.Value, 0)
		}
	})

	t.Run("Ties are broken across every tied move", func(t *testing.T) {
		// Given: three corners tied at the maximum and one lower move
		engine := mustLoad(t, `{"         ": {"(0, 0)": 0.0, "(0, 2)": 0.0, "(2, 0)": 0.0, "(1, 1)": -0.5}}`, WithRand(seededRand(5)))
		board := entity.NewBoard()

		// When: choosing many moves
		seen := map[entity.Move]int{}
		for i := 0; i < trials; i++ {
			move, err := engine.ChooseMove(board)
			require.NoError(t, err)
			seen[move]++
		}

		// Then: only the tied moves appear, and all of them do
		assert.ElementsMatch(t, []entity.Move{{Row: 0, Col: 0}, {Row: 0, Col: 2}, {Row: 2, Col: 0}}, keysOf(seen))
	})

	t.Run("Illegal best move falls back to every legal move", func(t *testing.T) {
		// Given: the only maximum points at an occupied cell, a lower value is legal
		engine := mustLoad(t, `{"X        ": {"(0, 0)": 1.0, "(1, 1)": 0.5}}`, WithRand(seededRand(6)))
		board := boardFromKey("X        ")

		// When: choosing many moves
		seen := map[entity.Move]int{}
		for i := 0; i < trials; i++ {
			decision, err := engine.Decide(board)
			require.NoError(t, err)
			assert.Equal(t, SelectionStaleValues, decision.Selection)
			seen[decision.Move]++
		}

		// Then: the fallback is uniform over all legal moves, not the next best value
		assert.ElementsMatch(t, board.LegalMoves(), keysOf(seen))
	})

	t.Run("Illegal tied moves are filtered out", func(t *testing.T) {
		// Given: two moves tied at the maximum, one of them occupied
		engine := mustLoad(t, `{"X        ": {"(0, 0)": 1.0, "(2, 2)": 1.0}}`, WithRand(seededRand(7)))
		board := boardFromKey("X        ")

		for i := 0; i < trials; i++ {
			move, err := engine.ChooseMove(board)
			require.NoError(t, err)
			assert.Equal(t, entity.Move{Row: 2, Col: 2}, move)
		}
	})

	t.Run("Same board and seed give the same move", func(t *testing.T) {
		blob := `{"         ": {"(0, 0)": 1, "(0, 1)": 1, "(0, 2)": 1, "(1, 0)": 1, "(1, 1)": 1, "(1, 2)": 1}}`
		board := entity.NewBoard()

		for seed := byte(0); seed < 20; seed++ {
			// Given: two engines with identically seeded sources
			first := mustLoad(t, blob, WithRand(seededRand(seed)))
			second := mustLoad(t, blob, WithRand(seededRand(seed)))

			// When: choosing a move on the same board
			firstMove, err := first.ChooseMove(board)
			require.NoError(t, err)
			secondMove, err := second.ChooseMove(board)
			require.NoError(t, err)

			// Then: the moves are identical
			assert.Equal(t, firstMove, secondMove)
		}
	})

	t.Run("Only remaining cell is chosen regardless of table", func(t *testing.T) {
		// Given: a table that prefers an occupied cell for this state
		engine := mustLoad(t, `{"XOXOXOXO ": {"(0, 0)": 5}}`)
		board := boardFromKey("XOXOXOXO ")

		// When: choosing a move
		move, err := engine.ChooseMove(board)

		// Then: the last cell is returned
		require.NoError(t, err)
		assert.Equal(t, 8, move.Index())
	})
}

func TestEngine_ConcurrentReads(t *testing.T) {
	// Given: an engine on the default goroutine-safe source
	engine := mustLoad(t, `{"         ": {"(1, 1)": 1, "(0, 0)": 1}}`)
	board := entity.NewBoard()

	// When: many goroutines choose moves at once
	errs := make(chan error, 16)
	for i := 0; i < cap(errs); i++ {
		go func() {
			for j := 0; j < 100; j++ {
				if _, err := engine.ChooseMove(board); err != nil {
					errs <- err
					return
				}
			}
			errs <- nil
		}()
	}

	// Then: none of them fails
	for i := 0; i < cap(errs); i++ {
		require.NoError(t, <-errs)
	}
}

func keysOf(seen map[entity.Move]int) []entity.Move {
	moves := make([]entity.Move, 0, len(seen))
	for move := range seen {
		moves = append(moves, move)
	}
	return moves
}
