package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
)

var (
	errEmptySource   = errors.New("table source is empty")
	errBadStateKey   = errors.New("malformed state key")
	errBadMoveKey    = errors.New("malformed move key")
	errMoveOutOfGrid = errors.New("move is outside the board")
	errDuplicateMove = errors.New("move is recorded more than once")
)

// ActionValues maps a move to its recorded value.
type ActionValues map[entity.Move]float64

// Table is the state -> move -> value mapping. It is never written after decodeTable returns.
type Table struct {
	states map[string]ActionValues
}

// Lookup returns the recorded values for a state, or an empty set when the state was never seen.
func (that *Table) Lookup(stateKey string) ActionValues {
	values, ok := that.states[stateKey]
	if !ok {
		return ActionValues{}
	}
	return values
}

func (that *Table) Size() int {
	return len(that.states)
}

func decodeTable(data []byte) (*Table, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptySource
	}

	var raw map[string]map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal table: %w", err)
	}

	if raw == nil {
		return nil, errEmptySource
	}

	table := &Table{states: make(map[string]ActionValues, len(raw))}

	for stateKey, rawValues := range raw {
		if err := validateStateKey(stateKey); err != nil {
			return nil, err
		}

		values := make(ActionValues, len(rawValues))
		for moveKey, value := range rawValues {
			move, err := parseMoveKey(moveKey)
			if err != nil {
				return nil, fmt.Errorf("state %q: %w", stateKey, err)
			}

			// "4" and "(1, 1)" name the same cell
			if _, seen := values[move]; seen {
				return nil, fmt.Errorf("state %q: %w: %s", stateKey, errDuplicateMove, move)
			}
			values[move] = value
		}

		table.states[stateKey] = values
	}

	return table, nil
}

func validateStateKey(stateKey string) error {
	if len(stateKey) != entity.BoardSize {
		return fmt.Errorf("%w: %q has %d cells", errBadStateKey, stateKey, len(stateKey))
	}

	for _, symbol := range stateKey {
		switch entity.Cell(symbol) {
		case entity.PlayerX, entity.PlayerO, entity.EmptyCell:
		default:
			return fmt.Errorf("%w: %q has symbol %q", errBadStateKey, stateKey, symbol)
		}
	}

	return nil
}

// parseMoveKey accepts a packed index ("4") or a row/column pair ("(1, 1)", "1,1").
func parseMoveKey(moveKey string) (entity.Move, error) {
	trimmed := strings.TrimSpace(moveKey)

	if index, err := strconv.Atoi(trimmed); err == nil {
		if index < 0 || index >= entity.BoardSize {
			return entity.Move{}, fmt.Errorf("%w: %q", errMoveOutOfGrid, moveKey)
		}
		return entity.MoveFromIndex(index), nil
	}

	trimmed = strings.TrimSuffix(strings.TrimPrefix(trimmed, "("), ")")
	parts := strings.Split(trimmed, ",")
	if len(parts) != 2 {
		return entity.Move{}, fmt.Errorf("%w: %q", errBadMoveKey, moveKey)
	}

	row, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return entity.Move{}, fmt.Errorf("%w: %q", errBadMoveKey, moveKey)
	}

	col, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return entity.Move{}, fmt.Errorf("%w: %q", errBadMoveKey, moveKey)
	}

	move := entity.Move{Row: row, Col: col}
	if !move.IsValid() {
		return entity.Move{}, fmt.Errorf("%w: %q", errMoveOutOfGrid, moveKey)
	}

	return move, nil
}
