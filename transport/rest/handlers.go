package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rocketscienceinc/tictactoe-agent/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-agent/internal/usecase"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	kindInvalidBoard = "invalid_board"
	kindNoLegalMove  = "no_legal_move"
	kindInternal     = "internal"
)

var errTrailingData = errors.New("unexpected data after the JSON object")

type moveUseCase interface {
	NextMove(ctx context.Context, cells []any) (*usecase.MoveResult, error)
}

type moveRequest struct {
	Board []any `json:"board"`
}

type moveResponse struct {
	Status string `json:"status"`
	Move   int    `json:"move"`
	Winner string `json:"winner,omitempty"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

type MoveHandler struct {
	logger *slog.Logger
	moves  moveUseCase
}

func NewMoveHandler(logger *slog.Logger, moves moveUseCase) *MoveHandler {
	return &MoveHandler{
		logger: logger.With("component", "move-handler"),
		moves:  moves,
	}
}

func HomeHandler(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Tic Tac Toe RL Agent API is running!")
}

func PingHandler(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "pong")
}

func (that *MoveHandler) Move(ctx echo.Context) error {
	log := that.logger.With("method", "Move")

	var req moveRequest
	if err := decodeRequest(ctx.Request().Body, &req); err != nil {
		log.Info("failed to decode request", "error", err)
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Status:  statusError,
			Message: "invalid JSON payload: " + err.Error(),
			Kind:    kindInvalidBoard,
		})
	}

	result, err := that.moves.NextMove(ctx.Request().Context(), req.Board)
	if err != nil {
		code, kind := classify(err)
		if code == http.StatusInternalServerError {
			log.Error("failed to choose move", "error", err)
		} else {
			log.Info("rejected move request", "error", err)
		}

		return ctx.JSON(code, errorResponse{
			Status:  statusError,
			Message: err.Error(),
			Kind:    kind,
		})
	}

	return ctx.JSON(http.StatusOK, moveResponse{
		Status: statusSuccess,
		Move:   result.Index,
		Winner: result.Winner,
	})
}

// decodeRequest reads exactly one JSON value from the body.
func decodeRequest(body io.Reader, req *moveRequest) error {
	dec := json.NewDecoder(body)

	if err := dec.Decode(req); err != nil {
		return err
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}

	return nil
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrInvalidBoard):
		return http.StatusBadRequest, kindInvalidBoard
	case errors.Is(err, apperror.ErrNoLegalMove):
		return http.StatusUnprocessableEntity, kindNoLegalMove
	default:
		return http.StatusInternalServerError, kindInternal
	}
}
