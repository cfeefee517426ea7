package controller

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/api/models"
	"ctchen222/minimax-tic-tac-toe/internal/api/response"
	"ctchen222/minimax-tic-tac-toe/internal/api/service"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/hub"
	"ctchen222/minimax-tic-tac-toe/internal/repository"
	"ctchen222/minimax-tic-tac-toe/internal/room"
	"ctchen222/minimax-tic-tac-toe/pkg/proto"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"unknown room", fmt.Errorf("%w: g1", hub.ErrRoomNotFound), http.StatusNotFound},
		{"game over", game.ErrGameOver, http.StatusConflict},
		{"occupied cell", game.ErrOccupied, http.StatusConflict},
		{"computer thinking", room.ErrBotThinking, http.StatusConflict},
		{"version conflict", fmt.Errorf("failed to persist room g1: %w", repository.ErrConflict), http.StatusConflict},
		{"cell out of range", game.ErrOutOfRange, http.StatusBadRequest},
		{"invalid mark", game.ErrInvalidMark, http.StatusBadRequest},
		{"invalid mode", fmt.Errorf("%w: %q", game.ErrInvalidMode, "solo"), http.StatusBadRequest},
		{"invalid difficulty", fmt.Errorf("%w: %q", bot.ErrInvalidDifficulty, "brutal"), http.StatusBadRequest},
		{"invalid token", service.ErrInvalidToken, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var httpErr response.Error
			require.ErrorAs(t, toHTTPError(tt.err), &httpErr)
			assert.Equal(t, tt.code, httpErr.Code)
			assert.Equal(t, tt.err.Error(), httpErr.Message)
		})
	}
}

func TestToHTTPErrorPassesUnknownErrors(t *testing.T) {
	boom := errors.New("connection refused")
	assert.Same(t, boom, toHTTPError(boom))
}

// stubService answers every call with err.
type stubService struct {
	err error
}

func (s stubService) Create(context.Context, *models.CreateGameRequest) (*models.CreateGameResponse, error) {
	return nil, s.err
}

func (s stubService) Get(context.Context, string) (*proto.GameView, error) { return nil, s.err }

func (s stubService) Move(context.Context, string, int) (*proto.GameView, error) { return nil, s.err }

func (s stubService) Reset(context.Context, string) (*proto.GameView, error) { return nil, s.err }

func (s stubService) Configure(context.Context, string, *models.ConfigureRequest) (*proto.GameView, error) {
	return nil, s.err
}

func TestHandlersReportMappedStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"occupied", game.ErrOccupied, http.StatusConflict},
		{"missing room", hub.ErrRoomNotFound, http.StatusNotFound},
		{"store failure", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := gin.New()
			engine.POST("/api/games/:id/moves", NewGameController(stubService{err: tt.err}).Move)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/games/g1/moves", strings.NewReader(`{"cell":4}`))
			req.Header.Set("Content-Type", "application/json")
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			var body response.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}
