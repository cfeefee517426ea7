package controller

import (
	"ctchen222/minimax-tic-tac-toe/internal/api/models"
	"ctchen222/minimax-tic-tac-toe/internal/api/response"
	"ctchen222/minimax-tic-tac-toe/internal/api/service"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/hub"
	"ctchen222/minimax-tic-tac-toe/internal/repository"
	"ctchen222/minimax-tic-tac-toe/internal/room"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GameController handles game-related HTTP requests.
type GameController struct {
	gameService service.GameService
}

// NewGameController creates a new GameController.
func NewGameController(gameService service.GameService) *GameController {
	return &GameController{
		gameService: gameService,
	}
}

// Create handles POST /api/games.
func (gc *GameController) Create(c *gin.Context) {
	var req models.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := gc.gameService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Abort(c, toHTTPError(err))
		return
	}

	response.SuccessResponseCode(c, http.StatusCreated, resp)
}

// Get handles GET /api/games/:id.
func (gc *GameController) Get(c *gin.Context) {
	view, err := gc.gameService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Abort(c, toHTTPError(err))
		return
	}
	response.SuccessResponse(c, view)
}

// Move handles POST /api/games/:id/moves.
func (gc *GameController) Move(c *gin.Context) {
	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	view, err := gc.gameService.Move(c.Request.Context(), c.Param("id"), *req.Cell)
	if err != nil {
		response.Abort(c, toHTTPError(err))
		return
	}
	response.SuccessResponse(c, view)
}

// Reset handles POST /api/games/:id/reset.
func (gc *GameController) Reset(c *gin.Context) {
	view, err := gc.gameService.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Abort(c, toHTTPError(err))
		return
	}
	response.SuccessResponse(c, view)
}

// Configure handles PUT /api/games/:id/config.
func (gc *GameController) Configure(c *gin.Context) {
	var req models.ConfigureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	view, err := gc.gameService.Configure(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		response.Abort(c, toHTTPError(err))
		return
	}
	response.SuccessResponse(c, view)
}

// toHTTPError maps domain errors onto status codes; unknown errors pass
// through and end up as a 500.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, hub.ErrRoomNotFound):
		return response.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrGameOver),
		errors.Is(err, game.ErrOccupied),
		errors.Is(err, room.ErrBotThinking),
		errors.Is(err, repository.ErrConflict):
		return response.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrOutOfRange),
		errors.Is(err, game.ErrInvalidMark),
		errors.Is(err, game.ErrInvalidMode),
		errors.Is(err, bot.ErrInvalidDifficulty):
		return response.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidToken):
		return response.NewError(http.StatusUnauthorized, err.Error())
	}
	return err
}
