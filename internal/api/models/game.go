package models

import "ctchen222/minimax-tic-tac-toe/pkg/proto"

// CreateGameRequest defines the body of POST /api/games.
type CreateGameRequest struct {
	Mode       string `json:"mode" binding:"required,mode"`
	Difficulty string `json:"difficulty" binding:"omitempty,difficulty"`
}

// CreateGameResponse carries the new game and the token that controls it.
type CreateGameResponse struct {
	ID    string          `json:"id"`
	Token string          `json:"token"`
	State *proto.GameView `json:"state"`
}

// MoveRequest defines the body of POST /api/games/:id/moves.
type MoveRequest struct {
	Cell *int `json:"cell" binding:"required,min=0,max=8"`
}

// ConfigureRequest defines the body of PUT /api/games/:id/config.
type ConfigureRequest struct {
	Mode       string `json:"mode" binding:"required,mode"`
	Difficulty string `json:"difficulty" binding:"omitempty,difficulty"`
}
