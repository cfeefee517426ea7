package proto

import "ctchen222/minimax-tic-tac-toe/internal/game"

// Client message types.
const (
	TypeMove      = "move"
	TypeReset     = "reset"
	TypeConfigure = "configure"
)

// Server message types.
const (
	TypeUpdate = "update"
	TypeError  = "error"
)

// ClientToServerMessage represents a message from the client to the server.
type ClientToServerMessage struct {
	Type       string `json:"type" validate:"required,oneof=move reset configure"`
	Cell       *int   `json:"cell,omitempty" validate:"omitempty,min=0,max=8"`
	Mode       string `json:"mode,omitempty" validate:"required_if=Type configure,omitempty,mode"`
	Difficulty string `json:"difficulty,omitempty" validate:"omitempty,difficulty"`
}

// GameView is what clients render: the board as rows plus the status line.
type GameView struct {
	GameID     string              `json:"gameId"`
	Board      [][]game.PlayerMark `json:"board"`
	Next       game.PlayerMark     `json:"next"`
	Winner     game.PlayerMark     `json:"winner,omitempty"`
	Draw       bool                `json:"draw"`
	Active     bool                `json:"active"`
	Mode       game.Mode           `json:"mode"`
	Difficulty string              `json:"difficulty,omitempty"`
	Thinking   bool                `json:"thinking"`
	Message    string              `json:"message"`
}

// ServerToClientMessage represents a message from the server to the client.
type ServerToClientMessage struct {
	Type   string    `json:"type" validate:"required"`
	Reason string    `json:"reason,omitempty"`
	Game   *GameView `json:"game,omitempty"`
}
