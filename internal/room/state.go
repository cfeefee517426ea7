package room

import (
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/pkg/proto"
	"fmt"
)

func (r *Room) viewLocked() *proto.GameView {
	s := r.game.Snapshot()
	next := s.CurrentTurn
	switch {
	case !s.Active:
		next = game.None
	case r.thinking:
		next = game.PlayerO
	}
	return &proto.GameView{
		GameID:     r.ID,
		Board:      s.Board.Rows(),
		Next:       next,
		Winner:     s.Winner,
		Draw:       s.Status == game.StatusDraw,
		Active:     s.Active,
		Mode:       s.Mode,
		Difficulty: string(r.difficulty),
		Thinking:   r.thinking,
		Message:    statusMessage(s, r.thinking),
	}
}

// statusMessage is the line shown above the board.
func statusMessage(s game.Snapshot, thinking bool) string {
	switch {
	case s.Status == game.StatusDraw:
		return "Draw!"
	case s.Status == game.StatusWon && s.Mode == game.ModeSingle && s.Winner == game.PlayerO:
		return "Computer Wins!"
	case s.Status == game.StatusWon:
		return fmt.Sprintf("Player %s Wins!", s.Winner)
	case s.Mode == game.ModeMulti:
		return fmt.Sprintf("Turn: %s", s.CurrentTurn)
	case thinking:
		return "Computer is thinking..."
	}
	return "Your Turn!"
}
