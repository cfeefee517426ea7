package game

import (
	"errors"
	"fmt"
)

// Mode selects how turns advance.
type Mode string

// Status is the lifecycle state of a game.
type Status string

const (
	// ModeMulti is two humans sharing one client; the turn flips after every move.
	ModeMulti Mode = "multi"
	// ModeSingle is a human (X) against the computer (O); the caller drives O.
	ModeSingle Mode = "single"

	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusDraw       Status = "draw"
)

var (
	ErrGameOver    = errors.New("game already finished")
	ErrOutOfRange  = errors.New("cell out of range")
	ErrOccupied    = errors.New("cell already occupied")
	ErrInvalidMark = errors.New("invalid player mark")
	ErrInvalidMode = errors.New("invalid game mode")
	ErrBadSnapshot = errors.New("inconsistent game snapshot")
)

// ParseMode converts a client supplied string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMulti, ModeSingle:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Game owns the board, the player to move and the active flag of one match.
// A Game is not safe for concurrent use; its owner serializes access.
type Game struct {
	board   Board
	current PlayerMark
	active  bool
	winner  PlayerMark
	status  Status
	mode    Mode
}

// NewGame returns a reset game played in the given mode.
func NewGame(mode Mode) *Game {
	g := &Game{mode: mode}
	g.Reset()
	return g
}

// Reset clears the board, hands the turn to X and reactivates the game.
func (g *Game) Reset() {
	g.board = Board{}
	g.current = PlayerX
	g.active = true
	g.winner = None
	g.status = StatusInProgress
}

// ApplyMove writes player's mark into the cell at index and evaluates
// termination. A rejected move leaves the game untouched. The player is
// trusted: alternation is the caller's business.
func (g *Game) ApplyMove(index int, player PlayerMark) (Status, error) {
	if !g.active {
		return g.status, ErrGameOver
	}
	if !InRange(index) {
		return g.status, ErrOutOfRange
	}
	if !player.Valid() {
		return g.status, ErrInvalidMark
	}
	if g.board[index] != None {
		return g.status, ErrOccupied
	}

	g.board[index] = player

	switch {
	case g.CheckWinner(player):
		g.active = false
		g.winner = player
		g.status = StatusWon
	case g.IsDraw():
		g.active = false
		g.status = StatusDraw
	case g.mode == ModeMulti:
		g.current = player.Opponent()
	}
	return g.status, nil
}

// CheckWinner reports whether player holds a complete row, column or diagonal.
func (g *Game) CheckWinner(player PlayerMark) bool {
	return g.board.HasWon(player)
}

// IsDraw reports whether the board is full. Check for a winner first: a full
// board with a winning line is not a draw.
func (g *Game) IsDraw() bool {
	return g.board.IsFull()
}

// Board returns a copy of the board.
func (g *Game) Board() Board { return g.board }

// Active reports whether the game still accepts moves.
func (g *Game) Active() bool { return g.active }

// Winner returns the mark holding a line, or None.
func (g *Game) Winner() PlayerMark { return g.winner }

func (g *Game) Status() Status { return g.status }

func (g *Game) Mode() Mode { return g.mode }

// CurrentPlayer returns the mark expected to move next.
func (g *Game) CurrentPlayer() PlayerMark { return g.current }

// SetCurrentPlayer hands the turn to player.
func (g *Game) SetCurrentPlayer(player PlayerMark) error {
	if !player.Valid() {
		return ErrInvalidMark
	}
	g.current = player
	return nil
}

// SetMode switches the turn policy and restarts the game.
func (g *Game) SetMode(mode Mode) {
	g.mode = mode
	g.Reset()
}

// Snapshot is the storable form of a Game.
type Snapshot struct {
	Board       Board      `json:"board"`
	CurrentTurn PlayerMark `json:"current_turn"`
	Active      bool       `json:"active"`
	Winner      PlayerMark `json:"winner"`
	Status      Status     `json:"status"`
	Mode        Mode       `json:"mode"`
}

// Snapshot captures the full game state.
func (g *Game) Snapshot() Snapshot {
	return Snapshot{
		Board:       g.board,
		CurrentTurn: g.current,
		Active:      g.active,
		Winner:      g.winner,
		Status:      g.status,
		Mode:        g.mode,
	}
}

// Restore builds a Game from a snapshot, rejecting boards no sequence of
// alternating moves starting with X could have produced.
func Restore(s Snapshot) (*Game, error) {
	if _, err := ParseMode(string(s.Mode)); err != nil {
		return nil, err
	}
	if !s.CurrentTurn.Valid() {
		return nil, fmt.Errorf("%w: current turn %q", ErrBadSnapshot, s.CurrentTurn)
	}
	for i, c := range s.Board {
		if c != None && !c.Valid() {
			return nil, fmt.Errorf("%w: cell %d holds %q", ErrBadSnapshot, i, c)
		}
	}
	xs, os := s.Board.Count(PlayerX), s.Board.Count(PlayerO)
	if xs != os && xs != os+1 {
		return nil, fmt.Errorf("%w: %d X against %d O", ErrBadSnapshot, xs, os)
	}

	g := &Game{board: s.Board, current: s.CurrentTurn, mode: s.Mode}
	switch {
	case s.Board.HasWon(PlayerX) && s.Board.HasWon(PlayerO):
		return nil, fmt.Errorf("%w: both players hold a line", ErrBadSnapshot)
	case s.Board.HasWon(PlayerX):
		g.winner, g.status = PlayerX, StatusWon
	case s.Board.HasWon(PlayerO):
		g.winner, g.status = PlayerO, StatusWon
	case s.Board.IsFull():
		g.status = StatusDraw
	default:
		g.status = StatusInProgress
		g.active = true
	}
	if g.status != s.Status || g.winner != s.Winner || g.active != s.Active {
		return nil, fmt.Errorf("%w: recorded status %q does not match board", ErrBadSnapshot, s.Status)
	}
	return g, nil
}
