package bot

import (
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
)

// Difficulty selects how far the computer strays from optimal play.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Leaf scores, from O's point of view.
const (
	ScoreXWins = -10
	ScoreDraw  = 0
	ScoreOWins = 10
)

// NoMove is returned when the board offers nothing to search.
const NoMove = -1

// mediumReplyPool is how many of X's lowest scoring replies the medium
// search chooses between.
const mediumReplyPool = 3

var ErrInvalidDifficulty = errors.New("invalid difficulty")

// ParseDifficulty converts a client supplied string into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case Easy, Medium, Hard:
		return Difficulty(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
}

// SearchResult is a candidate cell and the score the search propagated for it.
type SearchResult struct {
	Index int
	Score int
}

// Selector picks the computer's moves. The computer always plays O.
// A Selector owns its random source and must not be shared between goroutines.
type Selector struct {
	rng *rand.Rand
}

// NewSelector returns a selector seeded from the runtime's random source.
func NewSelector() *Selector {
	return NewSelectorWithSource(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewSelectorWithSource returns a selector drawing from src.
func NewSelectorWithSource(src rand.Source) *Selector {
	return &Selector{rng: rand.New(src)}
}

// SelectMove returns the cell O should play on board. It returns NoMove when
// the board is full or already won; callers are expected to check for the
// end of the game first.
func (s *Selector) SelectMove(board game.Board, difficulty Difficulty) int {
	avail := board.EmptyCells()
	if len(avail) == 0 || board.HasWon(game.PlayerX) || board.HasWon(game.PlayerO) {
		return NoMove
	}

	if difficulty == Easy {
		return avail[s.rng.IntN(len(avail))]
	}
	return s.Minimax(board, game.PlayerO, difficulty).Index
}

// Minimax searches the whole remaining game tree below board with mover to
// play. O maximizes. X minimizes under Hard; under any other difficulty X
// is modelled as picking at random among its three lowest scoring replies.
// Terminal boards score without an index.
func (s *Selector) Minimax(board game.Board, mover game.PlayerMark, difficulty Difficulty) SearchResult {
	if board.HasWon(game.PlayerX) {
		return SearchResult{Index: NoMove, Score: ScoreXWins}
	}
	if board.HasWon(game.PlayerO) {
		return SearchResult{Index: NoMove, Score: ScoreOWins}
	}
	avail := board.EmptyCells()
	if len(avail) == 0 {
		return SearchResult{Index: NoMove, Score: ScoreDraw}
	}

	moves := make([]SearchResult, 0, len(avail))
	for _, i := range avail {
		next := board
		next[i] = mover
		child := s.Minimax(next, mover.Opponent(), difficulty)
		moves = append(moves, SearchResult{Index: i, Score: child.Score})
	}

	if mover == game.PlayerO {
		best := moves[0]
		for _, m := range moves[1:] {
			if m.Score > best.Score {
				best = m
			}
		}
		return best
	}

	if difficulty == Hard {
		best := moves[0]
		for _, m := range moves[1:] {
			if m.Score < best.Score {
				best = m
			}
		}
		return best
	}

	sort.SliceStable(moves, func(a, b int) bool { return moves[a].Score < moves[b].Score })
	pool := moves[:min(mediumReplyPool, len(moves))]
	return pool[s.rng.IntN(len(pool))]
}

// BotMoveCalculator adapts a Selector to the room.MoveCalculator interface.
type BotMoveCalculator struct {
	selector *Selector
}

// NewBotMoveCalculator wraps selector; a nil selector gets a fresh one.
func NewBotMoveCalculator(selector *Selector) *BotMoveCalculator {
	if selector == nil {
		selector = NewSelector()
	}
	return &BotMoveCalculator{selector: selector}
}

// CalculateNextMove calls the selector to satisfy the interface.
func (c *BotMoveCalculator) CalculateNextMove(board game.Board, difficulty Difficulty) int {
	return c.selector.SelectMove(board, difficulty)
}
