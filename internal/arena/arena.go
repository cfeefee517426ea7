// Package arena plays batches of computer-versus-computer games to measure
// the difficulty tiers against each other.
package arena

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

var ErrInvalidConfig = errors.New("invalid arena configuration")

// Outcome is the result of one game.
type Outcome int

const (
	Draw Outcome = iota
	XWins
	OWins
)

func (o Outcome) String() string {
	switch o {
	case XWins:
		return "x_wins"
	case OWins:
		return "o_wins"
	}
	return "draw"
}

// Player chooses a move for mark on board.
type Player interface {
	Move(board game.Board, mark game.PlayerMark) int
}

// SelectorPlayer plays either side with a bot.Selector. The selector only
// knows how to play O, so X's positions are handed to it with the marks
// swapped.
type SelectorPlayer struct {
	Selector   *bot.Selector
	Difficulty bot.Difficulty
}

func (p *SelectorPlayer) Move(board game.Board, mark game.PlayerMark) int {
	if mark == game.PlayerX {
		board = Swap(board)
	}
	return p.Selector.SelectMove(board, p.Difficulty)
}

// Swap exchanges X and O on every cell.
func Swap(b game.Board) game.Board {
	for i, c := range b {
		b[i] = c.Opponent()
	}
	return b
}

// Listener is notified as games finish. Calls come from worker goroutines.
type Listener interface {
	OnGameFinished(workerID, gameIndex int, outcome Outcome, board game.Board)
}

// Config describes a batch of games.
type Config struct {
	Games   int
	Workers int
	X       bot.Difficulty
	O       bot.Difficulty
	// Seed fixes every worker's random streams; zero seeds from the runtime.
	Seed uint64
}

// Stats counts outcomes; safe for concurrent use.
type Stats struct {
	xWins atomic.Uint32
	oWins atomic.Uint32
	draws atomic.Uint32
}

func (s *Stats) XWins() int { return int(s.xWins.Load()) }
func (s *Stats) OWins() int { return int(s.oWins.Load()) }
func (s *Stats) Draws() int { return int(s.draws.Load()) }
func (s *Stats) Total() int { return s.XWins() + s.OWins() + s.Draws() }

func (s *Stats) add(o Outcome) {
	switch o {
	case XWins:
		s.xWins.Add(1)
	case OWins:
		s.oWins.Add(1)
	default:
		s.draws.Add(1)
	}
}

// Summary is what a finished (or cancelled) run played.
type Summary struct {
	Games   int
	XWins   int
	OWins   int
	Draws   int
	Workers int
	Elapsed time.Duration
}

// Run plays cfg.Games games across a pool of workers, each holding its own
// selectors. A cancelled ctx stops the run early; the summary then covers
// the games that finished and the error is ctx.Err().
func Run(ctx context.Context, cfg Config, listener Listener) (Summary, error) {
	if cfg.Games <= 0 {
		return Summary{}, fmt.Errorf("%w: games must be positive", ErrInvalidConfig)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	cfg.Workers = min(cfg.Workers, cfg.Games)
	for _, d := range []bot.Difficulty{cfg.X, cfg.O} {
		if _, err := bot.ParseDifficulty(string(d)); err != nil {
			return Summary{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	start := time.Now()
	var stats Stats
	jobs := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := range cfg.Workers {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			x := &SelectorPlayer{Selector: newSelector(cfg.Seed, workerID, 0), Difficulty: cfg.X}
			o := &SelectorPlayer{Selector: newSelector(cfg.Seed, workerID, 1), Difficulty: cfg.O}

			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				outcome, board, err := PlayGame(x, o)
				if err != nil {
					slog.ErrorContext(ctx, "arena game aborted", "worker", workerID, "game", i, "error", err)
					continue
				}
				stats.add(outcome)
				if listener != nil {
					listener.OnGameFinished(workerID, i, outcome, board)
				}
			}
		}(w)
	}

Loop:
	for i := range cfg.Games {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(jobs)
	wg.Wait()

	summary := Summary{
		Games:   stats.Total(),
		XWins:   stats.XWins(),
		OWins:   stats.OWins(),
		Draws:   stats.Draws(),
		Workers: cfg.Workers,
		Elapsed: time.Since(start),
	}
	return summary, ctx.Err()
}

// PlayGame plays one game from the empty board with x moving first.
func PlayGame(x, o Player) (Outcome, game.Board, error) {
	g := game.NewGame(game.ModeMulti)
	for g.Active() {
		mark := g.CurrentPlayer()
		p := x
		if mark == game.PlayerO {
			p = o
		}
		cell := p.Move(g.Board(), mark)
		if _, err := g.ApplyMove(cell, mark); err != nil {
			return Draw, g.Board(), fmt.Errorf("%s played %d: %w", mark, cell, err)
		}
	}

	switch g.Winner() {
	case game.PlayerX:
		return XWins, g.Board(), nil
	case game.PlayerO:
		return OWins, g.Board(), nil
	}
	return Draw, g.Board(), nil
}

func newSelector(seed uint64, worker, side int) *bot.Selector {
	if seed == 0 {
		return bot.NewSelector()
	}
	return bot.NewSelectorWithSource(rand.NewPCG(seed, uint64(worker)<<1|uint64(side)))
}
