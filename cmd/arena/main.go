// Command arena pits two computer players against each other and reports
// how the games ended.
package main

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/arena"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/config"
	"ctchen222/minimax-tic-tac-toe/internal/logger"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muesli/termenv"
)

func main() {
	games := flag.Int("games", 100, "number of games to play")
	workers := flag.Int("workers", 0, "parallel workers (0 uses every CPU)")
	x := flag.String("x", string(bot.Hard), "difficulty of the X player")
	o := flag.String("o", string(bot.Hard), "difficulty of the O player")
	seed := flag.Uint64("seed", 0, "random seed (0 picks one)")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	lvl, err := config.ParseLevel(*level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger.Init(lvl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := arena.Config{
		Games:   *games,
		Workers: *workers,
		X:       bot.Difficulty(*x),
		O:       bot.Difficulty(*o),
		Seed:    *seed,
	}
	slog.InfoContext(ctx, "arena started", "games", cfg.Games, "x", cfg.X, "o", cfg.O)

	summary, err := arena.Run(ctx, cfg, nil)
	switch {
	case errors.Is(err, arena.ErrInvalidConfig):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	case errors.Is(err, context.Canceled):
		slog.WarnContext(ctx, "arena interrupted", "played", summary.Games)
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	printSummary(termenv.NewOutput(os.Stdout), cfg, summary)
}

func printSummary(out *termenv.Output, cfg arena.Config, s arena.Summary) {
	title := out.String(fmt.Sprintf("X (%s) vs O (%s)", cfg.X, cfg.O)).Bold()
	fmt.Fprintf(out, "%s  %d games on %d workers in %s\n", title, s.Games, s.Workers, s.Elapsed.Round(time.Millisecond))

	row := func(label string, n int, color string) {
		pct := 0.0
		if s.Games > 0 {
			pct = 100 * float64(n) / float64(s.Games)
		}
		name := out.String(fmt.Sprintf("%-7s", label)).Foreground(out.Color(color)).Bold()
		fmt.Fprintf(out, "  %s %6d  %5.1f%%\n", name, n, pct)
	}
	row("X wins", s.XWins, "4")
	row("O wins", s.OWins, "1")
	row("Draws", s.Draws, "3")
}
