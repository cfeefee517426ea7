// Command play runs a game of tic-tac-toe in the terminal, either against
// the computer or between two people sharing the keyboard.
package main

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/client"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/hub"
	"ctchen222/minimax-tic-tac-toe/internal/logger"
	"ctchen222/minimax-tic-tac-toe/internal/repository"
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
	modeFlag := flag.String("mode", string(game.ModeSingle), "game mode: single or multi")
	difficultyFlag := flag.String("difficulty", string(bot.Hard), "computer difficulty: easy, medium or hard")
	delay := flag.Duration("delay", 500*time.Millisecond, "how long the computer thinks before moving")
	flag.Parse()

	mode, err := game.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	difficulty, err := bot.ParseDifficulty(*difficultyFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Keep the board readable: only warnings reach the terminal.
	slog.SetDefault(logger.New(os.Stderr, slog.LevelWarn))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(repository.NewMemoryGameRepository(time.Hour), nil, hub.Options{ThinkDelay: *delay})
	r, err := h.CreateRoom(ctx, mode, difficulty)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer r.Close()

	output := termenv.NewOutput(os.Stdout)
	conn := newTerminalConn(os.Stdin, output, mode)
	c := client.New("terminal", conn)

	fmt.Fprintln(output, helpText)
	r.Attach(ctx, c)

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ReadPump(ctx, c)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	r.Detach(ctx, c)
}
