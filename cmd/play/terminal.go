package main

import (
	"bufio"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/pkg/proto"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/muesli/termenv"
)

const helpText = `commands:
  1-9                 play the numbered cell
  r                   restart the game
  m single|multi      switch mode (restarts)
  d easy|medium|hard  switch difficulty (restarts)
  q                   quit`

// terminalConn is a client connection backed by a terminal: lines typed on
// in become client messages and server updates are drawn on out.
type terminalConn struct {
	mu     sync.Mutex
	in     *bufio.Scanner
	out    *termenv.Output
	mode   game.Mode
	closed bool
}

func newTerminalConn(in io.Reader, out *termenv.Output, mode game.Mode) *terminalConn {
	return &terminalConn{in: bufio.NewScanner(in), out: out, mode: mode}
}

// ReadMessage blocks until the user types a valid command.
func (t *terminalConn) ReadMessage() (int, []byte, error) {
	for t.in.Scan() {
		msg, err := t.parse(t.in.Text())
		if errors.Is(err, io.EOF) {
			return 0, nil, err
		}
		if err != nil {
			t.println(t.out.String(err.Error()).Foreground(t.out.Color("1")).String())
			t.println(helpText)
			continue
		}
		if msg == nil {
			continue
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return 0, nil, err
		}
		return websocket.TextMessage, data, nil
	}
	if err := t.in.Err(); err != nil {
		return 0, nil, err
	}
	return 0, nil, io.EOF
}

func (t *terminalConn) parse(line string) (*proto.ClientToServerMessage, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}

	t.mu.Lock()
	mode := t.mode
	t.mu.Unlock()

	switch fields[0] {
	case "q", "quit":
		return nil, io.EOF
	case "h", "help":
		t.println(helpText)
		return nil, nil
	case "r", "reset":
		return &proto.ClientToServerMessage{Type: proto.TypeReset}, nil
	case "m", "mode":
		if len(fields) != 2 {
			return nil, errors.New("mode needs one argument")
		}
		return &proto.ClientToServerMessage{Type: proto.TypeConfigure, Mode: fields[1]}, nil
	case "d", "difficulty":
		if len(fields) != 2 {
			return nil, errors.New("difficulty needs one argument")
		}
		return &proto.ClientToServerMessage{Type: proto.TypeConfigure, Mode: string(mode), Difficulty: fields[1]}, nil
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 1 || n > game.CellCount {
		return nil, fmt.Errorf("unknown command %q", line)
	}
	cell := n - 1
	return &proto.ClientToServerMessage{Type: proto.TypeMove, Cell: &cell}, nil
}

// WriteMessage draws server messages; pings are ignored.
func (t *terminalConn) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	var msg proto.ServerToClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}

	switch msg.Type {
	case proto.TypeError:
		t.println(t.out.String("rejected: " + msg.Reason).Foreground(t.out.Color("1")).String())
	case proto.TypeUpdate:
		if msg.Game == nil {
			return nil
		}
		t.mu.Lock()
		t.mode = msg.Game.Mode
		t.mu.Unlock()
		t.println(t.render(msg.Game))
	}
	return nil
}

func (t *terminalConn) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *terminalConn) println(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	fmt.Fprintln(t.out, s)
}

// render draws the board with empty cells numbered the way moves are typed.
func (t *terminalConn) render(v *proto.GameView) string {
	var sb strings.Builder
	sb.WriteString("\n")
	for r, row := range v.Board {
		for c, mark := range row {
			sb.WriteString(" ")
			sb.WriteString(t.cell(mark, r*3+c+1))
			if c < 2 {
				sb.WriteString(" |")
			}
		}
		sb.WriteString("\n")
		if r < 2 {
			sb.WriteString("---+---+---\n")
		}
	}

	mode := string(v.Mode)
	if v.Mode == game.ModeSingle {
		mode += ", " + v.Difficulty
	}
	status := t.out.String(v.Message).Bold()
	if !v.Active {
		status = status.Foreground(t.out.Color("3"))
	}
	fmt.Fprintf(&sb, "\n%s  %s", status, t.out.String("("+mode+")").Faint())
	return sb.String()
}

func (t *terminalConn) cell(mark game.PlayerMark, n int) string {
	switch mark {
	case game.PlayerX:
		return t.out.String("X").Foreground(t.out.Color("4")).Bold().String()
	case game.PlayerO:
		return t.out.String("O").Foreground(t.out.Color("1")).Bold().String()
	}
	return t.out.String(strconv.Itoa(n)).Faint().String()
}
