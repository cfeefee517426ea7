package game

import "strings"

// PlayerMark represents the mark of a player (X, O) or an empty cell.
type PlayerMark string

const (
	// Player marks
	None    PlayerMark = ""
	PlayerX PlayerMark = "X"
	PlayerO PlayerMark = "O"

	// Board boundaries
	CellMin   = 0
	CellMax   = 8
	CellCount = 9
)

// Opponent returns the other player's mark. None has no opponent.
func (m PlayerMark) Opponent() PlayerMark {
	switch m {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	}
	return None
}

// Valid reports whether m is one of the two player marks.
func (m PlayerMark) Valid() bool {
	return m == PlayerX || m == PlayerO
}

// winningTriples lists the rows, columns and diagonals of the board.
var winningTriples = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Board is a 3x3 board stored row-major:
//
//	0 1 2
//	3 4 5
//	6 7 8
//
// It is a value type; assigning it copies all nine cells.
type Board [CellCount]PlayerMark

// HasWon reports whether mark occupies all three cells of any winning triple.
func (b Board) HasWon(mark PlayerMark) bool {
	if mark == None {
		return false
	}
	for _, t := range winningTriples {
		if b[t[0]] == mark && b[t[1]] == mark && b[t[2]] == mark {
			return true
		}
	}
	return false
}

// IsFull reports whether every cell is occupied.
func (b Board) IsFull() bool {
	for _, c := range b {
		if c == None {
			return false
		}
	}
	return true
}

// EmptyCells returns the indexes of the empty cells in ascending order.
func (b Board) EmptyCells() []int {
	cells := make([]int, 0, CellCount)
	for i, c := range b {
		if c == None {
			cells = append(cells, i)
		}
	}
	return cells
}

// Count returns how many cells hold mark.
func (b Board) Count(mark PlayerMark) int {
	n := 0
	for _, c := range b {
		if c == mark {
			n++
		}
	}
	return n
}

// Rows converts the board to a slice of rows, the shape clients render.
func (b Board) Rows() [][]PlayerMark {
	rows := make([][]PlayerMark, 3)
	for r := range rows {
		rows[r] = make([]PlayerMark, 3)
		copy(rows[r], b[r*3:r*3+3])
	}
	return rows
}

// String draws the board using "." for empty cells.
func (b Board) String() string {
	var sb strings.Builder
	for i, c := range b {
		if c == None {
			sb.WriteByte('.')
		} else {
			sb.WriteString(string(c))
		}
		if i%3 == 2 && i != CellMax {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// InRange reports whether index addresses a cell.
func InRange(index int) bool {
	return index >= CellMin && index <= CellMax
}
