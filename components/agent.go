package components

import (
	"fmt"

	"github.com/pthm-cable/neurosnake/neural"
)

// Body holds the agent's cells, head first.
type Body struct {
	Cells []Cell
}

// NewBody creates a body of the given length with every trailing segment
// stacked on the head cell. The segments unfold as the agent moves.
func NewBody(head Cell, length int) Body {
	cells := make([]Cell, length)
	for i := range cells {
		cells[i] = head
	}
	return Body{Cells: cells}
}

// Head returns the head cell.
func (b *Body) Head() Cell { return b.Cells[0] }

// Len returns the agent length.
func (b *Body) Len() int { return len(b.Cells) }

// Trailing returns every segment behind the head.
func (b *Body) Trailing() []Cell { return b.Cells[1:] }

// Occupies reports whether any cell of the agent, head included, is c.
func (b *Body) Occupies(c Cell) bool {
	for _, cell := range b.Cells {
		if cell == c {
			return true
		}
	}
	return false
}

// HeadOnBody reports whether the head overlaps a trailing segment.
func (b *Body) HeadOnBody() bool {
	head := b.Head()
	for _, cell := range b.Trailing() {
		if cell == head {
			return true
		}
	}
	return false
}

// Advance moves the head one cell along d; every trailing segment takes the
// place of the one in front of it.
func (b *Body) Advance(d Direction) {
	for i := len(b.Cells) - 1; i > 0; i-- {
		b.Cells[i] = b.Cells[i-1]
	}
	b.Cells[0] = b.Cells[0].Add(d.Delta())
}

// Grow appends a segment on top of the last one.
func (b *Body) Grow() {
	b.Cells = append(b.Cells, b.Cells[len(b.Cells)-1])
}

// Snapshot returns a copy of the cells.
func (b *Body) Snapshot() []Cell {
	return append([]Cell(nil), b.Cells...)
}

// Heading holds the agent's absolute direction.
type Heading struct {
	Dir Direction
}

// Energy is the move budget; one unit is spent per tick.
type Energy struct {
	Value int
}

// Brain holds the agent's network and per-tick scratch state.
type Brain struct {
	Net     *neural.Network
	Inputs  []float64
	Capture bool        // keep layer activations for observers
	Trace   [][]float64 // last activations when Capture is set
}

// Vitals accumulates the outcome of one run.
type Vitals struct {
	Fitness      float64
	Score        int // agent length
	Steps        int
	Captures     int
	LastDistance float64 // distance to the target after the previous tick
	Outcome      Outcome
}

// Target is the food cell.
type Target struct {
	Cell Cell
}

// Outcome is the terminal condition that ended a run. Outcomes are normal
// results of fitness evaluation, not errors.
type Outcome uint8

const (
	OutcomeRunning Outcome = iota
	OutcomeStarved
	OutcomeCollided
	OutcomeOutOfBounds
	OutcomeFilled
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRunning:
		return "running"
	case OutcomeStarved:
		return "starved"
	case OutcomeCollided:
		return "collided"
	case OutcomeOutOfBounds:
		return "out_of_bounds"
	case OutcomeFilled:
		return "filled"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// MarshalText renders the outcome name in JSON and CSV output.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses an outcome name written by MarshalText.
func (o *Outcome) UnmarshalText(text []byte) error {
	for c := OutcomeRunning; c <= OutcomeTimeout; c++ {
		if c.String() == string(text) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}
