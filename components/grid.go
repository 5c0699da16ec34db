// Package components defines ECS components for the grid simulation.
package components

// Cell is a grid coordinate. X grows to the right, Y grows downwards.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns c moved by d.
func (c Cell) Add(d Cell) Cell {
	return Cell{X: c.X + d.X, Y: c.Y + d.Y}
}

// Grid is the playing field.
type Grid struct {
	Width, Height int
}

// Contains reports whether c lies on the grid.
func (g Grid) Contains(c Cell) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

// Cells returns the total number of cells.
func (g Grid) Cells() int {
	return g.Width * g.Height
}

// Center returns the middle cell.
func (g Grid) Center() Cell {
	return Cell{X: g.Width / 2, Y: g.Height / 2}
}

// Direction is an absolute heading on the grid.
type Direction uint8

const (
	Up Direction = iota
	Right
	Down
	Left
)

// Directions lists every heading in clockwise order.
var Directions = [4]Direction{Up, Right, Down, Left}

var directionDeltas = [4]Cell{
	Up:    {X: 0, Y: -1},
	Right: {X: 1, Y: 0},
	Down:  {X: 0, Y: 1},
	Left:  {X: -1, Y: 0},
}

// Delta returns the one-cell step for the heading.
func (d Direction) Delta() Cell {
	return directionDeltas[d%4]
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// Action is a turn relative to the current heading, indexed like the
// network outputs.
type Action uint8

const (
	TurnLeft Action = iota
	Straight
	TurnRight
)

// Turn applies a relative action. A relative turn is at most 90 degrees, so
// the agent can never reverse onto its own body.
func (d Direction) Turn(a Action) Direction {
	switch a {
	case TurnLeft:
		return (d + 3) % 4
	case TurnRight:
		return (d + 1) % 4
	default:
		return d
	}
}
