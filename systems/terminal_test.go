package systems

import (
	"testing"

	"github.com/pthm-cable/neurosnake/components"
)

func TestMove(t *testing.T) {
	body := components.NewBody(components.Cell{X: 5, Y: 4}, 4)
	heading := components.Heading{Dir: components.Right}
	energy := components.Energy{Value: 60}
	var vitals components.Vitals

	Move(&body, &heading, &energy, &vitals)

	if body.Head() != (components.Cell{X: 6, Y: 4}) {
		t.Errorf("head = %+v, want {6 4}", body.Head())
	}
	if energy.Value != 59 {
		t.Errorf("energy = %d, want 59", energy.Value)
	}
	if vitals.Steps != 1 {
		t.Errorf("steps = %d, want 1", vitals.Steps)
	}
}

func TestCheckTerminal(t *testing.T) {
	inside := components.Body{Cells: []components.Cell{{X: 2, Y: 2}, {X: 1, Y: 2}}}
	outside := components.Body{Cells: []components.Cell{{X: -1, Y: 2}, {X: 0, Y: 2}}}
	collided := components.Body{Cells: []components.Cell{{X: 2, Y: 2}, {X: 2, Y: 3}, {X: 2, Y: 2}}}
	small := components.Grid{Width: 2, Height: 1}
	full := components.Body{Cells: []components.Cell{{X: 1, Y: 0}, {X: 0, Y: 0}}}

	tests := []struct {
		name     string
		body     components.Body
		energy   int
		steps    int
		grid     components.Grid
		maxTicks int
		want     components.Outcome
	}{
		{"running", inside, 10, 0, testGrid, 0, components.OutcomeRunning},
		{"starved", inside, 0, 0, testGrid, 0, components.OutcomeStarved},
		{"collided", collided, 10, 0, testGrid, 0, components.OutcomeCollided},
		{"out of bounds", outside, 10, 0, testGrid, 0, components.OutcomeOutOfBounds},
		{"filled", full, 10, 0, small, 0, components.OutcomeFilled},
		{"timeout", inside, 10, 50, testGrid, 50, components.OutcomeTimeout},
		{"no cap", inside, 10, 5000, testGrid, 0, components.OutcomeRunning},
		{"starved beats collided", collided, 0, 0, testGrid, 0, components.OutcomeStarved},
		{"starved beats out of bounds", outside, -1, 0, testGrid, 0, components.OutcomeStarved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			energy := components.Energy{Value: tt.energy}
			vitals := components.Vitals{Steps: tt.steps}
			got := CheckTerminal(&tt.body, &energy, &vitals, tt.grid, tt.maxTicks)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStackedBodyDoesNotCollideAtBirth(t *testing.T) {
	body := components.NewBody(components.Cell{X: 5, Y: 4}, 4)
	heading := components.Heading{Dir: components.Right}
	energy := components.Energy{Value: 60}
	var vitals components.Vitals

	for i := 0; i < 3; i++ {
		Move(&body, &heading, &energy, &vitals)
		if got := CheckTerminal(&body, &energy, &vitals, testGrid, 0); got != components.OutcomeRunning {
			t.Fatalf("move %d: got %v, want running", i+1, got)
		}
	}
}
