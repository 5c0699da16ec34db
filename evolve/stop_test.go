package evolve

import "testing"

func TestMaxGenerations(t *testing.T) {
	stop := MaxGenerations(3)
	if stop(nil) || stop([]float64{1, 2}) {
		t.Error("stopped early")
	}
	if !stop([]float64{1, 2, 3}) {
		t.Error("did not stop after 3 generations")
	}
	if !MaxGenerations(0)(nil) {
		t.Error("MaxGenerations(0) should stop immediately")
	}
}

func TestPlateau(t *testing.T) {
	tests := []struct {
		name    string
		history []float64
		window  int
		epsilon float64
		want    bool
	}{
		{"too short", []float64{1, 1, 1}, 3, 0, false},
		{"improving", []float64{1, 2, 3, 4, 5}, 3, 0, false},
		{"flat", []float64{1, 5, 5, 5, 5}, 3, 0, true},
		{"worse", []float64{1, 5, 4, 3, 2}, 3, 0, true},
		{"within epsilon", []float64{1, 5, 5.5, 5, 5}, 3, 1, true},
		{"beyond epsilon", []float64{1, 5, 7, 5, 5}, 3, 1, false},
		{"disabled", []float64{5, 5, 5, 5, 5}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Plateau(tt.window, tt.epsilon)(tt.history); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAny(t *testing.T) {
	stop := Any(MaxGenerations(10), Plateau(2, 0))
	if stop([]float64{1, 2, 3}) {
		t.Error("stopped while improving")
	}
	if !stop([]float64{3, 2, 1}) {
		t.Error("did not stop on plateau")
	}
	if Any()(nil) {
		t.Error("empty Any should never stop")
	}
}
