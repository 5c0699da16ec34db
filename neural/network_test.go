package neural

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestArchitectureValidate(t *testing.T) {
	tests := []struct {
		name string
		arch Architecture
		ok   bool
	}{
		{"empty", Architecture{}, false},
		{"single layer", Architecture{3}, false},
		{"zero width", Architecture{2, 0, 3}, false},
		{"negative width", Architecture{2, -1}, false},
		{"minimal", Architecture{1, 1}, true},
		{"default", Architecture{2, 4, 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.arch.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidArchitecture) {
				t.Errorf("Validate() = %v, want ErrInvalidArchitecture", err)
			}
		})
	}
}

func TestChromosomeLen(t *testing.T) {
	// 2*4 + 4*3 weights + 4 + 3 biases
	if got := (Architecture{2, 4, 3}).ChromosomeLen(); got != 27 {
		t.Errorf("ChromosomeLen() = %d, want 27", got)
	}
	if got := (Architecture{6, 8, 8, 3}).ChromosomeLen(); got != 6*8+8*8+8*3+8+8+3 {
		t.Errorf("ChromosomeLen() = %d", got)
	}
}

func TestForwardSigmoidByHand(t *testing.T) {
	arch := Architecture{2, 1}
	p := &ParameterSet{Layers: []Layer{{
		W: mat.NewDense(2, 1, []float64{0.5, -1}),
		B: mat.NewDense(1, 1, []float64{0.25}),
	}}}

	out, err := Forward([]float64{2, 1}, p, arch, Sigmoid)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}

	// 2*0.5 + 1*-1 + 0.25 = 0.25
	want := 1 / (1 + math.Exp(-0.25))
	if len(out) != 1 || math.Abs(out[0]-want) > 1e-12 {
		t.Errorf("Forward = %v, want [%v]", out, want)
	}
}

func TestForwardReLU(t *testing.T) {
	arch := Architecture{1, 2}
	p := &ParameterSet{Layers: []Layer{{
		W: mat.NewDense(1, 2, []float64{1, -1}),
		B: mat.NewDense(1, 2, []float64{0, 0}),
	}}}

	out, err := Forward([]float64{3}, p, arch, ReLU)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if out[0] != 3 || out[1] != 0 {
		t.Errorf("Forward = %v, want [3 0]", out)
	}
}

func TestForwardRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	arch := Architecture{2, 4, 3}
	p, err := NewRandomParameters(rng, arch, 1)
	if err != nil {
		t.Fatalf("NewRandomParameters: %v", err)
	}

	out, err := Forward([]float64{5, -3}, p, arch, Sigmoid)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	for i, v := range out {
		if v <= 0 || v >= 1 {
			t.Errorf("out[%d] = %v outside (0,1)", i, v)
		}
	}
}

func TestForwardDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	arch := Architecture{2, 4, 3}
	p, _ := NewRandomParameters(rng, arch, 1)
	n, err := NewNetwork(arch, p, Sigmoid)
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}

	in := []float64{0.3, -0.7}
	a, _ := n.Forward(in)
	b, _ := n.Forward(in)
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("Forward is not deterministic")
		}
	}
}

func TestForwardErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	arch := Architecture{2, 4, 3}
	p, _ := NewRandomParameters(rng, arch, 1)

	if _, err := Forward([]float64{1, 2, 3}, p, arch, Sigmoid); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("long input: err = %v, want ErrDimensionMismatch", err)
	}
	if _, err := Forward([]float64{1}, p, Architecture{1}, Sigmoid); !errors.Is(err, ErrInvalidArchitecture) {
		t.Errorf("short architecture: err = %v, want ErrInvalidArchitecture", err)
	}
	if _, err := Forward([]float64{1, 2}, p, Architecture{2, 5, 3}, Sigmoid); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("wrong shapes: err = %v, want ErrDimensionMismatch", err)
	}
}

func TestTraceCapturesLayers(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	arch := Architecture{2, 4, 3}
	p, _ := NewRandomParameters(rng, arch, 1)

	trace, err := Trace([]float64{1, -1}, p, arch, Sigmoid)
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if len(trace) != 3 {
		t.Fatalf("len(trace) = %d, want 3", len(trace))
	}
	for i, w := range arch {
		if len(trace[i]) != w {
			t.Errorf("layer %d has %d values, want %d", i, len(trace[i]), w)
		}
	}

	out, _ := Forward([]float64{1, -1}, p, arch, Sigmoid)
	for i := range out {
		if out[i] != trace[2][i] {
			t.Errorf("trace output differs from Forward at %d", i)
		}
	}
}

func TestCloneIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	arch := Architecture{2, 4, 3}
	p, _ := NewRandomParameters(rng, arch, 1)

	clone := p.Clone()
	if !clone.Equal(p) {
		t.Fatal("Clone has different weights")
	}

	clone.Layer(1).W.Set(0, 0, 999)
	if p.Layer(1).W.At(0, 0) == 999 {
		t.Error("Clone is not independent")
	}
}

func TestArgmax(t *testing.T) {
	tests := []struct {
		in   []float64
		want int
	}{
		{[]float64{0.1, 0.9, 0.3}, 1},
		{[]float64{0.5, 0.5, 0.1}, 0},
		{[]float64{0.1, 0.2, 0.7}, 2},
	}
	for _, tt := range tests {
		if got := Argmax(tt.in); got != tt.want {
			t.Errorf("Argmax(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseActivation(t *testing.T) {
	for _, name := range []string{"sigmoid", "relu"} {
		act, err := ParseActivation(name)
		if err != nil {
			t.Fatalf("ParseActivation(%q): %v", name, err)
		}
		if act.String() != name {
			t.Errorf("round trip %q -> %q", name, act.String())
		}
	}
	if _, err := ParseActivation("tanh"); err == nil {
		t.Error("expected error for unknown activation")
	}
}

func BenchmarkForward(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	arch := Architecture{6, 8, 3}
	p, _ := NewRandomParameters(rng, arch, 1)

	inputs := make([]float64, arch.Inputs())
	for i := range inputs {
		inputs[i] = 0.5
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Forward(inputs, p, arch, Sigmoid)
	}
}
