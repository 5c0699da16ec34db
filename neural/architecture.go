// Package neural provides the feed-forward brains evolved by the genetic
// algorithm and the codec between their layered parameters and the flat
// chromosomes the genetic operators work on.
package neural

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidArchitecture is returned for architectures with fewer than two
	// layers or a non-positive layer width.
	ErrInvalidArchitecture = errors.New("invalid architecture")

	// ErrDimensionMismatch is returned when an input vector or a parameter
	// matrix does not match the shape the architecture requires.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrChromosomeLength is returned when a chromosome holds more or fewer
	// genes than the architecture consumes.
	ErrChromosomeLength = errors.New("chromosome length mismatch")
)

// Architecture lists layer widths from input to output, e.g. [2, 4, 3].
type Architecture []int

// Validate reports whether the architecture can describe a network.
func (a Architecture) Validate() error {
	if len(a) < 2 {
		return fmt.Errorf("%w: need at least 2 layers, got %d", ErrInvalidArchitecture, len(a))
	}
	for i, w := range a {
		if w <= 0 {
			return fmt.Errorf("%w: layer %d has width %d", ErrInvalidArchitecture, i, w)
		}
	}
	return nil
}

// Inputs returns the width of the input layer.
func (a Architecture) Inputs() int { return a[0] }

// Outputs returns the width of the output layer.
func (a Architecture) Outputs() int { return a[len(a)-1] }

// Layers returns the number of weighted layers (L-1).
func (a Architecture) Layers() int { return len(a) - 1 }

// ChromosomeLen returns the number of genes needed to encode every weight and
// bias of the architecture.
func (a Architecture) ChromosomeLen() int {
	n := 0
	for i := 1; i < len(a); i++ {
		n += a[i-1]*a[i] + a[i]
	}
	return n
}

// Clone returns an independent copy.
func (a Architecture) Clone() Architecture {
	return append(Architecture(nil), a...)
}

// Layer holds one affine transform: W is [in x out], B is [1 x out].
type Layer struct {
	W *mat.Dense
	B *mat.Dense
}

// ParameterSet holds the weights and biases of every layer in order.
// Layer i of the architecture (1..L-1) is Layers[i-1].
type ParameterSet struct {
	Layers []Layer
}

// Layer returns the parameters of layer i, counted from 1 like the
// architecture.
func (p *ParameterSet) Layer(i int) Layer {
	return p.Layers[i-1]
}

// Clone creates a deep copy of the parameter set.
func (p *ParameterSet) Clone() *ParameterSet {
	clone := &ParameterSet{Layers: make([]Layer, len(p.Layers))}
	for i, l := range p.Layers {
		clone.Layers[i] = Layer{
			W: mat.DenseCopyOf(l.W),
			B: mat.DenseCopyOf(l.B),
		}
	}
	return clone
}

// Equal reports whether two parameter sets hold exactly the same values.
func (p *ParameterSet) Equal(other *ParameterSet) bool {
	if len(p.Layers) != len(other.Layers) {
		return false
	}
	for i := range p.Layers {
		if !mat.Equal(p.Layers[i].W, other.Layers[i].W) || !mat.Equal(p.Layers[i].B, other.Layers[i].B) {
			return false
		}
	}
	return true
}

// Conforms checks every layer shape against the architecture.
func (p *ParameterSet) Conforms(arch Architecture) error {
	if err := arch.Validate(); err != nil {
		return err
	}
	if len(p.Layers) != arch.Layers() {
		return fmt.Errorf("%w: %d parameter layers for %d-layer architecture", ErrDimensionMismatch, len(p.Layers), len(arch))
	}
	for i, l := range p.Layers {
		in, out := arch[i], arch[i+1]
		if l.W == nil || l.B == nil {
			return fmt.Errorf("%w: layer %d is missing parameters", ErrDimensionMismatch, i+1)
		}
		if r, c := l.W.Dims(); r != in || c != out {
			return fmt.Errorf("%w: layer %d weights are %dx%d, want %dx%d", ErrDimensionMismatch, i+1, r, c, in, out)
		}
		if r, c := l.B.Dims(); r != 1 || c != out {
			return fmt.Errorf("%w: layer %d bias is %dx%d, want 1x%d", ErrDimensionMismatch, i+1, r, c, out)
		}
	}
	return nil
}

// NewRandomParameters draws every weight and bias uniformly from
// [-scale, scale].
func NewRandomParameters(rng *rand.Rand, arch Architecture, scale float64) (*ParameterSet, error) {
	if err := arch.Validate(); err != nil {
		return nil, err
	}
	p := &ParameterSet{Layers: make([]Layer, arch.Layers())}
	for i := range p.Layers {
		in, out := arch[i], arch[i+1]
		w := make([]float64, in*out)
		for j := range w {
			w[j] = (rng.Float64()*2 - 1) * scale
		}
		b := make([]float64, out)
		for j := range b {
			b[j] = (rng.Float64()*2 - 1) * scale
		}
		p.Layers[i] = Layer{W: mat.NewDense(in, out, w), B: mat.NewDense(1, out, b)}
	}
	return p, nil
}
