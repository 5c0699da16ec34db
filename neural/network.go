package neural

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Activation selects the nonlinearity applied after every layer.
type Activation uint8

const (
	Sigmoid Activation = iota // logistic 1/(1+e^-x), outputs in (0,1)
	ReLU                      // max(0, x)
)

// ParseActivation maps a config name to an Activation.
func ParseActivation(name string) (Activation, error) {
	switch name {
	case "", "sigmoid":
		return Sigmoid, nil
	case "relu":
		return ReLU, nil
	default:
		return 0, fmt.Errorf("unknown activation %q", name)
	}
}

func (a Activation) String() string {
	switch a {
	case Sigmoid:
		return "sigmoid"
	case ReLU:
		return "relu"
	default:
		return fmt.Sprintf("Activation(%d)", a)
	}
}

// Apply evaluates the activation at x.
func (a Activation) Apply(x float64) float64 {
	if a == ReLU {
		if x < 0 {
			return 0
		}
		return x
	}
	return 1.0 / (1.0 + math.Exp(-x))
}

// Forward computes act(x·W + b) layer by layer and returns the output layer.
// It keeps no state between calls.
func Forward(input []float64, p *ParameterSet, arch Architecture, act Activation) ([]float64, error) {
	trace, err := Trace(input, p, arch, act)
	if err != nil {
		return nil, err
	}
	return trace[len(trace)-1], nil
}

// Trace computes the network output and captures all layer activations.
// trace[0] is a copy of the input and trace[len-1] is the output.
func Trace(input []float64, p *ParameterSet, arch Architecture, act Activation) ([][]float64, error) {
	if err := arch.Validate(); err != nil {
		return nil, err
	}
	if len(input) != arch.Inputs() {
		return nil, fmt.Errorf("%w: input has %d values, architecture expects %d", ErrDimensionMismatch, len(input), arch.Inputs())
	}
	if err := p.Conforms(arch); err != nil {
		return nil, err
	}

	trace := make([][]float64, 0, len(arch))
	trace = append(trace, append([]float64(nil), input...))

	x := mat.NewDense(1, len(input), append([]float64(nil), input...))
	for _, l := range p.Layers {
		var z mat.Dense
		z.Mul(x, l.W)
		z.Add(&z, l.B)
		z.Apply(func(_, _ int, v float64) float64 { return act.Apply(v) }, &z)
		trace = append(trace, append([]float64(nil), z.RawRowView(0)...))
		x = &z
	}
	return trace, nil
}

// Network binds a parameter set to its architecture and activation.
type Network struct {
	Arch       Architecture
	Params     *ParameterSet
	Activation Activation
}

// NewNetwork validates the parameters against the architecture.
func NewNetwork(arch Architecture, params *ParameterSet, act Activation) (*Network, error) {
	if err := params.Conforms(arch); err != nil {
		return nil, err
	}
	return &Network{Arch: arch, Params: params, Activation: act}, nil
}

// Forward computes the network output.
func (n *Network) Forward(input []float64) ([]float64, error) {
	return Forward(input, n.Params, n.Arch, n.Activation)
}

// Trace computes the network output and returns every layer activation.
func (n *Network) Trace(input []float64) ([][]float64, error) {
	return Trace(input, n.Params, n.Arch, n.Activation)
}

// Argmax returns the index of the largest value; ties go to the lowest index.
func Argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
