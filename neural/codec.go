package neural

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Chromosome is the flat gene sequence the genetic operators work on.
// Every weight matrix comes first (layer order, row-major), then every bias.
type Chromosome []float64

// Clone returns an independent copy.
func (c Chromosome) Clone() Chromosome {
	return append(Chromosome(nil), c...)
}

// Flatten encodes a parameter set as a chromosome.
func Flatten(p *ParameterSet, arch Architecture) (Chromosome, error) {
	if err := p.Conforms(arch); err != nil {
		return nil, err
	}

	c := make(Chromosome, 0, arch.ChromosomeLen())

	// Weights, row-major
	for _, l := range p.Layers {
		rows, _ := l.W.Dims()
		for i := 0; i < rows; i++ {
			c = append(c, l.W.RawRowView(i)...)
		}
	}

	// Biases
	for _, l := range p.Layers {
		c = append(c, l.B.RawRowView(0)...)
	}

	return c, nil
}

// Reshape decodes a chromosome into a parameter set. The chromosome must hold
// exactly ChromosomeLen genes; nothing is truncated or padded.
func Reshape(c Chromosome, arch Architecture) (*ParameterSet, error) {
	if err := arch.Validate(); err != nil {
		return nil, err
	}
	if want := arch.ChromosomeLen(); len(c) != want {
		return nil, fmt.Errorf("%w: got %d genes, architecture %v needs %d", ErrChromosomeLength, len(c), []int(arch), want)
	}

	p := &ParameterSet{Layers: make([]Layer, arch.Layers())}
	first := 0

	// Weights
	for i := range p.Layers {
		in, out := arch[i], arch[i+1]
		last := first + in*out
		p.Layers[i].W = mat.NewDense(in, out, append([]float64(nil), c[first:last]...))
		first = last
	}

	// Biases
	for i := range p.Layers {
		out := arch[i+1]
		last := first + out
		p.Layers[i].B = mat.NewDense(1, out, append([]float64(nil), c[first:last]...))
		first = last
	}

	return p, nil
}
