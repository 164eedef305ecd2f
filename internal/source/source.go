// Package source provides ordered value streams (random draws, token ids, fixed sequences)
// for sampled generators.
package source

import (
	"io"
	"math/rand/v2"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/born-ml/tensorexpr/internal/tensor"
)

// Source produces an ordered stream of values.
type Source[T tensor.Element] interface {
	// Fill writes the next len(dst) values of the stream into dst.
	Fill(dst []T) error
}

// newRand returns a deterministic PCG source for seed.
func newRand(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// Normal draws from a normal distribution.
type Normal[T constraints.Float] struct {
	mu   sync.Mutex
	dist distuv.Normal
}

// NewNormal returns a seeded normal stream with the given mean and standard deviation.
func NewNormal[T constraints.Float](mean, stddev float64, seed uint64) (*Normal[T], error) {
	if !(stddev > 0) {
		return nil, tensor.ArgumentErrorf("normal", "standard deviation must be positive, got %g", stddev)
	}
	return &Normal[T]{dist: distuv.Normal{Mu: mean, Sigma: stddev, Src: newRand(seed)}}, nil
}

// Fill draws len(dst) values.
func (n *Normal[T]) Fill(dst []T) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range dst {
		dst[i] = T(n.dist.Rand())
	}
	return nil
}

// Uniform draws from a uniform distribution over [min, max).
type Uniform[T constraints.Float] struct {
	mu   sync.Mutex
	dist distuv.Uniform
}

// NewUniform returns a seeded uniform stream over [lo, hi).
func NewUniform[T constraints.Float](lo, hi float64, seed uint64) (*Uniform[T], error) {
	if !(lo < hi) {
		return nil, tensor.ArgumentErrorf("uniform", "empty interval [%g, %g)", lo, hi)
	}
	return &Uniform[T]{dist: distuv.Uniform{Min: lo, Max: hi, Src: newRand(seed)}}, nil
}

// Fill draws len(dst) values.
func (u *Uniform[T]) Fill(dst []T) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := range dst {
		dst[i] = T(u.dist.Rand())
	}
	return nil
}

// Sequence replays fixed values, optionally cycling through them.
type Sequence[T tensor.Element] struct {
	mu     sync.Mutex
	values []T
	pos    int
	cycle  bool
}

// NewSequence returns a stream over a copy of values.
func NewSequence[T tensor.Element](values []T, cycle bool) (*Sequence[T], error) {
	if cycle && len(values) == 0 {
		return nil, tensor.ArgumentErrorf("sequence", "cannot cycle over no values")
	}
	return &Sequence[T]{values: append([]T(nil), values...), cycle: cycle}, nil
}

// Fill copies the next len(dst) values. A non-cycling sequence that runs out returns an
// error wrapping io.EOF; dst is then left partially written.
func (s *Sequence[T]) Fill(dst []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range dst {
		if s.pos == len(s.values) {
			if !s.cycle {
				return errors.Wrapf(io.EOF, "sequence: needed %d values, only %d available", len(dst), i)
			}
			s.pos = 0
		}
		dst[i] = s.values[s.pos]
		s.pos++
	}
	return nil
}

// Reset rewinds the sequence.
func (s *Sequence[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = 0
}
