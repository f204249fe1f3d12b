package montecarlo

import (
	"math"
	"math/rand/v2"
)

// UniformSource yields uniform samples in [0, 1).
// *rand.Rand satisfies it, as does any scripted sequence used in tests.
type UniformSource interface {
	Float64() float64
}

// NewSource returns a seeded PCG generator. The same seed always produces the
// same sequence.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Normal draws standard-normal deviates with the Box-Muller transform.
type Normal struct {
	src UniformSource
}

// NewNormal wraps a uniform source.
func NewNormal(src UniformSource) *Normal {
	return &Normal{src: src}
}

// Next returns one deviate with mean 0 and standard deviation 1.
// Uniform samples equal to 0 are re-drawn so the logarithm stays finite.
func (n *Normal) Next() float64 {
	u := n.nonZero()
	v := n.nonZero()
	return math.Sqrt(-2*math.Log(u)) * math.Cos(2*math.Pi*v)
}

func (n *Normal) nonZero() float64 {
	for {
		if u := n.src.Float64(); u != 0 {
			return u
		}
	}
}

// trialSeed derives an independent stream seed for trial i (splitmix64).
// Seeds depend only on the run seed and the trial index, never on which
// worker executes the trial.
func trialSeed(runSeed uint64, i int) uint64 {
	z := runSeed + uint64(i+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
