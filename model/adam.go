package model

import "math"

// Adam implements the Adam update rule with decoupled weight decay, the
// optimizer the sentiment heads are trained with.
type Adam struct {
	LR          float64
	Beta1       float64
	Beta2       float64
	Epsilon     float64
	WeightDecay float64

	m []float64
	v []float64
	t int
}

// NewAdam creates an optimizer for n parameters.
func NewAdam(n int, lr, weightDecay float64) *Adam {
	return &Adam{
		LR:          lr,
		Beta1:       0.9,
		Beta2:       0.999,
		Epsilon:     1e-8,
		WeightDecay: weightDecay,
		m:           make([]float64, n),
		v:           make([]float64, n),
	}
}

// Step applies one update to params in place given the gradient.
func (a *Adam) Step(params, grad []float64) {
	a.t++
	bc1 := 1 - math.Pow(a.Beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.Beta2, float64(a.t))
	for i := range params {
		g := grad[i] + a.WeightDecay*params[i]
		a.m[i] = a.Beta1*a.m[i] + (1-a.Beta1)*g
		a.v[i] = a.Beta2*a.v[i] + (1-a.Beta2)*g*g
		mHat := a.m[i] / bc1
		vHat := a.v[i] / bc2
		params[i] -= a.LR * mHat / (math.Sqrt(vHat) + a.Epsilon)
	}
}

// AdamState is a copyable snapshot of optimizer state.
type AdamState struct {
	M []float64 `json:"m"`
	V []float64 `json:"v"`
	T int       `json:"t"`
}

// State snapshots the optimizer.
func (a *Adam) State() AdamState {
	return AdamState{M: cloneFloats(a.m), V: cloneFloats(a.v), T: a.t}
}

// Restore resets the optimizer to a snapshot.
func (a *Adam) Restore(s AdamState) {
	a.m = cloneFloats(s.M)
	a.v = cloneFloats(s.V)
	a.t = s.T
}

func cloneFloats(src []float64) []float64 {
	out := make([]float64, len(src))
	copy(out, src)
	return out
}
