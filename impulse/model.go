// Package impulse fits parametric activation curves to windowed gene
// expression traces and derives onset/offset times against a
// background-noise threshold. Three model families are supported, in
// increasing complexity: a linear fallback, a single sigmoid (one
// transition), and a double-sigmoid impulse (rise to a plateau followed
// by a fall). The set is deliberately closed: model selection walks
// from the impulse down to the linear fit, so no open-ended model
// registry exists.
package impulse

import "math"

// Kind tags the model family selected for a gene.
type Kind int

const (
	// KindFailed marks a gene whose trace could not be fit at all.
	// A failed fit is recorded, never raised: one bad gene must not
	// abort the batch.
	KindFailed Kind = iota
	KindLinear
	KindSigmoid
	KindImpulse
)

// String returns the family name.
func (k Kind) String() string {
	switch k {
	case KindLinear:
		return "linear"
	case KindSigmoid:
		return "sigmoid"
	case KindImpulse:
		return "impulse"
	}
	return "failed"
}

// SlopeLimit constrains the sign of the single-sigmoid slope.
type SlopeLimit int

const (
	SlopeAny  SlopeLimit = iota // unconstrained sign
	SlopeRise                   // rise-only: b1 forced positive
	SlopeFall                   // fall-only: b1 forced negative
)

// Fit is the result of fitting one gene's trace.
//
// Params layout depends on Kind:
//
//	KindLinear:  [a, b]                        y = a*t + b
//	KindSigmoid: [b1, h0, h1, t1]
//	KindImpulse: [b1, b2, h0, h1, h2, t1, t2]
//
// TimeOn is NaN when the curve never rises above threshold. TimeOff is
// +Inf when the curve turns on but never falls back below threshold,
// and NaN when there is no falling edge and the curve never turned on.
// The three states "never on", "on but never off", and "off at time t"
// are therefore all distinguishable.
type Fit struct {
	Kind       Kind      `json:"kind"`
	Params     []float64 `json:"params"`
	Loss       float64   `json:"loss"`
	Iterations int       `json:"iterations"`
	Converged  bool      `json:"converged"`
	TimeOn     float64   `json:"timeOn"`
	TimeOff    float64   `json:"timeOff"`
}

// Eval evaluates the fitted curve at time t. Failed fits evaluate to
// NaN everywhere.
func (f *Fit) Eval(t float64) float64 {
	switch f.Kind {
	case KindLinear:
		return f.Params[0]*t + f.Params[1]
	case KindSigmoid:
		return evalSigmoid(f.Params, t)
	case KindImpulse:
		return evalImpulse(f.Params, t)
	}
	return math.NaN()
}

// sigmoid is the logistic function 1 / (1 + exp(-x)).
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// evalSigmoid computes y = h0 + (h1-h0) * sigmoid(b1*(t-t1)).
func evalSigmoid(p []float64, t float64) float64 {
	b1, h0, h1, t1 := p[0], p[1], p[2], p[3]
	return h0 + (h1-h0)*sigmoid(b1*(t-t1))
}

// evalImpulse computes the double-sigmoid impulse
//
//	y = h0 + (h1-h0)*sigmoid(b1*(t-t1)) * (h2 + (h1-h2)*sigmoid(-b2*(t-t2))) / h1
//
// a rising sigmoid toward plateau h1 multiplied by a falling sigmoid
// toward final level h2, sharing the plateau.
func evalImpulse(p []float64, t float64) float64 {
	b1, b2, h0, h1, h2, t1, t2 := p[0], p[1], p[2], p[3], p[4], p[5], p[6]
	if h1 == 0 {
		// Plateau collapsed onto zero: the normalized product is
		// undefined, force a poor fit instead of Inf.
		return math.NaN()
	}
	rise := sigmoid(b1 * (t - t1))
	fall := sigmoid(-b2 * (t - t2))
	return h0 + (h1-h0)*rise*(h2+(h1-h2)*fall)/h1
}
