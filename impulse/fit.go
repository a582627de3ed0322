package impulse

import "math"

// Options contains fitting configuration parameters.
type Options struct {
	MaxIters    int        // Iteration cap for the simplex search
	Tolerance   float64    // Simplex convergence tolerance on the loss
	OnsetThresh float64    // Onset/offset threshold as a fraction of the curve's range
	RiseRate    float64    // Prior magnitude for sigmoid slopes (k)
	MinEffect   float64    // Minimum effect size in units of background SD (a)
	SlopeLimit  SlopeLimit // Sign constraint for single-sigmoid slopes
}

// DefaultOptions returns default fitting options. These are balanced
// settings for scaled traces over pseudotime spans of order 1.
func DefaultOptions() *Options {
	return &Options{
		MaxIters:    2000,
		Tolerance:   1e-8,
		OnsetThresh: 0.1,
		RiseRate:    10.0,
		MinEffect:   1.0,
		SlopeLimit:  SlopeAny,
	}
}

// FitTrace fits the three candidate families to one gene's trace and
// returns the selected fit with derived onset/offset times. The double
// sigmoid is attempted first; a non-converged or degenerate result
// falls back to the single sigmoid, then to the linear fit. sdBG is the
// background noise scalar: a fitted step smaller than
// MinEffect*sdBG is treated as indistinguishable from noise.
//
// FitTrace never panics and never returns an error: a trace that
// cannot support any fit yields a KindFailed record so the caller's
// batch can continue.
func FitTrace(times, values []float64, sdBG float64, opts *Options) Fit {
	if opts == nil {
		opts = DefaultOptions()
	}

	ts, vs := finitePoints(times, values)
	if len(ts) < 2 || !hasDistinctTimes(ts) {
		return Fit{Kind: KindFailed, TimeOn: math.NaN(), TimeOff: math.NaN()}
	}

	effect := opts.MinEffect * sdBG

	if len(ts) >= 7 {
		if fit, ok := fitImpulse(ts, vs, effect, opts); ok {
			deriveTiming(&fit, ts[0], ts[len(ts)-1], effect, opts)
			return fit
		}
	}
	if len(ts) >= 4 {
		if fit, ok := fitSigmoid(ts, vs, effect, opts); ok {
			deriveTiming(&fit, ts[0], ts[len(ts)-1], effect, opts)
			return fit
		}
	}

	fit, ok := fitLinear(ts, vs)
	if !ok {
		return Fit{Kind: KindFailed, TimeOn: math.NaN(), TimeOff: math.NaN()}
	}
	deriveTiming(&fit, ts[0], ts[len(ts)-1], effect, opts)
	return fit
}

// finitePoints drops non-finite observations, keeping time order.
func finitePoints(times, values []float64) ([]float64, []float64) {
	n := len(times)
	if len(values) < n {
		n = len(values)
	}
	ts := make([]float64, 0, n)
	vs := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(times[i]) || math.IsInf(times[i], 0) ||
			math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			continue
		}
		ts = append(ts, times[i])
		vs = append(vs, values[i])
	}
	return ts, vs
}

func hasDistinctTimes(ts []float64) bool {
	for i := 1; i < len(ts); i++ {
		if ts[i] != ts[0] {
			return true
		}
	}
	return false
}

// mseLoss returns the mean squared error of model against the trace.
// Non-finite model output is mapped to a large penalty so the simplex
// retreats from invalid parameter regions.
func mseLoss(model func(t float64) float64, ts, vs []float64) float64 {
	total := 0.0
	for i := range ts {
		y := model(ts[i])
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return math.MaxFloat64
		}
		d := y - vs[i]
		total += d * d
	}
	return total / float64(len(ts))
}

// fitLinear performs ordinary least squares. It fails only when all
// time points coincide.
func fitLinear(ts, vs []float64) (Fit, bool) {
	var sumX, sumY, sumXY, sumXX float64
	n := float64(len(ts))
	for i := range ts {
		sumX += ts[i]
		sumY += vs[i]
		sumXY += ts[i] * vs[i]
		sumXX += ts[i] * ts[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return Fit{Kind: KindFailed, TimeOn: math.NaN(), TimeOff: math.NaN()}, false
	}
	a := (n*sumXY - sumX*sumY) / denom
	b := (sumY - a*sumX) / n

	fit := Fit{Kind: KindLinear, Params: []float64{a, b}, Converged: true}
	fit.Loss = mseLoss(fit.Eval, ts, vs)
	return fit, true
}

// fitSigmoid fits the single-sigmoid family. ok is false when the
// search did not converge or the fitted step is below the noise
// effect threshold.
func fitSigmoid(ts, vs []float64, effect float64, opts *Options) (Fit, bool) {
	x0 := guessSigmoid(ts, vs, opts)

	objective := func(p []float64) float64 {
		q := []float64{limitSlope(p[0], opts.SlopeLimit), p[1], p[2], p[3]}
		return mseLoss(func(t float64) float64 { return evalSigmoid(q, t) }, ts, vs)
	}

	p, loss, iters, converged := nelderMead(objective, x0, opts.MaxIters, opts.Tolerance)
	p[0] = limitSlope(p[0], opts.SlopeLimit)

	fit := Fit{Kind: KindSigmoid, Params: p, Loss: loss, Iterations: iters, Converged: converged}
	if !converged {
		return fit, false
	}
	if math.Abs(p[2]-p[1]) < effect {
		// Step height indistinguishable from background noise.
		return fit, false
	}
	return fit, true
}

// fitImpulse fits the double-sigmoid family. ok is false when the
// search did not converge or the result degenerates: transition order
// inverted (t1 >= t2) or either plateau step below the noise effect
// threshold.
func fitImpulse(ts, vs []float64, effect float64, opts *Options) (Fit, bool) {
	x0 := guessImpulse(ts, vs, opts)

	objective := func(p []float64) float64 {
		return mseLoss(func(t float64) float64 { return evalImpulse(p, t) }, ts, vs)
	}

	p, loss, iters, converged := nelderMead(objective, x0, opts.MaxIters, opts.Tolerance)
	fit := Fit{Kind: KindImpulse, Params: p, Loss: loss, Iterations: iters, Converged: converged}
	if !converged {
		return fit, false
	}
	h0, h1, h2 := p[2], p[3], p[4]
	t1, t2 := p[5], p[6]
	if t1 >= t2 {
		return fit, false
	}
	if math.Abs(h1-h0) < effect || math.Abs(h1-h2) < effect {
		return fit, false
	}
	return fit, true
}

// limitSlope applies the configured sign constraint to a sigmoid slope.
func limitSlope(b float64, lim SlopeLimit) float64 {
	switch lim {
	case SlopeRise:
		return math.Abs(b)
	case SlopeFall:
		return -math.Abs(b)
	}
	return b
}

// guessSigmoid derives single-sigmoid starting parameters from the
// trace extrema, the half-range crossing time, and the slope prior.
func guessSigmoid(ts, vs []float64, opts *Options) []float64 {
	vmin, vmax := extrema(vs)
	rising := vs[len(vs)-1] >= vs[0]
	if opts.SlopeLimit == SlopeRise {
		rising = true
	} else if opts.SlopeLimit == SlopeFall {
		rising = false
	}

	half := (vmin + vmax) / 2
	var h0, h1, b1 float64
	var t1 float64
	if rising {
		h0, h1 = vmin, vmax
		b1 = opts.RiseRate
		t1 = firstRiseCrossing(ts, vs, half)
	} else {
		h0, h1 = vmax, vmin
		b1 = -opts.RiseRate
		t1 = lastFallCrossing(ts, vs, half)
	}
	if math.IsNaN(t1) {
		t1 = (ts[0] + ts[len(ts)-1]) / 2
	}
	return []float64{b1, h0, h1, t1}
}

// guessImpulse derives double-sigmoid starting parameters, estimating
// the two transition times from where the trace crosses half-range on
// the way up and on the way down.
func guessImpulse(ts, vs []float64, opts *Options) []float64 {
	vmin, vmax := extrema(vs)
	half := (vmin + vmax) / 2
	span := ts[len(ts)-1] - ts[0]

	t1 := firstRiseCrossing(ts, vs, half)
	if math.IsNaN(t1) {
		t1 = ts[0] + span/3
	}
	t2 := lastFallCrossing(ts, vs, half)
	if math.IsNaN(t2) || t2 <= t1 {
		t2 = ts[0] + 2*span/3
		if t2 <= t1 {
			t2 = t1 + span/4
		}
	}

	h0 := vs[0]
	h1 := vmax
	h2 := vs[len(vs)-1]
	return []float64{opts.RiseRate, opts.RiseRate, h0, h1, h2, t1, t2}
}

func extrema(vs []float64) (vmin, vmax float64) {
	vmin, vmax = vs[0], vs[0]
	for _, v := range vs {
		if v < vmin {
			vmin = v
		}
		if v > vmax {
			vmax = v
		}
	}
	return vmin, vmax
}

// firstRiseCrossing returns the interpolated time of the earliest
// upward crossing of level, or NaN when the trace never crosses upward.
func firstRiseCrossing(ts, vs []float64, level float64) float64 {
	for i := 1; i < len(vs); i++ {
		if vs[i-1] < level && vs[i] >= level {
			return interpCrossing(ts[i-1], ts[i], vs[i-1], vs[i], level)
		}
	}
	return math.NaN()
}

// lastFallCrossing returns the interpolated time of the latest downward
// crossing of level, or NaN when the trace never crosses downward.
func lastFallCrossing(ts, vs []float64, level float64) float64 {
	for i := len(vs) - 1; i >= 1; i-- {
		if vs[i-1] >= level && vs[i] < level {
			return interpCrossing(ts[i-1], ts[i], vs[i-1], vs[i], level)
		}
	}
	return math.NaN()
}

func interpCrossing(t0, t1, v0, v1, level float64) float64 {
	if v1 == v0 {
		return t0
	}
	return t0 + (t1-t0)*(level-v0)/(v1-v0)
}
