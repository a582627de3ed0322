package impulse

import "math"

// timingSamples is the resolution of the dense curve scan used to
// locate threshold crossings.
const timingSamples = 512

// deriveTiming fills TimeOn and TimeOff by scanning the fitted curve
// over [t0, tf]. The threshold sits OnsetThresh of the way up the
// curve's own range. A curve whose total range is below the noise
// effect size has no detectable events: both times stay undefined.
func deriveTiming(fit *Fit, t0, tf, effect float64, opts *Options) {
	fit.TimeOn = math.NaN()
	fit.TimeOff = math.NaN()
	if tf <= t0 {
		return
	}

	ts := make([]float64, timingSamples)
	ys := make([]float64, timingSamples)
	step := (tf - t0) / float64(timingSamples-1)
	for i := range ts {
		ts[i] = t0 + float64(i)*step
		ys[i] = fit.Eval(ts[i])
	}

	ymin, ymax := extrema(ys)
	minRange := effect
	if minRange < 1e-8 {
		minRange = 1e-8
	}
	if ymax-ymin < minRange {
		return
	}

	thresh := ymin + opts.OnsetThresh*(ymax-ymin)

	fit.TimeOn = firstRiseCrossing(ts, ys, thresh)
	fall := lastFallCrossing(ts, ys, thresh)
	switch {
	case !math.IsNaN(fall):
		fit.TimeOff = fall
	case ys[len(ys)-1] >= thresh:
		// Still above threshold at the end of the axis: the gene
		// turned on and never turned off.
		fit.TimeOff = math.Inf(1)
	}
}
