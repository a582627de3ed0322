// Package window partitions a cell population into overlapping
// pseudotime-ordered windows of roughly equal cell count. Each emitted
// window is the union of a fixed number of consecutive base buckets, so
// adjacent windows share cells and the resulting expression traces are
// smoothed along the pseudotime axis.
package window

import (
	"fmt"
	"math"
	"sort"
)

// Stat selects the summary statistic used to label a window with a
// single pseudotime coordinate.
type Stat int

const (
	StatMean Stat = iota
	StatMin
	StatMax
)

// String returns the statistic name.
func (s Stat) String() string {
	switch s {
	case StatMean:
		return "mean"
	case StatMin:
		return "min"
	case StatMax:
		return "max"
	}
	return "unknown"
}

// ParseStat converts a statistic name to a Stat value.
func ParseStat(name string) (Stat, error) {
	switch name {
	case "mean", "":
		return StatMean, nil
	case "min":
		return StatMin, nil
	case "max":
		return StatMax, nil
	}
	return 0, fmt.Errorf("%w: unknown summary statistic %q", ErrInvalidParameter, name)
}

// Options contains windowing configuration parameters.
type Options struct {
	CellsPerWindow int  // Target number of cells per base bucket
	MovingWindow   int  // Number of consecutive base buckets per emitted window
	Stat           Stat // Summary pseudotime statistic
}

// DefaultOptions returns default windowing options.
func DefaultOptions() *Options {
	return &Options{
		CellsPerWindow: 50,
		MovingWindow:   3,
		Stat:           StatMean,
	}
}

// Window is an ordered bucket of cell IDs labeled with a summary
// pseudotime. Time holds the unrounded summary value; display rounding
// is left to DisplayTime.
type Window struct {
	Cells   []string `json:"cells"`
	Time    float64  `json:"time"`
	MinTime float64  `json:"minTime"`
	MaxTime float64  `json:"maxTime"`
}

// Width returns the pseudotime span covered by the window's cells.
func (w *Window) Width() float64 {
	return w.MaxTime - w.MinTime
}

// DisplayTime returns the summary pseudotime rounded to 3 decimal
// digits. Internal computation always uses the unrounded Time.
func (w *Window) DisplayTime() float64 {
	return math.Round(w.Time*1000) / 1000
}

// Build sorts cells by pseudotime and emits sliding windows over
// near-equal base buckets. The number of emitted windows is
// nBase - MovingWindow + 1 where nBase = round(n / CellsPerWindow),
// clamped to at least 1.
func Build(cells []string, pseudotime func(id string) float64, opts *Options) ([]Window, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.CellsPerWindow <= 0 {
		return nil, fmt.Errorf("%w: cells per window must be positive, got %d", ErrInvalidParameter, opts.CellsPerWindow)
	}
	if opts.MovingWindow < 1 {
		return nil, fmt.Errorf("%w: moving window must be at least 1, got %d", ErrInvalidParameter, opts.MovingWindow)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: no cells", ErrInvalidParameter)
	}

	n := len(cells)
	sorted := make([]string, n)
	copy(sorted, cells)
	// Stable sort preserves input order for pseudotime ties.
	sort.SliceStable(sorted, func(i, j int) bool {
		return pseudotime(sorted[i]) < pseudotime(sorted[j])
	})

	nBase := int(math.Round(float64(n) / float64(opts.CellsPerWindow)))
	if nBase < 1 {
		nBase = 1
	}

	emitted := nBase - opts.MovingWindow + 1
	if emitted < 1 {
		return nil, fmt.Errorf("%w: moving window %d exceeds %d base buckets", ErrInvalidParameter, opts.MovingWindow, nBase)
	}

	// Cumulative rounding keeps bucket sizes within one cell of each
	// other and assigns every cell to exactly one bucket.
	bounds := make([]int, nBase+1)
	for i := 0; i <= nBase; i++ {
		bounds[i] = int(math.Round(float64(i) * float64(n) / float64(nBase)))
	}

	windows := make([]Window, 0, emitted)
	for i := 0; i < emitted; i++ {
		members := sorted[bounds[i]:bounds[i+opts.MovingWindow]]
		w := Window{Cells: append([]string(nil), members...)}
		w.Time, w.MinTime, w.MaxTime = summarize(members, pseudotime, opts.Stat)
		windows = append(windows, w)
	}
	return windows, nil
}

func summarize(cells []string, pseudotime func(id string) float64, stat Stat) (summary, min, max float64) {
	min = math.Inf(1)
	max = math.Inf(-1)
	sum := 0.0
	for _, id := range cells {
		t := pseudotime(id)
		sum += t
		if t < min {
			min = t
		}
		if t > max {
			max = t
		}
	}
	switch stat {
	case StatMin:
		summary = min
	case StatMax:
		summary = max
	default:
		summary = sum / float64(len(cells))
	}
	return summary, min, max
}
