// Package cascade assembles the full analysis: windowing a cell
// population along pseudotime, aggregating target and background gene
// expression per window, estimating background noise, fitting an
// impulse model per gene, and bundling everything into one immutable
// result. Per-gene fits share no mutable state and run on a bounded
// pool of workers.
package cascade

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cascade-xyz/go-cascade/expression"
	"github.com/cascade-xyz/go-cascade/impulse"
	"github.com/cascade-xyz/go-cascade/window"
)

// Inputs carries the externally owned data a run consumes: cell IDs,
// lookup capabilities for pseudotime and expression, and the gene
// lists. Background should be a caller-selected sample disjoint from
// the target genes.
type Inputs struct {
	Cells      []string
	Pseudotime func(cell, axis string) float64
	Expression func(gene, cell string) float64
	Genes      []string
	Background []string

	// Aggregator collapses a window's log-space expression values into
	// one aggregate. Nil selects expression.LogMeanExpm1.
	Aggregator expression.Aggregator
}

// Metadata describes one run.
type Metadata struct {
	RunID       string    `json:"runId"`
	Timestamp   time.Time `json:"timestamp"`
	Axis        string    `json:"axis"`
	Status      string    `json:"status"`
	ComputeTime float64   `json:"computeTime"` // seconds
	Warnings    []string  `json:"warnings,omitempty"`
}

// WindowStat summarizes one emitted window's pseudotime distribution.
// Time is the configured summary statistic; Mean, Min, and Max are
// always reported regardless of which statistic labels the window.
type WindowStat struct {
	Time  float64 `json:"time"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Width float64 `json:"width"`
	Cells int     `json:"cells"`
}

// Timing is one row of the onset/offset table consumed by the heatmap
// renderer. TimeOn and TimeOff carry the impulse package's sentinel
// semantics.
type Timing struct {
	Gene    string       `json:"gene"`
	Kind    impulse.Kind `json:"kind"`
	TimeOn  float64      `json:"timeOn"`
	TimeOff float64      `json:"timeOff"`
}

// Cascade is the immutable output bundle of one run.
type Cascade struct {
	Metadata Metadata        `json:"metadata"`
	Windows  []window.Window `json:"windows"`
	Stats    []WindowStat    `json:"stats"`

	Raw              *expression.Table `json:"raw"`
	Scaled           *expression.Table `json:"scaled"`
	RawBackground    *expression.Table `json:"rawBackground"`
	ScaledBackground *expression.Table `json:"scaledBackground"`

	NoiseSD float64                `json:"noiseSd"`
	Fits    map[string]impulse.Fit `json:"fits"`
}

// Run executes one cascade over the supplied inputs. Stage errors
// (invalid parameters, empty windows, insufficient background data)
// are fatal and return no partial bundle; individual gene fit failures
// are recorded as failed fits and noted in Metadata.Warnings.
func Run(in Inputs, cfg *Config) (*Cascade, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg.applyDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	wopts, err := cfg.windowOptions()
	if err != nil {
		return nil, err
	}
	pt := func(id string) float64 { return in.Pseudotime(id, cfg.Axis) }
	windows, err := window.Build(in.Cells, pt, wopts)
	if err != nil {
		return nil, err
	}

	raw, err := expression.Aggregate(windows, in.Genes, in.Expression, in.Aggregator)
	if err != nil {
		return nil, err
	}
	rawBG, err := expression.Aggregate(windows, in.Background, in.Expression, in.Aggregator)
	if err != nil {
		return nil, err
	}

	scaled := raw.Scale()
	scaledBG := rawBG.Scale()

	sdBG, err := expression.BackgroundSD(scaledBG)
	if err != nil {
		return nil, err
	}

	fopts, err := cfg.fitOptions()
	if err != nil {
		return nil, err
	}
	fits := fitAll(scaled, sdBG, fopts, cfg.Workers)

	meta := Metadata{
		RunID:     uuid.NewString(),
		Timestamp: start,
		Axis:      cfg.Axis,
		Status:    "success",
	}
	result := make(map[string]impulse.Fit, len(in.Genes))
	for i, gene := range in.Genes {
		result[gene] = fits[i]
		if fits[i].Kind == impulse.KindFailed {
			meta.Warnings = append(meta.Warnings, "fit failed for gene "+gene)
		}
	}

	stats := make([]WindowStat, len(windows))
	for i, w := range windows {
		mean := 0.0
		for _, id := range w.Cells {
			mean += pt(id)
		}
		mean /= float64(len(w.Cells))
		stats[i] = WindowStat{
			Time:  w.Time,
			Mean:  mean,
			Min:   w.MinTime,
			Max:   w.MaxTime,
			Width: w.Width(),
			Cells: len(w.Cells),
		}
	}

	meta.ComputeTime = time.Since(start).Seconds()
	return &Cascade{
		Metadata:         meta,
		Windows:          windows,
		Stats:            stats,
		Raw:              raw,
		Scaled:           scaled,
		RawBackground:    rawBG,
		ScaledBackground: scaledBG,
		NoiseSD:          sdBG,
		Fits:             result,
	}, nil
}

// fitAll runs per-gene fits on a bounded worker pool. Each worker
// reads the shared scaled table and writes to its own slot of the
// result slice, so no synchronization beyond the join is needed.
func fitAll(scaled *expression.Table, sdBG float64, opts *impulse.Options, workers int) []impulse.Fit {
	n := len(scaled.Genes)
	fits := make([]impulse.Fit, n)
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fits[i] = impulse.FitTrace(scaled.Times, scaled.Values[i], sdBG, opts)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return fits
}

// Timing returns the onset/offset table ordered by TimeOn then
// TimeOff, the order the heatmap renderer consumes. Undefined (NaN)
// times sort last; +Inf offsets sort after all finite offsets.
func (c *Cascade) Timing() []Timing {
	rows := make([]Timing, 0, len(c.Fits))
	for _, gene := range c.Raw.Genes {
		fit := c.Fits[gene]
		rows = append(rows, Timing{Gene: gene, Kind: fit.Kind, TimeOn: fit.TimeOn, TimeOff: fit.TimeOff})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TimeOn != rows[j].TimeOn && !(math.IsNaN(rows[i].TimeOn) && math.IsNaN(rows[j].TimeOn)) {
			return timeLess(rows[i].TimeOn, rows[j].TimeOn)
		}
		return timeLess(rows[i].TimeOff, rows[j].TimeOff)
	})
	return rows
}

// timeLess orders timestamps with NaN after everything else.
func timeLess(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	}
	return a < b
}
