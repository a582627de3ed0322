// Package expression assembles gene-by-window expression tables from a
// cell-level expression lookup, scales each gene trace by its own
// maximum, and estimates background noise from a scaled background
// table. The cell-level aggregation itself is injected: callers supply
// a reducer collapsing the log-space values of a window's cells into a
// single log-space aggregate.
package expression

import (
	"fmt"
	"math"

	"github.com/cascade-xyz/go-cascade/window"
)

// Table is a gene-by-window matrix of aggregate expression values.
// Rows are genes, columns are windows ordered by summary pseudotime.
type Table struct {
	Genes  []string    `json:"genes"`
	Times  []float64   `json:"times"`
	Values [][]float64 `json:"values"`

	index map[string]int
}

// NewTable creates an empty table with one row per gene and one column
// per time point.
func NewTable(genes []string, times []float64) *Table {
	values := make([][]float64, len(genes))
	for i := range values {
		values[i] = make([]float64, len(times))
	}
	t := &Table{Genes: genes, Times: times, Values: values}
	t.buildIndex()
	return t
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Genes))
	for i, g := range t.Genes {
		t.index[g] = i
	}
}

// Row returns the expression trace for a gene, or nil when the gene is
// not in the table.
func (t *Table) Row(gene string) []float64 {
	if t.index == nil {
		t.buildIndex()
	}
	i, ok := t.index[gene]
	if !ok {
		return nil
	}
	return t.Values[i]
}

// Aggregator collapses the log-space expression values of one window's
// cells into a single log-space aggregate. The canonical reducer for
// depoissonized counts is LogMeanExpm1.
type Aggregator func(values []float64) float64

// LogMeanExpm1 returns log1p(mean(expm1(values))): the mean of the
// underlying non-log values, re-expressed in log space.
func LogMeanExpm1(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += math.Expm1(v)
	}
	return math.Log1p(sum / float64(len(values)))
}

// Aggregate computes one aggregate expression value per (gene, window)
// pair. Rows are independent of each other; only the supplied lookup
// and reducer are shared, and both are read-only.
func Aggregate(windows []window.Window, genes []string, lookup func(gene, cell string) float64, agg Aggregator) (*Table, error) {
	if agg == nil {
		agg = LogMeanExpm1
	}
	for i, w := range windows {
		if len(w.Cells) == 0 {
			return nil, fmt.Errorf("%w: window %d has no cells", ErrEmptyWindow, i)
		}
	}

	times := make([]float64, len(windows))
	for i, w := range windows {
		times[i] = w.Time
	}

	table := NewTable(genes, times)
	buf := make([]float64, 0, maxWindowSize(windows))
	for gi, gene := range genes {
		for wi, w := range windows {
			buf = buf[:0]
			for _, cell := range w.Cells {
				buf = append(buf, lookup(gene, cell))
			}
			table.Values[gi][wi] = agg(buf)
		}
	}
	return table, nil
}

func maxWindowSize(windows []window.Window) int {
	max := 0
	for _, w := range windows {
		if len(w.Cells) > max {
			max = len(w.Cells)
		}
	}
	return max
}

// Scale divides each gene row by that row's maximum finite positive
// value, so every defined scaled row has maximum exactly 1. Rows with
// no finite positive value carry no scale information and become
// all-NaN. The receiver is not modified.
func (t *Table) Scale() *Table {
	scaled := NewTable(t.Genes, t.Times)
	for gi, row := range t.Values {
		max := math.Inf(-1)
		for _, v := range row {
			if !math.IsNaN(v) && !math.IsInf(v, 0) && v > max {
				max = v
			}
		}
		if math.IsInf(max, -1) || max <= 0 {
			for wi := range row {
				scaled.Values[gi][wi] = math.NaN()
			}
			continue
		}
		for wi, v := range row {
			scaled.Values[gi][wi] = v / max
		}
	}
	return scaled
}
