package expression

import (
	"errors"
	"math"
	"testing"

	"github.com/cascade-xyz/go-cascade/window"
)

func testWindows() []window.Window {
	return []window.Window{
		{Cells: []string{"c0", "c1"}, Time: 0.1},
		{Cells: []string{"c1", "c2"}, Time: 0.5},
		{Cells: []string{"c2", "c3"}, Time: 0.9},
	}
}

func TestLogMeanExpm1(t *testing.T) {
	// All-equal inputs are a fixed point of the reducer.
	v := LogMeanExpm1([]float64{2.0, 2.0, 2.0})
	if math.Abs(v-2.0) > 1e-12 {
		t.Errorf("Expected 2.0 for constant input, got %f", v)
	}

	// log1p(mean(expm1([0, log(3)]))) = log1p((0+2)/2) = log(2)
	v = LogMeanExpm1([]float64{0.0, math.Log(3)})
	if math.Abs(v-math.Log(2)) > 1e-12 {
		t.Errorf("Expected log(2), got %f", v)
	}

	if !math.IsNaN(LogMeanExpm1(nil)) {
		t.Errorf("Expected NaN for empty input")
	}
}

func TestAggregate(t *testing.T) {
	expr := map[string]map[string]float64{
		"geneA": {"c0": 1.0, "c1": 2.0, "c2": 3.0, "c3": 4.0},
		"geneB": {"c0": 0.0, "c1": 0.0, "c2": 0.0, "c3": 0.0},
	}
	lookup := func(gene, cell string) float64 { return expr[gene][cell] }

	table, err := Aggregate(testWindows(), []string{"geneA", "geneB"}, lookup, nil)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(table.Genes) != 2 || len(table.Times) != 3 {
		t.Fatalf("Expected 2x3 table, got %dx%d", len(table.Genes), len(table.Times))
	}

	rowA := table.Row("geneA")
	want := LogMeanExpm1([]float64{1.0, 2.0})
	if math.Abs(rowA[0]-want) > 1e-12 {
		t.Errorf("Expected %f for geneA window 0, got %f", want, rowA[0])
	}

	// Zero expression aggregates to zero.
	for wi, v := range table.Row("geneB") {
		if v != 0 {
			t.Errorf("Window %d: expected 0 for silent gene, got %f", wi, v)
		}
	}

	if table.Row("missing") != nil {
		t.Errorf("Expected nil row for unknown gene")
	}
}

func TestAggregateEmptyWindow(t *testing.T) {
	windows := []window.Window{{Cells: nil, Time: 0.1}}
	lookup := func(gene, cell string) float64 { return 0 }

	if _, err := Aggregate(windows, []string{"geneA"}, lookup, nil); !errors.Is(err, ErrEmptyWindow) {
		t.Errorf("Expected ErrEmptyWindow, got %v", err)
	}
}

func TestScale(t *testing.T) {
	table := NewTable([]string{"a", "b", "c"}, []float64{0, 1, 2})
	table.Values[0] = []float64{1, 4, 2}
	table.Values[1] = []float64{0, 0, 0}
	table.Values[2] = []float64{0.5, math.NaN(), 2.0}

	scaled := table.Scale()

	// Defined rows scale to max 1.
	rowA := scaled.Row("a")
	wantA := []float64{0.25, 1.0, 0.5}
	for i := range wantA {
		if math.Abs(rowA[i]-wantA[i]) > 1e-12 {
			t.Errorf("Row a[%d]: expected %f, got %f", i, wantA[i], rowA[i])
		}
	}

	// All-nonpositive row is undefined.
	for i, v := range scaled.Row("b") {
		if !math.IsNaN(v) {
			t.Errorf("Row b[%d]: expected NaN, got %f", i, v)
		}
	}

	// NaN entries survive scaling, max ignores them.
	rowC := scaled.Row("c")
	if math.Abs(rowC[0]-0.25) > 1e-12 || !math.IsNaN(rowC[1]) || math.Abs(rowC[2]-1.0) > 1e-12 {
		t.Errorf("Row c: unexpected values %v", rowC)
	}

	// Original table untouched.
	if table.Values[0][1] != 4 {
		t.Errorf("Scale mutated the source table")
	}
}

func TestBackgroundSD(t *testing.T) {
	table := NewTable([]string{"a", "b"}, []float64{0, 1})
	table.Values[0] = []float64{0.2, 0.4}
	table.Values[1] = []float64{0.6, math.NaN()}

	sd, err := BackgroundSD(table)
	if err != nil {
		t.Fatalf("BackgroundSD failed: %v", err)
	}
	// Sample SD of {0.2, 0.4, 0.6} = 0.2
	if math.Abs(sd-0.2) > 1e-12 {
		t.Errorf("Expected 0.2, got %f", sd)
	}

	// Order invariance.
	table2 := NewTable([]string{"b", "a"}, []float64{0, 1})
	table2.Values[0] = []float64{math.NaN(), 0.6}
	table2.Values[1] = []float64{0.4, 0.2}
	sd2, err := BackgroundSD(table2)
	if err != nil {
		t.Fatalf("BackgroundSD failed: %v", err)
	}
	if math.Abs(sd-sd2) > 1e-12 {
		t.Errorf("SD not order invariant: %f vs %f", sd, sd2)
	}
}

func TestBackgroundSDInsufficient(t *testing.T) {
	table := NewTable([]string{"a"}, []float64{0, 1})
	table.Values[0] = []float64{0.5, math.NaN()}

	if _, err := BackgroundSD(table); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
}
