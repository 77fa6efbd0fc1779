package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeSkewedValues(t *testing.T) {
	s := Summarize([]float64{1000, 2000, 3000, 4000, 100000})

	assert.Equal(t, 5, s.Count)
	assert.Equal(t, 3000.0, s.Median)
	assert.Equal(t, 22000.0, s.Mean)
	assert.Equal(t, 100000.0, s.Percentiles.P95)
	assert.Equal(t, 1000.0, s.Min)
	assert.Equal(t, 100000.0, s.Max)
	assert.Equal(t, 110000.0, s.Total)
}

func TestSummarizeDoesNotModifyInput(t *testing.T) {
	in := []float64{5, 1, 3}
	Summarize(in)
	assert.Equal(t, []float64{5, 1, 3}, in)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		want   float64
	}{
		{"odd", []float64{1, 2, 3}, 2},
		{"even averages middle", []float64{1, 2, 3, 4}, 2.5},
		{"single", []float64{7}, 7},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Median(tt.sorted))
		})
	}
}

func TestMedianWithinRange(t *testing.T) {
	inputs := [][]float64{
		{1},
		{1, 1, 1, 1},
		{1, 9},
		{3, 8, 8, 12, 50, 51},
		{0.5, 1e9},
	}
	for _, in := range inputs {
		s := Summarize(in)
		assert.GreaterOrEqual(t, s.Median, s.Min)
		assert.LessOrEqual(t, s.Median, s.Max)
	}
}

func TestPercentileDirectIndex(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}

	assert.Equal(t, 20.0, Percentile(sorted, 0.25))
	assert.Equal(t, 30.0, Percentile(sorted, 0.50))
	assert.Equal(t, 40.0, Percentile(sorted, 0.75))
	assert.Equal(t, 40.0, Percentile(sorted, 0.95))
	assert.Equal(t, 40.0, Percentile(sorted, 1.0))
	assert.Equal(t, 0.0, Percentile(nil, 0.5))
}

func TestPercentilesMonotonic(t *testing.T) {
	s := Summarize([]float64{9, 4, 15, 2, 2, 30, 7, 100, 42})
	p := s.Percentiles
	assert.LessOrEqual(t, p.P25, p.P50)
	assert.LessOrEqual(t, p.P50, p.P75)
	assert.LessOrEqual(t, p.P75, p.P90)
	assert.LessOrEqual(t, p.P90, p.P95)
}

func TestStdDevPopulation(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.Equal(t, 2.0, StdDev(values, Mean(values)))

	s := Summarize([]float64{1000, 2000, 3000, 4000, 100000})
	assert.InDelta(t, 39012.818, s.StdDev, 0.001)
	assert.False(t, math.IsNaN(StdDev(nil, 0)))
}

func TestMeanMatchesSummary(t *testing.T) {
	values := []float64{4, 1, 7}
	assert.Equal(t, 4.0, Mean(values))
	assert.Equal(t, Mean(values), Summarize(values).Mean)
	assert.Zero(t, Mean(nil))
}

func TestMostCommon(t *testing.T) {
	got, n := MostCommon([]string{"gold", "cash", "cash", "gold", "property"})
	assert.Equal(t, "gold", got, "ties resolve to the first encountered")
	assert.Equal(t, 2, n)

	got, n = MostCommon([]string{"cash", "gold", "gold"})
	assert.Equal(t, "gold", got)
	assert.Equal(t, 2, n)

	got, n = MostCommon[string](nil)
	assert.Equal(t, "", got)
	assert.Zero(t, n)
}

func TestTally(t *testing.T) {
	counts := Tally([]int{3, 1, 1, 2, 3, 1})
	assert.Equal(t, []Count[int]{{1, 3}, {3, 2}, {2, 1}}, counts)
}
