package analysis

import (
	"sort"

	"github.com/montanaflynn/stats"
)

// ValueCount is one entry of a column's top values.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// NumericStats summarizes the finite numbers of a numeric column.
type NumericStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stdDev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ColumnProfile describes one column.
type ColumnProfile struct {
	Name              string        `json:"name"`
	Type              ColumnType    `json:"type"`
	MissingCount      int           `json:"missingCount"`
	MissingPercentage float64       `json:"missingPercentage"`
	ValidCount        int           `json:"validCount"`
	UniqueCount       int           `json:"uniqueCount"`
	TopValues         []ValueCount  `json:"topValues"`
	Stats             *NumericStats `json:"stats,omitempty"`
}

// ProfileColumn computes the profile of one column over every row.
func ProfileColumn(ds *Dataset, name string, p Policy) ColumnProfile {
	p = p.withDefaults()
	cells := ds.Column(name)
	present := make([]Value, 0, len(cells))
	for _, v := range cells {
		if !v.IsMissing() {
			present = append(present, v)
		}
	}

	prof := ColumnProfile{
		Name:         name,
		MissingCount: len(cells) - len(present),
		ValidCount:   len(present),
	}
	if len(cells) > 0 {
		prof.MissingPercentage = float64(prof.MissingCount) / float64(len(cells)) * 100
	}
	prof.Type = ClassifyValues(present, p)
	prof.UniqueCount, prof.TopValues = tally(present, p.TopValuesLimit)
	if prof.Type == TypeNumber {
		prof.Stats = numericStats(present)
	}
	return prof
}

// tally counts identity forms. Ties keep first-encountered order.
func tally(values []Value, limit int) (int, []ValueCount) {
	counts := make(map[string]int, len(values))
	order := make([]string, 0)
	for _, v := range values {
		k := v.String()
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}
	top := make([]ValueCount, len(order))
	for i, k := range order {
		top[i] = ValueCount{Value: k, Count: counts[k]}
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Count > top[j].Count })
	if len(top) > limit {
		top = top[:limit]
	}
	return len(order), top
}

func finiteNumbers(values []Value) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := v.Finite(); ok {
			out = append(out, f)
		}
	}
	return out
}

// numericStats returns nil when no value parses to a finite number.
func numericStats(values []Value) *NumericStats {
	data := stats.Float64Data(finiteNumbers(values))
	if data.Len() == 0 {
		return nil
	}
	// errors only signal empty input, ruled out above
	mean, _ := stats.Mean(data)
	median, _ := stats.Median(data)
	sd, _ := stats.StandardDeviationPopulation(data)
	lo, _ := stats.Min(data)
	hi, _ := stats.Max(data)
	return &NumericStats{Mean: mean, Median: median, StdDev: sd, Min: lo, Max: hi}
}
