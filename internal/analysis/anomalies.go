package analysis

import (
	"fmt"
	"math"
	"sort"
	"unicode/utf8"
)

// Severity grades anomalies and schema issues.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// AnomalyType names what an anomaly detected.
type AnomalyType string

const (
	AnomalyOutliers      AnomalyType = "outliers"
	AnomalyUnusualLength AnomalyType = "unusual_length"
)

// Bounds are the IQR fences, formatted to two decimals.
type Bounds struct {
	Lower string `json:"lower"`
	Upper string `json:"upper"`
}

// Anomaly is a value-distribution finding on one column.
type Anomaly struct {
	Column      string      `json:"column"`
	Type        AnomalyType `json:"type"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	Count       int         `json:"count,omitempty"`
	Percentage  float64     `json:"percentage,omitempty"`
	Bounds      *Bounds     `json:"bounds,omitempty"`
}

// DetectAnomalies inspects numeric columns for IQR outliers and string
// columns for unusually long text. Output follows column order.
func DetectAnomalies(ds *Dataset, profiles []ColumnProfile, p Policy) []Anomaly {
	p = p.withDefaults()
	var out []Anomaly
	for _, prof := range profiles {
		switch {
		case prof.Type == TypeNumber && prof.Stats != nil:
			if a, ok := outlierAnomaly(prof.Name, finiteNumbers(ds.Column(prof.Name)), p); ok {
				out = append(out, a)
			}
		case prof.Type == TypeString:
			if a, ok := lengthAnomaly(prof.Name, ds.Column(prof.Name), p); ok {
				out = append(out, a)
			}
		}
	}
	return out
}

// quartiles uses nearest-rank positions floor(0.25N) and floor(0.75N) of the
// sorted values, without interpolation.
func quartiles(sorted []float64) (q1, q3 float64) {
	n := float64(len(sorted))
	return sorted[int(math.Floor(0.25*n))], sorted[int(math.Floor(0.75*n))]
}

func outlierAnomaly(column string, values []float64, p Policy) (Anomaly, bool) {
	if len(values) == 0 {
		return Anomaly{}, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	q1, q3 := quartiles(sorted)
	iqr := q3 - q1
	lower := q1 - p.IQRMultiplier*iqr
	upper := q3 + p.IQRMultiplier*iqr

	count := 0
	for _, v := range values {
		if v < lower || v > upper {
			count++
		}
	}
	pct := float64(count) / float64(len(values)) * 100
	if pct <= p.OutlierMinPercent {
		return Anomaly{}, false
	}
	sev := SeverityMedium
	if pct > p.OutlierHighPercent {
		sev = SeverityHigh
	}
	return Anomaly{
		Column:      column,
		Type:        AnomalyOutliers,
		Severity:    sev,
		Description: fmt.Sprintf("%d outlier values detected (%.1f%%)", count, pct),
		Count:       count,
		Percentage:  pct,
		Bounds: &Bounds{
			Lower: fmt.Sprintf("%.2f", lower),
			Upper: fmt.Sprintf("%.2f", upper),
		},
	}, true
}

func lengthAnomaly(column string, cells []Value, p Policy) (Anomaly, bool) {
	total, n := 0, 0
	for _, v := range cells {
		if v.IsMissing() {
			continue
		}
		total += utf8.RuneCountInString(v.String())
		n++
	}
	if n == 0 {
		return Anomaly{}, false
	}
	avg := float64(total) / float64(n)
	if avg <= p.LongTextAvgLength {
		return Anomaly{}, false
	}
	return Anomaly{
		Column:      column,
		Type:        AnomalyUnusualLength,
		Severity:    SeverityLow,
		Description: fmt.Sprintf("Unusually long text values (avg %d characters)", int(math.Round(avg))),
	}, true
}
