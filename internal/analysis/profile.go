// Package analysis derives descriptive statistics, missing-value counts and
// correlations from a loaded dataset.
package analysis

import (
	"fmt"
	"iter"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Rosh-10/automated-analysis-project/internal/dataset"
	"github.com/Rosh-10/automated-analysis-project/internal/utils"
)

// Column kinds.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindEmpty       = "empty"
)

// Options controls profiling behavior.
type Options struct {
	// Numeric parsing locale. When both are 0 numbers are parsed strictly.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
	// TopPairs bounds the strongest correlation pairs kept for the prompt.
	TopPairs int
}

// DefaultOptions returns the settings used by the CLI.
func DefaultOptions() Options {
	return Options{Outliers: true, OutlierThreshold: 3.5, TopPairs: 10}
}

// ColumnInfo names a column and its inferred kind, in file order.
type ColumnInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// ColumnStats follows describe() semantics. Numeric columns fill the moments and
// percentiles; other columns fill Unique/Top/Freq. Absent statistics are nil.
type ColumnStats struct {
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean,omitempty"`
	Std    *float64 `json:"std,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	P25    *float64 `json:"25%,omitempty"`
	P50    *float64 `json:"50%,omitempty"`
	P75    *float64 `json:"75%,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Unique *int     `json:"unique,omitempty"`
	Top    *string  `json:"top,omitempty"`
	Freq   *int     `json:"freq,omitempty"`
}

// OutlierSummary is the robust Z-score outlier count of one numeric column.
type OutlierSummary struct {
	Count     int     `json:"count"`
	MaxAbsZ   float64 `json:"max_abs_z"`
	Threshold float64 `json:"threshold"`
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A string  `json:"a"`
	B string  `json:"b"`
	R float64 `json:"r"`
}

// ProfileWarning marks degraded but non-fatal output.
type ProfileWarning struct {
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

func (w ProfileWarning) String() string {
	if w.Column == "" {
		return w.Message
	}
	return w.Column + ": " + w.Message
}

// Profile is the statistical summary of a dataset.
type Profile struct {
	Name          string
	Encoding      string
	Rows          int
	Columns       []ColumnInfo
	Summary       map[string]ColumnStats
	MissingValues map[string]int
	Correlation   CorrMatrix
	Outliers      map[string]OutlierSummary
	TopPairs      []PairCorr
	Warnings      []ProfileWarning
}

// NumericColumn is a row-aligned numeric series; missing cells are NaN.
type NumericColumn struct {
	Name   string
	Index  int
	Values []float64
}

// Present returns the non-missing values in row order.
func (c NumericColumn) Present() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// NumericColumns lazily yields every numeric column of ds in file order.
func NumericColumns(ds *dataset.Dataset, opt Options) iter.Seq[NumericColumn] {
	return func(yield func(NumericColumn) bool) {
		for i := range ds.Columns {
			col := &ds.Columns[i]
			vals, ok := numericValues(col, opt)
			if !ok {
				continue
			}
			if !yield(NumericColumn{Name: col.Name, Index: i, Values: vals}) {
				return
			}
		}
	}
}

// Build computes the profile of ds. It never fails; degraded results carry warnings.
func Build(ds *dataset.Dataset, opt Options) *Profile {
	p := &Profile{
		Name:          ds.Name,
		Encoding:      ds.Encoding,
		Rows:          ds.Rows,
		Columns:       make([]ColumnInfo, 0, len(ds.Columns)),
		Summary:       make(map[string]ColumnStats, len(ds.Columns)),
		MissingValues: make(map[string]int, len(ds.Columns)),
		Outliers:      map[string]OutlierSummary{},
	}

	var numeric []NumericColumn
	for i := range ds.Columns {
		col := &ds.Columns[i]
		count := col.NonMissing()
		p.MissingValues[col.Name] = ds.Rows - count

		if vals, ok := numericValues(col, opt); ok {
			nc := NumericColumn{Name: col.Name, Index: i, Values: vals}
			numeric = append(numeric, nc)
			p.Columns = append(p.Columns, ColumnInfo{Name: col.Name, Kind: KindNumeric})
			present := nc.Present()
			st, dropped := describeNumeric(present)
			p.Summary[col.Name] = st
			if len(dropped) > 0 {
				p.Warnings = append(p.Warnings, ProfileWarning{
					Column:  col.Name,
					Message: "values exceed the float64 range for " + strings.Join(dropped, ", ") + "; omitted",
				})
			}
			if opt.Outliers && len(present) >= 8 {
				p.Outliers[col.Name] = robustOutliers(scaled(present), opt.OutlierThreshold)
			}
			continue
		}

		kind := KindCategorical
		switch {
		case count == 0:
			kind = KindEmpty
			p.Warnings = append(p.Warnings, ProfileWarning{Column: col.Name, Message: "column has no values"})
		case allDatetime(col):
			kind = KindDatetime
		}
		p.Columns = append(p.Columns, ColumnInfo{Name: col.Name, Kind: kind})
		p.Summary[col.Name] = describeCategorical(col)
	}

	if len(numeric) == 0 {
		p.Warnings = append(p.Warnings, ProfileWarning{Message: "no numeric columns; correlation matrix is empty"})
	}
	corr, undefined := correlate(numeric)
	p.Correlation = corr
	for _, pr := range undefined {
		p.Warnings = append(p.Warnings, ProfileWarning{
			Column:  pr.A + " ~ " + pr.B,
			Message: "correlation undefined (constant column or fewer than two paired values); reported as 0",
		})
	}
	p.TopPairs = topPairs(corr, undefined, opt.TopPairs)
	return p
}

// numericValues reports whether every non-missing cell of col parses as a
// number (and at least one does), returning the row-aligned series.
func numericValues(col *dataset.Column, opt Options) ([]float64, bool) {
	vals := make([]float64, len(col.Cells))
	seen := 0
	for r, cell := range col.Cells {
		if col.Missing[r] {
			vals[r] = math.NaN()
			continue
		}
		x, ok := parseNumber(cell, opt)
		if !ok {
			return nil, false
		}
		vals[r] = x
		seen++
	}
	return vals, seen > 0
}

func parseNumber(s string, opt Options) (float64, bool) {
	var (
		x  float64
		ok bool
	)
	if opt.DecimalSeparator == 0 && opt.ThousandsSeparator == 0 {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		x, ok = f, err == nil
	} else {
		x, ok = parseNumeric(s, opt)
	}
	if !ok || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}

// parseNumeric applies locale separators: thousands separators are dropped and
// the decimal separator is normalized to '.'.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.ReplaceAll(strings.TrimSpace(s), "\u00A0", " ")
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	thou := opt.ThousandsSeparator
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

func parseTimeMaybe(s string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func allDatetime(col *dataset.Column) bool {
	seen := false
	for r, cell := range col.Cells {
		if col.Missing[r] {
			continue
		}
		if _, ok := parseTimeMaybe(cell); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// describeNumeric fills the numeric statistics. Any statistic that is not finite
// is left nil and its name returned in dropped.
func describeNumeric(vals []float64) (st ColumnStats, dropped []string) {
	st.Count = len(vals)
	if len(vals) == 0 {
		return st, nil
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	set := func(name string, v float64) *float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			dropped = append(dropped, name)
			return nil
		}
		return ptr(v)
	}
	mean, std := MeanStd(vals)
	st.Mean = set("mean", mean)
	if len(vals) > 1 {
		st.Std = set("std", std)
	}
	st.Min = ptr(sorted[0])
	st.P25 = set("25%", quantile(sorted, 0.25))
	st.P50 = set("50%", quantile(sorted, 0.5))
	st.P75 = set("75%", quantile(sorted, 0.75))
	st.Max = ptr(sorted[len(sorted)-1])
	return st, dropped
}

// MeanStd returns the mean and the sample standard deviation (ddof=1). Values
// are scaled by their largest magnitude before a Welford update, so finite
// inputs near the float64 limits do not overflow the running sums. std is NaN
// for fewer than two values; either result is +Inf when the true value does not
// fit in a float64.
func MeanStd(vals []float64) (mean, std float64) {
	n := len(vals)
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	scale := 0.0
	for _, v := range vals {
		scale = math.Max(scale, math.Abs(v))
	}
	if scale == 0 {
		if n < 2 {
			return 0, math.NaN()
		}
		return 0, 0
	}
	var m, m2 float64
	for i, v := range vals {
		x := v / scale
		d := x - m
		m += d / float64(i+1)
		m2 += d * (x - m)
	}
	mean = m * scale
	if n < 2 {
		return mean, math.NaN()
	}
	return mean, math.Sqrt(m2/float64(n-1)) * scale
}

// scaled divides vals by their largest magnitude. Ratios such as robust z-scores
// and correlation coefficients are unchanged by it.
func scaled(vals []float64) []float64 {
	scale := 0.0
	for _, v := range vals {
		if !math.IsNaN(v) {
			scale = math.Max(scale, math.Abs(v))
		}
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		if scale == 0 {
			out[i] = v
			continue
		}
		out[i] = v / scale
	}
	return out
}

// describeCategorical counts distinct values; the most frequent wins and ties go
// to the value seen first.
func describeCategorical(col *dataset.Column) ColumnStats {
	counts := map[string]int{}
	var order []string
	n := 0
	for r, cell := range col.Cells {
		if col.Missing[r] {
			continue
		}
		n++
		if _, ok := counts[cell]; !ok {
			order = append(order, cell)
		}
		counts[cell]++
	}
	st := ColumnStats{Count: n}
	if n == 0 {
		return st
	}
	top, freq := order[0], counts[order[0]]
	for _, v := range order[1:] {
		if counts[v] > freq {
			top, freq = v, counts[v]
		}
	}
	uniq := len(order)
	st.Unique = &uniq
	st.Top = &top
	st.Freq = &freq
	return st
}

func robustOutliers(vals []float64, thr float64) OutlierSummary {
	if thr <= 0 {
		thr = 3.5
	}
	out := OutlierSummary{Threshold: thr}
	median, mad := medianMAD(vals)
	if mad == 0 {
		return out
	}
	for _, v := range vals {
		az := math.Abs(0.6745 * (v - median) / mad)
		if math.IsInf(az, 0) {
			az = math.MaxFloat64
		}
		if az > thr {
			out.Count++
		}
		if az > out.MaxAbsZ {
			out.MaxAbsZ = az
		}
	}
	return out
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func ptr(v float64) *float64 { return &v }

// JSON renders the profile as indented JSON with sorted map keys, so re-runs
// over the same input produce identical bytes.
func (p *Profile) JSON() ([]byte, error) {
	doc := struct {
		Name          string                        `json:"name"`
		Encoding      string                        `json:"encoding"`
		Rows          int                           `json:"rows"`
		Columns       []ColumnInfo                  `json:"columns"`
		Summary       map[string]ColumnStats        `json:"summary"`
		MissingValues map[string]int                `json:"missing_values"`
		Correlation   map[string]map[string]float64 `json:"correlation"`
		Outliers      map[string]OutlierSummary     `json:"outliers,omitempty"`
		TopPairs      []PairCorr                    `json:"top_pairs,omitempty"`
		Warnings      []ProfileWarning              `json:"warnings,omitempty"`
	}{
		Name:          p.Name,
		Encoding:      p.Encoding,
		Rows:          p.Rows,
		Columns:       p.Columns,
		Summary:       p.Summary,
		MissingValues: p.MissingValues,
		Correlation:   p.Correlation.Map(),
		Outliers:      p.Outliers,
		TopPairs:      p.TopPairs,
		Warnings:      p.Warnings,
	}
	b, err := utils.PrettyJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("profile json: %w", err)
	}
	return append(b, '\n'), nil
}
