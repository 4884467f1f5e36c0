package analysis

import (
	"math"
	"sort"
)

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// Get returns the coefficient for two columns.
func (m CorrMatrix) Get(a, b string) (float64, bool) {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

func (m CorrMatrix) index(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Map exposes the matrix as nested maps keyed by column name.
func (m CorrMatrix) Map() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(m.Columns))
	for i, a := range m.Columns {
		row := make(map[string]float64, len(m.Columns))
		for j, b := range m.Columns {
			row[b] = m.Values[i][j]
		}
		out[a] = row
	}
	return out
}

// correlate computes pairwise-complete Pearson coefficients. Fewer than two
// columns yields an empty matrix. Undefined pairs are set to 0 and returned.
func correlate(cols []NumericColumn) (CorrMatrix, []PairCorr) {
	if len(cols) < 2 {
		return CorrMatrix{Columns: []string{}, Values: [][]float64{}}, nil
	}
	n := len(cols)
	names := make([]string, n)
	mat := make([][]float64, n)
	for i := range cols {
		names[i] = cols[i].Name
		mat[i] = make([]float64, n)
		mat[i][i] = 1
	}
	var undefined []PairCorr
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			r, ok := pearson(cols[a].Values, cols[b].Values)
			if !ok {
				undefined = append(undefined, PairCorr{A: names[a], B: names[b]})
				r = 0
			}
			mat[a][b] = r
			mat[b][a] = r
		}
	}
	return CorrMatrix{Columns: names, Values: mat}, undefined
}

// pearson uses only rows where both series are present.
func pearson(xs, ys []float64) (float64, bool) {
	var px, py []float64
	for i := range xs {
		if i >= len(ys) || math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		px = append(px, xs[i])
		py = append(py, ys[i])
	}
	if len(px) < 2 {
		return 0, false
	}
	px, py = scaled(px), scaled(py)
	var mx, my float64
	for i := range px {
		mx += px[i]
		my += py[i]
	}
	mx /= float64(len(px))
	my /= float64(len(py))
	var sxy, sxx, syy float64
	for i := range px {
		dx, dy := px[i]-mx, py[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	denom := math.Sqrt(sxx * syy)
	if denom == 0 || math.IsNaN(denom) || math.IsInf(denom, 0) {
		return 0, false
	}
	r := sxy / denom
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}

// topPairs lists the strongest defined pairs by |r|.
func topPairs(m CorrMatrix, undefined []PairCorr, limit int) []PairCorr {
	skip := make(map[[2]string]bool, len(undefined))
	for _, u := range undefined {
		skip[[2]string{u.A, u.B}] = true
	}
	var pairs []PairCorr
	for i := 0; i < len(m.Columns); i++ {
		for j := i + 1; j < len(m.Columns); j++ {
			if skip[[2]string{m.Columns[i], m.Columns[j]}] {
				continue
			}
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}
