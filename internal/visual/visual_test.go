package visual

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rosh-10/automated-analysis-project/internal/analysis"
	"github.com/Rosh-10/automated-analysis-project/internal/logger"
)

type fakeRenderer struct {
	fail      map[string]error
	panicOn   string
	garbage   bool
	pairWidth int
}

func (f *fakeRenderer) Distribution(col analysis.NumericColumn, w io.Writer) error {
	if col.Name == f.panicOn {
		panic("boom")
	}
	if err := f.fail[col.Name]; err != nil {
		return err
	}
	return f.emit(w)
}

func (f *fakeRenderer) Pairplot(cols []analysis.NumericColumn, w io.Writer) error {
	f.pairWidth = len(cols)
	return f.emit(w)
}

func (f *fakeRenderer) emit(w io.Writer) error {
	if f.garbage {
		_, err := w.Write([]byte("not a png"))
		return err
	}
	return png.Encode(w, image.NewRGBA(image.Rect(0, 0, 4, 4)))
}

func numCols(names ...string) []analysis.NumericColumn {
	out := make([]analysis.NumericColumn, len(names))
	for i, n := range names {
		out[i] = analysis.NumericColumn{Name: n, Index: i, Values: []float64{1, 2, 3, float64(i)}}
	}
	return out
}

func newVis(t *testing.T, r Renderer, opt Options) *Visualizer {
	t.Helper()
	if opt.Dir == "" {
		opt.Dir = t.TempDir()
	}
	return New(opt, r, logger.NewTestLogger(t))
}

func countKind(arts []Artifact, kind string) int {
	n := 0
	for _, a := range arts {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

func TestRenderOneChartPerColumn(t *testing.T) {
	dir := t.TempDir()
	v := newVis(t, &fakeRenderer{}, Options{Dir: dir, Pairplot: true})
	arts, warns := v.Render(slices.Values(numCols("a", "b", "Temp (°F)")))
	assert.Empty(t, warns)
	assert.Equal(t, 3, countKind(arts, KindDistribution))
	assert.Equal(t, 1, countKind(arts, KindPairplot))

	for _, name := range []string{"a_distribution.png", "b_distribution.png", "Temp___F__distribution.png", "pairplot.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	assert.Equal(t, "a_distribution.png", arts[0].Name())
	assert.Equal(t, "a", arts[0].Column)
}

func TestRenderSanitizedNameCollisionListedOnce(t *testing.T) {
	dir := t.TempDir()
	v := newVis(t, &fakeRenderer{}, Options{Dir: dir})
	arts, warns := v.Render(slices.Values(numCols("a b", "a/b", "c")))
	assert.Empty(t, warns)
	require.Len(t, arts, 2)
	assert.Equal(t, "a_b_distribution.png", arts[0].Name())
	assert.Equal(t, "a/b", arts[0].Column, "last write wins")
	assert.Equal(t, "c_distribution.png", arts[1].Name())
	assert.FileExists(t, filepath.Join(dir, "a_b_distribution.png"))
}

func TestRenderIsolatesFailures(t *testing.T) {
	r := &fakeRenderer{fail: map[string]error{"b": errors.New("cannot draw")}, panicOn: "c"}
	arts, warns := newVis(t, r, Options{}).Render(slices.Values(numCols("a", "b", "c", "d")))

	assert.Equal(t, 2, countKind(arts, KindDistribution))
	require.Len(t, warns, 2)
	assert.Equal(t, "b", warns[0].Column)
	assert.ErrorContains(t, warns[0], "cannot draw")
	assert.Equal(t, "c", warns[1].Column)
	assert.ErrorContains(t, warns[1], "panic")
}

func TestRenderPairplotRules(t *testing.T) {
	r := &fakeRenderer{}
	arts, _ := newVis(t, r, Options{Pairplot: true}).Render(slices.Values(numCols("only")))
	assert.Equal(t, 0, countKind(arts, KindPairplot))

	arts, _ = newVis(t, r, Options{Pairplot: false}).Render(slices.Values(numCols("a", "b")))
	assert.Equal(t, 0, countKind(arts, KindPairplot))

	arts, _ = newVis(t, r, Options{Pairplot: true, MaxPairplotColumns: 3}).Render(slices.Values(numCols("a", "b", "c", "d", "e")))
	assert.Equal(t, 1, countKind(arts, KindPairplot))
	assert.Equal(t, 3, r.pairWidth)
}

func TestRenderJPEGReplacesPNG(t *testing.T) {
	dir := t.TempDir()
	arts, warns := newVis(t, &fakeRenderer{}, Options{Dir: dir, JPEGQuality: 30}).Render(slices.Values(numCols("x")))
	require.Empty(t, warns)
	require.Len(t, arts, 1)
	assert.Equal(t, filepath.Join(dir, "x_distribution.jpg"), arts[0].Path)

	_, err := os.Stat(filepath.Join(dir, "x_distribution.png"))
	assert.True(t, os.IsNotExist(err))
	f, err := os.Open(arts[0].Path)
	require.NoError(t, err)
	defer f.Close()
	_, err = jpeg.Decode(f)
	assert.NoError(t, err)
}

func TestRenderKeepsPNGWhenReencodeFails(t *testing.T) {
	dir := t.TempDir()
	arts, warns := newVis(t, &fakeRenderer{garbage: true}, Options{Dir: dir, JPEGQuality: 30}).Render(slices.Values(numCols("x")))
	require.Len(t, arts, 1)
	assert.Equal(t, filepath.Join(dir, "x_distribution.png"), arts[0].Path)
	require.Len(t, warns, 1)
	assert.ErrorContains(t, warns[0], "jpeg")
}

func TestRenderMissingDirWarns(t *testing.T) {
	arts, warns := newVis(t, &fakeRenderer{}, Options{Dir: filepath.Join(t.TempDir(), "absent")}).Render(slices.Values(numCols("x")))
	assert.Empty(t, arts)
	assert.Len(t, warns, 1)
}

func TestChartRendererDistribution(t *testing.T) {
	r := NewChartRenderer(640, 480)
	col := analysis.NumericColumn{Name: "age", Values: []float64{31, math.NaN(), 25, 40, 22, 35, 29, 31}}

	var a, b bytes.Buffer
	require.NoError(t, r.Distribution(col, &a))
	require.NoError(t, r.Distribution(col, &b))
	assert.Equal(t, a.Bytes(), b.Bytes(), "rendering is deterministic")

	img, err := png.Decode(bytes.NewReader(a.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(640, 480), img.Bounds().Size())
}

func TestChartRendererDegenerateColumns(t *testing.T) {
	r := NewChartRenderer(320, 240)
	for name, vals := range map[string][]float64{
		"constant": {5, 5, 5, 5},
		"single":   {42},
		"zero":     {0, 0},
		"negative": {-3, -1, -2},
	} {
		var buf bytes.Buffer
		assert.NoError(t, r.Distribution(analysis.NumericColumn{Name: name, Values: vals}, &buf), name)
	}
	var buf bytes.Buffer
	assert.Error(t, r.Distribution(analysis.NumericColumn{Name: "empty", Values: []float64{math.NaN()}}, &buf))
}

func TestChartRendererPairplot(t *testing.T) {
	r := NewChartRenderer(0, 0)
	r.CellSize = 160
	nan := math.NaN()
	cols := []analysis.NumericColumn{
		{Name: "x", Values: []float64{1, 2, 3, 4, nan}},
		{Name: "y", Values: []float64{2, 4, 6, 8, 10}},
		{Name: "disjoint", Values: []float64{nan, nan, nan, nan, 7}},
	}
	var buf bytes.Buffer
	require.NoError(t, r.Pairplot(cols, &buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(labelMargin+3*160, headerHeight+3*160), img.Bounds().Size())

	assert.Error(t, r.Pairplot(cols[:1], &buf))
}

func TestBinCount(t *testing.T) {
	assert.Equal(t, 1, binCount([]float64{3}))
	assert.Equal(t, 1, binCount([]float64{2, 2, 2}))

	seq := make([]float64, 100)
	for i := range seq {
		seq[i] = float64(i + 1)
	}
	assert.Equal(t, 8, binCount(seq))

	heavy := make([]float64, 0, 1001)
	for i := 0; i < 1000; i++ {
		heavy = append(heavy, float64(i)/1000)
	}
	heavy = append(heavy, 1e6)
	assert.Equal(t, maxBins, binCount(heavy))
}

func TestHistogram(t *testing.T) {
	assert.Equal(t, []int{1, 1, 2}, histogram([]float64{0, 1, 2, 3}, 0, 3, 3))
	assert.Equal(t, []int{3}, histogram([]float64{5, 5, 5}, 5, 5, 1))
}

func TestKDEIntegratesToScale(t *testing.T) {
	vals := []float64{1, 2, 2, 3, 3, 3, 4, 4, 5}
	h := scottBandwidth(vals)
	require.Greater(t, h, 0.0)
	xs := make([]float64, 2001)
	for i := range xs {
		xs[i] = -10 + 25*float64(i)/2000
	}
	ys := kde(vals, xs, h, 1)
	var area float64
	for i := 1; i < len(xs); i++ {
		area += (xs[i] - xs[i-1]) * (ys[i] + ys[i-1]) / 2
	}
	assert.InDelta(t, 1.0, area, 1e-3)
	assert.Equal(t, 0.0, scottBandwidth([]float64{1}))
}

func TestChartRendererRejectsUnplottableRange(t *testing.T) {
	r := NewChartRenderer(320, 240)
	var buf bytes.Buffer
	err := r.Distribution(analysis.NumericColumn{Name: "huge", Values: []float64{-1.7e308, 1.7e308}}, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too wide")

	assert.Nil(t, r.scatterChart(
		analysis.NumericColumn{Name: "a", Values: []float64{-1.7e308, 1.7e308}},
		analysis.NumericColumn{Name: "b", Values: []float64{1, 2}}, 240))
}

func TestScottBandwidthLargeValues(t *testing.T) {
	h := scottBandwidth([]float64{1e308, 1e308, 1})
	assert.Greater(t, h, 0.0)
	assert.False(t, math.IsInf(h, 0))
	assert.Equal(t, 0.0, scottBandwidth([]float64{-1.7e308, 1.7e308}))
}
