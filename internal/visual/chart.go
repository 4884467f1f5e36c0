package visual

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Rosh-10/automated-analysis-project/internal/analysis"
)

// Renderer draws charts as PNG.
type Renderer interface {
	Distribution(col analysis.NumericColumn, w io.Writer) error
	Pairplot(cols []analysis.NumericColumn, w io.Writer) error
}

// ChartRenderer renders with go-chart.
type ChartRenderer struct {
	Width    int
	Height   int
	CellSize int // pairplot cell edge in pixels
}

// NewChartRenderer returns a renderer with the given distribution chart size.
func NewChartRenderer(width, height int) *ChartRenderer {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 600
	}
	return &ChartRenderer{Width: width, Height: height, CellSize: 240}
}

var (
	barColor     = drawing.ColorFromHex("4C72B0")
	kdeColor     = drawing.ColorFromHex("DD8452")
	scatterColor = drawing.ColorFromHex("4C72B0").WithAlpha(150)
)

const kdePoints = 200

// Distribution draws a histogram of the column with a KDE overlay scaled to counts.
func (r *ChartRenderer) Distribution(col analysis.NumericColumn, w io.Writer) error {
	ch, err := r.histogramChart(col.Present(), r.Width, r.Height)
	if err != nil {
		return err
	}
	ch.Title = "Distribution of " + col.Name
	ch.XAxis.Name = col.Name
	ch.YAxis.Name = "Count"
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render distribution %q: %w", col.Name, err)
	}
	return nil
}

func (r *ChartRenderer) histogramChart(vals []float64, width, height int) (*chart.Chart, error) {
	if len(vals) == 0 {
		return nil, fmt.Errorf("no values to plot")
	}
	sorted := sortedCopy(vals)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	bins := binCount(sorted)
	if hi <= lo {
		lo, hi = padRange(lo, hi)
	}
	xMin, xMax := padRange(lo, hi)
	binWidth := (hi - lo) / float64(bins)
	if !finite(lo, hi, xMin, xMax, binWidth) {
		return nil, fmt.Errorf("value range [%g, %g] is too wide to plot", sorted[0], sorted[len(sorted)-1])
	}
	counts := histogram(sorted, lo, hi, bins)

	// bars as one filled step outline
	xs := make([]float64, 0, 4*bins)
	ys := make([]float64, 0, 4*bins)
	peak := 0.0
	for i, c := range counts {
		left := lo + float64(i)*binWidth
		right := left + binWidth
		xs = append(xs, left, left, right, right)
		ys = append(ys, 0, float64(c), float64(c), 0)
		peak = math.Max(peak, float64(c))
	}
	series := []chart.Series{chart.ContinuousSeries{
		Name:    "count",
		XValues: xs,
		YValues: ys,
		Style: chart.Style{
			StrokeColor: barColor,
			StrokeWidth: 1,
			FillColor:   barColor.WithAlpha(160),
		},
	}}

	if h := scottBandwidth(sorted); h > 0 && !math.IsNaN(h) {
		kx := make([]float64, kdePoints)
		for i := range kx {
			kx[i] = lo + (hi-lo)*float64(i)/float64(kdePoints-1)
		}
		ky := kde(sorted, kx, h, float64(len(sorted))*binWidth)
		for _, y := range ky {
			peak = math.Max(peak, y)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    "kde",
			XValues: kx,
			YValues: ky,
			Style:   chart.Style{StrokeColor: kdeColor, StrokeWidth: 2},
		})
	}

	return &chart.Chart{
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Range: &chart.ContinuousRange{Min: xMin, Max: xMax}},
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: math.Max(peak, 1) * 1.1}},
		Series:     series,
	}, nil
}

func (r *ChartRenderer) scatterChart(x, y analysis.NumericColumn, size int) *chart.Chart {
	var xs, ys []float64
	for i := range x.Values {
		if i >= len(y.Values) || math.IsNaN(x.Values[i]) || math.IsNaN(y.Values[i]) {
			continue
		}
		xs = append(xs, x.Values[i])
		ys = append(ys, y.Values[i])
	}
	if len(xs) == 0 {
		return nil
	}
	xMin, xMax := padRange(minMax(xs))
	yMin, yMax := padRange(minMax(ys))
	if !finite(xMin, xMax, yMin, yMax) {
		return nil
	}
	return &chart.Chart{
		Width:  size,
		Height: size,
		XAxis:  chart.XAxis{Range: &chart.ContinuousRange{Min: xMin, Max: xMax}},
		YAxis:  chart.YAxis{Range: &chart.ContinuousRange{Min: yMin, Max: yMax}},
		Series: []chart.Series{chart.ContinuousSeries{
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    2.5,
				DotColor:    scatterColor,
			},
		}},
	}
}

const (
	labelMargin  = 110
	headerHeight = 22
)

// Pairplot draws an n x n grid: histograms on the diagonal, scatter plots elsewhere.
func (r *ChartRenderer) Pairplot(cols []analysis.NumericColumn, w io.Writer) error {
	n := len(cols)
	if n < 2 {
		return fmt.Errorf("pairplot needs at least two columns, got %d", n)
	}
	cell := r.CellSize
	if cell <= 0 {
		cell = 240
	}
	canvas := image.NewRGBA(image.Rect(0, 0, labelMargin+n*cell, headerHeight+n*cell))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	for i := 0; i < n; i++ {
		drawLabel(canvas, clipLabel(cols[i].Name, cell/7-1), labelMargin+i*cell+6, headerHeight-6)
		drawLabel(canvas, clipLabel(cols[i].Name, labelMargin/7-1), 4, headerHeight+i*cell+cell/2)
		for j := 0; j < n; j++ {
			var ch *chart.Chart
			if i == j {
				hc, err := r.histogramChart(cols[i].Present(), cell, cell)
				if err != nil {
					continue
				}
				ch = hc
			} else {
				ch = r.scatterChart(cols[j], cols[i], cell)
			}
			if ch == nil {
				continue
			}
			img, err := renderImage(ch)
			if err != nil {
				return fmt.Errorf("pairplot cell %s/%s: %w", cols[i].Name, cols[j].Name, err)
			}
			origin := image.Pt(labelMargin+j*cell, headerHeight+i*cell)
			draw.Draw(canvas, image.Rectangle{Min: origin, Max: origin.Add(img.Bounds().Size())}, img, img.Bounds().Min, draw.Over)
		}
	}
	if err := png.Encode(w, canvas); err != nil {
		return fmt.Errorf("encode pairplot: %w", err)
	}
	return nil
}

func renderImage(ch *chart.Chart) (image.Image, error) {
	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return png.Decode(&buf)
}

func drawLabel(dst draw.Image, text string, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{R: 40, G: 40, B: 40, A: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func clipLabel(s string, n int) string {
	r := []rune(s)
	if n < 4 || len(r) <= n {
		return s
	}
	return string(r[:n-2]) + ".."
}

func minMax(vals []float64) (float64, float64) {
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
