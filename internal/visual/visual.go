// Package visual renders per-column distribution charts and a pairplot.
package visual

import (
	"bytes"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/Rosh-10/automated-analysis-project/internal/analysis"
	"github.com/Rosh-10/automated-analysis-project/internal/logger"
	"github.com/Rosh-10/automated-analysis-project/internal/utils"
)

// Artifact kinds.
const (
	KindDistribution = "distribution"
	KindPairplot     = "pairplot"
)

// Artifact is one written chart file.
type Artifact struct {
	Column string
	Path   string
	Kind   string
}

// Name returns the file name relative to the output directory.
func (a Artifact) Name() string { return filepath.Base(a.Path) }

// Warning records a chart that could not be produced (or re-encoded). It is not fatal.
type Warning struct {
	Column string
	Err    error
}

func (w Warning) Error() string { return fmt.Sprintf("visualize %s: %v", w.Column, w.Err) }

func (w Warning) Unwrap() error { return w.Err }

// Options configures a Visualizer.
type Options struct {
	// Dir must already exist.
	Dir                string
	Pairplot           bool
	MaxPairplotColumns int
	// JPEGQuality re-encodes charts as JPEG (1-100); 0 keeps PNG.
	JPEGQuality int
}

// Visualizer writes one chart per numeric column plus an optional pairplot.
type Visualizer struct {
	opt Options
	r   Renderer
	log logger.Logger
}

// New builds a Visualizer around r.
func New(opt Options, r Renderer, log logger.Logger) *Visualizer {
	if opt.MaxPairplotColumns <= 0 {
		opt.MaxPairplotColumns = 6
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Visualizer{opt: opt, r: r, log: log}
}

// Render draws every column in cols. Each chart is attempted independently:
// failures and panics become warnings and the remaining charts are still written.
func (v *Visualizer) Render(cols iter.Seq[analysis.NumericColumn]) ([]Artifact, []Warning) {
	var (
		arts  []Artifact
		warns []Warning
		seen  []analysis.NumericColumn
	)
	// Columns whose names sanitize alike share a file; the last write wins and
	// the artifact is listed once.
	byPath := map[string]int{}
	for col := range cols {
		seen = append(seen, col)
		path := filepath.Join(v.opt.Dir, utils.SanitizeFileName(col.Name)+"_distribution.png")
		art, ws := v.write(col.Name, path, KindDistribution, func(buf *bytes.Buffer) error {
			return v.r.Distribution(col, buf)
		})
		warns = append(warns, ws...)
		if art == nil {
			continue
		}
		if i, ok := byPath[art.Path]; ok {
			arts[i] = *art
			continue
		}
		byPath[art.Path] = len(arts)
		arts = append(arts, *art)
	}

	if v.opt.Pairplot && len(seen) > 1 {
		grid := seen
		if len(grid) > v.opt.MaxPairplotColumns {
			v.log.Info("pairplot limited to leading columns", map[string]interface{}{
				"columns": len(seen),
				"limit":   v.opt.MaxPairplotColumns,
			})
			grid = grid[:v.opt.MaxPairplotColumns]
		}
		path := filepath.Join(v.opt.Dir, "pairplot.png")
		art, ws := v.write(KindPairplot, path, KindPairplot, func(buf *bytes.Buffer) error {
			return v.r.Pairplot(grid, buf)
		})
		warns = append(warns, ws...)
		if art != nil {
			arts = append(arts, *art)
		}
	}
	return arts, warns
}

func (v *Visualizer) write(column, path, kind string, render func(*bytes.Buffer) error) (*Artifact, []Warning) {
	var buf bytes.Buffer
	if err := safeRender(func() error { return render(&buf) }); err != nil {
		v.log.Warn("chart skipped", map[string]interface{}{"column": column, "error": err})
		return nil, []Warning{{Column: column, Err: err}}
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		v.log.Warn("chart not written", map[string]interface{}{"column": column, "path": path, "error": err})
		return nil, []Warning{{Column: column, Err: err}}
	}
	art := &Artifact{Column: column, Path: path, Kind: kind}
	if v.opt.JPEGQuality <= 0 {
		v.log.Debug("chart written", map[string]interface{}{"column": column, "path": path})
		return art, nil
	}
	jpg, err := compress(path, buf.Bytes(), v.opt.JPEGQuality)
	if err != nil {
		v.log.Warn("jpeg re-encode failed, keeping png", map[string]interface{}{"column": column, "error": err})
		return art, []Warning{{Column: column, Err: fmt.Errorf("jpeg re-encode: %w", err)}}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		v.log.Warn("remove intermediate png", map[string]interface{}{"path": path, "error": err})
	}
	art.Path = jpg
	v.log.Debug("chart written", map[string]interface{}{"column": column, "path": jpg})
	return art, nil
}

func safeRender(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("renderer panic: %v", rec)
		}
	}()
	return fn()
}
