// Package pipeline runs one analysis: load, profile, visualize, narrate, report.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Rosh-10/automated-analysis-project/internal/analysis"
	"github.com/Rosh-10/automated-analysis-project/internal/dataset"
	"github.com/Rosh-10/automated-analysis-project/internal/logger"
	"github.com/Rosh-10/automated-analysis-project/internal/narrative"
	"github.com/Rosh-10/automated-analysis-project/internal/report"
	"github.com/Rosh-10/automated-analysis-project/internal/utils"
	"github.com/Rosh-10/automated-analysis-project/internal/visual"
)

// ProfileFileName holds the statistics of a run inside the output directory.
const ProfileFileName = "profile.json"

// Config is everything one run needs besides its collaborators.
type Config struct {
	Input     string
	OutputDir string
	Load      dataset.Options
	Analysis  analysis.Options
	Visual    visual.Options
	Report    report.Options
}

// Narrator produces the narrative text for a profile.
type Narrator interface {
	Generate(ctx context.Context, p *analysis.Profile, charts []string) (*narrative.Result, error)
}

// Result summarizes a completed run.
type Result struct {
	Dataset         string
	Encoding        string
	Rows            int
	Columns         int
	ProfilePath     string
	ReportPath      string
	Artifacts       []visual.Artifact
	ProfileWarnings []analysis.ProfileWarning
	VisualWarnings  []visual.Warning
	Narrative       *narrative.Result
}

// Runner executes the stages strictly in sequence.
type Runner struct {
	cfg      Config
	narrator Narrator
	renderer visual.Renderer
	log      logger.Logger
}

// New wires a Runner.
func New(cfg Config, narrator Narrator, renderer visual.Renderer, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Runner{cfg: cfg, narrator: narrator, renderer: renderer, log: log}
}

// Run performs one analysis. Fatal failures are returned as the stage's typed
// error (*dataset.LoadError, *narrative.ClientError, *narrative.TransportError,
// *report.WriteError); chart and profile problems are reported in Result.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	dir := r.cfg.OutputDir
	if err := utils.EnsureDir(dir); err != nil {
		return nil, &report.WriteError{Path: dir, Err: err}
	}

	ds, err := dataset.Load(r.cfg.Input, r.cfg.Load)
	if err != nil {
		r.log.WithError(err).Error("load failed", map[string]interface{}{"path": r.cfg.Input})
		return nil, err
	}
	if ds.EncodingConfidence == 0 {
		r.log.Warn("encoding detection inconclusive", map[string]interface{}{"path": ds.Path, "encoding": ds.Encoding})
	}
	r.log.Info("dataset loaded", map[string]interface{}{
		"path":                ds.Path,
		"encoding":            ds.Encoding,
		"encoding_confidence": ds.EncodingConfidence,
		"rows":                ds.Rows,
		"columns":             len(ds.Columns),
	})
	res := &Result{Dataset: ds.Name, Encoding: ds.Encoding, Rows: ds.Rows, Columns: len(ds.Columns)}

	prof := analysis.Build(ds, r.cfg.Analysis)
	res.ProfileWarnings = prof.Warnings
	for _, w := range prof.Warnings {
		r.log.Warn("profile warning", map[string]interface{}{"column": w.Column, "message": w.Message})
	}
	b, err := prof.JSON()
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	res.ProfilePath = filepath.Join(dir, ProfileFileName)
	if err := utils.SafeWriteFile(res.ProfilePath, b); err != nil {
		return nil, &report.WriteError{Path: res.ProfilePath, Err: err}
	}

	vopt := r.cfg.Visual
	vopt.Dir = dir
	vis := visual.New(vopt, r.renderer, r.log)
	res.Artifacts, res.VisualWarnings = vis.Render(analysis.NumericColumns(ds, r.cfg.Analysis))
	r.log.Info("charts rendered", map[string]interface{}{
		"artifacts": len(res.Artifacts),
		"skipped":   len(res.VisualWarnings),
	})

	charts := make([]string, len(res.Artifacts))
	for i, a := range res.Artifacts {
		charts[i] = a.Name()
	}
	nres, err := r.narrator.Generate(ctx, prof, charts)
	if err != nil {
		r.log.WithError(err).Error("narrative failed", nil)
		return nil, err
	}
	res.Narrative = nres

	res.ReportPath, err = report.Write(dir, report.Report{Narrative: nres.Text, Artifacts: res.Artifacts}, r.cfg.Report)
	if err != nil {
		r.log.WithError(err).Error("report failed", nil)
		return nil, err
	}
	r.log.Info("report written", map[string]interface{}{"path": res.ReportPath})
	return res, nil
}
