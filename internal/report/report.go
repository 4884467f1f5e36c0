// Package report writes the final Markdown document for a run.
package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/Rosh-10/automated-analysis-project/internal/utils"
	"github.com/Rosh-10/automated-analysis-project/internal/visual"
)

// FileName is the report written into the output directory.
const FileName = "README.md"

// Report is the content of one run's document.
type Report struct {
	Narrative string
	Artifacts []visual.Artifact
}

// Options configures Write.
type Options struct {
	// HTML also renders README.html next to the Markdown file.
	HTML bool
}

// WriteError reports that the document could not be persisted. It is fatal.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write report %s: %v", e.Path, e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

// Markdown renders the narrative followed by links to the charts.
func (r Report) Markdown() string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(r.Narrative, "\n"))
	b.WriteString("\n")
	if len(r.Artifacts) > 0 {
		b.WriteString("\n## Visualizations\n\n")
		for _, a := range r.Artifacts {
			name := a.Name()
			label := a.Column
			if a.Kind == visual.KindPairplot {
				label = "Pairplot"
			}
			b.WriteString(fmt.Sprintf("![%s](%s)\n", label, name))
		}
	}
	return b.String()
}

// Write replaces dir/README.md (and README.html when requested) and returns the
// Markdown path.
func Write(dir string, r Report, opt Options) (string, error) {
	path := filepath.Join(dir, FileName)
	md := r.Markdown()
	if err := utils.SafeWriteFile(path, []byte(md)); err != nil {
		return "", &WriteError{Path: path, Err: err}
	}
	if opt.HTML {
		htmlPath := utils.ReplaceExt(path, ".html")
		doc, err := renderHTML(md)
		if err != nil {
			return "", &WriteError{Path: htmlPath, Err: err}
		}
		if err := utils.SafeWriteFile(htmlPath, doc); err != nil {
			return "", &WriteError{Path: htmlPath, Err: err}
		}
	}
	return path, nil
}

func renderHTML(md string) ([]byte, error) {
	conv := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	var body bytes.Buffer
	if err := conv.Convert([]byte(md), &body); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Automated Analysis</title>\n</head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}
