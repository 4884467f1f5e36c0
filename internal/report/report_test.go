package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rosh-10/automated-analysis-project/internal/visual"
)

func TestWriteReplacesReport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("stale content from a previous run"), 0o644))

	r := Report{
		Narrative: "# Findings\n\nAges cluster around 30.\n",
		Artifacts: []visual.Artifact{
			{Column: "age", Path: filepath.Join(dir, "age_distribution.jpg"), Kind: visual.KindDistribution},
			{Column: "pairplot", Path: filepath.Join(dir, "pairplot.jpg"), Kind: visual.KindPairplot},
		},
	}
	path, err := Write(dir, r, Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "README.md"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(got)
	assert.True(t, strings.HasPrefix(text, "# Findings\n\nAges cluster around 30.\n"))
	assert.NotContains(t, text, "stale")
	assert.Contains(t, text, "## Visualizations")
	assert.Contains(t, text, "![age](age_distribution.jpg)")
	assert.Contains(t, text, "![Pairplot](pairplot.jpg)")

	_, err = os.Stat(filepath.Join(dir, "README.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestMarkdownWithoutArtifacts(t *testing.T) {
	assert.Equal(t, "plain text\n", Report{Narrative: "plain text"}.Markdown())
}

func TestWriteHTML(t *testing.T) {
	dir := t.TempDir()
	_, err := Write(dir, Report{Narrative: "# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"}, Options{HTML: true})
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dir, "README.html"))
	require.NoError(t, err)
	assert.Contains(t, string(got), "<h1>Title</h1>")
	assert.Contains(t, string(got), "<table>")
}

func TestWriteFailure(t *testing.T) {
	_, err := Write(filepath.Join(t.TempDir(), "missing"), Report{Narrative: "x"}, Options{})
	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Contains(t, we.Path, "README.md")
}
