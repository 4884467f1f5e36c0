package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rosh-10/automated-analysis-project/internal/ai"
	"github.com/Rosh-10/automated-analysis-project/internal/config"
	"github.com/Rosh-10/automated-analysis-project/internal/dataset"
	"github.com/Rosh-10/automated-analysis-project/internal/narrative"
	"github.com/Rosh-10/automated-analysis-project/internal/report"
)

// isolate points config lookups at an empty home and clears credentials.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.TokenEnv, "")
	t.Setenv("AUTOLYSIS_API_TOKEN", "")
}

func execute(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), ExitCode(err)
}

func chatServer(t *testing.T, status int, hits *int32) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: "# Scores\n\nScores rise with hours."}}}})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scores.csv")
	require.NoError(t, os.WriteFile(path, []byte("hours,score,team\n1,50,a\n2,55,b\n3,61,a\n4,70,b\n5,74,a\n"), 0o644))
	return path
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", &usageError{errors.New("accepts 1 arg(s)")}, ExitUsage},
		{"config", &configError{errors.New("bad yaml")}, ExitConfig},
		{"missing token", config.ErrMissingToken, ExitConfig},
		{"load", &dataset.LoadError{Path: "x.csv", Op: "open", Err: fs.ErrNotExist}, ExitLoad},
		{"narrative client", &narrative.ClientError{Attempts: 1, Err: errors.New("401")}, ExitNarrativeClient},
		{"narrative transport", &narrative.TransportError{Attempts: 5, Err: errors.New("503")}, ExitNarrativeTransport},
		{"write", &report.WriteError{Path: "out/README.md", Err: fs.ErrPermission}, ExitWrite},
		{"wrapped load", fmt.Errorf("run: %w", &dataset.LoadError{Path: "x", Op: "parse", Err: errors.New("bad")}), ExitLoad},
		{"other", errors.New("boom"), ExitFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}

func TestRootRequiresOneArgument(t *testing.T) {
	isolate(t)
	_, _, code := execute(t)
	assert.Equal(t, ExitUsage, code)

	_, _, code = execute(t, "a.csv", "out", "extra")
	assert.Equal(t, ExitUsage, code)

	_, _, code = execute(t, "-o", "x", "a.csv", "out")
	assert.Equal(t, ExitUsage, code)
}

func TestOutputDirPositional(t *testing.T) {
	isolate(t)
	t.Setenv(config.TokenEnv, "secret")
	var hits int32
	out := filepath.Join(t.TempDir(), "positional")
	_, _, code := execute(t, "--api-url", chatServer(t, http.StatusOK, &hits), writeCSV(t), out)
	require.Equal(t, ExitSuccess, code)
	assert.FileExists(t, filepath.Join(out, "README.md"))
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	isolate(t)
	_, _, code := execute(t, "--no-such-flag", "a.csv")
	assert.Equal(t, ExitUsage, code)
}

func TestMissingTokenFailsBeforeReadingData(t *testing.T) {
	isolate(t)
	out := filepath.Join(t.TempDir(), "out")
	// The input does not exist: a load error here would mean data was touched first.
	_, _, code := execute(t, "-o", out, filepath.Join(t.TempDir(), "missing.csv"))
	assert.Equal(t, ExitConfig, code)
	assert.NoDirExists(t, out)
}

func TestMissingInputIsLoadError(t *testing.T) {
	isolate(t)
	t.Setenv(config.TokenEnv, "secret")
	_, _, code := execute(t, "-o", filepath.Join(t.TempDir(), "out"), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Equal(t, ExitLoad, code)
}

func TestInvalidDelimiterIsUsageError(t *testing.T) {
	isolate(t)
	t.Setenv(config.TokenEnv, "secret")
	_, _, code := execute(t, "--delimiter", "#", writeCSV(t))
	assert.Equal(t, ExitUsage, code)
}

func TestRunWritesReport(t *testing.T) {
	isolate(t)
	t.Setenv(config.TokenEnv, "secret")
	var hits int32
	url := chatServer(t, http.StatusOK, &hits)
	out := filepath.Join(t.TempDir(), "out")

	stdout, _, code := execute(t, "--api-url", url, "-o", out, "--html", writeCSV(t))
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, int32(1), hits)

	assert.Contains(t, stdout, "✓ Analyzed scores.csv")
	assert.FileExists(t, filepath.Join(out, "README.md"))
	assert.FileExists(t, filepath.Join(out, "README.html"))
	assert.FileExists(t, filepath.Join(out, "profile.json"))
	assert.FileExists(t, filepath.Join(out, "hours_distribution.jpg"))
	assert.FileExists(t, filepath.Join(out, "score_distribution.jpg"))
	assert.FileExists(t, filepath.Join(out, "pairplot.jpg"))

	md, err := os.ReadFile(filepath.Join(out, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "Scores rise with hours.")
	assert.Contains(t, string(md), "![Pairplot](pairplot.jpg)")
}

func TestRunNoPairplotKeepsPNG(t *testing.T) {
	isolate(t)
	t.Setenv(config.TokenEnv, "secret")
	var hits int32
	out := filepath.Join(t.TempDir(), "out")

	_, _, code := execute(t, "--api-url", chatServer(t, http.StatusOK, &hits), "-o", out, "--no-pairplot", "--jpeg-quality", "0", writeCSV(t))
	require.Equal(t, ExitSuccess, code)
	assert.FileExists(t, filepath.Join(out, "hours_distribution.png"))
	assert.NoFileExists(t, filepath.Join(out, "pairplot.png"))
}

func TestRunNarrativeClientError(t *testing.T) {
	isolate(t)
	t.Setenv(config.TokenEnv, "secret")
	var hits int32
	_, _, code := execute(t, "--api-url", chatServer(t, http.StatusUnauthorized, &hits), "-o", filepath.Join(t.TempDir(), "out"), writeCSV(t))
	assert.Equal(t, ExitNarrativeClient, code)
	assert.Equal(t, int32(1), hits)
}

func TestRunNarrativeTransportError(t *testing.T) {
	isolate(t)
	t.Setenv(config.TokenEnv, "secret")
	var hits int32
	url := chatServer(t, http.StatusServiceUnavailable, &hits)
	_, _, code := execute(t, "--api-url", url, "--retry-max", "2", "--retry-base-ms", "1", "--retry-max-ms", "2", "-o", filepath.Join(t.TempDir(), "out"), writeCSV(t))
	assert.Equal(t, ExitNarrativeTransport, code)
	assert.Equal(t, int32(2), hits)
}

func TestRunFallbackNarrative(t *testing.T) {
	isolate(t)
	t.Setenv(config.TokenEnv, "secret")
	var hits int32
	url := chatServer(t, http.StatusBadGateway, &hits)
	out := filepath.Join(t.TempDir(), "out")
	_, stderr, code := execute(t, "--api-url", url, "--retry-max", "1", "--fallback", "-o", out, writeCSV(t))
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stderr, "fallback")

	md, err := os.ReadFile(filepath.Join(out, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), narrative.FallbackNarrative)
}

func TestConfigSetAndShow(t *testing.T) {
	isolate(t)
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")

	stdout, _, code := execute(t, "--config", cfgFile, "config", "set", "api_token", "abcdefghijkl")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "Saved config")

	_, _, code = execute(t, "--config", cfgFile, "config", "set", "jpeg_quality", "55")
	require.Equal(t, ExitSuccess, code)
	_, _, code = execute(t, "--config", cfgFile, "config", "set", "max_response_tokens", "800")
	require.Equal(t, ExitSuccess, code)

	stdout, _, code = execute(t, "--config", cfgFile, "config", "show")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "api_token: abc****jkl")
	assert.Contains(t, stdout, "jpeg_quality: 55")
	assert.Contains(t, stdout, "max_response_tokens: 800")
	assert.NotContains(t, stdout, "abcdefghijkl")
}

func TestConfigSetRejectsBadValues(t *testing.T) {
	isolate(t)
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	for _, kv := range [][2]string{
		{"jpeg_quality", "101"},
		{"retry_max_attempts", "0"},
		{"pairplot", "maybe"},
		{"log_format", "xml"},
		{"max_response_tokens", "-5"},
		{"nonsense", "1"},
	} {
		_, _, code := execute(t, "--config", cfgFile, "config", "set", kv[0], kv[1])
		assert.Equal(t, ExitUsage, code, kv[0])
	}
	assert.NoFileExists(t, cfgFile)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "******", mask("abc"))
	assert.Equal(t, "sk-****xyz", mask("sk-123456xyz"))
}
