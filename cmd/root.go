package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Rosh-10/automated-analysis-project/internal/ai"
	"github.com/Rosh-10/automated-analysis-project/internal/analysis"
	cfgpkg "github.com/Rosh-10/automated-analysis-project/internal/config"
	"github.com/Rosh-10/automated-analysis-project/internal/dataset"
	"github.com/Rosh-10/automated-analysis-project/internal/logger"
	"github.com/Rosh-10/automated-analysis-project/internal/narrative"
	"github.com/Rosh-10/automated-analysis-project/internal/pipeline"
	"github.com/Rosh-10/automated-analysis-project/internal/report"
	"github.com/Rosh-10/automated-analysis-project/internal/retry"
	"github.com/Rosh-10/automated-analysis-project/internal/visual"
)

// rootOptions holds flag values for one command tree.
type rootOptions struct {
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string
	// Retry/HTTP flags (override config if set)
	httpTimeoutSec   int
	retryMaxAttempts int
	retryBaseDelayMs int
	retryMaxDelayMs  int

	// Run flags
	outputDir       string
	model           string
	apiURL          string
	encoding        string
	delimiter       string
	decimal         string
	thousands       string
	sheet           string
	noPairplot      bool
	jpegQuality     int
	maxPromptTokens int
	fallback        bool
	html            bool
}

// Execute is the entry point called by main.main()
func Execute() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:   "autolysis <file> [output-dir]",
		Short: "Profile a CSV dataset and write an AI-narrated report",
		Long: `autolysis loads a CSV (any common encoding) or .xlsx file, computes descriptive
statistics, missing-value counts and correlations, renders distribution charts,
asks a language model for a narrative and writes README.md to the output directory.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.RangeArgs(1, 2)(cmd, args); err != nil {
				return &usageError{err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				if cmd.Flags().Changed("output-dir") {
					return &usageError{fmt.Errorf("output directory given both as argument and --output-dir")}
				}
				if err := cmd.Flags().Set("output-dir", args[1]); err != nil {
					return &usageError{err}
				}
			}
			return o.run(cmd, args[0])
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return &usageError{err} })

	pf := root.PersistentFlags()
	pf.StringVar(&o.cfgFile, "config", "", "config file (default is ~/.autolysis/config.yaml)")
	pf.BoolVar(&o.debug, "debug", false, "enable debug logging")
	pf.StringVar(&o.logFormat, "log-format", "", "log format: console or json (overrides config)")
	pf.IntVar(&o.httpTimeoutSec, "http-timeout", 0, "per-attempt HTTP timeout in seconds (overrides config)")
	pf.IntVar(&o.retryMaxAttempts, "retry-max", 0, "max narrative attempts on transport/5xx errors (overrides config)")
	pf.IntVar(&o.retryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	pf.IntVar(&o.retryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")

	f := root.Flags()
	f.StringVarP(&o.outputDir, "output-dir", "o", "", "directory for charts and the report (default \"output\")")
	f.StringVar(&o.model, "model", "", "model name (overrides config)")
	f.StringVar(&o.apiURL, "api-url", "", "chat-completions endpoint URL (overrides config)")
	f.StringVar(&o.encoding, "encoding", "", "input charset, e.g. windows-1252 (default: detect)")
	f.StringVar(&o.delimiter, "delimiter", "", "field delimiter: ',', ';', 'tab' or '|' (default: by extension)")
	f.StringVar(&o.decimal, "decimal", "", "decimal separator for numbers: '.' or 'comma'")
	f.StringVar(&o.thousands, "thousands", "", "thousands separator: ',', '.' or 'space'")
	f.StringVar(&o.sheet, "sheet", "", "worksheet name for .xlsx input (default: first sheet)")
	f.BoolVar(&o.noPairplot, "no-pairplot", false, "skip the pairplot grid")
	f.IntVar(&o.jpegQuality, "jpeg-quality", 0, "JPEG quality 1-100 for charts; 0 keeps PNG (overrides config)")
	f.IntVar(&o.maxPromptTokens, "max-prompt-tokens", 0, "approximate prompt token budget (overrides config)")
	f.BoolVar(&o.fallback, "fallback", false, "write a placeholder narrative when the model is unreachable")
	f.BoolVar(&o.html, "html", false, "also render README.html")

	root.AddCommand(newConfigCmd(o))
	return root
}

func (o *rootOptions) run(cmd *cobra.Command, input string) error {
	cfg, err := cfgpkg.Load(o.cfgFile)
	if err != nil {
		return &configError{err}
	}
	o.applyOverrides(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return &configError{err}
	}
	loadOpt, anaOpt, err := o.parseInputOptions()
	if err != nil {
		return &usageError{err}
	}

	runID := uuid.NewString()
	log := logger.NewStructured(cfg.LogLevel, cfg.LogFormat).WithFields(map[string]interface{}{"run_id": runID})
	defer func() { _ = log.Sync() }()
	log.Debug("configuration resolved", map[string]interface{}{
		"api_url":    cfg.APIURL,
		"model":      cfg.Model,
		"output_dir": cfg.OutputDir,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := ai.NewClient(cfg.APIToken, cfg.APIURL, time.Duration(cfg.HTTPTimeoutSec)*time.Second)
	policy := retry.Default()
	policy.MaxAttempts = cfg.RetryMaxAttempts
	policy.BaseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
	policy.MaxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
	policy.Jitter = cfg.RetryJitter
	nar := narrative.New(client, policy, narrative.Options{
		Model:             cfg.Model,
		MaxPromptTokens:   cfg.MaxPromptTokens,
		MaxResponseTokens: cfg.MaxResponseTokens,
		Fallback:          cfg.NarrativeFallback,
	}, log)

	runner := pipeline.New(pipeline.Config{
		Input:     input,
		OutputDir: cfg.OutputDir,
		Load:      loadOpt,
		Analysis:  anaOpt,
		Visual: visual.Options{
			Pairplot:           cfg.Pairplot,
			MaxPairplotColumns: cfg.MaxPairplotColumns,
			JPEGQuality:        cfg.JPEGQuality,
		},
		Report: report.Options{HTML: cfg.ReportHTML},
	}, nar, visual.NewChartRenderer(cfg.ChartWidth, cfg.ChartHeight), log)

	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Analyzed %s (%d rows, %d columns, encoding %s)\n", res.Dataset, res.Rows, res.Columns, res.Encoding)
	for _, a := range res.Artifacts {
		fmt.Fprintf(out, "✓ Wrote %s\n", a.Path)
	}
	fmt.Fprintf(out, "✓ Wrote %s\n", res.ProfilePath)
	fmt.Fprintf(out, "✓ Wrote %s\n", res.ReportPath)
	errOut := cmd.ErrOrStderr()
	for _, w := range res.VisualWarnings {
		fmt.Fprintf(errOut, "⚠ Warning: %v\n", w)
	}
	if res.Narrative != nil && res.Narrative.Fallback {
		fmt.Fprintln(errOut, "⚠ Warning: narrative service unavailable; report contains the fallback text")
	}
	return nil
}

// applyOverrides copies explicitly set flags onto cfg (flags > env > file > defaults).
func (o *rootOptions) applyOverrides(f *pflag.FlagSet, cfg *cfgpkg.Global) {
	if f.Changed("http-timeout") && o.httpTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = o.httpTimeoutSec
	}
	if f.Changed("retry-max") && o.retryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = o.retryMaxAttempts
	}
	if f.Changed("retry-base-ms") && o.retryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = o.retryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && o.retryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = o.retryMaxDelayMs
	}
	if f.Changed("output-dir") && o.outputDir != "" {
		cfg.OutputDir = o.outputDir
	}
	if f.Changed("model") && o.model != "" {
		cfg.Model = o.model
	}
	if f.Changed("api-url") && o.apiURL != "" {
		cfg.APIURL = o.apiURL
	}
	if f.Changed("jpeg-quality") {
		cfg.JPEGQuality = o.jpegQuality
	}
	if f.Changed("max-prompt-tokens") && o.maxPromptTokens > 0 {
		cfg.MaxPromptTokens = o.maxPromptTokens
	}
	if o.noPairplot {
		cfg.Pairplot = false
	}
	if o.fallback {
		cfg.NarrativeFallback = true
	}
	if o.html {
		cfg.ReportHTML = true
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	if o.debug {
		cfg.LogLevel = "debug"
	}
}

func (o *rootOptions) parseInputOptions() (dataset.Options, analysis.Options, error) {
	loadOpt := dataset.Options{Encoding: strings.TrimSpace(o.encoding), Sheet: o.sheet}
	anaOpt := analysis.DefaultOptions()

	switch o.delimiter {
	case "":
	case ",":
		loadOpt.Delimiter = ','
	case "\t", "tab":
		loadOpt.Delimiter = '\t'
	case ";":
		loadOpt.Delimiter = ';'
	case "|", "pipe":
		loadOpt.Delimiter = '|'
	default:
		return loadOpt, anaOpt, fmt.Errorf("unsupported --delimiter: %s", o.delimiter)
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(o.decimal)) {
	case ",", "comma":
		anaOpt.DecimalSeparator = ','
	case ".", "dot":
		anaOpt.DecimalSeparator = '.'
	case "":
	default:
		return loadOpt, anaOpt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", o.decimal)
	}
	switch strings.ToLower(o.thousands) {
	case ",":
		anaOpt.ThousandsSeparator = ','
	case ".":
		anaOpt.ThousandsSeparator = '.'
	case "space", " ":
		anaOpt.ThousandsSeparator = ' '
	case "":
	default:
		return loadOpt, anaOpt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", o.thousands)
	}
	if anaOpt.DecimalSeparator != 0 && anaOpt.DecimalSeparator == anaOpt.ThousandsSeparator {
		return loadOpt, anaOpt, fmt.Errorf("--decimal and --thousands must differ")
	}
	return loadOpt, anaOpt, nil
}
