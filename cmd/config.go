package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/Rosh-10/automated-analysis-project/internal/config"
)

func newConfigCmd(o *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View or set autolysis configuration",
	}

	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cfgpkg.Load(o.cfgFile)
			if err != nil {
				return &configError{err}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "api_token: %s\n", mask(cfg.APIToken))
			fmt.Fprintf(out, "api_url: %s\n", cfg.APIURL)
			fmt.Fprintf(out, "model: %s\n", cfg.Model)
			fmt.Fprintf(out, "output_dir: %s\n", cfg.OutputDir)
			fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
			fmt.Fprintf(out, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
			fmt.Fprintf(out, "retry_base_delay_ms: %d\n", cfg.RetryBaseDelayMs)
			fmt.Fprintf(out, "retry_max_delay_ms: %d\n", cfg.RetryMaxDelayMs)
			fmt.Fprintf(out, "retry_jitter: %t\n", cfg.RetryJitter)
			fmt.Fprintf(out, "max_prompt_tokens: %d\n", cfg.MaxPromptTokens)
			fmt.Fprintf(out, "max_response_tokens: %d\n", cfg.MaxResponseTokens)
			fmt.Fprintf(out, "narrative_fallback: %t\n", cfg.NarrativeFallback)
			fmt.Fprintf(out, "pairplot: %t\n", cfg.Pairplot)
			fmt.Fprintf(out, "max_pairplot_columns: %d\n", cfg.MaxPairplotColumns)
			fmt.Fprintf(out, "jpeg_quality: %d\n", cfg.JPEGQuality)
			fmt.Fprintf(out, "chart_width: %d\n", cfg.ChartWidth)
			fmt.Fprintf(out, "chart_height: %d\n", cfg.ChartHeight)
			fmt.Fprintf(out, "report_html: %t\n", cfg.ReportHTML)
			fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
			fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
			return nil
		},
	}

	configSetCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value and save to disk",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(2)(cmd, args); err != nil {
				return &usageError{err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cfgpkg.Load(o.cfgFile)
			if err != nil {
				return &configError{err}
			}
			if err := setKey(cfg, args[0], args[1]); err != nil {
				return &usageError{err}
			}
			if err := cfgpkg.Save(cfg, o.cfgFile); err != nil {
				return &configError{err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
			return nil
		},
	}

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	return configCmd
}

func setKey(cfg *cfgpkg.Global, key, val string) error {
	var err error
	switch key {
	case "api_token":
		cfg.APIToken = strings.TrimSpace(val)
	case "api_url":
		cfg.APIURL = val
	case "model":
		cfg.Model = val
	case "output_dir":
		cfg.OutputDir = val
	case "http_timeout_sec":
		cfg.HTTPTimeoutSec, err = positiveInt(key, val)
	case "retry_max_attempts":
		cfg.RetryMaxAttempts, err = positiveInt(key, val)
	case "retry_base_delay_ms":
		cfg.RetryBaseDelayMs, err = positiveInt(key, val)
	case "retry_max_delay_ms":
		cfg.RetryMaxDelayMs, err = positiveInt(key, val)
	case "retry_jitter":
		cfg.RetryJitter, err = parseBool(key, val)
	case "max_prompt_tokens":
		cfg.MaxPromptTokens, err = positiveInt(key, val)
	case "max_response_tokens":
		i, perr := strconv.Atoi(val)
		if perr != nil || i < 0 {
			return fmt.Errorf("invalid max_response_tokens: %v (0 leaves it to the service)", val)
		}
		cfg.MaxResponseTokens = i
	case "narrative_fallback":
		cfg.NarrativeFallback, err = parseBool(key, val)
	case "pairplot":
		cfg.Pairplot, err = parseBool(key, val)
	case "max_pairplot_columns":
		cfg.MaxPairplotColumns, err = positiveInt(key, val)
	case "jpeg_quality":
		i, perr := strconv.Atoi(val)
		if perr != nil || i < 0 || i > 100 {
			return fmt.Errorf("invalid jpeg_quality: %v (use 0..100, 0 keeps PNG)", val)
		}
		cfg.JPEGQuality = i
	case "chart_width":
		cfg.ChartWidth, err = positiveInt(key, val)
	case "chart_height":
		cfg.ChartHeight, err = positiveInt(key, val)
	case "report_html":
		cfg.ReportHTML, err = parseBool(key, val)
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "log_format":
		switch strings.ToLower(val) {
		case "console", "json":
			cfg.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use console or json)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func positiveInt(key, val string) (int, error) {
	i, err := strconv.Atoi(val)
	if err != nil || i <= 0 {
		return 0, fmt.Errorf("invalid positive int for %s: %v", key, val)
	}
	return i, nil
}

func parseBool(key, val string) (bool, error) {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %v", key, val)
	}
	return b, nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
