package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultAPIURL is the chat-completions endpoint used when none is configured.
const DefaultAPIURL = "https://aiproxy.sanand.workers.dev/openai/v1/chat/completions"

// TokenEnv is the environment variable holding the bearer credential.
const TokenEnv = "AIPROXY_TOKEN"

// ErrMissingToken is returned by Validate when no API credential is configured.
var ErrMissingToken = errors.New("API token not set: export " + TokenEnv + " (or AUTOLYSIS_API_TOKEN, or api_token in the config file)")

// Global configuration structure.
type Global struct {
	APIToken string `mapstructure:"api_token" yaml:"api_token"`
	APIURL   string `mapstructure:"api_url" yaml:"api_url"`
	Model    string `mapstructure:"model" yaml:"model"`

	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int  `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int  `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int  `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int  `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`
	RetryJitter      bool `mapstructure:"retry_jitter" yaml:"retry_jitter"`

	// Narrative
	MaxPromptTokens   int  `mapstructure:"max_prompt_tokens" yaml:"max_prompt_tokens"`
	MaxResponseTokens int  `mapstructure:"max_response_tokens" yaml:"max_response_tokens"`
	NarrativeFallback bool `mapstructure:"narrative_fallback" yaml:"narrative_fallback"`

	// Visualizations
	Pairplot           bool `mapstructure:"pairplot" yaml:"pairplot"`
	MaxPairplotColumns int  `mapstructure:"max_pairplot_columns" yaml:"max_pairplot_columns"`
	JPEGQuality        int  `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
	ChartWidth         int  `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight        int  `mapstructure:"chart_height" yaml:"chart_height"`

	// Report
	ReportHTML bool `mapstructure:"report_html" yaml:"report_html"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.autolysis/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from .env, env, config file, and defaults.
// Precedence: env > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	// .env in the working directory, like python-dotenv; never overrides real env
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("AUTOLYSIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api_token", TokenEnv, "AUTOLYSIS_API_TOKEN"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	// Defaults
	v.SetDefault("api_token", "")
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("output_dir", "output")
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("retry_max_attempts", 5)
	v.SetDefault("retry_base_delay_ms", 1000)
	v.SetDefault("retry_max_delay_ms", 16000)
	v.SetDefault("retry_jitter", true)
	v.SetDefault("max_prompt_tokens", 6000)
	v.SetDefault("max_response_tokens", 0)
	v.SetDefault("narrative_fallback", false)
	v.SetDefault("pairplot", true)
	v.SetDefault("max_pairplot_columns", 6)
	v.SetDefault("jpeg_quality", 30)
	v.SetDefault("chart_width", 800)
	v.SetDefault("chart_height", 600)
	v.SetDefault("report_html", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.APIToken = strings.TrimSpace(c.APIToken)
	return &c, nil
}

// Validate checks the settings a run depends on. It must pass before any data is read.
func (c *Global) Validate() error {
	if c.APIToken == "" {
		return ErrMissingToken
	}
	if c.APIURL == "" {
		return errors.New("api_url cannot be empty")
	}
	if c.Model == "" {
		return errors.New("model cannot be empty")
	}
	if c.JPEGQuality < 0 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be within 0..100, got %d", c.JPEGQuality)
	}
	if c.MaxResponseTokens < 0 {
		return fmt.Errorf("max_response_tokens cannot be negative, got %d", c.MaxResponseTokens)
	}
	if c.HTTPTimeoutSec <= 0 {
		return fmt.Errorf("http_timeout_sec must be positive, got %d", c.HTTPTimeoutSec)
	}
	if c.RetryMaxAttempts <= 0 {
		return fmt.Errorf("retry_max_attempts must be positive, got %d", c.RetryMaxAttempts)
	}
	return nil
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".autolysis"), nil
}
