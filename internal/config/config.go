// Package config declares the application configuration tree and its
// defaults. Values layer in the usual order: built-in defaults, config.yaml,
// environment variables with the REGFLOW_ prefix, then command-line flags.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the root of the configuration tree.
type Config struct {
	Logger       LoggerConfig       `mapstructure:"logger"`
	Browser      BrowserConfig      `mapstructure:"browser"`
	Motion       MotionConfig       `mapstructure:"motion"`
	Retry        RetryConfig        `mapstructure:"retry"`
	Mail         MailConfig         `mapstructure:"mail"`
	Workflow     WorkflowConfig     `mapstructure:"workflow"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Generator    GeneratorConfig    `mapstructure:"generator"`
}

// LoggerConfig controls the console and file log sinks.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	ServiceName string `mapstructure:"service_name"`
	AddSource   bool   `mapstructure:"add_source"`

	// LogFile enables a JSON file sink with rotation when non-empty.
	LogFile    string `mapstructure:"log_file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// BrowserConfig shapes the Chrome sessions and the humanlike input layer.
type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless"`
	WindowWidth    int           `mapstructure:"window_width"`
	WindowHeight   int           `mapstructure:"window_height"`
	ActionTimeout  time.Duration `mapstructure:"action_timeout"`
	StartRetries   int           `mapstructure:"start_retries"`
	StartRetryWait time.Duration `mapstructure:"start_retry_wait"`

	// Speed divides every human pause; 2.0 runs twice as fast.
	Speed       float64 `mapstructure:"speed"`
	DebugCursor bool    `mapstructure:"debug_cursor"`
}

// MotionConfig shapes synthesized cursor trajectories.
type MotionConfig struct {
	SpeedFactor       float64 `mapstructure:"speed_factor"`
	ZigzagProbability float64 `mapstructure:"zigzag_probability"`
	MinNodes          int     `mapstructure:"min_nodes"`
	MaxNodes          int     `mapstructure:"max_nodes"`
	VarianceFactor    float64 `mapstructure:"variance_factor"`
	MaxVariance       float64 `mapstructure:"max_variance"`
	SamplesPerPath    int     `mapstructure:"samples_per_path"`
}

// RetryConfig shapes the per-action retry policy.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	Exponential bool          `mapstructure:"exponential"`
}

// MailConfig locates the IMAP mailbox that receives verification codes.
// Credentials come from the environment or a .env file, never config.yaml.
type MailConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Mailbox  string `mapstructure:"mailbox"`

	// Sender filters candidate messages to the expected origin address.
	Sender           string        `mapstructure:"sender"`
	SubjectPattern   string        `mapstructure:"subject_pattern"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	MaxConnections   int           `mapstructure:"max_connections"`
	FetchesPerSecond float64       `mapstructure:"fetches_per_second"`
}

// WorkflowConfig tunes the account-creation state machine.
type WorkflowConfig struct {
	MaxOTPRetries   int           `mapstructure:"max_otp_retries"`
	CodeWaitTimeout time.Duration `mapstructure:"code_wait_timeout"`
	SettleWait      time.Duration `mapstructure:"settle_wait"`
	ScreenshotDir   string        `mapstructure:"screenshot_dir"`

	// SearchQuery and VerifiedURLSubstring are the site knobs that change
	// often enough to live in configuration; selectors keep their built-in
	// defaults.
	SearchQuery          string `mapstructure:"search_query"`
	VerifiedURLSubstring string `mapstructure:"verified_url_substring"`
}

// OrchestratorConfig tunes the concurrent batch run.
type OrchestratorConfig struct {
	Parallel     int           `mapstructure:"parallel"`
	StaggerDelay time.Duration `mapstructure:"stagger_delay"`
	// MaxProxySwaps optionally caps proxy-failure retries per account.
	// Zero keeps retrying until the pool exhausts or the run is cancelled.
	MaxProxySwaps int `mapstructure:"max_proxy_swaps"`

	AccountsFile string `mapstructure:"accounts_file"`
	ProxyFile    string `mapstructure:"proxy_file"`
	ResultsFile  string `mapstructure:"results_file"`
	// RotatingProxies marks the pool as rotating gateways, which are never
	// quarantined on failure.
	RotatingProxies bool `mapstructure:"rotating_proxies"`
}

// GeneratorConfig tunes identity generation.
type GeneratorConfig struct {
	Domain               string `mapstructure:"domain"`
	UsernameSuffixDigits int    `mapstructure:"username_suffix_digits"`
}

// SetDefaults registers every default on the viper instance. Config files
// and environment variables only need to name what they change.
func SetDefaults(v *viper.Viper) {
	// Every key needs a registered default, even an empty one: viper's
	// AutomaticEnv only resolves keys it already knows about.
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "regflow")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", false)

	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 900)
	v.SetDefault("browser.action_timeout", "20s")
	v.SetDefault("browser.start_retries", 2)
	v.SetDefault("browser.start_retry_wait", "2s")
	v.SetDefault("browser.speed", 1.0)
	v.SetDefault("browser.debug_cursor", false)

	v.SetDefault("motion.speed_factor", 0.5)
	v.SetDefault("motion.zigzag_probability", 0.75)
	v.SetDefault("motion.min_nodes", 2)
	v.SetDefault("motion.max_nodes", 15)
	v.SetDefault("motion.variance_factor", 0.15)
	v.SetDefault("motion.max_variance", 100)
	v.SetDefault("motion.samples_per_path", 100)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "1s")
	v.SetDefault("retry.max_delay", "10s")
	v.SetDefault("retry.exponential", true)

	v.SetDefault("mail.addr", "")
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.sender", "")
	v.SetDefault("mail.mailbox", "INBOX")
	v.SetDefault("mail.subject_pattern", `(?i)code[:\s]*(\d{6})`)
	v.SetDefault("mail.poll_interval", "5s")
	v.SetDefault("mail.max_connections", 3)
	v.SetDefault("mail.fetches_per_second", 2)

	v.SetDefault("workflow.max_otp_retries", 3)
	v.SetDefault("workflow.code_wait_timeout", "20s")
	v.SetDefault("workflow.settle_wait", "10s")
	v.SetDefault("workflow.screenshot_dir", ".")
	v.SetDefault("workflow.search_query", "")
	v.SetDefault("workflow.verified_url_substring", "")

	v.SetDefault("orchestrator.parallel", 3)
	v.SetDefault("orchestrator.stagger_delay", "3s")
	v.SetDefault("orchestrator.max_proxy_swaps", 0)
	v.SetDefault("orchestrator.accounts_file", "accounts.csv")
	v.SetDefault("orchestrator.proxy_file", "")
	v.SetDefault("orchestrator.results_file", "results.csv")
	v.SetDefault("orchestrator.rotating_proxies", false)

	v.SetDefault("generator.domain", "example.com")
	v.SetDefault("generator.username_suffix_digits", 4)
}

// Load unmarshals the viper tree into a Config and expands ~ in every path
// field. A .env file in the working directory is folded into the process
// environment first so IMAP credentials can live there.
func Load(v *viper.Viper) (Config, error) {
	// Missing .env is the common case, not an error.
	_ = godotenv.Load()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	for _, p := range []*string{
		&cfg.Logger.LogFile,
		&cfg.Workflow.ScreenshotDir,
		&cfg.Orchestrator.AccountsFile,
		&cfg.Orchestrator.ProxyFile,
		&cfg.Orchestrator.ResultsFile,
	} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return Config{}, fmt.Errorf("config: expand path %q: %w", *p, err)
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the run could not survive.
func (c Config) Validate() error {
	if c.Orchestrator.Parallel < 1 {
		return fmt.Errorf("config: orchestrator.parallel must be >= 1, got %d", c.Orchestrator.Parallel)
	}
	if c.Orchestrator.StaggerDelay < 0 {
		return fmt.Errorf("config: orchestrator.stagger_delay must be >= 0")
	}
	if c.Browser.Speed <= 0 {
		return fmt.Errorf("config: browser.speed must be > 0, got %v", c.Browser.Speed)
	}
	if c.Workflow.MaxOTPRetries < 0 {
		return fmt.Errorf("config: workflow.max_otp_retries must be >= 0")
	}
	if c.Mail.PollInterval <= 0 {
		return fmt.Errorf("config: mail.poll_interval must be > 0")
	}
	return nil
}
