package app

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// UpstreamBaseURL points at the produce API that owns all persistent data.
	UpstreamBaseURL string `envconfig:"UPSTREAM_BASE_URL" default:"http://127.0.0.1:5000"`
	// UpstreamTenant overrides the per-session tenant database name when set.
	UpstreamTenant       string        `envconfig:"UPSTREAM_TENANT" default:""`
	UpstreamBypassTunnel bool          `envconfig:"UPSTREAM_BYPASS_TUNNEL" default:"true"`
	UpstreamTimeout      time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	CSRFSecret    string        `envconfig:"CSRF_SECRET" default:""`

	LookupTTL      time.Duration `envconfig:"LOOKUP_TTL" default:"30m"`
	DebounceWindow time.Duration `envconfig:"DEBOUNCE_WINDOW" default:"500ms"`
	// BoardIdleTTL bounds how long a session's dashboard state is kept in
	// memory after its last request; sessions rarely log out explicitly.
	BoardIdleTTL time.Duration `envconfig:"BOARD_IDLE_TTL" default:"2h"`

	GotenbergURL string `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`

	// ReportSettleDelay is waited between swapping trend data and capturing
	// a chart during batch report runs so the rendered frame is current.
	ReportSettleDelay time.Duration `envconfig:"REPORT_SETTLE_DELAY" default:"1500ms"`
	ReportOutputDir   string        `envconfig:"REPORT_OUTPUT_DIR" default:"./reports"`
}

// LoadConfig reads configuration from a local .env file and the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.UpstreamBaseURL == "" {
		return nil, errors.New("upstream base url must be provided")
	}
	if cfg.CSRFSecret == "" {
		cfg.CSRFSecret = cfg.SessionSecret
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
