package storefront

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/ArnaudHalvick/storefront-go/pkg/config"
	"github.com/ArnaudHalvick/storefront-go/pkg/httpclient"
)

// Config holds all configuration for the storefront client. Every recognized
// option is enumerated here with its default; nothing is merged from dynamic
// option bags.
type Config struct {
	// BaseURL is the API root every request path is resolved against.
	BaseURL string `env:"STOREFRONT_BASE_URL" envDefault:"http://localhost:4000/api"`

	// RequestTimeout is the fixed client-side deadline applied to every
	// request. On expiry the request resolves into a typed timeout error
	// and is not retried.
	RequestTimeout time.Duration `env:"STOREFRONT_REQUEST_TIMEOUT" envDefault:"10s"`

	// TokenHeader is the header carrying the bearer credential.
	TokenHeader string `env:"STOREFRONT_TOKEN_HEADER" envDefault:"auth-token"`

	// RefreshSkew triggers a proactive token refresh when the stored JWT
	// expires within this window. Zero disables proactive refresh; the
	// 401-driven path still works.
	RefreshSkew time.Duration `env:"STOREFRONT_REFRESH_SKEW" envDefault:"30s"`

	// RateLimit caps outgoing requests per second. Zero means unlimited.
	RateLimit float64 `env:"STOREFRONT_RATE_LIMIT" envDefault:"0"`

	// RateBurst is the burst size allowed on top of RateLimit.
	RateBurst int `env:"STOREFRONT_RATE_BURST" envDefault:"20"`

	// CircuitBreaker shields the backend from request storms while it is
	// failing. Open-circuit rejections classify as network errors.
	CircuitBreaker bool `env:"STOREFRONT_CIRCUIT_BREAKER" envDefault:"false"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP configures the underlying transport. A zero value falls back
	// to httpclient.DefaultConfig.
	HTTP httpclient.Config `env:"-"`
}

// DefaultConfig returns the client defaults without consulting the
// environment.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:4000/api",
		RequestTimeout: 10 * time.Second,
		TokenHeader:    "auth-token",
		RefreshSkew:    30 * time.Second,
		RateBurst:      20,
		LogLevel:       "info",
	}
}

// LoadConfig reads configuration from environment variables. Invariants are
// checked through the loader's Validator hook.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := pkgconfig.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("load storefront config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL: %q", c.BaseURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.TokenHeader == "" {
		return fmt.Errorf("token header must not be empty")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %f", c.RateLimit)
	}
	return nil
}
