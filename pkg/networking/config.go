package networking

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/jmnetworking/go-networking/pkg/client"
	"github.com/jmnetworking/go-networking/pkg/client/trace"
)

// EnvPrefix of environment variables read by LoadConfig, for example JM_NETWORKING_TIMEOUT=10s.
const EnvPrefix = "JM_NETWORKING"

const DefaultTimeout = 30 * time.Second

// Config of the default Network.
type Config struct {
	Timeout   time.Duration `envconfig:"TIMEOUT" default:"30s"`
	UserAgent string        `envconfig:"USER_AGENT" default:"jmnetworking-go"`
	// MaxConnsPerHost limits the connection pool shared by all requests of the Network.
	MaxConnsPerHost int  `envconfig:"MAX_CONNS_PER_HOST" default:"32"`
	ForceHTTP2      bool `envconfig:"FORCE_HTTP2" default:"false"`
	// Dump all requests and responses to stderr, credential headers are masked, but bodies are not, do not use it in production.
	Dump bool `envconfig:"DUMP" default:"false"`
}

// DefaultConfig returns the configuration used when no environment variable is set.
func DefaultConfig() Config {
	return Config{Timeout: DefaultTimeout, UserAgent: client.DefaultUserAgent, MaxConnsPerHost: client.MaxConnectionsPerHost}
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("cannot load networking config: %w", err)
	}
	return cfg, nil
}

// Options converts the configuration to Network options.
func (c Config) Options() []Option {
	opts := []Option{
		WithTimeout(c.Timeout),
		WithTransport(client.NewTransport(client.TransportConfig{
			MaxConnsPerHost: c.MaxConnsPerHost,
			ForceHTTP2:      c.ForceHTTP2,
		})),
	}
	if c.UserAgent != "" {
		opts = append(opts, WithUserAgent(c.UserAgent))
	}
	if c.Dump {
		opts = append(opts, WithTrace(trace.DumpTracer(os.Stderr)))
	}
	return opts
}

// NewFromEnv creates a Network configured from environment variables, opts are applied after the configuration.
func NewFromEnv(opts ...Option) (*Network, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(append(cfg.Options(), opts...)...), nil
}
