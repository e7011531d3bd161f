package app

import (
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
)

// Config holds the client configuration, loadable from environment variables
// (FRESHO_ prefix), flags, or YAML config files.
type Config struct {
	Catalog  CatalogConfig
	Session  SessionConfig
	Scanner  ScannerConfig
	Fallback FallbackConfig
	Status   StatusConfig
	Graceful GracefulConfig
}

// CatalogConfig points at the product service.
type CatalogConfig struct {
	BaseURL         string        `default:"http://localhost:8080/api" usage:"Product service base URL" validate:"required,url"`
	StoreLocationID string        `default:"RLC_40" usage:"Store location sent with every page request" validate:"required"`
	PageSize        int           `default:"20" usage:"Products per page" validate:"min=1,max=200"`
	Timeout         time.Duration `default:"15s" usage:"Page request timeout" validate:"gt=0"`
	Dedupe          bool          `default:"false" usage:"Drop products repeated across pages"`
}

// SessionConfig controls login and session storage.
type SessionConfig struct {
	Secret       string        `default:"fresho-dev-secret-change-me" usage:"HMAC secret for session tokens" validate:"min=16"`
	TTL          time.Duration `default:"24h" usage:"Session lifetime" validate:"gt=0"`
	DemoEmail    string        `default:"test@gmail.com" usage:"Email of the demo account" validate:"required,email"`
	DemoPassword string        `default:"Test@123" usage:"Password of the demo account" validate:"required"`
	BcryptCost   int           `default:"10" usage:"bcrypt cost for account hashes" validate:"min=4,max=31"`
	Store        string        `default:"memory" usage:"Session store: memory or redis" validate:"oneof=memory redis"`
	Redis        RedisConfig
}

// RedisConfig is used when SessionConfig.Store is redis.
type RedisConfig struct {
	Addr     string `default:"localhost:6379" usage:"Redis address"`
	Password string `usage:"Redis password"`
	DB       int    `default:"0" usage:"Redis database" validate:"min=0"`
	Prefix   string `default:"fresho:" usage:"Key prefix"`
}

// ScannerConfig tunes the barcode scanner.
type ScannerConfig struct {
	Cooldown time.Duration `default:"3s" usage:"Pause after a resolved scan" validate:"gte=0"`
}

// FallbackConfig selects how placeholder images are chosen.
type FallbackConfig struct {
	Random bool `default:"false" usage:"Draw placeholders at random instead of hashing the product ID"`
}

// StatusConfig controls the local status HTTP server.
type StatusConfig struct {
	Addr string `default:"127.0.0.1:8081" usage:"Status server listen address, empty to disable"`
}

// GracefulConfig controls shutdown timing.
type GracefulConfig struct {
	ShutdownTimeout time.Duration `default:"10s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "FRESHO",
		Files:     []string{"config.yaml", "/etc/fresho/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	if c.Session.Store == "redis" && c.Session.Redis.Addr == "" {
		return errors.New("invalid config: redis session store needs an address")
	}
	return nil
}
