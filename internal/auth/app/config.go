package app

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full service configuration, loaded from the environment.
type Config struct {
	Issuer       string `env:"KEYWARDEN_ISSUER" env-default:"keywarden" env-description:"issuer claim for access tokens"`
	CoreAudience string `env:"KEYWARDEN_CORE_AUDIENCE" env-default:"keywarden-core" env-description:"fixed audience added alongside the tenant"`

	Algorithm          string `env:"KEYWARDEN_ALGORITHM" env-default:"EdDSA" env-description:"signing algorithm (RS256, ES256, EdDSA)"`
	SigningKeyID       string `env:"KEYWARDEN_SIGNING_KID" env-default:"primary" env-description:"kid header stamped on tokens"`
	SigningKeyFile     string `env:"KEYWARDEN_SIGNING_KEY_FILE" env-required:"true" env-description:"path to the PEM private signing key"`
	SigningKeyPassword string `env:"KEYWARDEN_SIGNING_KEY_PASSWORD" env-description:"password when the PEM block is encrypted"`

	DatabaseDriver string `env:"KEYWARDEN_DB_DRIVER" env-default:"sqlite" env-description:"store driver (sqlite, postgres)"`
	DatabaseFile   string `env:"KEYWARDEN_DATABASE_FILE" env-default:"keywarden.db" env-description:"sqlite database file"`
	DatabaseURL    string `env:"KEYWARDEN_DATABASE_URL" env-description:"postgres connection string (postgres driver only)"`
	PepperFile     string `env:"KEYWARDEN_PEPPER_FILE" env-default:"pepper" env-description:"file holding the hashing pepper"`

	AccessTokenTTL time.Duration `env:"KEYWARDEN_ACCESS_TTL" env-default:"5m"`

	Env                  string        `env:"ENV" env-default:"dev"`
	LogLevel             string        `env:"LOG_LEVEL" env-default:"info"`
	LogFormat            string        `env:"LOG_FORMAT" env-default:"json"`
	Port                 int           `env:"PORT" env-default:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" env-default:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" env-default:"1h"`
}

// LoadConfig reads the configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
