package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full service configuration. Values come from a YAML file
// with environment variable overrides.
type Config struct {
	Env        string     `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer HTTPServer `yaml:"http_server"`
	DB         DB         `yaml:"db"`
	Auth       AuthConfig `yaml:"auth"`
	Mail       MailConfig `yaml:"mail"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout time.Duration `yaml:"read_timeout" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type DB struct {
	URL string `yaml:"url" env:"DB_URL" env-default:"file::memory:?cache=shared"`
}

type AuthConfig struct {
	SigningKey    string        `yaml:"signing_key" env:"AUTH_SIGNING_KEY" env-required:"true"`
	Issuer        string        `yaml:"issuer" env-default:"authd"`
	TokenTTL      time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL" env-default:"12h"`
	ResetTokenTTL time.Duration `yaml:"reset_token_ttl" env-default:"20m"`
	AdminEmails   []string      `yaml:"admin_emails" env:"AUTH_ADMIN_EMAILS" env-separator:","`
}

// MailConfig configures outgoing mail. Leaving Host empty disables delivery,
// which is the expected mode for local development and tests.
type MailConfig struct {
	Host       string `yaml:"host" env:"MAIL_HOST"`
	User       string `yaml:"user" env:"MAIL_USER"`
	Password   string `yaml:"password" env:"MAIL_PASSWORD"`
	From       string `yaml:"from" env:"MAIL_FROM" env-default:"noreply@localhost"`
	Name       string `yaml:"name" env-default:"Auth Service"`
	BaseURL    string `yaml:"base_url" env:"MAIL_BASE_URL" env-default:"http://localhost:8080"`
	SkipVerify bool   `yaml:"skip_verify"`
}

// MustLoadConfig loads configuration or panics. Intended for process startup.
func MustLoadConfig(path string) *Config {
	cfg, err := LoadConfig(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfig reads the config file at path, falling back to environment
// variables only when path is empty.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from env: %w", err)
		}
		return cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return cfg, nil
}
