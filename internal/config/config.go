package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	NetBox   NetBoxConfig
	RESTCONF RESTCONFConfig
	Database DatabaseConfig
	Admin    AdminConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"19703"`
}

// NetBoxConfig holds NetBox API configuration.
type NetBoxConfig struct {
	URL       string        `env:"NETBOX_URL"`
	Token     string        `env:"NETBOX_TOKEN"`
	TokenType string        `env:"NETBOX_TOKEN_TYPE" envDefault:"Token"`
	TLSVerify bool          `env:"NETBOX_TLS_VERIFY" envDefault:"true"`
	Timeout   time.Duration `env:"NETBOX_TIMEOUT" envDefault:"30s"`
	FileShim  string        `env:"NETBOX_FILE_SHIM"` // Path to JSON inventory for testing (disables real API)
}

// RESTCONFConfig holds device access configuration.
type RESTCONFConfig struct {
	Username  string        `env:"RESTCONF_USERNAME"`
	Password  string        `env:"RESTCONF_PASSWORD"`
	TLSVerify bool          `env:"RESTCONF_TLS_VERIFY" envDefault:"true"`
	Scheme    string        `env:"RESTCONF_SCHEME" envDefault:"https"`
	Port      int           `env:"RESTCONF_PORT" envDefault:"0"`
	Timeout   time.Duration `env:"RESTCONF_TIMEOUT" envDefault:"30s"`
	Retries   uint64        `env:"RESTCONF_RETRIES" envDefault:"8"`
	Backoff   time.Duration `env:"RESTCONF_BACKOFF" envDefault:"1s"`
}

// DatabaseConfig holds event journal configuration.
type DatabaseConfig struct {
	Driver    string        `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN       string        `env:"DB_DSN" envDefault:"data/events.db"`
	Retention time.Duration `env:"JOURNAL_RETENTION" envDefault:"168h"`
}

// AdminConfig holds authentication for the journal API. With neither a key
// nor an OIDC issuer the admin API is not mounted.
type AdminConfig struct {
	APIKey        string `env:"ADMIN_API_KEY"`
	OIDCIssuerURL string `env:"OIDC_ISSUER_URL"`
	OIDCClientID  string `env:"OIDC_CLIENT_ID"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.NetBox); err != nil {
		return nil, fmt.Errorf("parsing netbox config: %w", err)
	}
	if err := env.Parse(&cfg.RESTCONF); err != nil {
		return nil, fmt.Errorf("parsing restconf config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if err := env.Parse(&cfg.Admin); err != nil {
		return nil, fmt.Errorf("parsing admin config: %w", err)
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// If using file shim, NetBox credentials are not required
	if c.NetBox.FileShim == "" {
		if c.NetBox.URL == "" {
			return fmt.Errorf("NETBOX_URL is required (or set NETBOX_FILE_SHIM for testing)")
		}
		if c.NetBox.Token == "" {
			return fmt.Errorf("NETBOX_TOKEN is required (or set NETBOX_FILE_SHIM for testing)")
		}
	}

	if c.RESTCONF.Username == "" || c.RESTCONF.Password == "" {
		return fmt.Errorf("RESTCONF_USERNAME and RESTCONF_PASSWORD are required")
	}
	switch c.RESTCONF.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("RESTCONF_SCHEME must be http or https, got %q", c.RESTCONF.Scheme)
	}
	if c.RESTCONF.Port < 0 || c.RESTCONF.Port > 65535 {
		return fmt.Errorf("RESTCONF_PORT out of range: %d", c.RESTCONF.Port)
	}

	switch c.Database.Driver {
	case "sqlite3", "postgres", "memory":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite3, postgres or memory, got %q", c.Database.Driver)
	}
	if c.Database.Retention < 0 {
		return fmt.Errorf("JOURNAL_RETENTION must not be negative")
	}

	if c.Admin.OIDCIssuerURL != "" && c.Admin.OIDCClientID == "" {
		return fmt.Errorf("OIDC_CLIENT_ID is required when OIDC_ISSUER_URL is set")
	}

	return nil
}

// UseFileShim returns true if the file shim should be used instead of the real API.
func (c *Config) UseFileShim() bool {
	return c.NetBox.FileShim != ""
}

// AdminEnabled returns true if the journal API should be served.
func (c *Config) AdminEnabled() bool {
	return c.Admin.APIKey != "" || c.Admin.OIDCIssuerURL != ""
}
