package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NETBOX_FILE_SHIM", "inventory.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:19703" {
		t.Errorf("Addr() = %q, want 0.0.0.0:19703", cfg.Server.Addr())
	}
	if cfg.RESTCONF.Retries != 8 {
		t.Errorf("Retries = %d, want 8", cfg.RESTCONF.Retries)
	}
	if cfg.RESTCONF.Backoff != time.Second {
		t.Errorf("Backoff = %v, want 1s", cfg.RESTCONF.Backoff)
	}
	if !cfg.RESTCONF.TLSVerify {
		t.Error("RESTCONF TLS verification should default to on")
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Errorf("Driver = %q, want sqlite3", cfg.Database.Driver)
	}
	if !cfg.UseFileShim() {
		t.Error("UseFileShim() = false, want true")
	}
	if cfg.AdminEnabled() {
		t.Error("AdminEnabled() = true without key or issuer")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			NetBox:   NetBoxConfig{URL: "https://netbox.example.com", Token: "abc"},
			RESTCONF: RESTCONFConfig{Username: "admin", Password: "secret", Scheme: "https"},
			Database: DatabaseConfig{Driver: "sqlite3"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"file shim replaces netbox credentials", func(c *Config) {
			c.NetBox = NetBoxConfig{FileShim: "inventory.json"}
		}, false},
		{"missing netbox url", func(c *Config) { c.NetBox.URL = "" }, true},
		{"missing netbox token", func(c *Config) { c.NetBox.Token = "" }, true},
		{"missing device password", func(c *Config) { c.RESTCONF.Password = "" }, true},
		{"bad scheme", func(c *Config) { c.RESTCONF.Scheme = "ftp" }, true},
		{"bad port", func(c *Config) { c.RESTCONF.Port = 70000 }, true},
		{"memory journal", func(c *Config) { c.Database.Driver = "memory" }, false},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"negative retention", func(c *Config) { c.Database.Retention = -time.Hour }, true},
		{"oidc without client id", func(c *Config) { c.Admin.OIDCIssuerURL = "https://idp.example.com" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
