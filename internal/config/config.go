package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration for tttd, stored in ~/.tttd/config.json.
// The file supports single-line // comments for documentation purposes.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Storage StorageConfig `json:"storage"`
	Auth    AuthConfig    `json:"auth"`
	Log     LogConfig     `json:"log"`
	Outlook OutlookConfig `json:"outlook"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr        string   `json:"addr"`
	CORSOrigins []string `json:"cors_origins"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	// Driver is "sqlite" or "bolt".
	Driver string `json:"driver"`
	// Path is the database file. Relative paths are resolved against ~/.tttd.
	Path string `json:"path"`
}

// AuthConfig holds token and password hashing settings.
type AuthConfig struct {
	JWTSecret  string   `json:"jwt_secret"`
	TokenTTL   Duration `json:"token_ttl"`
	BcryptCost int      `json:"bcrypt_cost"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// OutlookConfig holds Microsoft Graph / Outlook calendar sync settings.
type OutlookConfig struct {
	// TenantID is the Azure AD tenant. Use "common" for personal/multi-tenant accounts.
	TenantID string `json:"tenant_id"`
	// ClientID is the Azure app (client) ID for the OAuth2 device code flow.
	ClientID string `json:"client_id"`
	// DefaultProject is the name of the project imported events are attached to.
	DefaultProject string `json:"default_project"`
	// Timezone is the IANA timezone for event times (e.g. "Europe/Berlin"). Empty = UTC.
	Timezone string `json:"timezone"`
}

// Duration is a time.Duration written as a string like "168h" in JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"24h\": %w", err)
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

const (
	DefaultAddr       = ":3123"
	DefaultDriver     = "sqlite"
	DefaultSQLitePath = "tttd.db"
	DefaultBoltPath   = "tttd.bolt"
	DefaultTokenTTL   = Duration(7 * 24 * time.Hour)
	DefaultBcryptCost = 10
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "console"
	// DefaultTenantID is the Microsoft "common" tenant (supports personal and
	// multi-tenant organisational accounts without additional registration).
	DefaultTenantID = "common"
	// DefaultClientID is the well-known public Azure CLI app ID.
	// It supports device code flow without a client secret and requires no
	// app registration.
	DefaultClientID = "04b07795-8542-4c4a-95af-30b2c573d5ab"
	// DefaultProject is the project name used for imported events when none is specified.
	DefaultProject = "Meetings"
)

// Environment overrides.
const (
	EnvJWTSecret = "TTTD_JWT_SECRET"
	EnvAddr      = "TTTD_ADDR"
)

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:        DefaultAddr,
			CORSOrigins: []string{"http://localhost:5173"},
		},
		Storage: StorageConfig{Driver: DefaultDriver, Path: DefaultSQLitePath},
		Auth:    AuthConfig{TokenTTL: DefaultTokenTTL, BcryptCost: DefaultBcryptCost},
		Log:     LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Outlook: OutlookConfig{
			TenantID:       DefaultTenantID,
			ClientID:       DefaultClientID,
			DefaultProject: DefaultProject,
		},
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// tttd configuration – ~/.tttd/config.json
//
// All settings are optional; the built-in defaults shown below are used for
// anything left out.
{
  // ── HTTP API ─────────────────────────────────────────────────────────────
  "server": {
    // Listen address. Overridden by TTTD_ADDR.
    "addr": ":3123",
    // Browser origins allowed to call the API.
    "cors_origins": ["http://localhost:5173"]
  },

  // ── Storage ──────────────────────────────────────────────────────────────
  "storage": {
    // "sqlite" or "bolt".
    "driver": "sqlite",
    // Database file; relative paths live in ~/.tttd.
    "path": "tttd.db"
  },

  // ── Authentication ───────────────────────────────────────────────────────
  "auth": {
    // HMAC key for access tokens. Overridden by TTTD_JWT_SECRET.
    // When empty, tttd serve generates a key per process and every restart
    // logs all users out.
    "jwt_secret": "",
    "token_ttl": "168h0m0s",
    "bcrypt_cost": 10
  },

  // ── Logging ──────────────────────────────────────────────────────────────
  "log": {
    // trace, debug, info, warn, error
    "level": "info",
    // "console" for humans, "json" for log collectors.
    "format": "console"
  },

  // ── Microsoft Graph / Outlook calendar import ────────────────────────────
  "outlook": {
    // Azure AD tenant ID ("common" works for personal accounts).
    "tenant_id": "common",
    // Azure application (client) ID used for the OAuth2 device code flow.
    "client_id": "04b07795-8542-4c4a-95af-30b2c573d5ab",
    // Name of the project imported events are attached to.
    // Can be overridden per-sync with: tttd outlook sync --project <name>
    "default_project": "Meetings",
    // IANA timezone for interpreting calendar event times, e.g. "Europe/Berlin".
    "timezone": ""
  }
}
`

// DefaultPath returns the path to ~/.tttd/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".tttd", "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads the config at path (DefaultPath when empty), creating it with
// annotated defaults on first run, then applies environment overrides.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return defaultConfig(), err
		}
		path = p
	}

	cfg, err := load(path)
	if err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	cfg.Storage.Path = resolvePath(filepath.Dir(path), cfg.Storage.Path)
	return cfg, nil
}

func load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		return defaultConfig(), nil
	}
	if err != nil {
		return defaultConfig(), fmt.Errorf("reading config file %s: %w", path, err)
	}

	cleaned := stripLineComments(data)
	var cfg Config
	if err := json.Unmarshal(cleaned, &cfg); err != nil {
		return defaultConfig(), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}

	fillDefaults(&cfg)
	return cfg, nil
}

// fillDefaults replaces zero-value fields with built-in defaults so callers
// always get a usable Config even if the user only partially fills in the file.
func fillDefaults(cfg *Config) {
	def := defaultConfig()
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = def.Server.CORSOrigins
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DefaultDriver
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultSQLitePath
		if cfg.Storage.Driver == "bolt" {
			cfg.Storage.Path = DefaultBoltPath
		}
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = DefaultTokenTTL
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = DefaultBcryptCost
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Outlook.TenantID == "" {
		cfg.Outlook.TenantID = DefaultTenantID
	}
	if cfg.Outlook.ClientID == "" {
		cfg.Outlook.ClientID = DefaultClientID
	}
	if cfg.Outlook.DefaultProject == "" {
		cfg.Outlook.DefaultProject = DefaultProject
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvJWTSecret); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Server.Addr = v
	}
}

func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
