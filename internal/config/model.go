// internal/config/model.go
//
// Typed configuration model for the tenancy service.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                           – dotenv values,
//   • `conf/global.yaml`                        – primary static file,
//   • `TENANCY_`-prefixed environment overrides – highest precedence.
//
// Secret-bearing strings may hold a Vault reference of the form
// `vault:<mount/path>#<key>`.  The model stores the reference verbatim;
// cmd/web resolves it through internal/vault before the value is used.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import (
	"fmt"
	"strings"
	"time"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Tenancy section
//

// Tenancy lists the platform's own domains.  Order matters: the resolver
// tries each base domain in turn and the first match wins.
type Tenancy struct {
	BaseDomains []string `koanf:"base_domains" validate:"required,min=1,dive,hostname_rfc1123"`
}

//
// Database section
//

// Engine names the storage engine family tenant stores live on.
const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// Database holds the control-plane DSN and the defaults used to reach
// tenant stores on the network engine.
//
// The control plane runs on MySQL (or SQLite for local development); its
// queries quote identifiers MySQL-style.  `GlobalDSN` may contain a single `%s` verb, filled with
// `GlobalPassword` at startup so the secret never lives in YAML.
type Database struct {
	GlobalDriver    string `koanf:"global_driver"    validate:"oneof=mysql sqlite3"`
	GlobalDSN       string `koanf:"global_dsn"       validate:"required"`
	GlobalPassword  string `koanf:"global_password"`
	Engine          string `koanf:"engine"           validate:"required,oneof=mysql postgres sqlite"`
	DefaultHost     string `koanf:"default_host"     validate:"required_unless=Engine sqlite"`
	DefaultPort     int    `koanf:"default_port"     validate:"omitempty,min=1,max=65535"`
	DefaultUsername string `koanf:"default_username"`
	DefaultPassword string `koanf:"default_password"`
}

//
// Pool section
//

// Pool tunes the per-tenant connection pools.
type Pool struct {
	IdleTTL         time.Duration `koanf:"idle_ttl"`
	MaxEntries      int           `koanf:"max_entries"       validate:"min=0"`
	MaxOpen         int           `koanf:"max_open"          validate:"min=0"`
	MaxIdle         int           `koanf:"max_idle"          validate:"min=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

//
// Logging and Geo sections
//

// Logging controls the file logger.  An empty Dir means `<root>/logs`.
type Logging struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

// Geo points at an optional GeoLite2-City database.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // TENANCY_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Tenancy  Tenancy  `koanf:"tenancy"`
	Database Database `koanf:"database"`
	Pool     Pool     `koanf:"pool"`
	Logging  Logging  `koanf:"logging"`
	Geo      Geo      `koanf:"geo"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}

// applyDefaults fills zero-valued tunables before validation.
func applyDefaults(c *Config) {
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8080"
	}
	if c.Database.GlobalDriver == "" {
		c.Database.GlobalDriver = "mysql"
	}
	if c.Database.Engine == "" {
		c.Database.Engine = EngineMySQL
	}
	if c.Database.DefaultPort == 0 {
		switch c.Database.Engine {
		case EngineMySQL:
			c.Database.DefaultPort = 3306
		case EnginePostgres:
			c.Database.DefaultPort = 5432
		}
	}
	if c.Pool.IdleTTL == 0 {
		c.Pool.IdleTTL = 30 * time.Minute
	}
	if c.Pool.MaxEntries == 0 {
		c.Pool.MaxEntries = 100
	}
	if c.Pool.MaxOpen == 0 {
		c.Pool.MaxOpen = 5
	}
	if c.Pool.MaxIdle == 0 {
		c.Pool.MaxIdle = 2
	}
	if c.Pool.ConnMaxLifetime == 0 {
		c.Pool.ConnMaxLifetime = 30 * time.Minute
	}
}

// ControlPlaneDSN fills the `%s` verb in GlobalDSN with the (already
// Vault-resolved) password.  A DSN without a verb is returned unchanged.
func (d Database) ControlPlaneDSN(password string) string {
	if !strings.Contains(d.GlobalDSN, "%s") {
		return d.GlobalDSN
	}
	return fmt.Sprintf(d.GlobalDSN, password)
}
