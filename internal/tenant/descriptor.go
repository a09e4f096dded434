// internal/tenant/descriptor.go
//
// Isolated-store connection descriptors.
//
// Context
// -------
// A Descriptor is the complete, engine-specific answer to "where does this
// tenant's data live?".  Its shape depends on the configured engine family:
//
//   • file    – {path: db_name, foreign keys on}
//   • network – {host/port/credentials: tenant override or platform
//                default, database: db_name, charset utf8mb4 or UTF8,
//                strict mode on}
//
// Descriptors are plain values.  They are never stored in a shared
// mutable slot; the router hands each request its own copy.
//
// Notes
// -----
// • `Fingerprint` identifies the physical target and keys pool reuse.  It
//   hashes credentials so the password never appears in logs or map keys.
// • `Redacted` is the only form that may be logged.
package tenant

import (
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/zeebo/blake3"

	"github.com/yanizio/tenancy/internal/config"
	"github.com/yanizio/tenancy/internal/database"
	"github.com/yanizio/tenancy/internal/tenant/meta"
)

// Engine family of a tenant store.
type Engine string

const (
	EngineFile    Engine = "file"
	EngineNetwork Engine = "network"
)

// MySQL session settings applied on every tenant connection.
const (
	mysqlCharset   = "utf8mb4"
	mysqlCollation = "utf8mb4_unicode_ci"
	mysqlSQLMode   = "'ONLY_FULL_GROUP_BY,STRICT_TRANS_TABLES,NO_ZERO_IN_DATE," +
		"NO_ZERO_DATE,ERROR_FOR_DIVISION_BY_ZERO,NO_ENGINE_SUBSTITUTION'"
	pgEncoding = "UTF8"
)

// Descriptor describes one tenant store connection.
type Descriptor struct {
	Engine Engine
	Driver string // database/sql driver name

	// File engine.
	Path        string
	ForeignKeys bool

	// Network engine.
	Host     string
	Port     int
	Username string
	Password string
	Database string
	Charset  string
	Strict   bool
}

// Defaults are the platform-wide network engine settings.
type Defaults struct {
	Engine   string // config.EngineMySQL, EnginePostgres, EngineSQLite
	Host     string
	Port     int
	Username string
	Password string
}

// DefaultsFromConfig copies the relevant config block.  Password must
// already be Vault-resolved.
func DefaultsFromConfig(db config.Database, password string) Defaults {
	return Defaults{
		Engine:   db.Engine,
		Host:     db.DefaultHost,
		Port:     db.DefaultPort,
		Username: db.DefaultUsername,
		Password: password,
	}
}

// BuildDescriptor derives the descriptor for rec.  tenantPassword is the
// resolved form of rec.DBPassword ("" when no override).
func BuildDescriptor(rec *meta.Record, d Defaults, tenantPassword string) (Descriptor, error) {
	if rec.DBName == "" {
		return Descriptor{}, fmt.Errorf("tenant %d: empty db_name", rec.ID)
	}

	switch d.Engine {
	case config.EngineSQLite:
		return Descriptor{
			Engine:      EngineFile,
			Driver:      database.DriverSQLite,
			Path:        rec.DBName,
			ForeignKeys: true,
		}, nil

	case config.EngineMySQL, config.EnginePostgres:
		desc := Descriptor{
			Engine:   EngineNetwork,
			Driver:   database.DriverMySQL,
			Host:     d.Host,
			Port:     d.Port,
			Username: d.Username,
			Password: d.Password,
			Database: rec.DBName,
			Charset:  mysqlCharset,
			Strict:   true,
		}
		if d.Engine == config.EnginePostgres {
			desc.Driver = database.DriverPostgres
			desc.Charset = pgEncoding
		}
		if rec.DBHost != nil && *rec.DBHost != "" {
			desc.Host = *rec.DBHost
		}
		if rec.DBPort != nil && *rec.DBPort > 0 {
			desc.Port = *rec.DBPort
		}
		if rec.DBUsername != nil && *rec.DBUsername != "" {
			desc.Username = *rec.DBUsername
		}
		if tenantPassword != "" {
			desc.Password = tenantPassword
		}
		return desc, nil

	default:
		return Descriptor{}, fmt.Errorf("unsupported engine %q", d.Engine)
	}
}

// DSN renders the driver-specific connection string.
func (d Descriptor) DSN() string {
	switch d.Driver {
	case database.DriverSQLite:
		fk := "off"
		if d.ForeignKeys {
			fk = "on"
		}
		return "file:" + d.Path + "?_foreign_keys=" + fk

	case database.DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.Username, d.Password),
			Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
			Path:   "/" + d.Database,
		}
		q := url.Values{}
		q.Set("client_encoding", d.Charset)
		u.RawQuery = q.Encode()
		return u.String()

	default:
		mc := mysql.NewConfig()
		mc.User = d.Username
		mc.Passwd = d.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
		mc.DBName = d.Database
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Collation = mysqlCollation
		mc.Params = map[string]string{"charset": d.Charset}
		if d.Strict {
			mc.Params["sql_mode"] = mysqlSQLMode
		}
		return mc.FormatDSN()
	}
}

// Fingerprint identifies the physical target of d.
func (d Descriptor) Fingerprint() string {
	sum := blake3.Sum256([]byte(d.DSN()))
	return hex.EncodeToString(sum[:16])
}

// Redacted renders d without credentials.
func (d Descriptor) Redacted() string {
	if d.Engine == EngineFile {
		return fmt.Sprintf("%s:%s", d.Driver, d.Path)
	}
	return fmt.Sprintf("%s://%s@%s/%s", d.Driver, d.Username,
		net.JoinHostPort(d.Host, strconv.Itoa(d.Port)), d.Database)
}
