package tenant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/tenancy/internal/config"
	"github.com/yanizio/tenancy/internal/database"
	"github.com/yanizio/tenancy/internal/tenant/meta"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

var mysqlDefaults = Defaults{
	Engine:   config.EngineMySQL,
	Host:     "10.0.0.5",
	Port:     3306,
	Username: "platform",
	Password: "platform-pw",
}

func TestBuildDescriptor_File(t *testing.T) {
	r := &meta.Record{ID: 1, DBName: "/var/db/tenants/acme.sqlite"}
	d, err := BuildDescriptor(r, Defaults{Engine: config.EngineSQLite}, "")
	require.NoError(t, err)

	assert.Equal(t, Descriptor{
		Engine:      EngineFile,
		Driver:      database.DriverSQLite,
		Path:        "/var/db/tenants/acme.sqlite",
		ForeignKeys: true,
	}, d)
	assert.Equal(t, "file:/var/db/tenants/acme.sqlite?_foreign_keys=on", d.DSN())
}

func TestBuildDescriptor_NetworkDefaults(t *testing.T) {
	r := &meta.Record{ID: 2, DBName: "tenant_acme"}
	d, err := BuildDescriptor(r, mysqlDefaults, "")
	require.NoError(t, err)

	assert.Equal(t, EngineNetwork, d.Engine)
	assert.Equal(t, database.DriverMySQL, d.Driver)
	assert.Equal(t, "10.0.0.5", d.Host)
	assert.Equal(t, 3306, d.Port)
	assert.Equal(t, "platform", d.Username)
	assert.Equal(t, "platform-pw", d.Password)
	assert.Equal(t, "tenant_acme", d.Database)
	assert.Equal(t, "utf8mb4", d.Charset)
	assert.True(t, d.Strict)

	dsn := d.DSN()
	assert.True(t, strings.HasPrefix(dsn, "platform:platform-pw@tcp(10.0.0.5:3306)/tenant_acme?"), dsn)
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.Contains(t, dsn, "sql_mode=")
	assert.Contains(t, dsn, "parseTime=true")
}

func TestBuildDescriptor_NetworkOverrides(t *testing.T) {
	r := &meta.Record{
		ID:         3,
		DBName:     "tenant_big",
		DBHost:     strp("db-big.internal"),
		DBPort:     intp(3307),
		DBUsername: strp("big"),
		DBPassword: strp("vault:secret/tenants/big#pw"),
	}
	d, err := BuildDescriptor(r, mysqlDefaults, "resolved-pw")
	require.NoError(t, err)

	assert.Equal(t, "db-big.internal", d.Host)
	assert.Equal(t, 3307, d.Port)
	assert.Equal(t, "big", d.Username)
	assert.Equal(t, "resolved-pw", d.Password)
	assert.Equal(t, "tenant_big", d.Database)
}

func TestBuildDescriptor_Postgres(t *testing.T) {
	r := &meta.Record{ID: 4, DBName: "tenant_pg"}
	d, err := BuildDescriptor(r, Defaults{
		Engine: config.EnginePostgres, Host: "pg", Port: 5432, Username: "u", Password: "p",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, database.DriverPostgres, d.Driver)
	assert.Equal(t, "UTF8", d.Charset)
	assert.Equal(t, "postgres://u:p@pg:5432/tenant_pg?client_encoding=UTF8", d.DSN())
}

func TestBuildDescriptor_Errors(t *testing.T) {
	_, err := BuildDescriptor(&meta.Record{ID: 5}, mysqlDefaults, "")
	assert.Error(t, err)

	_, err = BuildDescriptor(&meta.Record{ID: 5, DBName: "x"}, Defaults{Engine: "oracle"}, "")
	assert.Error(t, err)
}

func TestDescriptor_FingerprintAndRedacted(t *testing.T) {
	a, _ := BuildDescriptor(&meta.Record{ID: 1, DBName: "tenant_a"}, mysqlDefaults, "")
	b, _ := BuildDescriptor(&meta.Record{ID: 2, DBName: "tenant_b"}, mysqlDefaults, "")

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.Fingerprint(), a.Fingerprint())
	assert.NotContains(t, a.Redacted(), "platform-pw")
	assert.Equal(t, "mysql://platform@10.0.0.5:3306/tenant_a", a.Redacted())

	c := a
	c.Password = "rotated"
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}
