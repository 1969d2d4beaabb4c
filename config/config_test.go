package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/artcatalog/config"
)

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"AWS_ACCESS_KEY", "AWS_SECRET_KEY", "AWS_REGION_NAME", "DYNAMODB_ENDPOINT",
		"COMMENTS_TABLE", "COMMENTS_ITEM_INDEX", "DB_DRIVER", "DB_DSN", "DB_HOST",
		"DB_PORT", "DB_USER", "DB_PASSWORD", "DB_SCHEMA", "SWEEP_TIMEOUT",
	} {
		if v, ok := os.LookupEnv(name); ok {
			require.NoError(t, os.Unsetenv(name))
			t.Cleanup(func() { os.Setenv(name, v) })
		}
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
rdb:
  host: db.internal
  user: catalog
  password: from-file
  schema: art_catalog
dynamodb:
  region: eu-west-1
  comments_table: comments-staging
  item_index: item_id-index
sweep:
  timeout: 30s
`)
	t.Setenv("DB_PASSWORD", "from-env")
	t.Setenv("AWS_ACCESS_KEY", "AKIA")
	t.Setenv("AWS_SECRET_KEY", "secret")
	t.Setenv("DB_PORT", "3307")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.RDB.Host)
	assert.Equal(t, 3307, cfg.RDB.Port)
	assert.Equal(t, "catalog", cfg.RDB.User)
	assert.Equal(t, "from-env", cfg.RDB.Password)
	assert.Equal(t, config.DriverMySQL, cfg.RDB.Driver)
	assert.Equal(t, "eu-west-1", cfg.DynamoDB.Region)
	assert.Equal(t, "comments-staging", cfg.DynamoDB.CommentsTable)
	assert.Equal(t, "item_id-index", cfg.DynamoDB.ItemIndex)
	assert.Equal(t, "AKIA", cfg.DynamoDB.AccessKey)
	assert.Equal(t, 30*time.Second, cfg.Sweep.Timeout)
}

func TestLoad_SQLiteSchemaDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", config.DriverSQLite)
	t.Setenv("DB_DSN", "file:"+filepath.Join(t.TempDir(), "catalog.db"))

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.RDB.Schema)

	t.Setenv("DB_SCHEMA", "catalog")
	cfg, err = config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "catalog", cfg.RDB.Schema)

	cfg, err = config.Load(writeFile(t, "rdb:\n  driver: sqlite3\n  dsn: file:x.db\n"))
	require.NoError(t, err)
	assert.Equal(t, "catalog", cfg.RDB.Schema, "env overrides the driver default")
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.Load(writeFile(t, "rdb: [not, a, map]"))
	assert.Error(t, err)

	t.Setenv("DB_DRIVER", "oracle")
	_, err = config.Load("")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestLoad_BadNumericEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PORT", "abc")

	_, err := config.Load("")
	assert.ErrorContains(t, err, "DB_PORT")
}

func TestDataSourceName(t *testing.T) {
	rdb := config.Default().RDB
	rdb.User = "catalog"
	rdb.Password = "p@ss:word"

	dsn, err := rdb.DataSourceName()
	require.NoError(t, err)

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "catalog", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "localhost:3306", parsed.Addr)
	assert.Equal(t, "art_catalog", parsed.DBName)
}

func TestDataSourceName_Explicit(t *testing.T) {
	dsn, err := config.RDB{Driver: config.DriverSQLite, DSN: "file:catalog.db"}.DataSourceName()
	require.NoError(t, err)
	assert.Equal(t, "file:catalog.db", dsn)

	_, err = config.RDB{Driver: config.DriverSQLite}.DataSourceName()
	assert.Error(t, err)
}

func TestAWSConfig_StaticCredentials(t *testing.T) {
	clearEnv(t)
	d := config.DynamoDB{Region: "us-west-2", AccessKey: "AKIA", SecretKey: "secret"}

	cfg, err := d.AWSConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIA", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}

func TestSplitFields(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"order_id", []string{"order_id"}},
		{"order_id, customer_id,,links ", []string{"order_id", "customer_id", "links"}},
		{" , ", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, config.SplitFields(tt.in), "input %q", tt.in)
	}
}
