// Package config loads connection settings for the relational and document
// stores from an optional YAML file and environment overrides.
package config

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

// Supported relational drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// Config holds every setting the data layer needs.
type Config struct {
	RDB      RDB      `yaml:"rdb"`
	DynamoDB DynamoDB `yaml:"dynamodb"`
	Sweep    Sweep    `yaml:"sweep"`
}

// RDB configures the relational store.
type RDB struct {
	// Driver is the database/sql driver name. Default: "mysql"
	Driver string `yaml:"driver"`

	// DSN, when set, is passed to the driver as is and the fields below are ignored.
	DSN string `yaml:"dsn"`

	// Host is the MySQL server host. Default: "localhost"
	Host string `yaml:"host"`

	// Port is the MySQL server port. Default: 3306
	Port int `yaml:"port"`

	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// Schema holds the orders and order_items tables.
	// Default: "art_catalog", or "main" for sqlite3
	Schema string `yaml:"schema"`
}

// DynamoDB configures the comment store.
type DynamoDB struct {
	// Region. Default: "us-east-1"
	Region string `yaml:"region"`

	// AccessKey and SecretKey select static credentials when both are set.
	// Otherwise the default AWS credential chain is used.
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string `yaml:"endpoint"`

	// CommentsTable. Default: "comments-responses"
	CommentsTable string `yaml:"comments_table"`

	// ItemIndex is an optional GSI partitioned on item_id.
	ItemIndex string `yaml:"item_index"`
}

// Sweep configures the orphaned order item sweep.
type Sweep struct {
	// Timeout bounds one sweep run. Default: 5m
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		RDB: RDB{
			Driver: DriverMySQL,
			Host:   "localhost",
			Port:   3306,
			Schema: "art_catalog",
		},
		DynamoDB: DynamoDB{
			Region:        "us-east-1",
			CommentsTable: "comments-responses",
		},
		Sweep: Sweep{
			Timeout: 5 * time.Minute,
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path if path is
// not empty, then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	// Filled by validate once the driver is known.
	cfg.RDB.Schema = ""

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.validate()

	switch cfg.RDB.Driver {
	case DriverMySQL, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.RDB.Driver)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"AWS_ACCESS_KEY":      &c.DynamoDB.AccessKey,
		"AWS_SECRET_KEY":      &c.DynamoDB.SecretKey,
		"AWS_REGION_NAME":     &c.DynamoDB.Region,
		"DYNAMODB_ENDPOINT":   &c.DynamoDB.Endpoint,
		"COMMENTS_TABLE":      &c.DynamoDB.CommentsTable,
		"COMMENTS_ITEM_INDEX": &c.DynamoDB.ItemIndex,
		"DB_DRIVER":           &c.RDB.Driver,
		"DB_DSN":              &c.RDB.DSN,
		"DB_HOST":             &c.RDB.Host,
		"DB_USER":             &c.RDB.User,
		"DB_PASSWORD":         &c.RDB.Password,
		"DB_SCHEMA":           &c.RDB.Schema,
	}
	for name, dst := range str {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	if v, ok := lookup("DB_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DB_PORT: %w", err)
		}
		c.RDB.Port = port
	}
	if v, ok := lookup("SWEEP_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SWEEP_TIMEOUT: %w", err)
		}
		c.Sweep.Timeout = d
	}
	return nil
}

// validate fills empty values with defaults.
func (c *Config) validate() {
	d := Default()
	if c.RDB.Driver == "" {
		c.RDB.Driver = d.RDB.Driver
	}
	if c.RDB.Host == "" {
		c.RDB.Host = d.RDB.Host
	}
	if c.RDB.Port <= 0 {
		c.RDB.Port = d.RDB.Port
	}
	if c.RDB.Schema == "" {
		c.RDB.Schema = d.RDB.Schema
		if c.RDB.Driver == DriverSQLite {
			c.RDB.Schema = "main"
		}
	}
	if c.DynamoDB.Region == "" {
		c.DynamoDB.Region = d.DynamoDB.Region
	}
	if c.DynamoDB.CommentsTable == "" {
		c.DynamoDB.CommentsTable = d.DynamoDB.CommentsTable
	}
	if c.Sweep.Timeout <= 0 {
		c.Sweep.Timeout = d.Sweep.Timeout
	}
}

// DataSourceName returns the driver connection string. For MySQL without an
// explicit DSN it is assembled from the host, credentials and schema.
func (r RDB) DataSourceName() (string, error) {
	if r.DSN != "" {
		return r.DSN, nil
	}
	if r.Driver != DriverMySQL {
		return "", fmt.Errorf("driver %q requires an explicit DSN", r.Driver)
	}

	mc := mysql.NewConfig()
	mc.User = r.User
	mc.Passwd = r.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
	mc.DBName = r.Schema
	return mc.FormatDSN(), nil
}

// AWSConfig loads the AWS SDK configuration for the document store.
func (d DynamoDB) AWSConfig(ctx context.Context) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(d.Region),
	}
	if d.AccessKey != "" && d.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(d.AccessKey, d.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// Client builds a DynamoDB client, honoring Endpoint when set.
func (d DynamoDB) Client(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := d.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if d.Endpoint != "" {
			o.BaseEndpoint = aws.String(d.Endpoint)
		}
	}), nil
}

// SplitFields parses a comma-separated column list such as the "fields"
// query parameter. Blank entries are dropped; an empty input yields nil.
func SplitFields(s string) []string {
	var fields []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
