package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/garyjia/claim-lifecycle/internal/domain/policy"
)

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
)

// envPrefix scopes every environment override, e.g. CLAIMS_SERVER_PORT
const envPrefix = "CLAIMS"

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	DynamoDB     DynamoDBConfig     `mapstructure:"dynamodb"`
	Policy       policy.Limits      `mapstructure:"policy"`
	AutoApproval AutoApprovalConfig `mapstructure:"autoapproval"`
	Logger       LoggerConfig       `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host                 string        `mapstructure:"host"`
	Port                 int           `mapstructure:"port"`
	ReadTimeout          time.Duration `mapstructure:"read_timeout"`
	WriteTimeout         time.Duration `mapstructure:"write_timeout"`
	AutoApprovePerMinute int           `mapstructure:"auto_approve_per_minute"`
	AutoApproveBurst     int           `mapstructure:"auto_approve_burst"`
}

// DatabaseConfig selects the claim store and configures the SQLite driver
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DynamoDBConfig is used when database.driver is dynamodb
type DynamoDBConfig struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	TablePrefix     string `mapstructure:"table_prefix"`
}

// AutoApprovalConfig holds settings for the automated approver
type AutoApprovalConfig struct {
	// SystemActorID is recorded as the approver of automated transitions
	// that arrive without a resolved actor. Zero disables the fallback.
	SystemActorID int64 `mapstructure:"system_actor_id"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables.
// An empty configPath skips the file and uses defaults plus environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.auto_approve_per_minute", 60)
	v.SetDefault("server.auto_approve_burst", 10)

	// Database defaults
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/claims.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// DynamoDB defaults
	v.SetDefault("dynamodb.region", "us-east-1")
	v.SetDefault("dynamodb.endpoint", "")
	v.SetDefault("dynamodb.access_key_id", "")
	v.SetDefault("dynamodb.secret_access_key", "")
	v.SetDefault("dynamodb.table_prefix", "claims_")

	// Policy defaults
	limits := policy.DefaultLimits()
	v.SetDefault("policy.max_hours_per_day", limits.MaxHoursPerDay)
	v.SetDefault("policy.max_hours_per_month", limits.MaxHoursPerMonth)
	v.SetDefault("policy.overtime_threshold", limits.OvertimeThreshold)
	v.SetDefault("policy.overtime_multiplier", limits.OvertimeMultiplier)
	v.SetDefault("policy.policy_rate_cents", limits.PolicyRateCents)
	v.SetDefault("policy.fallback_rate_cents", limits.FallbackRateCents)
	v.SetDefault("policy.auto_approve_max_hours", limits.AutoApproveMaxHours)

	v.SetDefault("autoapproval.system_actor_id", 0)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	// Sensitive credentials also honour the standard AWS names
	bindings := map[string][]string{
		"dynamodb.region":            {"CLAIMS_DYNAMODB_REGION", "AWS_REGION"},
		"dynamodb.access_key_id":     {"CLAIMS_DYNAMODB_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"},
		"dynamodb.secret_access_key": {"CLAIMS_DYNAMODB_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}
	if c.Server.AutoApprovePerMinute < 0 {
		errs = append(errs, fmt.Errorf("server.auto_approve_per_minute must not be negative"))
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, fmt.Errorf("database.path is required for the sqlite driver"))
		}
	case DriverDynamoDB:
		if c.DynamoDB.Region == "" {
			errs = append(errs, fmt.Errorf("dynamodb.region is required for the dynamodb driver"))
		}
		if (c.DynamoDB.AccessKeyID == "") != (c.DynamoDB.SecretAccessKey == "") {
			errs = append(errs, fmt.Errorf("dynamodb.access_key_id and dynamodb.secret_access_key must be set together"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverDynamoDB, c.Database.Driver))
	}

	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("policy: %w", err))
	}
	if c.AutoApproval.SystemActorID < 0 {
		errs = append(errs, fmt.Errorf("autoapproval.system_actor_id must not be negative"))
	}

	return errors.Join(errs...)
}
