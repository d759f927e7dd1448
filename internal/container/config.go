// Package container wires the claim lifecycle engine together and owns the
// lifecycle of its stores and HTTP surface.
package container

import (
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/claim-lifecycle/internal/domain/policy"
)

// Storage drivers understood by ProvideStore
const (
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database selects the store and configures SQLite
	Database DatabaseConfig

	// DynamoDB configures the DynamoDB store
	DynamoDB DynamoDBConfig

	// Policy holds the limits every claim is judged against
	Policy policy.Limits

	// AutoApproval configures the automated approver
	AutoApproval AutoApprovalConfig

	// Server configuration
	Server ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver is DriverSQLite or DriverDynamoDB
	Driver string

	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration
}

// DynamoDBConfig holds DynamoDB settings.
type DynamoDBConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	TablePrefix     string
}

// AutoApprovalConfig holds automated approver settings.
type AutoApprovalConfig struct {
	// SystemActorID backs automated transitions without a resolved actor; zero disables it
	SystemActorID int64
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration

	AutoApprovePerMinute int
	AutoApproveBurst     int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			Path:            "data/claims.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		DynamoDB: DynamoDBConfig{
			Region:      "us-east-1",
			TablePrefix: "claims_",
		},
		Policy: policy.DefaultLimits(),
		Server: ServerConfig{
			Host:                 "0.0.0.0",
			Port:                 8080,
			ReadTimeout:          30 * time.Second,
			WriteTimeout:         30 * time.Second,
			AutoApprovePerMinute: 60,
			AutoApproveBurst:     10,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required")
		}
	case DriverDynamoDB:
		if c.DynamoDB.Region == "" {
			return fmt.Errorf("dynamodb.region is required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if err := c.Policy.Validate(); err != nil {
		return errors.Join(fmt.Errorf("invalid policy"), err)
	}

	return nil
}
