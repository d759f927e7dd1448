package config

import (
	"github.com/garyjia/claim-lifecycle/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Driver:          c.Database.Driver,
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		DynamoDB: container.DynamoDBConfig{
			Region:          c.DynamoDB.Region,
			Endpoint:        c.DynamoDB.Endpoint,
			AccessKeyID:     c.DynamoDB.AccessKeyID,
			SecretAccessKey: c.DynamoDB.SecretAccessKey,
			TablePrefix:     c.DynamoDB.TablePrefix,
		},
		Policy: c.Policy,
		AutoApproval: container.AutoApprovalConfig{
			SystemActorID: c.AutoApproval.SystemActorID,
		},
		Server: container.ServerConfig{
			Host:                 c.Server.Host,
			Port:                 c.Server.Port,
			ReadTimeout:          c.Server.ReadTimeout,
			WriteTimeout:         c.Server.WriteTimeout,
			AutoApprovePerMinute: c.Server.AutoApprovePerMinute,
			AutoApproveBurst:     c.Server.AutoApproveBurst,
		},
	}
}
