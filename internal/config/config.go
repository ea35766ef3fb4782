package config

import (
	"encoding/json"
	"fmt"
	"os"

	"bloomdesk/internal/constants"
	"bloomdesk/internal/models"
	"bloomdesk/internal/security"
)

var (
	ErrMissingDBPath   = models.ConfigError{Message: "missing database path"}
	ErrMissingEndpoint = models.ConfigError{Message: "missing attachment storage endpoint"}
)

func LoadConfig(path string) (*models.Config, error) {
	// Validate config file path to prevent directory traversal
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	// Perform security validation after environment overrides
	if err := validateSecurity(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Attachments.Bucket != "" && c.Attachments.Endpoint == "" {
		return ErrMissingEndpoint
	}

	if c.Remote.APIBaseURL != "" && c.Remote.AuthToken == "" {
		return models.ConfigError{Message: "remote backend configured without an auth token"}
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}

	if c.Remote.TimeoutSec <= 0 {
		c.Remote.TimeoutSec = constants.DefaultRemoteTimeoutSec
	}
	if c.Notify.TimeoutSec <= 0 {
		c.Notify.TimeoutSec = constants.DefaultNotifyTimeoutSec
	}

	if c.Attachments.MaxFiles <= 0 {
		c.Attachments.MaxFiles = constants.DefaultMaxAttachmentFiles
	}
	if c.Attachments.MaxSizeMB <= 0 {
		c.Attachments.MaxSizeMB = constants.DefaultMaxAttachmentSizeMB
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultBackoffInitialMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultBackoffMaxMs
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("BLOOMDESK_REMOTE_API_URL"); url != "" {
		c.Remote.APIBaseURL = url
	}

	// SECURITY: Tokens should be set via environment variables
	if token := os.Getenv("BLOOMDESK_REMOTE_AUTH_TOKEN"); token != "" {
		c.Remote.AuthToken = token
	}
	if secret := os.Getenv("BLOOMDESK_ADMIN_TOKEN_SECRET"); secret != "" {
		c.Admin.TokenSecret = secret
	}

	if path := os.Getenv("BLOOMDESK_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if url := os.Getenv("BLOOMDESK_NOTIFY_WEBHOOK_URL"); url != "" {
		c.Notify.WebhookURL = url
	}

	if key := os.Getenv("BLOOMDESK_ATTACHMENTS_ACCESS_KEY"); key != "" {
		c.Attachments.AccessKey = key
	}
	if key := os.Getenv("BLOOMDESK_ATTACHMENTS_SECRET_KEY"); key != "" {
		c.Attachments.SecretKey = key
	}
}

// validateSecurity performs security-specific validation
func validateSecurity(c *models.Config) error {
	isProduction := os.Getenv("BLOOMDESK_ENV") == "production"

	if isProduction {
		// In production, the admin token secret is mandatory
		if c.Admin.TokenSecret == "" {
			return models.ConfigError{Message: "admin token secret is required in production (set BLOOMDESK_ADMIN_TOKEN_SECRET environment variable)"}
		}
		if len(c.Admin.TokenSecret) < 32 {
			return models.ConfigError{Message: "admin token secret must be at least 32 characters long"}
		}

		if c.LogLevel == "debug" {
			return models.ConfigError{Message: "debug logging should not be used in production (security risk)"}
		}
	} else {
		if c.Admin.TokenSecret == "" {
			fmt.Fprintf(os.Stderr, "WARNING: admin token secret not set. Set BLOOMDESK_ADMIN_TOKEN_SECRET environment variable to protect admin routes.\n")
		}
	}

	return nil
}
