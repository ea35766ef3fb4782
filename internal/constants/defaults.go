package constants

// Default server configuration values
const (
	DefaultServerPort            = 8084
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
)

// Default timeout and retry values
const (
	DefaultHTTPTimeoutSec        = 30
	DefaultRemoteTimeoutSec      = 10
	DefaultNotifyTimeoutSec      = 10
	DefaultDatabaseRetryAttempts = 3
	DefaultBreakerMaxFailures    = 5
	DefaultBreakerCooldownSec    = 30
	DefaultBackoffInitialMs      = 500
	DefaultBackoffMaxMs          = 5000
)

// Submission limits, matching what the public site enforces client-side
const (
	DefaultMaxAttachmentFiles  = 12
	DefaultMaxAttachmentSizeMB = 10
	MaxSubmitterNameLength     = 120
	MaxReviewTextLength        = 4000
	MaxMessageBodyLength       = 8000
	MinRating                  = 1
	MaxRating                  = 5
	DefaultRating              = 5
)

// Encryption salts for at-rest field encryption of submitter PII
const (
	EncryptionSalt       = "bloomdesk-field-salt-v1"
	EncryptionLookupSalt = "bloomdesk-lookup-salt-v1"
)
