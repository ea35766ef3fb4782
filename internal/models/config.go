package models

type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"readTimeoutSec"`
	WriteTimeoutSec int `json:"writeTimeoutSec"`
	IdleTimeoutSec  int `json:"idleTimeoutSec"`
}

// RemoteConfig points at the hosted moderation API. An empty APIBaseURL means
// the deployment runs without a remote backend and every operation is served
// from the local store.
type RemoteConfig struct {
	APIBaseURL string `json:"apiBaseUrl"`
	AuthToken  string `json:"authToken"`
	TimeoutSec int    `json:"timeoutSec"`
}

type AdminConfig struct {
	// TokenSecret guards the /api/admin routes of this server.
	TokenSecret string `json:"tokenSecret"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

type NotifyConfig struct {
	WebhookURL string `json:"webhookUrl"`
	// OperatorAddress is the fixed address every submission notification is
	// composed against.
	OperatorAddress string `json:"operatorAddress"`
	TimeoutSec      int    `json:"timeoutSec"`
}

type AttachmentsConfig struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	UseSSL    bool   `json:"useSSL"`
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	MaxFiles  int    `json:"maxFiles"`
	MaxSizeMB int    `json:"maxSizeMB"`
}

type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"serviceName"`
	ServiceVersion string  `json:"serviceVersion"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlpEndpoint"`
	SampleRate     float64 `json:"sampleRate"`
	UseStdout      bool    `json:"useStdout"`
}

type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
}

type Config struct {
	Server      ServerConfig      `json:"server"`
	Remote      RemoteConfig      `json:"remote"`
	Admin       AdminConfig       `json:"admin"`
	Database    DatabaseConfig    `json:"database"`
	Notify      NotifyConfig      `json:"notify"`
	Attachments AttachmentsConfig `json:"attachments"`
	Tracing     TracingConfig     `json:"tracing"`
	Retry       RetryConfig       `json:"retry"`
	LogLevel    string            `json:"logLevel"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
