package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paperwatch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FeedConfig holds settings for the harvest stage.
type FeedConfig struct {
	HTTPConfig `yaml:",inline"`

	// Categories lists the feed categories to harvest.
	Categories []string `json:"categories" yaml:"categories"`

	// PageSize is the number of entries requested per feed page (default 100).
	PageSize int `json:"page_size" yaml:"page_size"`

	// RequestDelay is the minimum delay between consecutive feed requests
	// (default 1s).
	RequestDelay time.Duration `json:"request_delay" yaml:"request_delay"`

	// MaxRetries caps backoff retries per feed request (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// APIKey is an optional key sent as a header for higher rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// ContentConfig holds settings for the content extraction stage.
type ContentConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxPayloadBytes bounds the downloaded content size (default 20 MiB).
	MaxPayloadBytes int64 `json:"max_payload_bytes" yaml:"max_payload_bytes"`

	// MaxTextRunes truncates extracted plain text (default 32768).
	MaxTextRunes int `json:"max_text_runes" yaml:"max_text_runes"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier.
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// AnalysisConfig holds settings for the AI analysis stage.
type AnalysisConfig struct {
	AIConfig `yaml:",inline"`

	// BatchSize is the maximum number of items per analysis call (default 10).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// CallTimeout bounds each analysis call (default 120s).
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout"`

	// QuotaLimit is the number of calls allowed per QuotaWindow, shared
	// across workers (default 15 per minute).
	QuotaLimit  int           `json:"quota_limit" yaml:"quota_limit"`
	QuotaWindow time.Duration `json:"quota_window" yaml:"quota_window"`

	// QuotaWait bounds how long a caller blocks for quota before the batch
	// is deferred to the next run (default 30s).
	QuotaWait time.Duration `json:"quota_wait" yaml:"quota_wait"`

	// RetryDelay is the backoff before the single retry of a failed call
	// (default 5s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay"`
}

// RelevanceConfig holds the scoring weights and thresholds. The weights are
// policy, not constants: tests and deployments supply their own.
type RelevanceConfig struct {
	// Threshold is the flagging cutoff on the composite score (default 0.7).
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// TextWeight, CollaboratorWeight, and AIWeight combine the three
	// components into the composite score (defaults 0.40, 0.25, 0.35).
	TextWeight         float64 `json:"text_weight" yaml:"text_weight"`
	CollaboratorWeight float64 `json:"collaborator_weight" yaml:"collaborator_weight"`
	AIWeight           float64 `json:"ai_weight" yaml:"ai_weight"`

	// CollaboratorBoost is added flat to the score when any author matches
	// a collaborator, before clamping (default 0.15).
	CollaboratorBoost float64 `json:"collaborator_boost" yaml:"collaborator_boost"`

	// NameMatchThreshold is the fuzzy-name similarity cutoff for a
	// collaborator match (default 0.85).
	NameMatchThreshold float64 `json:"name_match_threshold" yaml:"name_match_threshold"`
}

// StoreConfig holds settings for the persistence layer.
type StoreConfig struct {
	// Path is the SQLite database file (default "paperwatch.db").
	Path string `json:"path" yaml:"path"`

	// MaxAttempts caps processing retries per item across runs (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`
}

// SchedulerConfig holds settings for run orchestration.
type SchedulerConfig struct {
	// Workers is the bounded worker count (default 5).
	Workers int `json:"workers" yaml:"workers"`

	// MaxBatch caps how many items one run claims (default 100).
	MaxBatch int `json:"max_batch" yaml:"max_batch"`

	// RunDeadline bounds one end-to-end run; zero means no deadline.
	RunDeadline time.Duration `json:"run_deadline" yaml:"run_deadline"`
}

// NotifyConfig holds settings for report delivery.
type NotifyConfig struct {
	// Destination is the delivery address: an email address for the smtp
	// transport or a URL for the webhook transport.
	Destination string `json:"destination" yaml:"destination"`

	// Transport selects "smtp", "webhook", or "" for none.
	Transport string `json:"transport" yaml:"transport"`

	// SMTPHost, SMTPPort, SMTPUser and SMTPPassword configure the smtp
	// transport.
	SMTPHost     string `json:"smtp_host,omitempty" yaml:"smtp_host,omitempty"`
	SMTPPort     int    `json:"smtp_port,omitempty" yaml:"smtp_port,omitempty"`
	SMTPUser     string `json:"smtp_user,omitempty" yaml:"smtp_user,omitempty"`
	SMTPPassword string `json:"smtp_password,omitempty" yaml:"smtp_password,omitempty"`

	// From is the sender address for the smtp transport.
	From string `json:"from,omitempty" yaml:"from,omitempty"`

	// RequestTimeout bounds webhook delivery (default 10s).
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// PipelineConfig groups all stage configurations for one run. The scheduler
// treats it as immutable for the run's duration.
type PipelineConfig struct {
	Feed      FeedConfig      `json:"feed" yaml:"feed"`
	Content   ContentConfig   `json:"content" yaml:"content"`
	Analysis  AnalysisConfig  `json:"analysis" yaml:"analysis"`
	Relevance RelevanceConfig `json:"relevance" yaml:"relevance"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Notify    NotifyConfig    `json:"notify" yaml:"notify"`

	// ProfilePath locates the researcher profile YAML document.
	ProfilePath string `json:"profile_path" yaml:"profile_path"`
}
