package config

import "time"

// RunnerConfig contains configuration for the external RunPod job runner and
// the webhook it calls back on.
type RunnerConfig struct {
	// APIKey authenticates against the RunPod API. Required.
	APIKey string `env:"RUNPOD_API_KEY"`

	// EndpointID is the serverless endpoint the jobs run on. Required.
	EndpointID string `env:"RUNPOD_ENDPOINT_ID"`

	// BaseURL is the RunPod API base URL; overridable for testing.
	BaseURL string `env:"RUNPOD_BASE_URL" envDefault:"https://api.runpod.ai/v2"`

	// RequestTimeout bounds a single HTTP call to the runner.
	RequestTimeout time.Duration `env:"RUNPOD_REQUEST_TIMEOUT" envDefault:"30s"`

	// SubmitMaxAttempts is how many times a throttled submission is tried in
	// total before giving up.
	SubmitMaxAttempts int `env:"RUNPOD_SUBMIT_MAX_ATTEMPTS" envDefault:"3"`

	// SubmitInitialBackoff is the delay before the first resubmission; it
	// doubles on each further attempt.
	SubmitInitialBackoff time.Duration `env:"RUNPOD_SUBMIT_INITIAL_BACKOFF" envDefault:"1s"`

	// WebhookToken is the shared secret the runner must echo back on status
	// callbacks. When empty, every callback is rejected.
	WebhookToken string `env:"WEBHOOK_TOKEN"`
}

// Sanitize applies guardrails to runner configuration values.
func (r *RunnerConfig) Sanitize() {
	if r.SubmitMaxAttempts < 1 {
		r.SubmitMaxAttempts = 1
	}
	if r.SubmitInitialBackoff <= 0 {
		r.SubmitInitialBackoff = time.Second
	}
	if r.RequestTimeout <= 0 {
		r.RequestTimeout = 30 * time.Second
	}
}
