package model

import "encoding/json"

// RunnerJobState is the runner's view of a single job, as returned by its
// status query and delivered in webhook callbacks.
type RunnerJobState struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output *RunnerOutput   `json:"output,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// RunnerOutput carries the result of a completed generation.
type RunnerOutput struct {
	Result string `json:"result"`
}

// ErrorText renders the runner's error field, which may arrive as either a
// bare string or an arbitrary JSON value, as display text.
func (s *RunnerJobState) ErrorText() string {
	if len(s.Error) == 0 {
		return ""
	}
	var str string
	if err := json.Unmarshal(s.Error, &str); err == nil {
		return str
	}
	return string(s.Error)
}

// RunnerHealth is the runner endpoint's health snapshot, proxied verbatim by
// the health handler.
type RunnerHealth struct {
	Jobs    RunnerJobCounts    `json:"jobs"`
	Workers RunnerWorkerCounts `json:"workers"`
}

// RunnerJobCounts aggregates job states across the runner endpoint.
type RunnerJobCounts struct {
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	InProgress int `json:"inProgress"`
	InQueue    int `json:"inQueue"`
	Retried    int `json:"retried"`
}

// RunnerWorkerCounts aggregates worker states across the runner endpoint.
type RunnerWorkerCounts struct {
	Idle         int `json:"idle"`
	Initializing int `json:"initializing"`
	Ready        int `json:"ready"`
	Running      int `json:"running"`
	Throttled    int `json:"throttled"`
}
