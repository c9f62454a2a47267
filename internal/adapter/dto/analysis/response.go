package analysis

import "time"

// JobResponse represents an analysis job in API responses
type JobResponse struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	QuestionSet   string     `json:"question_set"`
	DemoMode      bool       `json:"demo_mode"`
	PersonasTotal int        `json:"personas_total"`
	PersonasDone  int        `json:"personas_done"`
	ErrorCount    int        `json:"error_count"`
	LastError     string     `json:"last_error,omitempty"`
	Percent       float64    `json:"percent"`
	Errors        []string   `json:"errors,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// JobListResponse wraps a list of jobs
type JobListResponse struct {
	Jobs  []*JobResponse `json:"jobs"`
	Total int            `json:"total"`
}

// QuestionResponse is one registry entry
type QuestionResponse struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Kind     string `json:"kind"`
	MaxScore int    `json:"max_score,omitempty"`
}

// QuestionSetResponse lists the questions of a set
type QuestionSetResponse struct {
	Set       string             `json:"set"`
	Known     bool               `json:"known"`
	Sets      []string           `json:"sets"`
	Questions []QuestionResponse `json:"questions"`
}

// ArchiveResponse carries a presigned download link
type ArchiveResponse struct {
	URL    string `json:"url"`
	Format string `json:"format"`
}

// ModelCheckResponse reports whether the configured model accepts calls
type ModelCheckResponse struct {
	Live      bool  `json:"live"`
	LatencyMS int64 `json:"latency_ms"`
}
