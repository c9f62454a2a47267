package entities

import (
	"time"

	"github.com/google/uuid"
)

// JobState is the lifecycle state of an analysis run
type JobState string

const (
	JobStateIdle      JobState = "idle"
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStatePaused    JobState = "paused"    // halted on error, progress saved
	JobStateCancelled JobState = "cancelled" // stopped by the caller, progress saved
)

// Finished reports whether the state is terminal for a single run
func (s JobState) Finished() bool {
	return s == JobStateCompleted || s == JobStatePaused || s == JobStateCancelled
}

// AnalysisJob is the persisted record of one analysis run started over the API
type AnalysisJob struct {
	ID            uuid.UUID `json:"id" gorm:"type:text;primaryKey"`
	Scope         string    `json:"scope" gorm:"type:text;not null;index"`
	Status        JobState  `json:"status" gorm:"type:text;not null;default:'idle'"`
	QuestionSet   string    `json:"question_set" gorm:"type:text;not null"`
	DemoMode      bool      `json:"demo_mode" gorm:"not null;default:false"`
	PersonasTotal int       `json:"personas_total" gorm:"not null;default:0"`
	PersonasDone  int       `json:"personas_done" gorm:"not null;default:0"`
	ErrorCount    int       `json:"error_count" gorm:"not null;default:0"`
	LastError     *string   `json:"last_error,omitempty" gorm:"type:text"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// NewAnalysisJob creates an idle job for a scope
func NewAnalysisJob(scope, questionSet string, personasTotal int, demoMode bool) *AnalysisJob {
	now := time.Now()
	return &AnalysisJob{
		ID:            uuid.New(),
		Scope:         scope,
		Status:        JobStateIdle,
		QuestionSet:   questionSet,
		DemoMode:      demoMode,
		PersonasTotal: personasTotal,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MarkAsRunning marks the job as started
func (j *AnalysisJob) MarkAsRunning() {
	j.Status = JobStateRunning
	now := time.Now()
	j.StartedAt = &now
	j.UpdatedAt = now
}

// UpdateProgress copies counters from a progress snapshot
func (j *AnalysisJob) UpdateProgress(p *JobProgress) {
	if p == nil {
		return
	}
	j.PersonasDone = p.PersonasDoneCount
	j.ErrorCount = len(p.Errors)
	j.UpdatedAt = time.Now()
}

// MarkAsCompleted marks the job as finished successfully
func (j *AnalysisJob) MarkAsCompleted(demoMode bool) {
	j.Status = JobStateCompleted
	j.DemoMode = demoMode
	now := time.Now()
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkAsPaused marks the job as halted with resumable progress
func (j *AnalysisJob) MarkAsPaused(errMsg string) {
	j.Status = JobStatePaused
	j.LastError = &errMsg
	j.UpdatedAt = time.Now()
}

// MarkAsCancelled marks the job as stopped by the caller
func (j *AnalysisJob) MarkAsCancelled() {
	j.Status = JobStateCancelled
	now := time.Now()
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// TableName specifies the table name for GORM
func (AnalysisJob) TableName() string {
	return "analysis_jobs"
}
