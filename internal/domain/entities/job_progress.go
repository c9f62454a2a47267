package entities

import "time"

// DefaultProgressMaxAge is how long a saved snapshot stays resumable
const DefaultProgressMaxAge = time.Hour

// JobProgress is the resumable snapshot of an analysis run
type JobProgress struct {
	PersonasTotal      int                `json:"personas_total"`
	PersonasDoneCount  int                `json:"personas_done_count"`
	BatchIndex         int                `json:"batch_index"`
	BatchesTotal       int                `json:"batches_total"`
	CompletedAnswers   []StructuredAnswer `json:"completed_answers"`
	Errors             []string           `json:"errors"`
	SavedAtEpochMillis int64              `json:"saved_at_epoch_millis"`
	PersonaFingerprint string             `json:"persona_fingerprint,omitempty"`
	QuestionSet        string             `json:"question_set,omitempty"`
}

// BatchesFor returns ceil(total / batchSize)
func BatchesFor(total, batchSize int) int {
	if batchSize <= 0 || total <= 0 {
		return 0
	}
	return (total + batchSize - 1) / batchSize
}

// NewJobProgress creates an empty snapshot for a job
func NewJobProgress(total, batchSize int, fingerprint, questionSet string) *JobProgress {
	return &JobProgress{
		PersonasTotal:      total,
		BatchesTotal:       BatchesFor(total, batchSize),
		CompletedAnswers:   []StructuredAnswer{},
		Errors:             []string{},
		PersonaFingerprint: fingerprint,
		QuestionSet:        questionSet,
	}
}

// Advance records done personas; BatchIndex counts the batches touched so far
func (p *JobProgress) Advance(done, batchSize int) {
	p.PersonasDoneCount = done
	p.BatchIndex = BatchesFor(done, batchSize)
}

// Touch stamps the snapshot with the save time
func (p *JobProgress) Touch(now time.Time) {
	p.SavedAtEpochMillis = now.UnixMilli()
}

// SavedAt returns the save time
func (p *JobProgress) SavedAt() time.Time {
	return time.UnixMilli(p.SavedAtEpochMillis)
}

// Expired is true once the snapshot is older than maxAge
func (p *JobProgress) Expired(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		maxAge = DefaultProgressMaxAge
	}
	return now.Sub(p.SavedAt()) > maxAge
}

// Matches decides whether the snapshot belongs to the job being started.
// Snapshots written without a fingerprint fall back to the count rule.
func (p *JobProgress) Matches(total int, fingerprint string) bool {
	if p.PersonasTotal != total {
		return false
	}
	if p.PersonaFingerprint == "" || fingerprint == "" {
		return true
	}
	return p.PersonaFingerprint == fingerprint
}

// Complete reports whether every persona has been processed
func (p *JobProgress) Complete() bool {
	return p.PersonasTotal > 0 && p.PersonasDoneCount >= p.PersonasTotal
}

// PercentComplete is done/total as a percentage
func (p *JobProgress) PercentComplete() float64 {
	if p.PersonasTotal == 0 {
		return 0
	}
	return float64(p.PersonasDoneCount) / float64(p.PersonasTotal) * 100
}

// Clone deep copies the snapshot so callbacks can hold on to it
func (p *JobProgress) Clone() *JobProgress {
	if p == nil {
		return nil
	}
	cp := *p
	cp.CompletedAnswers = append([]StructuredAnswer(nil), p.CompletedAnswers...)
	cp.Errors = append([]string(nil), p.Errors...)
	return &cp
}
