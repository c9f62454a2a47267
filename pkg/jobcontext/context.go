package jobcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type KeyContext string

var (
	keyJobID        KeyContext = "job_id"
	keyPersonaID    KeyContext = "persona_id"
	keyPersonaIndex KeyContext = "persona_index"
	keyStartTime    KeyContext = "start_time"
)

// DefaultPersonaTimeout bounds a single persona call when none is configured
const DefaultPersonaTimeout = 90 * time.Second

// CallMetadata describes the persona call a context belongs to
type CallMetadata struct {
	JobID        uuid.UUID
	PersonaID    string
	PersonaIndex int
	StartTime    time.Time
}

// PersonaBegin derives a context for one persona call with metadata and a timeout
func PersonaBegin(parentCtx context.Context, jobID uuid.UUID, personaID string, index int, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultPersonaTimeout
	}
	ctx, cancel := context.WithTimeout(parentCtx, timeout)

	ctx = context.WithValue(ctx, keyJobID, jobID)
	ctx = context.WithValue(ctx, keyPersonaID, personaID)
	ctx = context.WithValue(ctx, keyPersonaIndex, index)
	ctx = context.WithValue(ctx, keyStartTime, time.Now())

	return ctx, cancel
}

// GetJobID extracts job ID from context
func GetJobID(ctx context.Context) (uuid.UUID, bool) {
	jobID, ok := ctx.Value(keyJobID).(uuid.UUID)
	return jobID, ok
}

// GetPersonaID extracts the persona id from context
func GetPersonaID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(keyPersonaID).(string)
	return id, ok
}

// GetPersonaIndex extracts the zero-based persona position, -1 when absent
func GetPersonaIndex(ctx context.Context) int {
	idx, ok := ctx.Value(keyPersonaIndex).(int)
	if !ok {
		return -1
	}
	return idx
}

// GetStartTime extracts call start time from context
func GetStartTime(ctx context.Context) (time.Time, bool) {
	startTime, ok := ctx.Value(keyStartTime).(time.Time)
	return startTime, ok
}

// GetCallMetadata extracts all call metadata from context
func GetCallMetadata(ctx context.Context) *CallMetadata {
	jobID, _ := GetJobID(ctx)
	personaID, _ := GetPersonaID(ctx)
	startTime, _ := GetStartTime(ctx)

	return &CallMetadata{
		JobID:        jobID,
		PersonaID:    personaID,
		PersonaIndex: GetPersonaIndex(ctx),
		StartTime:    startTime,
	}
}

// Elapsed returns the time since the call started, zero when unknown
func Elapsed(ctx context.Context) time.Duration {
	start, ok := GetStartTime(ctx)
	if !ok {
		return 0
	}
	return time.Since(start)
}

// IsRetryableError checks if an error should trigger a retry
// Retryable errors include: network errors, timeouts, rate limits
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	// Timeouts
	if strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "client.timeout exceeded") {
		return true
	}

	// Network errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "network unreachable") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "eof") {
		return true
	}

	// API rate limiting
	if strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "overloaded") {
		return true
	}

	// Server errors (5xx)
	if strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "bad gateway") {
		return true
	}

	// Temporary failures
	if strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "try again") {
		return true
	}

	return false
}
