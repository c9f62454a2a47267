package errors

import "errors"

// Common errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrPersistence  = errors.New("persistence failure")
)

// Analysis errors
var (
	ErrNoPersonas          = errors.New("no personas supplied")
	ErrNoQuestions         = errors.New("question set is empty")
	ErrDuplicatePersona    = errors.New("duplicate persona id")
	ErrInvalidTarget       = errors.New("invalid analysis target")
	ErrJobAlreadyRunning   = errors.New("analysis job already running")
	ErrJobNotFound         = errors.New("analysis job not found")
	ErrJobNotFinished      = errors.New("analysis job has no results yet")
	ErrModelCredential     = errors.New("model credential missing or rejected")
	ErrModelUnavailable    = errors.New("model provider unreachable")
	ErrUnsupportedFormat   = errors.New("unsupported export format")
	ErrArchiveNotAvailable = errors.New("report archive not configured")
	ErrArchiveFailed       = errors.New("report archive request failed")
	ErrExportFailed        = errors.New("report export failed")
)
