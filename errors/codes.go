package errors

// ErrorCode is the machine readable code carried by every AppError
type ErrorCode int32

const (
	ErrorCode_UNSPECIFIED ErrorCode = 0
	ErrorCode_HTTP_OK     ErrorCode = 200

	// General
	ErrorCode_INTERNAL          ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT  ErrorCode = 1001
	ErrorCode_NOT_FOUND         ErrorCode = 1002
	ErrorCode_ALREADY_EXISTS    ErrorCode = 1003
	ErrorCode_PERMISSION_DENIED ErrorCode = 1004
	ErrorCode_UNAUTHENTICATED   ErrorCode = 1005
	ErrorCode_INVALID_PAYLOAD   ErrorCode = 1006

	// Auth
	ErrorCode_AUTH_INVALID_TOKEN ErrorCode = 1100
	ErrorCode_AUTH_TOKEN_EXPIRED ErrorCode = 1101

	// Analysis jobs
	ErrorCode_ANALYSIS_NO_PERSONAS     ErrorCode = 1200
	ErrorCode_ANALYSIS_NO_QUESTIONS    ErrorCode = 1201
	ErrorCode_ANALYSIS_JOB_NOT_FOUND   ErrorCode = 1202
	ErrorCode_ANALYSIS_ALREADY_RUNNING ErrorCode = 1203
	ErrorCode_ANALYSIS_NOT_FINISHED    ErrorCode = 1204
	ErrorCode_PROCESSING_FAILED        ErrorCode = 1205

	// Model provider
	ErrorCode_AI_ANALYSIS_FAILED      ErrorCode = 1300
	ErrorCode_AI_INVALID_API_KEY      ErrorCode = 1301
	ErrorCode_AI_SERVICE_UNAVAILABLE  ErrorCode = 1302
	ErrorCode_REPORT_EXPORT_FAILED    ErrorCode = 1303
	ErrorCode_REPORT_FORMAT_UNSUPPORT ErrorCode = 1304

	// Integrations
	ErrorCode_INTEGRATION_STORAGE_FAILED ErrorCode = 1400
	ErrorCode_INTEGRATION_CACHE_FAILED   ErrorCode = 1401
	ErrorCode_DB_QUERY_FAILED            ErrorCode = 1402
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_UNSPECIFIED:                "UNSPECIFIED",
	ErrorCode_HTTP_OK:                    "HTTP_OK",
	ErrorCode_INTERNAL:                   "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:           "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                  "NOT_FOUND",
	ErrorCode_ALREADY_EXISTS:             "ALREADY_EXISTS",
	ErrorCode_PERMISSION_DENIED:          "PERMISSION_DENIED",
	ErrorCode_UNAUTHENTICATED:            "UNAUTHENTICATED",
	ErrorCode_INVALID_PAYLOAD:            "INVALID_PAYLOAD",
	ErrorCode_AUTH_INVALID_TOKEN:         "AUTH_INVALID_TOKEN",
	ErrorCode_AUTH_TOKEN_EXPIRED:         "AUTH_TOKEN_EXPIRED",
	ErrorCode_ANALYSIS_NO_PERSONAS:       "ANALYSIS_NO_PERSONAS",
	ErrorCode_ANALYSIS_NO_QUESTIONS:      "ANALYSIS_NO_QUESTIONS",
	ErrorCode_ANALYSIS_JOB_NOT_FOUND:     "ANALYSIS_JOB_NOT_FOUND",
	ErrorCode_ANALYSIS_ALREADY_RUNNING:   "ANALYSIS_ALREADY_RUNNING",
	ErrorCode_ANALYSIS_NOT_FINISHED:      "ANALYSIS_NOT_FINISHED",
	ErrorCode_PROCESSING_FAILED:          "PROCESSING_FAILED",
	ErrorCode_AI_ANALYSIS_FAILED:         "AI_ANALYSIS_FAILED",
	ErrorCode_AI_INVALID_API_KEY:         "AI_INVALID_API_KEY",
	ErrorCode_AI_SERVICE_UNAVAILABLE:     "AI_SERVICE_UNAVAILABLE",
	ErrorCode_REPORT_EXPORT_FAILED:       "REPORT_EXPORT_FAILED",
	ErrorCode_REPORT_FORMAT_UNSUPPORT:    "REPORT_FORMAT_UNSUPPORTED",
	ErrorCode_INTEGRATION_STORAGE_FAILED: "INTEGRATION_STORAGE_FAILED",
	ErrorCode_INTEGRATION_CACHE_FAILED:   "INTEGRATION_CACHE_FAILED",
	ErrorCode_DB_QUERY_FAILED:            "DB_QUERY_FAILED",
}

// String returns the symbolic name of the code
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText lets JSON responses carry the symbolic name
func (c ErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
