package handler

import (
	stdErrors "errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/persona-panel/errors"
	usecaseErrors "github.com/johnquangdev/persona-panel/internal/usecase/errors"
)

// Response shapes
type success struct {
	Code    interface{} `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type errs struct {
	Code    interface{}       `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Info    string            `json:"info,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// GetQueryParam is a helper to get query parameter with a default value
func GetQueryParam(c echo.Context, key, defaultValue string) string {
	value := c.QueryParam(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getRequestID tries to read X-Request-ID from the request
func getRequestID(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return c.Request().Header.Get("X-Request-ID")
}

// toAppError maps use case errors onto API errors
func toAppError(err error, jobID string) error {
	var appErr errors.AppError
	if stdErrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stdErrors.Is(err, usecaseErrors.ErrNoPersonas):
		return errors.ErrNoPersonas()
	case stdErrors.Is(err, usecaseErrors.ErrNoQuestions):
		return errors.ErrNoQuestions("")
	case stdErrors.Is(err, usecaseErrors.ErrDuplicatePersona),
		stdErrors.Is(err, usecaseErrors.ErrInvalidTarget),
		stdErrors.Is(err, usecaseErrors.ErrInvalidInput):
		e := errors.ErrInvalidArgument(err.Error())
		e.Raw = err
		return e
	case stdErrors.Is(err, usecaseErrors.ErrJobNotFound):
		return errors.ErrJobNotFound(jobID)
	case stdErrors.Is(err, usecaseErrors.ErrJobAlreadyRunning):
		return errors.ErrJobAlreadyRunning("")
	case stdErrors.Is(err, usecaseErrors.ErrJobNotFinished):
		return errors.ErrJobNotFinished(jobID)
	case stdErrors.Is(err, usecaseErrors.ErrModelCredential):
		return errors.ErrModelCredential(err)
	case stdErrors.Is(err, usecaseErrors.ErrModelUnavailable):
		e := errors.ErrAIServiceUnavailable("model")
		e.Raw = err
		return e
	case stdErrors.Is(err, usecaseErrors.ErrUnsupportedFormat):
		return errors.ErrUnsupportedFormat(strings.TrimPrefix(err.Error(), usecaseErrors.ErrUnsupportedFormat.Error()+": "))
	case stdErrors.Is(err, usecaseErrors.ErrArchiveNotAvailable):
		return errors.ErrAIServiceUnavailable("report archive")
	case stdErrors.Is(err, usecaseErrors.ErrArchiveFailed):
		return errors.ErrStorageFailed("presign", err)
	case stdErrors.Is(err, usecaseErrors.ErrExportFailed):
		return errors.ErrReportExportFailed(exportFormat(err), err)
	case stdErrors.Is(err, usecaseErrors.ErrPersistence):
		return errors.ErrDBQueryFailed("analysis", err)
	default:
		return errors.ErrInternal(err)
	}
}

// exportFormat recovers the format name from "report export failed: <format>: ..."
func exportFormat(err error) string {
	rest := strings.TrimPrefix(err.Error(), usecaseErrors.ErrExportFailed.Error()+": ")
	if i := strings.Index(rest, ":"); i > 0 {
		return rest[:i]
	}
	return ""
}

// HandleSuccess writes a standardized success response using provided logger
func HandleSuccess(logger *zap.Logger, c echo.Context, data interface{}) error {
	return handleStatus(logger, c, http.StatusOK, data)
}

func handleStatus(logger *zap.Logger, c echo.Context, status int, data interface{}) error {
	resp := success{
		Code:    int(errors.ErrorCode_HTTP_OK),
		Message: "success",
		Data:    data,
	}

	if logger != nil {
		logger.Info("http.response.success",
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
		)
	}

	return c.JSON(status, resp)
}

// HandleError centralizes error handling and logging using provided logger
func HandleError(logger *zap.Logger, c echo.Context, err error) error {
	reqID := getRequestID(c)

	var appErr errors.AppError
	if !stdErrors.As(err, &appErr) {
		appErr = errors.ErrInternal(err)
	}

	if logger != nil {
		fields := []zap.Field{
			zap.String("request_id", reqID),
			zap.String("path", c.Path()),
			zap.Any("app_code", appErr.Code),
			zap.Error(err),
		}
		if appErr.HTTPCode >= http.StatusInternalServerError {
			logger.Error("http.response.error", fields...)
		} else {
			logger.Warn("http.response.error", fields...)
		}
	}

	info := ""
	if appErr.Raw != nil {
		info = appErr.Raw.Error()
	}

	body := errs{
		Code:    appErr.Code,
		Message: appErr.Message,
		Info:    info,
		Details: appErr.Details,
	}

	return c.JSON(appErr.HTTPCode, body)
}
