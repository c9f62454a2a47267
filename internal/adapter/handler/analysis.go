package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/persona-panel/errors"
	"github.com/johnquangdev/persona-panel/internal/adapter/dto/analysis"
	"github.com/johnquangdev/persona-panel/internal/adapter/presenter"
	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	"github.com/johnquangdev/persona-panel/internal/infrastructure/http/middleware"
	analysisUsecase "github.com/johnquangdev/persona-panel/internal/usecase/analysis"
	"github.com/johnquangdev/persona-panel/internal/usecase/questionnaire"
	"github.com/johnquangdev/persona-panel/internal/usecase/report"
	"github.com/johnquangdev/persona-panel/pkg/validator"
)

const defaultListLimit = 20

// Analysis handles analysis job HTTP requests
type Analysis struct {
	service analysisUsecase.Service
	logger  *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service analysisUsecase.Service, logger *zap.Logger) *Analysis {
	return &Analysis{
		service: service,
		logger:  logger,
	}
}

// scopeFrom returns the progress scope set by the auth middleware
func scopeFrom(c echo.Context) string {
	if scope, ok := c.Get(middleware.ScopeContextKey).(string); ok && scope != "" {
		return scope
	}
	return middleware.AnonymousScope
}

func parseJobID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errors.ErrInvalidArgument("invalid job id").WithDetail("id", c.Param("id"))
	}
	return id, nil
}

// StartAnalysis handles POST /v1/analyses
func (h *Analysis) StartAnalysis(c echo.Context) error {
	var req analysis.StartAnalysisRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}

	if err := c.Validate(&req); err != nil {
		appErr := errors.ErrInvalidArgument("validation failed")
		for field, rule := range validator.FieldErrors(err) {
			appErr = appErr.WithDetail(field, rule)
		}
		if len(req.Personas) == 0 {
			appErr = errors.ErrNoPersonas()
		}
		return HandleError(h.logger, c, appErr)
	}

	job, err := h.service.StartAnalysis(c.Request().Context(), scopeFrom(c), analysisUsecase.StartRequest{
		Personas:    req.Personas,
		QuestionSet: req.QuestionSet,
		Target: entities.AnalysisTarget{
			URL:            req.Target.URL,
			ImageBase64:    req.Target.ImageBase64,
			ImageMediaType: req.Target.ImageMediaType,
		},
		DemoMode:              req.DemoMode,
		Resume:                req.Resume,
		DemoOnCredentialError: req.DemoOnCredentialError,
		Preflight:             req.Preflight,
	})
	if err != nil {
		return HandleError(h.logger, c, toAppError(err, ""))
	}

	return handleStatus(h.logger, c, http.StatusAccepted, presenter.ToJobResponse(job))
}

// GetJob handles GET /v1/analyses/:id
func (h *Analysis) GetJob(c echo.Context) error {
	id, err := parseJobID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	status, err := h.service.GetJob(c.Request().Context(), scopeFrom(c), id)
	if err != nil {
		return HandleError(h.logger, c, toAppError(err, id.String()))
	}

	return HandleSuccess(h.logger, c, presenter.ToJobStatusResponse(status))
}

// ListJobs handles GET /v1/analyses
func (h *Analysis) ListJobs(c echo.Context) error {
	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			return HandleError(h.logger, c, errors.ErrInvalidArgument("limit must be between 1 and 100"))
		}
		limit = n
	}

	jobs, err := h.service.ListJobs(c.Request().Context(), scopeFrom(c), limit)
	if err != nil {
		return HandleError(h.logger, c, toAppError(err, ""))
	}

	return HandleSuccess(h.logger, c, presenter.ToJobListResponse(jobs))
}

// StopJob handles POST /v1/analyses/:id/stop
func (h *Analysis) StopJob(c echo.Context) error {
	id, err := parseJobID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	if err := h.service.StopJob(c.Request().Context(), scopeFrom(c), id); err != nil {
		return HandleError(h.logger, c, toAppError(err, id.String()))
	}

	return handleStatus(h.logger, c, http.StatusAccepted, map[string]string{"job_id": id.String(), "status": "stopping"})
}

// GetAnswers handles GET /v1/analyses/:id/answers
func (h *Analysis) GetAnswers(c echo.Context) error {
	id, err := parseJobID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	answers, err := h.service.GetAnswers(c.Request().Context(), scopeFrom(c), id)
	if err != nil {
		return HandleError(h.logger, c, toAppError(err, id.String()))
	}
	if answers == nil {
		answers = []entities.StructuredAnswer{}
	}

	return HandleSuccess(h.logger, c, answers)
}

// GetReport handles GET /v1/analyses/:id/report
func (h *Analysis) GetReport(c echo.Context) error {
	id, err := parseJobID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	rep, err := h.service.GetReport(c.Request().Context(), scopeFrom(c), id)
	if err != nil {
		return HandleError(h.logger, c, toAppError(err, id.String()))
	}

	return HandleSuccess(h.logger, c, rep)
}

// Export handles GET /v1/analyses/:id/export?format=json|markdown|html
func (h *Analysis) Export(c echo.Context) error {
	id, err := parseJobID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	format := GetQueryParam(c, "format", report.FormatJSON)

	data, contentType, err := h.service.Export(c.Request().Context(), scopeFrom(c), id, format)
	if err != nil {
		return HandleError(h.logger, c, toAppError(err, id.String()))
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="analysis-`+id.String()+report.FileExtension(format)+`"`)
	return c.Blob(http.StatusOK, contentType, data)
}

// ArchiveURL handles GET /v1/analyses/:id/archive?format=json|markdown
func (h *Analysis) ArchiveURL(c echo.Context) error {
	id, err := parseJobID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	format := GetQueryParam(c, "format", report.FormatJSON)

	url, err := h.service.ArchiveURL(c.Request().Context(), scopeFrom(c), id, format)
	if err != nil {
		return HandleError(h.logger, c, toAppError(err, id.String()))
	}

	return HandleSuccess(h.logger, c, analysis.ArchiveResponse{URL: url, Format: format})
}

// ListQuestions handles GET /v1/questions?set=
func (h *Analysis) ListQuestions(c echo.Context) error {
	set, known := questionnaire.Resolve(GetQueryParam(c, "set", questionnaire.DefaultSet))
	return HandleSuccess(h.logger, c, presenter.ToQuestionSetResponse(
		set, known, questionnaire.SetNames(), questionnaire.QuestionsForSet(set),
	))
}

// CheckModel handles GET /v1/model/check
func (h *Analysis) CheckModel(c echo.Context) error {
	check, err := h.service.CheckModel(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, toAppError(err, ""))
	}
	return HandleSuccess(h.logger, c, analysis.ModelCheckResponse{
		Live:      check.Live,
		LatencyMS: check.LatencyMS,
	})
}

// ReportSchema handles GET /v1/schema/report
func (h *Analysis) ReportSchema(c echo.Context) error {
	schema, err := report.ReportSchema()
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInternal(err))
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, schema)
}
