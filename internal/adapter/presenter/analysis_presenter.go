package presenter

import (
	"github.com/johnquangdev/persona-panel/internal/adapter/dto/analysis"
	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	analysisUsecase "github.com/johnquangdev/persona-panel/internal/usecase/analysis"
)

// ToJobResponse converts an AnalysisJob entity to JobResponse DTO
func ToJobResponse(j *entities.AnalysisJob) *analysis.JobResponse {
	if j == nil {
		return nil
	}

	response := &analysis.JobResponse{
		ID:            j.ID.String(),
		Status:        string(j.Status),
		QuestionSet:   j.QuestionSet,
		DemoMode:      j.DemoMode,
		PersonasTotal: j.PersonasTotal,
		PersonasDone:  j.PersonasDone,
		ErrorCount:    j.ErrorCount,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
		CreatedAt:     j.CreatedAt,
	}
	if j.LastError != nil {
		response.LastError = *j.LastError
	}
	if j.PersonasTotal > 0 {
		response.Percent = float64(j.PersonasDone) / float64(j.PersonasTotal) * 100
	}

	return response
}

// ToJobStatusResponse adds live progress to the job view
func ToJobStatusResponse(s *analysisUsecase.JobStatus) *analysis.JobResponse {
	if s == nil {
		return nil
	}
	response := ToJobResponse(s.Job)
	response.Percent = s.Percent
	if s.Progress != nil && len(s.Progress.Errors) > 0 {
		response.Errors = append([]string(nil), s.Progress.Errors...)
	}
	return response
}

// ToJobListResponse converts a slice of jobs
func ToJobListResponse(jobs []entities.AnalysisJob) *analysis.JobListResponse {
	out := make([]*analysis.JobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, ToJobResponse(&jobs[i]))
	}
	return &analysis.JobListResponse{Jobs: out, Total: len(out)}
}

// ToQuestionSetResponse converts registry questions
func ToQuestionSetResponse(set string, known bool, sets []string, questions []entities.Question) *analysis.QuestionSetResponse {
	out := make([]analysis.QuestionResponse, 0, len(questions))
	for _, q := range questions {
		qr := analysis.QuestionResponse{ID: q.ID, Text: q.Text, Kind: string(q.Kind)}
		if q.Kind.HasScore() {
			qr.MaxScore = q.ScoreMax()
		}
		out = append(out, qr)
	}
	return &analysis.QuestionSetResponse{Set: set, Known: known, Sets: sets, Questions: out}
}
