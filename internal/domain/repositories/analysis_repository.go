package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
)

// AnalysisRepository stores analysis jobs and their answers
type AnalysisRepository interface {
	CreateJob(ctx context.Context, job *entities.AnalysisJob) error
	UpdateJob(ctx context.Context, job *entities.AnalysisJob) error
	GetJobByID(ctx context.Context, jobID uuid.UUID) (*entities.AnalysisJob, error)
	ListJobsByScope(ctx context.Context, scope string, limit int) ([]entities.AnalysisJob, error)

	// SaveAnswers upserts answers so the latest record per pair wins
	SaveAnswers(ctx context.Context, jobID uuid.UUID, answers []entities.StructuredAnswer) error
	ListAnswers(ctx context.Context, jobID uuid.UUID) ([]entities.StructuredAnswer, error)
}
