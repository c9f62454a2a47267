package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	domainrepo "github.com/johnquangdev/persona-panel/internal/domain/repositories"
)

type analysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository creates a new analysis repository backed by GORM
func NewAnalysisRepository(db *gorm.DB) domainrepo.AnalysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) CreateJob(ctx context.Context, job *entities.AnalysisJob) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *analysisRepository) UpdateJob(ctx context.Context, job *entities.AnalysisJob) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}
	return r.db.WithContext(ctx).Save(job).Error
}

func (r *analysisRepository) GetJobByID(ctx context.Context, jobID uuid.UUID) (*entities.AnalysisJob, error) {
	var job entities.AnalysisJob
	if err := r.db.WithContext(ctx).Where("id = ?", jobID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *analysisRepository) ListJobsByScope(ctx context.Context, scope string, limit int) ([]entities.AnalysisJob, error) {
	var jobs []entities.AnalysisJob
	query := r.db.WithContext(ctx).
		Where("scope = ?", scope).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *analysisRepository) SaveAnswers(ctx context.Context, jobID uuid.UUID, answers []entities.StructuredAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	answers = entities.DedupeAnswers(answers)

	records := make([]entities.AnswerRecord, 0, len(answers))
	for i, a := range answers {
		records = append(records, entities.NewAnswerRecord(jobID, i, a))
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "job_id"}, {Name: "persona_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"position", "score", "explanation", "words", "raw_response_text",
				"is_fallback", "is_mock", "fallback_reason", "strategy",
			}),
		}).
		CreateInBatches(records, 200).Error
}

func (r *analysisRepository) ListAnswers(ctx context.Context, jobID uuid.UUID) ([]entities.StructuredAnswer, error) {
	var records []entities.AnswerRecord
	if err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("position ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	answers := make([]entities.StructuredAnswer, 0, len(records))
	for _, rec := range records {
		answers = append(answers, rec.ToAnswer())
	}
	return answers, nil
}
