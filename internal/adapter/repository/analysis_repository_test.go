package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
)

func TestAnalysisRepository_Jobs(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(newTestDB(t))

	job := entities.NewAnalysisJob("user-1", "ad", 3, false)
	require.NoError(t, repo.CreateJob(ctx, job))

	job.MarkAsRunning()
	job.PersonasDone = 2
	require.NoError(t, repo.UpdateJob(ctx, job))

	got, err := repo.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entities.JobStateRunning, got.Status)
	assert.Equal(t, 2, got.PersonasDone)
	assert.NotNil(t, got.StartedAt)

	missing, err := repo.GetJobByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.CreateJob(ctx, entities.NewAnalysisJob("user-2", "landing", 1, true)))
	jobs, err := repo.ListJobsByScope(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)
}

func TestAnalysisRepository_AnswersUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(newTestDB(t))
	jobID := uuid.New()

	first := []entities.StructuredAnswer{
		{PersonaID: "p1", QuestionID: "A1", Words: []string{"Calm", "Clean"}, RawResponseText: "A1: Calm, Clean"},
		{PersonaID: "p1", QuestionID: "A3", IsFallback: true, FallbackReason: "model call failed"},
	}
	require.NoError(t, repo.SaveAnswers(ctx, jobID, first))

	retry := []entities.StructuredAnswer{
		first[0],
		{PersonaID: "p1", QuestionID: "A3", Score: entities.IntPtr(6), Explanation: "good fit"},
	}
	require.NoError(t, repo.SaveAnswers(ctx, jobID, retry))

	got, err := repo.ListAnswers(ctx, jobID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, []string{"Calm", "Clean"}, got[0].Words)
	assert.Nil(t, got[0].Score)
	assert.False(t, got[1].IsFallback)
	require.NotNil(t, got[1].Score)
	assert.Equal(t, 6, *got[1].Score)
	assert.Nil(t, got[1].Words)

	none, err := repo.ListAnswers(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}
