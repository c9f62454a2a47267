package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	usecaseerrors "github.com/johnquangdev/persona-panel/internal/usecase/errors"
	pkgai "github.com/johnquangdev/persona-panel/pkg/ai"
)

type recordingClient struct {
	reply string
	err   error
	reqs  []pkgai.Request
}

func (c *recordingClient) Complete(_ context.Context, req pkgai.Request) (string, error) {
	c.reqs = append(c.reqs, req)
	return c.reply, c.err
}

var promptQuestions = []entities.Question{
	{ID: "A1", Text: "How appealing is the ad?", Kind: entities.QuestionKindScore, MaxScore: 7},
	{ID: "A2", Text: "Three words that come to mind", Kind: entities.QuestionKindWordList, ExpectedWordCount: 3},
}

func TestBuildPrompt(t *testing.T) {
	p := entities.Persona{
		ID:         "p1",
		Name:       "Anna",
		Age:        34,
		Occupation: "Nurse",
		Extra:      map[string]any{"budget": 1200, "household": "2 kids"},
	}

	prompt := BuildPrompt(p, promptQuestions, entities.AnalysisTarget{URL: "https://example.com", Snapshot: "Title: Deals"})

	assert.Contains(t, prompt, "- Name: Anna")
	assert.Contains(t, prompt, "- Age: 34")
	assert.NotContains(t, prompt, "- Location:")
	assert.Less(t, strings.Index(prompt, "- budget: 1200"), strings.Index(prompt, "- household: 2 kids"))
	assert.Contains(t, prompt, "Look at the webpage at https://example.com.")
	assert.Contains(t, prompt, "Page content:\nTitle: Deals")
	assert.Contains(t, prompt, "A1: How appealing is the ad?")
	assert.Less(t, strings.Index(prompt, "A1:"), strings.Index(prompt, "A2:"))

	withImage := BuildPrompt(p, promptQuestions, entities.AnalysisTarget{ImageBase64: "aGk=", ImageMediaType: "image/png"})
	assert.Contains(t, withImage, "Look at the attached screenshot.")
}

func TestModelAnalyzer_OneCallParsed(t *testing.T) {
	client := &recordingClient{reply: "A1: Score 6 - looks trustworthy\nA2: Calm, Clean, Modern"}
	a := NewModelAnalyzer(client, nil, 800, zap.NewNop())

	answers, err := a.AnalyzePersona(context.Background(), entities.Persona{ID: "p1", Name: "Anna"}, promptQuestions,
		entities.AnalysisTarget{URL: "https://example.com", ImageBase64: "data:image/png;base64,aGk=", ImageMediaType: "IMAGE/PNG"})
	require.NoError(t, err)
	require.Len(t, client.reqs, 1)

	req := client.reqs[0]
	assert.Equal(t, 800, req.MaxTokens)
	assert.NotEmpty(t, req.System)
	require.NotNil(t, req.Image)
	assert.Equal(t, "image/png", req.Image.MediaType)
	assert.Equal(t, "aGk=", req.Image.Data)

	require.Len(t, answers, 2)
	require.NotNil(t, answers[0].Score)
	assert.Equal(t, 6, *answers[0].Score)
	assert.Equal(t, []string{"Calm", "Clean", "Modern"}, answers[1].Words)
}

func TestModelAnalyzer_TransportErrorIsReturned(t *testing.T) {
	client := &recordingClient{err: errors.New("connection reset")}
	a := NewModelAnalyzer(client, NewParser(), 800, nil)

	answers, err := a.AnalyzePersona(context.Background(), entities.Persona{ID: "p1", Name: "Anna"}, promptQuestions,
		entities.AnalysisTarget{URL: "https://example.com"})
	require.Error(t, err)
	assert.Nil(t, answers)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestFallbackAnswers(t *testing.T) {
	out := FallbackAnswers("p2", promptQuestions, errors.New("boom"))
	require.Len(t, out, 2)
	for i, a := range out {
		assert.True(t, a.IsFallback)
		assert.Equal(t, promptQuestions[i].ID, a.QuestionID)
		assert.Equal(t, "Fallback: API error - boom", a.RawResponseText)
	}
}

func TestModelAnalyzer_CheckConnection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"ok", nil, nil},
		{"rejected key", &pkgai.StatusError{Provider: "anthropic", StatusCode: 401}, usecaseerrors.ErrModelCredential},
		{"missing key", pkgai.ErrMissingCredential, usecaseerrors.ErrModelCredential},
		{"provider down", &pkgai.StatusError{Provider: "anthropic", StatusCode: 503}, usecaseerrors.ErrModelUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &recordingClient{reply: "OK", err: tt.err}
			err := NewModelAnalyzer(client, nil, 1000, nil).CheckConnection(context.Background())

			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
			require.Len(t, client.reqs, 1)
			assert.Equal(t, "Test", client.reqs[0].Prompt)
			assert.Less(t, client.reqs[0].MaxTokens, 1000)
		})
	}
}
