package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
)

var (
	mockScores = []int{6, 7, 5, 4, 7, 6, 3, 5, 6, 5}

	mockWordSets = [][]string{
		{"Professional", "Clear", "Trusted"},
		{"Modern", "Inviting", "Relevant"},
		{"Inspiring", "Authentic", "Valuable"},
		{"Bright", "Motivating", "Accessible"},
		{"Reliable", "Personal", "Effective"},
	}

	mockExplanations = []string{
		"The message is clear and speaks to my situation.",
		"It looks modern, but I miss concrete details.",
		"I would want to know more about the price first.",
		"It feels trustworthy and the visuals help a lot.",
		"Not sure it is meant for someone like me.",
	}
)

// MockGenerator answers instantly from a fixed pool. Output depends only on
// the order of calls, never on time or randomness.
type MockGenerator struct {
	mu     sync.Mutex
	cursor int
}

// NewMockGenerator creates a generator starting at the head of every pool
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// AnalyzePersona implements PersonaAnalyzer
func (m *MockGenerator) AnalyzePersona(ctx context.Context, persona entities.Persona, questions []entities.Question, _ entities.AnalysisTarget) ([]entities.StructuredAnswer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]entities.StructuredAnswer, 0, len(questions))
	for _, q := range questions {
		out = append(out, m.next(persona.ID, q))
	}
	return out, nil
}

func (m *MockGenerator) next(personaID string, q entities.Question) entities.StructuredAnswer {
	k := m.cursor
	m.cursor++

	a := entities.StructuredAnswer{
		PersonaID:  personaID,
		QuestionID: q.ID,
		IsMock:     true,
		Strategy:   entities.StrategyMock,
	}

	switch q.Kind {
	case entities.QuestionKindScore, entities.QuestionKindMixed:
		max := q.ScoreMax()
		score := (mockScores[k%len(mockScores)]-1)%max + 1
		a.Score = entities.IntPtr(score)
		a.Explanation = mockExplanations[k%len(mockExplanations)]
		a.RawResponseText = fmt.Sprintf("%s: Score %d - %s", q.ID, score, a.Explanation)
	case entities.QuestionKindWordList:
		words := mockWordSets[k%len(mockWordSets)]
		if limit := q.WordLimit(); limit < len(words) {
			words = words[:limit]
		}
		a.Words = append([]string(nil), words...)
		a.RawResponseText = fmt.Sprintf("%s: %s", q.ID, strings.Join(a.Words, ", "))
	default:
		a.Explanation = mockExplanations[k%len(mockExplanations)]
		a.RawResponseText = fmt.Sprintf("%s: %s", q.ID, a.Explanation)
	}
	return a
}
