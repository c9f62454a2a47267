package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	usecaseerrors "github.com/johnquangdev/persona-panel/internal/usecase/errors"
	pkgai "github.com/johnquangdev/persona-panel/pkg/ai"
	"github.com/johnquangdev/persona-panel/pkg/jobcontext"
)

// PersonaAnalyzer produces one answer per question for a persona
type PersonaAnalyzer interface {
	AnalyzePersona(ctx context.Context, persona entities.Persona, questions []entities.Question, target entities.AnalysisTarget) ([]entities.StructuredAnswer, error)
}

// ConnectionChecker is implemented by analyzers backed by a real model
type ConnectionChecker interface {
	CheckConnection(ctx context.Context) error
}

// ModelAnalyzer asks the model once per persona and parses the reply
type ModelAnalyzer struct {
	client    pkgai.Client
	parser    *Parser
	maxTokens int
	logger    *zap.Logger
}

// NewModelAnalyzer creates an analyzer over a model client
func NewModelAnalyzer(client pkgai.Client, parser *Parser, maxTokens int, logger *zap.Logger) *ModelAnalyzer {
	if parser == nil {
		parser = NewParser()
	}
	return &ModelAnalyzer{client: client, parser: parser, maxTokens: maxTokens, logger: logger}
}

// AnalyzePersona issues exactly one model call. Transport failures are
// returned as errors, never as partial answers.
func (a *ModelAnalyzer) AnalyzePersona(ctx context.Context, persona entities.Persona, questions []entities.Question, target entities.AnalysisTarget) ([]entities.StructuredAnswer, error) {
	req := pkgai.Request{
		System:    systemPrompt,
		Prompt:    BuildPrompt(persona, questions, target),
		MaxTokens: a.maxTokens,
	}
	if target.HasImage() {
		req.Image = &pkgai.Image{
			MediaType: strings.ToLower(target.ImageMediaType),
			Data:      target.ImageData(),
		}
	}

	raw, err := a.client.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	answers := a.parser.ParseResponse(persona.ID, raw, questions)

	if a.logger != nil {
		fallbacks := 0
		for _, ans := range answers {
			if ans.IsFallback {
				fallbacks++
			}
		}
		meta := jobcontext.GetCallMetadata(ctx)
		a.logger.Debug("Persona response parsed",
			zap.String("job_id", meta.JobID.String()),
			zap.String("persona_id", persona.ID),
			zap.Int("persona_index", meta.PersonaIndex),
			zap.Int("answers", len(answers)),
			zap.Int("fallbacks", fallbacks),
			zap.Duration("elapsed", jobcontext.Elapsed(ctx)),
		)
	}
	return answers, nil
}

// CheckConnection makes one minimal model call. A rejected key wraps
// ErrModelCredential, any other failure ErrModelUnavailable.
func (a *ModelAnalyzer) CheckConnection(ctx context.Context) error {
	err := pkgai.Check(ctx, a.client)
	switch {
	case err == nil:
		return nil
	case pkgai.IsCredentialError(err):
		return fmt.Errorf("%w: %v", usecaseerrors.ErrModelCredential, err)
	default:
		return fmt.Errorf("%w: %v", usecaseerrors.ErrModelUnavailable, err)
	}
}

// FallbackAnswers builds one fallback record per question for a failed persona
func FallbackAnswers(personaID string, questions []entities.Question, cause error) []entities.StructuredAnswer {
	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}
	out := make([]entities.StructuredAnswer, 0, len(questions))
	for _, q := range questions {
		out = append(out, entities.StructuredAnswer{
			PersonaID:       personaID,
			QuestionID:      q.ID,
			RawResponseText: "Fallback: API error - " + reason,
			IsFallback:      true,
			FallbackReason:  "model call failed",
			Strategy:        entities.StrategyNone,
		})
	}
	return out
}
