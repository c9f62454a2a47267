package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	"github.com/johnquangdev/persona-panel/internal/domain/repositories"
	usecaseerrors "github.com/johnquangdev/persona-panel/internal/usecase/errors"
	pkgai "github.com/johnquangdev/persona-panel/pkg/ai"
	"github.com/johnquangdev/persona-panel/pkg/jobcontext"
)

const (
	DefaultBatchSize    = 3
	DefaultPersonaDelay = time.Second
)

// Persona outcomes reported to a Recorder
const (
	OutcomeAnswered = "answered"
	OutcomeFallback = "fallback"
	OutcomeMock     = "mock"
)

// ResumeDecider is asked whether a matching saved snapshot should be resumed
type ResumeDecider func(ctx context.Context, saved *entities.JobProgress) bool

// DemoDecider is asked whether to continue with mock answers after a credential failure
type DemoDecider func(ctx context.Context, cause error) bool

// ProgressFunc receives a copy of the progress after every completed persona
type ProgressFunc func(p *entities.JobProgress)

// AlwaysResume resumes any matching snapshot
func AlwaysResume(context.Context, *entities.JobProgress) bool { return true }

// NeverResume discards saved progress and starts over
func NeverResume(context.Context, *entities.JobProgress) bool { return false }

// AlwaysDemo switches to mock answers on credential failures
func AlwaysDemo(context.Context, error) bool { return true }

// Recorder observes orchestrator activity
type Recorder interface {
	ObservePersona(outcome string, elapsed time.Duration)
	ObserveJob(state entities.JobState)
}

// OrchestratorOptions tunes pacing and progress granularity
type OrchestratorOptions struct {
	BatchSize      int
	Delay          time.Duration
	PersonaTimeout time.Duration
}

// RunRequest is one analysis job
type RunRequest struct {
	JobID       uuid.UUID
	Personas    []entities.Persona
	Questions   []entities.Question
	QuestionSet string
	Target      entities.AnalysisTarget
	DemoMode    bool

	// Resume defaults to AlwaysResume when nil
	Resume ResumeDecider
	// SwitchToDemo nil means pause on credential failures
	SwitchToDemo DemoDecider
	OnProgress   ProgressFunc
}

// RunResult is what a run produced, including partial runs
type RunResult struct {
	Answers  []entities.StructuredAnswer
	State    entities.JobState
	Progress *entities.JobProgress
	Errors   []string
	DemoMode bool
	Resumed  bool
}

// Orchestrator drives one analysis job: personas strictly in sequence,
// at most one model call in flight.
type Orchestrator struct {
	analyzer PersonaAnalyzer
	mock     PersonaAnalyzer
	store    repositories.ProgressStore
	opts     OrchestratorOptions
	recorder Recorder
	logger   *zap.Logger

	mu       sync.Mutex
	state    entities.JobState
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewOrchestrator creates an orchestrator. store may be nil to run without persistence.
func NewOrchestrator(analyzer PersonaAnalyzer, store repositories.ProgressStore, opts OrchestratorOptions, logger *zap.Logger) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	return &Orchestrator{
		analyzer: analyzer,
		mock:     NewMockGenerator(),
		store:    store,
		opts:     opts,
		logger:   logger,
		state:    entities.JobStateIdle,
		stopCh:   make(chan struct{}),
	}
}

// WithRecorder attaches a metrics recorder
func (o *Orchestrator) WithRecorder(r Recorder) *Orchestrator {
	o.recorder = r
	return o
}

// WithMock replaces the demo mode generator
func (o *Orchestrator) WithMock(m PersonaAnalyzer) *Orchestrator {
	o.mock = m
	return o
}

// State returns the current lifecycle state
func (o *Orchestrator) State() entities.JobState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Stop asks the job to halt before the next persona call. An in-flight call
// is allowed to finish.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
}

func (o *Orchestrator) setState(s entities.JobState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	if s.Finished() && o.recorder != nil {
		o.recorder.ObserveJob(s)
	}
}

func (o *Orchestrator) stopped(ctx context.Context) bool {
	select {
	case <-o.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// wait sleeps for d unless the job is stopped first
func (o *Orchestrator) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-o.stopCh:
	case <-ctx.Done():
	}
}

// ValidateRequest checks a request without running it
func ValidateRequest(req RunRequest) error {
	if len(req.Personas) == 0 {
		return usecaseerrors.ErrNoPersonas
	}
	if len(req.Questions) == 0 {
		return usecaseerrors.ErrNoQuestions
	}
	if err := entities.ValidateRoster(req.Personas); err != nil {
		if errors.Is(err, entities.ErrDuplicatePerson) {
			return fmt.Errorf("%w: %v", usecaseerrors.ErrDuplicatePersona, err)
		}
		return fmt.Errorf("%w: %v", usecaseerrors.ErrInvalidInput, err)
	}
	if err := req.Target.Validate(); err != nil {
		return fmt.Errorf("%w: %v", usecaseerrors.ErrInvalidTarget, err)
	}
	return nil
}

// Run executes the job. On a credential pause the partial result is
// returned together with an error wrapping ErrModelCredential.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.state != entities.JobStateIdle {
		o.mu.Unlock()
		return nil, usecaseerrors.ErrJobAlreadyRunning
	}
	o.state = entities.JobStateRunning
	o.mu.Unlock()
	if o.recorder != nil {
		o.recorder.ObserveJob(entities.JobStateRunning)
	}

	if req.JobID == uuid.Nil {
		req.JobID = uuid.New()
	}

	total := len(req.Personas)
	fingerprint := entities.PersonaFingerprint(req.Personas)
	progress := entities.NewJobProgress(total, o.opts.BatchSize, fingerprint, req.QuestionSet)
	answers := entities.NewAnswerSet()
	demo := req.DemoMode
	useStore := !demo && o.store != nil
	start := 0
	resumed := false

	if useStore {
		saved, err := o.store.Load(ctx)
		if err != nil && o.logger != nil {
			o.logger.Warn("⚠️ Failed to load saved progress, starting fresh", zap.Error(err))
		}
		if saved != nil && !saved.Complete() && saved.Matches(total, fingerprint) {
			decide := req.Resume
			if decide == nil {
				decide = AlwaysResume
			}
			if decide(ctx, saved.Clone()) {
				answers.Put(saved.CompletedAnswers...)
				start = min(saved.PersonasDoneCount, total)
				progress.Errors = append(progress.Errors, saved.Errors...)
				progress.Advance(start, o.opts.BatchSize)
				progress.CompletedAnswers = answers.List()
				resumed = true
				if o.logger != nil {
					o.logger.Info("🔄 Resuming analysis",
						zap.String("job_id", req.JobID.String()),
						zap.Int("personas_done", start),
						zap.Int("personas_total", total),
					)
				}
			} else if err := o.store.Clear(ctx); err != nil && o.logger != nil {
				o.logger.Warn("⚠️ Failed to clear declined progress", zap.Error(err))
			}
		}
	}

	result := func(state entities.JobState) *RunResult {
		o.setState(state)
		return &RunResult{
			Answers:  answers.List(),
			State:    state,
			Progress: progress.Clone(),
			Errors:   append([]string(nil), progress.Errors...),
			DemoMode: demo,
			Resumed:  resumed,
		}
	}

	save := func() {
		if !useStore {
			return
		}
		progress.Touch(time.Now())
		// the job context may already be cancelled when saving on stop
		if err := o.store.Save(context.WithoutCancel(ctx), progress); err != nil && o.logger != nil {
			o.logger.Error("❌ Failed to save progress", zap.Error(err))
		}
	}

	for i := start; i < total; i++ {
		if o.stopped(ctx) {
			save()
			if o.logger != nil {
				o.logger.Info("⏹️ Analysis stopped",
					zap.String("job_id", req.JobID.String()),
					zap.Int("personas_done", progress.PersonasDoneCount),
				)
			}
			return result(entities.JobStateCancelled), nil
		}

		persona := req.Personas[i]
		began := time.Now()
		personaAnswers, err := o.analyze(ctx, req, persona, i, demo)
		outcome := OutcomeAnswered

		if err != nil && ctx.Err() != nil {
			// cancelled mid-call: the persona is not done
			save()
			return result(entities.JobStateCancelled), nil
		}

		if err != nil && !demo && pkgai.IsCredentialError(err) {
			if req.SwitchToDemo == nil || !req.SwitchToDemo(ctx, err) {
				progress.Errors = append(progress.Errors, fmt.Sprintf("%s: %v", persona.ID, err))
				save()
				if o.logger != nil {
					o.logger.Warn("⏸️ Analysis paused on credential error",
						zap.String("job_id", req.JobID.String()),
						zap.Error(err),
					)
				}
				return result(entities.JobStatePaused), fmt.Errorf("%w: %v", usecaseerrors.ErrModelCredential, err)
			}

			if o.logger != nil {
				o.logger.Info("🎭 Switching to demo mode",
					zap.String("job_id", req.JobID.String()),
					zap.Int("remaining_personas", total-i),
				)
			}
			demo = true
			useStore = false
			personaAnswers, err = o.analyze(ctx, req, persona, i, demo)
		}

		if err != nil {
			progress.Errors = append(progress.Errors, fmt.Sprintf("%s: %v", persona.ID, err))
			personaAnswers = FallbackAnswers(persona.ID, req.Questions, err)
			outcome = OutcomeFallback
			if o.logger != nil {
				o.logger.Warn("⚠️ Persona analysis failed, using fallback answers",
					zap.String("job_id", req.JobID.String()),
					zap.String("persona_id", persona.ID),
					zap.Error(err),
				)
			}
		} else if demo {
			outcome = OutcomeMock
		}

		answers.Put(personaAnswers...)
		done := i + 1
		progress.Advance(done, o.opts.BatchSize)
		progress.CompletedAnswers = answers.List()

		if outcome == OutcomeFallback || done%o.opts.BatchSize == 0 || done == total {
			save()
		}
		if req.OnProgress != nil {
			req.OnProgress(progress.Clone())
		}
		if o.recorder != nil {
			o.recorder.ObservePersona(outcome, time.Since(began))
		}

		if !demo && done < total {
			o.wait(ctx, o.opts.Delay)
		}
	}

	if useStore {
		if err := o.store.Clear(context.WithoutCancel(ctx)); err != nil && o.logger != nil {
			o.logger.Warn("⚠️ Failed to clear finished progress", zap.Error(err))
		}
	}
	if o.logger != nil {
		o.logger.Info("✅ Analysis completed",
			zap.String("job_id", req.JobID.String()),
			zap.Int("answers", answers.Len()),
			zap.Int("errors", len(progress.Errors)),
			zap.Bool("demo_mode", demo),
		)
	}
	return result(entities.JobStateCompleted), nil
}

func (o *Orchestrator) analyze(ctx context.Context, req RunRequest, persona entities.Persona, index int, demo bool) ([]entities.StructuredAnswer, error) {
	analyzer := o.analyzer
	if demo {
		analyzer = o.mock
	}
	callCtx, cancel := jobcontext.PersonaBegin(ctx, req.JobID, persona.ID, index, o.opts.PersonaTimeout)
	defer cancel()
	return analyzer.AnalyzePersona(callCtx, persona, req.Questions, req.Target)
}
