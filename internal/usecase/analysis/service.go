package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	domainrepo "github.com/johnquangdev/persona-panel/internal/domain/repositories"
	"github.com/johnquangdev/persona-panel/internal/usecase/ai"
	usecaseErrors "github.com/johnquangdev/persona-panel/internal/usecase/errors"
	"github.com/johnquangdev/persona-panel/internal/usecase/questionnaire"
	"github.com/johnquangdev/persona-panel/internal/usecase/report"
	"github.com/johnquangdev/persona-panel/pkg/config"
	"github.com/johnquangdev/persona-panel/pkg/webpage"
)

// Resume policies accepted by StartRequest
const (
	ResumeAlways = "always"
	ResumeNever  = "never"
)

const archiveURLExpiry = 24 * time.Hour

// StartRequest describes one analysis job
type StartRequest struct {
	Personas              []entities.Persona      `json:"personas" validate:"required,min=1,dive"`
	QuestionSet           string                  `json:"question_set"`
	Target                entities.AnalysisTarget `json:"target"`
	DemoMode              bool                    `json:"demo_mode"`
	Resume                string                  `json:"resume" validate:"omitempty,oneof=always never"`
	DemoOnCredentialError bool                    `json:"demo_on_credential_error"`
	Preflight             bool                    `json:"preflight"`
}

// ModelCheck is the outcome of a model connection check
type ModelCheck struct {
	Live      bool  `json:"live"` // false when answers are generated locally
	LatencyMS int64 `json:"latency_ms"`
}

// JobStatus is a job record plus its live progress while running
type JobStatus struct {
	Job      *entities.AnalysisJob `json:"job"`
	Progress *entities.JobProgress `json:"progress,omitempty"`
	Percent  float64               `json:"percent"`
}

// ProgressEvent is published after every completed persona and on completion
type ProgressEvent struct {
	JobID         uuid.UUID         `json:"job_id"`
	State         entities.JobState `json:"state"`
	PersonasDone  int               `json:"personas_done"`
	PersonasTotal int               `json:"personas_total"`
	Percent       float64           `json:"percent"`
	ErrorCount    int               `json:"error_count"`
	DemoMode      bool              `json:"demo_mode"`
}

// Broadcaster fans progress events out to subscribers
type Broadcaster interface {
	Publish(jobID uuid.UUID, event ProgressEvent)
}

// ReportArchive stores rendered exports
type ReportArchive interface {
	UploadBytes(ctx context.Context, objectName string, data []byte, contentType string) error
	GetFileURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// SnapshotFetcher reduces a landing page to prompt text
type SnapshotFetcher interface {
	Fetch(ctx context.Context, url string) (*webpage.Snapshot, error)
}

// Service runs analysis jobs in the background, one per scope
type Service interface {
	StartAnalysis(ctx context.Context, scope string, req StartRequest) (*entities.AnalysisJob, error)
	GetJob(ctx context.Context, scope string, jobID uuid.UUID) (*JobStatus, error)
	ListJobs(ctx context.Context, scope string, limit int) ([]entities.AnalysisJob, error)
	StopJob(ctx context.Context, scope string, jobID uuid.UUID) error
	GetAnswers(ctx context.Context, scope string, jobID uuid.UUID) ([]entities.StructuredAnswer, error)
	GetReport(ctx context.Context, scope string, jobID uuid.UUID) (*entities.AggregatedReport, error)
	Export(ctx context.Context, scope string, jobID uuid.UUID, format string) ([]byte, string, error)
	ArchiveURL(ctx context.Context, scope string, jobID uuid.UUID, format string) (string, error)
	CheckModel(ctx context.Context) (*ModelCheck, error)
	Wait(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Option configures optional collaborators
type Option func(*analysisService)

// WithRecorder reports orchestrator activity to metrics
func WithRecorder(r ai.Recorder) Option {
	return func(s *analysisService) { s.recorder = r }
}

// WithBroadcaster publishes progress events
func WithBroadcaster(b Broadcaster) Option {
	return func(s *analysisService) { s.broadcaster = b }
}

// WithArchive uploads exports of finished jobs
func WithArchive(a ReportArchive) Option {
	return func(s *analysisService) { s.archive = a }
}

// WithFetcher enables landing page snapshots for URL targets
func WithFetcher(f SnapshotFetcher) Option {
	return func(s *analysisService) { s.fetcher = f }
}

type activeJob struct {
	job          *entities.AnalysisJob
	orchestrator *ai.Orchestrator
	questions    []entities.Question

	mu       sync.RWMutex
	progress *entities.JobProgress
}

func (a *activeJob) latest() *entities.JobProgress {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.progress.Clone()
}

type analysisService struct {
	analyzer ai.PersonaAnalyzer
	jobRepo  domainrepo.AnalysisRepository
	progress domainrepo.ProgressStoreProvider
	cfg      config.AnalysisConfig
	logger   *zap.Logger

	recorder    ai.Recorder
	broadcaster Broadcaster
	archive     ReportArchive
	fetcher     SnapshotFetcher

	mu      sync.Mutex
	byScope map[string]*activeJob
	byID    map[uuid.UUID]*activeJob

	rootCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService constructs the analysis service
func NewService(
	analyzer ai.PersonaAnalyzer,
	jobRepo domainrepo.AnalysisRepository,
	progress domainrepo.ProgressStoreProvider,
	cfg config.AnalysisConfig,
	logger *zap.Logger,
	opts ...Option,
) Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &analysisService{
		analyzer: analyzer,
		jobRepo:  jobRepo,
		progress: progress,
		cfg:      cfg,
		logger:   logger,
		byScope:  make(map[string]*activeJob),
		byID:     make(map[uuid.UUID]*activeJob),
		rootCtx:  ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeScope(scope string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return "anonymous"
	}
	return scope
}

func resumePolicy(name string) (ai.ResumeDecider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ResumeAlways:
		return ai.AlwaysResume, nil
	case ResumeNever:
		return ai.NeverResume, nil
	default:
		return nil, fmt.Errorf("%w: unknown resume policy %q", usecaseErrors.ErrInvalidInput, name)
	}
}

// StartAnalysis validates the request, records the job and runs it in the background
func (s *analysisService) StartAnalysis(ctx context.Context, scope string, req StartRequest) (*entities.AnalysisJob, error) {
	scope = normalizeScope(scope)

	setName := req.QuestionSet
	if setName == "" {
		setName = s.cfg.QuestionSet
	}
	canonical, _ := questionnaire.Resolve(setName)
	questions := questionnaire.QuestionsForSet(canonical)

	resume, err := resumePolicy(req.Resume)
	if err != nil {
		return nil, err
	}

	var switchToDemo ai.DemoDecider
	if req.DemoOnCredentialError {
		switchToDemo = ai.AlwaysDemo
	}

	job := entities.NewAnalysisJob(scope, canonical, len(req.Personas), req.DemoMode)
	runReq := ai.RunRequest{
		JobID:        job.ID,
		Personas:     req.Personas,
		Questions:    questions,
		QuestionSet:  canonical,
		Target:       req.Target,
		DemoMode:     req.DemoMode,
		Resume:       resume,
		SwitchToDemo: switchToDemo,
	}
	if err := ai.ValidateRequest(runReq); err != nil {
		return nil, err
	}

	if req.Preflight && !req.DemoMode {
		if _, err := s.CheckModel(ctx); err != nil {
			if !req.DemoOnCredentialError || !errors.Is(err, usecaseErrors.ErrModelCredential) {
				return nil, err
			}
			if s.logger != nil {
				s.logger.Warn("⚠️ Model key rejected before start, running in demo mode", zap.Error(err))
			}
			job.DemoMode = true
			runReq.DemoMode = true
		}
	}

	var store domainrepo.ProgressStore
	if s.progress != nil {
		store = s.progress.ForScope(scope)
	}
	orch := ai.NewOrchestrator(s.analyzer, store, ai.OrchestratorOptions{
		BatchSize:      s.cfg.BatchSize,
		Delay:          s.cfg.PersonaDelay,
		PersonaTimeout: s.cfg.PersonaTimeout,
	}, s.logger)
	if s.recorder != nil {
		orch.WithRecorder(s.recorder)
	}

	active := &activeJob{
		job:          job,
		orchestrator: orch,
		questions:    questions,
		progress:     entities.NewJobProgress(len(req.Personas), s.cfg.BatchSize, entities.PersonaFingerprint(req.Personas), canonical),
	}

	s.mu.Lock()
	if _, busy := s.byScope[scope]; busy {
		s.mu.Unlock()
		return nil, usecaseErrors.ErrJobAlreadyRunning
	}
	s.byScope[scope] = active
	s.byID[job.ID] = active
	s.mu.Unlock()

	if err := s.jobRepo.CreateJob(ctx, job); err != nil {
		s.release(active)
		return nil, fmt.Errorf("%w: failed to create analysis job: %w", usecaseErrors.ErrPersistence, err)
	}

	runReq.OnProgress = func(p *entities.JobProgress) {
		s.onProgress(active, p)
	}

	if s.logger != nil {
		s.logger.Info("🚀 Starting analysis job",
			zap.String("job_id", job.ID.String()),
			zap.String("scope", scope),
			zap.String("question_set", canonical),
			zap.Int("personas", len(req.Personas)),
			zap.Bool("demo_mode", job.DemoMode),
		)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(active, runReq)
	}()

	snapshot := *job
	return &snapshot, nil
}

func (s *analysisService) release(active *activeJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byScope[active.job.Scope] == active {
		delete(s.byScope, active.job.Scope)
	}
	delete(s.byID, active.job.ID)
}

func (s *analysisService) onProgress(active *activeJob, p *entities.JobProgress) {
	active.mu.Lock()
	active.progress = p
	active.job.UpdateProgress(p)
	job := *active.job
	active.mu.Unlock()

	if err := s.jobRepo.UpdateJob(s.rootCtx, &job); err != nil && s.logger != nil {
		s.logger.Warn("⚠️ Failed to update job progress", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
	s.publish(&job, p)
}

func (s *analysisService) publish(job *entities.AnalysisJob, p *entities.JobProgress) {
	if s.broadcaster == nil {
		return
	}
	event := ProgressEvent{
		JobID:         job.ID,
		State:         job.Status,
		PersonasDone:  job.PersonasDone,
		PersonasTotal: job.PersonasTotal,
		ErrorCount:    job.ErrorCount,
		DemoMode:      job.DemoMode,
	}
	if p != nil {
		event.Percent = p.PercentComplete()
	}
	s.broadcaster.Publish(job.ID, event)
}

func (s *analysisService) run(active *activeJob, req ai.RunRequest) {
	defer s.release(active)
	ctx := s.rootCtx

	if s.fetcher != nil && req.Target.URL != "" && req.Target.Snapshot == "" {
		snap, err := s.fetcher.Fetch(ctx, req.Target.URL)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("⚠️ Page snapshot failed, continuing without it",
					zap.String("url", req.Target.URL), zap.Error(err))
			}
		} else {
			req.Target.Snapshot = snap.String()
		}
	}

	active.mu.Lock()
	active.job.MarkAsRunning()
	job := *active.job
	active.mu.Unlock()
	if err := s.jobRepo.UpdateJob(ctx, &job); err != nil && s.logger != nil {
		s.logger.Warn("⚠️ Failed to mark job running", zap.String("job_id", job.ID.String()), zap.Error(err))
	}

	result, runErr := active.orchestrator.Run(ctx, req)

	// persistence outlives shutdown of the run context
	saveCtx := context.WithoutCancel(ctx)

	active.mu.Lock()
	if result != nil {
		active.progress = result.Progress
		active.job.UpdateProgress(result.Progress)
		switch result.State {
		case entities.JobStateCompleted:
			active.job.MarkAsCompleted(result.DemoMode)
		case entities.JobStatePaused:
			msg := "paused"
			if runErr != nil {
				msg = runErr.Error()
			}
			active.job.MarkAsPaused(msg)
		default:
			active.job.MarkAsCancelled()
		}
	} else {
		msg := "analysis failed"
		if runErr != nil {
			msg = runErr.Error()
		}
		active.job.MarkAsPaused(msg)
	}
	job = *active.job
	active.mu.Unlock()

	if result != nil && len(result.Answers) > 0 {
		if err := s.jobRepo.SaveAnswers(saveCtx, job.ID, result.Answers); err != nil && s.logger != nil {
			s.logger.Error("❌ Failed to save answers", zap.String("job_id", job.ID.String()), zap.Error(err))
		}
	}
	if err := s.jobRepo.UpdateJob(saveCtx, &job); err != nil && s.logger != nil {
		s.logger.Error("❌ Failed to update job", zap.String("job_id", job.ID.String()), zap.Error(err))
	}

	if result != nil && result.State == entities.JobStateCompleted {
		s.archiveReports(saveCtx, &job, active.questions, result.Answers)
	}

	var progress *entities.JobProgress
	if result != nil {
		progress = result.Progress
	}
	s.publish(&job, progress)

	if s.logger != nil {
		s.logger.Info("🏁 Analysis job finished",
			zap.String("job_id", job.ID.String()),
			zap.String("status", string(job.Status)),
			zap.Int("personas_done", job.PersonasDone),
			zap.Int("errors", job.ErrorCount),
		)
	}
}

func (s *analysisService) archiveReports(ctx context.Context, job *entities.AnalysisJob, questions []entities.Question, answers []entities.StructuredAnswer) {
	if s.archive == nil {
		return
	}
	rep := report.NewAggregator(questions...).Aggregate(answers)
	for _, format := range []string{report.FormatJSON, report.FormatMarkdown} {
		data, contentType, err := report.Render(format, answers, rep, time.Now())
		if err == nil {
			err = s.archive.UploadBytes(ctx, archiveObjectName(job, format), data, contentType)
		}
		if err != nil && s.logger != nil {
			s.logger.Warn("⚠️ Failed to archive report",
				zap.String("job_id", job.ID.String()),
				zap.String("format", format),
				zap.Error(err),
			)
		}
	}
}

func archiveObjectName(job *entities.AnalysisJob, format string) string {
	return fmt.Sprintf("reports/%s/%s%s", job.Scope, job.ID, report.FileExtension(format))
}

func (s *analysisService) active(jobID uuid.UUID) *activeJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[jobID]
}

// lookup returns the job owned by scope, preferring the live copy
func (s *analysisService) lookup(ctx context.Context, scope string, jobID uuid.UUID) (*entities.AnalysisJob, *activeJob, error) {
	scope = normalizeScope(scope)

	if active := s.active(jobID); active != nil {
		active.mu.RLock()
		job := *active.job
		active.mu.RUnlock()
		if job.Scope != scope {
			return nil, nil, usecaseErrors.ErrJobNotFound
		}
		return &job, active, nil
	}

	job, err := s.jobRepo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to get analysis job: %w", usecaseErrors.ErrPersistence, err)
	}
	if job == nil || job.Scope != scope {
		return nil, nil, usecaseErrors.ErrJobNotFound
	}
	return job, nil, nil
}

func (s *analysisService) GetJob(ctx context.Context, scope string, jobID uuid.UUID) (*JobStatus, error) {
	job, active, err := s.lookup(ctx, scope, jobID)
	if err != nil {
		return nil, err
	}
	status := &JobStatus{Job: job}
	if active != nil {
		status.Progress = active.latest()
		status.Percent = status.Progress.PercentComplete()
	} else if job.PersonasTotal > 0 {
		status.Percent = float64(job.PersonasDone) / float64(job.PersonasTotal) * 100
	}
	return status, nil
}

func (s *analysisService) ListJobs(ctx context.Context, scope string, limit int) ([]entities.AnalysisJob, error) {
	jobs, err := s.jobRepo.ListJobsByScope(ctx, normalizeScope(scope), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list analysis jobs: %w", usecaseErrors.ErrPersistence, err)
	}
	return jobs, nil
}

// StopJob asks a running job to halt before its next persona. Stopping a
// finished job is a no-op.
func (s *analysisService) StopJob(ctx context.Context, scope string, jobID uuid.UUID) error {
	_, active, err := s.lookup(ctx, scope, jobID)
	if err != nil {
		return err
	}
	if active != nil {
		active.orchestrator.Stop()
		if s.logger != nil {
			s.logger.Info("⏹️ Stop requested", zap.String("job_id", jobID.String()))
		}
	}
	return nil
}

func (s *analysisService) GetAnswers(ctx context.Context, scope string, jobID uuid.UUID) ([]entities.StructuredAnswer, error) {
	_, active, err := s.lookup(ctx, scope, jobID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return active.latest().CompletedAnswers, nil
	}
	answers, err := s.jobRepo.ListAnswers(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list answers: %w", usecaseErrors.ErrPersistence, err)
	}
	return answers, nil
}

func (s *analysisService) reportFor(ctx context.Context, scope string, jobID uuid.UUID) ([]entities.StructuredAnswer, *entities.AggregatedReport, error) {
	job, _, err := s.lookup(ctx, scope, jobID)
	if err != nil {
		return nil, nil, err
	}
	answers, err := s.GetAnswers(ctx, scope, jobID)
	if err != nil {
		return nil, nil, err
	}
	if len(answers) == 0 {
		return nil, nil, usecaseErrors.ErrJobNotFinished
	}
	rep := report.NewAggregator(questionnaire.QuestionsForSet(job.QuestionSet)...).Aggregate(answers)
	return answers, &rep, nil
}

// GetReport aggregates whatever answers the job has so far
func (s *analysisService) GetReport(ctx context.Context, scope string, jobID uuid.UUID) (*entities.AggregatedReport, error) {
	_, rep, err := s.reportFor(ctx, scope, jobID)
	return rep, err
}

func (s *analysisService) Export(ctx context.Context, scope string, jobID uuid.UUID, format string) ([]byte, string, error) {
	answers, rep, err := s.reportFor(ctx, scope, jobID)
	if err != nil {
		return nil, "", err
	}
	data, contentType, err := report.Render(format, answers, *rep, time.Now())
	if err != nil && !errors.Is(err, usecaseErrors.ErrUnsupportedFormat) {
		return nil, "", fmt.Errorf("%w: %s: %w", usecaseErrors.ErrExportFailed, format, err)
	}
	return data, contentType, err
}

func (s *analysisService) ArchiveURL(ctx context.Context, scope string, jobID uuid.UUID, format string) (string, error) {
	if s.archive == nil {
		return "", usecaseErrors.ErrArchiveNotAvailable
	}
	job, _, err := s.lookup(ctx, scope, jobID)
	if err != nil {
		return "", err
	}
	if job.Status != entities.JobStateCompleted {
		return "", usecaseErrors.ErrJobNotFinished
	}
	url, err := s.archive.GetFileURL(ctx, archiveObjectName(job, format), archiveURLExpiry)
	if err != nil {
		return "", fmt.Errorf("%w: %w", usecaseErrors.ErrArchiveFailed, err)
	}
	return url, nil
}

// CheckModel makes one minimal model call when the analyzer talks to a model
func (s *analysisService) CheckModel(ctx context.Context) (*ModelCheck, error) {
	checker, ok := s.analyzer.(ai.ConnectionChecker)
	if !ok {
		return &ModelCheck{}, nil
	}
	start := time.Now()
	if err := checker.CheckConnection(ctx); err != nil {
		return nil, err
	}
	return &ModelCheck{Live: true, LatencyMS: time.Since(start).Milliseconds()}, nil
}

// Wait blocks until every background job has finished
func (s *analysisService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops all running jobs, saving their progress, and waits for them
func (s *analysisService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, active := range s.byID {
		active.orchestrator.Stop()
	}
	s.mu.Unlock()
	s.cancel()

	if err := s.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && s.logger != nil {
			s.logger.Warn("⚠️ Analysis jobs still running at shutdown deadline")
		}
		return err
	}
	return nil
}
