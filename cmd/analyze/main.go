package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/persona-panel/internal/adapter/repository"
	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	"github.com/johnquangdev/persona-panel/internal/infrastructure/database"
	aiuse "github.com/johnquangdev/persona-panel/internal/usecase/ai"
	usecaseerrors "github.com/johnquangdev/persona-panel/internal/usecase/errors"
	"github.com/johnquangdev/persona-panel/internal/usecase/questionnaire"
	"github.com/johnquangdev/persona-panel/internal/usecase/report"
	pkgai "github.com/johnquangdev/persona-panel/pkg/ai"
	"github.com/johnquangdev/persona-panel/pkg/config"
	pkgvalidator "github.com/johnquangdev/persona-panel/pkg/validator"
	"github.com/johnquangdev/persona-panel/pkg/webpage"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

type options struct {
	personasPath string
	questionSet  string
	url          string
	imagePath    string
	outDir       string
	formats      string
	dbPath       string
	scope        string
	demo         bool
	yes          bool
	fetchPage    bool
	verbose      bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.StringVar(&o.personasPath, "personas", "personas.json", "persona roster JSON file")
	fs.StringVar(&o.questionSet, "set", "", "question set (ad, landing)")
	fs.StringVar(&o.url, "url", "", "URL of the page under evaluation")
	fs.StringVar(&o.imagePath, "image", "", "image of the material under evaluation")
	fs.StringVar(&o.outDir, "out", "reports", "output directory for reports")
	fs.StringVar(&o.formats, "formats", "markdown,json,html", "comma separated report formats")
	fs.StringVar(&o.dbPath, "db", "persona_progress.db", "sqlite file holding resumable progress")
	fs.StringVar(&o.scope, "scope", "cli", "progress scope")
	fs.BoolVar(&o.demo, "demo", false, "use generated demo answers instead of the model")
	fs.BoolVar(&o.yes, "yes", false, "answer yes to every prompt")
	fs.BoolVar(&o.fetchPage, "fetch", false, "fetch the URL and include a text snapshot in the prompt")
	fs.BoolVar(&o.verbose, "v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("✗ "+err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stdin io.Reader, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.questionSet != "" {
		cfg.Analysis.QuestionSet = opts.questionSet
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := zap.NewNop()
	if opts.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}
	defer logger.Sync()

	f, err := os.Open(opts.personasPath)
	if err != nil {
		return fmt.Errorf("open personas: %w", err)
	}
	personas, err := loadPersonas(f, pkgvalidator.New())
	f.Close()
	if err != nil {
		return err
	}

	setName, known := questionnaire.Resolve(cfg.Analysis.QuestionSet)
	if !known {
		fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("⚠ unknown question set %q, using %q", cfg.Analysis.QuestionSet, setName)))
	}
	questions := questionnaire.QuestionsForSet(setName)

	target := entities.AnalysisTarget{URL: opts.url}
	if opts.imagePath != "" {
		if target.ImageBase64, target.ImageMediaType, err = loadImage(opts.imagePath); err != nil {
			return err
		}
	}
	if opts.fetchPage && opts.url != "" {
		snap, err := webpage.NewFetcher(cfg.Analysis.SnapshotMaxChars, logger).Fetch(ctx, opts.url)
		if err != nil {
			fmt.Fprintln(out, warnStyle.Render("⚠ page snapshot unavailable: "+err.Error()))
		} else {
			target.Snapshot = snap.String()
		}
	}

	db, err := database.NewSQLiteDB(opts.dbPath, cfg.Server.Environment)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)
	if _, err := database.AutoMigrate(db, database.DialectSQLite); err != nil {
		return err
	}
	store := repository.NewGormProgressStore(db, opts.scope, cfg.Progress.MaxAge)

	client, err := pkgai.NewClient(cfg.Model, logger)
	if err != nil {
		return err
	}
	analyzer := aiuse.NewModelAnalyzer(client, aiuse.NewParser(), cfg.Model.MaxTokens, logger)
	orch := aiuse.NewOrchestrator(analyzer, store, aiuse.OrchestratorOptions{
		BatchSize:      cfg.Analysis.BatchSize,
		Delay:          cfg.Analysis.PersonaDelay,
		PersonaTimeout: cfg.Analysis.PersonaTimeout,
	}, logger)

	in := bufio.NewReader(stdin)
	confirm := func(question string, def bool) bool {
		if opts.yes {
			return true
		}
		return askYesNo(in, out, question, def)
	}

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Persona panel: %d personas × %d questions (%s)", len(personas), len(questions), setName)))
	demo := opts.demo
	if !demo {
		if demo, err = preflight(ctx, analyzer, out, confirm); err != nil {
			return err
		}
	}
	if demo {
		fmt.Fprintln(out, warnStyle.Render("⚠ demo mode: answers are generated, no model calls"))
	}

	result, err := orch.Run(ctx, aiuse.RunRequest{
		JobID:       uuid.New(),
		Personas:    personas,
		Questions:   questions,
		QuestionSet: setName,
		Target:      target,
		DemoMode:    demo,
		Resume: func(_ context.Context, saved *entities.JobProgress) bool {
			age := time.Since(time.UnixMilli(saved.SavedAtEpochMillis)).Round(time.Second)
			return confirm(fmt.Sprintf("Saved progress found: %d/%d personas done, %s ago. Resume?",
				saved.PersonasDoneCount, saved.PersonasTotal, age), true)
		},
		SwitchToDemo: func(_ context.Context, cause error) bool {
			fmt.Fprintln(out, errStyle.Render("✗ model credentials rejected: "+cause.Error()))
			return confirm("Continue with demo answers?", false)
		},
		OnProgress: func(p *entities.JobProgress) {
			line := fmt.Sprintf("[%d/%d] %5.1f%%", p.PersonasDoneCount, p.PersonasTotal, p.PercentComplete())
			if n := len(p.Errors); n > 0 {
				line += warnStyle.Render(fmt.Sprintf("  %d failed", n))
			}
			fmt.Fprintln(out, okStyle.Render("✓ ")+line)
		},
	})
	if err != nil && result == nil {
		return err
	}

	switch result.State {
	case entities.JobStateCompleted:
		fmt.Fprintln(out, okStyle.Render("✓ analysis completed"))
	case entities.JobStateCancelled:
		fmt.Fprintln(out, warnStyle.Render("⏸ stopped, progress saved; run again to resume"))
	default:
		fmt.Fprintln(out, errStyle.Render("⏸ paused, progress saved; run again to resume"))
	}
	for _, msg := range result.Errors {
		fmt.Fprintln(out, dimStyle.Render("  "+msg))
	}

	if len(result.Answers) > 0 {
		if err := writeReports(out, opts, questions, result.Answers, time.Now()); err != nil {
			return err
		}
	}
	return err
}

// preflight checks the model key before any persona runs. A rejected key
// offers demo mode; an unreachable provider only warns.
func preflight(ctx context.Context, checker aiuse.ConnectionChecker, out io.Writer, confirm func(string, bool) bool) (bool, error) {
	err := checker.CheckConnection(ctx)
	switch {
	case err == nil:
		fmt.Fprintln(out, okStyle.Render("✓ model connection ok"))
		return false, nil
	case errors.Is(err, usecaseerrors.ErrModelCredential):
		fmt.Fprintln(out, errStyle.Render("✗ model credentials rejected: "+err.Error()))
		if confirm("Continue with demo answers?", false) {
			return true, nil
		}
		return false, err
	default:
		fmt.Fprintln(out, warnStyle.Render("⚠ model check failed, continuing: "+err.Error()))
		return false, nil
	}
}

func writeReports(out io.Writer, opts options, questions []entities.Question, answers []entities.StructuredAnswer, at time.Time) error {
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	rep := report.NewAggregator(questions...).Aggregate(answers)
	base := filepath.Join(opts.outDir, "persona-report-"+at.Format("20060102-150405"))

	for _, format := range strings.Split(opts.formats, ",") {
		format = strings.TrimSpace(format)
		if format == "" {
			continue
		}
		data, _, err := report.Render(format, answers, rep, at)
		if err != nil {
			return err
		}
		path := base + report.FileExtension(format)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintln(out, okStyle.Render("✓ wrote ")+path)
	}
	return nil
}
