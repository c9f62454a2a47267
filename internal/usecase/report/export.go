package report

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/invopop/jsonschema"
	"github.com/microcosm-cc/bluemonday"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	usecaseErrors "github.com/johnquangdev/persona-panel/internal/usecase/errors"
)

// Format names accepted by Render
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

const reportDateLayout = "2006-01-02"

// ExportEnvelope is the JSON export document
type ExportEnvelope struct {
	GeneratedAt time.Time                   `json:"generated_at" jsonschema:"required"`
	Answers     []entities.StructuredAnswer `json:"answers" jsonschema:"required"`
	Report      entities.AggregatedReport   `json:"report" jsonschema:"required"`
}

// ExportJSON writes answers and report as one indented document
func ExportJSON(answers []entities.StructuredAnswer, report entities.AggregatedReport, generatedAt time.Time) ([]byte, error) {
	if answers == nil {
		answers = []entities.StructuredAnswer{}
	}
	data, err := json.MarshalIndent(ExportEnvelope{
		GeneratedAt: generatedAt.UTC(),
		Answers:     answers,
		Report:      report,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	return data, nil
}

// ExportMarkdown renders the human-readable report
func ExportMarkdown(report entities.AggregatedReport, date time.Time) string {
	var b strings.Builder

	b.WriteString("# Persona Analysis Report\n\n")
	fmt.Fprintf(&b, "**Date:** %s\n\n", date.Format(reportDateLayout))
	fmt.Fprintf(&b, "**Total responses:** %d\n\n", report.Summary.TotalAnswers)
	fmt.Fprintf(&b, "**Mean score:** %.1f\n\n", report.Summary.MeanOverallScore)

	b.WriteString("## Mean Scores\n\n")
	if len(report.ScorePerQuestion) == 0 {
		b.WriteString("No scored questions.\n")
	}
	for _, s := range report.ScorePerQuestion {
		if !s.HasData {
			fmt.Fprintf(&b, "- **%s**: no valid scores\n", s.QuestionID)
			continue
		}
		fmt.Fprintf(&b, "- **%s**: %.1f/%d\n", s.QuestionID, s.MeanScore, s.MaxScore)
	}

	b.WriteString("\n## First Impressions\n\n")
	if len(report.WordFrequencies) == 0 {
		b.WriteString("No words collected.\n")
	}
	for _, w := range report.WordFrequencies {
		fmt.Fprintf(&b, "- %s: %d mentions\n", w.Word, w.Count)
	}

	b.WriteString("\n## Top Improvements\n\n")
	if len(report.Improvements) == 0 {
		b.WriteString("No improvements suggested.\n")
	}
	for _, imp := range report.Improvements {
		fmt.Fprintf(&b, "%d. **%s** (%s impact)\n   %s\n", imp.Rank, imp.Title, imp.Severity, imp.Description)
	}

	return b.String()
}

var (
	totalLine = regexp.MustCompile(`(?m)^\*\*Total responses:\*\* (\d+)$`)
	meanLine  = regexp.MustCompile(`(?m)^\*\*Mean score:\*\* (\d+\.\d)$`)
)

// ParseMarkdownSummary reads the total and mean back out of an exported report
func ParseMarkdownSummary(md string) (int, float64, error) {
	tm := totalLine.FindStringSubmatch(md)
	mm := meanLine.FindStringSubmatch(md)
	if tm == nil || mm == nil {
		return 0, 0, fmt.Errorf("report summary lines not found")
	}
	total, err := strconv.Atoi(tm[1])
	if err != nil {
		return 0, 0, err
	}
	mean, err := strconv.ParseFloat(mm[1], 64)
	if err != nil {
		return 0, 0, err
	}
	return total, mean, nil
}

// ExportHTML renders the Markdown report and sanitises the result
func ExportHTML(report entities.AggregatedReport, date time.Time) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})

	out := markdown.ToHTML([]byte(ExportMarkdown(report, date)), p, renderer)
	return bluemonday.UGCPolicy().SanitizeBytes(out)
}

// ReportSchema returns the JSON schema of ExportEnvelope
func ReportSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.Reflect(&ExportEnvelope{})
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report schema: %w", err)
	}
	return data, nil
}

// Render produces one export format along with its content type
func Render(format string, answers []entities.StructuredAnswer, report entities.AggregatedReport, at time.Time) ([]byte, string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		data, err := ExportJSON(answers, report, at)
		return data, "application/json", err
	case FormatMarkdown, "md":
		return []byte(ExportMarkdown(report, at)), "text/markdown; charset=utf-8", nil
	case FormatHTML:
		return ExportHTML(report, at), "text/html; charset=utf-8", nil
	default:
		return nil, "", fmt.Errorf("%w: %s", usecaseErrors.ErrUnsupportedFormat, format)
	}
}

// FileExtension maps a format to the file suffix used for archives and CLI output
func FileExtension(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatMarkdown, "md":
		return ".md"
	case FormatHTML:
		return ".html"
	default:
		return ".json"
	}
}
