package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	usecaseErrors "github.com/johnquangdev/persona-panel/internal/usecase/errors"
)

var reportDate = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleAnswers() []entities.StructuredAnswer {
	return []entities.StructuredAnswer{
		wordsAnswer("p1", "Modern", "Clean", "Calm"),
		scored("p1", "A3", 2, "te langzaam"),
		scored("p2", "A3", 3, "langzaam laden"),
		scored("p1", "A6", 6, "would click"),
		fallback("p2", "A6"),
	}
}

func TestExportMarkdown_Layout(t *testing.T) {
	r := NewAggregator().Aggregate(sampleAnswers())
	md := ExportMarkdown(r, reportDate)

	assert.Contains(t, md, "**Date:** 2026-03-14")
	assert.Contains(t, md, "- **A3**: 2.5/7")
	assert.Contains(t, md, "- Modern: 1 mentions")
	assert.Contains(t, md, "1. **Sharpen relevance for the target audience** (High impact)")
	assert.Contains(t, md, "100% of personas mentioned problems with: langzaam")

	order := []string{"**Date:**", "**Total responses:**", "**Mean score:**", "## Mean Scores", "## First Impressions", "## Top Improvements"}
	last := -1
	for _, heading := range order {
		idx := strings.Index(md, heading)
		require.GreaterOrEqual(t, idx, 0, heading)
		assert.Greater(t, idx, last, heading)
		last = idx
	}
}

func TestExportMarkdown_RoundTrip(t *testing.T) {
	r := NewAggregator().Aggregate(sampleAnswers())
	total, mean, err := ParseMarkdownSummary(ExportMarkdown(r, reportDate))
	require.NoError(t, err)
	assert.Equal(t, r.Summary.TotalAnswers, total)
	assert.Equal(t, r.Summary.MeanOverallScore, mean)

	_, _, err = ParseMarkdownSummary("# nothing here")
	assert.Error(t, err)
}

func TestExportMarkdown_NoData(t *testing.T) {
	r := NewAggregator().Aggregate([]entities.StructuredAnswer{fallback("p1", "B3")})
	md := ExportMarkdown(r, reportDate)

	assert.Contains(t, md, "- **B3**: no valid scores")
	assert.Contains(t, md, "No words collected.")
	assert.Contains(t, md, "No improvements suggested.")
	assert.Contains(t, md, "**Mean score:** 0.0")
}

func TestExportJSON(t *testing.T) {
	answers := sampleAnswers()
	r := NewAggregator().Aggregate(answers)

	data, err := ExportJSON(answers, r, reportDate)
	require.NoError(t, err)

	var env ExportEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.True(t, env.GeneratedAt.Equal(reportDate))
	assert.Len(t, env.Answers, len(answers))
	assert.Equal(t, r.Summary, env.Report.Summary)

	empty, err := ExportJSON(nil, NewAggregator().Aggregate(nil), reportDate)
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"answers": []`)
}

func TestExportHTML_Sanitised(t *testing.T) {
	answers := []entities.StructuredAnswer{
		wordsAnswer("p1", "<script>alert(1)</script>"),
	}
	out := string(ExportHTML(NewAggregator().Aggregate(answers), reportDate))

	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "Persona Analysis Report")
	assert.Contains(t, out, "<strong>Total responses:</strong>")
	assert.NotContains(t, out, "<script>")
}

func TestReportSchema(t *testing.T) {
	data, err := ReportSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "generated_at")
	assert.Contains(t, props, "answers")
	assert.Contains(t, props, "report")
	assert.ElementsMatch(t, []any{"generated_at", "answers", "report"}, schema["required"])
}

func TestRender(t *testing.T) {
	r := NewAggregator().Aggregate(sampleAnswers())

	for format, want := range map[string]string{
		"json":     "application/json",
		"":         "application/json",
		"markdown": "text/markdown; charset=utf-8",
		"MD":       "text/markdown; charset=utf-8",
		"html":     "text/html; charset=utf-8",
	} {
		data, contentType, err := Render(format, sampleAnswers(), r, reportDate)
		require.NoError(t, err, format)
		assert.Equal(t, want, contentType, format)
		assert.NotEmpty(t, data, format)
	}

	_, _, err := Render("pdf", nil, r, reportDate)
	assert.ErrorIs(t, err, usecaseErrors.ErrUnsupportedFormat)

	assert.Equal(t, ".md", FileExtension("markdown"))
	assert.Equal(t, ".html", FileExtension("html"))
	assert.Equal(t, ".json", FileExtension("json"))
}
