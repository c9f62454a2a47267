package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	pkgvalidator "github.com/johnquangdev/persona-panel/pkg/validator"
)

func TestLoadPersonas(t *testing.T) {
	v := pkgvalidator.New()

	personas, err := loadPersonas(strings.NewReader(`[{"id":1,"name":"Anna","age":"41"},{"id":"p2","name":"Bram"}]`), v)
	require.NoError(t, err)
	require.Len(t, personas, 2)
	assert.Equal(t, "1", personas[0].ID)
	assert.Equal(t, 41, personas[0].Age)

	personas, err = loadPersonas(strings.NewReader(` {"personas":[{"id":"x","name":"Xena"}]}`), v)
	require.NoError(t, err)
	assert.Len(t, personas, 1)

	_, err = loadPersonas(strings.NewReader(`[{"id":"x"}]`), v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persona 1")

	_, err = loadPersonas(strings.NewReader(`not json`), v)
	assert.Error(t, err)
}

func TestAskYesNo(t *testing.T) {
	cases := []struct {
		input string
		def   bool
		want  bool
	}{
		{"y\n", false, true},
		{"ja\n", false, true},
		{"n\n", true, false},
		{"\n", true, true},
		{"", false, false},
		{"maybe\n", true, true},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		got := askYesNo(bufio.NewReader(strings.NewReader(tc.input)), &out, "Resume?", tc.def)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
		assert.Contains(t, out.String(), "Resume?")
	}
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ad.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xd8, 0xff}, 0o644))

	data, mediaType, err := loadImage(path)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mediaType)
	assert.Equal(t, "/9j/", data)
}

func TestWriteReports(t *testing.T) {
	dir := t.TempDir()
	q := entities.Question{ID: "A1", Text: "Attention", Kind: entities.QuestionKindScore, MaxScore: 7}
	answers := []entities.StructuredAnswer{
		{PersonaID: "p1", QuestionID: "A1", Score: entities.IntPtr(5), Explanation: "ok"},
	}
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	var out bytes.Buffer
	err := writeReports(&out, options{outDir: dir, formats: "markdown, json"}, []entities.Question{q}, answers, at)
	require.NoError(t, err)

	md, err := os.ReadFile(filepath.Join(dir, "persona-report-20260301-093000.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "**Date:** 2026-03-01")
	assert.FileExists(t, filepath.Join(dir, "persona-report-20260301-093000.json"))

	err = writeReports(&out, options{outDir: dir, formats: "pdf"}, []entities.Question{q}, answers, at)
	assert.Error(t, err)
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-personas", "roster.json", "-demo", "-set", "landing"})
	require.NoError(t, err)
	assert.Equal(t, "roster.json", opts.personasPath)
	assert.True(t, opts.demo)
	assert.Equal(t, "landing", opts.questionSet)
	assert.Equal(t, "markdown,json,html", opts.formats)
}
