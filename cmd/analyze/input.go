package main

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	pkgvalidator "github.com/johnquangdev/persona-panel/pkg/validator"
)

// loadPersonas accepts a bare array or an object with a "personas" key
func loadPersonas(r io.Reader, v *pkgvalidator.CustomValidator) ([]entities.Persona, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read personas: %w", err)
	}
	data = bytes.TrimSpace(data)

	var personas []entities.Persona
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Personas []entities.Persona `json:"personas"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("decode personas: %w", err)
		}
		personas = wrapped.Personas
	} else if err := json.Unmarshal(data, &personas); err != nil {
		return nil, fmt.Errorf("decode personas: %w", err)
	}

	for i := range personas {
		if err := v.Validate(&personas[i]); err != nil {
			return nil, fmt.Errorf("persona %d: %v", i+1, pkgvalidator.FieldErrors(err))
		}
	}
	return personas, nil
}

func loadImage(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read image: %w", err)
	}
	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	if mediaType == "" {
		mediaType = "image/png"
	}
	return base64.StdEncoding.EncodeToString(data), mediaType, nil
}

// askYesNo reads one answer; an empty line or EOF picks def
func askYesNo(in *bufio.Reader, out io.Writer, question string, def bool) bool {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	fmt.Fprintf(out, "%s %s ", question, hint)

	line, err := in.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "" {
		if err != nil {
			fmt.Fprintln(out)
		}
		return def
	}
	switch answer {
	case "y", "yes", "j", "ja":
		return true
	case "n", "no", "nee":
		return false
	default:
		return def
	}
}
