package ai

import (
	"fmt"
	"strings"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
)

const systemPrompt = "You are taking part in a user research panel. " +
	"Stay in character as the persona described by the researcher and answer only from that person's point of view. " +
	"Answer every question on its own line, starting with the question id followed by a colon."

// BuildPrompt renders the single batched prompt sent for one persona
func BuildPrompt(p entities.Persona, questions []entities.Question, target entities.AnalysisTarget) string {
	var sb strings.Builder

	sb.WriteString("You are this person:\n")
	writeAttr(&sb, "Name", p.Name)
	if p.Age > 0 {
		writeAttr(&sb, "Age", fmt.Sprintf("%d", p.Age))
	}
	writeAttr(&sb, "Occupation", p.Occupation)
	writeAttr(&sb, "Location", p.Location)
	writeAttr(&sb, "Interests", p.Interests)
	writeAttr(&sb, "Motivation", p.Motivation)
	writeAttr(&sb, "Preferred channels", p.Channels)
	for _, key := range p.ExtraKeys() {
		writeAttr(&sb, key, p.ExtraString(key))
	}

	sb.WriteString("\nStay fully in this role. Use your own words, tone and priorities as this person would.\n\n")

	switch {
	case target.URL != "" && target.HasImage():
		fmt.Fprintf(&sb, "Look at the attached screenshot of %s.\n", target.URL)
	case target.HasImage():
		sb.WriteString("Look at the attached screenshot.\n")
	default:
		fmt.Fprintf(&sb, "Look at the webpage at %s.\n", target.URL)
	}
	if target.Snapshot != "" {
		sb.WriteString("\nPage content:\n")
		sb.WriteString(target.Snapshot)
		sb.WriteString("\n")
	}

	sb.WriteString("\nAnswer these questions, one line each, in this exact format:\n")
	for _, q := range questions {
		fmt.Fprintf(&sb, "%s: %s\n", q.ID, q.Text)
		fmt.Fprintf(&sb, "   format: %s: %s\n", q.ID, exampleFormat(q))
	}
	return sb.String()
}

func writeAttr(sb *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(sb, "- %s: %s\n", label, value)
}

func exampleFormat(q entities.Question) string {
	switch q.Kind {
	case entities.QuestionKindScore, entities.QuestionKindMixed:
		return fmt.Sprintf("Score N (1-%d) - short reason", q.ScoreMax())
	case entities.QuestionKindWordList:
		words := make([]string, q.WordLimit())
		for i := range words {
			words[i] = "Word"
		}
		return strings.Join(words, ", ")
	default:
		return "one or two sentences"
	}
}
