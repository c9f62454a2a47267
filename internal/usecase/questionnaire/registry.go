package questionnaire

import (
	"strings"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
)

// Question set names
const (
	SetAd       = "ad"
	SetLanding  = "landing"
	SetCombined = "combined"
	SetComplete = "complete"

	DefaultSet = SetAd
)

var adQuestions = []entities.Question{
	{ID: "A1", Text: "First impression (3 words)", Kind: entities.QuestionKindWordList, ExpectedWordCount: 3},
	{ID: "A2", Text: "What is this and who is it for? (in your own words)", Kind: entities.QuestionKindFreeText},
	{ID: "A3", Text: "Relevance to you (1-7). Why? Which audience does this mostly reach?", Kind: entities.QuestionKindScore, MaxScore: 7},
	{ID: "A4", Text: "What is being promised? Credibility (1-7). What proof is missing?", Kind: entities.QuestionKindScore, MaxScore: 7},
	{ID: "A5", Text: "Emotion and curiosity: what do you feel when you see this?", Kind: entities.QuestionKindFreeText},
	{ID: "A6", Text: "Click intent (1-7). What would earn it two more points?", Kind: entities.QuestionKindScore, MaxScore: 7},
	{ID: "A7", Text: "CTA expectation: what do you think happens after the click? CTA specificity (1-7)", Kind: entities.QuestionKindMixed, MaxScore: 7},
}

var landingQuestions = []entities.Question{
	{ID: "B1", Text: "5-second test: what is this, who is it for, what can I do here?", Kind: entities.QuestionKindFreeText},
	{ID: "B2", Text: "Match with the ad (\"scent\") (1-7). What matches and what does not?", Kind: entities.QuestionKindScore, MaxScore: 7},
	{ID: "B3", Text: "Value proposition (main message). Clarity (1-7)", Kind: entities.QuestionKindScore, MaxScore: 7},
	{ID: "B4", Text: "What are you missing to decide? (impact, cost, time, privacy, proof)", Kind: entities.QuestionKindFreeText},
	{ID: "B5", Text: "Trust: what builds trust and what feels too much like marketing? Trust (1-7)", Kind: entities.QuestionKindScore, MaxScore: 7},
	{ID: "B6", Text: "Form and friction: annoying fields or doubts. Effort (1-7). What can be removed or shortened?", Kind: entities.QuestionKindScore, MaxScore: 7},
	{ID: "B7", Text: "CTA on the page: do you understand what happens, is it visible? CTA strength (1-7)", Kind: entities.QuestionKindScore, MaxScore: 7},
	{ID: "B8", Text: "Mobile: readability and tap targets. What gets in your way?", Kind: entities.QuestionKindFreeText},
}

var combinedQuestions = []entities.Question{
	{ID: "C1", Text: "Does the page deliver on the promise? (1-7). What is missing most?", Kind: entities.QuestionKindScore, MaxScore: 7},
	{ID: "C2", Text: "Expectation: what would you have wanted to see or do here?", Kind: entities.QuestionKindFreeText},
	{ID: "C3", Text: "The one change with the biggest positive effect on conversion", Kind: entities.QuestionKindFreeText},
}

var setAliases = map[string]string{
	SetAd:            SetAd,
	"advertentie":    SetAd,
	"advertisement":  SetAd,
	SetLanding:       SetLanding,
	"landingspagina": SetLanding,
	"landing_page":   SetLanding,
	SetCombined:      SetCombined,
	"combinatie":     SetCombined,
	"combination":    SetCombined,
	SetComplete:      SetComplete,
}

// Resolve maps a set name or alias to its canonical name.
// Unknown names resolve to DefaultSet so a typo never halts a batch job.
func Resolve(setName string) (string, bool) {
	if canonical, ok := setAliases[strings.ToLower(strings.TrimSpace(setName))]; ok {
		return canonical, true
	}
	return DefaultSet, false
}

// QuestionsForSet returns the ordered questions of a set
func QuestionsForSet(setName string) []entities.Question {
	canonical, _ := Resolve(setName)
	switch canonical {
	case SetLanding:
		return clone(landingQuestions)
	case SetCombined:
		return clone(combinedQuestions)
	case SetComplete:
		return AllQuestions()
	default:
		return clone(adQuestions)
	}
}

// AllQuestions returns the deduplicated union of every set in registry order
func AllQuestions() []entities.Question {
	seen := make(map[string]bool)
	out := make([]entities.Question, 0, len(adQuestions)+len(landingQuestions)+len(combinedQuestions))
	for _, group := range [][]entities.Question{adQuestions, landingQuestions, combinedQuestions} {
		for _, q := range group {
			if seen[q.ID] {
				continue
			}
			seen[q.ID] = true
			out = append(out, q)
		}
	}
	return out
}

// CountFor returns the number of questions in a set
func CountFor(setName string) int {
	return len(QuestionsForSet(setName))
}

// Lookup finds a question by id across all sets
func Lookup(id string) (entities.Question, bool) {
	for _, q := range AllQuestions() {
		if q.ID == id {
			return q, true
		}
	}
	return entities.Question{}, false
}

// SetNames lists the canonical set names
func SetNames() []string {
	return []string{SetAd, SetLanding, SetCombined, SetComplete}
}

func clone(qs []entities.Question) []entities.Question {
	return append([]entities.Question(nil), qs...)
}
