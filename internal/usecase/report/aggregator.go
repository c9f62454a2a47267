package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	"github.com/johnquangdev/persona-panel/internal/usecase/questionnaire"
)

const (
	topWordsLimit        = 6
	summaryTopWords      = 3
	improvementsLimit    = 3
	improvementThreshold = 6.0
)

// complaintKeywords are matched case-insensitively against explanations
var complaintKeywords = []string{
	"langzaam", "onduidelijk", "verwarrend", "moeilijk", "klein", "slecht",
	"slow", "unclear", "confusing", "difficult", "small", "expensive",
}

var improvementTitles = map[string]string{
	"A3": "Sharpen relevance for the target audience",
	"A4": "Back up the promise with proof",
	"A6": "Strengthen click intent",
	"A7": "Make the call to action more specific",
	"B2": "Align the page with the ad",
	"B3": "Clarify the value proposition",
	"B5": "Build more trust",
	"B6": "Reduce form friction",
	"B7": "Make the call to action stand out",
	"C1": "Deliver on the ad's promise",
}

// Aggregator turns answers into a dashboard report. It holds no mutable
// state and is safe for concurrent use.
type Aggregator struct {
	questions []entities.Question
	byID      map[string]entities.Question
}

// NewAggregator creates an aggregator over the given questions, or the whole registry when none are given
func NewAggregator(questions ...entities.Question) *Aggregator {
	if len(questions) == 0 {
		questions = questionnaire.AllQuestions()
	}
	byID := make(map[string]entities.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return &Aggregator{questions: questions, byID: byID}
}

// Aggregate is a pure function of its input
func (a *Aggregator) Aggregate(answers []entities.StructuredAnswer) entities.AggregatedReport {
	answers = entities.DedupeAnswers(answers)

	scores := a.scoreStats(answers)
	words := wordFrequencies(answers)

	return entities.AggregatedReport{
		ScorePerQuestion: scores,
		WordFrequencies:  words,
		Improvements:     a.improvements(scores, answers),
		Summary:          a.summary(answers, scores, words),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func (a *Aggregator) scoreStats(answers []entities.StructuredAnswer) []entities.ScoreStat {
	present := make(map[string]bool)
	sums := make(map[string]int)
	counts := make(map[string]int)

	for _, ans := range answers {
		q, ok := a.byID[ans.QuestionID]
		if !ok || !q.Kind.HasScore() {
			continue
		}
		present[q.ID] = true
		if ans.IsFallback || ans.Score == nil || !q.ValidScore(*ans.Score) {
			continue
		}
		sums[q.ID] += *ans.Score
		counts[q.ID]++
	}

	stats := make([]entities.ScoreStat, 0, len(present))
	for _, q := range a.questions {
		if !present[q.ID] {
			continue
		}
		stat := entities.ScoreStat{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			MaxScore:     q.ScoreMax(),
			ValidCount:   counts[q.ID],
			HasData:      counts[q.ID] > 0,
		}
		if stat.HasData {
			stat.MeanScore = round1(float64(sums[q.ID]) / float64(counts[q.ID]))
		}
		stats = append(stats, stat)
	}
	return stats
}

// normalizeWord lower-cases and trims a token, dropping trailing punctuation
func normalizeWord(lower cases.Caser, w string) string {
	w = lower.String(strings.TrimSpace(w))
	return strings.TrimRightFunc(w, unicode.IsPunct)
}

func capitalize(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError {
		return w
	}
	return string(unicode.ToUpper(r)) + w[size:]
}

// wordColor derives a stable hue from the spelling
func wordColor(w string) string {
	sum := 0
	for _, r := range w {
		sum += int(r)
	}
	return fmt.Sprintf("hsl(%d, 70%%, 50%%)", sum%360)
}

func wordFrequencies(answers []entities.StructuredAnswer) []entities.WordFrequency {
	// a Caser is stateful, so each call gets its own
	lower := cases.Lower(language.Und)
	counts := make(map[string]int)

	for _, ans := range answers {
		for _, w := range ans.Words {
			if norm := normalizeWord(lower, w); norm != "" {
				counts[norm]++
			}
		}
	}

	freqs := make([]entities.WordFrequency, 0, len(counts))
	for w, c := range counts {
		freqs = append(freqs, entities.WordFrequency{Word: w, Count: c})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].Count != freqs[j].Count {
			return freqs[i].Count > freqs[j].Count
		}
		return freqs[i].Word < freqs[j].Word
	})
	if len(freqs) > topWordsLimit {
		freqs = freqs[:topWordsLimit]
	}
	for i := range freqs {
		freqs[i].Color = wordColor(freqs[i].Word)
		freqs[i].Word = capitalize(freqs[i].Word)
	}
	return freqs
}

func severityFor(mean float64) entities.Severity {
	switch {
	case mean < 3:
		return entities.SeverityHigh
	case mean < 5:
		return entities.SeverityMedium
	default:
		return entities.SeverityLow
	}
}

func improvementTitle(questionID string) string {
	if title, ok := improvementTitles[questionID]; ok {
		return title
	}
	return "Improve answers to " + questionID
}

// commonComplaint reports the keyword mentioned in more than one explanation
func commonComplaint(explanations []string) string {
	if len(explanations) == 0 {
		return ""
	}
	lowered := make([]string, len(explanations))
	for i, e := range explanations {
		lowered[i] = strings.ToLower(e)
	}

	best, bestCount := "", 1
	for _, kw := range complaintKeywords {
		count := 0
		for _, e := range lowered {
			if strings.Contains(e, kw) {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = kw, count
		}
	}
	if best == "" {
		return ""
	}
	pct := int(math.Round(float64(bestCount) / float64(len(explanations)) * 100))
	return fmt.Sprintf("%d%% of personas mentioned problems with: %s", pct, best)
}

func (a *Aggregator) improvements(stats []entities.ScoreStat, answers []entities.StructuredAnswer) []entities.Improvement {
	candidates := make([]entities.ScoreStat, 0, len(stats))
	for _, s := range stats {
		if s.HasData && s.MeanScore > 0 && s.MeanScore < improvementThreshold {
			candidates = append(candidates, s)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MeanScore < candidates[j].MeanScore
	})
	if len(candidates) > improvementsLimit {
		candidates = candidates[:improvementsLimit]
	}

	out := make([]entities.Improvement, 0, len(candidates))
	for i, s := range candidates {
		var explanations []string
		for _, ans := range answers {
			if ans.QuestionID == s.QuestionID && !ans.IsFallback && ans.Explanation != "" {
				explanations = append(explanations, ans.Explanation)
			}
		}
		desc := commonComplaint(explanations)
		if desc == "" {
			desc = fmt.Sprintf("%.1f/%d suggests improvement needed", s.MeanScore, s.MaxScore)
		}
		out = append(out, entities.Improvement{
			QuestionID:  s.QuestionID,
			Title:       improvementTitle(s.QuestionID),
			Description: desc,
			Severity:    severityFor(s.MeanScore),
			Rank:        i + 1,
			MeanScore:   s.MeanScore,
		})
	}
	return out
}

func (a *Aggregator) summary(answers []entities.StructuredAnswer, stats []entities.ScoreStat, words []entities.WordFrequency) entities.ReportSummary {
	s := entities.ReportSummary{TotalAnswers: len(answers), TopWords: []string{}}

	withContent := 0
	for _, ans := range answers {
		if ans.HasContent() {
			withContent++
		}
		if ans.IsValid() {
			s.ValidCount++
		}
		if ans.IsFallback {
			s.FallbackCount++
		}
		if ans.IsMock {
			s.MockCount++
		}
		if q, ok := a.byID[ans.QuestionID]; ok && q.Kind.HasScore() && !ans.IsFallback && ans.Score == nil {
			s.ScorelessCount++
		}
	}

	var sum float64
	n := 0
	for _, st := range stats {
		if st.HasData {
			sum += st.MeanScore
			n++
		}
	}
	if n > 0 {
		s.MeanOverallScore = round1(sum / float64(n))
	}
	if s.TotalAnswers > 0 {
		s.CompletionRatePercent = round1(float64(withContent) / float64(s.TotalAnswers) * 100)
	}

	for i := 0; i < len(words) && i < summaryTopWords; i++ {
		s.TopWords = append(s.TopWords, words[i].Word)
	}
	return s
}
