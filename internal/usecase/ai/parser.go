package ai

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
)

const fallbackRawRunes = 200

// Parser turns one model response into one StructuredAnswer per question.
// It never fails: anything it cannot place becomes a fallback record.
type Parser struct {
	maxRawRunes int
}

// NewParser creates a new Parser instance
func NewParser() *Parser {
	return &Parser{maxRawRunes: fallbackRawRunes}
}

// parseInput is what every extraction strategy sees
type parseInput struct {
	raw        string
	lines      []string         // trimmed, non-empty
	positional []string         // candidate lines for positional matching
	anchors    []*regexp.Regexp // anchored pattern per question, batch order
	embedded   *regexp.Regexp
	question   entities.Question
	index      int
	total      int
}

type strategy struct {
	name string
	fn   func(parseInput) (string, bool)
}

var strategies = []strategy{
	{name: entities.StrategyAnchored, fn: anchoredBody},
	{name: entities.StrategyEmbedded, fn: embeddedBody},
	{name: entities.StrategyPositional, fn: positionalBody},
}

// firstMatch runs strategies in order and returns the first body found
func firstMatch(in parseInput, ss ...strategy) (string, string, bool) {
	for _, s := range ss {
		if body, ok := s.fn(in); ok {
			return body, s.name, true
		}
	}
	return "", entities.StrategyNone, false
}

// ParseResponse parses a batched response for all questions, in question order
func (p *Parser) ParseResponse(personaID, raw string, questions []entities.Question) []entities.StructuredAnswer {
	lines := splitLines(raw)
	positional := positionalCandidates(raw, lines, len(questions))
	anchors := make([]*regexp.Regexp, len(questions))
	for i, q := range questions {
		anchors[i] = anchoredPattern(q.ID)
	}

	answers := make([]entities.StructuredAnswer, 0, len(questions))
	for i, q := range questions {
		in := parseInput{
			raw:        raw,
			lines:      lines,
			positional: positional,
			anchors:    anchors,
			embedded:   embeddedPattern(q.ID),
			question:   q,
			index:      i,
			total:      len(questions),
		}
		answers = append(answers, p.parseOne(personaID, in))
	}
	return answers
}

// ParseAnswer parses a response that answers a single question
func (p *Parser) ParseAnswer(personaID, raw string, q entities.Question) entities.StructuredAnswer {
	return p.ParseResponse(personaID, raw, []entities.Question{q})[0]
}

func (p *Parser) parseOne(personaID string, in parseInput) entities.StructuredAnswer {
	base := entities.StructuredAnswer{PersonaID: personaID, QuestionID: in.question.ID}

	if strings.TrimSpace(in.raw) == "" {
		return p.fallback(base, in.raw, "empty model response")
	}

	body, name, ok := firstMatch(in, strategies...)
	if !ok {
		return p.fallback(base, in.raw, fmt.Sprintf("parser could not find an answer for %s", in.question.ID))
	}

	answer := typeAnswer(base, in.question, body)
	answer.Strategy = name
	answer.RawResponseText = body
	if !answer.HasContent() {
		answer.RawResponseText = truncateRunes(body, p.maxRawRunes)
		answer.IsFallback = true
		answer.FallbackReason = fmt.Sprintf("answer for %s had no usable %s content", in.question.ID, in.question.Kind)
	}
	return answer
}

func (p *Parser) fallback(a entities.StructuredAnswer, raw, reason string) entities.StructuredAnswer {
	a.IsFallback = true
	a.FallbackReason = reason
	a.RawResponseText = truncateRunes(strings.TrimSpace(raw), p.maxRawRunes)
	a.Strategy = entities.StrategyNone
	return a
}

// Strategies

func anchoredBody(in parseInput) (string, bool) {
	re := in.anchors[in.index]
	for _, line := range in.lines {
		if m := re.FindStringSubmatch(line); m != nil {
			if body := strings.TrimSpace(m[1]); body != "" {
				return body, true
			}
		}
	}
	return "", false
}

func anchoredPattern(id string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^[\s>*_#\-•]*` + regexp.QuoteMeta(id) + `[*_]*(?:\s*[:：][*_]*|\s)\s*(.*)$`)
}

var leadingPunct = regexp.MustCompile(`^[\s:：.,;|)\]\-–—*_>]+`)

func embeddedPattern(id string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(id))
}

func embeddedBody(in parseInput) (string, bool) {
	re := in.embedded
	for _, line := range in.lines {
		for _, loc := range re.FindAllStringIndex(line, -1) {
			if !isBoundary(line[:loc[0]], true) || !isBoundary(line[loc[1]:], false) {
				continue
			}
			rest := strings.TrimSpace(leadingPunct.ReplaceAllString(line[loc[1]:], ""))
			if utf8.RuneCountInString(rest) > 3 {
				return rest, true
			}
		}
	}
	return "", false
}

// isBoundary checks the rune touching the id: the last rune of s when
// before is true, else the first one.
func isBoundary(s string, before bool) bool {
	if s == "" {
		return true
	}
	var r rune
	if before {
		r, _ = utf8.DecodeLastRuneInString(s)
	} else {
		r, _ = utf8.DecodeRuneInString(s)
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d{1,2}[.)])\s+`)

func positionalBody(in parseInput) (string, bool) {
	if in.index >= len(in.positional) {
		return "", false
	}
	line := in.positional[in.index]
	// a line anchored to another question is that question's answer
	for j, re := range in.anchors {
		if j != in.index && re.MatchString(line) {
			return "", false
		}
	}
	body := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
	return body, body != ""
}

// positionalCandidates drops header lines like "Here are my answers:". A
// single-line response asked several questions is split into sentences.
func positionalCandidates(raw string, lines []string, questionCount int) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.HasSuffix(l, ":") {
			continue
		}
		out = append(out, l)
	}
	if questionCount > 1 && !strings.Contains(strings.TrimSpace(raw), "\n") && len(out) == 1 {
		return splitSentences(out[0])
	}
	return out
}

func splitSentences(s string) []string {
	var out []string
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		b.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			if sentence := strings.TrimSpace(b.String()); sentence != "" {
				out = append(out, sentence)
			}
			b.Reset()
		}
	}
	if rest := strings.TrimSpace(b.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

// Typing

func typeAnswer(a entities.StructuredAnswer, q entities.Question, body string) entities.StructuredAnswer {
	switch q.Kind {
	case entities.QuestionKindWordList:
		a.Words = extractWords(body, q.WordLimit())
	case entities.QuestionKindFreeText:
		a.Explanation = extractText(body)
	default:
		a.Score, a.Explanation = extractScore(body, q.ScoreMax())
	}
	return a
}

var (
	labeledScore = regexp.MustCompile(`(?i)\b(?:score|rating|cijfer)\s*[:=]?\s*(\d+(?:[.,]\d+)?)(?:\s*(?:/|out of|uit|van)\s*(\d+))?`)
	ratioScore   = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)\s*(?:/|out of|uit|van)\s*(\d+)\b`)
	bareNumber   = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

	explanationLabel = regexp.MustCompile(`(?i)^(?:reason|explanation|because|why|uitleg|reden|waarom)\s*[:\-–]\s*`)
	doubleSeparator  = regexp.MustCompile(`([,;])\s*[,;]`)
	spaceBeforePunct = regexp.MustCompile(`\s+([,.;])`)
	multiSpace       = regexp.MustCompile(`\s{2,}`)
)

// extractScore finds a score in [1, max]. Out of range or fractional values
// are rejected, never clamped. The explanation is what remains of the body.
func extractScore(body string, max int) (*int, string) {
	var score *int
	rest := body

	if loc := labeledScore.FindStringSubmatchIndex(body); loc != nil {
		num := body[loc[2]:loc[3]]
		denom := ""
		if loc[4] >= 0 {
			denom = body[loc[4]:loc[5]]
		}
		score = acceptScore(num, denom, max)
		rest = body[:loc[0]] + body[loc[1]:]
	} else if loc := ratioScore.FindStringSubmatchIndex(body); loc != nil {
		score = acceptScore(body[loc[2]:loc[3]], body[loc[4]:loc[5]], max)
		rest = body[:loc[0]] + body[loc[1]:]
	} else if v, start, end, ok := firstBareScore(body, max); ok {
		score = &v
		if strings.TrimSpace(body[:start]) == "" {
			rest = body[end:]
		}
	}

	return score, cleanExplanation(rest)
}

func acceptScore(num, denom string, max int) *int {
	v, err := strconv.Atoi(num)
	if err != nil || v < 1 || v > max {
		return nil
	}
	if denom != "" {
		if d, err := strconv.Atoi(denom); err != nil || d != max {
			return nil
		}
	}
	return &v
}

func firstBareScore(body string, max int) (int, int, int, bool) {
	for _, loc := range bareNumber.FindAllStringIndex(body, -1) {
		tok := body[loc[0]:loc[1]]
		if strings.ContainsAny(tok, ".,") {
			continue
		}
		if loc[0] > 0 {
			prev, _ := utf8.DecodeLastRuneInString(body[:loc[0]])
			if prev == '+' || prev == '-' || unicode.IsLetter(prev) {
				continue
			}
		}
		if loc[1] < len(body) {
			next, _ := utf8.DecodeRuneInString(body[loc[1]:])
			if next == '%' || unicode.IsLetter(next) {
				continue
			}
		}
		v, err := strconv.Atoi(tok)
		if err != nil || v < 1 || v > max {
			continue
		}
		return v, loc[0], loc[1], true
	}
	return 0, 0, 0, false
}

func cleanExplanation(s string) string {
	s = doubleSeparator.ReplaceAllString(s, "$1")
	s = spaceBeforePunct.ReplaceAllString(s, "$1")
	s = multiSpace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(leadingPunct.ReplaceAllString(s, ""))
	s = strings.TrimSpace(explanationLabel.ReplaceAllString(s, ""))
	s = strings.TrimSpace(leadingPunct.ReplaceAllString(s, ""))
	if utf8.RuneCountInString(s) > 3 {
		return s
	}
	return ""
}

var (
	wordLabel    = regexp.MustCompile(`(?i)^(?:words?|woorden|first impression|eerste indruk)\s*[:\-–]\s*`)
	wordStrip    = regexp.MustCompile("[\"'\\[\\]()“”‘’*_`]")
	wordSplit    = regexp.MustCompile(`[,\s]+`)
	answerLabel  = regexp.MustCompile(`(?i)^(?:answer|antwoord|response)\s*[:\-–]\s*`)
	trailingJunk = ".!?:;"
)

func extractWords(body string, limit int) []string {
	body = wordLabel.ReplaceAllString(strings.TrimSpace(body), "")
	body = wordStrip.ReplaceAllString(body, "")

	var words []string
	for _, tok := range wordSplit.Split(body, -1) {
		tok = strings.TrimRight(strings.TrimSpace(tok), trailingJunk)
		if utf8.RuneCountInString(tok) <= 1 || !containsLetter(tok) {
			continue
		}
		words = append(words, tok)
		if len(words) == limit {
			break
		}
	}
	return words
}

func extractText(body string) string {
	text := strings.TrimSpace(leadingPunct.ReplaceAllString(body, ""))
	text = strings.TrimSpace(answerLabel.ReplaceAllString(text, ""))
	if !strings.ContainsFunc(text, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
		return ""
	}
	return text
}

func containsLetter(s string) bool {
	return strings.ContainsFunc(s, unicode.IsLetter)
}

func splitLines(raw string) []string {
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
