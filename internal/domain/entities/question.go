package entities

// QuestionKind tells the parser how to type an answer body
type QuestionKind string

const (
	QuestionKindScore    QuestionKind = "score"     // integer 1..MaxScore
	QuestionKindFreeText QuestionKind = "free_text" // verbatim text
	QuestionKindWordList QuestionKind = "word_list" // a few short words
	QuestionKindMixed    QuestionKind = "mixed"     // score plus reason
)

const (
	DefaultMaxScore          = 7
	DefaultExpectedWordCount = 3
)

// HasScore reports whether answers of this kind carry a numeric score
func (k QuestionKind) HasScore() bool {
	return k == QuestionKindScore || k == QuestionKindMixed
}

// Question is one item of a questionnaire. Values are immutable once registered.
type Question struct {
	ID                string       `json:"id"`
	Text              string       `json:"text"`
	Kind              QuestionKind `json:"kind"`
	MaxScore          int          `json:"max_score,omitempty"`
	ExpectedWordCount int          `json:"expected_word_count,omitempty"`
}

// ScoreMax returns the upper bound of the valid score range
func (q Question) ScoreMax() int {
	if q.MaxScore > 0 {
		return q.MaxScore
	}
	return DefaultMaxScore
}

// WordLimit returns how many words a word list answer keeps
func (q Question) WordLimit() int {
	if q.ExpectedWordCount > 0 {
		return q.ExpectedWordCount
	}
	return DefaultExpectedWordCount
}

// ValidScore reports whether s lies inside [1, ScoreMax()]
func (q Question) ValidScore(s int) bool {
	return s >= 1 && s <= q.ScoreMax()
}
