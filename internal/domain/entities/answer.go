package entities

// Parse strategies recorded on each answer
const (
	StrategyAnchored   = "anchored"
	StrategyEmbedded   = "embedded"
	StrategyPositional = "positional"
	StrategyMock       = "mock"
	StrategyNone       = "none"
)

// StructuredAnswer is the typed result for one (persona, question) pair
type StructuredAnswer struct {
	PersonaID       string   `json:"persona_id"`
	QuestionID      string   `json:"question_id"`
	Score           *int     `json:"score,omitempty"`
	Explanation     string   `json:"explanation,omitempty"`
	Words           []string `json:"words,omitempty"`
	RawResponseText string   `json:"raw_response_text"`
	IsFallback      bool     `json:"is_fallback"`
	IsMock          bool     `json:"is_mock"`
	FallbackReason  string   `json:"fallback_reason,omitempty"`
	Strategy        string   `json:"strategy,omitempty"`
}

// AnswerKey identifies the (persona, question) pair an answer belongs to
type AnswerKey struct {
	PersonaID  string
	QuestionID string
}

// Key returns the pair identity of the answer
func (a StructuredAnswer) Key() AnswerKey {
	return AnswerKey{PersonaID: a.PersonaID, QuestionID: a.QuestionID}
}

// HasContent reports whether any of score, explanation or words is populated
func (a StructuredAnswer) HasContent() bool {
	return a.Score != nil || a.Explanation != "" || len(a.Words) > 0
}

// IsValid is a genuine, non-fallback answer with content
func (a StructuredAnswer) IsValid() bool {
	return !a.IsFallback && a.HasContent()
}

// IntPtr is a small helper for building scores
func IntPtr(v int) *int {
	return &v
}

// AnswerSet keeps the most recent answer per pair while preserving the
// order in which pairs were first seen.
type AnswerSet struct {
	order []AnswerKey
	byKey map[AnswerKey]StructuredAnswer
}

// NewAnswerSet builds a set from existing answers, later ones winning
func NewAnswerSet(answers ...StructuredAnswer) *AnswerSet {
	s := &AnswerSet{byKey: make(map[AnswerKey]StructuredAnswer, len(answers))}
	s.Put(answers...)
	return s
}

// Put inserts or replaces answers
func (s *AnswerSet) Put(answers ...StructuredAnswer) {
	for _, a := range answers {
		k := a.Key()
		if _, exists := s.byKey[k]; !exists {
			s.order = append(s.order, k)
		}
		s.byKey[k] = a
	}
}

// Len returns the number of distinct pairs
func (s *AnswerSet) Len() int {
	return len(s.order)
}

// List returns a copy of the answers in first-seen order
func (s *AnswerSet) List() []StructuredAnswer {
	out := make([]StructuredAnswer, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byKey[k])
	}
	return out
}

// DedupeAnswers keeps the last answer for each pair
func DedupeAnswers(answers []StructuredAnswer) []StructuredAnswer {
	return NewAnswerSet(answers...).List()
}
