package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AnswerRecord is the stored row of a StructuredAnswer.
// The primary key is the (job, persona, question) triple so a rewrite replaces the row.
type AnswerRecord struct {
	JobID           uuid.UUID      `gorm:"type:text;primaryKey"`
	PersonaID       string         `gorm:"type:text;primaryKey"`
	QuestionID      string         `gorm:"type:text;primaryKey"`
	Position        int            `gorm:"not null;default:0"`
	Score           *int           `gorm:"type:integer"`
	Explanation     string         `gorm:"type:text"`
	Words           datatypes.JSON `gorm:"type:text"`
	RawResponseText string         `gorm:"type:text"`
	IsFallback      bool           `gorm:"not null;default:false"`
	IsMock          bool           `gorm:"not null;default:false"`
	FallbackReason  string         `gorm:"type:text"`
	Strategy        string         `gorm:"type:text"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (AnswerRecord) TableName() string {
	return "analysis_answers"
}

// NewAnswerRecord converts an answer for storage
func NewAnswerRecord(jobID uuid.UUID, position int, a StructuredAnswer) AnswerRecord {
	words := datatypes.JSON([]byte("[]"))
	if len(a.Words) > 0 {
		if b, err := json.Marshal(a.Words); err == nil {
			words = datatypes.JSON(b)
		}
	}
	return AnswerRecord{
		JobID:           jobID,
		PersonaID:       a.PersonaID,
		QuestionID:      a.QuestionID,
		Position:        position,
		Score:           a.Score,
		Explanation:     a.Explanation,
		Words:           words,
		RawResponseText: a.RawResponseText,
		IsFallback:      a.IsFallback,
		IsMock:          a.IsMock,
		FallbackReason:  a.FallbackReason,
		Strategy:        a.Strategy,
	}
}

// ToAnswer converts a stored row back to the domain shape
func (r AnswerRecord) ToAnswer() StructuredAnswer {
	var words []string
	if len(r.Words) > 0 {
		_ = json.Unmarshal(r.Words, &words)
	}
	if len(words) == 0 {
		words = nil
	}
	return StructuredAnswer{
		PersonaID:       r.PersonaID,
		QuestionID:      r.QuestionID,
		Score:           r.Score,
		Explanation:     r.Explanation,
		Words:           words,
		RawResponseText: r.RawResponseText,
		IsFallback:      r.IsFallback,
		IsMock:          r.IsMock,
		FallbackReason:  r.FallbackReason,
		Strategy:        r.Strategy,
	}
}

// ProgressRecord stores one JobProgress snapshot per scope
type ProgressRecord struct {
	Scope   string         `gorm:"type:text;primaryKey"`
	Payload datatypes.JSON `gorm:"type:text;not null"`
	SavedAt time.Time      `gorm:"not null;index"`
}

// TableName specifies the table name for GORM
func (ProgressRecord) TableName() string {
	return "analysis_progress"
}
