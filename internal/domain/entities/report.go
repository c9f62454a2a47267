package entities

// Severity ranks an improvement suggestion
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// ScoreStat is the mean score of one score-bearing question.
// HasData=false means no valid score was found, which is not the same as a low mean.
type ScoreStat struct {
	QuestionID   string  `json:"question_id"`
	QuestionText string  `json:"question_text,omitempty"`
	MeanScore    float64 `json:"mean_score"`
	MaxScore     int     `json:"max_score"`
	ValidCount   int     `json:"valid_count"`
	HasData      bool    `json:"has_data"`
}

// WordFrequency is one entry of the first impression word cloud
type WordFrequency struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
	Color string `json:"color"`
}

// Improvement is a ranked suggestion derived from a low scoring question
type Improvement struct {
	QuestionID  string   `json:"question_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Rank        int      `json:"rank"`
	MeanScore   float64  `json:"mean_score"`
}

// ReportSummary holds the headline counters
type ReportSummary struct {
	TotalAnswers          int      `json:"total_answers"`
	ValidCount            int      `json:"valid_count"`
	FallbackCount         int      `json:"fallback_count"`
	ScorelessCount        int      `json:"scoreless_count"`
	MockCount             int      `json:"mock_count"`
	MeanOverallScore      float64  `json:"mean_overall_score"`
	CompletionRatePercent float64  `json:"completion_rate_percent"`
	TopWords              []string `json:"top_words"`
}

// AggregatedReport is derived from answers on demand and never persisted
type AggregatedReport struct {
	ScorePerQuestion []ScoreStat     `json:"score_per_question"`
	WordFrequencies  []WordFrequency `json:"word_frequencies"`
	Improvements     []Improvement   `json:"improvements"`
	Summary          ReportSummary   `json:"summary"`
}
