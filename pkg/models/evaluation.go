package models

// PassThreshold is the percentage at or above which an answer meets criteria
// and a round passes.
const PassThreshold = 70

// Evaluation is the normalized assessment of one answer.
type Evaluation struct {
	Score        int            `json:"score"`
	Feedback     string         `json:"feedback"`
	CriteriaMet  bool           `json:"criteria_met"`
	Improvements []string       `json:"improvements"`
	Dimensions   map[string]any `json:"dimensions"`
	Raw          map[string]any `json:"raw,omitempty"`
}

// TopicScore is a per-topic average reported by the summarizer.
type TopicScore struct {
	Topic    string  `json:"topic"`
	AvgScore float64 `json:"avg_score"`
}

// RoundSummary is the outcome of a completed round.
type RoundSummary struct {
	OverallScore      int          `json:"overall_score"`
	Pass              bool         `json:"pass"`
	Strengths         []string     `json:"strengths"`
	Gaps              []string     `json:"gaps"`
	Recommendations   []string     `json:"recommendations"`
	TopicBreakdown    []TopicScore `json:"topic_breakdown"`
	EligibleForRound2 bool         `json:"eligible_for_round_2"`
}

// Status maps the summary onto a terminal round status.
func (s *RoundSummary) Status() string {
	if s.Pass {
		return RoundStatusPass
	}
	return RoundStatusFail
}
