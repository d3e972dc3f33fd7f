package models

// ── Session Snapshot ─────────────────────────────────────

type SessionState struct {
	Mode            Mode               `json:"mode"`
	CurrentIndex    int                `json:"current_index"`
	Total           int                `json:"total"`
	Answers         map[int]AnswerCode `json:"answers"`
	Flagged         []int              `json:"flagged"`
	Completed       bool               `json:"completed"`
	FeedbackVisible bool               `json:"feedback_visible"`
	MistakeCount    int                `json:"mistake_count"`
	Timer           TimerState         `json:"timer"`
}

type TimerState struct {
	Active      bool `json:"active"`
	SecondsLeft int  `json:"seconds_left"`
	PerQuestion int  `json:"per_question_seconds"`
}

// ── Analytics Types ──────────────────────────────────────

type Score struct {
	Correct             int     `json:"correct"`
	Wrong               int     `json:"wrong"`
	Attempted           int     `json:"attempted"`
	Total               int     `json:"total"`
	Percentage          float64 `json:"percentage"`
	AttemptedPercentage float64 `json:"attempted_percentage"`
}

type TopicStat struct {
	Topic           string  `json:"topic"`
	Total           int     `json:"total"`
	Attempted       int     `json:"attempted"`
	Correct         int     `json:"correct"`
	MarksEarned     int     `json:"marks_earned"`
	MarksPossible   int     `json:"marks_possible"`
	Accuracy        float64 `json:"accuracy"`
	MarksPercentage float64 `json:"marks_percentage"`
	Grade           string  `json:"grade"`
}

type Summary struct {
	Score            Score       `json:"score"`
	MarksEarned      int         `json:"marks_earned"`
	MarksPossible    int         `json:"marks_possible"`
	MarksPercentage  float64     `json:"marks_percentage"`
	Grade            string      `json:"grade"`
	FlaggedCount     int         `json:"flagged_count"`
	TotalTimeSeconds float64     `json:"total_time_seconds"`
	AvgTimeSeconds   float64     `json:"avg_time_seconds"`
	Topics           []TopicStat `json:"topics"`
}

// ── Export Types ─────────────────────────────────────────

// ResultRow is one line of the results export.
type ResultRow struct {
	QuestionID       string
	Question         string
	YourAnswer       string
	CorrectAnswer    string
	IsCorrect        bool
	Topic            string
	MarksAwarded     int
	TimeTakenSeconds int
}

type MistakeListResponse struct {
	Mistakes []Mistake `json:"mistakes"`
	Total    int       `json:"total"`
}
