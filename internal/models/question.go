package models

import (
	"strings"
	"time"
)

// AnswerCode is a canonical answer letter. Values are produced by
// NormalizeAnswer; anything outside A-D is carried verbatim.
type AnswerCode string

const (
	AnswerA AnswerCode = "A"
	AnswerB AnswerCode = "B"
	AnswerC AnswerCode = "C"
	AnswerD AnswerCode = "D"
)

// ChoiceCodes lists the answer codes in choice order.
var ChoiceCodes = [4]AnswerCode{AnswerA, AnswerB, AnswerC, AnswerD}

// NormalizeAnswer maps a raw answer to its canonical code.
//
// Input is trimmed and uppercased. A single digit 1-4 becomes A-D; any
// other value is returned as-is, so an unrecognized key never matches a
// well-formed answer.
func NormalizeAnswer(raw string) AnswerCode {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) == 1 && s[0] >= '1' && s[0] <= '4' {
		return ChoiceCodes[s[0]-'1']
	}
	return AnswerCode(s)
}

// Valid reports whether the code names one of the four choices.
func (c AnswerCode) Valid() bool {
	return c.Index() >= 0
}

// Index maps A-D to 0-3, or -1 for anything else.
func (c AnswerCode) Index() int {
	for i, code := range ChoiceCodes {
		if c == code {
			return i
		}
	}
	return -1
}

type Mode string

const (
	ModePractice Mode = "practice"
	ModeTest     Mode = "test"
	ModeRecap    Mode = "recap"
)

const DefaultTopic = "General"

// ── Core Structs ───────────────────────────────────────

type Question struct {
	ID       string     `json:"id"`
	Text     string     `json:"text"`
	Choices  [4]string  `json:"choices"`
	Answer   AnswerCode `json:"answer"`
	Solution string     `json:"solution,omitempty"`
	Topic    string     `json:"topic"`
	Marks    int        `json:"marks"`
}

// ChoiceText returns the text behind an answer code. Codes that do not
// resolve to a non-empty choice come back as the code itself.
func (q Question) ChoiceText(code AnswerCode) string {
	if i := code.Index(); i >= 0 && q.Choices[i] != "" {
		return q.Choices[i]
	}
	return string(code)
}

type Mistake struct {
	ID            string     `json:"id"`
	QuestionIndex int        `json:"question_index"`
	QuestionID    string     `json:"question_id"`
	QuestionText  string     `json:"question_text"`
	Choices       [4]string  `json:"choices"`
	Selected      AnswerCode `json:"selected_answer"`
	SelectedText  string     `json:"selected_answer_text"`
	Correct       AnswerCode `json:"correct_answer"`
	CorrectText   string     `json:"correct_answer_text"`
	Topic         string     `json:"topic"`
	Solution      string     `json:"solution,omitempty"`
	Marks         int        `json:"marks"`
	Reviewed      bool       `json:"reviewed"`
	Timestamp     time.Time  `json:"timestamp"`
}

// AsQuestion rebuilds the question a mistake was recorded against, keyed
// to the recorded correct answer.
func (m Mistake) AsQuestion() Question {
	return Question{
		ID:       m.QuestionID,
		Text:     m.QuestionText,
		Choices:  m.Choices,
		Answer:   m.Correct,
		Solution: m.Solution,
		Topic:    m.Topic,
		Marks:    m.Marks,
	}
}

// ── View Types (strip answers until feedback is visible) ──

type QuestionView struct {
	Index    int          `json:"index"`
	ID       string       `json:"id"`
	Text     string       `json:"text"`
	Choices  []ChoiceView `json:"choices"`
	Topic    string       `json:"topic"`
	Marks    int          `json:"marks"`
	Flagged  bool         `json:"flagged"`
	Selected *AnswerCode  `json:"selected_answer,omitempty"`

	// Populated only once feedback is visible.
	Answer   *AnswerCode `json:"correct_answer,omitempty"`
	Correct  *bool       `json:"correct,omitempty"`
	Solution string      `json:"solution,omitempty"`
}

type ChoiceView struct {
	Code AnswerCode `json:"code"`
	Text string     `json:"text"`
}

// ── Request Types ─────────────────────────────────────

type SubmitAnswerRequest struct {
	Index  *int   `json:"index,omitempty"`
	Answer string `json:"answer"`
}

type NavigateRequest struct {
	Direction string `json:"direction,omitempty"`
	Index     *int   `json:"index,omitempty"`
}

type SetModeRequest struct {
	Mode Mode `json:"mode"`
}

type FilterRequest struct {
	Topics  []string `json:"topics"`
	Shuffle bool     `json:"shuffle"`
}

// ── Response Types ────────────────────────────────────

type SubmitAnswerResponse struct {
	Index           int         `json:"index"`
	Selected        AnswerCode  `json:"selected_answer"`
	FeedbackVisible bool        `json:"feedback_visible"`
	Correct         *bool       `json:"correct,omitempty"`
	CorrectAnswer   *AnswerCode `json:"correct_answer,omitempty"`
	Solution        string      `json:"solution,omitempty"`
}

type UploadResponse struct {
	Loaded   int      `json:"loaded"`
	Dropped  int      `json:"dropped"`
	Topics   []string `json:"topics"`
	Warnings []string `json:"warnings,omitempty"`
}

type TopicsResponse struct {
	Topics []TopicCount `json:"topics"`
}

type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
