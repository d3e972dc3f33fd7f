package quiz

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/smart-quiz/backend/internal/models"
)

var (
	ErrNoQuestions      = errors.New("no questions loaded")
	ErrIndexOutOfRange  = errors.New("question index out of range")
	ErrInvalidMode      = errors.New("mode must be 'practice' or 'test'")
	ErrMistakeNotFound  = errors.New("mistake not found")
	ErrInvalidDirection = errors.New("direction must be 'next' or 'previous'")
)

// Session holds the state of a single quiz run: the loaded questions,
// the user's answers, and the mistakes derived from them.
//
// A Session is not safe for concurrent use.
type Session struct {
	questions []models.Question
	current   int
	answers   map[int]models.AnswerCode
	mode      models.Mode
	completed bool
	feedback  bool
	mistakes  []models.Mistake
	flagged   map[int]bool

	recap        []models.Mistake
	recapAnswers map[int]models.AnswerCode

	timeSpent map[int]time.Duration
	viewStart time.Time

	perQuestion int
	secondsLeft int
	timerActive bool

	now   func() time.Time
	newID func() string
}

// Submission is the outcome of grading one answer.
type Submission struct {
	Index    int
	Selected models.AnswerCode
	Answer   models.AnswerCode
	Correct  bool
}

// NewSession returns an empty session in practice mode. timerSeconds is
// the per-question countdown; zero disables the timer.
func NewSession(timerSeconds int) *Session {
	s := &Session{
		mode:        models.ModePractice,
		perQuestion: timerSeconds,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	s.clear()
	return s
}

// ── Loading & Reset ──────────────────────────────────────

// LoadQuestions replaces the question list and starts over in practice mode.
func (s *Session) LoadQuestions(questions []models.Question) {
	s.questions = append([]models.Question(nil), questions...)
	s.mode = models.ModePractice
	s.clear()
}

// Reset clears all progress but keeps the loaded questions. A session in
// recap mode falls back to practice.
func (s *Session) Reset() {
	if s.mode == models.ModeRecap {
		s.mode = models.ModePractice
	}
	s.clear()
}

// SetMode switches between practice and test. Changing mode resets progress.
func (s *Session) SetMode(mode models.Mode) error {
	if mode != models.ModePractice && mode != models.ModeTest {
		return ErrInvalidMode
	}
	s.mode = mode
	s.clear()
	return nil
}

func (s *Session) clear() {
	s.current = 0
	s.answers = make(map[int]models.AnswerCode)
	s.completed = false
	s.feedback = false
	s.mistakes = nil
	s.flagged = make(map[int]bool)
	s.recap = nil
	s.recapAnswers = make(map[int]models.AnswerCode)
	s.timeSpent = make(map[int]time.Duration)
	s.viewStart = time.Time{}
	s.StopTimer()
	s.startClock()
}

// ── Answering ────────────────────────────────────────────

// SubmitAnswer records raw as the answer to the question at index and
// reconciles the mistake list. Feedback is revealed immediately in
// practice and recap mode and withheld in test mode.
func (s *Session) SubmitAnswer(index int, raw string) (Submission, error) {
	qs := s.active()
	if len(qs) == 0 {
		return Submission{}, ErrNoQuestions
	}
	if index < 0 || index >= len(qs) {
		return Submission{}, ErrIndexOutOfRange
	}

	q := qs[index]
	sub := Submission{
		Index:    index,
		Selected: models.NormalizeAnswer(raw),
		Answer:   models.NormalizeAnswer(string(q.Answer)),
	}
	sub.Correct = sub.Selected == sub.Answer

	if s.mode == models.ModeRecap {
		s.recapAnswers[index] = sub.Selected
		s.feedback = true
		return sub, nil
	}

	s.answers[index] = sub.Selected
	s.feedback = s.mode == models.ModePractice

	if sub.Correct {
		s.removeMistake(index)
	} else {
		s.upsertMistake(index, q, sub.Selected, sub.Answer)
	}
	return sub, nil
}

func (s *Session) upsertMistake(index int, q models.Question, selected, correct models.AnswerCode) {
	pos := s.mistakeAt(index)
	if pos >= 0 && s.mistakes[pos].Selected == selected && s.mistakes[pos].Correct == correct {
		return
	}

	topic := q.Topic
	if topic == "" {
		topic = models.DefaultTopic
	}
	marks := q.Marks
	if marks <= 0 {
		marks = 1
	}

	m := models.Mistake{
		ID:            s.newID(),
		QuestionIndex: index,
		QuestionID:    q.ID,
		QuestionText:  q.Text,
		Choices:       q.Choices,
		Selected:      selected,
		SelectedText:  q.ChoiceText(selected),
		Correct:       correct,
		CorrectText:   q.ChoiceText(correct),
		Topic:         topic,
		Solution:      q.Solution,
		Marks:         marks,
		Timestamp:     s.now(),
	}

	if pos >= 0 {
		s.mistakes[pos] = m
		return
	}
	s.mistakes = append(s.mistakes, m)
}

func (s *Session) removeMistake(index int) {
	if pos := s.mistakeAt(index); pos >= 0 {
		s.mistakes = append(s.mistakes[:pos], s.mistakes[pos+1:]...)
	}
}

func (s *Session) mistakeAt(index int) int {
	for i, m := range s.mistakes {
		if m.QuestionIndex == index {
			return i
		}
	}
	return -1
}

// MarkReviewed flags a mistake as reviewed.
func (s *Session) MarkReviewed(id string) error {
	for i := range s.mistakes {
		if s.mistakes[i].ID == id {
			s.mistakes[i].Reviewed = true
			return nil
		}
	}
	return ErrMistakeNotFound
}

// ToggleFlag marks or unmarks a question of the loaded quiz for later
// review and returns the new state.
func (s *Session) ToggleFlag(index int) (bool, error) {
	if len(s.questions) == 0 {
		return false, ErrNoQuestions
	}
	if index < 0 || index >= len(s.questions) {
		return false, ErrIndexOutOfRange
	}
	if s.flagged[index] {
		delete(s.flagged, index)
		return false, nil
	}
	s.flagged[index] = true
	return true, nil
}

// ── Navigation ───────────────────────────────────────────

// Next moves to the following question. It stays put on the last one.
func (s *Session) Next() int {
	if s.current < s.Len()-1 {
		s.moveTo(s.current + 1)
	}
	return s.current
}

// Previous moves to the preceding question. It stays put on the first one.
func (s *Session) Previous() int {
	if s.current > 0 {
		s.moveTo(s.current - 1)
	}
	return s.current
}

// GoTo jumps to index, clamped to the active question list.
func (s *Session) GoTo(index int) int {
	n := s.Len()
	if n == 0 {
		return s.current
	}
	if index < 0 {
		index = 0
	}
	if index > n-1 {
		index = n - 1
	}
	s.moveTo(index)
	return s.current
}

func (s *Session) moveTo(index int) {
	s.flushClock()
	s.current = index
	s.feedback = false
	if s.timerActive {
		s.secondsLeft = s.perQuestion
	}
	s.startClock()
}

// ── Test Completion ──────────────────────────────────────

// Finish completes a test and reveals feedback for every question. Outside
// test mode it does nothing and returns false.
func (s *Session) Finish() bool {
	if s.mode != models.ModeTest {
		return false
	}
	s.flushClock()
	s.completed = true
	s.feedback = true
	s.StopTimer()
	return true
}

// ── Recap ────────────────────────────────────────────────

// StartRecap snapshots the current mistakes into a recap sub-session and
// returns its length. Answers given during the recap are graded against
// the recorded correct answers and never touch the main mistake list.
func (s *Session) StartRecap() int {
	s.flushClock()
	s.StopTimer()
	s.recap = append([]models.Mistake(nil), s.mistakes...)
	s.recapAnswers = make(map[int]models.AnswerCode)
	s.mode = models.ModeRecap
	s.current = 0
	s.feedback = false
	return len(s.recap)
}

// ExitRecap discards the recap sub-session and returns to practice mode.
func (s *Session) ExitRecap() bool {
	if s.mode != models.ModeRecap {
		return false
	}
	s.recap = nil
	s.recapAnswers = make(map[int]models.AnswerCode)
	s.mode = models.ModePractice
	s.current = 0
	s.completed = false
	s.feedback = false
	s.startClock()
	return true
}

// ── Countdown ────────────────────────────────────────────

// StartTimer arms the per-question countdown. It reports false when the
// timer is disabled, nothing is loaded, or the test is already finished.
func (s *Session) StartTimer() bool {
	if s.perQuestion <= 0 || s.Len() == 0 {
		return false
	}
	if s.completed && s.mode != models.ModeRecap {
		return false
	}
	s.timerActive = true
	s.secondsLeft = s.perQuestion
	return true
}

func (s *Session) StopTimer() {
	s.timerActive = false
	s.secondsLeft = 0
}

// Tick advances the countdown by one second. When it reaches zero the
// session moves to the next question and restarts the countdown, or halts
// at zero on the last question. It reports whether the timer is still
// running.
func (s *Session) Tick() bool {
	if !s.timerActive {
		return false
	}
	if s.secondsLeft > 0 {
		s.secondsLeft--
	}
	if s.secondsLeft > 0 {
		return true
	}
	if s.current < s.Len()-1 {
		s.moveTo(s.current + 1)
		return true
	}
	s.timerActive = false
	return false
}

func (s *Session) TimerState() models.TimerState {
	return models.TimerState{
		Active:      s.timerActive,
		SecondsLeft: s.secondsLeft,
		PerQuestion: s.perQuestion,
	}
}

// ── Time Tracking ────────────────────────────────────────

func (s *Session) startClock() {
	if s.mode == models.ModeRecap || s.completed || len(s.questions) == 0 {
		return
	}
	s.viewStart = s.now()
}

func (s *Session) flushClock() {
	if s.viewStart.IsZero() {
		return
	}
	s.timeSpent[s.current] += s.now().Sub(s.viewStart)
	s.viewStart = time.Time{}
}

// TimeSpent returns the time spent on each question of the loaded quiz,
// including the question currently on screen.
func (s *Session) TimeSpent() map[int]time.Duration {
	out := make(map[int]time.Duration, len(s.timeSpent)+1)
	for i, d := range s.timeSpent {
		out[i] = d
	}
	if !s.viewStart.IsZero() {
		out[s.current] += s.now().Sub(s.viewStart)
	}
	return out
}

// ── Accessors ────────────────────────────────────────────

// active returns the question list being answered: the recap items in
// recap mode, the loaded quiz otherwise.
func (s *Session) active() []models.Question {
	if s.mode != models.ModeRecap {
		return s.questions
	}
	qs := make([]models.Question, len(s.recap))
	for i, m := range s.recap {
		qs[i] = m.AsQuestion()
	}
	return qs
}

func (s *Session) activeAnswers() map[int]models.AnswerCode {
	if s.mode == models.ModeRecap {
		return s.recapAnswers
	}
	return s.answers
}

func (s *Session) Mode() models.Mode { return s.mode }

func (s *Session) CurrentIndex() int { return s.current }

func (s *Session) Completed() bool { return s.completed }

// FeedbackVisible reports whether answers and solutions may be shown. A
// recap reveals feedback per answer even after the main test was finished.
func (s *Session) FeedbackVisible() bool {
	if s.mode == models.ModeRecap {
		return s.feedback
	}
	return s.feedback || s.completed
}

// Len returns the length of the active question list.
func (s *Session) Len() int {
	if s.mode == models.ModeRecap {
		return len(s.recap)
	}
	return len(s.questions)
}

// Questions returns a copy of the active question list.
func (s *Session) Questions() []models.Question {
	return append([]models.Question(nil), s.active()...)
}

// Current returns the question at the current index.
func (s *Session) Current() (models.Question, bool) {
	qs := s.active()
	if s.current < 0 || s.current >= len(qs) {
		return models.Question{}, false
	}
	return qs[s.current], true
}

// Answers returns a copy of the active answer map.
func (s *Session) Answers() map[int]models.AnswerCode {
	src := s.activeAnswers()
	out := make(map[int]models.AnswerCode, len(src))
	for i, a := range src {
		out[i] = a
	}
	return out
}

// Answer returns the recorded answer for index in the active list.
func (s *Session) Answer(index int) (models.AnswerCode, bool) {
	a, ok := s.activeAnswers()[index]
	return a, ok
}

func (s *Session) Mistakes() []models.Mistake {
	return append([]models.Mistake(nil), s.mistakes...)
}

func (s *Session) RecapItems() []models.Mistake {
	return append([]models.Mistake(nil), s.recap...)
}

func (s *Session) IsFlagged(index int) bool { return s.flagged[index] }

// Flagged returns the flagged question indices in ascending order.
func (s *Session) Flagged() []int {
	out := make([]int, 0, len(s.flagged))
	for i := range s.flagged {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Results lists one export row per question of the loaded quiz.
func (s *Session) Results() []models.ResultRow {
	return BuildResults(s.questions, s.answers, s.TimeSpent())
}

// Summary derives score and topic analytics for the active question list.
func (s *Session) Summary() models.Summary {
	if s.mode == models.ModeRecap {
		return Summarize(s.active(), s.activeAnswers(), 0, nil)
	}
	return Summarize(s.questions, s.answers, len(s.flagged), s.TimeSpent())
}

// Score derives the score for the active question list.
func (s *Session) Score() models.Score {
	return ComputeScore(s.active(), s.activeAnswers())
}

// State returns a snapshot for clients.
func (s *Session) State() models.SessionState {
	return models.SessionState{
		Mode:            s.mode,
		CurrentIndex:    s.current,
		Total:           s.Len(),
		Answers:         s.Answers(),
		Flagged:         s.Flagged(),
		Completed:       s.completed,
		FeedbackVisible: s.FeedbackVisible(),
		MistakeCount:    len(s.mistakes),
		Timer:           s.TimerState(),
	}
}
