package quiz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/smart-quiz/backend/internal/models"
	"github.com/smart-quiz/backend/internal/sheet"
)

var ErrNoMatchingTopics = errors.New("no questions match the selected topics")

type Config struct {
	TimerSeconds   int
	MaxUploadBytes int64
	Shuffle        bool
	TickInterval   time.Duration
}

// ConfigFromEnv reads QUIZ_TIMER_SECONDS, QUIZ_MAX_UPLOAD_MB and QUIZ_SHUFFLE.
func ConfigFromEnv() Config {
	cfg := Config{
		TimerSeconds:   60,
		MaxUploadBytes: sheet.DefaultMaxUploadBytes,
		Shuffle:        os.Getenv("QUIZ_SHUFFLE") == "true",
		TickInterval:   time.Second,
	}

	if v := os.Getenv("QUIZ_TIMER_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.TimerSeconds = n
		}
	}
	if v := os.Getenv("QUIZ_MAX_UPLOAD_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxUploadBytes = int64(n) << 20
		}
	}

	return cfg
}

// Service owns the single active quiz session and serializes every access
// to it, including the countdown goroutine.
type Service struct {
	mu      sync.Mutex
	session *Session
	all     []models.Question
	cfg     Config
	rng     *rand.Rand

	stopTicker context.CancelFunc
	tickerGen  int
}

func NewService(cfg Config) *Service {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = sheet.DefaultMaxUploadBytes
	}

	log.Printf("Service: timer=%ds maxUpload=%dMB shuffle=%v",
		cfg.TimerSeconds, cfg.MaxUploadBytes>>20, cfg.Shuffle)

	return &Service{
		session: NewSession(cfg.TimerSeconds),
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) MaxUploadBytes() int64 {
	return s.cfg.MaxUploadBytes
}

// ── Loading ──────────────────────────────────────────────

// Upload validates and parses a workbook and loads its questions. Nothing
// is replaced when the upload is rejected.
func (s *Service) Upload(filename string, size int64, r io.Reader) (*models.UploadResponse, error) {
	if err := sheet.ValidateUpload(filename, size, s.cfg.MaxUploadBytes); err != nil {
		return nil, err
	}

	report, err := sheet.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked(report.Questions, s.cfg.Shuffle)
	log.Printf("[quiz] loaded %d questions from %s (%d dropped, %d warnings)",
		len(report.Questions), filename, report.Dropped, len(report.Warnings))

	return &models.UploadResponse{
		Loaded:   len(report.Questions),
		Dropped:  report.Dropped,
		Topics:   distinctTopics(s.all),
		Warnings: report.Warnings,
	}, nil
}

// Load replaces the question set directly.
func (s *Service) Load(questions []models.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(questions, false)
}

func (s *Service) loadLocked(questions []models.Question, shuffle bool) {
	s.haltTickerLocked()
	s.all = append([]models.Question(nil), questions...)
	qs := s.all
	if shuffle {
		qs = s.shuffled(qs)
	}
	s.session.LoadQuestions(qs)
}

// Clear drops the loaded questions entirely, ready for a new upload.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.haltTickerLocked()
	s.all = nil
	s.session.LoadQuestions(nil)
}

// Topics counts questions per topic across the uploaded set.
func (s *Service) Topics() []models.TopicCount {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := []models.TopicCount{}
	pos := make(map[string]int)
	for _, q := range s.all {
		t := topicOf(q)
		if i, ok := pos[t]; ok {
			counts[i].Count++
			continue
		}
		pos[t] = len(counts)
		counts = append(counts, models.TopicCount{Topic: t, Count: 1})
	}
	return counts
}

// Filter starts over on the uploaded questions whose topic is in topics
// (all of them when topics is empty), optionally shuffled.
func (s *Service) Filter(topics []string, shuffle bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.all) == 0 {
		return 0, ErrNoQuestions
	}

	selected := s.all
	if len(topics) > 0 {
		want := make(map[string]bool, len(topics))
		for _, t := range topics {
			want[t] = true
		}
		selected = nil
		for _, q := range s.all {
			if want[topicOf(q)] {
				selected = append(selected, q)
			}
		}
	}
	if len(selected) == 0 {
		return 0, ErrNoMatchingTopics
	}

	if shuffle {
		selected = s.shuffled(selected)
	}

	s.haltTickerLocked()
	s.session.LoadQuestions(selected)
	return len(selected), nil
}

func (s *Service) shuffled(qs []models.Question) []models.Question {
	out := append([]models.Question(nil), qs...)
	s.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// ── Session Operations ───────────────────────────────────

func (s *Service) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.State()
}

// CurrentView returns the current question with the answer key hidden
// until feedback is visible.
func (s *Service) CurrentView() (*models.QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.session.Current()
	if !ok {
		return nil, ErrNoQuestions
	}
	idx := s.session.CurrentIndex()

	view := &models.QuestionView{
		Index:   idx,
		ID:      q.ID,
		Text:    q.Text,
		Topic:   topicOf(q),
		Marks:   marksOf(q),
		Flagged: s.session.Mode() != models.ModeRecap && s.session.IsFlagged(idx),
	}
	for i, text := range q.Choices {
		if text == "" {
			continue
		}
		view.Choices = append(view.Choices, models.ChoiceView{Code: models.ChoiceCodes[i], Text: text})
	}

	selected, answered := s.session.Answer(idx)
	if answered {
		view.Selected = &selected
	}

	if s.session.FeedbackVisible() {
		key := models.NormalizeAnswer(string(q.Answer))
		view.Answer = &key
		view.Solution = q.Solution
		if answered {
			correct := selected == key
			view.Correct = &correct
		}
	}

	return view, nil
}

// Start arms the per-question countdown.
func (s *Service) Start() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Len() == 0 {
		return false, ErrNoQuestions
	}
	s.haltTickerLocked()
	if !s.session.StartTimer() {
		return false, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopTicker = cancel
	gen := s.tickerGen
	go runCountdown(ctx, s.cfg.TickInterval, func() bool { return s.tick(gen) })

	log.Printf("[quiz] countdown started: %ds per question", s.cfg.TimerSeconds)
	return true, nil
}

func (s *Service) tick(gen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.tickerGen {
		return false
	}
	return s.session.Tick()
}

// haltTickerLocked cancels the countdown goroutine. A tick already waiting
// on the lock sees the bumped generation and exits.
func (s *Service) haltTickerLocked() {
	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
	s.tickerGen++
	s.session.StopTimer()
}

// Submit answers the question at index, or the current question when index
// is nil.
func (s *Service) Submit(index *int, raw string) (*models.SubmitAnswerResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.session.CurrentIndex()
	if index != nil {
		idx = *index
	}

	sub, err := s.session.SubmitAnswer(idx, raw)
	if err != nil {
		return nil, err
	}

	resp := &models.SubmitAnswerResponse{
		Index:           sub.Index,
		Selected:        sub.Selected,
		FeedbackVisible: s.session.FeedbackVisible(),
	}
	if resp.FeedbackVisible {
		correct := sub.Correct
		resp.Correct = &correct
		resp.CorrectAnswer = &sub.Answer
		if q, ok := s.questionAt(idx); ok {
			resp.Solution = q.Solution
		}
	}
	return resp, nil
}

func (s *Service) questionAt(idx int) (models.Question, bool) {
	qs := s.session.active()
	if idx < 0 || idx >= len(qs) {
		return models.Question{}, false
	}
	return qs[idx], true
}

// Navigate moves by direction ("next" or "previous") or to an explicit index.
func (s *Service) Navigate(req models.NavigateRequest) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Len() == 0 {
		return 0, ErrNoQuestions
	}
	if req.Index != nil {
		return s.session.GoTo(*req.Index), nil
	}
	switch req.Direction {
	case "next":
		return s.session.Next(), nil
	case "previous", "prev":
		return s.session.Previous(), nil
	}
	return s.session.CurrentIndex(), ErrInvalidDirection
}

func (s *Service) Finish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.session.Finish() {
		return false
	}
	s.haltTickerLocked()
	score := s.session.Score()
	log.Printf("[quiz] test finished: %d/%d correct", score.Correct, score.Total)
	return true
}

func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.haltTickerLocked()
	s.session.Reset()
}

func (s *Service) SetMode(mode models.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.session.SetMode(mode); err != nil {
		return err
	}
	s.haltTickerLocked()
	return nil
}

func (s *Service) ToggleFlag(index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.ToggleFlag(index)
}

// ── Review ───────────────────────────────────────────────

func (s *Service) Score() models.Score {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Score()
}

func (s *Service) Summary() models.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Summary()
}

func (s *Service) Mistakes() []models.Mistake {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.session.Mistakes()
	if m == nil {
		m = []models.Mistake{}
	}
	return m
}

func (s *Service) MarkReviewed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.MarkReviewed(id)
}

func (s *Service) StartRecap() []models.Mistake {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.haltTickerLocked()
	n := s.session.StartRecap()
	log.Printf("[quiz] recap started with %d mistakes", n)

	items := s.session.RecapItems()
	if items == nil {
		items = []models.Mistake{}
	}
	return items
}

func (s *Service) ExitRecap() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.haltTickerLocked()
	return s.session.ExitRecap()
}

// Export writes the results workbook for the loaded quiz.
func (s *Service) Export(w io.Writer) error {
	s.mu.Lock()
	if len(s.session.questions) == 0 {
		s.mu.Unlock()
		return ErrNoQuestions
	}
	rows := s.session.Results()
	s.mu.Unlock()

	return sheet.ExportResults(w, rows)
}

// Close stops the countdown goroutine.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.haltTickerLocked()
}

func distinctTopics(qs []models.Question) []string {
	topics := []string{}
	seen := make(map[string]bool)
	for _, q := range qs {
		t := topicOf(q)
		if !seen[t] {
			seen[t] = true
			topics = append(topics, t)
		}
	}
	return topics
}
