package quiz

import (
	"math"
	"time"

	"github.com/smart-quiz/backend/internal/models"
)

// NotAnswered is the export text for a question the user skipped.
const NotAnswered = "Not Answered"

// ComputeScore counts correct and attempted answers over questions.
// Percentages are relative to the full question count.
func ComputeScore(questions []models.Question, answers map[int]models.AnswerCode) models.Score {
	var score models.Score
	score.Total = len(questions)

	for i, q := range questions {
		ans, ok := answers[i]
		if !ok {
			continue
		}
		score.Attempted++
		if isCorrect(q, ans) {
			score.Correct++
		}
	}

	score.Wrong = score.Attempted - score.Correct
	score.Percentage = percent(score.Correct, score.Total)
	score.AttemptedPercentage = percent(score.Attempted, score.Total)
	return score
}

// Grade maps a marks percentage to a letter grade.
func Grade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B"
	case percentage >= 60:
		return "C"
	case percentage >= 50:
		return "D"
	default:
		return "F"
	}
}

// TopicBreakdown groups questions by topic in first-seen order.
func TopicBreakdown(questions []models.Question, answers map[int]models.AnswerCode) []models.TopicStat {
	var stats []models.TopicStat
	pos := make(map[string]int)

	for i, q := range questions {
		topic := topicOf(q)
		j, ok := pos[topic]
		if !ok {
			j = len(stats)
			pos[topic] = j
			stats = append(stats, models.TopicStat{Topic: topic})
		}

		st := &stats[j]
		st.Total++
		st.MarksPossible += marksOf(q)

		ans, answered := answers[i]
		if !answered {
			continue
		}
		st.Attempted++
		if isCorrect(q, ans) {
			st.Correct++
			st.MarksEarned += marksOf(q)
		}
	}

	for i := range stats {
		st := &stats[i]
		st.Accuracy = percent(st.Correct, st.Total)
		st.MarksPercentage = percent(st.MarksEarned, st.MarksPossible)
		st.Grade = Grade(st.MarksPercentage)
	}
	return stats
}

// Summarize combines the score, marks, grade and topic breakdown.
// spent may be nil when no timing is tracked.
func Summarize(questions []models.Question, answers map[int]models.AnswerCode, flagged int, spent map[int]time.Duration) models.Summary {
	sum := models.Summary{
		Score:        ComputeScore(questions, answers),
		FlaggedCount: flagged,
		Topics:       TopicBreakdown(questions, answers),
	}

	for _, st := range sum.Topics {
		sum.MarksEarned += st.MarksEarned
		sum.MarksPossible += st.MarksPossible
	}
	sum.MarksPercentage = percent(sum.MarksEarned, sum.MarksPossible)
	sum.Grade = Grade(sum.MarksPercentage)

	var total time.Duration
	for i := range questions {
		total += spent[i]
	}
	sum.TotalTimeSeconds = total.Seconds()
	if len(questions) > 0 {
		sum.AvgTimeSeconds = sum.TotalTimeSeconds / float64(len(questions))
	}
	if sum.Topics == nil {
		sum.Topics = []models.TopicStat{}
	}
	return sum
}

// BuildResults produces one export row per question.
func BuildResults(questions []models.Question, answers map[int]models.AnswerCode, spent map[int]time.Duration) []models.ResultRow {
	rows := make([]models.ResultRow, len(questions))
	for i, q := range questions {
		key := models.NormalizeAnswer(string(q.Answer))
		row := models.ResultRow{
			QuestionID:       q.ID,
			Question:         q.Text,
			YourAnswer:       NotAnswered,
			CorrectAnswer:    q.ChoiceText(key),
			Topic:            topicOf(q),
			TimeTakenSeconds: int(math.Round(spent[i].Seconds())),
		}
		if ans, ok := answers[i]; ok {
			row.YourAnswer = q.ChoiceText(ans)
			row.IsCorrect = isCorrect(q, ans)
		}
		if row.IsCorrect {
			row.MarksAwarded = marksOf(q)
		}
		rows[i] = row
	}
	return rows
}

func isCorrect(q models.Question, ans models.AnswerCode) bool {
	return models.NormalizeAnswer(string(ans)) == models.NormalizeAnswer(string(q.Answer))
}

func topicOf(q models.Question) string {
	if q.Topic == "" {
		return models.DefaultTopic
	}
	return q.Topic
}

func marksOf(q models.Question) int {
	if q.Marks <= 0 {
		return 1
	}
	return q.Marks
}

func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}
