package sheet

import (
	"fmt"
	"strings"

	"github.com/smart-quiz/backend/internal/models"
)

// StructuralCheck holds the structural checks for a single question.
type StructuralCheck struct {
	DistinctChoices bool
	KeyResolves     bool
}

// CheckQuestion evaluates one parsed question.
func CheckQuestion(q models.Question) StructuralCheck {
	seen := make(map[string]bool, len(q.Choices))
	distinct := true
	for _, c := range q.Choices {
		if c == "" {
			continue
		}
		k := strings.ToLower(c)
		if seen[k] {
			distinct = false
		}
		seen[k] = true
	}

	i := q.Answer.Index()
	return StructuralCheck{
		DistinctChoices: distinct,
		KeyResolves:     i >= 0 && q.Choices[i] != "",
	}
}

// skewThreshold is the share of questions above which a single answer key
// is reported as suspicious.
const skewThreshold = 0.8

// minSkewSample is the smallest set the key distribution is judged on.
const minSkewSample = 5

// CheckBatch returns warnings that concern the question set as a whole:
// repeated Question_IDs and an answer key distribution dominated by one
// letter.
func CheckBatch(qs []models.Question) []string {
	var warnings []string

	ids := make(map[string]int)
	for _, q := range qs {
		ids[q.ID]++
	}
	for _, q := range qs {
		if n := ids[q.ID]; n > 1 {
			warnings = append(warnings, fmt.Sprintf("Question_ID %q appears %d times", q.ID, n))
			ids[q.ID] = 0
		}
	}

	if len(qs) >= minSkewSample {
		dist := make(map[models.AnswerCode]int)
		for _, q := range qs {
			dist[q.Answer]++
		}
		for _, code := range models.ChoiceCodes {
			if float64(dist[code]) > skewThreshold*float64(len(qs)) {
				warnings = append(warnings, fmt.Sprintf("%d of %d questions use answer_key %s", dist[code], len(qs), code))
			}
		}
	}

	return warnings
}
