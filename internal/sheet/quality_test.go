package sheet

import (
	"strings"
	"testing"

	"github.com/smart-quiz/backend/internal/models"
)

func TestCheckQuestion(t *testing.T) {
	tests := []struct {
		name         string
		choices      [4]string
		answer       models.AnswerCode
		wantDistinct bool
		wantResolves bool
	}{
		{"clean", [4]string{"a", "b", "c", "d"}, "B", true, true},
		{"two choices", [4]string{"yes", "no", "", ""}, "A", true, true},
		{"duplicate ignoring case", [4]string{"Paris", "paris", "Rome", ""}, "C", false, true},
		{"key on empty choice", [4]string{"a", "b", "", ""}, "D", true, false},
		{"unrecognized key", [4]string{"a", "b", "c", "d"}, "E", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckQuestion(models.Question{Choices: tt.choices, Answer: tt.answer})
			if got.DistinctChoices != tt.wantDistinct || got.KeyResolves != tt.wantResolves {
				t.Errorf("CheckQuestion() = %+v, want distinct=%v resolves=%v", got, tt.wantDistinct, tt.wantResolves)
			}
		})
	}
}

func TestCheckBatch_DuplicateIDs(t *testing.T) {
	qs := []models.Question{
		{ID: "Q1", Answer: "A"},
		{ID: "Q2", Answer: "B"},
		{ID: "Q1", Answer: "C"},
		{ID: "Q1", Answer: "D"},
	}

	warnings := CheckBatch(qs)
	if len(warnings) != 1 || !strings.Contains(warnings[0], `"Q1" appears 3 times`) {
		t.Errorf("CheckBatch() = %v", warnings)
	}
}

func TestCheckBatch_AnswerSkew(t *testing.T) {
	skewed := make([]models.Question, 6)
	for i := range skewed {
		skewed[i] = models.Question{ID: string(rune('a' + i)), Answer: "B"}
	}
	warnings := CheckBatch(skewed)
	if len(warnings) != 1 || !strings.Contains(warnings[0], "6 of 6 questions use answer_key B") {
		t.Errorf("CheckBatch(skewed) = %v", warnings)
	}

	// Small sets are not judged.
	if w := CheckBatch(skewed[:4]); len(w) != 0 {
		t.Errorf("CheckBatch(4 questions) = %v, want none", w)
	}

	balanced := []models.Question{
		{ID: "1", Answer: "A"}, {ID: "2", Answer: "B"}, {ID: "3", Answer: "C"},
		{ID: "4", Answer: "D"}, {ID: "5", Answer: "A"},
	}
	if w := CheckBatch(balanced); len(w) != 0 {
		t.Errorf("CheckBatch(balanced) = %v, want none", w)
	}
}
