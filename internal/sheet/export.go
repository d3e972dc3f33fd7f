package sheet

import (
	"fmt"
	"io"
	"time"

	"github.com/smart-quiz/backend/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	ResultsSheet  = "Quiz Results"
	TemplateSheet = "Quiz Template"
	ContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	TemplateFilename = "quiz_template.xlsx"
)

var resultsHeader = []interface{}{
	"Question_ID", "Question", "Your_Answer", "Correct_Answer", "Is_Correct", "Topic", "Marks", "Time_Taken",
}

var templateRows = [][]interface{}{
	{ColQuestionID, ColQuestionText, ColChoice1, ColChoice2, ColChoice3, ColChoice4, ColAnswerKey, ColSolution, ColTopic, ColMarks},
	{"Q001", "What is the capital of France?", "London", "Paris", "Berlin", "Madrid", "B", "Paris is the capital and largest city of France.", "Geography", 1},
	{"Q002", "Which programming language is known for web development?", "Python", "JavaScript", "C++", "Java", "B", "JavaScript is primarily used for web development.", "Programming", 1},
	{"Q003", "What is 2 + 2?", "3", "4", "5", "6", "B", "Basic arithmetic: 2 + 2 = 4", "Mathematics", 1},
}

// ResultsFilename names a results export for the given day.
func ResultsFilename(t time.Time) string {
	return "quiz_results_" + t.Format("2006-01-02") + ".xlsx"
}

// ExportResults writes a results workbook to w.
func ExportResults(w io.Writer, results []models.ResultRow) error {
	data := make([][]interface{}, 0, len(results)+1)
	data = append(data, resultsHeader)
	for _, r := range results {
		correct := "No"
		if r.IsCorrect {
			correct = "Yes"
		}
		data = append(data, []interface{}{
			r.QuestionID,
			r.Question,
			r.YourAnswer,
			r.CorrectAnswer,
			correct,
			r.Topic,
			r.MarksAwarded,
			r.TimeTakenSeconds,
		})
	}
	return writeWorkbook(w, ResultsSheet, data)
}

// WriteTemplate writes a starter workbook with the expected headers and a
// few example questions.
func WriteTemplate(w io.Writer) error {
	return writeWorkbook(w, TemplateSheet, templateRows)
}

func writeWorkbook(w io.Writer, sheet string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
