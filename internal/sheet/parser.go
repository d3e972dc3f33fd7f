package sheet

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/smart-quiz/backend/internal/models"
	"github.com/xuri/excelize/v2"
)

// DefaultMaxUploadBytes caps the size of an uploaded workbook.
const DefaultMaxUploadBytes int64 = 10 << 20

var (
	ErrTooFewRows       = errors.New("invalid file format: file should contain headers and data")
	ErrNoValidQuestions = errors.New("no valid questions found in file")
	ErrUnsupportedType  = errors.New("please upload a valid Excel file (.xlsx or .xlsm; legacy .xls workbooks are not supported, re-save as .xlsx)")
	ErrFileTooLarge     = errors.New("file is too large")
	ErrNoWorksheet      = errors.New("workbook has no worksheets")
)

// Column headers recognized in the first row.
const (
	ColQuestionID   = "Question_ID"
	ColQuestionText = "Question_Text"
	ColChoice1      = "choice_1"
	ColChoice2      = "choice_2"
	ColChoice3      = "choice_3"
	ColChoice4      = "choice_4"
	ColAnswerKey    = "answer_key"
	ColSolution     = "Solution"
	ColTopic        = "Topic"
	ColMarks        = "Marks"
)

var choiceColumns = [4]string{ColChoice1, ColChoice2, ColChoice3, ColChoice4}

var allowedExtensions = map[string]bool{".xlsx": true, ".xlsm": true}

// Report is the outcome of parsing a workbook.
type Report struct {
	Questions []models.Question
	Dropped   int
	Warnings  []string
}

// ValidateUpload checks the file name and size before any parsing.
// A limit <= 0 falls back to DefaultMaxUploadBytes.
func ValidateUpload(filename string, size, limit int64) error {
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: got %q", ErrUnsupportedType, filepath.Base(filename))
	}
	if size > limit {
		return fmt.Errorf("%w: %d bytes exceeds the %d MB limit", ErrFileTooLarge, size, limit>>20)
	}
	return nil
}

// Parse reads the first worksheet of a workbook and converts its rows into
// questions.
func Parse(r io.Reader) (*Report, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoWorksheet
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return ParseRows(rows)
}

// ParseRows converts a header row plus data rows into questions. Rows
// without question text or with fewer than two choices are dropped.
func ParseRows(rows [][]string) (*Report, error) {
	if len(rows) < 2 {
		return nil, ErrTooFewRows
	}

	cols := headerIndex(rows[0])
	report := &Report{}

	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		sheetRow := i + 2

		q, reason := buildQuestion(row, cols, i+1)
		if reason != "" {
			report.Dropped++
			report.Warnings = append(report.Warnings, fmt.Sprintf("row %d dropped: %s", sheetRow, reason))
			continue
		}

		check := CheckQuestion(q)
		switch {
		case !q.Answer.Valid():
			report.warn(fmt.Sprintf("row %d: answer_key %q is not A-D or 1-4 and will be compared verbatim", sheetRow, q.Answer))
		case !check.KeyResolves:
			report.warn(fmt.Sprintf("row %d: answer_key %s points to an empty choice", sheetRow, q.Answer))
		}
		if !check.DistinctChoices {
			report.warn(fmt.Sprintf("row %d: two choices have the same text", sheetRow))
		}

		report.Questions = append(report.Questions, q)
	}

	if len(report.Questions) == 0 {
		return nil, ErrNoValidQuestions
	}

	for _, w := range CheckBatch(report.Questions) {
		report.warn(w)
	}

	return report, nil
}

func (r *Report) warn(msg string) {
	log.Printf("WARN: %s", msg)
	r.Warnings = append(r.Warnings, msg)
}

func buildQuestion(row []string, cols map[string]int, n int) (models.Question, string) {
	q := models.Question{
		ID:       cell(row, cols, ColQuestionID),
		Text:     cell(row, cols, ColQuestionText),
		Solution: cell(row, cols, ColSolution),
		Topic:    cell(row, cols, ColTopic),
		Marks:    parseMarks(cell(row, cols, ColMarks)),
	}

	if q.Text == "" {
		return q, "missing Question_Text"
	}

	filled := 0
	for j, col := range choiceColumns {
		q.Choices[j] = cell(row, cols, col)
		if q.Choices[j] != "" {
			filled++
		}
	}
	if filled < 2 {
		return q, fmt.Sprintf("only %d populated choice(s)", filled)
	}

	if q.ID == "" {
		q.ID = "q_" + strconv.Itoa(n)
	}
	if q.Topic == "" {
		q.Topic = models.DefaultTopic
	}

	key := cell(row, cols, ColAnswerKey)
	if key == "" {
		key = string(models.AnswerA)
	}
	q.Answer = models.NormalizeAnswer(key)

	return q, ""
}

// headerIndex maps trimmed header names to column positions. A repeated
// header resolves to its last occurrence.
func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		if name := strings.TrimSpace(h); name != "" {
			cols[name] = i
		}
	}
	return cols
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseMarks reads a positive whole mark. Decimals are truncated; anything
// unparseable or below one counts as 1.
func parseMarks(s string) int {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 1 || f > math.MaxInt32 {
		return 1
	}
	return int(f)
}
