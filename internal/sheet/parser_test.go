package sheet

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/smart-quiz/backend/internal/models"
	"github.com/xuri/excelize/v2"
)

var header = []string{"Question_ID", "Question_Text", "choice_1", "choice_2", "choice_3", "choice_4", "answer_key", "Solution", "Topic", "Marks"}

func TestParseRows_Defaults(t *testing.T) {
	rows := [][]string{
		header,
		{"", "What is 2 + 2?", "3", "4", "", "", "", "", "", ""},
		{"Q2", "Pick one", "x", "y", "z", "w", " 3 ", "z it is", "Letters", "2.7"},
	}

	report, err := ParseRows(rows)
	if err != nil {
		t.Fatalf("ParseRows error: %v", err)
	}
	if len(report.Questions) != 2 || report.Dropped != 0 {
		t.Fatalf("report = %+v", report)
	}

	q := report.Questions[0]
	if q.ID != "q_1" || q.Topic != models.DefaultTopic || q.Marks != 1 || q.Answer != "A" {
		t.Errorf("defaults = %+v", q)
	}
	if q.Choices != [4]string{"3", "4", "", ""} {
		t.Errorf("choices = %v", q.Choices)
	}

	q = report.Questions[1]
	if q.ID != "Q2" || q.Answer != "C" || q.Marks != 2 || q.Topic != "Letters" || q.Solution != "z it is" {
		t.Errorf("explicit = %+v", q)
	}
}

func TestParseRows_DropsIncompleteRows(t *testing.T) {
	rows := [][]string{
		header,
		{"Q1", "", "a", "b"},
		{"Q2", "Only one choice", "a"},
		{},
		{"", "  ", "", ""},
		{"Q3", "Third choice only", "", "", "c", "d", "D"},
		{"Q4", "Kept", "a", "b", "", "", "B"},
	}

	report, err := ParseRows(rows)
	if err != nil {
		t.Fatalf("ParseRows error: %v", err)
	}
	if len(report.Questions) != 2 {
		t.Fatalf("kept %d questions, want 2", len(report.Questions))
	}
	if report.Questions[0].ID != "Q3" || report.Questions[1].ID != "Q4" {
		t.Errorf("kept = %s, %s", report.Questions[0].ID, report.Questions[1].ID)
	}
	if report.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", report.Dropped)
	}
	if len(report.Warnings) != 2 || !strings.HasPrefix(report.Warnings[0], "row 2 dropped") || !strings.HasPrefix(report.Warnings[1], "row 3 dropped") {
		t.Errorf("Warnings = %v", report.Warnings)
	}
}

func TestParseRows_AnswerKeyWarnings(t *testing.T) {
	rows := [][]string{
		header,
		{"Q1", "Odd key", "a", "b", "c", "d", "E"},
		{"Q2", "Empty target", "a", "b", "", "", "4"},
	}

	report, err := ParseRows(rows)
	if err != nil {
		t.Fatalf("ParseRows error: %v", err)
	}
	if report.Questions[0].Answer != "E" {
		t.Errorf("unrecognized key = %q, want E carried verbatim", report.Questions[0].Answer)
	}
	if report.Questions[1].Answer != "D" {
		t.Errorf("digit key = %q, want D", report.Questions[1].Answer)
	}
	if len(report.Warnings) != 2 {
		t.Errorf("Warnings = %v, want 2", report.Warnings)
	}
}

func TestParseRows_HeaderOrderAndUnknownColumns(t *testing.T) {
	rows := [][]string{
		{"Notes", " answer_key ", "choice_2", "choice_1", "Question_Text"},
		{"ignored", "b", "second", "first", "Reordered"},
	}

	report, err := ParseRows(rows)
	if err != nil {
		t.Fatalf("ParseRows error: %v", err)
	}
	q := report.Questions[0]
	if q.Text != "Reordered" || q.Choices[0] != "first" || q.Choices[1] != "second" || q.Answer != "B" {
		t.Errorf("question = %+v", q)
	}
}

func TestParseRows_Errors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want error
	}{
		{"empty", nil, ErrTooFewRows},
		{"header only", [][]string{header}, ErrTooFewRows},
		{"all dropped", [][]string{header, {"Q1", "", "a", "b"}, {"Q2", "x", "a"}}, ErrNoValidQuestions},
		{"blank rows", [][]string{header, {"", ""}, {}}, ErrNoValidQuestions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRows(tt.rows)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseRows() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseMarks(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 1},
		{"abc", 1},
		{"0", 1},
		{"-3", 1},
		{"0.5", 1},
		{"1", 1},
		{"2", 2},
		{"4.9", 4},
		{"NaN", 1},
		{"Inf", 1},
		{"1e12", 1},
	}

	for _, tt := range tests {
		if got := parseMarks(tt.in); got != tt.want {
			t.Errorf("parseMarks(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int64
		limit    int64
		want     error
	}{
		{"xlsx", "quiz.xlsx", 1024, 0, nil},
		{"upper case ext", "QUIZ.XLSX", 1024, 0, nil},
		{"xlsm", "quiz.xlsm", 1024, 0, nil},
		{"legacy xls", "quiz.xls", 1024, 0, ErrUnsupportedType},
		{"csv", "quiz.csv", 1024, 0, ErrUnsupportedType},
		{"no ext", "quiz", 1024, 0, ErrUnsupportedType},
		{"at default limit", "quiz.xlsx", DefaultMaxUploadBytes, 0, nil},
		{"over default limit", "quiz.xlsx", DefaultMaxUploadBytes + 1, 0, ErrFileTooLarge},
		{"over custom limit", "quiz.xlsx", 2 << 20, 1 << 20, ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.filename, tt.size, tt.limit)
			if tt.want == nil {
				if err != nil {
					t.Errorf("ValidateUpload() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateUpload() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParse_Workbook(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Question_ID", "Question_Text", "choice_1", "choice_2", "choice_3", "choice_4", "answer_key", "Solution", "Topic", "Marks"},
		{"Q1", "Largest planet?", "Mars", "Jupiter", "Venus", "Earth", 2, "Jupiter", "Space", 3},
		{"Q2", "Red planet?", "Mars", "Jupiter", "", "", "A", "", "Space", ""},
	}
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &rows[i]); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	f.Close()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	report, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(report.Questions) != 2 {
		t.Fatalf("len(Questions) = %d, want 2", len(report.Questions))
	}
	q := report.Questions[0]
	if q.Answer != "B" || q.Marks != 3 || q.Topic != "Space" || q.Choices[1] != "Jupiter" {
		t.Errorf("Q1 = %+v", q)
	}
	if report.Questions[1].Marks != 1 {
		t.Errorf("Q2 marks = %d, want 1", report.Questions[1].Marks)
	}
}

func TestParse_NotAWorkbook(t *testing.T) {
	if _, err := Parse(bytes.NewReader([]byte("plain text"))); err == nil {
		t.Error("Parse() of plain text should fail")
	}
}

func TestParse_Template(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTemplate(&buf); err != nil {
		t.Fatalf("WriteTemplate error: %v", err)
	}

	report, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse(template) error: %v", err)
	}
	if len(report.Questions) != 3 || report.Dropped != 0 || len(report.Warnings) != 0 {
		t.Fatalf("template report = %+v", report)
	}
	for _, q := range report.Questions {
		if q.Answer != "B" || q.Marks != 1 {
			t.Errorf("template question = %+v", q)
		}
	}
	if report.Questions[0].Topic != "Geography" {
		t.Errorf("first topic = %q, want Geography", report.Questions[0].Topic)
	}
}

func TestParseRows_QualityWarnings(t *testing.T) {
	rows := [][]string{
		header,
		{"Q1", "Same text twice", "yes", "Yes", "no", "", "C"},
		{"Q1", "Duplicate id", "a", "b", "", "", "B"},
	}

	report, err := ParseRows(rows)
	if err != nil {
		t.Fatalf("ParseRows error: %v", err)
	}
	if len(report.Questions) != 2 {
		t.Fatalf("len(Questions) = %d, want 2", len(report.Questions))
	}
	if len(report.Warnings) != 2 {
		t.Fatalf("Warnings = %v, want 2", report.Warnings)
	}
	if !strings.Contains(report.Warnings[0], "row 2: two choices") {
		t.Errorf("Warnings[0] = %q", report.Warnings[0])
	}
	if !strings.Contains(report.Warnings[1], `"Q1" appears 2 times`) {
		t.Errorf("Warnings[1] = %q", report.Warnings[1])
	}
}

func TestValidateUpload_LegacyMessage(t *testing.T) {
	err := ValidateUpload("scores.xls", 1024, 0)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("ValidateUpload() error = %v, want ErrUnsupportedType", err)
	}
	if !strings.Contains(err.Error(), "legacy .xls") {
		t.Errorf("error %q should explain that .xls is not supported", err)
	}
}
