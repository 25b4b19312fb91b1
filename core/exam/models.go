package exam

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nae-imUam/coaching-app-api/core"
)

const DefaultBoard = "CBSE"

// Boards lists the accepted examination boards.
var Boards = []string{"CBSE", "Bihar Board", "ICSE", "State Board"}

// passRatio is the share of total marks needed to pass.
var passRatio = decimal.RequireFromString("0.33")

type Test struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"-"`
	BatchID      string          `json:"batch"`
	BatchName    string          `json:"batch_name"`
	Name         string          `json:"name"`
	Date         core.Date       `json:"date"`
	TotalMarks   int             `json:"total_marks"`
	Duration     decimal.Decimal `json:"duration"` // hours
	Board        string          `json:"board"`
	Marks        []Mark          `json:"marks"`
	AverageMarks decimal.Decimal `json:"average_marks"`
	CreatedAt    time.Time       `json:"created_at"` // UTC
	UpdatedAt    time.Time       `json:"updated_at"` // UTC
}

func (t Test) OwnedBy(ownerID string) bool { return t.OwnerID == ownerID }

// Passes reports whether marks reach 33% of the test's total.
func (t Test) Passes(marks decimal.Decimal) bool {
	return marks.GreaterThanOrEqual(decimal.NewFromInt(int64(t.TotalMarks)).Mul(passRatio))
}

// setMarks attaches marks and fills their percentage and the test average.
func (t *Test) setMarks(marks []Mark) {
	if marks == nil {
		marks = []Mark{}
	}
	total := decimal.Zero
	for i := range marks {
		marks[i].TotalMarks = t.TotalMarks
		marks[i].computePercentage()
		total = total.Add(marks[i].MarksObtained)
	}
	t.Marks = marks
	t.AverageMarks = decimal.Zero
	if len(marks) > 0 {
		t.AverageMarks = total.Div(decimal.NewFromInt(int64(len(marks)))).Round(2)
	}
}

// Mark is a student's score in a test; unique per (test, student).
type Mark struct {
	ID            string          `json:"id"`
	TestID        string          `json:"test"`
	TestName      string          `json:"-"`
	TestDate      core.Date       `json:"-"`
	TotalMarks    int             `json:"-"`
	StudentID     string          `json:"student"`
	StudentName   string          `json:"student_name"`
	StudentRoll   string          `json:"student_roll"`
	MarksObtained decimal.Decimal `json:"marks_obtained"`
	Percentage    decimal.Decimal `json:"percentage"`
	CreatedAt     time.Time       `json:"created_at"` // UTC
	UpdatedAt     time.Time       `json:"updated_at"` // UTC
}

// computePercentage is 0 when the test has no total.
func (m *Mark) computePercentage() {
	m.Percentage = core.Percentage(m.MarksObtained, decimal.NewFromInt(int64(m.TotalMarks)))
}

// NewTest contains information needed to create a new Test.
type NewTest struct {
	BatchID    string          `json:"batch" validate:"required"`
	Name       string          `json:"name" validate:"required,max=255"`
	Date       core.Date       `json:"date" validate:"required"`
	TotalMarks int             `json:"total_marks" validate:"min=0"`
	Duration   decimal.Decimal `json:"duration" validate:"hours"`
	Board      string          `json:"board" validate:"board"`
}

func (nt *NewTest) Clean() {
	nt.BatchID = core.CleanString(nt.BatchID)
	nt.Name = core.CleanName(nt.Name)
	nt.Board = core.CleanString(nt.Board)
	if nt.Board == "" {
		nt.Board = DefaultBoard
	}
}

// UpdateTest defines what may be modified on an existing Test. Nil fields are left unchanged.
type UpdateTest struct {
	BatchID    *string          `json:"batch" validate:"omitempty,notblank"`
	Name       *string          `json:"name" validate:"omitempty,notblank,max=255"`
	Date       *core.Date       `json:"date"`
	TotalMarks *int             `json:"total_marks" validate:"omitempty,min=0"`
	Duration   *decimal.Decimal `json:"duration" validate:"omitempty,hours"`
	Board      *string          `json:"board" validate:"omitempty,board"`
}

func (ut *UpdateTest) Clean() {
	for _, s := range []*string{ut.BatchID, ut.Board} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	if ut.Name != nil {
		*ut.Name = core.CleanName(*ut.Name)
	}
}

func (ut *UpdateTest) apply(t *Test) {
	if ut.Name != nil {
		t.Name = *ut.Name
	}
	if ut.Date != nil && !ut.Date.IsZero() {
		t.Date = *ut.Date
	}
	if ut.TotalMarks != nil {
		t.TotalMarks = *ut.TotalMarks
	}
	if ut.Duration != nil {
		t.Duration = *ut.Duration
	}
	if ut.Board != nil {
		t.Board = *ut.Board
	}
}

type QueryFilter struct {
	BatchID string `query:"batch_id"`
}

func (qf QueryFilter) Matches(t Test) bool {
	return qf.BatchID == "" || t.BatchID == qf.BatchID
}

// MarkFilter selects marks; at least one field is expected to be set.
type MarkFilter struct {
	OwnerID   string
	TestID    string
	TestIDs   []string // any of
	StudentID string
}

// NewMark is one entry of a bulk marks upload.
type NewMark struct {
	StudentID     string          `json:"student"`
	MarksObtained decimal.Decimal `json:"marks_obtained"`

	// decodeErr is set when marks_obtained could not be read; the entry then fails on its own.
	decodeErr string
}

// UnmarshalJSON keeps a malformed marks_obtained local to its entry so the rest of the upload goes through.
func (nm *NewMark) UnmarshalJSON(data []byte) error {
	var raw struct {
		StudentID     string          `json:"student"`
		MarksObtained json.RawMessage `json:"marks_obtained"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*nm = NewMark{StudentID: raw.StudentID}
	switch {
	case len(raw.MarksObtained) == 0 || string(raw.MarksObtained) == "null":
		nm.decodeErr = "marks_obtained is required"
	case nm.MarksObtained.UnmarshalJSON(raw.MarksObtained) != nil:
		nm.decodeErr = "marks_obtained must be a number"
	}
	return nil
}

// BulkResult reports a bulk upload; Success is false as soon as one entry failed.
type BulkResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Marks   []Mark   `json:"marks"`
	Errors  []string `json:"errors"`
}

type TestRef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TotalMarks int    `json:"total_marks"`
}

type Statistics struct {
	TotalStudents  int             `json:"total_students"`
	AverageMarks   decimal.Decimal `json:"average_marks"`
	HighestMarks   decimal.Decimal `json:"highest_marks"`
	LowestMarks    decimal.Decimal `json:"lowest_marks"`
	PassPercentage decimal.Decimal `json:"pass_percentage"`
}

type TestStatistics struct {
	Test       TestRef    `json:"test"`
	Statistics Statistics `json:"statistics"`
	Marks      []Mark     `json:"marks"`
}

type StudentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Roll string `json:"roll"`
}

type ReportRow struct {
	TestID        string          `json:"test_id"`
	TestName      string          `json:"test_name"`
	TestDate      core.Date       `json:"test_date"`
	TotalMarks    int             `json:"total_marks"`
	MarksObtained decimal.Decimal `json:"marks_obtained"`
	Percentage    decimal.Decimal `json:"percentage"`
}

type ReportSummary struct {
	TotalTests        int             `json:"total_tests"`
	AveragePercentage decimal.Decimal `json:"average_percentage"`
}

type StudentReport struct {
	Student StudentRef    `json:"student"`
	Summary ReportSummary `json:"summary"`
	Tests   []ReportRow   `json:"tests"`
}
