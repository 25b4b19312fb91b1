package exam

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/batch"
	"github.com/nae-imUam/coaching-app-api/core/student"
)

var (
	ErrNotFound = core.NewNotFoundError("test")
	ErrNoMarks  = core.NewValidationError(errors.New("No marks data provided"))
)

type (
	Repository interface {
		CreateTest(ctx context.Context, t Test, exec ...core.DBExecutor) (Test, error)
		GetTest(ctx context.Context, id string, exec ...core.DBExecutor) (Test, error)
		// QueryTests returns the owner's tests, latest date first.
		QueryTests(ctx context.Context, ownerID string, filter QueryFilter, exec ...core.DBExecutor) ([]Test, error)
		UpdateTest(ctx context.Context, t Test, exec ...core.DBExecutor) (Test, error)
		// DeleteTest deletes the Test with its marks.
		DeleteTest(ctx context.Context, id string, exec ...core.DBExecutor) error
		// UpsertMark creates the (test, student) mark or overwrites its marks_obtained.
		UpsertMark(ctx context.Context, m Mark, exec ...core.DBExecutor) (Mark, error)
		// QueryMarks returns marks with their test & student details, by student name
		// within a test and latest test first for a student.
		QueryMarks(ctx context.Context, filter MarkFilter, exec ...core.DBExecutor) ([]Mark, error)
	}

	studentGetter interface {
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (student.Student, error)
	}

	batchGetter interface {
		GetBatch(ctx context.Context, id string, exec ...core.DBExecutor) (batch.Batch, error)
	}

	Service struct {
		repo     Repository
		students studentGetter
		batches  batchGetter
		validate *validator.Validate
	}
)

func NewService(repo Repository, students student.Repository, batches batch.Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, students: students, batches: batches, validate: validate}
}

func (svc *Service) checkBatch(ctx context.Context, ownerID, batchID string) (batch.Batch, error) {
	b, err := svc.batches.GetBatch(ctx, batchID)
	if err == nil {
		err = core.CheckOwner(b, ownerID, batch.ErrNotFound)
	}
	if err != nil {
		if errors.Cause(err) == batch.ErrNotFound {
			return batch.Batch{}, core.NewValidationError(err, core.FieldError{Field: "batch", Error: "batch not found"})
		}
		return batch.Batch{}, errors.Wrap(err, "getting batch")
	}
	return b, nil
}

func (svc *Service) Create(ctx context.Context, ownerID string, nt NewTest) (Test, error) {
	nt.Clean()
	if err := svc.validate.Struct(nt); err != nil {
		return Test{}, err
	}
	b, err := svc.checkBatch(ctx, ownerID, nt.BatchID)
	if err != nil {
		return Test{}, err
	}

	now := time.Now().UTC()
	t, err := svc.repo.CreateTest(ctx, Test{
		OwnerID:    ownerID,
		BatchID:    b.ID,
		BatchName:  b.Name,
		Name:       nt.Name,
		Date:       nt.Date,
		TotalMarks: nt.TotalMarks,
		Duration:   nt.Duration,
		Board:      nt.Board,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return Test{}, errors.Wrap(err, "creating test")
	}
	t.setMarks(nil)
	return t, nil
}

func (svc *Service) get(ctx context.Context, ownerID, id string) (Test, error) {
	t, err := svc.repo.GetTest(ctx, id)
	if err != nil {
		return Test{}, err
	}
	if err = core.CheckOwner(t, ownerID, ErrNotFound); err != nil {
		return Test{}, err
	}
	return t, nil
}

// Get returns the Test with its marks, or ErrNotFound unless it belongs to ownerID.
func (svc *Service) Get(ctx context.Context, ownerID, id string) (Test, error) {
	t, err := svc.get(ctx, ownerID, id)
	if err != nil {
		return Test{}, err
	}
	marks, err := svc.repo.QueryMarks(ctx, MarkFilter{TestID: t.ID})
	if err != nil {
		return Test{}, errors.Wrap(err, "querying marks")
	}
	t.setMarks(marks)
	return t, nil
}

func (svc *Service) Query(ctx context.Context, ownerID string, filter QueryFilter) ([]Test, error) {
	tests, err := svc.repo.QueryTests(ctx, ownerID, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying tests")
	}
	if len(tests) == 0 {
		return []Test{}, nil
	}

	ids := make([]string, len(tests))
	for i, t := range tests {
		ids[i] = t.ID
	}
	marks, err := svc.repo.QueryMarks(ctx, MarkFilter{OwnerID: ownerID, TestIDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "querying marks")
	}

	byTest := make(map[string][]Mark)
	for _, m := range marks {
		byTest[m.TestID] = append(byTest[m.TestID], m)
	}
	for i := range tests {
		tests[i].setMarks(byTest[tests[i].ID])
	}
	return tests, nil
}

func (svc *Service) Update(ctx context.Context, ownerID, id string, ut UpdateTest) (Test, error) {
	ut.Clean()
	if err := svc.validate.Struct(ut); err != nil {
		return Test{}, err
	}
	t, err := svc.get(ctx, ownerID, id)
	if err != nil {
		return Test{}, err
	}
	if ut.BatchID != nil && *ut.BatchID != t.BatchID {
		b, err := svc.checkBatch(ctx, ownerID, *ut.BatchID)
		if err != nil {
			return Test{}, err
		}
		t.BatchID, t.BatchName = b.ID, b.Name
	}

	ut.apply(&t)
	t.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateTest(ctx, t); err != nil {
		return Test{}, errors.Wrap(err, "updating test")
	}
	return svc.Get(ctx, ownerID, id)
}

func (svc *Service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := svc.get(ctx, ownerID, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteTest(ctx, id), "deleting test")
}

// RecordMarksBulk upserts each entry on its own; a failing entry is reported
// in the result and never undoes the others.
func (svc *Service) RecordMarksBulk(ctx context.Context, ownerID, testID string, entries []NewMark) (BulkResult, error) {
	t, err := svc.get(ctx, ownerID, testID)
	if err != nil {
		return BulkResult{}, err
	}
	if len(entries) == 0 {
		return BulkResult{}, ErrNoMarks
	}

	res := BulkResult{Marks: []Mark{}}
	for _, e := range entries {
		m, err := svc.recordMark(ctx, ownerID, t, e)
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		res.Marks = append(res.Marks, m)
	}

	res.Success = len(res.Errors) == 0
	res.Message = fmt.Sprintf("%d marks recorded successfully", len(res.Marks))
	return res, nil
}

// entryError is the per-entry failure of a bulk upload.
type entryError struct {
	studentID string
	reason    string
}

func (e entryError) Error() string {
	if e.reason == "" {
		return fmt.Sprintf("Student %s not found", e.studentID)
	}
	return fmt.Sprintf("Error for student %s: %s", e.studentID, e.reason)
}

func (svc *Service) recordMark(ctx context.Context, ownerID string, t Test, e NewMark) (Mark, error) {
	studentID := core.CleanString(e.StudentID)
	if studentID == "" {
		return Mark{}, entryError{studentID: studentID}
	}
	s, err := svc.students.GetStudent(ctx, studentID)
	if err == nil {
		err = core.CheckOwner(s, ownerID, student.ErrNotFound)
	}
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return Mark{}, entryError{studentID: studentID}
		}
		return Mark{}, entryError{studentID, err.Error()}
	}

	switch {
	case e.decodeErr != "":
		return Mark{}, entryError{studentID, e.decodeErr}
	case e.MarksObtained.Sign() < 0:
		return Mark{}, entryError{studentID, "marks cannot be negative"}
	case !core.HasMaxPlaces(e.MarksObtained, 2) || !e.MarksObtained.LessThan(decimal.New(1, 4)):
		return Mark{}, entryError{studentID, "marks must have at most 4 digits before and 2 after the decimal point"}
	case t.TotalMarks > 0 && e.MarksObtained.GreaterThan(decimal.NewFromInt(int64(t.TotalMarks))):
		return Mark{}, entryError{studentID, fmt.Sprintf("marks cannot exceed the test total of %d", t.TotalMarks)}
	}

	now := time.Now().UTC()
	m, err := svc.repo.UpsertMark(ctx, Mark{
		TestID:        t.ID,
		StudentID:     s.ID,
		MarksObtained: e.MarksObtained,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return Mark{}, entryError{studentID, "could not save marks"}
	}
	m.StudentName, m.StudentRoll = s.Name, s.Roll
	m.TestName, m.TestDate, m.TotalMarks = t.Name, t.Date, t.TotalMarks
	m.computePercentage()
	return m, nil
}

// Statistics summarises the marks of a test; every figure is 0 when there are none.
func (svc *Service) Statistics(ctx context.Context, ownerID, testID string) (TestStatistics, error) {
	t, err := svc.Get(ctx, ownerID, testID)
	if err != nil {
		return TestStatistics{}, err
	}

	stats := Statistics{
		TotalStudents:  len(t.Marks),
		AverageMarks:   t.AverageMarks,
		HighestMarks:   decimal.Zero,
		LowestMarks:    decimal.Zero,
		PassPercentage: decimal.Zero,
	}
	if len(t.Marks) > 0 {
		stats.HighestMarks = t.Marks[0].MarksObtained
		stats.LowestMarks = t.Marks[0].MarksObtained
		var passed int64
		for _, m := range t.Marks {
			if m.MarksObtained.GreaterThan(stats.HighestMarks) {
				stats.HighestMarks = m.MarksObtained
			}
			if m.MarksObtained.LessThan(stats.LowestMarks) {
				stats.LowestMarks = m.MarksObtained
			}
			if t.Passes(m.MarksObtained) {
				passed++
			}
		}
		stats.PassPercentage = core.Percentage(decimal.NewFromInt(passed), decimal.NewFromInt(int64(len(t.Marks))))
	}

	return TestStatistics{
		Test:       TestRef{ID: t.ID, Name: t.Name, TotalMarks: t.TotalMarks},
		Statistics: stats,
		Marks:      t.Marks,
	}, nil
}

// StudentReport lists a student's tests; the average is the mean of the unrounded per-test percentages.
func (svc *Service) StudentReport(ctx context.Context, ownerID, studentID string) (StudentReport, error) {
	s, err := svc.students.GetStudent(ctx, studentID)
	if err != nil {
		return StudentReport{}, err
	}
	if err = core.CheckOwner(s, ownerID, student.ErrNotFound); err != nil {
		return StudentReport{}, err
	}

	marks, err := svc.repo.QueryMarks(ctx, MarkFilter{StudentID: s.ID})
	if err != nil {
		return StudentReport{}, errors.Wrap(err, "querying marks")
	}

	rows := make([]ReportRow, 0, len(marks))
	ratios := decimal.Zero
	for _, m := range marks {
		m.computePercentage()
		if m.TotalMarks > 0 {
			ratios = ratios.Add(m.MarksObtained.Div(decimal.NewFromInt(int64(m.TotalMarks))))
		}
		rows = append(rows, ReportRow{
			TestID:        m.TestID,
			TestName:      m.TestName,
			TestDate:      m.TestDate,
			TotalMarks:    m.TotalMarks,
			MarksObtained: m.MarksObtained,
			Percentage:    m.Percentage,
		})
	}

	// rounded once, so per-test rounding does not drift into the average
	avg := core.Percentage(ratios, decimal.NewFromInt(int64(len(rows))))
	return StudentReport{
		Student: StudentRef{ID: s.ID, Name: s.Name, Roll: s.Roll},
		Summary: ReportSummary{TotalTests: len(rows), AveragePercentage: avg},
		Tests:   rows,
	}, nil
}
