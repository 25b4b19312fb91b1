package attendance

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
	ErrNotFound    = core.NewNotFoundError("attendance")
	ErrSheetExists = core.NewConflictError(
		errors.New("attendance for this batch and date already exists"),
		core.FieldError{Field: "date", Error: "attendance for this batch and date already exists"},
	)
)

type (
	Repository interface {
		// UpsertSheet creates the (owner, batch, date) sheet, or replaces all records of the
		// existing one, in a single transaction. created reports which happened.
		UpsertSheet(ctx context.Context, s Sheet, exec ...core.DBExecutor) (sheet Sheet, created bool, err error)
		// UpdateSheet saves the batch & date of s and, when replaceRecords is set, swaps its
		// records for s.Records in the same transaction. It returns ErrSheetExists on a key collision.
		UpdateSheet(ctx context.Context, s Sheet, replaceRecords bool, exec ...core.DBExecutor) (Sheet, error)
		GetSheet(ctx context.Context, id string, exec ...core.DBExecutor) (Sheet, error)
		// QuerySheets returns the owner's sheets, latest date first.
		QuerySheets(ctx context.Context, ownerID string, filter QueryFilter, exec ...core.DBExecutor) ([]Sheet, error)
		DeleteSheet(ctx context.Context, id string, exec ...core.DBExecutor) error
		// QueryStudentRecords returns the student's records, latest date first. A zero month means all.
		QueryStudentRecords(ctx context.Context, studentID string, month core.Month, exec ...core.DBExecutor) ([]StudentRecord, error)
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

// checkRecords makes sure every record targets a distinct student of the owner.
func (svc *Service) checkRecords(ctx context.Context, ownerID string, records []NewRecord) ([]Record, error) {
	var fldErrs []core.FieldError
	seen := make(map[string]bool, len(records))
	checked := make([]Record, 0, len(records))

	for i, nr := range records {
		field := fmt.Sprintf("records[%d].student", i)
		if seen[nr.StudentID] {
			fldErrs = append(fldErrs, core.FieldError{Field: field, Error: "duplicate student"})
			continue
		}
		seen[nr.StudentID] = true

		s, err := svc.students.GetStudent(ctx, nr.StudentID)
		if err == nil {
			err = core.CheckOwner(s, ownerID, student.ErrNotFound)
		}
		if err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				fldErrs = append(fldErrs, core.FieldError{Field: field, Error: "student not found"})
				continue
			}
			return nil, errors.Wrap(err, "getting student")
		}
		checked = append(checked, Record{StudentID: s.ID, StudentName: s.Name, StudentRoll: s.Roll, Status: nr.Status})
	}

	if len(fldErrs) > 0 {
		return nil, core.NewValidationError(errors.New("invalid attendance records"), fldErrs...)
	}
	return checked, nil
}

// UpsertSheet records the attendance of a batch for a day, replacing any previous submission.
func (svc *Service) UpsertSheet(ctx context.Context, ownerID string, ns NewSheet) (Sheet, bool, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Sheet{}, false, err
	}
	b, err := svc.checkBatch(ctx, ownerID, ns.BatchID)
	if err != nil {
		return Sheet{}, false, err
	}
	records, err := svc.checkRecords(ctx, ownerID, ns.Records)
	if err != nil {
		return Sheet{}, false, err
	}

	now := time.Now().UTC()
	sheet, created, err := svc.repo.UpsertSheet(ctx, Sheet{
		OwnerID:   ownerID,
		BatchID:   b.ID,
		BatchName: b.Name,
		Date:      ns.Date,
		Records:   records,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Sheet{}, false, errors.Wrap(err, "upserting attendance")
	}
	sheet.Count()
	return sheet, created, nil
}

// Get returns ErrNotFound unless the Sheet belongs to ownerID.
func (svc *Service) Get(ctx context.Context, ownerID, id string) (Sheet, error) {
	s, err := svc.repo.GetSheet(ctx, id)
	if err != nil {
		return Sheet{}, err
	}
	if err = core.CheckOwner(s, ownerID, ErrNotFound); err != nil {
		return Sheet{}, err
	}
	s.Count()
	return s, nil
}

func (svc *Service) Query(ctx context.Context, ownerID string, filter QueryFilter) ([]Sheet, error) {
	sheets, err := svc.repo.QuerySheets(ctx, ownerID, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	if sheets == nil {
		sheets = []Sheet{}
	}
	for i := range sheets {
		sheets[i].Count()
	}
	return sheets, nil
}

func (svc *Service) Update(ctx context.Context, ownerID, id string, us UpdateSheet) (Sheet, error) {
	us.Clean()
	if err := svc.validate.Struct(us); err != nil {
		return Sheet{}, err
	}
	s, err := svc.Get(ctx, ownerID, id)
	if err != nil {
		return Sheet{}, err
	}

	if us.BatchID != nil && *us.BatchID != s.BatchID {
		b, err := svc.checkBatch(ctx, ownerID, *us.BatchID)
		if err != nil {
			return Sheet{}, err
		}
		s.BatchID, s.BatchName = b.ID, b.Name
	}
	if us.Date != nil && !us.Date.IsZero() {
		s.Date = *us.Date
	}
	if us.Records != nil {
		if s.Records, err = svc.checkRecords(ctx, ownerID, *us.Records); err != nil {
			return Sheet{}, err
		}
	}

	s.UpdatedAt = time.Now().UTC()
	s, err = svc.repo.UpdateSheet(ctx, s, us.Records != nil)
	if err != nil {
		return Sheet{}, errors.Wrap(err, "updating attendance")
	}
	s.Count()
	return s, nil
}

func (svc *Service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := svc.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteSheet(ctx, id), "deleting attendance")
}

// StudentReport summarises a student's attendance, optionally within a month.
// A malformed month is ignored.
func (svc *Service) StudentReport(ctx context.Context, ownerID, studentID, month string) (StudentReport, error) {
	s, err := svc.students.GetStudent(ctx, studentID)
	if err != nil {
		return StudentReport{}, err
	}
	if err = core.CheckOwner(s, ownerID, student.ErrNotFound); err != nil {
		return StudentReport{}, err
	}

	m, _ := core.ParseMonth(month)
	records, err := svc.repo.QueryStudentRecords(ctx, s.ID, m)
	if err != nil {
		return StudentReport{}, errors.Wrap(err, "querying attendance records")
	}
	if records == nil {
		records = []StudentRecord{}
	}

	var present int
	for _, r := range records {
		if r.Status == StatusPresent {
			present++
		}
	}
	total := len(records)

	return StudentReport{
		Student: StudentRef{ID: s.ID, Name: s.Name, Roll: s.Roll},
		Month:   m.String(),
		Report: ReportSummary{
			TotalDays:            total,
			PresentDays:          present,
			AbsentDays:           total - present,
			AttendancePercentage: core.Percentage(decimal.NewFromInt(int64(present)), decimal.NewFromInt(int64(total))),
		},
		Records: records,
	}, nil
}
