package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/batch"
)

var (
	ErrNotFound   = core.NewNotFoundError("student")
	ErrRollExists = core.NewConflictError(
		errors.New("a student with this roll number already exists"),
		core.FieldError{Field: "roll", Error: "a student with this roll number already exists"},
	)
	errBatchNotFound = "batch not found"
)

type (
	Repository interface {
		// CreateStudent inserts s with fees_paid = 0. It returns ErrRollExists on a duplicate roll.
		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		// QueryStudents returns the owner's students matching filter, ordered by name unless ordering is set.
		QueryStudents(ctx context.Context, ownerID string, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		// UpdateStudent saves everything but fees_paid. It returns ErrRollExists on a duplicate roll.
		UpdateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		SetProfilePic(ctx context.Context, id, url string, exec ...core.DBExecutor) (Student, error)
		// DeleteStudent deletes the Student with its payments, attendance records and marks.
		DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	batchGetter interface {
		GetBatch(ctx context.Context, id string, exec ...core.DBExecutor) (batch.Batch, error)
	}

	Service struct {
		repo     Repository
		batches  batchGetter
		validate *validator.Validate
	}
)

func NewService(repo Repository, batches batch.Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, batches: batches, validate: validate}
}

func (svc *Service) checkBatch(ctx context.Context, ownerID, batchID string) (batch.Batch, error) {
	b, err := svc.batches.GetBatch(ctx, batchID)
	if err == nil {
		err = core.CheckOwner(b, ownerID, batch.ErrNotFound)
	}
	if err != nil {
		if errors.Cause(err) == batch.ErrNotFound {
			return batch.Batch{}, core.NewValidationError(batch.ErrNotFound, core.FieldError{Field: "batch", Error: errBatchNotFound})
		}
		return batch.Batch{}, errors.Wrap(err, "getting batch")
	}
	return b, nil
}

// Create creates a Student with no fees paid. NewStudent.FeesPaid is left to the caller to record through the ledger.
func (svc *Service) Create(ctx context.Context, ownerID string, ns NewStudent) (Student, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Student{}, err
	}

	now := time.Now().UTC()
	s := Student{
		OwnerID:   ownerID,
		Name:      ns.Name,
		Phone:     ns.Phone,
		Roll:      ns.Roll,
		TotalFees: ns.TotalFees,
		FeesPaid:  decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ns.BatchID != "" {
		b, err := svc.checkBatch(ctx, ownerID, ns.BatchID)
		if err != nil {
			return Student{}, err
		}
		s.BatchID = null.StringFrom(b.ID)
		s.BatchName = null.StringFrom(b.Name)
	}

	s, err := svc.repo.CreateStudent(ctx, s)
	return s, errors.Wrap(err, "creating student")
}

// Get returns ErrNotFound unless the Student belongs to ownerID.
func (svc *Service) Get(ctx context.Context, ownerID, id string) (Student, error) {
	s, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if err = core.CheckOwner(s, ownerID, ErrNotFound); err != nil {
		return Student{}, err
	}
	return s, nil
}

func (svc *Service) Query(ctx context.Context, ownerID string, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	filter.Clean()
	students, err := svc.repo.QueryStudents(ctx, ownerID, filter, core.CleanOrderings(ordering, OrderingColumns))
	return students, errors.Wrap(err, "querying students")
}

func (svc *Service) Update(ctx context.Context, ownerID, id string, us UpdateStudent) (Student, error) {
	us.Clean()
	if err := svc.validate.Struct(us); err != nil {
		return Student{}, err
	}
	s, err := svc.Get(ctx, ownerID, id)
	if err != nil {
		return Student{}, err
	}
	if us.BatchID != nil && *us.BatchID != "" {
		if _, err = svc.checkBatch(ctx, ownerID, *us.BatchID); err != nil {
			return Student{}, err
		}
	}

	us.apply(&s)
	s.UpdatedAt = time.Now().UTC()
	s, err = svc.repo.UpdateStudent(ctx, s)
	return s, errors.Wrap(err, "updating student")
}

func (svc *Service) SetProfilePic(ctx context.Context, ownerID, id, url string) (Student, error) {
	if _, err := svc.Get(ctx, ownerID, id); err != nil {
		return Student{}, err
	}
	s, err := svc.repo.SetProfilePic(ctx, id, url)
	return s, errors.Wrap(err, "setting profile picture")
}

func (svc *Service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := svc.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteStudent(ctx, id), "deleting student")
}
