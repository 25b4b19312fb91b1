package batch

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/nae-imUam/coaching-app-api/core"
)

var ErrNotFound = core.NewNotFoundError("batch")

type (
	Repository interface {
		CreateBatch(ctx context.Context, b Batch, exec ...core.DBExecutor) (Batch, error)
		// GetBatch returns the Batch with its StudentCount.
		GetBatch(ctx context.Context, id string, exec ...core.DBExecutor) (Batch, error)
		// QueryBatches returns the owner's batches, newest first.
		QueryBatches(ctx context.Context, ownerID string, exec ...core.DBExecutor) ([]Batch, error)
		UpdateBatch(ctx context.Context, b Batch, exec ...core.DBExecutor) (Batch, error)
		// DeleteBatch deletes the Batch and detaches its students (their batch becomes null).
		// Attendance sheets & tests of the batch are deleted with it.
		DeleteBatch(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, ownerID string, nb NewBatch) (Batch, error) {
	nb.Clean()
	if err := svc.validate.Struct(nb); err != nil {
		return Batch{}, err
	}

	now := time.Now().UTC()
	b, err := svc.repo.CreateBatch(ctx, Batch{
		OwnerID:   ownerID,
		Name:      nb.Name,
		Timing:    nb.Timing,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return b, errors.Wrap(err, "creating batch")
}

// Get returns ErrNotFound unless the Batch belongs to ownerID.
func (svc *Service) Get(ctx context.Context, ownerID, id string) (Batch, error) {
	b, err := svc.repo.GetBatch(ctx, id)
	if err != nil {
		return Batch{}, err
	}
	if err = core.CheckOwner(b, ownerID, ErrNotFound); err != nil {
		return Batch{}, err
	}
	return b, nil
}

func (svc *Service) Query(ctx context.Context, ownerID string) ([]Batch, error) {
	return svc.repo.QueryBatches(ctx, ownerID)
}

func (svc *Service) Update(ctx context.Context, ownerID, id string, ub UpdateBatch) (Batch, error) {
	if err := svc.validate.Struct(ub); err != nil {
		return Batch{}, err
	}
	b, err := svc.Get(ctx, ownerID, id)
	if err != nil {
		return Batch{}, err
	}

	ub.apply(&b)
	b.UpdatedAt = time.Now().UTC()
	b, err = svc.repo.UpdateBatch(ctx, b)
	return b, errors.Wrap(err, "updating batch")
}

func (svc *Service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := svc.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteBatch(ctx, id), "deleting batch")
}
