package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/batch"
)

const batchSelect = `SELECT b.id, b.owner_id, b.name, b.timing, b.created_at, b.updated_at,
	(SELECT COUNT(*) FROM students s WHERE s.batch_id = b.id) AS student_count
FROM batches b`

type batchRow struct {
	ID           string    `boil:"id"`
	OwnerID      string    `boil:"owner_id"`
	Name         string    `boil:"name"`
	Timing       string    `boil:"timing"`
	StudentCount int       `boil:"student_count"`
	CreatedAt    time.Time `boil:"created_at"`
	UpdatedAt    time.Time `boil:"updated_at"`
}

func (r batchRow) unboil() batch.Batch {
	return batch.Batch{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		Name:         r.Name,
		Timing:       r.Timing,
		StudentCount: r.StudentCount,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type batchRepository struct {
	repository
}

var _ batch.Repository = (*batchRepository)(nil) // interface compliance check

func NewBatchRepository(db core.DB) batch.Repository {
	return &batchRepository{repository{db: db}}
}

func (repo batchRepository) CreateBatch(ctx context.Context, b batch.Batch, exec ...core.DBExecutor) (batch.Batch, error) {
	b.ID = uuid.New().String()
	_, err := queries.Raw(
		`INSERT INTO batches (id, owner_id, name, timing, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.OwnerID, b.Name, b.Timing, b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return batch.Batch{}, errors.Wrap(err, "inserting batch")
	}
	b.StudentCount = 0
	return b, nil
}

func (repo batchRepository) GetBatch(ctx context.Context, id string, exec ...core.DBExecutor) (batch.Batch, error) {
	if !validID(id) {
		return batch.Batch{}, batch.ErrNotFound
	}
	var row batchRow
	if err := queries.Raw(batchSelect+` WHERE b.id = $1`, id).Bind(ctx, repo.getExec(exec), &row); err != nil {
		return batch.Batch{}, trapNoRowsErr(err, batch.ErrNotFound, "finding batch")
	}
	return row.unboil(), nil
}

func (repo batchRepository) QueryBatches(ctx context.Context, ownerID string, exec ...core.DBExecutor) ([]batch.Batch, error) {
	var rows []batchRow
	err := queries.Raw(batchSelect+` WHERE b.owner_id = $1 ORDER BY b.created_at DESC`, ownerID).
		Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying batches")
	}
	batches := make([]batch.Batch, 0, len(rows))
	for _, r := range rows {
		batches = append(batches, r.unboil())
	}
	return batches, nil
}

func (repo batchRepository) UpdateBatch(ctx context.Context, b batch.Batch, exec ...core.DBExecutor) (batch.Batch, error) {
	res, err := queries.Raw(
		`UPDATE batches SET name = $2, timing = $3, updated_at = $4 WHERE id = $1`,
		b.ID, b.Name, b.Timing, b.UpdatedAt.UTC(),
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return batch.Batch{}, errors.Wrap(err, "updating batch")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return batch.Batch{}, batch.ErrNotFound
	}
	return repo.GetBatch(ctx, b.ID, exec...)
}

// DeleteBatch relies on the foreign keys: students are detached (ON DELETE SET NULL),
// attendance and tests are cascaded.
func (repo batchRepository) DeleteBatch(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return batch.ErrNotFound
	}
	_, err := queries.Raw(`DELETE FROM batches WHERE id = $1`, id).ExecContext(ctx, repo.getExec(exec))
	return errors.Wrap(err, "deleting batch")
}
