package dummydb

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/batch"
)

type batchRepository struct {
	db *DB
}

var _ batch.Repository = (*batchRepository)(nil) // interface compliance check

func NewBatchRepository(db *DB) batch.Repository {
	return &batchRepository{db: db}
}

// withCount must be called with the lock held.
func (repo *batchRepository) withCount(b batch.Batch) batch.Batch {
	b.StudentCount = 0
	for _, s := range repo.db.students {
		if s.BatchID.Valid && s.BatchID.String == b.ID {
			b.StudentCount++
		}
	}
	return b
}

func (repo *batchRepository) CreateBatch(_ context.Context, b batch.Batch, _ ...core.DBExecutor) (batch.Batch, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	b.ID = newID()
	b.StudentCount = 0
	repo.db.batches[b.ID] = &b
	return b, nil
}

func (repo *batchRepository) GetBatch(_ context.Context, id string, _ ...core.DBExecutor) (batch.Batch, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if b, ok := repo.db.batches[id]; ok {
		return repo.withCount(*b), nil
	}
	return batch.Batch{}, batch.ErrNotFound
}

func (repo *batchRepository) QueryBatches(_ context.Context, ownerID string, _ ...core.DBExecutor) ([]batch.Batch, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	batches := make([]batch.Batch, 0)
	for _, b := range repo.db.batches {
		if b.OwnerID == ownerID {
			batches = append(batches, repo.withCount(*b))
		}
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].CreatedAt.After(batches[j].CreatedAt) })
	return batches, nil
}

func (repo *batchRepository) UpdateBatch(_ context.Context, b batch.Batch, _ ...core.DBExecutor) (batch.Batch, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.batches[b.ID]
	if !ok {
		return batch.Batch{}, batch.ErrNotFound
	}
	orig.Name = b.Name
	orig.Timing = b.Timing
	orig.UpdatedAt = b.UpdatedAt
	return repo.withCount(*orig), nil
}

func (repo *batchRepository) DeleteBatch(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.batches, id)
	for _, s := range repo.db.students {
		if s.BatchID.String == id {
			s.BatchID = null.String{}
		}
	}
	for sid, sh := range repo.db.sheets {
		if sh.BatchID == id {
			delete(repo.db.sheets, sid)
		}
	}
	for tid, t := range repo.db.tests {
		if t.BatchID == id {
			deleteTest(repo.db, tid)
		}
	}
	return nil
}
