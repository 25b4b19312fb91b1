package dummydb

import (
	"context"
	"sort"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/exam"
)

type examRepository struct {
	db *DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) exam.Repository {
	return &examRepository{db: db}
}

// readTest fills the batch name; the lock must be held.
func (repo *examRepository) readTest(t exam.Test) exam.Test {
	if b, ok := repo.db.batches[t.BatchID]; ok {
		t.BatchName = b.Name
	}
	t.Marks = nil
	return t
}

// readMark fills the test & student details; the lock must be held.
func (repo *examRepository) readMark(m exam.Mark) exam.Mark {
	if t, ok := repo.db.tests[m.TestID]; ok {
		m.TestName, m.TestDate, m.TotalMarks = t.Name, t.Date, t.TotalMarks
	}
	if s, ok := repo.db.students[m.StudentID]; ok {
		m.StudentName, m.StudentRoll = s.Name, s.Roll
	}
	return m
}

// deleteTest removes a test and its marks; the lock must be held.
func deleteTest(db *DB, id string) {
	delete(db.tests, id)
	for mid, m := range db.marks {
		if m.TestID == id {
			delete(db.marks, mid)
		}
	}
}

func (repo *examRepository) CreateTest(_ context.Context, t exam.Test, _ ...core.DBExecutor) (exam.Test, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = newID()
	t.Marks = nil
	repo.db.tests[t.ID] = &t
	return repo.readTest(t), nil
}

func (repo *examRepository) GetTest(_ context.Context, id string, _ ...core.DBExecutor) (exam.Test, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.tests[id]; ok {
		return repo.readTest(*t), nil
	}
	return exam.Test{}, exam.ErrNotFound
}

func (repo *examRepository) QueryTests(_ context.Context, ownerID string, filter exam.QueryFilter, _ ...core.DBExecutor) ([]exam.Test, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tests := make([]exam.Test, 0)
	for _, t := range repo.db.tests {
		if t.OwnerID == ownerID && filter.Matches(*t) {
			tests = append(tests, repo.readTest(*t))
		}
	}
	sort.SliceStable(tests, func(i, j int) bool {
		if !tests[i].Date.Equal(tests[j].Date) {
			return tests[i].Date.After(tests[j].Date.Time)
		}
		return tests[i].CreatedAt.After(tests[j].CreatedAt)
	})
	return tests, nil
}

func (repo *examRepository) UpdateTest(_ context.Context, t exam.Test, _ ...core.DBExecutor) (exam.Test, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.tests[t.ID]
	if !ok {
		return exam.Test{}, exam.ErrNotFound
	}
	orig.BatchID = t.BatchID
	orig.Name = t.Name
	orig.Date = t.Date
	orig.TotalMarks = t.TotalMarks
	orig.Duration = t.Duration
	orig.Board = t.Board
	orig.UpdatedAt = t.UpdatedAt
	return repo.readTest(*orig), nil
}

func (repo *examRepository) DeleteTest(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	deleteTest(repo.db, id)
	return nil
}

func (repo *examRepository) UpsertMark(_ context.Context, m exam.Mark, _ ...core.DBExecutor) (exam.Mark, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.tests[m.TestID]; !ok {
		return exam.Mark{}, exam.ErrNotFound
	}
	for _, existing := range repo.db.marks {
		if existing.TestID == m.TestID && existing.StudentID == m.StudentID {
			existing.MarksObtained = m.MarksObtained
			existing.UpdatedAt = m.UpdatedAt
			return repo.readMark(*existing), nil
		}
	}
	m.ID = newID()
	repo.db.marks[m.ID] = &m
	return repo.readMark(m), nil
}

func (repo *examRepository) QueryMarks(_ context.Context, filter exam.MarkFilter, _ ...core.DBExecutor) ([]exam.Mark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	marks := make([]exam.Mark, 0)
	for _, m := range repo.db.marks {
		if filter.TestID != "" && m.TestID != filter.TestID {
			continue
		}
		if filter.StudentID != "" && m.StudentID != filter.StudentID {
			continue
		}
		if len(filter.TestIDs) > 0 && !containsID(filter.TestIDs, m.TestID) {
			continue
		}
		if filter.OwnerID != "" {
			if t, ok := repo.db.tests[m.TestID]; !ok || t.OwnerID != filter.OwnerID {
				continue
			}
		}
		marks = append(marks, repo.readMark(*m))
	}

	if filter.StudentID != "" {
		sort.SliceStable(marks, func(i, j int) bool { return marks[i].TestDate.After(marks[j].TestDate.Time) })
	} else {
		sort.SliceStable(marks, func(i, j int) bool { return marks[i].StudentName < marks[j].StudentName })
	}
	return marks, nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
