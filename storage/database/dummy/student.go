package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/attendance"
	"github.com/nae-imUam/coaching-app-api/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

// withBatch fills the batch name; the lock must be held.
func withBatch(db *DB, s student.Student) student.Student {
	s.BatchName = null.String{}
	if s.BatchID.Valid {
		if b, ok := db.batches[s.BatchID.String]; ok {
			s.BatchName = null.StringFrom(b.Name)
		}
	}
	return s
}

// rollTaken must be called with the lock held. Blank rolls never collide.
func (repo *studentRepository) rollTaken(s student.Student) bool {
	if s.Roll == "" {
		return false
	}
	for _, other := range repo.db.students {
		if other.ID != s.ID && other.OwnerID == s.OwnerID && other.Roll == s.Roll {
			return true
		}
	}
	return false
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = newID()
	if repo.rollTaken(s) {
		return student.Student{}, student.ErrRollExists
	}
	s.FeesPaid = decimal.Zero
	s.BatchName = null.String{}
	repo.db.students[s.ID] = &s
	return withBatch(repo.db, s), nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id string, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return withBatch(repo.db, *s), nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, ownerID string, filter student.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0)
	for _, s := range repo.db.students {
		if s.OwnerID == ownerID && filter.Matches(*s) {
			students = append(students, withBatch(repo.db, *s))
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.SliceStable(students, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareStudents(students[i], students[j], ord.Field)
			if c == 0 {
				continue
			}
			return (c < 0) == ord.Ascending
		}
		return false
	})
	return students, nil
}

func compareStudents(a, b student.Student, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "roll":
		return strings.Compare(a.Roll, b.Roll)
	case "total_fees":
		return a.TotalFees.Cmp(b.TotalFees)
	case "fees_paid":
		return a.FeesPaid.Cmp(b.FeesPaid)
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
	}
	return 0
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.students[s.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	if repo.rollTaken(s) {
		return student.Student{}, student.ErrRollExists
	}
	orig.BatchID = s.BatchID
	orig.Name = s.Name
	orig.Phone = s.Phone
	orig.Roll = s.Roll
	orig.TotalFees = s.TotalFees
	orig.UpdatedAt = s.UpdatedAt
	return withBatch(repo.db, *orig), nil
}

func (repo *studentRepository) SetProfilePic(_ context.Context, id, url string, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, ok := repo.db.students[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	s.ProfilePic = null.NewString(url, url != "")
	return withBatch(repo.db, *s), nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.students, id)
	for pid, p := range repo.db.payments {
		if p.StudentID == id {
			delete(repo.db.payments, pid)
		}
	}
	for _, sh := range repo.db.sheets {
		kept := make([]attendance.Record, 0, len(sh.Records))
		for _, r := range sh.Records {
			if r.StudentID != id {
				kept = append(kept, r)
			}
		}
		sh.Records = kept
	}
	for mid, m := range repo.db.marks {
		if m.StudentID == id {
			delete(repo.db.marks, mid)
		}
	}
	return nil
}
