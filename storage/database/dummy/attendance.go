package dummydb

import (
	"context"
	"sort"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

// read returns a detached copy with batch & student details; the lock must be held.
func (repo *attendanceRepository) read(sh *attendance.Sheet) attendance.Sheet {
	s := *sh
	if b, ok := repo.db.batches[s.BatchID]; ok {
		s.BatchName = b.Name
	}
	s.Records = make([]attendance.Record, 0, len(sh.Records))
	for _, r := range sh.Records {
		if st, ok := repo.db.students[r.StudentID]; ok {
			r.StudentName, r.StudentRoll = st.Name, st.Roll
		}
		s.Records = append(s.Records, r)
	}
	sort.SliceStable(s.Records, func(i, j int) bool { return s.Records[i].StudentName < s.Records[j].StudentName })
	return s
}

func newRecords(records []attendance.Record) []attendance.Record {
	saved := make([]attendance.Record, 0, len(records))
	for _, r := range records {
		r.ID = newID()
		saved = append(saved, r)
	}
	return saved
}

// find must be called with the lock held.
func (repo *attendanceRepository) find(ownerID, batchID string, date core.Date) *attendance.Sheet {
	for _, sh := range repo.db.sheets {
		if sh.OwnerID == ownerID && sh.BatchID == batchID && sh.Date.Equal(date) {
			return sh
		}
	}
	return nil
}

func (repo *attendanceRepository) UpsertSheet(_ context.Context, s attendance.Sheet, _ ...core.DBExecutor) (attendance.Sheet, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if existing := repo.find(s.OwnerID, s.BatchID, s.Date); existing != nil {
		existing.Records = newRecords(s.Records)
		existing.UpdatedAt = s.UpdatedAt
		return repo.read(existing), false, nil
	}

	s.ID = newID()
	s.Records = newRecords(s.Records)
	repo.db.sheets[s.ID] = &s
	return repo.read(&s), true, nil
}

func (repo *attendanceRepository) UpdateSheet(_ context.Context, s attendance.Sheet, replaceRecords bool, _ ...core.DBExecutor) (attendance.Sheet, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.sheets[s.ID]
	if !ok {
		return attendance.Sheet{}, attendance.ErrNotFound
	}
	if other := repo.find(orig.OwnerID, s.BatchID, s.Date); other != nil && other.ID != s.ID {
		return attendance.Sheet{}, attendance.ErrSheetExists
	}
	orig.BatchID = s.BatchID
	orig.Date = s.Date
	orig.UpdatedAt = s.UpdatedAt
	if replaceRecords {
		orig.Records = newRecords(s.Records)
	}
	return repo.read(orig), nil
}

func (repo *attendanceRepository) GetSheet(_ context.Context, id string, _ ...core.DBExecutor) (attendance.Sheet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sh, ok := repo.db.sheets[id]; ok {
		return repo.read(sh), nil
	}
	return attendance.Sheet{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QuerySheets(_ context.Context, ownerID string, filter attendance.QueryFilter, _ ...core.DBExecutor) ([]attendance.Sheet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sheets := make([]attendance.Sheet, 0)
	for _, sh := range repo.db.sheets {
		if sh.OwnerID == ownerID && filter.Matches(*sh) {
			sheets = append(sheets, repo.read(sh))
		}
	}
	sort.SliceStable(sheets, func(i, j int) bool {
		if !sheets[i].Date.Equal(sheets[j].Date) {
			return sheets[i].Date.After(sheets[j].Date.Time)
		}
		return sheets[i].CreatedAt.After(sheets[j].CreatedAt)
	})
	return sheets, nil
}

func (repo *attendanceRepository) DeleteSheet(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.sheets, id)
	return nil
}

func (repo *attendanceRepository) QueryStudentRecords(_ context.Context, studentID string, month core.Month, _ ...core.DBExecutor) ([]attendance.StudentRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]attendance.StudentRecord, 0)
	for _, sh := range repo.db.sheets {
		if !month.IsZero() && !month.Contains(sh.Date) {
			continue
		}
		for _, r := range sh.Records {
			if r.StudentID != studentID {
				continue
			}
			var batchName string
			if b, ok := repo.db.batches[sh.BatchID]; ok {
				batchName = b.Name
			}
			records = append(records, attendance.StudentRecord{
				SheetID:   sh.ID,
				BatchName: batchName,
				Date:      sh.Date,
				Status:    r.Status,
			})
		}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.After(records[j].Date.Time) })
	return records, nil
}
