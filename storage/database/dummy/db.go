package dummydb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/nae-imUam/coaching-app-api/core/attendance"
	"github.com/nae-imUam/coaching-app-api/core/batch"
	"github.com/nae-imUam/coaching-app-api/core/dashboard"
	"github.com/nae-imUam/coaching-app-api/core/exam"
	"github.com/nae-imUam/coaching-app-api/core/fee"
	"github.com/nae-imUam/coaching-app-api/core/owner"
	"github.com/nae-imUam/coaching-app-api/core/student"
)

// DB is an in-memory store for tests. A single lock guards every table,
// so writes spanning tables (a payment and its student's balance) are atomic.
type DB struct {
	sync.RWMutex

	owners   map[string]*owner.Owner
	batches  map[string]*batch.Batch
	students map[string]*student.Student
	payments map[string]*fee.Payment
	sheets   map[string]*attendance.Sheet
	tests    map[string]*exam.Test
	marks    map[string]*exam.Mark
}

func Open() (*DB, error) {
	db := &DB{
		owners:   make(map[string]*owner.Owner),
		batches:  make(map[string]*batch.Batch),
		students: make(map[string]*student.Student),
		payments: make(map[string]*fee.Payment),
		sheets:   make(map[string]*attendance.Sheet),
		tests:    make(map[string]*exam.Test),
		marks:    make(map[string]*exam.Mark),
	}
	return db, nil
}

func newID() string {
	return uuid.New().String()
}

// Repositories bundles every repository backed by the same DB.
type Repositories struct {
	Owners     owner.Repository
	Batches    batch.Repository
	Students   student.Repository
	Payments   fee.Repository
	Attendance attendance.Repository
	Exams      exam.Repository
	Dashboard  dashboard.Repository
}

func NewRepositories(db *DB) Repositories {
	return Repositories{
		Owners:     NewOwnerRepository(db),
		Batches:    NewBatchRepository(db),
		Students:   NewStudentRepository(db),
		Payments:   NewPaymentRepository(db),
		Attendance: NewAttendanceRepository(db),
		Exams:      NewExamRepository(db),
		Dashboard:  NewDashboardRepository(db),
	}
}
