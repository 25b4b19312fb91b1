package attendance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nae-imUam/coaching-app-api/core"
)

const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
)

// Sheet is the attendance of one batch on one day; unique per (owner, batch, date).
type Sheet struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"-"`
	BatchID      string    `json:"batch"`
	BatchName    string    `json:"batch_name"`
	Date         core.Date `json:"date"`
	Records      []Record  `json:"records"`
	PresentCount int       `json:"present_count"`
	AbsentCount  int       `json:"absent_count"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (s Sheet) OwnedBy(ownerID string) bool { return s.OwnerID == ownerID }

// Count fills PresentCount & AbsentCount from the records.
func (s *Sheet) Count() {
	s.PresentCount, s.AbsentCount = 0, 0
	for _, r := range s.Records {
		if r.Status == StatusPresent {
			s.PresentCount++
		} else {
			s.AbsentCount++
		}
	}
}

type Record struct {
	ID          string `json:"id"`
	StudentID   string `json:"student"`
	StudentName string `json:"student_name"`
	StudentRoll string `json:"student_roll"`
	Status      string `json:"status"`
}

// NewSheet contains the full attendance of a batch for a day.
// Submitting it again for the same batch & date replaces the previous records.
type NewSheet struct {
	BatchID string      `json:"batch" validate:"required"`
	Date    core.Date   `json:"date" validate:"required"`
	Records []NewRecord `json:"records" validate:"dive"`
}

type NewRecord struct {
	StudentID string `json:"student" validate:"required"`
	Status    string `json:"status" validate:"omitempty,oneof=present absent"`
}

func (ns *NewSheet) Clean() {
	ns.BatchID = core.CleanString(ns.BatchID)
	for i := range ns.Records {
		ns.Records[i].clean()
	}
}

func (nr *NewRecord) clean() {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.Status = core.CleanString(nr.Status, true /* lower */)
	if nr.Status == "" {
		nr.Status = StatusAbsent
	}
}

// UpdateSheet moves a sheet and/or replaces its records. Nil fields are left unchanged.
type UpdateSheet struct {
	BatchID *string      `json:"batch" validate:"omitempty,notblank"`
	Date    *core.Date   `json:"date"`
	Records *[]NewRecord `json:"records" validate:"omitempty,dive"`
}

func (us *UpdateSheet) Clean() {
	if us.BatchID != nil {
		*us.BatchID = core.CleanString(*us.BatchID)
	}
	if us.Records != nil {
		for i := range *us.Records {
			(*us.Records)[i].clean()
		}
	}
}

// QueryFilter narrows a sheet listing; zero fields are ignored.
type QueryFilter struct {
	BatchID string
	Date    core.Date
	Month   core.Month
}

func (qf QueryFilter) Matches(s Sheet) bool {
	if qf.BatchID != "" && s.BatchID != qf.BatchID {
		return false
	}
	if !qf.Date.IsZero() && !s.Date.Equal(qf.Date) {
		return false
	}
	if !qf.Month.IsZero() && !qf.Month.Contains(s.Date) {
		return false
	}
	return true
}

// StudentRecord is a student's status on a given day.
type StudentRecord struct {
	SheetID   string    `json:"attendance"`
	BatchName string    `json:"batch_name"`
	Date      core.Date `json:"date"`
	Status    string    `json:"status"`
}

type StudentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Roll string `json:"roll"`
}

type ReportSummary struct {
	TotalDays            int             `json:"total_days"`
	PresentDays          int             `json:"present_days"`
	AbsentDays           int             `json:"absent_days"`
	AttendancePercentage decimal.Decimal `json:"attendance_percentage"`
}

type StudentReport struct {
	Student StudentRef      `json:"student"`
	Month   string          `json:"month,omitempty"`
	Report  ReportSummary   `json:"report"`
	Records []StudentRecord `json:"records"`
}
