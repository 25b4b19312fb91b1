package student

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/nae-imUam/coaching-app-api/core"
)

type Student struct {
	ID         string          `json:"id"`
	OwnerID    string          `json:"-"`
	BatchID    null.String     `json:"batch"`
	BatchName  null.String     `json:"batch_name"`
	Name       string          `json:"name"`
	Phone      string          `json:"phone"`
	Roll       string          `json:"roll"`
	TotalFees  decimal.Decimal `json:"total_fees"`
	FeesPaid   decimal.Decimal `json:"fees_paid"` // only ever changed by the fee ledger
	ProfilePic null.String     `json:"profile_pic"`
	CreatedAt  time.Time       `json:"created_at"` // UTC
	UpdatedAt  time.Time       `json:"updated_at"` // UTC
}

func (s Student) OwnedBy(ownerID string) bool { return s.OwnerID == ownerID }

// FeesDue is never clamped: it is negative when the student overpaid.
func (s Student) FeesDue() decimal.Decimal { return s.TotalFees.Sub(s.FeesPaid) }

// IsDefaulter reports whether the student still owes fees.
func (s Student) IsDefaulter() bool { return s.TotalFees.GreaterThan(s.FeesPaid) }

func (s Student) IsFullyPaid() bool { return s.FeesPaid.GreaterThanOrEqual(s.TotalFees) }

func (s Student) MarshalJSON() ([]byte, error) {
	type student Student
	return json.Marshal(struct {
		student
		FeesDue decimal.Decimal `json:"fees_due"`
	}{student(s), s.FeesDue()})
}

// NewStudent contains information needed to create a new Student.
// FeesPaid is an opening balance: it is recorded as a ledger payment, never written directly.
type NewStudent struct {
	BatchID   string          `json:"batch"`
	Name      string          `json:"name" validate:"required,max=255"`
	Phone     string          `json:"phone" validate:"required,phone"`
	Roll      string          `json:"roll" validate:"max=50"`
	TotalFees decimal.Decimal `json:"total_fees" validate:"money"`
	FeesPaid  decimal.Decimal `json:"fees_paid" validate:"money"`
}

func (ns *NewStudent) Clean() {
	ns.BatchID = core.CleanString(ns.BatchID)
	ns.Name = core.CleanName(ns.Name)
	ns.Phone = core.NormalizePhone(ns.Phone)
	ns.Roll = core.CleanString(ns.Roll)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Nil fields are left unchanged; an empty Batch detaches the student from its batch.
// fees_paid is not part of it: only the fee ledger moves it.
type UpdateStudent struct {
	BatchID   *string          `json:"batch"`
	Name      *string          `json:"name" validate:"omitempty,notblank,max=255"`
	Phone     *string          `json:"phone" validate:"omitempty,phone"`
	Roll      *string          `json:"roll" validate:"omitempty,max=50"`
	TotalFees *decimal.Decimal `json:"total_fees" validate:"omitempty,money"`
}

func (us *UpdateStudent) Clean() {
	clean := func(s *string) {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	clean(us.BatchID)
	clean(us.Roll)
	if us.Name != nil {
		*us.Name = core.CleanName(*us.Name)
	}
	if us.Phone != nil {
		*us.Phone = core.NormalizePhone(*us.Phone)
	}
}

func (us *UpdateStudent) apply(s *Student) {
	if us.BatchID != nil {
		s.BatchID = null.NewString(*us.BatchID, *us.BatchID != "")
	}
	if us.Name != nil {
		s.Name = *us.Name
	}
	if us.Phone != nil {
		s.Phone = *us.Phone
	}
	if us.Roll != nil {
		s.Roll = *us.Roll
	}
	if us.TotalFees != nil {
		s.TotalFees = *us.TotalFees
	}
}

type QueryFilter struct {
	BatchID string `query:"batch_id"`
	Search  string `query:"search"` // case-insensitive match on name, phone or roll
}

func (qf *QueryFilter) Clean() {
	qf.BatchID = core.CleanString(qf.BatchID)
	qf.Search = core.CleanString(qf.Search)
}

// Matches applies the filter in memory.
func (qf QueryFilter) Matches(s Student) bool {
	if qf.BatchID != "" && s.BatchID.String != qf.BatchID {
		return false
	}
	if qf.Search != "" {
		search := strings.ToLower(qf.Search)
		return strings.Contains(strings.ToLower(s.Name), search) ||
			strings.Contains(strings.ToLower(s.Phone), search) ||
			strings.Contains(strings.ToLower(s.Roll), search)
	}
	return true
}

// OrderingColumns maps the API ordering fields to columns.
var OrderingColumns = map[string]string{
	"name":       "name",
	"roll":       "roll",
	"created_at": "created_at",
	"total_fees": "total_fees",
	"fees_paid":  "fees_paid",
}
