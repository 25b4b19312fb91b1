package fee

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/student"
)

// Payment is one ledger entry. Its amount is always > 0.
type Payment struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"-"`
	StudentID   string          `json:"student"`
	StudentName string          `json:"student_name"`
	StudentRoll string          `json:"student_roll"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate core.Date       `json:"payment_date"`
	Notes       string          `json:"notes"`
	CreatedAt   time.Time       `json:"created_at"` // UTC
	UpdatedAt   time.Time       `json:"updated_at"` // UTC
}

func (p Payment) OwnedBy(ownerID string) bool { return p.OwnerID == ownerID }

// Balance is a student's fee position right after a ledger operation.
type Balance struct {
	TotalFees decimal.Decimal
	FeesPaid  decimal.Decimal
}

func (b Balance) FeesDue() decimal.Decimal { return b.TotalFees.Sub(b.FeesPaid) }

func (b Balance) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]decimal.Decimal{
		"total_fees": b.TotalFees,
		"fees_paid":  b.FeesPaid,
		"fees_due":   b.FeesDue(),
	})
}

// NewPayment contains information needed to record a payment.
type NewPayment struct {
	StudentID   string          `json:"student" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"money,gtzero"`
	PaymentDate core.Date       `json:"payment_date"` // defaults to today
	Notes       string          `json:"notes" validate:"max=2000"`
}

func (np *NewPayment) Clean() {
	np.StudentID = core.CleanString(np.StudentID)
	np.Notes = core.CleanString(np.Notes)
	if np.PaymentDate.IsZero() {
		np.PaymentDate = core.Today()
	}
}

// QueryFilter narrows a payment listing. A zero Month means any month.
type QueryFilter struct {
	StudentID string
	BatchID   string
	Month     core.Month
}

// Matches applies the filter in memory; batchID is the paying student's current batch.
func (qf QueryFilter) Matches(p Payment, batchID string) bool {
	if qf.StudentID != "" && p.StudentID != qf.StudentID {
		return false
	}
	if qf.BatchID != "" && batchID != qf.BatchID {
		return false
	}
	if !qf.Month.IsZero() && !qf.Month.Contains(p.PaymentDate) {
		return false
	}
	return true
}

type PaymentList struct {
	Count          int             `json:"count"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	Payments       []Payment       `json:"payments"`
}

type StudentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Roll string `json:"roll"`
}

func refOf(s student.Student) StudentRef {
	return StudentRef{ID: s.ID, Name: s.Name, Roll: s.Roll}
}

type FeeStatus struct {
	TotalFees         decimal.Decimal `json:"total_fees"`
	FeesPaid          decimal.Decimal `json:"fees_paid"`
	FeesDue           decimal.Decimal `json:"fees_due"`
	PaymentPercentage decimal.Decimal `json:"payment_percentage"`
}

type StudentStatus struct {
	Student        StudentRef `json:"student"`
	FeeStatus      FeeStatus  `json:"fee_status"`
	PaymentHistory []Payment  `json:"payment_history"`
}

type BatchRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Defaulter struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Roll      string          `json:"roll"`
	BatchName null.String     `json:"batch_name"`
	TotalFees decimal.Decimal `json:"total_fees"`
	FeesPaid  decimal.Decimal `json:"fees_paid"`
	FeesDue   decimal.Decimal `json:"fees_due"`
}

type Totals struct {
	TotalStudents        int             `json:"total_students"`
	TotalExpected        decimal.Decimal `json:"total_expected"`
	TotalCollected       decimal.Decimal `json:"total_collected"`
	TotalDue             decimal.Decimal `json:"total_due"`
	CollectionPercentage decimal.Decimal `json:"collection_percentage"`
}

type BatchOverview struct {
	Batch      BatchRef    `json:"batch"`
	Overview   Totals      `json:"overview"`
	Defaulters []Defaulter `json:"defaulters"`
}

// OwnerAnalytics carries the owner-wide totals under *_fees keys.
type OwnerAnalytics struct {
	TotalStudents        int                 `json:"total_students"`
	TotalExpected        decimal.Decimal     `json:"total_expected_fees"`
	TotalCollected       decimal.Decimal     `json:"total_collected_fees"`
	TotalDue             decimal.Decimal     `json:"total_due_fees"`
	CollectionPercentage decimal.Decimal     `json:"collection_percentage"`
	StudentsWithDues     int                 `json:"students_with_dues"`
	FullyPaidStudents    int                 `json:"fully_paid_students"`
	Month                string              `json:"month,omitempty"`
	MonthlyCollection    decimal.NullDecimal `json:"monthly_collection"`
}
