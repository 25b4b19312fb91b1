package fee

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/batch"
	"github.com/nae-imUam/coaching-app-api/core/student"
)

var ErrNotFound = core.NewNotFoundError("payment")

type (
	// Repository persists payments. The two ledger writes are atomic: the payment row
	// and the student's fees_paid change commit together or not at all, and fees_paid
	// is moved by the database itself (fees_paid = fees_paid ± amount).
	Repository interface {
		// CreatePayment inserts p and adds p.Amount to the student's fees_paid.
		// It returns student.ErrNotFound when the student does not belong to p.OwnerID.
		CreatePayment(ctx context.Context, p Payment, exec ...core.DBExecutor) (Payment, Balance, error)
		// DeletePayment deletes the owner's payment and subtracts its amount from fees_paid.
		DeletePayment(ctx context.Context, ownerID, id string, exec ...core.DBExecutor) (Payment, Balance, error)
		GetPayment(ctx context.Context, id string, exec ...core.DBExecutor) (Payment, error)
		// QueryPayments returns the owner's payments, latest payment_date first (ties: latest created first).
		QueryPayments(ctx context.Context, ownerID string, filter QueryFilter, exec ...core.DBExecutor) ([]Payment, error)
	}

	studentReader interface {
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (student.Student, error)
		QueryStudents(ctx context.Context, ownerID string, filter student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error)
	}

	batchGetter interface {
		GetBatch(ctx context.Context, id string, exec ...core.DBExecutor) (batch.Batch, error)
	}

	// Ledger is the only writer of Student.FeesPaid.
	Ledger struct {
		repo     Repository
		students studentReader
		batches  batchGetter
		validate *validator.Validate
	}
)

func NewLedger(repo Repository, students student.Repository, batches batch.Repository, validate *validator.Validate) *Ledger {
	return &Ledger{repo: repo, students: students, batches: batches, validate: validate}
}

func (l *Ledger) getStudent(ctx context.Context, ownerID, id string) (student.Student, error) {
	s, err := l.students.GetStudent(ctx, id)
	if err != nil {
		return student.Student{}, err
	}
	if err = core.CheckOwner(s, ownerID, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return s, nil
}

// RecordPayment records a payment and increments the student's fees_paid by its amount.
func (l *Ledger) RecordPayment(ctx context.Context, ownerID string, np NewPayment) (Payment, Balance, error) {
	np.Clean()
	if err := l.validate.Struct(np); err != nil {
		return Payment{}, Balance{}, err
	}
	if _, err := l.getStudent(ctx, ownerID, np.StudentID); err != nil {
		return Payment{}, Balance{}, err
	}

	now := time.Now().UTC()
	p, bal, err := l.repo.CreatePayment(ctx, Payment{
		OwnerID:     ownerID,
		StudentID:   np.StudentID,
		Amount:      np.Amount,
		PaymentDate: np.PaymentDate,
		Notes:       np.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return Payment{}, Balance{}, err
		}
		return Payment{}, Balance{}, errors.Wrap(err, "recording payment")
	}
	return p, bal, nil
}

// OpeningNotes is the note of the payment recording a student's opening balance.
const OpeningNotes = "Opening balance"

// RecordOpeningBalance records amount as the first payment of a freshly created student
// and returns the student with its updated fees_paid. A zero amount records nothing.
func (l *Ledger) RecordOpeningBalance(ctx context.Context, ownerID string, s student.Student, amount decimal.Decimal) (student.Student, error) {
	if !amount.IsPositive() {
		return s, nil
	}
	_, bal, err := l.RecordPayment(ctx, ownerID, NewPayment{StudentID: s.ID, Amount: amount, Notes: OpeningNotes})
	if err != nil {
		return student.Student{}, err
	}
	s.TotalFees, s.FeesPaid = bal.TotalFees, bal.FeesPaid
	return s, nil
}

// ReversePayment deletes a payment and decrements the student's fees_paid by its amount.
func (l *Ledger) ReversePayment(ctx context.Context, ownerID, id string) (Balance, error) {
	if _, err := l.GetPayment(ctx, ownerID, id); err != nil {
		return Balance{}, err
	}
	_, bal, err := l.repo.DeletePayment(ctx, ownerID, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Balance{}, err
		}
		return Balance{}, errors.Wrap(err, "reversing payment")
	}
	return bal, nil
}

func (l *Ledger) GetPayment(ctx context.Context, ownerID, id string) (Payment, error) {
	p, err := l.repo.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if err = core.CheckOwner(p, ownerID, ErrNotFound); err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (l *Ledger) QueryPayments(ctx context.Context, ownerID string, filter QueryFilter) (PaymentList, error) {
	payments, err := l.repo.QueryPayments(ctx, ownerID, filter)
	if err != nil {
		return PaymentList{}, errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []Payment{}
	}
	return PaymentList{
		Count:          len(payments),
		TotalCollected: sumAmounts(payments),
		Payments:       payments,
	}, nil
}

func (l *Ledger) GetStudentStatus(ctx context.Context, ownerID, studentID string) (StudentStatus, error) {
	s, err := l.getStudent(ctx, ownerID, studentID)
	if err != nil {
		return StudentStatus{}, err
	}
	payments, err := l.repo.QueryPayments(ctx, ownerID, QueryFilter{StudentID: s.ID})
	if err != nil {
		return StudentStatus{}, errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []Payment{}
	}

	return StudentStatus{
		Student: refOf(s),
		FeeStatus: FeeStatus{
			TotalFees:         s.TotalFees,
			FeesPaid:          s.FeesPaid,
			FeesDue:           s.FeesDue(),
			PaymentPercentage: core.Percentage(s.FeesPaid, s.TotalFees),
		},
		PaymentHistory: payments,
	}, nil
}

func (l *Ledger) GetBatchOverview(ctx context.Context, ownerID, batchID string) (BatchOverview, error) {
	b, err := l.batches.GetBatch(ctx, batchID)
	if err != nil {
		return BatchOverview{}, err
	}
	if err = core.CheckOwner(b, ownerID, batch.ErrNotFound); err != nil {
		return BatchOverview{}, err
	}

	students, err := l.students.QueryStudents(ctx, ownerID, student.QueryFilter{BatchID: b.ID}, nil)
	if err != nil {
		return BatchOverview{}, errors.Wrap(err, "querying students")
	}

	summary := Summarize(students)
	return BatchOverview{
		Batch:      BatchRef{ID: b.ID, Name: b.Name},
		Overview:   summary.Totals,
		Defaulters: summary.Defaulters,
	}, nil
}

// GetOwnerAnalytics computes owner-wide fee totals.
// MonthlyCollection is null when month is empty, and 0 when month is malformed.
func (l *Ledger) GetOwnerAnalytics(ctx context.Context, ownerID, month string) (OwnerAnalytics, error) {
	students, err := l.students.QueryStudents(ctx, ownerID, student.QueryFilter{}, nil)
	if err != nil {
		return OwnerAnalytics{}, errors.Wrap(err, "querying students")
	}

	summary := Summarize(students)
	analytics := OwnerAnalytics{
		TotalStudents:        summary.TotalStudents,
		TotalExpected:        summary.TotalExpected,
		TotalCollected:       summary.TotalCollected,
		TotalDue:             summary.TotalDue,
		CollectionPercentage: summary.CollectionPercentage,
		StudentsWithDues:     summary.StudentsWithDues,
		FullyPaidStudents:    summary.FullyPaidStudents,
	}

	month = core.CleanString(month)
	if month == "" {
		return analytics, nil
	}
	analytics.Month = month
	analytics.MonthlyCollection = decimal.NullDecimal{Decimal: decimal.Zero, Valid: true}
	if m, ok := core.ParseMonth(month); ok {
		payments, err := l.repo.QueryPayments(ctx, ownerID, QueryFilter{Month: m})
		if err != nil {
			return OwnerAnalytics{}, errors.Wrap(err, "querying payments")
		}
		analytics.MonthlyCollection = decimal.NullDecimal{Decimal: sumAmounts(payments), Valid: true}
	}
	return analytics, nil
}

// Summary aggregates the fee positions of a set of students.
type Summary struct {
	Totals
	StudentsWithDues  int
	FullyPaidStudents int
	Defaulters        []Defaulter // largest dues first
}

func Summarize(students []student.Student) Summary {
	sum := Summary{Defaulters: []Defaulter{}}
	sum.TotalStudents = len(students)
	for _, s := range students {
		sum.TotalExpected = sum.TotalExpected.Add(s.TotalFees)
		sum.TotalCollected = sum.TotalCollected.Add(s.FeesPaid)
		if s.IsFullyPaid() {
			sum.FullyPaidStudents++
		}
		if s.IsDefaulter() {
			sum.StudentsWithDues++
			sum.Defaulters = append(sum.Defaulters, Defaulter{
				ID:        s.ID,
				Name:      s.Name,
				Roll:      s.Roll,
				BatchName: s.BatchName,
				TotalFees: s.TotalFees,
				FeesPaid:  s.FeesPaid,
				FeesDue:   s.FeesDue(),
			})
		}
	}
	sum.TotalDue = sum.TotalExpected.Sub(sum.TotalCollected)
	sum.CollectionPercentage = core.Percentage(sum.TotalCollected, sum.TotalExpected)

	sort.SliceStable(sum.Defaulters, func(i, j int) bool {
		di, dj := sum.Defaulters[i], sum.Defaulters[j]
		if !di.FeesDue.Equal(dj.FeesDue) {
			return di.FeesDue.GreaterThan(dj.FeesDue)
		}
		return di.Name < dj.Name
	})
	return sum
}

func sumAmounts(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
