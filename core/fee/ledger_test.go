package fee_test

import (
	"context"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/fee"
	"github.com/nae-imUam/coaching-app-api/core/student"
	"github.com/nae-imUam/coaching-app-api/storage/database/dummy"
	"github.com/nae-imUam/coaching-app-api/tests"
)

func newLedger(t *testing.T) (*fee.Ledger, dummydb.Repositories) {
	repos := testutil.OpenRepos(t)
	validate, _ := testutil.NewValidator()
	return fee.NewLedger(repos.Payments, repos.Students, repos.Batches, validate), repos
}

func TestLedger_RecordPayment(t *testing.T) {
	ledger, repos := newLedger(t)
	ctx := context.Background()
	o := testutil.CreateOwner(t, repos.Owners, "+919811111111", "Ravi", true)
	other := testutil.CreateOwner(t, repos.Owners, "+919822222222", "Asha", true)
	s := testutil.CreateStudent(t, repos.Students, o.ID, "", "Amit", "1", "12000")

	p, bal, err := ledger.RecordPayment(ctx, o.ID, fee.NewPayment{
		StudentID:   s.ID,
		Amount:      testutil.Dec("4000"),
		PaymentDate: core.NewDate(2024, 1, 15),
		Notes:       "  cash ",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Amit", p.StudentName)
	assert.Equal(t, "cash", p.Notes)
	assert.True(t, bal.FeesPaid.Equal(testutil.Dec("4000")))
	assert.True(t, bal.FeesDue().Equal(testutil.Dec("8000")))

	t.Run("date defaults to today", func(t *testing.T) {
		p, _, err := ledger.RecordPayment(ctx, o.ID, fee.NewPayment{StudentID: s.ID, Amount: testutil.Dec("1")})
		require.NoError(t, err)
		assert.True(t, p.PaymentDate.Equal(core.Today()))
	})

	t.Run("amount must be positive", func(t *testing.T) {
		for _, amount := range []string{"0", "-5"} {
			_, _, err := ledger.RecordPayment(ctx, o.ID, fee.NewPayment{StudentID: s.ID, Amount: testutil.Dec(amount)})
			assert.IsType(t, validator.ValidationErrors{}, err, amount)
		}
	})

	t.Run("foreign student", func(t *testing.T) {
		_, _, err := ledger.RecordPayment(ctx, other.ID, fee.NewPayment{StudentID: s.ID, Amount: testutil.Dec("10")})
		assert.Equal(t, student.ErrNotFound, errors.Cause(err))
	})

	refreshed, err := repos.Students.GetStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.FeesPaid.Equal(testutil.Dec("4001")), refreshed.FeesPaid.String())
}

func TestLedger_ReversePayment(t *testing.T) {
	ledger, repos := newLedger(t)
	ctx := context.Background()
	o := testutil.CreateOwner(t, repos.Owners, "+919811111111", "Ravi", true)
	other := testutil.CreateOwner(t, repos.Owners, "+919822222222", "Asha", true)
	s := testutil.CreateStudent(t, repos.Students, o.ID, "", "Amit", "1", "1000")

	p, bal, err := ledger.RecordPayment(ctx, o.ID, fee.NewPayment{StudentID: s.ID, Amount: testutil.Dec("1500")})
	require.NoError(t, err)

	t.Run("overpaid", func(t *testing.T) {
		assert.True(t, bal.FeesDue().Equal(testutil.Dec("-500")))

		status, err := ledger.GetStudentStatus(ctx, o.ID, s.ID)
		require.NoError(t, err)
		assert.True(t, status.FeeStatus.FeesDue.Equal(testutil.Dec("-500")))
		assert.True(t, status.FeeStatus.PaymentPercentage.Equal(testutil.Dec("150")))

		overpaid, err := repos.Students.GetStudent(ctx, s.ID)
		require.NoError(t, err)
		sum := fee.Summarize([]student.Student{overpaid})
		assert.Empty(t, sum.Defaulters)
		assert.Zero(t, sum.StudentsWithDues)
		assert.Equal(t, 1, sum.FullyPaidStudents)
		assert.True(t, sum.TotalDue.Equal(testutil.Dec("-500")))
	})

	_, err = ledger.ReversePayment(ctx, other.ID, p.ID)
	assert.Equal(t, fee.ErrNotFound, err)

	bal, err = ledger.ReversePayment(ctx, o.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, bal.FeesPaid.IsZero())
	assert.True(t, bal.FeesDue().Equal(testutil.Dec("1000")))

	_, err = ledger.ReversePayment(ctx, o.ID, p.ID)
	assert.Equal(t, fee.ErrNotFound, err)
}

// fees_paid must always equal the sum of the student's payments.
func TestLedger_feesPaidMatchesPayments(t *testing.T) {
	ledger, repos := newLedger(t)
	ctx := context.Background()
	o := testutil.CreateOwner(t, repos.Owners, "+919811111111", "Ravi", true)
	s := testutil.CreateStudent(t, repos.Students, o.ID, "", "Amit", "1", "1000")

	var ids []string
	for _, amount := range []string{"100", "250.50", "75", "600"} {
		p, _, err := ledger.RecordPayment(ctx, o.ID, fee.NewPayment{StudentID: s.ID, Amount: testutil.Dec(amount)})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	for _, id := range []string{ids[1], ids[3]} {
		_, err := ledger.ReversePayment(ctx, o.ID, id)
		require.NoError(t, err)
	}

	status, err := ledger.GetStudentStatus(ctx, o.ID, s.ID)
	require.NoError(t, err)
	list, err := ledger.QueryPayments(ctx, o.ID, fee.QueryFilter{StudentID: s.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)
	assert.True(t, list.TotalCollected.Equal(status.FeeStatus.FeesPaid))
	assert.True(t, status.FeeStatus.FeesPaid.Equal(testutil.Dec("175")))
	assert.True(t, status.FeeStatus.FeesDue.Equal(testutil.Dec("825")))
	assert.True(t, status.FeeStatus.PaymentPercentage.Equal(testutil.Dec("17.5")))
	assert.Len(t, status.PaymentHistory, 2)
}

func TestLedger_concurrentPayments(t *testing.T) {
	ledger, repos := newLedger(t)
	ctx := context.Background()
	o := testutil.CreateOwner(t, repos.Owners, "+919811111111", "Ravi", true)
	s := testutil.CreateStudent(t, repos.Students, o.ID, "", "Amit", "1", "1000")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := ledger.RecordPayment(ctx, o.ID, fee.NewPayment{StudentID: s.ID, Amount: testutil.Dec("10")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	refreshed, err := repos.Students.GetStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.FeesPaid.Equal(testutil.Dec("500")), refreshed.FeesPaid.String())
}

func TestLedger_RecordOpeningBalance(t *testing.T) {
	ledger, repos := newLedger(t)
	ctx := context.Background()
	o := testutil.CreateOwner(t, repos.Owners, "+919811111111", "Ravi", true)
	s := testutil.CreateStudent(t, repos.Students, o.ID, "", "Amit", "1", "1000")

	same, err := ledger.RecordOpeningBalance(ctx, o.ID, s, testutil.Dec("0"))
	require.NoError(t, err)
	assert.True(t, same.FeesPaid.IsZero())
	list, err := ledger.QueryPayments(ctx, o.ID, fee.QueryFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.Count)

	updated, err := ledger.RecordOpeningBalance(ctx, o.ID, s, testutil.Dec("300"))
	require.NoError(t, err)
	assert.True(t, updated.FeesPaid.Equal(testutil.Dec("300")))
	list, err = ledger.QueryPayments(ctx, o.ID, fee.QueryFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, fee.OpeningNotes, list.Payments[0].Notes)
}

func TestLedger_reports(t *testing.T) {
	ledger, repos := newLedger(t)
	ctx := context.Background()
	o := testutil.CreateOwner(t, repos.Owners, "+919811111111", "Ravi", true)
	other := testutil.CreateOwner(t, repos.Owners, "+919822222222", "Asha", true)
	b := testutil.CreateBatch(t, repos.Batches, o.ID, "Class 10")
	amit := testutil.CreateStudent(t, repos.Students, o.ID, b.ID, "Amit", "1", "5000")
	bina := testutil.CreateStudent(t, repos.Students, o.ID, b.ID, "Bina", "2", "5000")
	chetan := testutil.CreateStudent(t, repos.Students, o.ID, b.ID, "Chetan", "3", "1000")

	for _, p := range []struct {
		id, amount string
		date       core.Date
	}{
		{amit.ID, "2000", core.NewDate(2024, 1, 5)},
		{bina.ID, "2000", core.NewDate(2024, 2, 5)},
		{chetan.ID, "1500", core.NewDate(2024, 2, 10)},
	} {
		_, _, err := ledger.RecordPayment(ctx, o.ID, fee.NewPayment{StudentID: p.id, Amount: testutil.Dec(p.amount), PaymentDate: p.date})
		require.NoError(t, err)
	}

	t.Run("batch overview", func(t *testing.T) {
		ov, err := ledger.GetBatchOverview(ctx, o.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "Class 10", ov.Batch.Name)
		assert.Equal(t, 3, ov.Overview.TotalStudents)
		assert.True(t, ov.Overview.TotalExpected.Equal(testutil.Dec("11000")))
		assert.True(t, ov.Overview.TotalCollected.Equal(testutil.Dec("5500")))
		assert.True(t, ov.Overview.CollectionPercentage.Equal(testutil.Dec("50")))

		// equal dues are ordered by name; the overpaid student is no defaulter
		require.Len(t, ov.Defaulters, 2)
		assert.Equal(t, "Amit", ov.Defaulters[0].Name)
		assert.Equal(t, "Bina", ov.Defaulters[1].Name)

		_, err = ledger.GetBatchOverview(ctx, other.ID, b.ID)
		assert.Error(t, err)
	})

	t.Run("owner analytics", func(t *testing.T) {
		a, err := ledger.GetOwnerAnalytics(ctx, o.ID, "")
		require.NoError(t, err)
		assert.Equal(t, 2, a.StudentsWithDues)
		assert.Equal(t, 1, a.FullyPaidStudents)
		assert.False(t, a.MonthlyCollection.Valid)

		a, err = ledger.GetOwnerAnalytics(ctx, o.ID, "2024-02")
		require.NoError(t, err)
		assert.True(t, a.MonthlyCollection.Valid)
		assert.True(t, a.MonthlyCollection.Decimal.Equal(testutil.Dec("3500")))

		a, err = ledger.GetOwnerAnalytics(ctx, o.ID, "2024-xx")
		require.NoError(t, err)
		assert.True(t, a.MonthlyCollection.Valid)
		assert.True(t, a.MonthlyCollection.Decimal.IsZero())

		a, err = ledger.GetOwnerAnalytics(ctx, other.ID, "")
		require.NoError(t, err)
		assert.Zero(t, a.TotalStudents)
		assert.True(t, a.CollectionPercentage.IsZero())
	})
}
