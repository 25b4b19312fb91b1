package student_test

import (
	"context"
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

func newService(t *testing.T) (*student.Service, dummydb.Repositories) {
	repos := testutil.OpenRepos(t)
	validate, _ := testutil.NewValidator()
	return student.NewService(repos.Students, repos.Batches, validate), repos
}

func names(students []student.Student) []string {
	var res []string
	for _, s := range students {
		res = append(res, s.Name)
	}
	return res
}

func TestService_Create(t *testing.T) {
	svc, repos := newService(t)
	ctx := context.Background()
	o := testutil.CreateOwner(t, repos.Owners, "+919811111111", "Ravi", true)
	other := testutil.CreateOwner(t, repos.Owners, "+919822222222", "Asha", true)
	b := testutil.CreateBatch(t, repos.Batches, o.ID, "Class 10")
	othersBatch := testutil.CreateBatch(t, repos.Batches, other.ID, "Class 12")

	s, err := svc.Create(ctx, o.ID, student.NewStudent{
		BatchID:   b.ID,
		Name:      " Amit ",
		Phone:     "98000 00001",
		Roll:      "10A",
		TotalFees: testutil.Dec("12000"),
		FeesPaid:  testutil.Dec("5000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Amit", s.Name)
	assert.Equal(t, "+919800000001", s.Phone)
	assert.Equal(t, "Class 10", s.BatchName.String)
	// the opening balance is left to the ledger
	assert.True(t, s.FeesPaid.IsZero())
	assert.True(t, s.FeesDue().Equal(testutil.Dec("12000")))

	t.Run("duplicate roll", func(t *testing.T) {
		_, err := svc.Create(ctx, o.ID, student.NewStudent{Name: "Bina", Phone: "9800000002", Roll: "10A"})
		assert.Equal(t, student.ErrRollExists, errors.Cause(err))

		// rolls are unique per owner only
		_, err = svc.Create(ctx, other.ID, student.NewStudent{Name: "Zoya", Phone: "9800000003", Roll: "10A"})
		assert.NoError(t, err)
	})

	t.Run("foreign batch", func(t *testing.T) {
		_, err := svc.Create(ctx, o.ID, student.NewStudent{BatchID: othersBatch.ID, Name: "Bina", Phone: "9800000002"})
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, []core.FieldError{{Field: "batch", Error: "batch not found"}}, verr.Fields)
	})

	t.Run("invalid fields", func(t *testing.T) {
		for name, ns := range map[string]student.NewStudent{
			"no name":        {Phone: "9800000002"},
			"bad phone":      {Name: "Bina", Phone: "12"},
			"negative fees":  {Name: "Bina", Phone: "9800000002", TotalFees: testutil.Dec("-1")},
			"too many cents": {Name: "Bina", Phone: "9800000002", TotalFees: testutil.Dec("1.001")},
		} {
			_, err := svc.Create(ctx, o.ID, ns)
			assert.IsType(t, validator.ValidationErrors{}, err, name)
		}
	})
}

func TestService_Query(t *testing.T) {
	svc, repos := newService(t)
	ctx := context.Background()
	o := testutil.CreateOwner(t, repos.Owners, "+919811111111", "Ravi", true)
	other := testutil.CreateOwner(t, repos.Owners, "+919822222222", "Asha", true)
	b := testutil.CreateBatch(t, repos.Batches, o.ID, "Class 10")
	testutil.CreateStudent(t, repos.Students, o.ID, b.ID, "Chetan", "3", "3000")
	testutil.CreateStudent(t, repos.Students, o.ID, "", "Amit", "1", "5000")
	testutil.CreateStudent(t, repos.Students, o.ID, b.ID, "Bina", "2", "1000")
	testutil.CreateStudent(t, repos.Students, other.ID, "", "Zoya", "1", "1000")

	tests := []struct {
		name     string
		filter   student.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "by name", want: []string{"Amit", "Bina", "Chetan"}},
		{name: "batch", filter: student.QueryFilter{BatchID: b.ID}, want: []string{"Bina", "Chetan"}},
		{name: "search", filter: student.QueryFilter{Search: " chet "}, want: []string{"Chetan"}},
		{name: "search roll", filter: student.QueryFilter{Search: "2"}, want: []string{"Bina"}},
		{name: "fees desc", ordering: []core.DBOrdering{{Field: "total_fees"}}, want: []string{"Amit", "Chetan", "Bina"}},
		{name: "unknown ordering", ordering: []core.DBOrdering{{Field: "password"}}, want: []string{"Amit", "Bina", "Chetan"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			students, err := svc.Query(ctx, o.ID, tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(students))
		})
	}
}

func TestService_Update(t *testing.T) {
	svc, repos := newService(t)
	ctx := context.Background()
	validate, _ := testutil.NewValidator()
	ledger := fee.NewLedger(repos.Payments, repos.Students, repos.Batches, validate)

	o := testutil.CreateOwner(t, repos.Owners, "+919811111111", "Ravi", true)
	other := testutil.CreateOwner(t, repos.Owners, "+919822222222", "Asha", true)
	b := testutil.CreateBatch(t, repos.Batches, o.ID, "Class 10")
	s := testutil.CreateStudent(t, repos.Students, o.ID, b.ID, "Amit", "1", "5000")
	testutil.CreateStudent(t, repos.Students, o.ID, b.ID, "Bina", "2", "5000")
	_, _, err := ledger.RecordPayment(ctx, o.ID, fee.NewPayment{StudentID: s.ID, Amount: testutil.Dec("2000")})
	require.NoError(t, err)

	name, fees, none := "Amit Kumar", testutil.Dec("6000"), ""
	updated, err := svc.Update(ctx, o.ID, s.ID, student.UpdateStudent{Name: &name, TotalFees: &fees, BatchID: &none})
	require.NoError(t, err)
	assert.Equal(t, "Amit Kumar", updated.Name)
	assert.False(t, updated.BatchID.Valid)
	assert.Equal(t, "1", updated.Roll)
	// fees_paid is untouched by profile updates
	assert.True(t, updated.FeesPaid.Equal(testutil.Dec("2000")))
	assert.True(t, updated.FeesDue().Equal(testutil.Dec("4000")))

	roll := "2"
	_, err = svc.Update(ctx, o.ID, s.ID, student.UpdateStudent{Roll: &roll})
	assert.Equal(t, student.ErrRollExists, errors.Cause(err))

	blank := "  "
	_, err = svc.Update(ctx, o.ID, s.ID, student.UpdateStudent{Name: &blank})
	assert.IsType(t, validator.ValidationErrors{}, err)

	_, err = svc.Update(ctx, other.ID, s.ID, student.UpdateStudent{Name: &name})
	assert.Equal(t, student.ErrNotFound, err)
}

func TestService_Delete(t *testing.T) {
	svc, repos := newService(t)
	ctx := context.Background()
	validate, _ := testutil.NewValidator()
	ledger := fee.NewLedger(repos.Payments, repos.Students, repos.Batches, validate)

	o := testutil.CreateOwner(t, repos.Owners, "+919811111111", "Ravi", true)
	other := testutil.CreateOwner(t, repos.Owners, "+919822222222", "Asha", true)
	s := testutil.CreateStudent(t, repos.Students, o.ID, "", "Amit", "1", "5000")
	_, _, err := ledger.RecordPayment(ctx, o.ID, fee.NewPayment{StudentID: s.ID, Amount: testutil.Dec("2000")})
	require.NoError(t, err)

	assert.Equal(t, student.ErrNotFound, svc.Delete(ctx, other.ID, s.ID))
	require.NoError(t, svc.Delete(ctx, o.ID, s.ID))

	_, err = svc.Get(ctx, o.ID, s.ID)
	assert.Equal(t, student.ErrNotFound, err)
	list, err := ledger.QueryPayments(ctx, o.ID, fee.QueryFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.Count)
}
