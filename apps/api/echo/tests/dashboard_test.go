package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/tests"
)

func Test_dashboardApi(t *testing.T) {
	app := setup(t)
	o := testutil.CreateOwner(t, app.repos.Owners, "+919811111111", "Ravi", true)
	other := testutil.CreateOwner(t, app.repos.Owners, "+919822222222", "Asha", true)
	token := getToken(t, o)
	today := core.Today()

	b := testutil.CreateBatch(t, app.repos.Batches, o.ID, "Class 10")
	amit := testutil.CreateStudent(t, app.repos.Students, o.ID, b.ID, "Amit", "1", "10000")
	bina := testutil.CreateStudent(t, app.repos.Students, o.ID, b.ID, "Bina", "2", "4000")
	testutil.CreateStudent(t, app.repos.Students, o.ID, "", "Chetan", "3", "0")
	testutil.CreateStudent(t, app.repos.Students, other.ID, "", "Zoya", "1", "99999")

	for _, p := range []struct{ student, amount string }{{amit.ID, "2000"}, {bina.ID, "4000"}} {
		rec := app.do(http.MethodPost, "/api/fees", token, paymentBody(p.student, p.amount, today.String()))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec := app.do(http.MethodPost, "/api/attendance", token, sheetBody(t, b.ID, today.String(),
		recordReq{amit.ID, "present"}, recordReq{bina.ID, "absent"},
	))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	tst := testutil.CreateTest(t, app.repos.Exams, o.ID, b.ID, "Unit Test 1", 50, today)
	rec = app.do(http.MethodPost, "/api/tests/"+tst.ID+"/marks/bulk", token, []byte(`{"marks": [
		{"student": "`+amit.ID+`", "marks_obtained": 40},
		{"student": "`+bina.ID+`", "marks_obtained": 20}
	]}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("overview", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/dashboard/overview", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := decode(t, rec)

		ov := data["overview"].(map[string]interface{})
		assert.EqualValues(t, 3, ov["total_students"])
		assert.EqualValues(t, 1, ov["total_batches"])
		assert.EqualValues(t, 1, ov["total_tests"])
		assert.EqualValues(t, 14000, ov["total_expected_fees"])
		assert.EqualValues(t, 6000, ov["total_collected_fees"])
		assert.EqualValues(t, 8000, ov["pending_fees"])
		assert.EqualValues(t, 1, ov["present_today"])
		assert.EqualValues(t, 42.86, ov["fee_collection_percentage"])

		defaulters := data["defaulters"].([]interface{})
		require.Len(t, defaulters, 1)
		d := defaulters[0].(map[string]interface{})
		assert.Equal(t, "Amit", d["name"])
		assert.Equal(t, "Class 10", d["batch"])
		assert.EqualValues(t, 8000, d["due_amount"])

		activities := data["recent_activities"].([]interface{})
		require.Len(t, activities, 2)
		for _, a := range activities {
			assert.Equal(t, "fee_payment", a.(map[string]interface{})["type"])
			assert.Equal(t, today.String(), a.(map[string]interface{})["date"])
		}
	})

	t.Run("analytics", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/dashboard/analytics?period=week", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := decode(t, rec)
		assert.Equal(t, "week", data["period"])
		assert.Equal(t, today.AddDays(-7).String(), data["since"])

		a := data["analytics"].(map[string]interface{})
		fc := a["fee_collection"].(map[string]interface{})
		assert.EqualValues(t, 6000, fc["total_collected"])
		assert.EqualValues(t, 2, fc["payment_count"])

		att := a["attendance"].(map[string]interface{})
		assert.EqualValues(t, 2, att["total_records"])
		assert.EqualValues(t, 1, att["total_present"])
		assert.EqualValues(t, 50, att["attendance_percentage"])

		perf := a["test_performance"].(map[string]interface{})
		assert.EqualValues(t, 1, perf["total_tests"])
		assert.EqualValues(t, 60, perf["average_percentage"])

		stats := a["batch_statistics"].([]interface{})
		require.Len(t, stats, 1)
		st := stats[0].(map[string]interface{})
		assert.EqualValues(t, 2, st["student_count"])
		assert.EqualValues(t, 42.86, st["collection_percentage"])
	})

	t.Run("unknown period falls back to a month", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/dashboard/analytics?period=decade", token)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		assert.Equal(t, "month", data["period"])
		assert.Equal(t, today.AddDays(-30).String(), data["since"])
	})

	t.Run("empty owner", func(t *testing.T) {
		fresh := testutil.CreateOwner(t, app.repos.Owners, "+919833333333", "Dev", true)
		rec := app.do(http.MethodGet, "/api/dashboard/overview", getToken(t, fresh))
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		ov := data["overview"].(map[string]interface{})
		assert.EqualValues(t, 0, ov["total_students"])
		assert.EqualValues(t, 0, ov["fee_collection_percentage"])
		assert.Empty(t, data["defaulters"])
		assert.Empty(t, data["recent_activities"])
	})

	t.Run("requires auth", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/dashboard/overview", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
