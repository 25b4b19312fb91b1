package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/tests"
)

func Test_examApi_crud(t *testing.T) {
	app := setup(t)
	o := testutil.CreateOwner(t, app.repos.Owners, "+919811111111", "Ravi", true)
	other := testutil.CreateOwner(t, app.repos.Owners, "+919822222222", "Asha", true)
	token := getToken(t, o)
	b1 := testutil.CreateBatch(t, app.repos.Batches, o.ID, "Class 10")
	b2 := testutil.CreateBatch(t, app.repos.Batches, o.ID, "Class 11")
	othersBatch := testutil.CreateBatch(t, app.repos.Batches, other.ID, "Class 12")

	rec := app.do(http.MethodPost, "/api/tests", token, []byte(`{
		"batch": "`+b1.ID+`", "name": "Unit Test 1", "date": "2024-03-10", "total_marks": 100, "duration": 1.5
	}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := decode(t, rec)
	assert.Equal(t, "Test created successfully", data["message"])
	created := data["test"].(map[string]interface{})
	assert.Equal(t, "CBSE", created["board"])
	assert.Equal(t, "Class 10", created["batch_name"])
	assert.EqualValues(t, 1.5, created["duration"])
	assert.Empty(t, created["marks"])
	id := created["id"].(string)

	testutil.CreateTest(t, app.repos.Exams, o.ID, b2.ID, "Unit Test 2", 50, core.NewDate(2024, 4, 1))

	tests := []httpTest{
		{
			name:     "unknown board",
			method:   http.MethodPost,
			path:     "/api/tests",
			body:     []byte(`{"batch": "` + b1.ID + `", "name": "UT", "date": "2024-03-10", "board": "Oxford"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, failure("Validation failed", map[string]string{
				"board": "board must be one of: CBSE, Bihar Board, ICSE, State Board",
			})),
		},
		{
			name:     "other owner's batch",
			method:   http.MethodPost,
			path:     "/api/tests",
			body:     []byte(`{"batch": "` + othersBatch.ID + `", "name": "UT", "date": "2024-03-10"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, failure("Batch not found", map[string]string{"batch": "batch not found"})),
		},
		{
			name:     "other owner's test",
			method:   http.MethodGet,
			path:     "/api/tests/" + id,
			token:    getToken(t, other),
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, failure("Test not found")),
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("list", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/tests", token)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		assert.EqualValues(t, 2, data["count"])
		assert.Equal(t, "Unit Test 2", data["tests"].([]interface{})[0].(map[string]interface{})["name"])

		rec = app.do(http.MethodGet, "/api/tests?batch_id="+b1.ID, token)
		data = decode(t, rec)
		assert.EqualValues(t, 1, data["count"])
		assert.Equal(t, id, data["tests"].([]interface{})[0].(map[string]interface{})["id"])
	})

	t.Run("update", func(t *testing.T) {
		rec := app.do(http.MethodPatch, "/api/tests/"+id, token, []byte(`{"board": "ICSE", "batch": "`+b2.ID+`"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := decode(t, rec)
		assert.Equal(t, "Test updated successfully", data["message"])
		tst := data["test"].(map[string]interface{})
		assert.Equal(t, "ICSE", tst["board"])
		assert.Equal(t, "Class 11", tst["batch_name"])
		assert.Equal(t, "Unit Test 1", tst["name"])
		assert.EqualValues(t, 100, tst["total_marks"])
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(http.MethodDelete, "/api/tests/"+id, token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Test deleted successfully", decode(t, rec)["message"])

		rec = app.do(http.MethodGet, "/api/tests/"+id, token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_examApi_marks(t *testing.T) {
	app := setup(t)
	o := testutil.CreateOwner(t, app.repos.Owners, "+919811111111", "Ravi", true)
	other := testutil.CreateOwner(t, app.repos.Owners, "+919822222222", "Asha", true)
	token := getToken(t, o)
	b := testutil.CreateBatch(t, app.repos.Batches, o.ID, "Class 10")
	amit := testutil.CreateStudent(t, app.repos.Students, o.ID, b.ID, "Amit", "1", "1000")
	bina := testutil.CreateStudent(t, app.repos.Students, o.ID, b.ID, "Bina", "2", "1000")
	stranger := testutil.CreateStudent(t, app.repos.Students, other.ID, "", "Zoya", "1", "1000")
	tst := testutil.CreateTest(t, app.repos.Exams, o.ID, b.ID, "Unit Test 1", 100, core.NewDate(2024, 3, 10))
	path := "/api/tests/" + tst.ID + "/marks"

	rec := app.do(http.MethodPost, path+"/bulk", token, []byte(`{"marks": [
		{"student": "`+amit.ID+`", "marks_obtained": 80},
		{"student": "`+bina.ID+`", "marks_obtained": "25.5"},
		{"student": "`+stranger.ID+`", "marks_obtained": 50}
	]}`))
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())
	data := decode(t, rec)
	assert.Equal(t, false, data["success"])
	assert.Equal(t, "2 marks recorded successfully", data["message"])
	assert.Len(t, data["marks"], 2)
	assert.Equal(t, []interface{}{"Student " + stranger.ID + " not found"}, data["errors"])

	t.Run("statistics", func(t *testing.T) {
		rec := app.do(http.MethodGet, path, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := decode(t, rec)
		stats := data["statistics"].(map[string]interface{})
		assert.EqualValues(t, 2, stats["total_students"])
		assert.EqualValues(t, 52.75, stats["average_marks"])
		assert.EqualValues(t, 80, stats["highest_marks"])
		assert.EqualValues(t, 25.5, stats["lowest_marks"])
		assert.EqualValues(t, 50, stats["pass_percentage"])

		marks := data["marks"].([]interface{})
		require.Len(t, marks, 2)
		assert.Equal(t, "Amit", marks[0].(map[string]interface{})["student_name"])
		assert.EqualValues(t, 80, marks[0].(map[string]interface{})["percentage"])
	})

	t.Run("upload overwrites", func(t *testing.T) {
		rec := app.do(http.MethodPost, path+"/bulk", token, []byte(`{"marks": [
			{"student": "`+bina.ID+`", "marks_obtained": 40}
		]}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := decode(t, rec)
		assert.Equal(t, true, data["success"])

		rec = app.do(http.MethodGet, path, token)
		stats := decode(t, rec)["statistics"].(map[string]interface{})
		assert.EqualValues(t, 2, stats["total_students"])
		assert.EqualValues(t, 100, stats["pass_percentage"])
	})

	t.Run("entry errors", func(t *testing.T) {
		rec := app.do(http.MethodPost, path+"/bulk", token, []byte(`{"marks": [
			{"student": "`+amit.ID+`", "marks_obtained": 120},
			{"student": "`+bina.ID+`", "marks_obtained": -1}
		]}`))
		require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())
		data := decode(t, rec)
		assert.Equal(t, "0 marks recorded successfully", data["message"])
		assert.Equal(t, []interface{}{
			"Error for student " + amit.ID + ": marks cannot exceed the test total of 100",
			"Error for student " + bina.ID + ": marks cannot be negative",
		}, data["errors"])
	})

	t.Run("malformed entry", func(t *testing.T) {
		rec := app.do(http.MethodPost, path+"/bulk", token, []byte(`{"marks": [
			{"student": "`+amit.ID+`", "marks_obtained": 80},
			{"student": "`+bina.ID+`", "marks_obtained": "eighty"},
			{"student": "`+bina.ID+`"}
		]}`))
		require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())
		data := decode(t, rec)
		assert.Equal(t, "1 marks recorded successfully", data["message"])
		assert.Len(t, data["marks"], 1)
		assert.Equal(t, []interface{}{
			"Error for student " + bina.ID + ": marks_obtained must be a number",
			"Error for student " + bina.ID + ": marks_obtained is required",
		}, data["errors"])

		// bina keeps the 40 from the previous upload
		rec = app.do(http.MethodGet, path, token)
		stats := decode(t, rec)["statistics"].(map[string]interface{})
		assert.EqualValues(t, 2, stats["total_students"])
		assert.EqualValues(t, 40, stats["lowest_marks"])
	})

	t.Run("no marks", func(t *testing.T) {
		rec := app.do(http.MethodPost, path+"/bulk", token, []byte(`{"marks": []}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No marks data provided", decode(t, rec)["message"])
	})

	t.Run("other owner's test", func(t *testing.T) {
		rec := app.do(http.MethodGet, path, getToken(t, other))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = app.do(http.MethodPost, path+"/bulk", getToken(t, other), []byte(`{"marks": [{"student": "`+stranger.ID+`", "marks_obtained": 1}]}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("student report", func(t *testing.T) {
		zero := testutil.CreateTest(t, app.repos.Exams, o.ID, b.ID, "Oral", 0, core.NewDate(2024, 4, 1))
		rec := app.do(http.MethodPost, "/api/tests/"+zero.ID+"/marks/bulk", token, []byte(`{"marks": [
			{"student": "`+amit.ID+`", "marks_obtained": 5}
		]}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.EqualValues(t, 0, decode(t, rec)["marks"].([]interface{})[0].(map[string]interface{})["percentage"])

		rec = app.do(http.MethodGet, "/api/tests/student/"+amit.ID+"/report", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := decode(t, rec)
		summary := data["summary"].(map[string]interface{})
		assert.EqualValues(t, 2, summary["total_tests"])
		assert.EqualValues(t, 40, summary["average_percentage"])
		rows := data["tests"].([]interface{})
		require.Len(t, rows, 2)
		assert.Equal(t, "Oral", rows[0].(map[string]interface{})["test_name"])
		assert.Equal(t, "2024-03-10", rows[1].(map[string]interface{})["test_date"])
	})

	t.Run("statistics without marks", func(t *testing.T) {
		empty := testutil.CreateTest(t, app.repos.Exams, o.ID, b.ID, "Empty", 100, core.NewDate(2024, 5, 1))
		rec := app.do(http.MethodGet, "/api/tests/"+empty.ID+"/marks", token)
		require.Equal(t, http.StatusOK, rec.Code)
		stats := decode(t, rec)["statistics"].(map[string]interface{})
		for _, k := range []string{"total_students", "average_marks", "highest_marks", "lowest_marks", "pass_percentage"} {
			assert.EqualValues(t, 0, stats[k], k)
		}
	})
}
