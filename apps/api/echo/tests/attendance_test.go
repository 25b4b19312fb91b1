package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nae-imUam/coaching-app-api/core/student"
	"github.com/nae-imUam/coaching-app-api/tests"
)

type recordReq struct {
	Student string `json:"student"`
	Status  string `json:"status,omitempty"`
}

func sheetBody(t *testing.T, batchID, date string, records ...recordReq) []byte {
	return marshallObj(t, map[string]interface{}{"batch": batchID, "date": date, "records": records})
}

func Test_attendanceApi_upsert(t *testing.T) {
	app := setup(t)
	o := testutil.CreateOwner(t, app.repos.Owners, "+919811111111", "Ravi", true)
	token := getToken(t, o)
	b := testutil.CreateBatch(t, app.repos.Batches, o.ID, "Class 10")

	var students []student.Student
	for i, name := range []string{"Amit", "Bina", "Chetan", "Dev", "Esha"} {
		students = append(students, testutil.CreateStudent(t, app.repos.Students, o.ID, b.ID, name, string(rune('1'+i)), "1000"))
	}

	records := []recordReq{
		{students[0].ID, "present"},
		{students[1].ID, "Present"},
		{students[2].ID, "absent"},
		{students[3].ID, "present"},
		{students[4].ID, ""}, // defaults to absent
	}
	rec := app.do(http.MethodPost, "/api/attendance", token, sheetBody(t, b.ID, "2024-03-01", records...))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := decode(t, rec)
	assert.Equal(t, "Attendance saved successfully", data["message"])
	sheet := data["attendance"].(map[string]interface{})
	assert.Equal(t, "Class 10", sheet["batch_name"])
	assert.Equal(t, "2024-03-01", sheet["date"])
	assert.EqualValues(t, 3, sheet["present_count"])
	assert.EqualValues(t, 2, sheet["absent_count"])
	assert.Len(t, sheet["records"], 5)
	id := sheet["id"].(string)

	// resubmitting the same batch & date replaces the records
	rec = app.do(http.MethodPost, "/api/attendance", token, sheetBody(t, b.ID, "2024-03-01", records[:4]...))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sheet = decode(t, rec)["attendance"].(map[string]interface{})
	assert.Equal(t, id, sheet["id"])
	assert.Len(t, sheet["records"], 4)
	assert.EqualValues(t, 3, sheet["present_count"])
	assert.EqualValues(t, 1, sheet["absent_count"])

	rec = app.do(http.MethodGet, "/api/attendance?batch_id="+b.ID, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	t.Run("invalid records", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/attendance", token, sheetBody(t, b.ID, "2024-03-02",
			recordReq{students[0].ID, "present"},
			recordReq{students[0].ID, "absent"},
			recordReq{"nope", "absent"},
		))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		data := decode(t, rec)
		assert.Equal(t, "Invalid attendance records", data["message"])
		assert.Equal(t, map[string]interface{}{
			"records[1].student": "duplicate student",
			"records[2].student": "student not found",
		}, data["errors"])

		// nothing was saved
		rec = app.do(http.MethodGet, "/api/attendance?date=2024-03-02", token)
		assert.EqualValues(t, 0, decode(t, rec)["count"])
	})

	t.Run("invalid status", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/attendance", token, sheetBody(t, b.ID, "2024-03-02",
			recordReq{students[0].ID, "late"},
		))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["errors"], "records[0].status")
	})

	t.Run("missing batch & date", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/attendance", token, []byte(`{"records": []}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		errs := decode(t, rec)["errors"].(map[string]interface{})
		assert.Contains(t, errs, "batch")
		assert.Contains(t, errs, "date")
	})
}

func Test_attendanceApi_crud(t *testing.T) {
	app := setup(t)
	o := testutil.CreateOwner(t, app.repos.Owners, "+919811111111", "Ravi", true)
	other := testutil.CreateOwner(t, app.repos.Owners, "+919822222222", "Asha", true)
	token := getToken(t, o)
	b := testutil.CreateBatch(t, app.repos.Batches, o.ID, "Class 10")
	amit := testutil.CreateStudent(t, app.repos.Students, o.ID, b.ID, "Amit", "1", "1000")
	bina := testutil.CreateStudent(t, app.repos.Students, o.ID, b.ID, "Bina", "2", "1000")

	ids := make(map[string]string)
	for date, status := range map[string]string{"2024-03-01": "present", "2024-03-02": "absent", "2024-04-01": "present"} {
		rec := app.do(http.MethodPost, "/api/attendance", token, sheetBody(t, b.ID, date,
			recordReq{amit.ID, status}, recordReq{bina.ID, "present"},
		))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		ids[date] = decode(t, rec)["attendance"].(map[string]interface{})["id"].(string)
	}

	t.Run("filters", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/attendance?month=2024-03", token)
		assert.EqualValues(t, 2, decode(t, rec)["count"])

		rec = app.do(http.MethodGet, "/api/attendance?date=2024-04-01", token)
		assert.EqualValues(t, 1, decode(t, rec)["count"])

		// malformed filters are ignored
		rec = app.do(http.MethodGet, "/api/attendance?month=march&date=yesterday", token)
		data := decode(t, rec)
		assert.EqualValues(t, 3, data["count"])
		first := data["attendances"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, "2024-04-01", first["date"])
	})

	t.Run("student report", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/attendance/student/"+amit.ID+"/report", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := decode(t, rec)
		assert.NotContains(t, data, "month")
		report := data["report"].(map[string]interface{})
		assert.EqualValues(t, 3, report["total_days"])
		assert.EqualValues(t, 2, report["present_days"])
		assert.EqualValues(t, 1, report["absent_days"])
		assert.EqualValues(t, 66.67, report["attendance_percentage"])

		rec = app.do(http.MethodGet, "/api/attendance/student/"+amit.ID+"/report?month=2024-03", token)
		data = decode(t, rec)
		assert.Equal(t, "2024-03", data["month"])
		report = data["report"].(map[string]interface{})
		assert.EqualValues(t, 2, report["total_days"])
		assert.EqualValues(t, 50, report["attendance_percentage"])
	})

	t.Run("report without records", func(t *testing.T) {
		s := testutil.CreateStudent(t, app.repos.Students, o.ID, "", "Chetan", "3", "1000")
		rec := app.do(http.MethodGet, "/api/attendance/student/"+s.ID+"/report", token)
		require.Equal(t, http.StatusOK, rec.Code)
		report := decode(t, rec)["report"].(map[string]interface{})
		assert.EqualValues(t, 0, report["total_days"])
		assert.EqualValues(t, 0, report["attendance_percentage"])
	})

	t.Run("update", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{"records": []recordReq{{amit.ID, "absent"}}})
		rec := app.do(http.MethodPatch, "/api/attendance/"+ids["2024-04-01"], token, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := decode(t, rec)
		assert.Equal(t, "Attendance updated successfully", data["message"])
		sheet := data["attendance"].(map[string]interface{})
		assert.Equal(t, "2024-04-01", sheet["date"])
		assert.EqualValues(t, 0, sheet["present_count"])
		assert.EqualValues(t, 1, sheet["absent_count"])

		// moving onto an existing batch & date collides
		rec = app.do(http.MethodPatch, "/api/attendance/"+ids["2024-04-01"], token, []byte(`{"date": "2024-03-01"}`))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("other owner", func(t *testing.T) {
		otherToken := getToken(t, other)
		rec := app.do(http.MethodGet, "/api/attendance/"+ids["2024-03-01"], otherToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Attendance not found", decode(t, rec)["message"])

		rec = app.do(http.MethodGet, "/api/attendance", otherToken)
		assert.EqualValues(t, 0, decode(t, rec)["count"])

		rec = app.do(http.MethodGet, "/api/attendance/student/"+amit.ID+"/report", otherToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = app.do(http.MethodPost, "/api/attendance", otherToken, sheetBody(t, b.ID, "2024-05-01"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["errors"], "batch")
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(http.MethodDelete, "/api/attendance/"+ids["2024-03-02"], token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Attendance deleted successfully", decode(t, rec)["message"])

		rec = app.do(http.MethodGet, "/api/attendance/"+ids["2024-03-02"], token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
