package boiledrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/attendance"
)

const (
	sheetSelect = `SELECT a.id, a.owner_id, a.batch_id, b.name AS batch_name, a.date, a.created_at, a.updated_at
FROM attendance a JOIN batches b ON b.id = a.batch_id`
	recordSelect = `SELECT r.id, r.attendance_id, r.student_id, s.name AS student_name, s.roll AS student_roll, r.status
FROM attendance_records r JOIN students s ON s.id = r.student_id`

	sheetKey = "attendance_owner_batch_date_key"
)

type sheetRow struct {
	ID        string    `boil:"id"`
	OwnerID   string    `boil:"owner_id"`
	BatchID   string    `boil:"batch_id"`
	BatchName string    `boil:"batch_name"`
	Date      core.Date `boil:"date"`
	CreatedAt time.Time `boil:"created_at"`
	UpdatedAt time.Time `boil:"updated_at"`
}

type recordRow struct {
	ID          string `boil:"id"`
	SheetID     string `boil:"attendance_id"`
	StudentID   string `boil:"student_id"`
	StudentName string `boil:"student_name"`
	StudentRoll string `boil:"student_roll"`
	Status      string `boil:"status"`
}

func (r sheetRow) unboil(records []recordRow) attendance.Sheet {
	s := attendance.Sheet{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		BatchID:   r.BatchID,
		BatchName: r.BatchName,
		Date:      r.Date,
		Records:   make([]attendance.Record, 0, len(records)),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	for _, rec := range records {
		s.Records = append(s.Records, attendance.Record{
			ID:          rec.ID,
			StudentID:   rec.StudentID,
			StudentName: rec.StudentName,
			StudentRoll: rec.StudentRoll,
			Status:      rec.Status,
		})
	}
	return s
}

type attendanceRepository struct {
	repository
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db core.DB) attendance.Repository {
	return &attendanceRepository{repository{db: db}}
}

// replaceRecords swaps all records of the sheet for the given ones.
func replaceRecords(ctx context.Context, exec core.DBExecutor, sheetID string, records []attendance.Record) error {
	if _, err := queries.Raw(`DELETE FROM attendance_records WHERE attendance_id = $1`, sheetID).ExecContext(ctx, exec); err != nil {
		return errors.Wrap(err, "deleting attendance records")
	}
	if len(records) == 0 {
		return nil
	}

	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*4)
	for _, r := range records {
		n := len(args)
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4))
		args = append(args, uuid.New().String(), sheetID, r.StudentID, r.Status)
	}
	_, err := queries.Raw(
		`INSERT INTO attendance_records (id, attendance_id, student_id, status) VALUES `+strings.Join(values, ", "),
		args...,
	).ExecContext(ctx, exec)
	return errors.Wrap(err, "inserting attendance records")
}

func (repo attendanceRepository) UpsertSheet(ctx context.Context, s attendance.Sheet, exec ...core.DBExecutor) (attendance.Sheet, bool, error) {
	var saved attendance.Sheet
	var upserted struct {
		ID      string `boil:"id"`
		Created bool   `boil:"created"`
	}
	err := repo.inTx(ctx, exec, func(tx core.DBExecutor) error {
		// xmax is 0 only for freshly inserted rows
		err := queries.Raw(
			`INSERT INTO attendance (id, owner_id, batch_id, date, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT ON CONSTRAINT `+sheetKey+` DO UPDATE SET updated_at = EXCLUDED.updated_at
			RETURNING id, (xmax = 0) AS created`,
			uuid.New().String(), s.OwnerID, s.BatchID, s.Date, s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
		).Bind(ctx, tx, &upserted)
		if err != nil {
			return errors.Wrap(err, "upserting attendance")
		}
		if err = replaceRecords(ctx, tx, upserted.ID, s.Records); err != nil {
			return err
		}
		saved, err = repo.GetSheet(ctx, upserted.ID, tx)
		return err
	})
	if err != nil {
		return attendance.Sheet{}, false, err
	}
	return saved, upserted.Created, nil
}

func (repo attendanceRepository) UpdateSheet(ctx context.Context, s attendance.Sheet, replace bool, exec ...core.DBExecutor) (attendance.Sheet, error) {
	var saved attendance.Sheet
	err := repo.inTx(ctx, exec, func(tx core.DBExecutor) error {
		res, err := queries.Raw(
			`UPDATE attendance SET batch_id = $2, date = $3, updated_at = $4 WHERE id = $1`,
			s.ID, s.BatchID, s.Date, s.UpdatedAt.UTC(),
		).ExecContext(ctx, tx)
		if err != nil {
			if isUniqueViolation(err, sheetKey) {
				return attendance.ErrSheetExists
			}
			return errors.Wrap(err, "updating attendance")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return attendance.ErrNotFound
		}
		if replace {
			if err = replaceRecords(ctx, tx, s.ID, s.Records); err != nil {
				return err
			}
		}
		saved, err = repo.GetSheet(ctx, s.ID, tx)
		return err
	})
	return saved, err
}

func (repo attendanceRepository) GetSheet(ctx context.Context, id string, exec ...core.DBExecutor) (attendance.Sheet, error) {
	if !validID(id) {
		return attendance.Sheet{}, attendance.ErrNotFound
	}
	exe := repo.getExec(exec)

	var row sheetRow
	if err := queries.Raw(sheetSelect+` WHERE a.id = $1`, id).Bind(ctx, exe, &row); err != nil {
		return attendance.Sheet{}, trapNoRowsErr(err, attendance.ErrNotFound, "finding attendance")
	}
	var records []recordRow
	if err := queries.Raw(recordSelect+` WHERE r.attendance_id = $1 ORDER BY s.name`, id).Bind(ctx, exe, &records); err != nil {
		return attendance.Sheet{}, errors.Wrap(err, "querying attendance records")
	}
	return row.unboil(records), nil
}

func (repo attendanceRepository) QuerySheets(ctx context.Context, ownerID string, filter attendance.QueryFilter, exec ...core.DBExecutor) ([]attendance.Sheet, error) {
	exe := repo.getExec(exec)
	where := []string{"a.owner_id = $1"}
	args := []interface{}{ownerID}

	if filter.BatchID != "" {
		if !validID(filter.BatchID) {
			return []attendance.Sheet{}, nil
		}
		args = append(args, filter.BatchID)
		where = append(where, fmt.Sprintf("a.batch_id = $%d", len(args)))
	}
	if !filter.Date.IsZero() {
		args = append(args, filter.Date)
		where = append(where, fmt.Sprintf("a.date = $%d", len(args)))
	}
	if !filter.Month.IsZero() {
		args = append(args, filter.Month.Start(), filter.Month.End())
		where = append(where, fmt.Sprintf("a.date >= $%d AND a.date < $%d", len(args)-1, len(args)))
	}

	var rows []sheetRow
	query := sheetSelect + " WHERE " + strings.Join(where, " AND ") + " ORDER BY a.date DESC, a.created_at DESC"
	if err := queries.Raw(query, args...).Bind(ctx, exe, &rows); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	if len(rows) == 0 {
		return []attendance.Sheet{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	var records []recordRow
	err := queries.Raw(recordSelect+` WHERE r.attendance_id = ANY($1) ORDER BY s.name`, pq.Array(ids)).Bind(ctx, exe, &records)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	bySheet := make(map[string][]recordRow, len(rows))
	for _, rec := range records {
		bySheet[rec.SheetID] = append(bySheet[rec.SheetID], rec)
	}

	sheets := make([]attendance.Sheet, 0, len(rows))
	for _, r := range rows {
		sheets = append(sheets, r.unboil(bySheet[r.ID]))
	}
	return sheets, nil
}

func (repo attendanceRepository) DeleteSheet(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return attendance.ErrNotFound
	}
	_, err := queries.Raw(`DELETE FROM attendance WHERE id = $1`, id).ExecContext(ctx, repo.getExec(exec))
	return errors.Wrap(err, "deleting attendance")
}

func (repo attendanceRepository) QueryStudentRecords(ctx context.Context, studentID string, month core.Month, exec ...core.DBExecutor) ([]attendance.StudentRecord, error) {
	if !validID(studentID) {
		return []attendance.StudentRecord{}, nil
	}
	query := `SELECT a.id AS attendance_id, b.name AS batch_name, a.date, r.status
	FROM attendance_records r
		JOIN attendance a ON a.id = r.attendance_id
		JOIN batches b ON b.id = a.batch_id
	WHERE r.student_id = $1`
	args := []interface{}{studentID}
	if !month.IsZero() {
		query += ` AND a.date >= $2 AND a.date < $3`
		args = append(args, month.Start(), month.End())
	}
	query += ` ORDER BY a.date DESC`

	var rows []struct {
		SheetID   string    `boil:"attendance_id"`
		BatchName string    `boil:"batch_name"`
		Date      core.Date `boil:"date"`
		Status    string    `boil:"status"`
	}
	if err := queries.Raw(query, args...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying student attendance")
	}
	records := make([]attendance.StudentRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, attendance.StudentRecord{SheetID: r.SheetID, BatchName: r.BatchName, Date: r.Date, Status: r.Status})
	}
	return records, nil
}
