package boiledrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/exam"
)

const (
	testSelect = `SELECT t.id, t.owner_id, t.batch_id, b.name AS batch_name, t.name, t.date, t.total_marks,
	t.duration, t.board, t.created_at, t.updated_at
FROM tests t JOIN batches b ON b.id = t.batch_id`
	markSelect = `SELECT m.id, m.test_id, t.name AS test_name, t.date AS test_date, t.total_marks,
	m.student_id, s.name AS student_name, s.roll AS student_roll, m.marks_obtained, m.created_at, m.updated_at
FROM test_marks m
	JOIN tests t ON t.id = m.test_id
	JOIN students s ON s.id = m.student_id`
)

type testRow struct {
	ID         string          `boil:"id"`
	OwnerID    string          `boil:"owner_id"`
	BatchID    string          `boil:"batch_id"`
	BatchName  string          `boil:"batch_name"`
	Name       string          `boil:"name"`
	Date       core.Date       `boil:"date"`
	TotalMarks int             `boil:"total_marks"`
	Duration   decimal.Decimal `boil:"duration"`
	Board      string          `boil:"board"`
	CreatedAt  time.Time       `boil:"created_at"`
	UpdatedAt  time.Time       `boil:"updated_at"`
}

func (r testRow) unboil() exam.Test {
	return exam.Test{
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		BatchID:    r.BatchID,
		BatchName:  r.BatchName,
		Name:       r.Name,
		Date:       r.Date,
		TotalMarks: r.TotalMarks,
		Duration:   r.Duration,
		Board:      r.Board,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type markRow struct {
	ID            string          `boil:"id"`
	TestID        string          `boil:"test_id"`
	TestName      string          `boil:"test_name"`
	TestDate      core.Date       `boil:"test_date"`
	TotalMarks    int             `boil:"total_marks"`
	StudentID     string          `boil:"student_id"`
	StudentName   string          `boil:"student_name"`
	StudentRoll   string          `boil:"student_roll"`
	MarksObtained decimal.Decimal `boil:"marks_obtained"`
	CreatedAt     time.Time       `boil:"created_at"`
	UpdatedAt     time.Time       `boil:"updated_at"`
}

func (r markRow) unboil() exam.Mark {
	return exam.Mark{
		ID:            r.ID,
		TestID:        r.TestID,
		TestName:      r.TestName,
		TestDate:      r.TestDate,
		TotalMarks:    r.TotalMarks,
		StudentID:     r.StudentID,
		StudentName:   r.StudentName,
		StudentRoll:   r.StudentRoll,
		MarksObtained: r.MarksObtained,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type examRepository struct {
	repository
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db core.DB) exam.Repository {
	return &examRepository{repository{db: db}}
}

func (repo examRepository) CreateTest(ctx context.Context, t exam.Test, exec ...core.DBExecutor) (exam.Test, error) {
	t.ID = uuid.New().String()
	exe := repo.getExec(exec)
	_, err := queries.Raw(
		`INSERT INTO tests (id, owner_id, batch_id, name, date, total_marks, duration, board, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.OwnerID, t.BatchID, t.Name, t.Date, t.TotalMarks, t.Duration, t.Board, t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	).ExecContext(ctx, exe)
	if err != nil {
		return exam.Test{}, errors.Wrap(err, "inserting test")
	}
	return repo.GetTest(ctx, t.ID, exe)
}

func (repo examRepository) GetTest(ctx context.Context, id string, exec ...core.DBExecutor) (exam.Test, error) {
	if !validID(id) {
		return exam.Test{}, exam.ErrNotFound
	}
	var row testRow
	if err := queries.Raw(testSelect+` WHERE t.id = $1`, id).Bind(ctx, repo.getExec(exec), &row); err != nil {
		return exam.Test{}, trapNoRowsErr(err, exam.ErrNotFound, "finding test")
	}
	return row.unboil(), nil
}

func (repo examRepository) QueryTests(ctx context.Context, ownerID string, filter exam.QueryFilter, exec ...core.DBExecutor) ([]exam.Test, error) {
	query := testSelect + ` WHERE t.owner_id = $1`
	args := []interface{}{ownerID}
	if filter.BatchID != "" {
		if !validID(filter.BatchID) {
			return []exam.Test{}, nil
		}
		query += ` AND t.batch_id = $2`
		args = append(args, filter.BatchID)
	}
	query += ` ORDER BY t.date DESC, t.created_at DESC`

	var rows []testRow
	if err := queries.Raw(query, args...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying tests")
	}
	tests := make([]exam.Test, 0, len(rows))
	for _, r := range rows {
		tests = append(tests, r.unboil())
	}
	return tests, nil
}

func (repo examRepository) UpdateTest(ctx context.Context, t exam.Test, exec ...core.DBExecutor) (exam.Test, error) {
	exe := repo.getExec(exec)
	res, err := queries.Raw(
		`UPDATE tests SET batch_id = $2, name = $3, date = $4, total_marks = $5, duration = $6, board = $7, updated_at = $8
		WHERE id = $1`,
		t.ID, t.BatchID, t.Name, t.Date, t.TotalMarks, t.Duration, t.Board, t.UpdatedAt.UTC(),
	).ExecContext(ctx, exe)
	if err != nil {
		return exam.Test{}, errors.Wrap(err, "updating test")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return exam.Test{}, exam.ErrNotFound
	}
	return repo.GetTest(ctx, t.ID, exe)
}

func (repo examRepository) DeleteTest(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return exam.ErrNotFound
	}
	_, err := queries.Raw(`DELETE FROM tests WHERE id = $1`, id).ExecContext(ctx, repo.getExec(exec))
	return errors.Wrap(err, "deleting test")
}

// UpsertMark is a single statement, so each bulk entry commits on its own.
func (repo examRepository) UpsertMark(ctx context.Context, m exam.Mark, exec ...core.DBExecutor) (exam.Mark, error) {
	exe := repo.getExec(exec)
	var id string
	err := queries.Raw(
		`INSERT INTO test_marks (id, test_id, student_id, marks_obtained, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT test_marks_test_student_key
		DO UPDATE SET marks_obtained = EXCLUDED.marks_obtained, updated_at = EXCLUDED.updated_at
		RETURNING id`,
		uuid.New().String(), m.TestID, m.StudentID, m.MarksObtained, m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	).QueryRowContext(ctx, exe).Scan(&id)
	if err != nil {
		return exam.Mark{}, errors.Wrap(err, "upserting mark")
	}

	var row markRow
	if err = queries.Raw(markSelect+` WHERE m.id = $1`, id).Bind(ctx, exe, &row); err != nil {
		return exam.Mark{}, errors.Wrap(err, "finding mark")
	}
	return row.unboil(), nil
}

func (repo examRepository) QueryMarks(ctx context.Context, filter exam.MarkFilter, exec ...core.DBExecutor) ([]exam.Mark, error) {
	var where []string
	var args []interface{}
	for _, cond := range []struct{ col, val string }{
		{"t.owner_id", filter.OwnerID},
		{"m.test_id", filter.TestID},
		{"m.student_id", filter.StudentID},
	} {
		if cond.val == "" {
			continue
		}
		if !validID(cond.val) {
			return []exam.Mark{}, nil
		}
		args = append(args, cond.val)
		where = append(where, fmt.Sprintf("%s = $%d", cond.col, len(args)))
	}
	if len(filter.TestIDs) > 0 {
		ids := make([]string, 0, len(filter.TestIDs))
		for _, id := range filter.TestIDs {
			if validID(id) {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return []exam.Mark{}, nil
		}
		args = append(args, pq.Array(ids))
		where = append(where, fmt.Sprintf("m.test_id = ANY($%d::uuid[])", len(args)))
	}
	if len(where) == 0 {
		return nil, errors.New("querying marks: empty filter")
	}

	order := " ORDER BY s.name"
	if filter.StudentID != "" {
		order = " ORDER BY t.date DESC, t.created_at DESC"
	}

	var rows []markRow
	query := markSelect + " WHERE " + strings.Join(where, " AND ") + order
	if err := queries.Raw(query, args...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying marks")
	}
	marks := make([]exam.Mark, 0, len(rows))
	for _, r := range rows {
		marks = append(marks, r.unboil())
	}
	return marks, nil
}
