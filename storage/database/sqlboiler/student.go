package boiledrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/student"
)

const (
	studentSelect = `SELECT s.id, s.owner_id, s.batch_id, b.name AS batch_name, s.name, s.phone, s.roll,
	s.total_fees, s.fees_paid, s.profile_pic, s.created_at, s.updated_at
FROM students s LEFT JOIN batches b ON b.id = s.batch_id`

	studentRollKey = "students_owner_roll_key"
)

type studentRow struct {
	ID         string          `boil:"id"`
	OwnerID    string          `boil:"owner_id"`
	BatchID    null.String     `boil:"batch_id"`
	BatchName  null.String     `boil:"batch_name"`
	Name       string          `boil:"name"`
	Phone      string          `boil:"phone"`
	Roll       string          `boil:"roll"`
	TotalFees  decimal.Decimal `boil:"total_fees"`
	FeesPaid   decimal.Decimal `boil:"fees_paid"`
	ProfilePic null.String     `boil:"profile_pic"`
	CreatedAt  time.Time       `boil:"created_at"`
	UpdatedAt  time.Time       `boil:"updated_at"`
}

func (r studentRow) unboil() student.Student {
	return student.Student{
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		BatchID:    r.BatchID,
		BatchName:  r.BatchName,
		Name:       r.Name,
		Phone:      r.Phone,
		Roll:       r.Roll,
		TotalFees:  r.TotalFees,
		FeesPaid:   r.FeesPaid,
		ProfilePic: r.ProfilePic,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	repository
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db core.DB) student.Repository {
	return &studentRepository{repository{db: db}}
}

func (repo studentRepository) CreateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) (student.Student, error) {
	s.ID = uuid.New().String()
	exe := repo.getExec(exec)
	_, err := queries.Raw(
		`INSERT INTO students (id, owner_id, batch_id, name, phone, roll, total_fees, fees_paid, profile_pic, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10)`,
		s.ID, s.OwnerID, s.BatchID, s.Name, s.Phone, s.Roll, s.TotalFees, s.ProfilePic, s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	).ExecContext(ctx, exe)
	if err != nil {
		if isUniqueViolation(err, studentRollKey) {
			return student.Student{}, student.ErrRollExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return repo.GetStudent(ctx, s.ID, exe)
}

func (repo studentRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (student.Student, error) {
	if !validID(id) {
		return student.Student{}, student.ErrNotFound
	}
	var row studentRow
	if err := queries.Raw(studentSelect+` WHERE s.id = $1`, id).Bind(ctx, repo.getExec(exec), &row); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return row.unboil(), nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, ownerID string, filter student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	where := []string{"s.owner_id = $1"}
	args := []interface{}{ownerID}

	if filter.BatchID != "" {
		if !validID(filter.BatchID) {
			return []student.Student{}, nil
		}
		args = append(args, filter.BatchID)
		where = append(where, fmt.Sprintf("s.batch_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(s.name ILIKE $%d OR s.phone ILIKE $%d OR s.roll ILIKE $%d)", n, n, n))
	}

	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		orderList = append(orderList, "s."+ord.String())
	}
	if len(orderList) == 0 {
		orderList = append(orderList, "s.name ASC")
	}

	var rows []studentRow
	query := studentSelect + " WHERE " + strings.Join(where, " AND ") + " ORDER BY " + strings.Join(orderList, ", ")
	if err := queries.Raw(query, args...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.unboil())
	}
	return students, nil
}

// UpdateStudent never touches fees_paid.
func (repo studentRepository) UpdateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) (student.Student, error) {
	exe := repo.getExec(exec)
	res, err := queries.Raw(
		`UPDATE students SET batch_id = $2, name = $3, phone = $4, roll = $5, total_fees = $6, updated_at = $7 WHERE id = $1`,
		s.ID, s.BatchID, s.Name, s.Phone, s.Roll, s.TotalFees, s.UpdatedAt.UTC(),
	).ExecContext(ctx, exe)
	if err != nil {
		if isUniqueViolation(err, studentRollKey) {
			return student.Student{}, student.ErrRollExists
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return repo.GetStudent(ctx, s.ID, exe)
}

func (repo studentRepository) SetProfilePic(ctx context.Context, id, url string, exec ...core.DBExecutor) (student.Student, error) {
	exe := repo.getExec(exec)
	res, err := queries.Raw(
		`UPDATE students SET profile_pic = $2, updated_at = $3 WHERE id = $1`,
		id, null.NewString(url, url != ""), time.Now().UTC(),
	).ExecContext(ctx, exe)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "setting profile picture")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return repo.GetStudent(ctx, id, exe)
}

// DeleteStudent cascades to payments, attendance records and marks through the foreign keys.
func (repo studentRepository) DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return student.ErrNotFound
	}
	_, err := queries.Raw(`DELETE FROM students WHERE id = $1`, id).ExecContext(ctx, repo.getExec(exec))
	return errors.Wrap(err, "deleting student")
}
