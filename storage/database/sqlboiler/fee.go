package boiledrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/fee"
	"github.com/nae-imUam/coaching-app-api/core/student"
)

const (
	paymentColumns = `p.id, p.owner_id, p.student_id, p.amount, p.payment_date, p.notes, p.created_at, p.updated_at`
	paymentSelect  = `SELECT ` + paymentColumns + `, s.name AS student_name, s.roll AS student_roll
FROM fee_payments p JOIN students s ON s.id = p.student_id`
)

type paymentRow struct {
	ID          string          `boil:"id"`
	OwnerID     string          `boil:"owner_id"`
	StudentID   string          `boil:"student_id"`
	StudentName string          `boil:"student_name"`
	StudentRoll string          `boil:"student_roll"`
	Amount      decimal.Decimal `boil:"amount"`
	PaymentDate core.Date       `boil:"payment_date"`
	Notes       string          `boil:"notes"`
	CreatedAt   time.Time       `boil:"created_at"`
	UpdatedAt   time.Time       `boil:"updated_at"`
}

func (r paymentRow) unboil() fee.Payment {
	return fee.Payment{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		StudentID:   r.StudentID,
		StudentName: r.StudentName,
		StudentRoll: r.StudentRoll,
		Amount:      r.Amount,
		PaymentDate: r.PaymentDate,
		Notes:       r.Notes,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type balanceRow struct {
	TotalFees decimal.Decimal `boil:"total_fees"`
	FeesPaid  decimal.Decimal `boil:"fees_paid"`
}

type paymentRepository struct {
	repository
}

var _ fee.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db core.DB) fee.Repository {
	return &paymentRepository{repository{db: db}}
}

// moveFeesPaid adds delta to the student's fees_paid in the database itself.
func moveFeesPaid(ctx context.Context, exec core.DBExecutor, ownerID, studentID string, delta decimal.Decimal) (fee.Balance, error) {
	var bal balanceRow
	err := queries.Raw(
		`UPDATE students SET fees_paid = fees_paid + $1, updated_at = $4
		WHERE id = $2 AND owner_id = $3 RETURNING total_fees, fees_paid`,
		delta, studentID, ownerID, time.Now().UTC(),
	).Bind(ctx, exec, &bal)
	if err != nil {
		return fee.Balance{}, trapNoRowsErr(err, student.ErrNotFound, "updating fees paid")
	}
	return fee.Balance{TotalFees: bal.TotalFees, FeesPaid: bal.FeesPaid}, nil
}

func (repo paymentRepository) CreatePayment(ctx context.Context, p fee.Payment, exec ...core.DBExecutor) (fee.Payment, fee.Balance, error) {
	if !validID(p.StudentID) {
		return fee.Payment{}, fee.Balance{}, student.ErrNotFound
	}
	p.ID = uuid.New().String()

	var created fee.Payment
	var bal fee.Balance
	err := repo.inTx(ctx, exec, func(tx core.DBExecutor) error {
		var err error
		if bal, err = moveFeesPaid(ctx, tx, p.OwnerID, p.StudentID, p.Amount); err != nil {
			return err
		}
		_, err = queries.Raw(
			`INSERT INTO fee_payments (id, owner_id, student_id, amount, payment_date, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.OwnerID, p.StudentID, p.Amount, p.PaymentDate, p.Notes, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
		).ExecContext(ctx, tx)
		if err != nil {
			return errors.Wrap(err, "inserting payment")
		}
		created, err = repo.GetPayment(ctx, p.ID, tx)
		return err
	})
	if err != nil {
		return fee.Payment{}, fee.Balance{}, err
	}
	return created, bal, nil
}

func (repo paymentRepository) DeletePayment(ctx context.Context, ownerID, id string, exec ...core.DBExecutor) (fee.Payment, fee.Balance, error) {
	if !validID(id) {
		return fee.Payment{}, fee.Balance{}, fee.ErrNotFound
	}

	var row paymentRow
	var bal fee.Balance
	err := repo.inTx(ctx, exec, func(tx core.DBExecutor) error {
		err := queries.Raw(
			`DELETE FROM fee_payments p WHERE p.id = $1 AND p.owner_id = $2 RETURNING `+paymentColumns,
			id, ownerID,
		).Bind(ctx, tx, &row)
		if err != nil {
			return trapNoRowsErr(err, fee.ErrNotFound, "deleting payment")
		}
		bal, err = moveFeesPaid(ctx, tx, ownerID, row.StudentID, row.Amount.Neg())
		return err
	})
	if err != nil {
		return fee.Payment{}, fee.Balance{}, err
	}
	return row.unboil(), bal, nil
}

func (repo paymentRepository) GetPayment(ctx context.Context, id string, exec ...core.DBExecutor) (fee.Payment, error) {
	if !validID(id) {
		return fee.Payment{}, fee.ErrNotFound
	}
	var row paymentRow
	if err := queries.Raw(paymentSelect+` WHERE p.id = $1`, id).Bind(ctx, repo.getExec(exec), &row); err != nil {
		return fee.Payment{}, trapNoRowsErr(err, fee.ErrNotFound, "finding payment")
	}
	return row.unboil(), nil
}

func (repo paymentRepository) QueryPayments(ctx context.Context, ownerID string, filter fee.QueryFilter, exec ...core.DBExecutor) ([]fee.Payment, error) {
	where := []string{"p.owner_id = $1"}
	args := []interface{}{ownerID}

	for _, cond := range []struct{ col, val string }{
		{"p.student_id", filter.StudentID},
		{"s.batch_id", filter.BatchID},
	} {
		if cond.val == "" {
			continue
		}
		if !validID(cond.val) {
			return []fee.Payment{}, nil
		}
		args = append(args, cond.val)
		where = append(where, fmt.Sprintf("%s = $%d", cond.col, len(args)))
	}
	if !filter.Month.IsZero() {
		args = append(args, filter.Month.Start(), filter.Month.End())
		where = append(where, fmt.Sprintf("p.payment_date >= $%d AND p.payment_date < $%d", len(args)-1, len(args)))
	}

	var rows []paymentRow
	query := paymentSelect + " WHERE " + strings.Join(where, " AND ") + " ORDER BY p.payment_date DESC, p.created_at DESC"
	if err := queries.Raw(query, args...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	payments := make([]fee.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, r.unboil())
	}
	return payments, nil
}
