package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/attendance"
	"github.com/nae-imUam/coaching-app-api/core/dashboard"
)

type dashboardRepository struct {
	db *sqlx.DB
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(db *sql.DB) dashboard.Repository {
	return &dashboardRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo dashboardRepository) Counts(ctx context.Context, ownerID string) (dashboard.Counts, error) {
	var c dashboard.Counts
	err := repo.db.GetContext(ctx, &c, `
		SELECT
			(SELECT COUNT(*) FROM students WHERE owner_id = $1) AS students,
			(SELECT COUNT(*) FROM batches WHERE owner_id = $1) AS batches,
			(SELECT COUNT(*) FROM tests WHERE owner_id = $1) AS tests,
			(SELECT COALESCE(SUM(total_fees), 0) FROM students WHERE owner_id = $1) AS total_expected,
			(SELECT COALESCE(SUM(fees_paid), 0) FROM students WHERE owner_id = $1) AS total_collected`,
		ownerID,
	)
	return c, errors.Wrap(err, "counting")
}

func (repo dashboardRepository) PresentOn(ctx context.Context, ownerID string, day core.Date) (int, error) {
	var n int
	err := repo.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM attendance_records r JOIN attendance a ON a.id = r.attendance_id
		WHERE a.owner_id = $1 AND a.date = $2 AND r.status = $3`,
		ownerID, day, attendance.StatusPresent,
	)
	return n, errors.Wrap(err, "counting present")
}

func (repo dashboardRepository) TopDefaulters(ctx context.Context, ownerID string, limit int) ([]dashboard.Defaulter, error) {
	defaulters := make([]dashboard.Defaulter, 0, limit)
	err := repo.db.SelectContext(ctx, &defaulters, `
		SELECT s.id, s.name, s.roll, b.name AS batch_name, s.total_fees - s.fees_paid AS due_amount
		FROM students s LEFT JOIN batches b ON b.id = s.batch_id
		WHERE s.owner_id = $1 AND s.total_fees > s.fees_paid
		ORDER BY due_amount DESC, s.name
		LIMIT $2`,
		ownerID, limit,
	)
	return defaulters, errors.Wrap(err, "querying defaulters")
}

func (repo dashboardRepository) RecentPayments(ctx context.Context, ownerID string, limit int) ([]dashboard.Activity, error) {
	activities := make([]dashboard.Activity, 0, limit)
	err := repo.db.SelectContext(ctx, &activities, `
		SELECT $3::text AS type, s.name AS student_name, p.amount, p.payment_date AS date
		FROM fee_payments p JOIN students s ON s.id = p.student_id
		WHERE p.owner_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2`,
		ownerID, limit, dashboard.ActivityFeePayment,
	)
	return activities, errors.Wrap(err, "querying recent payments")
}

func (repo dashboardRepository) CollectionSince(ctx context.Context, ownerID string, since core.Date) (dashboard.Collection, error) {
	var c dashboard.Collection
	err := repo.db.GetContext(ctx, &c, `
		SELECT COALESCE(SUM(amount), 0) AS total_collected, COUNT(*) AS payment_count
		FROM fee_payments WHERE owner_id = $1 AND payment_date >= $2`,
		ownerID, since,
	)
	return c, errors.Wrap(err, "summing collections")
}

func (repo dashboardRepository) AttendanceSince(ctx context.Context, ownerID string, since core.Date) (dashboard.AttendanceTotals, error) {
	var t dashboard.AttendanceTotals
	err := repo.db.GetContext(ctx, &t, `
		SELECT COUNT(*) AS total_records, COUNT(*) FILTER (WHERE r.status = $3) AS total_present
		FROM attendance_records r JOIN attendance a ON a.id = r.attendance_id
		WHERE a.owner_id = $1 AND a.date >= $2`,
		ownerID, since, attendance.StatusPresent,
	)
	return t, errors.Wrap(err, "counting attendance")
}

func (repo dashboardRepository) MarksSince(ctx context.Context, ownerID string, since core.Date) ([]dashboard.MarkScore, error) {
	var scores []dashboard.MarkScore
	err := repo.db.SelectContext(ctx, &scores, `
		SELECT m.test_id, m.marks_obtained, t.total_marks
		FROM test_marks m JOIN tests t ON t.id = m.test_id
		WHERE t.owner_id = $1 AND t.date >= $2`,
		ownerID, since,
	)
	return scores, errors.Wrap(err, "querying marks")
}

func (repo dashboardRepository) BatchStats(ctx context.Context, ownerID string) ([]dashboard.BatchStat, error) {
	var stats []dashboard.BatchStat
	err := repo.db.SelectContext(ctx, &stats, `
		SELECT b.id AS batch_id, b.name AS batch_name, COUNT(s.id) AS student_count,
			COALESCE(SUM(s.total_fees), 0) AS total_fees, COALESCE(SUM(s.fees_paid), 0) AS collected_fees
		FROM batches b LEFT JOIN students s ON s.batch_id = b.id
		WHERE b.owner_id = $1
		GROUP BY b.id, b.name
		ORDER BY b.name`,
		ownerID,
	)
	return stats, errors.Wrap(err, "querying batch statistics")
}
