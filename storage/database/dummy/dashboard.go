package dummydb

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/attendance"
	"github.com/nae-imUam/coaching-app-api/core/dashboard"
)

type dashboardRepository struct {
	db *DB
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(db *DB) dashboard.Repository {
	return &dashboardRepository{db: db}
}

func (repo *dashboardRepository) Counts(_ context.Context, ownerID string) (dashboard.Counts, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	c := dashboard.Counts{TotalExpected: decimal.Zero, TotalCollected: decimal.Zero}
	for _, s := range repo.db.students {
		if s.OwnerID == ownerID {
			c.Students++
			c.TotalExpected = c.TotalExpected.Add(s.TotalFees)
			c.TotalCollected = c.TotalCollected.Add(s.FeesPaid)
		}
	}
	for _, b := range repo.db.batches {
		if b.OwnerID == ownerID {
			c.Batches++
		}
	}
	for _, t := range repo.db.tests {
		if t.OwnerID == ownerID {
			c.Tests++
		}
	}
	return c, nil
}

func (repo *dashboardRepository) PresentOn(_ context.Context, ownerID string, day core.Date) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var present int
	for _, sh := range repo.db.sheets {
		if sh.OwnerID != ownerID || !sh.Date.Equal(day) {
			continue
		}
		for _, r := range sh.Records {
			if r.Status == attendance.StatusPresent {
				present++
			}
		}
	}
	return present, nil
}

func (repo *dashboardRepository) TopDefaulters(_ context.Context, ownerID string, limit int) ([]dashboard.Defaulter, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	defaulters := make([]dashboard.Defaulter, 0)
	for _, s := range repo.db.students {
		if s.OwnerID != ownerID || !s.IsDefaulter() {
			continue
		}
		d := dashboard.Defaulter{ID: s.ID, Name: s.Name, Roll: s.Roll, DueAmount: s.FeesDue()}
		if b, ok := repo.db.batches[s.BatchID.String]; ok && s.BatchID.Valid {
			d.BatchName = null.StringFrom(b.Name)
		}
		defaulters = append(defaulters, d)
	}
	sort.SliceStable(defaulters, func(i, j int) bool {
		if !defaulters[i].DueAmount.Equal(defaulters[j].DueAmount) {
			return defaulters[i].DueAmount.GreaterThan(defaulters[j].DueAmount)
		}
		return defaulters[i].Name < defaulters[j].Name
	})
	if len(defaulters) > limit {
		defaulters = defaulters[:limit]
	}
	return defaulters, nil
}

func (repo *dashboardRepository) RecentPayments(_ context.Context, ownerID string, limit int) ([]dashboard.Activity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	type recent struct {
		activity dashboard.Activity
		created  int64
	}
	var payments []recent
	for _, p := range repo.db.payments {
		if p.OwnerID != ownerID {
			continue
		}
		a := dashboard.Activity{Type: dashboard.ActivityFeePayment, Amount: p.Amount, Date: p.PaymentDate}
		if s, ok := repo.db.students[p.StudentID]; ok {
			a.StudentName = s.Name
		}
		payments = append(payments, recent{a, p.CreatedAt.UnixNano()})
	}
	sort.SliceStable(payments, func(i, j int) bool { return payments[i].created > payments[j].created })

	activities := make([]dashboard.Activity, 0, limit)
	for i := 0; i < len(payments) && i < limit; i++ {
		activities = append(activities, payments[i].activity)
	}
	return activities, nil
}

func (repo *dashboardRepository) CollectionSince(_ context.Context, ownerID string, since core.Date) (dashboard.Collection, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	c := dashboard.Collection{TotalCollected: decimal.Zero}
	for _, p := range repo.db.payments {
		if p.OwnerID == ownerID && !p.PaymentDate.Before(since.Time) {
			c.TotalCollected = c.TotalCollected.Add(p.Amount)
			c.PaymentCount++
		}
	}
	return c, nil
}

func (repo *dashboardRepository) AttendanceSince(_ context.Context, ownerID string, since core.Date) (dashboard.AttendanceTotals, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var totals dashboard.AttendanceTotals
	for _, sh := range repo.db.sheets {
		if sh.OwnerID != ownerID || sh.Date.Before(since.Time) {
			continue
		}
		for _, r := range sh.Records {
			totals.TotalRecords++
			if r.Status == attendance.StatusPresent {
				totals.TotalPresent++
			}
		}
	}
	return totals, nil
}

func (repo *dashboardRepository) MarksSince(_ context.Context, ownerID string, since core.Date) ([]dashboard.MarkScore, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	scores := make([]dashboard.MarkScore, 0)
	for _, m := range repo.db.marks {
		t, ok := repo.db.tests[m.TestID]
		if !ok || t.OwnerID != ownerID || t.Date.Before(since.Time) {
			continue
		}
		scores = append(scores, dashboard.MarkScore{TestID: t.ID, MarksObtained: m.MarksObtained, TotalMarks: t.TotalMarks})
	}
	return scores, nil
}

func (repo *dashboardRepository) BatchStats(_ context.Context, ownerID string) ([]dashboard.BatchStat, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	stats := make([]dashboard.BatchStat, 0)
	for _, b := range repo.db.batches {
		if b.OwnerID != ownerID {
			continue
		}
		st := dashboard.BatchStat{BatchID: b.ID, BatchName: b.Name, TotalFees: decimal.Zero, CollectedFees: decimal.Zero}
		for _, s := range repo.db.students {
			if s.BatchID.Valid && s.BatchID.String == b.ID {
				st.StudentCount++
				st.TotalFees = st.TotalFees.Add(s.TotalFees)
				st.CollectedFees = st.CollectedFees.Add(s.FeesPaid)
			}
		}
		stats = append(stats, st)
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].BatchName < stats[j].BatchName })
	return stats, nil
}
