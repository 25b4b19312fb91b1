package dashboard

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/nae-imUam/coaching-app-api/core"
)

const (
	topDefaulters  = 10
	recentPayments = 10
)

// Repository serves the dashboard read models. Every query is scoped to ownerID.
type Repository interface {
	Counts(ctx context.Context, ownerID string) (Counts, error)
	PresentOn(ctx context.Context, ownerID string, day core.Date) (int, error)
	// TopDefaulters returns students owing fees, largest dues first.
	TopDefaulters(ctx context.Context, ownerID string, limit int) ([]Defaulter, error)
	// RecentPayments returns the latest recorded payments as activities.
	RecentPayments(ctx context.Context, ownerID string, limit int) ([]Activity, error)
	CollectionSince(ctx context.Context, ownerID string, since core.Date) (Collection, error)
	AttendanceSince(ctx context.Context, ownerID string, since core.Date) (AttendanceTotals, error)
	MarksSince(ctx context.Context, ownerID string, since core.Date) ([]MarkScore, error)
	// BatchStats returns fee totals per batch, by batch name.
	BatchStats(ctx context.Context, ownerID string) ([]BatchStat, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Overview(ctx context.Context, ownerID string) (Overview, error) {
	counts, err := svc.repo.Counts(ctx, ownerID)
	if err != nil {
		return Overview{}, errors.Wrap(err, "counting")
	}
	present, err := svc.repo.PresentOn(ctx, ownerID, core.Today())
	if err != nil {
		return Overview{}, errors.Wrap(err, "counting present students")
	}
	defaulters, err := svc.repo.TopDefaulters(ctx, ownerID, topDefaulters)
	if err != nil {
		return Overview{}, errors.Wrap(err, "querying defaulters")
	}
	activities, err := svc.repo.RecentPayments(ctx, ownerID, recentPayments)
	if err != nil {
		return Overview{}, errors.Wrap(err, "querying recent payments")
	}
	if defaulters == nil {
		defaulters = []Defaulter{}
	}
	if activities == nil {
		activities = []Activity{}
	}

	return Overview{
		Overview: OverviewTotals{
			TotalStudents:           counts.Students,
			TotalBatches:            counts.Batches,
			TotalTests:              counts.Tests,
			TotalExpectedFees:       counts.TotalExpected,
			TotalCollectedFees:      counts.TotalCollected,
			PendingFees:             counts.TotalExpected.Sub(counts.TotalCollected),
			PresentToday:            present,
			FeeCollectionPercentage: core.Percentage(counts.TotalCollected, counts.TotalExpected),
		},
		Defaulters:       defaulters,
		RecentActivities: activities,
	}, nil
}

// Analytics covers the last week, month or year; unknown periods fall back to a month.
func (svc *Service) Analytics(ctx context.Context, ownerID, period string) (PeriodAnalytics, error) {
	period = core.CleanString(period, true /* lower */)
	days, ok := Periods[period]
	if !ok {
		period, days = DefaultPeriod, Periods[DefaultPeriod]
	}
	since := core.Today().AddDays(-days)

	collection, err := svc.repo.CollectionSince(ctx, ownerID, since)
	if err != nil {
		return PeriodAnalytics{}, errors.Wrap(err, "summing collections")
	}
	att, err := svc.repo.AttendanceSince(ctx, ownerID, since)
	if err != nil {
		return PeriodAnalytics{}, errors.Wrap(err, "counting attendance")
	}
	marks, err := svc.repo.MarksSince(ctx, ownerID, since)
	if err != nil {
		return PeriodAnalytics{}, errors.Wrap(err, "querying marks")
	}
	batches, err := svc.repo.BatchStats(ctx, ownerID)
	if err != nil {
		return PeriodAnalytics{}, errors.Wrap(err, "querying batch statistics")
	}
	if batches == nil {
		batches = []BatchStat{}
	}
	for i := range batches {
		batches[i].CollectionPercentage = core.Percentage(batches[i].CollectedFees, batches[i].TotalFees)
	}

	return PeriodAnalytics{
		Period: period,
		Since:  since,
		Analytics: Analytics{
			FeeCollection: collection,
			Attendance: AttendanceStats{
				TotalRecords: att.TotalRecords,
				TotalPresent: att.TotalPresent,
				AttendancePercentage: core.Percentage(
					decimal.NewFromInt(int64(att.TotalPresent)), decimal.NewFromInt(int64(att.TotalRecords)),
				),
			},
			TestPerformance: testPerformance(marks),
			BatchStatistics: batches,
		},
	}, nil
}

// testPerformance averages the per-mark percentages; a test without total counts as 0%.
func testPerformance(marks []MarkScore) TestPerformance {
	perf := TestPerformance{AveragePercentage: decimal.Zero}
	if len(marks) == 0 {
		return perf
	}
	tests := make(map[string]bool)
	total := decimal.Zero
	for _, m := range marks {
		tests[m.TestID] = true
		total = total.Add(core.Percentage(m.MarksObtained, decimal.NewFromInt(int64(m.TotalMarks))))
	}
	perf.TotalTests = len(tests)
	perf.AveragePercentage = total.Div(decimal.NewFromInt(int64(len(marks)))).Round(2)
	return perf
}
