package dashboard

import (
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/nae-imUam/coaching-app-api/core"
)

// Periods maps the analytics periods to their length in days.
var Periods = map[string]int{
	"week":  7,
	"month": 30,
	"year":  365,
}

const DefaultPeriod = "month"

// Read models, scanned straight from SQL.
type (
	Counts struct {
		Students       int             `db:"students"`
		Batches        int             `db:"batches"`
		Tests          int             `db:"tests"`
		TotalExpected  decimal.Decimal `db:"total_expected"`
		TotalCollected decimal.Decimal `db:"total_collected"`
	}

	AttendanceTotals struct {
		TotalRecords int `db:"total_records"`
		TotalPresent int `db:"total_present"`
	}

	Collection struct {
		TotalCollected decimal.Decimal `db:"total_collected" json:"total_collected"`
		PaymentCount   int             `db:"payment_count" json:"payment_count"`
	}

	// MarkScore is one mark with the total of its test.
	MarkScore struct {
		TestID        string          `db:"test_id"`
		MarksObtained decimal.Decimal `db:"marks_obtained"`
		TotalMarks    int             `db:"total_marks"`
	}

	Defaulter struct {
		ID        string          `db:"id" json:"id"`
		Name      string          `db:"name" json:"name"`
		Roll      string          `db:"roll" json:"roll"`
		BatchName null.String     `db:"batch_name" json:"batch"`
		DueAmount decimal.Decimal `db:"due_amount" json:"due_amount"`
	}

	Activity struct {
		Type        string          `db:"type" json:"type"`
		StudentName string          `db:"student_name" json:"student_name"`
		Amount      decimal.Decimal `db:"amount" json:"amount"`
		Date        core.Date       `db:"date" json:"date"`
	}

	BatchStat struct {
		BatchID              string          `db:"batch_id" json:"batch_id"`
		BatchName            string          `db:"batch_name" json:"batch_name"`
		StudentCount         int             `db:"student_count" json:"student_count"`
		TotalFees            decimal.Decimal `db:"total_fees" json:"total_fees"`
		CollectedFees        decimal.Decimal `db:"collected_fees" json:"collected_fees"`
		CollectionPercentage decimal.Decimal `db:"-" json:"collection_percentage"`
	}
)

const ActivityFeePayment = "fee_payment"

type OverviewTotals struct {
	TotalStudents           int             `json:"total_students"`
	TotalBatches            int             `json:"total_batches"`
	TotalTests              int             `json:"total_tests"`
	TotalExpectedFees       decimal.Decimal `json:"total_expected_fees"`
	TotalCollectedFees      decimal.Decimal `json:"total_collected_fees"`
	PendingFees             decimal.Decimal `json:"pending_fees"`
	PresentToday            int             `json:"present_today"`
	FeeCollectionPercentage decimal.Decimal `json:"fee_collection_percentage"`
}

type Overview struct {
	Overview         OverviewTotals `json:"overview"`
	Defaulters       []Defaulter    `json:"defaulters"`
	RecentActivities []Activity     `json:"recent_activities"`
}

type AttendanceStats struct {
	TotalRecords         int             `json:"total_records"`
	TotalPresent         int             `json:"total_present"`
	AttendancePercentage decimal.Decimal `json:"attendance_percentage"`
}

type TestPerformance struct {
	TotalTests        int             `json:"total_tests"`
	AveragePercentage decimal.Decimal `json:"average_percentage"`
}

type Analytics struct {
	FeeCollection   Collection      `json:"fee_collection"`
	Attendance      AttendanceStats `json:"attendance"`
	TestPerformance TestPerformance `json:"test_performance"`
	BatchStatistics []BatchStat     `json:"batch_statistics"`
}

type PeriodAnalytics struct {
	Period    string    `json:"period"`
	Since     core.Date `json:"since"`
	Analytics Analytics `json:"analytics"`
}
