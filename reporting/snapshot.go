/*
Package reporting computes role-scoped dashboard statistics.

PURPOSE:
  Produces a consistent set of named metrics over sales, payments,
  leads, and plot inventory, each independently gated by the access
  policy. A metric group a role cannot see is absent from the snapshot
  (nil), never zero-filled: "no visibility" and "legitimately zero" are
  different facts.

CONSISTENCY:
  Every window - the calendar day, the calendar month, the 7-day trend,
  the site-visit horizon - derives from the single asOf instant passed
  to Dashboard. No query captures its own "now", so a render straddling
  midnight cannot mix reference days. Reads are best-effort with
  respect to concurrent writers; this is a reporting view, not a
  ledger read.

SEE ALSO:
  - dashboard.go: The aggregation engine
  - policy: The gate every group passes through
*/
package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/acrepoint/sales-ledger/ledger"
)

// =============================================================================
// SNAPSHOT - Derived, never persisted
// =============================================================================

// Snapshot is the output of one Dashboard call. Nil group == the
// acting role has no visibility into that domain.
type Snapshot struct {
	AsOf time.Time

	Projects     *ProjectStats
	Plots        *PlotStats
	Sales        *SaleStats
	Leads        *LeadStats
	TotalClients *int
	Payments     *PaymentStats

	RecentSales    []SaleOverview
	TopAgents      []AgentPerformance
	SalesTrend     []TrendPoint
	UpcomingVisits []VisitOverview
}

type ProjectStats struct {
	Active int
	Total  int
}

type PlotStats struct {
	Total          int
	Available      int
	Booked         int
	Sold           int
	AvailableValue decimal.Decimal
}

// SaleStats mixes the monthly window, the all-time totals, and the
// today count. All monetary sums exclude cancelled sales.
type SaleStats struct {
	MonthlySales    int
	MonthlyRevenue  decimal.Decimal
	MonthlyDeposits decimal.Decimal

	TotalSales         int
	TotalRevenue       decimal.Decimal
	OutstandingBalance decimal.Decimal

	TodaySales int
}

type LeadStats struct {
	Total     int
	New       int
	Converted int
	// ConversionRate is converted/total as a percentage; 0 when total
	// is 0, never a division error.
	ConversionRate float64
}

type PaymentStats struct {
	MonthlyTotal decimal.Decimal
	MonthlyCount int
}

// SaleOverview is a recent sale joined with its display context.
type SaleOverview struct {
	SaleID      ledger.SaleID
	ClientName  string
	PlotNumber  string
	ProjectName string
	AgentName   string
	SaleDate    time.Time
	SalePrice   decimal.Decimal
	Status      ledger.SaleStatus
}

// AgentPerformance is one row of the this-month leaderboard.
// Revenue is 0 for active agents with no sales this month.
type AgentPerformance struct {
	AgentID    ledger.UserID
	FullName   string
	SalesCount int
	Revenue    decimal.Decimal
}

// TrendPoint is one calendar day of the 7-day sales trend.
type TrendPoint struct {
	Day     time.Time
	Count   int
	Revenue decimal.Decimal
}

type VisitOverview struct {
	VisitID     ledger.VisitID
	Title       string
	ProjectName string
	VisitDate   time.Time
	Status      ledger.VisitStatus
}
