/*
dashboard.go - The aggregation engine

PURPOSE:
  Dashboard() assembles a Snapshot metric group by metric group, asking
  the policy gate before each one. Reads go through the Reader
  interface; the sqlite store implements it.

GATING:
  Denied group -> nil field, no error. Only a storage fault aborts the
  whole snapshot: callers must then render nothing rather than a
  zero-filled dashboard.
*/
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/acrepoint/sales-ledger/ledger"
	"github.com/acrepoint/sales-ledger/policy"
)

const (
	recentSalesLimit = 5
	topAgentsLimit   = 5
	trendDays        = 7
	siteVisitsLimit  = 5
)

// =============================================================================
// READER - Storage queries, one method per metric group
// =============================================================================

// Reader is the read-only storage surface the engine aggregates over.
// Implementations take no locks; small cross-metric drift under
// concurrent writes is acceptable.
type Reader interface {
	// ProjectCounts returns active and total project counts.
	ProjectCounts(ctx context.Context) (active, total int, err error)

	// PlotCounts returns plot counts by status and the summed price of
	// available plots.
	PlotCounts(ctx context.Context) (PlotStats, error)

	// MonthlySales returns count, summed sale price, and summed deposit
	// for non-cancelled sales dated in month's calendar month.
	MonthlySales(ctx context.Context, month time.Time) (count int, revenue, deposits decimal.Decimal, err error)

	// SaleTotals returns count, summed sale price, and summed balance
	// over all non-cancelled sales.
	SaleTotals(ctx context.Context) (count int, revenue, outstanding decimal.Decimal, err error)

	// SalesOnDay returns count and revenue for sales dated exactly on
	// day's calendar day. Cancelled sales are excluded unless
	// includeCancelled is set.
	SalesOnDay(ctx context.Context, day time.Time, includeCancelled bool) (count int, revenue decimal.Decimal, err error)

	// LeadCounts returns total, new, and converted lead counts within
	// the given row scope.
	LeadCounts(ctx context.Context, scope policy.Scope) (total, fresh, converted int, err error)

	// ClientCount returns the number of clients.
	ClientCount(ctx context.Context) (int, error)

	// MonthlyPayments returns summed amount and count of payments dated
	// in month's calendar month, excluding payments whose parent sale
	// is cancelled.
	MonthlyPayments(ctx context.Context, month time.Time) (total decimal.Decimal, count int, err error)

	// RecentSales returns the most recently created non-cancelled sales
	// joined with client, plot, project, and agent names, newest first,
	// ties broken by identifier descending.
	RecentSales(ctx context.Context, limit int) ([]SaleOverview, error)

	// TopAgents ranks active sales agents by revenue in month's
	// calendar month, descending, ties broken by full name ascending.
	// Agents without sales appear with zero revenue.
	TopAgents(ctx context.Context, month time.Time, limit int) ([]AgentPerformance, error)

	// UpcomingSiteVisits returns scheduled visits at or after asOf,
	// soonest first.
	UpcomingSiteVisits(ctx context.Context, asOf time.Time, limit int) ([]VisitOverview, error)
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine computes dashboards. Stateless; safe for concurrent use.
type Engine struct {
	reader Reader
	gate   *policy.Gate
}

func NewEngine(reader Reader, gate *policy.Gate) *Engine {
	return &Engine{reader: reader, gate: gate}
}

// Dashboard computes the full snapshot for actor as of the given
// instant. A zero asOf means now. Every window in the result derives
// from this one instant.
func (e *Engine) Dashboard(ctx context.Context, actor policy.Actor, asOf time.Time) (*Snapshot, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	snap := &Snapshot{AsOf: asOf}

	if e.canView(actor, policy.ResourceProjects) {
		active, total, err := e.reader.ProjectCounts(ctx)
		if err != nil {
			return nil, storageErr("project counts", err)
		}
		snap.Projects = &ProjectStats{Active: active, Total: total}
	}

	if e.canView(actor, policy.ResourcePlots) {
		plots, err := e.reader.PlotCounts(ctx)
		if err != nil {
			return nil, storageErr("plot counts", err)
		}
		snap.Plots = &plots
	}

	if e.canView(actor, policy.ResourceSales) {
		sales, err := e.saleStats(ctx, asOf)
		if err != nil {
			return nil, err
		}
		snap.Sales = sales

		recent, err := e.reader.RecentSales(ctx, recentSalesLimit)
		if err != nil {
			return nil, storageErr("recent sales", err)
		}
		snap.RecentSales = recent

		trend, err := e.salesTrend(ctx, asOf)
		if err != nil {
			return nil, err
		}
		snap.SalesTrend = trend

		if actor.Role == policy.RoleAdmin || actor.Role == policy.RoleManager {
			agents, err := e.reader.TopAgents(ctx, asOf, topAgentsLimit)
			if err != nil {
				return nil, storageErr("top agents", err)
			}
			snap.TopAgents = agents
		}
	}

	if e.canView(actor, policy.ResourceLeads) {
		scope := e.gate.ScopeFilter(actor.Role, actor.UserID, policy.ResourceLeads)
		total, fresh, converted, err := e.reader.LeadCounts(ctx, scope)
		if err != nil {
			return nil, storageErr("lead counts", err)
		}
		stats := &LeadStats{Total: total, New: fresh, Converted: converted}
		if total > 0 {
			stats.ConversionRate = float64(converted) / float64(total) * 100
		}
		snap.Leads = stats
	}

	if e.canView(actor, policy.ResourceClients) {
		clients, err := e.reader.ClientCount(ctx)
		if err != nil {
			return nil, storageErr("client count", err)
		}
		snap.TotalClients = &clients
	}

	if e.canView(actor, policy.ResourcePayments) {
		total, count, err := e.reader.MonthlyPayments(ctx, asOf)
		if err != nil {
			return nil, storageErr("monthly payments", err)
		}
		snap.Payments = &PaymentStats{MonthlyTotal: total, MonthlyCount: count}
	}

	if e.canView(actor, policy.ResourceSiteVisits) {
		visits, err := e.reader.UpcomingSiteVisits(ctx, asOf, siteVisitsLimit)
		if err != nil {
			return nil, storageErr("site visits", err)
		}
		snap.UpcomingVisits = visits
	}

	return snap, nil
}

func (e *Engine) saleStats(ctx context.Context, asOf time.Time) (*SaleStats, error) {
	mCount, mRevenue, mDeposits, err := e.reader.MonthlySales(ctx, asOf)
	if err != nil {
		return nil, storageErr("monthly sales", err)
	}
	tCount, tRevenue, outstanding, err := e.reader.SaleTotals(ctx)
	if err != nil {
		return nil, storageErr("sale totals", err)
	}
	// Today's count matches the original report: all statuses.
	today, _, err := e.reader.SalesOnDay(ctx, asOf, true)
	if err != nil {
		return nil, storageErr("today sales", err)
	}
	return &SaleStats{
		MonthlySales:       mCount,
		MonthlyRevenue:     mRevenue,
		MonthlyDeposits:    mDeposits,
		TotalSales:         tCount,
		TotalRevenue:       tRevenue,
		OutstandingBalance: outstanding,
		TodaySales:         today,
	}, nil
}

// salesTrend covers the 7 calendar days ending at asOf inclusive,
// oldest first. Each point sums only same-day non-cancelled sales.
func (e *Engine) salesTrend(ctx context.Context, asOf time.Time) ([]TrendPoint, error) {
	day := startOfDay(asOf)
	trend := make([]TrendPoint, 0, trendDays)
	for i := trendDays - 1; i >= 0; i-- {
		d := day.AddDate(0, 0, -i)
		count, revenue, err := e.reader.SalesOnDay(ctx, d, false)
		if err != nil {
			return nil, storageErr("sales trend", err)
		}
		trend = append(trend, TrendPoint{Day: d, Count: count, Revenue: revenue})
	}
	return trend, nil
}

func (e *Engine) canView(actor policy.Actor, resource policy.Resource) bool {
	return e.gate.Authorize(actor.Role, resource, policy.ActionView)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func storageErr(what string, err error) error {
	return fmt.Errorf("%w: computing %s: %v", ledger.ErrStorageFailure, what, err)
}
