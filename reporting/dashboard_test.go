package reporting_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acrepoint/sales-ledger/ledger"
	"github.com/acrepoint/sales-ledger/policy"
	"github.com/acrepoint/sales-ledger/reporting"
)

// =============================================================================
// FAKE READER
// =============================================================================

// fakeReader returns canned numbers and records how it was queried.
type fakeReader struct {
	leadScopes     []policy.Scope
	dayQueries     []dayQuery
	failEverything bool
	noLeads        bool
}

type dayQuery struct {
	day              time.Time
	includeCancelled bool
}

func dec(s string) decimal.Decimal { return ledger.MustDecimal(s) }

func (f *fakeReader) ProjectCounts(context.Context) (int, int, error) {
	if f.failEverything {
		return 0, 0, errors.New("db down")
	}
	return 3, 5, nil
}

func (f *fakeReader) PlotCounts(context.Context) (reporting.PlotStats, error) {
	if f.failEverything {
		return reporting.PlotStats{}, errors.New("db down")
	}
	return reporting.PlotStats{Total: 40, Available: 25, Booked: 5, Sold: 10, AvailableValue: dec("12500000")}, nil
}

func (f *fakeReader) MonthlySales(context.Context, time.Time) (int, decimal.Decimal, decimal.Decimal, error) {
	if f.failEverything {
		return 0, decimal.Zero, decimal.Zero, errors.New("db down")
	}
	return 4, dec("9000000"), dec("1800000"), nil
}

func (f *fakeReader) SaleTotals(context.Context) (int, decimal.Decimal, decimal.Decimal, error) {
	if f.failEverything {
		return 0, decimal.Zero, decimal.Zero, errors.New("db down")
	}
	return 22, dec("51000000"), dec("17000000"), nil
}

func (f *fakeReader) SalesOnDay(_ context.Context, day time.Time, includeCancelled bool) (int, decimal.Decimal, error) {
	if f.failEverything {
		return 0, decimal.Zero, errors.New("db down")
	}
	f.dayQueries = append(f.dayQueries, dayQuery{day: day, includeCancelled: includeCancelled})
	return 1, dec("2250000"), nil
}

func (f *fakeReader) LeadCounts(_ context.Context, scope policy.Scope) (int, int, int, error) {
	if f.failEverything {
		return 0, 0, 0, errors.New("db down")
	}
	f.leadScopes = append(f.leadScopes, scope)
	if f.noLeads {
		return 0, 0, 0, nil
	}
	return 8, 3, 2, nil
}

func (f *fakeReader) ClientCount(context.Context) (int, error) {
	if f.failEverything {
		return 0, errors.New("db down")
	}
	return 14, nil
}

func (f *fakeReader) MonthlyPayments(context.Context, time.Time) (decimal.Decimal, int, error) {
	if f.failEverything {
		return decimal.Zero, 0, errors.New("db down")
	}
	return dec("5400000"), 9, nil
}

func (f *fakeReader) RecentSales(context.Context, int) ([]reporting.SaleOverview, error) {
	if f.failEverything {
		return nil, errors.New("db down")
	}
	return []reporting.SaleOverview{{SaleID: "sale-9", ClientName: "A Client"}}, nil
}

func (f *fakeReader) TopAgents(context.Context, time.Time, int) ([]reporting.AgentPerformance, error) {
	if f.failEverything {
		return nil, errors.New("db down")
	}
	return []reporting.AgentPerformance{{AgentID: "agent-1", FullName: "Top Agent", SalesCount: 3, Revenue: dec("6000000")}}, nil
}

func (f *fakeReader) UpcomingSiteVisits(context.Context, time.Time, int) ([]reporting.VisitOverview, error) {
	if f.failEverything {
		return nil, errors.New("db down")
	}
	return []reporting.VisitOverview{{VisitID: "visit-1", Title: "Open day"}}, nil
}

func newTestEngine(reader *fakeReader) *reporting.Engine {
	return reporting.NewEngine(reader, policy.NewGate(policy.DefaultTable()))
}

var asOf = time.Date(2025, time.June, 15, 10, 30, 0, 0, time.UTC)

// =============================================================================
// VISIBILITY TESTS - Absent, not zero
// =============================================================================

func TestDashboard_Admin_SeesEveryGroup(t *testing.T) {
	engine := newTestEngine(&fakeReader{})
	actor := policy.Actor{UserID: "admin-1", Role: policy.RoleAdmin}

	snap, err := engine.Dashboard(context.Background(), actor, asOf)
	require.NoError(t, err)

	require.NotNil(t, snap.Projects)
	require.NotNil(t, snap.Plots)
	require.NotNil(t, snap.Sales)
	require.NotNil(t, snap.Leads)
	require.NotNil(t, snap.TotalClients)
	require.NotNil(t, snap.Payments)
	assert.NotEmpty(t, snap.RecentSales)
	assert.NotEmpty(t, snap.TopAgents)
	assert.NotEmpty(t, snap.UpcomingVisits)

	assert.Equal(t, 3, snap.Projects.Active)
	assert.Equal(t, 14, *snap.TotalClients)
	assert.True(t, snap.Sales.OutstandingBalance.Equal(dec("17000000")))
}

func TestDashboard_Reception_SalesGroupAbsent(t *testing.T) {
	// GIVEN: Reception cannot view sales
	// WHEN: The dashboard is computed
	// THEN: Sales metrics, recent sales, trend, and leaderboard are all
	//       absent, while permitted groups carry real numbers

	engine := newTestEngine(&fakeReader{})
	actor := policy.Actor{UserID: "rec-1", Role: policy.RoleReception}

	snap, err := engine.Dashboard(context.Background(), actor, asOf)
	require.NoError(t, err)

	assert.Nil(t, snap.Sales)
	assert.Empty(t, snap.RecentSales)
	assert.Empty(t, snap.SalesTrend)
	assert.Empty(t, snap.TopAgents)

	require.NotNil(t, snap.Plots)
	require.NotNil(t, snap.Leads)
	require.NotNil(t, snap.Payments)
}

func TestDashboard_SalesAgent_NoLeaderboard(t *testing.T) {
	// Agents can view sales but the leaderboard stays management-only.
	engine := newTestEngine(&fakeReader{})
	actor := policy.Actor{UserID: "agent-1", Role: policy.RoleSalesAgent}

	snap, err := engine.Dashboard(context.Background(), actor, asOf)
	require.NoError(t, err)

	require.NotNil(t, snap.Sales)
	assert.NotEmpty(t, snap.RecentSales)
	assert.Empty(t, snap.TopAgents)
}

func TestDashboard_SalesAgent_LeadsScopedToSelf(t *testing.T) {
	// GIVEN: A sales agent
	// WHEN: Lead metrics are computed
	// THEN: The reader is queried with an assigned-to restriction

	reader := &fakeReader{}
	engine := newTestEngine(reader)
	actor := policy.Actor{UserID: "agent-7", Role: policy.RoleSalesAgent}

	_, err := engine.Dashboard(context.Background(), actor, asOf)
	require.NoError(t, err)

	require.Len(t, reader.leadScopes, 1)
	scope := reader.leadScopes[0]
	require.False(t, scope.Unrestricted())
	assert.Equal(t, ledger.UserID("agent-7"), *scope.AssignedTo)
}

func TestDashboard_Manager_LeadsUnrestricted(t *testing.T) {
	reader := &fakeReader{}
	engine := newTestEngine(reader)
	actor := policy.Actor{UserID: "mgr-1", Role: policy.RoleManager}

	_, err := engine.Dashboard(context.Background(), actor, asOf)
	require.NoError(t, err)

	require.Len(t, reader.leadScopes, 1)
	assert.True(t, reader.leadScopes[0].Unrestricted())
}

// =============================================================================
// WINDOW TESTS - One asOf, every window
// =============================================================================

func TestDashboard_TrendCoversSevenDaysOldestFirst(t *testing.T) {
	// GIVEN: asOf = June 15
	// WHEN: The trend is computed
	// THEN: It holds June 9..15 in order, excluding cancelled sales;
	//       the today count is a separate query including cancelled

	reader := &fakeReader{}
	engine := newTestEngine(reader)
	actor := policy.Actor{UserID: "admin-1", Role: policy.RoleAdmin}

	snap, err := engine.Dashboard(context.Background(), actor, asOf)
	require.NoError(t, err)
	require.Len(t, snap.SalesTrend, 7)

	for i, point := range snap.SalesTrend {
		want := time.Date(2025, time.June, 9+i, 0, 0, 0, 0, time.UTC)
		assert.True(t, point.Day.Equal(want), "point %d: %v", i, point.Day)
	}

	// 1 today query (all statuses) + 7 trend queries (non-cancelled).
	require.Len(t, reader.dayQueries, 8)
	assert.True(t, reader.dayQueries[0].includeCancelled, "today count spans all statuses")
	for _, q := range reader.dayQueries[1:] {
		assert.False(t, q.includeCancelled, "trend day %v", q.day)
	}
}

func TestDashboard_ZeroAsOf_DefaultsToNow(t *testing.T) {
	engine := newTestEngine(&fakeReader{})
	actor := policy.Actor{UserID: "admin-1", Role: policy.RoleAdmin}

	before := time.Now()
	snap, err := engine.Dashboard(context.Background(), actor, time.Time{})
	require.NoError(t, err)
	assert.False(t, snap.AsOf.Before(before))
}

// =============================================================================
// EDGE CASES
// =============================================================================

func TestDashboard_ConversionRate(t *testing.T) {
	engine := newTestEngine(&fakeReader{})
	actor := policy.Actor{UserID: "admin-1", Role: policy.RoleAdmin}

	snap, err := engine.Dashboard(context.Background(), actor, asOf)
	require.NoError(t, err)
	require.NotNil(t, snap.Leads)
	// 2 converted of 8 total.
	assert.InDelta(t, 25.0, snap.Leads.ConversionRate, 0.0001)
}

func TestDashboard_NoLeads_ZeroConversionRate(t *testing.T) {
	// An empty pipeline reports 0%, never a division error.
	engine := newTestEngine(&fakeReader{noLeads: true})
	actor := policy.Actor{UserID: "admin-1", Role: policy.RoleAdmin}

	snap, err := engine.Dashboard(context.Background(), actor, asOf)
	require.NoError(t, err)
	require.NotNil(t, snap.Leads)
	assert.Zero(t, snap.Leads.Total)
	assert.Zero(t, snap.Leads.ConversionRate)
}

func TestDashboard_StorageFault_AbortsWholeSnapshot(t *testing.T) {
	// A partial dashboard would misreport; the whole call fails instead.
	engine := newTestEngine(&fakeReader{failEverything: true})
	actor := policy.Actor{UserID: "admin-1", Role: policy.RoleAdmin}

	snap, err := engine.Dashboard(context.Background(), actor, asOf)
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, ledger.ErrStorageFailure)
}
