package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acrepoint/sales-ledger/ledger"
	"github.com/acrepoint/sales-ledger/policy"
	"github.com/acrepoint/sales-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// seedWorld creates a project, plot, client, and agent the sale rows
// can reference.
func seedWorld(t *testing.T, store *sqlite.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.SaveProject(ctx, ledger.Project{
		ID: "proj-1", Name: "Greenfield Gardens", Status: ledger.ProjectActive,
	}))
	require.NoError(t, store.SavePlot(ctx, ledger.Plot{
		ID: "plot-1", ProjectID: "proj-1", PlotNumber: "A-12",
		Price: ledger.MustDecimal("4500000"), Status: ledger.PlotBooked,
	}))
	require.NoError(t, store.SaveClient(ctx, ledger.Client{
		ID: "client-1", FullName: "Jane Buyer", Phone: "0700000001",
	}))
	require.NoError(t, store.SaveUser(ctx, ledger.User{
		ID: "agent-1", FullName: "Alice Agent", Role: "sales_agent", Status: ledger.UserActive,
	}))
}

func seedSale(t *testing.T, store *sqlite.Store, id string, saleDate time.Time, price, balance string, status ledger.SaleStatus) {
	t.Helper()
	require.NoError(t, store.SaveSale(context.Background(), ledger.Sale{
		ID:            ledger.SaleID(id),
		ClientID:      "client-1",
		PlotID:        "plot-1",
		AgentID:       "agent-1",
		SaleDate:      saleDate,
		SalePrice:     ledger.MustDecimal(price),
		DepositAmount: ledger.MustDecimal("0"),
		Balance:       ledger.MustDecimal(balance),
		Status:        status,
		CreatedAt:     time.Now().UTC(),
	}))
}

func testPayment(id, saleID, amount string, date time.Time) ledger.Payment {
	return ledger.Payment{
		ID:          ledger.PaymentID(id),
		SaleID:      ledger.SaleID(saleID),
		Amount:      ledger.MustDecimal(amount),
		Method:      ledger.MethodCash,
		PaymentDate: date,
		RecordedBy:  "agent-1",
		CreatedAt:   time.Now().UTC(),
	}
}

var march15 = time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)

// =============================================================================
// SALE ROUND-TRIP
// =============================================================================

func TestGetSale_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	seedWorld(t, store)
	seedSale(t, store, "sale-1", march15, "4500000", "3000000.50", ledger.SalePending)

	sale, err := store.GetSale(context.Background(), "sale-1")
	require.NoError(t, err)

	assert.Equal(t, ledger.SaleID("sale-1"), sale.ID)
	assert.True(t, sale.SalePrice.Equal(ledger.MustDecimal("4500000")))
	assert.True(t, sale.Balance.Equal(ledger.MustDecimal("3000000.50")), "balance = %v", sale.Balance)
	assert.Equal(t, ledger.SalePending, sale.Status)
	assert.Equal(t, "2025-03-15", sale.SaleDate.Format("2006-01-02"))
}

func TestGetSale_Missing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSale(context.Background(), "ghost")
	assert.ErrorIs(t, err, ledger.ErrSaleNotFound)
}

// =============================================================================
// TRANSACTION SEMANTICS
// =============================================================================

func TestWithTx_ErrorRollsEverythingBack(t *testing.T) {
	// GIVEN: A sale with 100,000 outstanding
	// WHEN: A callback inserts a payment, updates the balance, then fails
	// THEN: Neither write survives

	store := newTestStore(t)
	seedWorld(t, store)
	seedSale(t, store, "sale-1", march15, "4500000", "100000", ledger.SalePending)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.InsertPayment(ctx, testPayment("pay-1", "sale-1", "40000", march15)); err != nil {
			return err
		}
		if err := s.UpdateSaleBalance(ctx, "sale-1", ledger.MustDecimal("60000"), ledger.SalePending); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	sale, err := store.GetSale(ctx, "sale-1")
	require.NoError(t, err)
	assert.True(t, sale.Balance.Equal(ledger.MustDecimal("100000")), "balance = %v", sale.Balance)

	payments, err := store.PaymentsForSale(ctx, "sale-1")
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestWithTx_ReadsSeeUncommittedWrites(t *testing.T) {
	store := newTestStore(t)
	seedWorld(t, store)
	seedSale(t, store, "sale-1", march15, "4500000", "100000", ledger.SalePending)
	ctx := context.Background()

	err := store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.UpdateSaleBalance(ctx, "sale-1", ledger.MustDecimal("60000"), ledger.SalePending); err != nil {
			return err
		}
		sale, err := s.GetSale(ctx, "sale-1")
		if err != nil {
			return err
		}
		if !sale.Balance.Equal(ledger.MustDecimal("60000")) {
			return errors.New("in-tx read missed own write")
		}
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateSaleBalance_MissingSale(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateSaleBalance(context.Background(), "ghost", ledger.MustDecimal("0"), ledger.SaleCompleted)
	assert.ErrorIs(t, err, ledger.ErrSaleNotFound)
}

// =============================================================================
// REPORTING QUERIES
// =============================================================================

func TestMonthlySales_ExcludesCancelledAndOtherMonths(t *testing.T) {
	store := newTestStore(t)
	seedWorld(t, store)
	seedSale(t, store, "sale-mar-1", march15, "1000000", "1000000", ledger.SalePending)
	seedSale(t, store, "sale-mar-2", march15.AddDate(0, 0, 5), "2000000", "0", ledger.SaleCompleted)
	seedSale(t, store, "sale-mar-x", march15, "9000000", "9000000", ledger.SaleCancelled)
	seedSale(t, store, "sale-apr", march15.AddDate(0, 1, 0), "5000000", "5000000", ledger.SalePending)

	count, revenue, _, err := store.MonthlySales(context.Background(), march15)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, revenue.Equal(ledger.MustDecimal("3000000")), "revenue = %v", revenue)
}

func TestSalesOnDay_CancelledToggle(t *testing.T) {
	store := newTestStore(t)
	seedWorld(t, store)
	seedSale(t, store, "sale-1", march15, "1000000", "1000000", ledger.SalePending)
	seedSale(t, store, "sale-2", march15, "2000000", "2000000", ledger.SaleCancelled)
	ctx := context.Background()

	all, _, err := store.SalesOnDay(ctx, march15, true)
	require.NoError(t, err)
	assert.Equal(t, 2, all)

	live, _, err := store.SalesOnDay(ctx, march15, false)
	require.NoError(t, err)
	assert.Equal(t, 1, live)
}

func TestSaleTotals_OutstandingBalance(t *testing.T) {
	store := newTestStore(t)
	seedWorld(t, store)
	seedSale(t, store, "sale-1", march15, "1000000", "400000", ledger.SalePending)
	seedSale(t, store, "sale-2", march15, "2000000", "0", ledger.SaleCompleted)
	seedSale(t, store, "sale-3", march15, "9000000", "9000000", ledger.SaleCancelled)

	count, revenue, outstanding, err := store.SaleTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, revenue.Equal(ledger.MustDecimal("3000000")))
	assert.True(t, outstanding.Equal(ledger.MustDecimal("400000")), "outstanding = %v", outstanding)
}

func TestLeadCounts_ScopeRestriction(t *testing.T) {
	// GIVEN: Three leads, two assigned to agent-1
	// WHEN: Counting unrestricted vs scoped to agent-1
	// THEN: 3 total vs 2 total

	store := newTestStore(t)
	ctx := context.Background()
	agent := ledger.UserID("agent-1")

	mkLead := func(id string, assignee *ledger.UserID, status ledger.LeadStatus) {
		require.NoError(t, store.SaveLead(ctx, ledger.Lead{
			ID: ledger.LeadID(id), FullName: "Lead " + id, AssignedTo: assignee, Status: status,
		}))
	}
	mkLead("lead-1", &agent, ledger.LeadNew)
	mkLead("lead-2", &agent, ledger.LeadConverted)
	mkLead("lead-3", nil, ledger.LeadNew)

	total, fresh, converted, err := store.LeadCounts(ctx, policy.Scope{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, fresh)
	assert.Equal(t, 1, converted)

	total, fresh, converted, err = store.LeadCounts(ctx, policy.Scope{AssignedTo: &agent})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, fresh)
	assert.Equal(t, 1, converted)
}

func TestTopAgents_RanksByRevenueWithZeroRows(t *testing.T) {
	// GIVEN: Two active agents, one with sales this month, plus an
	//        inactive agent and a manager
	// WHEN: The leaderboard is computed
	// THEN: Revenue descending; the zero-revenue agent still appears;
	//       the inactive agent and the manager do not

	store := newTestStore(t)
	seedWorld(t, store)
	ctx := context.Background()

	require.NoError(t, store.SaveUser(ctx, ledger.User{ID: "agent-2", FullName: "Bob Agent", Role: "sales_agent", Status: ledger.UserActive}))
	require.NoError(t, store.SaveUser(ctx, ledger.User{ID: "agent-3", FullName: "Carol Gone", Role: "sales_agent", Status: ledger.UserInactive}))
	require.NoError(t, store.SaveUser(ctx, ledger.User{ID: "mgr-1", FullName: "Mia Manager", Role: "manager", Status: ledger.UserActive}))

	seedSale(t, store, "sale-1", march15, "3000000", "3000000", ledger.SalePending)

	agents, err := store.TopAgents(ctx, march15, 5)
	require.NoError(t, err)
	require.Len(t, agents, 2)

	assert.Equal(t, ledger.UserID("agent-1"), agents[0].AgentID)
	assert.Equal(t, 1, agents[0].SalesCount)
	assert.True(t, agents[0].Revenue.Equal(ledger.MustDecimal("3000000")))

	assert.Equal(t, ledger.UserID("agent-2"), agents[1].AgentID)
	assert.Zero(t, agents[1].SalesCount)
	assert.True(t, agents[1].Revenue.IsZero())
}

func TestRecentSales_NewestFirstJoined(t *testing.T) {
	store := newTestStore(t)
	seedWorld(t, store)
	ctx := context.Background()

	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"sale-old", "sale-mid", "sale-new"} {
		require.NoError(t, store.SaveSale(ctx, ledger.Sale{
			ID: ledger.SaleID(id), ClientID: "client-1", PlotID: "plot-1", AgentID: "agent-1",
			SaleDate:  march15,
			SalePrice: ledger.MustDecimal("1000000"), DepositAmount: ledger.MustDecimal("0"),
			Balance: ledger.MustDecimal("1000000"), Status: ledger.SalePending,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	recent, err := store.RecentSales(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ledger.SaleID("sale-new"), recent[0].SaleID)
	assert.Equal(t, ledger.SaleID("sale-mid"), recent[1].SaleID)
	assert.Equal(t, "Jane Buyer", recent[0].ClientName)
	assert.Equal(t, "A-12", recent[0].PlotNumber)
	assert.Equal(t, "Greenfield Gardens", recent[0].ProjectName)
	assert.Equal(t, "Alice Agent", recent[0].AgentName)
}

func TestUpcomingSiteVisits_ScheduledOnOrAfter(t *testing.T) {
	store := newTestStore(t)
	seedWorld(t, store)
	ctx := context.Background()

	asOf := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	mkVisit := func(id string, at time.Time, status ledger.VisitStatus) {
		require.NoError(t, store.SaveSiteVisit(ctx, ledger.SiteVisit{
			ID: ledger.VisitID(id), ProjectID: "proj-1", Title: "Visit " + id, VisitDate: at, Status: status,
		}))
	}
	mkVisit("past", asOf.Add(-24*time.Hour), ledger.VisitScheduled)
	mkVisit("soon", asOf.Add(2*time.Hour), ledger.VisitScheduled)
	mkVisit("later", asOf.Add(72*time.Hour), ledger.VisitScheduled)
	mkVisit("cancelled", asOf.Add(5*time.Hour), ledger.VisitCancelled)

	visits, err := store.UpcomingSiteVisits(ctx, asOf, 5)
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, ledger.VisitID("soon"), visits[0].VisitID)
	assert.Equal(t, ledger.VisitID("later"), visits[1].VisitID)
}

// =============================================================================
// PAYMENT LISTING AND ACTIVITY
// =============================================================================

func TestListPayments_JoinedNewestFirst(t *testing.T) {
	store := newTestStore(t)
	seedWorld(t, store)
	seedSale(t, store, "sale-1", march15, "4500000", "3000000", ledger.SalePending)
	ctx := context.Background()

	p1 := testPayment("pay-1", "sale-1", "500000", march15)
	p1.CreatedAt = march15.Add(1 * time.Hour)
	p2 := testPayment("pay-2", "sale-1", "1000000", march15.AddDate(0, 0, 1))
	p2.CreatedAt = march15.Add(2 * time.Hour)
	require.NoError(t, store.InsertPayment(ctx, p1))
	require.NoError(t, store.InsertPayment(ctx, p2))

	details, err := store.ListPayments(ctx, 10)
	require.NoError(t, err)
	require.Len(t, details, 2)

	assert.Equal(t, ledger.PaymentID("pay-2"), details[0].Payment.ID)
	assert.True(t, details[0].Payment.Amount.Equal(ledger.MustDecimal("1000000")))
	assert.Equal(t, "Jane Buyer", details[0].ClientName)
	assert.Equal(t, "Alice Agent", details[0].ReceivedByName)
	assert.True(t, details[0].SalePrice.Equal(ledger.MustDecimal("4500000")))
}

func TestMonthlyPayments_FiltersByMonth(t *testing.T) {
	store := newTestStore(t)
	seedWorld(t, store)
	seedSale(t, store, "sale-1", march15, "4500000", "4500000", ledger.SalePending)
	ctx := context.Background()

	require.NoError(t, store.InsertPayment(ctx, testPayment("pay-mar", "sale-1", "250000", march15)))
	require.NoError(t, store.InsertPayment(ctx, testPayment("pay-apr", "sale-1", "990000", march15.AddDate(0, 1, 0))))

	total, count, err := store.MonthlyPayments(ctx, march15)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.True(t, total.Equal(ledger.MustDecimal("250000")), "total = %v", total)
}

func TestMonthlyPayments_ExcludesCancelledSalePayments(t *testing.T) {
	// GIVEN: A March payment whose parent sale is later cancelled
	// WHEN: The monthly payment aggregate is computed
	// THEN: The orphaned money no longer counts

	store := newTestStore(t)
	seedWorld(t, store)
	seedSale(t, store, "sale-1", march15, "4500000", "4500000", ledger.SalePending)
	ctx := context.Background()

	require.NoError(t, store.InsertPayment(ctx, testPayment("pay-1", "sale-1", "250000", march15)))

	total, count, err := store.MonthlyPayments(ctx, march15)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Cancel the parent sale (lifecycle workflow upsert).
	seedSale(t, store, "sale-1", march15, "4500000", "4250000", ledger.SaleCancelled)

	total, count, err = store.MonthlyPayments(ctx, march15)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.True(t, total.IsZero(), "total = %v", total)
}

func TestLogActivity_Appends(t *testing.T) {
	store := newTestStore(t)
	seedWorld(t, store)

	err := store.LogActivity(context.Background(), "agent-1", "Record Payment", "Recorded payment of 100.00 against sale sale-1")
	require.NoError(t, err)
}
