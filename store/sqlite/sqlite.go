/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.TxStore (the payment engine's atomic surface),
  reporting.Reader (the dashboard queries), ledger.ActivityLogger, and
  the Save/List helpers the surrounding record-keeping workflows use.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  sales:        The one piece of mutable shared state (balance, status)
  payments:     Append-only money-received records
  projects, plots, clients, users, leads, site_visits:
                Surrounding records the aggregation layer reads
  activity_log: Append-only audit lines

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statement touches the payments or activity_log
  tables. The only sale mutation on the payment path is the combined
  balance/status write inside WithTx.

MONEY:
  Monetary columns are TEXT decimals written from decimal.Decimal, so
  the ledger path never loses precision. Reporting aggregates cast to
  REAL in SQL; that is a best-effort reporting view, not a ledger read.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety; WithTx holds the write lock for
  the whole transaction, so two concurrent payments against the same
  sale can never both validate against a stale balance. The lock is
  store-wide, so writes to unrelated sales serialize too - no worse
  than SQLite's single-writer model. In production with PostgreSQL,
  row-level SELECT ... FOR UPDATE handles this instead and unrelated
  sales proceed in parallel.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better
  concurrency and crash recovery.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store, store, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - reporting/dashboard.go: The Reader consumer
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/acrepoint/sales-ledger/ledger"
	"github.com/acrepoint/sales-ledger/policy"
	"github.com/acrepoint/sales-ledger/reporting"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS plots (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		plot_number TEXT NOT NULL,
		price TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'available'
	);

	CREATE INDEX IF NOT EXISTS idx_plots_project ON plots(project_id);
	CREATE INDEX IF NOT EXISTS idx_plots_status ON plots(status);

	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		phone TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active'
	);

	CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		full_name TEXT,
		assigned_to TEXT,
		status TEXT NOT NULL DEFAULT 'new',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leads_assigned ON leads(assigned_to);
	CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);

	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL REFERENCES clients(id),
		plot_id TEXT NOT NULL REFERENCES plots(id),
		agent_id TEXT NOT NULL REFERENCES users(id),
		sale_date TEXT NOT NULL,
		sale_price TEXT NOT NULL,
		deposit_amount TEXT NOT NULL DEFAULT '0',
		balance TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(sale_date);
	CREATE INDEX IF NOT EXISTS idx_sales_status ON sales(status);
	CREATE INDEX IF NOT EXISTS idx_sales_agent ON sales(agent_id);

	-- Payments (append-only; no UPDATE/DELETE anywhere in this package)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		sale_id TEXT NOT NULL REFERENCES sales(id),
		amount TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		reference_number TEXT,
		payment_date TEXT NOT NULL,
		received_by TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_sale ON payments(sale_id);
	CREATE INDEX IF NOT EXISTS idx_payments_date ON payments(payment_date);

	CREATE TABLE IF NOT EXISTS site_visits (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		title TEXT NOT NULL,
		visit_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled'
	);

	CREATE INDEX IF NOT EXISTS idx_site_visits_date ON site_visits(visit_date);

	CREATE TABLE IF NOT EXISTS activity_log (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		action TEXT NOT NULL,
		details TEXT,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx, so the same
// statements serve direct and transactional access.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// =============================================================================
// LEDGER STORE (ledger.Store / ledger.TxStore interfaces)
// =============================================================================

// GetSale returns the sale or ledger.ErrSaleNotFound.
func (s *Store) GetSale(ctx context.Context, id ledger.SaleID) (*ledger.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSale(ctx, s.db, id)
}

func getSale(ctx context.Context, q querier, id ledger.SaleID) (*ledger.Sale, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, client_id, plot_id, agent_id, sale_date, sale_price,
		       deposit_amount, balance, status, created_at
		FROM sales WHERE id = ?
	`, id)

	var (
		sale                                       ledger.Sale
		saleDate, price, deposit, balance, created string
	)
	err := row.Scan(&sale.ID, &sale.ClientID, &sale.PlotID, &sale.AgentID,
		&saleDate, &price, &deposit, &balance, &sale.Status, &created)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sale: %w", err)
	}

	if sale.SaleDate, err = parseDay("sale_date", saleDate); err != nil {
		return nil, err
	}
	if sale.SalePrice, err = parseMoney("sale_price", price); err != nil {
		return nil, err
	}
	if sale.DepositAmount, err = parseMoney("deposit_amount", deposit); err != nil {
		return nil, err
	}
	if sale.Balance, err = parseMoney("balance", balance); err != nil {
		return nil, err
	}
	if sale.CreatedAt, err = parseStamp("created_at", created); err != nil {
		return nil, err
	}
	return &sale, nil
}

// InsertPayment appends an immutable payment row.
func (s *Store) InsertPayment(ctx context.Context, p ledger.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertPayment(ctx, s.db, p)
}

func insertPayment(ctx context.Context, q querier, p ledger.Payment) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO payments
		(id, sale_id, amount, payment_method, reference_number, payment_date, received_by, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.SaleID, p.Amount.String(), p.Method,
		nullString(p.ReferenceNumber),
		p.PaymentDate.Format(dateLayout),
		p.RecordedBy,
		nullString(p.Notes),
		p.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// UpdateSaleBalance sets the sale's balance and status together.
func (s *Store) UpdateSaleBalance(ctx context.Context, id ledger.SaleID, balance decimal.Decimal, status ledger.SaleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateSaleBalance(ctx, s.db, id, balance, status)
}

func updateSaleBalance(ctx context.Context, q querier, id ledger.SaleID, balance decimal.Decimal, status ledger.SaleStatus) error {
	res, err := q.ExecContext(ctx,
		"UPDATE sales SET balance = ?, status = ? WHERE id = ?",
		balance.String(), status, id)
	if err != nil {
		return fmt.Errorf("failed to update sale balance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrSaleNotFound
	}
	return nil
}

// WithTx executes fn within a database transaction. The write lock is
// held for the duration, so the balance re-read inside fn and the
// decrement that follows are serialized against every other writer.
//
// The lock is store-wide, coarser than the per-sale serialization the
// engine needs: payments against unrelated sales also queue here. That
// matches SQLite's single-writer model, which would serialize them
// anyway. A PostgreSQL port would drop the mutex and take
// SELECT ... FOR UPDATE on the sale row, letting unrelated sales
// proceed in parallel.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore is the transactional view handed to WithTx callbacks.
// Reads see the transaction's own uncommitted writes.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetSale(ctx context.Context, id ledger.SaleID) (*ledger.Sale, error) {
	return getSale(ctx, ts.tx, id)
}

func (ts *txStore) InsertPayment(ctx context.Context, p ledger.Payment) error {
	return insertPayment(ctx, ts.tx, p)
}

func (ts *txStore) UpdateSaleBalance(ctx context.Context, id ledger.SaleID, balance decimal.Decimal, status ledger.SaleStatus) error {
	return updateSaleBalance(ctx, ts.tx, id, balance, status)
}

// =============================================================================
// REPORTING READER (reporting.Reader interface)
// =============================================================================

func (s *Store) ProjectCounts(ctx context.Context) (active, total int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0)
		FROM projects
	`).Scan(&total, &active)
	return active, total, err
}

func (s *Store) PlotCounts(ctx context.Context) (reporting.PlotStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		stats reporting.PlotStats
		value sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'available' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'booked' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'sold' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'available' THEN CAST(price AS REAL) ELSE 0 END), 0)
		FROM plots
	`).Scan(&stats.Total, &stats.Available, &stats.Booked, &stats.Sold, &value)
	if err != nil {
		return reporting.PlotStats{}, err
	}
	stats.AvailableValue = decimal.NewFromFloat(value.Float64)
	return stats, nil
}

func (s *Store) MonthlySales(ctx context.Context, month time.Time) (int, decimal.Decimal, decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		count             int
		revenue, deposits sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CAST(sale_price AS REAL)), 0),
		       COALESCE(SUM(CAST(deposit_amount AS REAL)), 0)
		FROM sales
		WHERE strftime('%Y-%m', sale_date) = ? AND status != 'cancelled'
	`, month.Format("2006-01")).Scan(&count, &revenue, &deposits)
	if err != nil {
		return 0, decimal.Zero, decimal.Zero, err
	}
	return count, decimal.NewFromFloat(revenue.Float64), decimal.NewFromFloat(deposits.Float64), nil
}

func (s *Store) SaleTotals(ctx context.Context) (int, decimal.Decimal, decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		count                int
		revenue, outstanding sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CAST(sale_price AS REAL)), 0),
		       COALESCE(SUM(CAST(balance AS REAL)), 0)
		FROM sales
		WHERE status != 'cancelled'
	`).Scan(&count, &revenue, &outstanding)
	if err != nil {
		return 0, decimal.Zero, decimal.Zero, err
	}
	return count, decimal.NewFromFloat(revenue.Float64), decimal.NewFromFloat(outstanding.Float64), nil
}

func (s *Store) SalesOnDay(ctx context.Context, day time.Time, includeCancelled bool) (int, decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COUNT(*), COALESCE(SUM(CAST(sale_price AS REAL)), 0)
		FROM sales WHERE sale_date = ?
	`
	if !includeCancelled {
		query += " AND status != 'cancelled'"
	}

	var (
		count   int
		revenue sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, query, day.Format(dateLayout)).Scan(&count, &revenue)
	if err != nil {
		return 0, decimal.Zero, err
	}
	return count, decimal.NewFromFloat(revenue.Float64), nil
}

func (s *Store) LeadCounts(ctx context.Context, scope policy.Scope) (total, fresh, converted int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'new' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'converted' THEN 1 ELSE 0 END), 0)
		FROM leads
	`
	var args []any
	if scope.AssignedTo != nil {
		query += " WHERE assigned_to = ?"
		args = append(args, *scope.AssignedTo)
	}

	err = s.db.QueryRowContext(ctx, query, args...).Scan(&total, &fresh, &converted)
	return total, fresh, converted, err
}

func (s *Store) ClientCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clients").Scan(&count)
	return count, err
}

func (s *Store) MonthlyPayments(ctx context.Context, month time.Time) (decimal.Decimal, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		total sql.NullFloat64
		count int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CAST(p.amount AS REAL)), 0), COUNT(p.id)
		FROM payments p
		JOIN sales s ON p.sale_id = s.id
		WHERE strftime('%Y-%m', p.payment_date) = ? AND s.status != 'cancelled'
	`, month.Format("2006-01")).Scan(&total, &count)
	if err != nil {
		return decimal.Zero, 0, err
	}
	return decimal.NewFromFloat(total.Float64), count, nil
}

func (s *Store) RecentSales(ctx context.Context, limit int) ([]reporting.SaleOverview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, c.full_name, p.plot_number, pr.name, u.full_name,
		       s.sale_date, s.sale_price, s.status
		FROM sales s
		JOIN clients c ON s.client_id = c.id
		JOIN plots p ON s.plot_id = p.id
		JOIN projects pr ON p.project_id = pr.id
		JOIN users u ON s.agent_id = u.id
		WHERE s.status != 'cancelled'
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []reporting.SaleOverview
	for rows.Next() {
		var (
			so              reporting.SaleOverview
			saleDate, price string
		)
		if err := rows.Scan(&so.SaleID, &so.ClientName, &so.PlotNumber, &so.ProjectName,
			&so.AgentName, &saleDate, &price, &so.Status); err != nil {
			return nil, err
		}
		if so.SaleDate, err = parseDay("sale_date", saleDate); err != nil {
			return nil, err
		}
		if so.SalePrice, err = parseMoney("sale_price", price); err != nil {
			return nil, err
		}
		sales = append(sales, so)
	}
	return sales, rows.Err()
}

func (s *Store) TopAgents(ctx context.Context, month time.Time, limit int) ([]reporting.AgentPerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.full_name, COUNT(s.id),
		       COALESCE(SUM(CAST(s.sale_price AS REAL)), 0) AS revenue
		FROM users u
		LEFT JOIN sales s ON s.agent_id = u.id
			AND strftime('%Y-%m', s.sale_date) = ?
			AND s.status != 'cancelled'
		WHERE u.role = 'sales_agent' AND u.status = 'active'
		GROUP BY u.id, u.full_name
		ORDER BY revenue DESC, u.full_name ASC
		LIMIT ?
	`, month.Format("2006-01"), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []reporting.AgentPerformance
	for rows.Next() {
		var (
			ap      reporting.AgentPerformance
			revenue sql.NullFloat64
		)
		if err := rows.Scan(&ap.AgentID, &ap.FullName, &ap.SalesCount, &revenue); err != nil {
			return nil, err
		}
		ap.Revenue = decimal.NewFromFloat(revenue.Float64)
		agents = append(agents, ap)
	}
	return agents, rows.Err()
}

func (s *Store) UpcomingSiteVisits(ctx context.Context, asOf time.Time, limit int) ([]reporting.VisitOverview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sv.id, sv.title, pr.name, sv.visit_date, sv.status
		FROM site_visits sv
		JOIN projects pr ON sv.project_id = pr.id
		WHERE sv.status = 'scheduled' AND sv.visit_date >= ?
		ORDER BY sv.visit_date ASC
		LIMIT ?
	`, asOf.UTC().Format(timeLayout), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []reporting.VisitOverview
	for rows.Next() {
		var (
			vo        reporting.VisitOverview
			visitDate string
		)
		if err := rows.Scan(&vo.VisitID, &vo.Title, &vo.ProjectName, &visitDate, &vo.Status); err != nil {
			return nil, err
		}
		if vo.VisitDate, err = parseStamp("visit_date", visitDate); err != nil {
			return nil, err
		}
		visits = append(visits, vo)
	}
	return visits, rows.Err()
}

// =============================================================================
// ACTIVITY LOG (ledger.ActivityLogger interface)
// =============================================================================

// LogActivity appends an audit line.
func (s *Store) LogActivity(ctx context.Context, userID ledger.UserID, action, details string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, user_id, action, details, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), userID, action, nullString(details), time.Now().UTC().Format(timeLayout))
	return err
}

// =============================================================================
// ENTITY HELPERS - Record-keeping workflows around the payment path
// =============================================================================

// SaveProject inserts or updates a project.
func (s *Store) SaveProject(ctx context.Context, p ledger.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, status, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status
	`, p.ID, p.Name, p.Status, createdAt(p.CreatedAt))
	return err
}

// SavePlot inserts or updates a plot.
func (s *Store) SavePlot(ctx context.Context, p ledger.Plot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plots (id, project_id, plot_number, price, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			price = excluded.price,
			status = excluded.status
	`, p.ID, p.ProjectID, p.PlotNumber, p.Price.String(), p.Status)
	return err
}

// SaveClient inserts or updates a client.
func (s *Store) SaveClient(ctx context.Context, c ledger.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, full_name, phone, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			phone = excluded.phone
	`, c.ID, c.FullName, nullString(c.Phone), createdAt(c.CreatedAt))
	return err
}

// SaveUser inserts or updates a user.
func (s *Store) SaveUser(ctx context.Context, u ledger.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, full_name, role, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			role = excluded.role,
			status = excluded.status
	`, u.ID, u.FullName, u.Role, u.Status)
	return err
}

// SaveLead inserts or updates a lead.
func (s *Store) SaveLead(ctx context.Context, l ledger.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var assigned any
	if l.AssignedTo != nil {
		assigned = string(*l.AssignedTo)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (id, full_name, assigned_to, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			assigned_to = excluded.assigned_to,
			status = excluded.status
	`, l.ID, nullString(l.FullName), assigned, l.Status, createdAt(l.CreatedAt))
	return err
}

// SaveSale inserts or updates a sale record. This serves the sale
// lifecycle workflow (creation, cancellation); the payment engine
// never calls it.
func (s *Store) SaveSale(ctx context.Context, sale ledger.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales
		(id, client_id, plot_id, agent_id, sale_date, sale_price, deposit_amount, balance, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			balance = excluded.balance,
			status = excluded.status
	`,
		sale.ID, sale.ClientID, sale.PlotID, sale.AgentID,
		sale.SaleDate.Format(dateLayout),
		sale.SalePrice.String(), sale.DepositAmount.String(), sale.Balance.String(),
		sale.Status, createdAt(sale.CreatedAt),
	)
	return err
}

// SaveSiteVisit inserts or updates a site visit.
func (s *Store) SaveSiteVisit(ctx context.Context, v ledger.SiteVisit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO site_visits (id, project_id, title, visit_date, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			visit_date = excluded.visit_date,
			status = excluded.status
	`, v.ID, v.ProjectID, v.Title, v.VisitDate.UTC().Format(timeLayout), v.Status)
	return err
}

// =============================================================================
// PAYMENT LISTING - Joined view for the payments screen
// =============================================================================

// PaymentDetail is a payment joined with its sale, client, plot, and
// receiver context.
type PaymentDetail struct {
	Payment        ledger.Payment
	SalePrice      decimal.Decimal
	SaleBalance    decimal.Decimal
	ClientName     string
	PlotNumber     string
	ProjectName    string
	ReceivedByName string
}

// ListPayments returns the most recent payments with display context,
// newest first, ties broken by identifier descending.
func (s *Store) ListPayments(ctx context.Context, limit int) ([]PaymentDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.sale_id, p.amount, p.payment_method, p.reference_number,
		       p.payment_date, p.received_by, p.notes, p.created_at,
		       s.sale_price, s.balance,
		       c.full_name, pl.plot_number, pr.name, u.full_name
		FROM payments p
		JOIN sales s ON p.sale_id = s.id
		JOIN clients c ON s.client_id = c.id
		JOIN plots pl ON s.plot_id = pl.id
		JOIN projects pr ON pl.project_id = pr.id
		JOIN users u ON p.received_by = u.id
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []PaymentDetail
	for rows.Next() {
		var (
			d                        PaymentDetail
			amount, payDate, created string
			reference, notes         sql.NullString
			salePrice, saleBalance   string
		)
		if err := rows.Scan(
			&d.Payment.ID, &d.Payment.SaleID, &amount, &d.Payment.Method, &reference,
			&payDate, &d.Payment.RecordedBy, &notes, &created,
			&salePrice, &saleBalance,
			&d.ClientName, &d.PlotNumber, &d.ProjectName, &d.ReceivedByName,
		); err != nil {
			return nil, err
		}
		if d.Payment.Amount, err = parseMoney("amount", amount); err != nil {
			return nil, err
		}
		d.Payment.ReferenceNumber = reference.String
		d.Payment.Notes = notes.String
		if d.Payment.PaymentDate, err = parseDay("payment_date", payDate); err != nil {
			return nil, err
		}
		if d.Payment.CreatedAt, err = parseStamp("created_at", created); err != nil {
			return nil, err
		}
		if d.SalePrice, err = parseMoney("sale_price", salePrice); err != nil {
			return nil, err
		}
		if d.SaleBalance, err = parseMoney("balance", saleBalance); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// PaymentsForSale returns all payments recorded against one sale,
// oldest first.
func (s *Store) PaymentsForSale(ctx context.Context, saleID ledger.SaleID) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, amount, payment_method, reference_number,
		       payment_date, received_by, notes, created_at
		FROM payments
		WHERE sale_id = ?
		ORDER BY created_at ASC, id ASC
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []ledger.Payment
	for rows.Next() {
		var (
			p                        ledger.Payment
			amount, payDate, created string
			reference, notes         sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.SaleID, &amount, &p.Method, &reference,
			&payDate, &p.RecordedBy, &notes, &created); err != nil {
			return nil, err
		}
		if p.Amount, err = parseMoney("amount", amount); err != nil {
			return nil, err
		}
		p.ReferenceNumber = reference.String
		p.Notes = notes.String
		if p.PaymentDate, err = parseDay("payment_date", payDate); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = parseStamp("created_at", created); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

// parseMoney, parseDay, and parseStamp fail loudly on corrupt rows.
// Coercing bad stored data to zero money or a zero time would hide the
// corruption from the ledger path.
func parseMoney(col, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("malformed %s %q: %w", col, s, err)
	}
	return d, nil
}

func parseDay(col, s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed %s %q: %w", col, s, err)
	}
	return t, nil
}

func parseStamp(col, s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed %s %q: %w", col, s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func createdAt(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}
