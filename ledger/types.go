/*
Package ledger provides the core sales-ledger engine.

PURPOSE:
  This package contains the data model and the payment application
  engine for a plot-sales back office. A Sale carries a fixed price and
  a mutable outstanding balance; Payments are immutable records applied
  against that balance until the sale completes.

KEY CONCEPTS IN THIS FILE (types.go):
  - Sale: A contract for one plot, with a running balance
  - Payment: An immutable record of money received against a sale
  - Plot/Project/Client/Lead/User/SiteVisit: Surrounding records the
    aggregation layer reads
  - Typed IDs: Prevent mixing sale/payment/user identifiers

DESIGN PRINCIPLES:
  1. Immutability: Payments are never edited; corrections would be new
     compensating records
  2. Precision: Uses decimal.Decimal for money, never floats
  3. Single writer: Sale balance and status are mutated only by the
     payment engine, inside one storage transaction

SEE ALSO:
  - engine.go: Payment application algorithm
  - store.go: Persistence interfaces
  - errors.go: Error taxonomy
*/
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	SaleID    string
	PaymentID string
	PlotID    string
	ProjectID string
	ClientID  string
	UserID    string
	LeadID    string
	VisitID   string
)

// MustDecimal parses a decimal literal, panicking on malformed input.
// For fixed literals in tests and seed data; runtime parsing goes
// through decimal.NewFromString so malformed input surfaces as an
// error, not a panic or a silent zero.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("malformed decimal literal %q: %v", s, err))
	}
	return d
}

// =============================================================================
// SALE - A contract to purchase a plot
// =============================================================================

type SaleStatus string

const (
	SalePending   SaleStatus = "pending"
	SaleCompleted SaleStatus = "completed"
	SaleCancelled SaleStatus = "cancelled"
)

// Sale is created with Balance == SalePrice by the sale lifecycle
// workflow. Balance and Status are thereafter owned by the payment
// engine; cancellation is the one external mutation.
//
// INVARIANT: Balance == SalePrice - sum of applied payment amounts,
// and Balance >= 0, after every successful ApplyPayment.
type Sale struct {
	ID            SaleID
	ClientID      ClientID
	PlotID        PlotID
	AgentID       UserID
	SaleDate      time.Time
	SalePrice     decimal.Decimal
	DepositAmount decimal.Decimal
	Balance       decimal.Decimal
	Status        SaleStatus
	CreatedAt     time.Time
}

// =============================================================================
// PAYMENT - Immutable record of money received
// =============================================================================

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCheque       PaymentMethod = "cheque"
	MethodMobileMoney  PaymentMethod = "mobile_money"
	MethodCard         PaymentMethod = "card"
)

// Valid reports whether m is one of the enumerated payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodCheque, MethodMobileMoney, MethodCard:
		return true
	}
	return false
}

// Payment records money received against exactly one sale.
// Payments are append-only: no update, no delete, ever.
type Payment struct {
	ID              PaymentID
	SaleID          SaleID
	Amount          decimal.Decimal
	Method          PaymentMethod
	ReferenceNumber string
	PaymentDate     time.Time
	RecordedBy      UserID
	Notes           string
	CreatedAt       time.Time
}

// =============================================================================
// INVENTORY - Projects and plots
// =============================================================================

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOnHold    ProjectStatus = "on_hold"
)

type Project struct {
	ID        ProjectID
	Name      string
	Status    ProjectStatus
	CreatedAt time.Time
}

type PlotStatus string

const (
	PlotAvailable PlotStatus = "available"
	PlotBooked    PlotStatus = "booked"
	PlotSold      PlotStatus = "sold"
)

// Plot is a sellable unit of land. Status follows the sale lifecycle
// but is written by an external collaborator, never by this engine.
type Plot struct {
	ID         PlotID
	ProjectID  ProjectID
	PlotNumber string
	Price      decimal.Decimal
	Status     PlotStatus
}

// =============================================================================
// PEOPLE - Clients, users, leads
// =============================================================================

type Client struct {
	ID        ClientID
	FullName  string
	Phone     string
	CreatedAt time.Time
}

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

// User is an internal actor (agent, manager, ...). Role is the policy
// package's open enumeration stored as plain text here to keep the
// data model free of a policy dependency.
type User struct {
	ID       UserID
	FullName string
	Role     string
	Status   UserStatus
}

type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadQualified LeadStatus = "qualified"
	LeadConverted LeadStatus = "converted"
	LeadLost      LeadStatus = "lost"
)

// Lead is read-only from this core; only the aggregation layer
// consumes it. AssignedTo is nil for unassigned leads.
type Lead struct {
	ID         LeadID
	FullName   string
	AssignedTo *UserID
	Status     LeadStatus
	CreatedAt  time.Time
}

// =============================================================================
// SITE VISITS
// =============================================================================

type VisitStatus string

const (
	VisitScheduled VisitStatus = "scheduled"
	VisitCompleted VisitStatus = "completed"
	VisitCancelled VisitStatus = "cancelled"
)

type SiteVisit struct {
	ID        VisitID
	ProjectID ProjectID
	Title     string
	VisitDate time.Time
	Status    VisitStatus
}
