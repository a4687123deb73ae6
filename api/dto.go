/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract,
  allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Monetary fields travel as decimal strings ("1500000.00"), never as
  JSON numbers, so clients cannot silently lose precision.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/acrepoint/sales-ledger/ledger"
	"github.com/acrepoint/sales-ledger/reporting"
	"github.com/acrepoint/sales-ledger/store/sqlite"
)

const dateLayout = "2006-01-02"

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// RecordPaymentRequest is the request to apply a payment to a sale.
type RecordPaymentRequest struct {
	SaleID          string `json:"sale_id"`
	Amount          string `json:"amount"`
	PaymentMethod   string `json:"payment_method"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	PaymentDate     string `json:"payment_date"`
	Notes           string `json:"notes,omitempty"`
}

// PaymentDTO represents an applied payment in API responses.
type PaymentDTO struct {
	ID              string `json:"id"`
	SaleID          string `json:"sale_id"`
	Amount          string `json:"amount"`
	PaymentMethod   string `json:"payment_method"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	PaymentDate     string `json:"payment_date"`
	RecordedBy      string `json:"recorded_by"`
	Notes           string `json:"notes,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// PaymentListItemDTO is a payment joined with its display context for
// the payments screen.
type PaymentListItemDTO struct {
	PaymentDTO
	ClientName     string `json:"client_name"`
	PlotNumber     string `json:"plot_number"`
	ProjectName    string `json:"project_name"`
	ReceivedByName string `json:"received_by_name"`
	SalePrice      string `json:"sale_price"`
	SaleBalance    string `json:"sale_balance"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// DASHBOARD TYPES - Absent groups are omitted, never zero-filled
// =============================================================================

// DashboardDTO mirrors reporting.Snapshot. A group the acting role
// cannot see is absent from the JSON entirely.
type DashboardDTO struct {
	AsOf string `json:"as_of"`

	Projects     *ProjectStatsDTO `json:"projects,omitempty"`
	Plots        *PlotStatsDTO    `json:"plots,omitempty"`
	Sales        *SaleStatsDTO    `json:"sales,omitempty"`
	Leads        *LeadStatsDTO    `json:"leads,omitempty"`
	TotalClients *int             `json:"total_clients,omitempty"`
	Payments     *PaymentStatsDTO `json:"payments,omitempty"`

	RecentSales    []SaleOverviewDTO     `json:"recent_sales,omitempty"`
	TopAgents      []AgentPerformanceDTO `json:"top_agents,omitempty"`
	SalesTrend     []TrendPointDTO       `json:"sales_trend,omitempty"`
	UpcomingVisits []VisitOverviewDTO    `json:"upcoming_site_visits,omitempty"`
}

type ProjectStatsDTO struct {
	Active int `json:"active"`
	Total  int `json:"total"`
}

type PlotStatsDTO struct {
	Total          int    `json:"total"`
	Available      int    `json:"available"`
	Booked         int    `json:"booked"`
	Sold           int    `json:"sold"`
	AvailableValue string `json:"available_value"`
}

type SaleStatsDTO struct {
	MonthlySales       int    `json:"monthly_sales"`
	MonthlyRevenue     string `json:"monthly_revenue"`
	MonthlyDeposits    string `json:"monthly_deposits"`
	TotalSales         int    `json:"total_sales"`
	TotalRevenue       string `json:"total_revenue"`
	OutstandingBalance string `json:"outstanding_balance"`
	TodaySales         int    `json:"today_sales"`
}

type LeadStatsDTO struct {
	Total          int     `json:"total"`
	New            int     `json:"new"`
	Converted      int     `json:"converted"`
	ConversionRate float64 `json:"conversion_rate"`
}

type PaymentStatsDTO struct {
	MonthlyTotal string `json:"monthly_total"`
	MonthlyCount int    `json:"monthly_count"`
}

type SaleOverviewDTO struct {
	SaleID      string `json:"sale_id"`
	ClientName  string `json:"client_name"`
	PlotNumber  string `json:"plot_number"`
	ProjectName string `json:"project_name"`
	AgentName   string `json:"agent_name"`
	SaleDate    string `json:"sale_date"`
	SalePrice   string `json:"sale_price"`
	Status      string `json:"status"`
}

type AgentPerformanceDTO struct {
	AgentID    string `json:"agent_id"`
	FullName   string `json:"full_name"`
	SalesCount int    `json:"sales_count"`
	Revenue    string `json:"revenue"`
}

type TrendPointDTO struct {
	Day     string `json:"day"`
	Count   int    `json:"count"`
	Revenue string `json:"revenue"`
}

type VisitOverviewDTO struct {
	VisitID     string `json:"visit_id"`
	Title       string `json:"title"`
	ProjectName string `json:"project_name"`
	VisitDate   string `json:"visit_date"`
	Status      string `json:"status"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toPaymentDTO(p *ledger.Payment) PaymentDTO {
	return PaymentDTO{
		ID:              string(p.ID),
		SaleID:          string(p.SaleID),
		Amount:          money(p.Amount),
		PaymentMethod:   string(p.Method),
		ReferenceNumber: p.ReferenceNumber,
		PaymentDate:     p.PaymentDate.Format(dateLayout),
		RecordedBy:      string(p.RecordedBy),
		Notes:           p.Notes,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
}

func toPaymentListItemDTO(d sqlite.PaymentDetail) PaymentListItemDTO {
	return PaymentListItemDTO{
		PaymentDTO:     toPaymentDTO(&d.Payment),
		ClientName:     d.ClientName,
		PlotNumber:     d.PlotNumber,
		ProjectName:    d.ProjectName,
		ReceivedByName: d.ReceivedByName,
		SalePrice:      money(d.SalePrice),
		SaleBalance:    money(d.SaleBalance),
	}
}

func toDashboardDTO(s *reporting.Snapshot) DashboardDTO {
	dto := DashboardDTO{
		AsOf:         s.AsOf.Format(time.RFC3339),
		TotalClients: s.TotalClients,
	}

	if s.Projects != nil {
		dto.Projects = &ProjectStatsDTO{Active: s.Projects.Active, Total: s.Projects.Total}
	}
	if s.Plots != nil {
		dto.Plots = &PlotStatsDTO{
			Total:          s.Plots.Total,
			Available:      s.Plots.Available,
			Booked:         s.Plots.Booked,
			Sold:           s.Plots.Sold,
			AvailableValue: money(s.Plots.AvailableValue),
		}
	}
	if s.Sales != nil {
		dto.Sales = &SaleStatsDTO{
			MonthlySales:       s.Sales.MonthlySales,
			MonthlyRevenue:     money(s.Sales.MonthlyRevenue),
			MonthlyDeposits:    money(s.Sales.MonthlyDeposits),
			TotalSales:         s.Sales.TotalSales,
			TotalRevenue:       money(s.Sales.TotalRevenue),
			OutstandingBalance: money(s.Sales.OutstandingBalance),
			TodaySales:         s.Sales.TodaySales,
		}
	}
	if s.Leads != nil {
		dto.Leads = &LeadStatsDTO{
			Total:          s.Leads.Total,
			New:            s.Leads.New,
			Converted:      s.Leads.Converted,
			ConversionRate: s.Leads.ConversionRate,
		}
	}
	if s.Payments != nil {
		dto.Payments = &PaymentStatsDTO{
			MonthlyTotal: money(s.Payments.MonthlyTotal),
			MonthlyCount: s.Payments.MonthlyCount,
		}
	}

	for _, so := range s.RecentSales {
		dto.RecentSales = append(dto.RecentSales, SaleOverviewDTO{
			SaleID:      string(so.SaleID),
			ClientName:  so.ClientName,
			PlotNumber:  so.PlotNumber,
			ProjectName: so.ProjectName,
			AgentName:   so.AgentName,
			SaleDate:    so.SaleDate.Format(dateLayout),
			SalePrice:   money(so.SalePrice),
			Status:      string(so.Status),
		})
	}
	for _, ap := range s.TopAgents {
		dto.TopAgents = append(dto.TopAgents, AgentPerformanceDTO{
			AgentID:    string(ap.AgentID),
			FullName:   ap.FullName,
			SalesCount: ap.SalesCount,
			Revenue:    money(ap.Revenue),
		})
	}
	for _, tp := range s.SalesTrend {
		dto.SalesTrend = append(dto.SalesTrend, TrendPointDTO{
			Day:     tp.Day.Format(dateLayout),
			Count:   tp.Count,
			Revenue: money(tp.Revenue),
		})
	}
	for _, vo := range s.UpcomingVisits {
		dto.UpcomingVisits = append(dto.UpcomingVisits, VisitOverviewDTO{
			VisitID:     string(vo.VisitID),
			Title:       vo.Title,
			ProjectName: vo.ProjectName,
			VisitDate:   vo.VisitDate.Format(time.RFC3339),
			Status:      string(vo.Status),
		})
	}

	return dto
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
