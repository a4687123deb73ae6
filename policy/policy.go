/*
Package policy provides the access policy gate.

PURPOSE:
  Maps (role, resource, action) to allow/deny and narrows which rows a
  role may see. The gate is a pure lookup over an immutable table:
  adding a role or resource is a data change, not a new branch at call
  sites.

FAIL-CLOSED, FAIL-SILENT-FOR-READS:
  A denied Authorize is not an error. Readers omit the gated metric;
  writers reject with ledger.ErrForbidden. Dashboards render partial
  statistics when a role lacks visibility into a domain.

ROW SCOPING:
  Beyond the yes/no check, ScopeFilter restricts WHICH rows a role may
  see. Today the one observed restriction is: a sales agent sees only
  leads assigned to them. Everything else is unrestricted.

SEE ALSO:
  - context.go: Actor identity threading
  - reporting: The gate's main consumer
*/
package policy

import "github.com/acrepoint/sales-ledger/ledger"

// =============================================================================
// OPEN ENUMERATIONS - New roles/resources need only table entries
// =============================================================================

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleSalesAgent Role = "sales_agent"
	RoleReception  Role = "reception"
)

type Resource string

const (
	ResourceProjects   Resource = "projects"
	ResourcePlots      Resource = "plots"
	ResourceSales      Resource = "sales"
	ResourceLeads      Resource = "leads"
	ResourceClients    Resource = "clients"
	ResourcePayments   Resource = "payments"
	ResourceSiteVisits Resource = "site_visits"
	ResourceReports    Resource = "reports"
	ResourceSettings   Resource = "settings"
	ResourceUsers      Resource = "users"
)

type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// =============================================================================
// PERMISSION TABLE
// =============================================================================

type permission struct {
	Role     Role
	Resource Resource
	Action   Action
}

// Table is an immutable permission set. Build it once at startup;
// concurrent readers need no synchronization.
type Table map[permission]struct{}

// Rule grants a set of actions on a resource to a role.
type Rule struct {
	Role     Role
	Resource Resource
	Actions  []Action
}

// NewTable builds a Table from rules.
func NewTable(rules []Rule) Table {
	t := make(Table)
	for _, r := range rules {
		for _, a := range r.Actions {
			t[permission{r.Role, r.Resource, a}] = struct{}{}
		}
	}
	return t
}

var allActions = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}

// DefaultTable is the stock permission matrix. Admin is all-access;
// manager runs the floor but cannot touch settings or user accounts;
// agents and reception get the screens their work needs.
func DefaultTable() Table {
	var rules []Rule

	for _, res := range []Resource{
		ResourceProjects, ResourcePlots, ResourceSales, ResourceLeads,
		ResourceClients, ResourcePayments, ResourceSiteVisits,
		ResourceReports, ResourceSettings, ResourceUsers,
	} {
		rules = append(rules, Rule{RoleAdmin, res, allActions})
	}

	rules = append(rules,
		Rule{RoleManager, ResourceProjects, allActions},
		Rule{RoleManager, ResourcePlots, allActions},
		Rule{RoleManager, ResourceSales, allActions},
		Rule{RoleManager, ResourceLeads, allActions},
		Rule{RoleManager, ResourceClients, allActions},
		Rule{RoleManager, ResourcePayments, allActions},
		Rule{RoleManager, ResourceSiteVisits, allActions},
		Rule{RoleManager, ResourceReports, []Action{ActionView}},
		Rule{RoleManager, ResourceUsers, []Action{ActionView}},

		Rule{RoleSalesAgent, ResourceProjects, []Action{ActionView}},
		Rule{RoleSalesAgent, ResourcePlots, []Action{ActionView}},
		Rule{RoleSalesAgent, ResourceSales, []Action{ActionView, ActionCreate}},
		Rule{RoleSalesAgent, ResourceLeads, []Action{ActionView, ActionCreate, ActionEdit}},
		Rule{RoleSalesAgent, ResourceClients, []Action{ActionView, ActionCreate}},
		Rule{RoleSalesAgent, ResourcePayments, []Action{ActionView}},
		Rule{RoleSalesAgent, ResourceSiteVisits, []Action{ActionView, ActionCreate}},

		Rule{RoleReception, ResourceProjects, []Action{ActionView}},
		Rule{RoleReception, ResourcePlots, []Action{ActionView}},
		Rule{RoleReception, ResourceLeads, []Action{ActionView, ActionCreate}},
		Rule{RoleReception, ResourceClients, []Action{ActionView, ActionCreate}},
		Rule{RoleReception, ResourcePayments, []Action{ActionView, ActionCreate}},
		Rule{RoleReception, ResourceSiteVisits, []Action{ActionView, ActionCreate}},
	)

	return NewTable(rules)
}

// =============================================================================
// GATE
// =============================================================================

// Gate answers authorization and row-scoping questions. Pure and
// stateless per call; safe for unlimited concurrent callers.
type Gate struct {
	table Table
}

func NewGate(table Table) *Gate {
	return &Gate{table: table}
}

// Authorize reports whether role may perform action on resource.
// Callers must check the boolean: readers omit the denied domain,
// writers reject with ledger.ErrForbidden.
func (g *Gate) Authorize(role Role, resource Resource, action Action) bool {
	_, ok := g.table[permission{role, resource, action}]
	return ok
}

// Scope is a row-level restriction within an otherwise-permitted
// resource. The zero Scope means "no restriction".
type Scope struct {
	// AssignedTo, when set, limits rows to those assigned to this user.
	AssignedTo *ledger.UserID
}

// Unrestricted reports whether the scope imposes no row filter.
func (s Scope) Unrestricted() bool {
	return s.AssignedTo == nil
}

// ScopeFilter returns the row restriction for (role, resource).
// A sales agent sees only leads assigned to them; every other observed
// combination is unrestricted.
func (g *Gate) ScopeFilter(role Role, userID ledger.UserID, resource Resource) Scope {
	if role == RoleSalesAgent && resource == ResourceLeads {
		return Scope{AssignedTo: &userID}
	}
	return Scope{}
}
