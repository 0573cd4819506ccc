// Package analytics aggregates tenant invoicing, expense and project data
// into dashboard figures.
package analytics

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/goliatone/go-contractor/internal/clients"
	"github.com/goliatone/go-contractor/internal/expenses"
	"github.com/goliatone/go-contractor/internal/invoices"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/internal/permissions"
	"github.com/goliatone/go-contractor/internal/projects"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/google/uuid"
)

const (
	DefaultMonths = 12
	MaxMonths     = 36
	TopClientsMax = 5
)

var ErrMonthsOutOfRange = errors.New("analytics: months must be between 1 and 36")

// Aging bucket labels.
const (
	BucketCurrent = "current"
	Bucket1To30   = "1-30"
	Bucket31To60  = "31-60"
	Bucket61To90  = "61-90"
	BucketOver90  = "90+"
)

// AgingBuckets lists bucket labels in display order.
var AgingBuckets = []string{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, BucketOver90}

type InvoiceSource interface {
	List(ctx context.Context, tenantID uuid.UUID, opts invoices.ListOptions) ([]*invoices.Invoice, int, error)
}

type ExpenseSource interface {
	List(ctx context.Context, tenantID uuid.UUID, opts expenses.ListOptions) ([]*expenses.Expense, int, error)
}

type ProjectSource interface {
	List(ctx context.Context, tenantID uuid.UUID, opts projects.ListOptions) ([]*projects.Project, int, error)
}

type ClientSource interface {
	List(ctx context.Context, tenantID uuid.UUID, opts clients.ListOptions) ([]*clients.Client, int, error)
}

// MonthlyAmount is a per-month total keyed YYYY-MM.
type MonthlyAmount struct {
	Month  string `json:"month"`
	Amount int64  `json:"amount"`
}

type ProjectSummary struct {
	ProjectID     uuid.UUID       `json:"project_id"`
	Name          string          `json:"name"`
	Status        projects.Status `json:"status"`
	Budget        int64           `json:"budget"`
	Invoiced      int64           `json:"invoiced"`
	Collected     int64           `json:"collected"`
	Expenses      int64           `json:"expenses"`
	Margin        int64           `json:"margin"`
	BudgetUsedPct float64         `json:"budget_used_pct"`
}

type ClientRevenue struct {
	ClientID  uuid.UUID `json:"client_id"`
	Name      string    `json:"name"`
	Collected int64     `json:"collected"`
}

// Dashboard is the tenant overview. Amounts are in cents.
type Dashboard struct {
	AsOf               time.Time        `json:"as_of"`
	Revenue            []MonthlyAmount  `json:"revenue"`
	Outstanding        int64            `json:"outstanding"`
	Overdue            int64            `json:"overdue"`
	Aging              map[string]int64 `json:"aging"`
	InvoiceCounts      map[string]int   `json:"invoice_counts"`
	ExpensesByCategory map[string]int64 `json:"expenses_by_category"`
	TotalExpenses      int64            `json:"total_expenses"`
	Projects           []ProjectSummary `json:"projects"`
	TopClients         []ClientRevenue  `json:"top_clients"`
}

// Service computes dashboards for the context tenant.
type Service interface {
	Dashboard(ctx context.Context, asOf time.Time, months int) (*Dashboard, error)
}

type ServiceOption func(*service)

func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type service struct {
	invoices InvoiceSource
	expenses ExpenseSource
	projects ProjectSource
	clients  ClientSource
	logger   interfaces.Logger
}

func NewService(invoiceSource InvoiceSource, expenseSource ExpenseSource, projectSource ProjectSource, clientSource ClientSource, opts ...ServiceOption) Service {
	s := &service{
		invoices: invoiceSource,
		expenses: expenseSource,
		projects: projectSource,
		clients:  clientSource,
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Dashboard(ctx context.Context, asOf time.Time, months int) (*Dashboard, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceAnalytics, permissions.ActionRead); err != nil {
		return nil, err
	}
	if months == 0 {
		months = DefaultMonths
	}
	if months < 1 || months > MaxMonths {
		return nil, ErrMonthsOutOfRange
	}
	asOf = asOf.UTC()
	today := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	invoiceList, _, err := s.invoices.List(ctx, tenantID, invoices.ListOptions{})
	if err != nil {
		return nil, err
	}
	expenseList, _, err := s.expenses.List(ctx, tenantID, expenses.ListOptions{})
	if err != nil {
		return nil, err
	}
	projectList, _, err := s.projects.List(ctx, tenantID, projects.ListOptions{})
	if err != nil {
		return nil, err
	}
	clientList, _, err := s.clients.List(ctx, tenantID, clients.ListOptions{})
	if err != nil {
		return nil, err
	}

	dash := &Dashboard{
		AsOf:               asOf,
		Revenue:            monthWindow(today, months),
		Aging:              make(map[string]int64, len(AgingBuckets)),
		InvoiceCounts:      make(map[string]int, len(invoices.Transitions)),
		ExpensesByCategory: make(map[string]int64, len(expenses.Categories)),
		Projects:           []ProjectSummary{},
		TopClients:         []ClientRevenue{},
	}
	for _, bucket := range AgingBuckets {
		dash.Aging[bucket] = 0
	}
	for status := range invoices.Transitions {
		dash.InvoiceCounts[string(status)] = 0
	}
	for _, category := range expenses.Categories {
		dash.ExpensesByCategory[string(category)] = 0
	}

	monthIndex := make(map[string]int, len(dash.Revenue))
	for i, month := range dash.Revenue {
		monthIndex[month.Month] = i
	}

	type projectTotals struct {
		invoiced, collected, expenses int64
	}
	byProject := map[uuid.UUID]*projectTotals{}
	projectTotal := func(id uuid.UUID) *projectTotals {
		totals, ok := byProject[id]
		if !ok {
			totals = &projectTotals{}
			byProject[id] = totals
		}
		return totals
	}
	collectedByClient := map[uuid.UUID]int64{}

	for _, inv := range invoiceList {
		dash.InvoiceCounts[string(inv.Status)]++
		// Money received before a void was still collected.
		for _, payment := range inv.Payments {
			if idx, ok := monthIndex[payment.ReceivedAt.UTC().Format("2006-01")]; ok {
				dash.Revenue[idx].Amount += payment.Amount
			}
		}
		collectedByClient[inv.ClientID] += inv.AmountPaid
		if inv.ProjectID != nil {
			totals := projectTotal(*inv.ProjectID)
			if inv.Status != invoices.StatusDraft && inv.Status != invoices.StatusVoid {
				totals.invoiced += inv.Total
			}
			totals.collected += inv.AmountPaid
		}
		if !inv.Status.Open() {
			continue
		}
		due := inv.AmountDue()
		dash.Outstanding += due
		bucket := agingBucket(today, inv.DueDate)
		dash.Aging[bucket] += due
		if bucket != BucketCurrent {
			dash.Overdue += due
		}
	}

	for _, expense := range expenseList {
		dash.ExpensesByCategory[string(expense.Category)] += expense.Amount
		dash.TotalExpenses += expense.Amount
		if expense.ProjectID != nil {
			projectTotal(*expense.ProjectID).expenses += expense.Amount
		}
	}

	for _, project := range projectList {
		totals := projectTotal(project.ID)
		summary := ProjectSummary{
			ProjectID: project.ID,
			Name:      project.Name,
			Status:    project.Status,
			Budget:    project.Budget,
			Invoiced:  totals.invoiced,
			Collected: totals.collected,
			Expenses:  totals.expenses,
			Margin:    totals.collected - totals.expenses,
		}
		if project.Budget > 0 {
			summary.BudgetUsedPct = math.Round(float64(totals.expenses)*10000/float64(project.Budget)) / 100
		}
		dash.Projects = append(dash.Projects, summary)
	}
	sort.SliceStable(dash.Projects, func(i, j int) bool {
		return dash.Projects[i].Name < dash.Projects[j].Name
	})

	names := make(map[uuid.UUID]string, len(clientList))
	for _, client := range clientList {
		names[client.ID] = client.DisplayName()
	}
	for clientID, collected := range collectedByClient {
		if collected <= 0 {
			continue
		}
		dash.TopClients = append(dash.TopClients, ClientRevenue{ClientID: clientID, Name: names[clientID], Collected: collected})
	}
	sort.Slice(dash.TopClients, func(i, j int) bool {
		if dash.TopClients[i].Collected != dash.TopClients[j].Collected {
			return dash.TopClients[i].Collected > dash.TopClients[j].Collected
		}
		return dash.TopClients[i].Name < dash.TopClients[j].Name
	})
	if len(dash.TopClients) > TopClientsMax {
		dash.TopClients = dash.TopClients[:TopClientsMax]
	}

	s.logger.Debug("analytics.dashboard.computed", "tenant_id", tenantID, "invoices", len(invoiceList), "expenses", len(expenseList))
	return dash, nil
}

// monthWindow returns zero-valued months ending with the month of asOf,
// oldest first.
func monthWindow(asOf time.Time, months int) []MonthlyAmount {
	first := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	window := make([]MonthlyAmount, 0, months)
	for i := 0; i < months; i++ {
		window = append(window, MonthlyAmount{Month: first.AddDate(0, i, 0).Format("2006-01")})
	}
	return window
}

func agingBucket(today, due time.Time) string {
	due = due.UTC()
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	days := int(today.Sub(dueDay).Hours() / 24)
	switch {
	case days <= 0:
		return BucketCurrent
	case days <= 30:
		return Bucket1To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}
