package exports

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/goliatone/go-contractor/internal/activitylog"
	"github.com/goliatone/go-contractor/internal/clients"
	"github.com/goliatone/go-contractor/internal/domain"
	"github.com/goliatone/go-contractor/internal/expenses"
	"github.com/goliatone/go-contractor/internal/invoices"
	"github.com/google/uuid"
)

var (
	InvoiceHeader = []string{
		"number", "status", "client_id", "project_id", "issue_date", "due_date", "currency",
		"subtotal", "discount", "tax", "total", "amount_paid", "amount_due",
		"sent_at", "paid_at", "voided_at",
	}
	ExpenseHeader = []string{
		"id", "incurred_on", "category", "vendor", "description", "project_id", "currency",
		"amount", "billable", "reimbursable", "receipt_key",
	}
	ClientHeader = []string{
		"id", "name", "company_name", "email", "phone", "address_line1", "address_line2",
		"city", "region", "postal_code", "country", "tax_id", "created_at",
	}
	ActivityHeader = []string{
		"occurred_at", "verb", "object_type", "object_id", "actor_id", "channel",
	}
)

func writeInvoices(w io.Writer, records []*invoices.Invoice) (int, error) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Number < records[j].Number })
	return writeRows(w, InvoiceHeader, len(records), func(i int) []string {
		inv := records[i]
		return []string{
			inv.Number,
			string(inv.Status),
			inv.ClientID.String(),
			optionalID(inv.ProjectID),
			formatDate(inv.IssueDate),
			formatDate(inv.DueDate),
			inv.Currency,
			domain.FormatCents(inv.Subtotal),
			domain.FormatCents(inv.Discount),
			domain.FormatCents(inv.TaxTotal),
			domain.FormatCents(inv.Total),
			domain.FormatCents(inv.AmountPaid),
			domain.FormatCents(inv.AmountDue()),
			formatTimestamp(inv.SentAt),
			formatTimestamp(inv.PaidAt),
			formatTimestamp(inv.VoidedAt),
		}
	})
}

func writeExpenses(w io.Writer, records []*expenses.Expense) (int, error) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].IncurredOn.Before(records[j].IncurredOn) })
	return writeRows(w, ExpenseHeader, len(records), func(i int) []string {
		exp := records[i]
		return []string{
			exp.ID.String(),
			formatDate(exp.IncurredOn),
			string(exp.Category),
			exp.Vendor,
			exp.Description,
			optionalID(exp.ProjectID),
			exp.Currency,
			domain.FormatCents(exp.Amount),
			strconv.FormatBool(exp.Billable),
			strconv.FormatBool(exp.Reimbursable),
			exp.ReceiptKey,
		}
	})
}

func writeClients(w io.Writer, records []*clients.Client) (int, error) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return writeRows(w, ClientHeader, len(records), func(i int) []string {
		c := records[i]
		return []string{
			c.ID.String(),
			c.Name,
			c.CompanyName,
			c.Email,
			c.Phone,
			c.AddressLine1,
			c.AddressLine2,
			c.City,
			c.Region,
			c.PostalCode,
			c.Country,
			c.TaxID,
			formatTimestamp(&c.CreatedAt),
		}
	})
}

func writeActivity(w io.Writer, records []*activitylog.Entry) (int, error) {
	return writeRows(w, ActivityHeader, len(records), func(i int) []string {
		entry := records[i]
		actor := ""
		if entry.ActorID != uuid.Nil {
			actor = entry.ActorID.String()
		}
		return []string{
			formatTimestamp(&entry.OccurredAt),
			entry.Verb,
			entry.ObjectType,
			entry.ObjectID,
			actor,
			entry.Channel,
		}
	})
}

func writeRows(w io.Writer, header []string, count int, row func(int) []string) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return 0, err
	}
	for i := 0; i < count; i++ {
		if err := writer.Write(row(i)); err != nil {
			return i, err
		}
	}
	writer.Flush()
	return count, writer.Error()
}

func optionalID(id *uuid.UUID) string {
	if id == nil || *id == uuid.Nil {
		return ""
	}
	return id.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}

func formatTimestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
