package export

import (
	"context"
	"encoding/csv"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tracksubs/tracksubs-backend/internal/ledger"
	"github.com/tracksubs/tracksubs-backend/internal/subscriptions"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
	"github.com/tracksubs/tracksubs-backend/pkg/pagination"
)

// Column keys a caller may map to its own header labels.
const (
	ColumnTitle           = "title"
	ColumnService         = "service"
	ColumnAmount          = "amount"
	ColumnCurrency        = "currency"
	ColumnInterval        = "interval"
	ColumnIsActive        = "is_active"
	ColumnEmailAlert      = "email_alert"
	ColumnNextBillingDate = "next_billing_date"
)

// ColumnMapping renames output columns. Keys are the Column* constants; the
// value becomes the CSV header label. Unknown keys are rejected.
type ColumnMapping map[string]string

// Document is one CSV-ready projection.
type Document struct {
	Header []string
	Rows   [][]string
}

// Service produces read-only projections. Amounts leave this layer as decimal
// major units; everywhere below they stay integer minor units.
type Service interface {
	Subscriptions(ctx context.Context, userID uuid.UUID, mapping ColumnMapping) (*Document, error)
	TransactionHistory(ctx context.Context, userID uuid.UUID) (*Document, error)
}

// ServiceParams groups dependencies for the export service.
type ServiceParams struct {
	SubscriptionRepo subscriptions.Repository
	TransactionRepo  ledger.Repository
}

type service struct {
	subRepo subscriptions.Repository
	txRepo  ledger.Repository
}

// NewService constructs an export service.
func NewService(params ServiceParams) (Service, error) {
	if params.SubscriptionRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription repo required")
	}
	if params.TransactionRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction repo required")
	}
	return &service{subRepo: params.SubscriptionRepo, txRepo: params.TransactionRepo}, nil
}

var subscriptionColumns = []string{
	ColumnTitle,
	ColumnService,
	ColumnAmount,
	ColumnCurrency,
	ColumnInterval,
	ColumnIsActive,
	ColumnEmailAlert,
	ColumnNextBillingDate,
}

// Subscriptions projects the user's subscriptions into CSV-ready rows ordered
// by next billing date. The mapping only renames headers; column order is
// fixed.
func (s *service) Subscriptions(ctx context.Context, userID uuid.UUID, mapping ColumnMapping) (*Document, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	for key := range mapping {
		if !isKnownColumn(key) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown export column").
				WithDetails(map[string]any{"column": key})
		}
	}

	rows, err := s.subRepo.ListForUser(ctx, userID, subscriptions.ListFilters{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions for export")
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].NextBillingDate.Before(rows[j].NextBillingDate)
	})

	doc := &Document{Header: make([]string, 0, len(subscriptionColumns))}
	for _, key := range subscriptionColumns {
		label := key
		if mapped, ok := mapping[key]; ok && mapped != "" {
			label = mapped
		}
		doc.Header = append(doc.Header, label)
	}

	for _, sub := range rows {
		serviceKey := ""
		if sub.ServiceKey != nil {
			serviceKey = *sub.ServiceKey
		}
		doc.Rows = append(doc.Rows, []string{
			sub.Title,
			serviceKey,
			formatAmount(sub.AmountCents),
			sub.Currency.String(),
			sub.Interval.String(),
			formatBool(sub.IsActive),
			formatBool(sub.EmailAlert),
			sub.NextBillingDate.Format("2006-01-02"),
		})
	}
	return doc, nil
}

var transactionColumns = []string{
	"subscription",
	"service",
	"payment_method",
	"amount",
	"currency",
	"invoice_date",
	"paid_date",
}

// TransactionHistory projects the full payment history into CSV-ready rows,
// draining the ledger's cursor pagination page by page.
func (s *service) TransactionHistory(ctx context.Context, userID uuid.UUID) (*Document, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	doc := &Document{Header: append([]string(nil), transactionColumns...)}
	params := pagination.Params{Limit: pagination.MaxLimit}
	for {
		page, err := s.txRepo.ListForUser(ctx, userID, params)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions for export")
		}
		for _, record := range page.Transactions {
			serviceKey := ""
			if record.ServiceKey != nil {
				serviceKey = *record.ServiceKey
			}
			paymentMethod := ""
			if record.PaymentMethodTitle != nil {
				paymentMethod = *record.PaymentMethodTitle
			}
			doc.Rows = append(doc.Rows, []string{
				record.SubscriptionTitle,
				serviceKey,
				paymentMethod,
				formatAmount(record.AmountCents),
				record.Currency.String(),
				record.InvoiceDate.Format("2006-01-02"),
				record.PaidDate.Format("2006-01-02"),
			})
		}
		if page.NextCursor == "" {
			return doc, nil
		}
		params.Cursor = page.NextCursor
	}
}

// WriteCSV renders a document with encoding/csv defaults.
func WriteCSV(w io.Writer, doc *Document) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(doc.Header); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write csv header")
	}
	for _, row := range doc.Rows {
		if err := writer.Write(row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write csv row")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flush csv")
	}
	return nil
}

func formatAmount(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}

func formatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func isKnownColumn(key string) bool {
	for _, col := range subscriptionColumns {
		if col == key {
			return true
		}
	}
	return false
}
