package controllers

import (
	"net/http"

	"github.com/tracksubs/tracksubs-backend/api/middleware"
	"github.com/tracksubs/tracksubs-backend/api/responses"
	"github.com/tracksubs/tracksubs-backend/internal/export"
	"github.com/tracksubs/tracksubs-backend/pkg/logger"
)

// ExportSubscriptionsCSV streams the user's subscriptions as CSV. Column
// headers can be renamed with col_<key> query parameters, e.g.
// ?col_amount=Cost.
func ExportSubscriptionsCSV(svc export.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mapping := export.ColumnMapping{}
		for key, values := range r.URL.Query() {
			if len(values) == 0 || len(key) <= 4 || key[:4] != "col_" {
				continue
			}
			mapping[key[4:]] = values[0]
		}

		doc, err := svc.Subscriptions(r.Context(), middleware.UserIDFromContext(r.Context()), mapping)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="subscriptions.csv"`)
		if err := export.WriteCSV(w, doc); err != nil && logg != nil {
			logg.Error(r.Context(), "export.write_csv", err)
		}
	}
}

// ExportTransactionsCSV streams the user's full payment history as CSV.
func ExportTransactionsCSV(svc export.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := svc.TransactionHistory(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
		if err := export.WriteCSV(w, doc); err != nil && logg != nil {
			logg.Error(r.Context(), "export.write_csv", err)
		}
	}
}
