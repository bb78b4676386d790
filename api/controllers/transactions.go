package controllers

import (
	"net/http"
	"time"

	"github.com/tracksubs/tracksubs-backend/api/middleware"
	"github.com/tracksubs/tracksubs-backend/api/responses"
	"github.com/tracksubs/tracksubs-backend/api/validators"
	"github.com/tracksubs/tracksubs-backend/internal/ledger"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
	"github.com/tracksubs/tracksubs-backend/pkg/logger"
	"github.com/tracksubs/tracksubs-backend/pkg/pagination"
)

type recordPaymentRequest struct {
	PaidDate *string `json:"paid_date,omitempty"`
}

// TransactionRecord records a payment against a subscription and advances its
// billing date.
func TransactionRecord(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subID, err := pathUUID(r, "subscriptionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := ledger.RecordPaymentInput{}
		if payload.PaidDate != nil {
			paid, parseErr := time.Parse("2006-01-02", *payload.PaidDate)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "paid_date must be a YYYY-MM-DD date"))
				return
			}
			input.PaidDate = &paid
		}

		row, err := svc.RecordPayment(r.Context(), middleware.UserIDFromContext(r.Context()), subID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

// TransactionListBySubscription returns one subscription's payment history,
// oldest first.
func TransactionListBySubscription(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subID, err := pathUUID(r, "subscriptionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListForSubscription(r.Context(), middleware.UserIDFromContext(r.Context()), subID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func TransactionList(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListTransactions(r.Context(), middleware.UserIDFromContext(r.Context()), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
