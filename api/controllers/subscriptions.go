package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tracksubs/tracksubs-backend/api/middleware"
	"github.com/tracksubs/tracksubs-backend/api/responses"
	"github.com/tracksubs/tracksubs-backend/api/validators"
	"github.com/tracksubs/tracksubs-backend/internal/subscriptions"
	"github.com/tracksubs/tracksubs-backend/pkg/enums"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
	"github.com/tracksubs/tracksubs-backend/pkg/logger"
)

type subscriptionCreateRequest struct {
	Title           string  `json:"title" validate:"required,max=200"`
	Website         *string `json:"website,omitempty" validate:"omitempty,url"`
	ServiceKey      *string `json:"service_key,omitempty" validate:"omitempty,max=100"`
	AmountCents     int64   `json:"amount" validate:"gte=0"`
	Currency        string  `json:"currency" validate:"required,oneof=USD EUR GBP INR"`
	Interval        string  `json:"interval" validate:"required,oneof=MONTHLY QUARTERLY YEARLY"`
	EmailAlert      bool    `json:"email_alert,omitempty"`
	NextBillingDate string  `json:"next_billing_date" validate:"required"`
	PaymentMethodID *string `json:"payment_method_id,omitempty" validate:"omitempty,uuid"`
}

type subscriptionUpdateRequest struct {
	Title           *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Website         *string `json:"website,omitempty" validate:"omitempty,url"`
	ServiceKey      *string `json:"service_key,omitempty" validate:"omitempty,max=100"`
	AmountCents     *int64  `json:"amount,omitempty" validate:"omitempty,gte=0"`
	Currency        *string `json:"currency,omitempty" validate:"omitempty,oneof=USD EUR GBP INR"`
	Interval        *string `json:"interval,omitempty" validate:"omitempty,oneof=MONTHLY QUARTERLY YEARLY"`
	IsActive        *bool   `json:"is_active,omitempty"`
	PaymentMethodID *string `json:"payment_method_id,omitempty" validate:"omitempty,uuid"`
}

type setAlertRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func SubscriptionList(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters := subscriptions.ListFilters{}
		if raw := r.URL.Query().Get("interval"); raw != "" {
			interval, err := enums.ParseBillingInterval(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid interval filter"))
				return
			}
			filters.Interval = &interval
		}

		subs, err := svc.List(r.Context(), middleware.UserIDFromContext(r.Context()), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subs)
	}
}

func SubscriptionGet(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subID, err := pathUUID(r, "subscriptionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sub, err := svc.Get(r.Context(), middleware.UserIDFromContext(r.Context()), subID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

func SubscriptionCreate(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload subscriptionCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		due, err := time.Parse("2006-01-02", payload.NextBillingDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "next_billing_date must be a YYYY-MM-DD date"))
			return
		}

		input := subscriptions.CreateInput{
			Title:           payload.Title,
			Website:         payload.Website,
			ServiceKey:      payload.ServiceKey,
			AmountCents:     payload.AmountCents,
			Currency:        enums.Currency(payload.Currency),
			Interval:        enums.BillingInterval(payload.Interval),
			EmailAlert:      payload.EmailAlert,
			NextBillingDate: due,
		}
		if payload.PaymentMethodID != nil {
			pmID, parseErr := uuid.Parse(*payload.PaymentMethodID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method id"))
				return
			}
			input.PaymentMethodID = &pmID
		}

		sub, err := svc.Create(r.Context(), middleware.UserIDFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sub)
	}
}

func SubscriptionUpdate(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subID, err := pathUUID(r, "subscriptionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload subscriptionUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := subscriptions.UpdateInput{
			Title:       payload.Title,
			Website:     payload.Website,
			ServiceKey:  payload.ServiceKey,
			AmountCents: payload.AmountCents,
			IsActive:    payload.IsActive,
		}
		if payload.Currency != nil {
			currency := enums.Currency(*payload.Currency)
			input.Currency = &currency
		}
		if payload.Interval != nil {
			interval := enums.BillingInterval(*payload.Interval)
			input.Interval = &interval
		}
		if payload.PaymentMethodID != nil {
			pmID, parseErr := uuid.Parse(*payload.PaymentMethodID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method id"))
				return
			}
			input.PaymentMethodID = &pmID
		}

		sub, err := svc.Update(r.Context(), middleware.UserIDFromContext(r.Context()), subID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

func SubscriptionDelete(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subID, err := pathUUID(r, "subscriptionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), subID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func SubscriptionSetAlert(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subID, err := pathUUID(r, "subscriptionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setAlertRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.SetAlert(r.Context(), middleware.UserIDFromContext(r.Context()), subID, *payload.Enabled)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"param": param})
	}
	return id, nil
}
