package controllers

import (
	"net/http"

	"github.com/tracksubs/tracksubs-backend/api/middleware"
	"github.com/tracksubs/tracksubs-backend/api/responses"
	"github.com/tracksubs/tracksubs-backend/api/validators"
	"github.com/tracksubs/tracksubs-backend/internal/paymentmethods"
	"github.com/tracksubs/tracksubs-backend/pkg/logger"
)

type paymentMethodRequest struct {
	Title string `json:"title" validate:"required,max=100"`
}

func PaymentMethodList(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.List(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func PaymentMethodCreate(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload paymentMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pm, err := svc.Create(r.Context(), middleware.UserIDFromContext(r.Context()), payload.Title)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, pm)
	}
}

func PaymentMethodRename(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pmID, err := pathUUID(r, "paymentMethodId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload paymentMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pm, err := svc.Rename(r.Context(), middleware.UserIDFromContext(r.Context()), pmID, payload.Title)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pm)
	}
}

func PaymentMethodDelete(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pmID, err := pathUUID(r, "paymentMethodId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), pmID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
