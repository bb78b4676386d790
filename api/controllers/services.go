package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tracksubs/tracksubs-backend/api/responses"
	"github.com/tracksubs/tracksubs-backend/internal/services"
	"github.com/tracksubs/tracksubs-backend/pkg/logger"
)

func ServiceCatalogList(svc services.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func ServiceCatalogGet(svc services.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := svc.GetByKey(r.Context(), chi.URLParam(r, "serviceKey"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}
