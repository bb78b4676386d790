package controllers

import (
	"net/http"

	"github.com/tracksubs/tracksubs-backend/api/middleware"
	"github.com/tracksubs/tracksubs-backend/api/responses"
	"github.com/tracksubs/tracksubs-backend/api/validators"
	"github.com/tracksubs/tracksubs-backend/internal/users"
	"github.com/tracksubs/tracksubs-backend/pkg/enums"
	"github.com/tracksubs/tracksubs-backend/pkg/logger"
)

type updateProfileRequest struct {
	FirstName   *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName    *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Timezone    *string `json:"timezone,omitempty" validate:"omitempty,max=64"`
	Currency    *string `json:"currency,omitempty" validate:"omitempty,oneof=USD EUR GBP INR"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,url"`
	IsOnboarded *bool   `json:"is_onboarded,omitempty"`
}

func MeGet(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := svc.Profile(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

func MeUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload updateProfileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := users.UpdateProfileInput{
			FirstName:   payload.FirstName,
			LastName:    payload.LastName,
			Timezone:    payload.Timezone,
			ImageURL:    payload.ImageURL,
			IsOnboarded: payload.IsOnboarded,
		}
		if payload.Currency != nil {
			currency := enums.Currency(*payload.Currency)
			input.Currency = &currency
		}

		user, err := svc.UpdateProfile(r.Context(), middleware.UserIDFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
