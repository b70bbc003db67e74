package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/fleetshop-backend/api/responses"
	"github.com/angelmondragon/fleetshop-backend/api/validators"
	"github.com/angelmondragon/fleetshop-backend/internal/checklists"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
)

func ChecklistGet(svc checklists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("checklist"))
			return
		}
		vehicleID, err := uuidParam(r, "vehicleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		serviceType := strings.TrimSpace(chi.URLParam(r, "serviceType"))
		tasks, err := svc.GetChecklist(r.Context(), vehicleID, serviceType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checklists.ChecklistDTO{
			VehicleID:   vehicleID,
			ServiceType: serviceType,
			Tasks:       tasks,
		})
	}
}

func ChecklistPut(svc checklists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("checklist"))
			return
		}
		vehicleID, err := uuidParam(r, "vehicleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body checklists.PutChecklistInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		checklist, err := svc.PutChecklist(r.Context(), vehicleID, chi.URLParam(r, "serviceType"), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checklist)
	}
}
