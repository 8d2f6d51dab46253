package handler

import (
	"net/http"

	"caravan/internal/projection"
	httputil "caravan/pkg/http"
	"caravan/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// ListTravelDates lists travel dates with their participants, narrowed to a
// single calendar day when date is given. An unknown date yields an empty list.
func (h *RegistrationHandler) ListTravelDates(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if identity(r).UserID == "" {
		h.writeError(w, "ListTravelDates", errUnauthenticated)
		return
	}

	date, err := httputil.QueryDate(r, "date")
	if err != nil {
		h.writeError(w, "ListTravelDates", err)
		return
	}

	travelDates, err := h.service.ListAll(r.Context(), date)
	if err != nil {
		h.writeError(w, "ListTravelDates", err)
		return
	}

	if err := httputil.WriteList(w, travelDates, len(travelDates)); err != nil {
		h.log.Error("failed to write list response", "handler", "ListTravelDates", "operation", "WriteList", "error", err)
	}
}

func (h *RegistrationHandler) CreateTravelDate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var create model.TravelDateCreate
	if err := httputil.DecodeJSON(r, &create); err != nil {
		h.writeError(w, "CreateTravelDate", err)
		return
	}

	td, created, err := h.service.CreateTravelDate(r.Context(), identity(r), &create)
	if err != nil {
		h.writeError(w, "CreateTravelDate", err)
		return
	}

	if created {
		if err := httputil.WriteCreated(w, td); err != nil {
			h.log.Error("failed to write created response", "handler", "CreateTravelDate", "operation", "WriteCreated", "error", err)
		}
		return
	}

	if err := httputil.WriteSuccess(w, td); err != nil {
		h.log.Error("failed to write success response", "handler", "CreateTravelDate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RegistrationHandler) UpdateTravelDate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var update model.TravelDateUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, "UpdateTravelDate", err)
		return
	}

	td, err := h.service.UpdateTravelDate(r.Context(), identity(r), &update)
	if err != nil {
		h.writeError(w, "UpdateTravelDate", err)
		return
	}

	if err := httputil.WriteSuccess(w, td); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateTravelDate", "operation", "WriteSuccess", "error", err)
	}
}

// TravelDateGroups returns the calendar view: load summary plus participants
// grouped by shared flight or bus.
func (h *RegistrationHandler) TravelDateGroups(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if identity(r).UserID == "" {
		h.writeError(w, "TravelDateGroups", errUnauthenticated)
		return
	}

	date, err := httputil.QueryDate(r, "date")
	if err != nil {
		h.writeError(w, "TravelDateGroups", err)
		return
	}

	if date != "" {
		td, err := h.service.ListForDate(r.Context(), date)
		if err != nil {
			h.writeError(w, "TravelDateGroups", err)
			return
		}
		if err := httputil.WriteSuccess(w, projection.Overview(td)); err != nil {
			h.log.Error("failed to write success response", "handler", "TravelDateGroups", "operation", "WriteSuccess", "error", err)
		}
		return
	}

	travelDates, err := h.service.ListAll(r.Context(), "")
	if err != nil {
		h.writeError(w, "TravelDateGroups", err)
		return
	}

	overviews := make([]projection.DateOverview, 0, len(travelDates))
	for _, td := range travelDates {
		overviews = append(overviews, projection.Overview(td))
	}

	if err := httputil.WriteList(w, overviews, len(overviews)); err != nil {
		h.log.Error("failed to write list response", "handler", "TravelDateGroups", "operation", "WriteList", "error", err)
	}
}
