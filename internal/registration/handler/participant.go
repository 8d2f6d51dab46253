package handler

import (
	"net/http"

	apperrors "caravan/pkg/errors"
	httputil "caravan/pkg/http"
	"caravan/pkg/model"

	"github.com/julienschmidt/httprouter"
)

func (h *RegistrationHandler) ListParticipants(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter := model.ParticipantFilter{
		UserID:       httputil.QueryString(r, "userId", "user_id"),
		TravelDateID: httputil.QueryString(r, "travelDateId", "travel_date_id"),
	}

	participants, err := h.service.ListParticipants(r.Context(), identity(r), filter)
	if err != nil {
		h.writeError(w, "ListParticipants", err)
		return
	}

	if err := httputil.WriteList(w, participants, len(participants)); err != nil {
		h.log.Error("failed to write list response", "handler", "ListParticipants", "operation", "WriteList", "error", err)
	}
}

func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RegistrationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Register", err)
		return
	}

	participant, err := h.service.Register(r.Context(), identity(r), &req)
	if err != nil {
		h.writeError(w, "Register", err)
		return
	}

	if err := httputil.WriteCreated(w, participant); err != nil {
		h.log.Error("failed to write created response", "handler", "Register", "operation", "WriteCreated", "error", err)
	}
}

func (h *RegistrationHandler) UpdateParticipant(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var update model.ParticipantUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, "UpdateParticipant", err)
		return
	}

	participant, err := h.service.UpdateParticipant(r.Context(), identity(r), &update)
	if err != nil {
		h.writeError(w, "UpdateParticipant", err)
		return
	}

	if err := httputil.WriteSuccess(w, participant); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateParticipant", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RegistrationHandler) Unregister(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id := httputil.QueryString(r, "id")
	if id == "" {
		h.writeError(w, "Unregister", apperrors.InvalidInput("Query parameter 'id' is required"))
		return
	}

	if err := h.service.Unregister(r.Context(), identity(r), id); err != nil {
		h.writeError(w, "Unregister", err)
		return
	}

	httputil.WriteNoContent(w)
}
