package handler

import (
	"net/http"

	"caravan/internal/registration/service"
	apperrors "caravan/pkg/errors"
	httputil "caravan/pkg/http"
	"caravan/pkg/logger"
	"caravan/pkg/middleware"
	"caravan/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RegistrationHandler struct {
	service service.Coordinator
	log     *logger.Logger
}

func NewRegistrationHandler(service service.Coordinator, log *logger.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		service: service,
		log:     log,
	}
}

var errUnauthenticated = apperrors.Unauthorized("Authentication required")

// identity returns the verified caller. A request that bypassed the
// identity middleware carries the zero identity and is rejected downstream.
func identity(r *http.Request) model.Identity {
	id, _ := middleware.IdentityFromContext(r.Context())
	return id
}

func (h *RegistrationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *RegistrationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/travel-dates", h.ListTravelDates)
	router.POST("/api/v1/travel-dates", h.CreateTravelDate)
	router.PATCH("/api/v1/travel-dates", h.UpdateTravelDate)
	router.GET("/api/v1/travel-dates/groups", h.TravelDateGroups)

	router.GET("/api/v1/participants", h.ListParticipants)
	router.POST("/api/v1/participants", h.Register)
	router.PATCH("/api/v1/participants", h.UpdateParticipant)
	router.DELETE("/api/v1/participants", h.Unregister)
}
