package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"caravan/pkg/logger"
	"caravan/pkg/model"

	"github.com/go-playground/validator/v10"
)

const (
	MsgMissingRequired = "missing required fields"
	MsgMissingFlight   = "missing flight information"
	MsgMissingBus      = "missing bus information"
	MsgInvalidUpdate   = "invalid update"
)

type group int

const (
	groupCommon group = iota
	groupFlight
	groupBus
)

var fieldGroups = map[string]group{
	"flight":                groupFlight,
	"flight_code":           groupFlight,
	"flight_departure_time": groupFlight,
	"bus_company":           groupBus,
	"bus_ticket_type":       groupBus,
	"bus_departure_time":    groupBus,
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Summary is the single client facing reason for a rejected registration.
// Common field problems are reported before variant specific ones.
func (v ValidationErrors) Summary() string {
	flight, bus := false, false
	for _, err := range v {
		switch fieldGroups[err.Field] {
		case groupCommon:
			return MsgMissingRequired
		case groupFlight:
			flight = true
		case groupBus:
			bus = true
		}
	}
	switch {
	case flight:
		return MsgMissingFlight
	case bus:
		return MsgMissingBus
	}
	return MsgMissingRequired
}

// Fields maps each offending field to its message, for error details.
func (v ValidationErrors) Fields() map[string]any {
	fields := make(map[string]any, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return fields
}

type RegistrationValidator struct {
	validate    *validator.Validate
	logger      *logger.Logger
	maxCapacity int
}

func NewRegistrationValidator(log *logger.Logger, maxCapacity int) *RegistrationValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	log.Info("Registration validator initialized successfully")

	return &RegistrationValidator{
		validate:    v,
		logger:      log,
		maxCapacity: maxCapacity,
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// ValidateRegistration expects an already sanitized request.
func (v *RegistrationValidator) ValidateRegistration(req *model.RegistrationRequest) error {
	var errs ValidationErrors

	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return err
		}
		errs = v.translateValidationErrors(validationErrs)
	}

	if req.Date == "" && req.TravelDateID == "" {
		errs = append(errs, ValidationError{
			Field:   "date",
			Message: "date or travel_date_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateParticipantUpdate checks the update against the transportation mode
// the participant registered with. The mode itself cannot change.
func (v *RegistrationValidator) ValidateParticipantUpdate(update *model.ParticipantUpdate, mode model.TransportationType) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if mode == model.TransportationFlight && update.HasBusFields() {
		return ValidationErrors{
			ValidationError{
				Field:   "bus_company",
				Message: "bus fields cannot be set on a flight registration",
			},
		}
	}
	if mode == model.TransportationBus && update.HasFlightFields() {
		return ValidationErrors{
			ValidationError{
				Field:   "flight",
				Message: "flight fields cannot be set on a bus registration",
			},
		}
	}

	return nil
}

func (v *RegistrationValidator) ValidateTravelDateCreate(create *model.TravelDateCreate) error {
	if err := v.validate.Struct(create); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return v.validateCapacity(create.Capacity)
}

func (v *RegistrationValidator) ValidateTravelDateUpdate(update *model.TravelDateUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if update.Capacity == nil && update.IsAvailable == nil {
		return ValidationErrors{
			ValidationError{
				Field:   "id",
				Message: "at least one of capacity or is_available must be provided",
			},
		}
	}

	return v.validateCapacity(update.Capacity)
}

func (v *RegistrationValidator) validateCapacity(capacity *int) error {
	if capacity == nil || v.maxCapacity <= 0 {
		return nil
	}
	if *capacity > v.maxCapacity {
		return ValidationErrors{
			ValidationError{
				Field:   "capacity",
				Message: fmt.Sprintf("capacity must be at most %d", v.maxCapacity),
			},
		}
	}
	return nil
}

func (v *RegistrationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required", "required_if":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			if err.Kind() == reflect.String {
				message = fmt.Sprintf("%s cannot be empty", err.Field())
			} else {
				message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
			}
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
