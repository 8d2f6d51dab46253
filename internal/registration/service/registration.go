package service

import (
	"context"
	"errors"
	"strings"

	"caravan/internal/projection"
	regerrors "caravan/internal/registration/errors"
	"caravan/internal/registration/events"
	"caravan/pkg/config"
	apperrors "caravan/pkg/errors"
	"caravan/pkg/model"
	"caravan/pkg/sanitizer"
)

func (s *coordinator) Register(ctx context.Context, identity model.Identity, req *model.RegistrationRequest) (*model.Participant, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	s.sanitizeRegistration(req)
	if err := s.validator.ValidateRegistration(req); err != nil {
		s.log.Warn("Registration validation failed", "user_id", identity.UserID, "error", err)
		return nil, validationError(err)
	}

	td, err := s.resolveTravelDate(ctx, req)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindParticipant(ctx, td.ID, identity.UserID); err == nil {
		return nil, apperrors.AlreadyRegistered(td.Date)
	} else if !errors.Is(err, regerrors.ErrNotFound) {
		return nil, s.storeError("Failed to check existing registration", err)
	}

	if err := s.checkCapacity(ctx, td); err != nil {
		return nil, err
	}

	participant, err := s.repo.AddParticipant(ctx, td.ID, buildParticipant(identity, req))
	if err != nil {
		switch {
		case errors.Is(err, regerrors.ErrAlreadyRegistered):
			return nil, apperrors.AlreadyRegistered(td.Date)
		case errors.Is(err, regerrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Travel date", td.ID)
		}
		s.log.Error("Failed to add participant", "travel_date_id", td.ID, "user_id", identity.UserID, "error", err)
		return nil, s.storeError("Failed to register participant", err)
	}

	s.log.Info("Participant registered",
		"id", participant.ID,
		"travel_date_id", td.ID,
		"date", td.Date,
		"user_id", identity.UserID,
		"transportation_type", participant.TransportationType,
	)

	// The registration is committed at this point; a failed recompute is
	// repaired by the next registration or removal on the same date.
	updated, count, err := s.recomputeAvailability(ctx, td.ID)
	if err != nil {
		s.log.Error("Failed to recompute availability", "travel_date_id", td.ID, "error", err)
		_ = s.publisher.Publish(ctx, events.NewParticipantEvent(events.TypeParticipantRegistered, td, participant, 0, identity).AsStale())
		return participant, nil
	}

	_ = s.publisher.Publish(ctx, events.NewParticipantEvent(events.TypeParticipantRegistered, updated, participant, count, identity))
	return participant, nil
}

// resolveTravelDate finds the departure a registration refers to. A date
// that has no record yet is created with the default capacity; losing a
// concurrent create falls back to the winner's record.
func (s *coordinator) resolveTravelDate(ctx context.Context, req *model.RegistrationRequest) (*model.TravelDate, error) {
	if req.TravelDateID != "" {
		td, err := s.repo.FindByID(ctx, req.TravelDateID)
		if err != nil {
			if errors.Is(err, regerrors.ErrNotFound) {
				return nil, apperrors.NotFoundWithID("Travel date", req.TravelDateID)
			}
			if errors.Is(err, regerrors.ErrInvalidID) {
				return nil, apperrors.InvalidInput("Invalid travel date ID format")
			}
			return nil, s.storeError("Failed to load travel date", err)
		}
		return td, nil
	}

	td, _, err := s.findOrCreateDate(ctx, req.Date, s.cfg.DefaultCapacity, true)
	return td, err
}

// findOrCreateDate reports whether this call inserted the record.
func (s *coordinator) findOrCreateDate(ctx context.Context, date string, capacity int, isAvailable bool) (*model.TravelDate, bool, error) {
	td, err := s.repo.FindByDate(ctx, date)
	if err == nil {
		return td, false, nil
	}
	if !errors.Is(err, regerrors.ErrNotFound) {
		return nil, false, s.storeError("Failed to load travel date", err)
	}

	td, err = s.repo.Create(ctx, date, capacity, isAvailable)
	if err == nil {
		s.log.Info("Travel date created", "id", td.ID, "date", date, "capacity", capacity)
		return td, true, nil
	}
	if !errors.Is(err, regerrors.ErrDuplicateDate) {
		return nil, false, s.storeError("Failed to create travel date", err)
	}

	s.log.Debug("Travel date created concurrently, reusing existing record", "date", date)
	td, err = s.repo.FindByDate(ctx, date)
	if err != nil {
		return nil, false, s.storeError("Failed to load travel date", err)
	}
	return td, false, nil
}

func (s *coordinator) checkCapacity(ctx context.Context, td *model.TravelDate) error {
	if td.ClosedByAdmin {
		return apperrors.DateClosed(td.Date)
	}
	if s.cfg.CapacityPolicy != config.CapacityStrict {
		return nil
	}

	count, err := s.repo.CountParticipants(ctx, td.ID)
	if err != nil {
		return s.storeError("Failed to count participants", err)
	}
	if td.Full(count) {
		return apperrors.DateFull(td.Date, td.Capacity)
	}
	return nil
}

func (s *coordinator) sanitizeRegistration(req *model.RegistrationRequest) {
	req.Date = strings.TrimSpace(req.Date)
	req.TravelDateID = strings.TrimSpace(req.TravelDateID)
	req.Name = sanitizer.NormalizeName(req.Name)
	req.Phone = sanitizer.NormalizePhone(req.Phone, s.cfg.PhoneDefaultRegion)
	req.TransportationType = model.TransportationType(strings.ToLower(strings.TrimSpace(string(req.TransportationType))))
	req.OriginCity = sanitizer.NormalizeCity(req.OriginCity)
	req.DestinationCity = sanitizer.NormalizeCity(req.DestinationCity)
	req.Flight = sanitizer.TrimAndNormalize(req.Flight)
	req.FlightCode = sanitizer.NormalizeCode(req.FlightCode)
	req.FlightDepartureTime = sanitizer.TrimAndNormalize(req.FlightDepartureTime)
	req.BusCompany = sanitizer.TrimAndNormalize(req.BusCompany)
	req.BusTicketType = sanitizer.TrimAndNormalize(req.BusTicketType)
	req.BusDepartureTime = sanitizer.TrimAndNormalize(req.BusDepartureTime)
	req.Notes = sanitizer.NormalizeNotes(req.Notes)
}

// buildParticipant copies only the selected variant's fields and records the
// caller's account profile.
func buildParticipant(identity model.Identity, req *model.RegistrationRequest) *model.Participant {
	p := &model.Participant{
		UserID:             identity.UserID,
		Name:               req.Name,
		Phone:              req.Phone,
		TransportationType: req.TransportationType,
		OriginCity:         req.OriginCity,
		DestinationCity:    req.DestinationCity,
	}

	switch req.TransportationType {
	case model.TransportationFlight:
		p.Flight = req.Flight
		p.FlightCode = req.FlightCode
		p.FlightDepartureTime = req.FlightDepartureTime
	case model.TransportationBus:
		p.BusCompany = req.BusCompany
		p.BusTicketType = req.BusTicketType
		p.BusDepartureTime = req.BusDepartureTime
	}

	if req.Notes != "" {
		notes := req.Notes
		p.Notes = &notes
	}
	if identity.Name != "" || identity.Email != "" {
		p.Account = &model.Account{Name: identity.Name, Email: identity.Email}
	}
	return p
}

func (s *coordinator) Unregister(ctx context.Context, identity model.Identity, participantID string) error {
	if err := requireIdentity(identity); err != nil {
		return err
	}
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return apperrors.InvalidInput("Participant ID cannot be empty")
	}

	participant, err := s.findParticipant(ctx, participantID)
	if err != nil {
		return err
	}

	if !identity.CanManage(participant.UserID) {
		s.log.Warn("Unregister forbidden",
			"participant_id", participantID,
			"owner_id", participant.UserID,
			"user_id", identity.UserID,
		)
		return apperrors.Forbidden("You can only remove your own registration")
	}

	result, err := s.repo.RemoveParticipant(ctx, participantID)
	if err != nil {
		if errors.Is(err, regerrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Participant", participantID)
		}
		s.log.Error("Failed to remove participant", "id", participantID, "error", err)
		return s.storeError("Failed to remove participant", err)
	}

	s.log.Info("Participant removed",
		"id", participantID,
		"travel_date_id", result.TravelDateID,
		"remaining", result.Remaining,
		"removed_by", identity.UserID,
	)

	updated, count, err := s.recomputeAvailability(ctx, result.TravelDateID)
	if err != nil {
		s.log.Error("Failed to recompute availability", "travel_date_id", result.TravelDateID, "error", err)
		td, findErr := s.repo.FindByID(ctx, result.TravelDateID)
		if findErr != nil {
			td = &model.TravelDate{ID: result.TravelDateID}
		}
		_ = s.publisher.Publish(ctx, events.NewParticipantEvent(events.TypeParticipantUnregistered, td, result.Participant, result.Remaining, identity).AsStale())
		return nil
	}

	_ = s.publisher.Publish(ctx, events.NewParticipantEvent(events.TypeParticipantUnregistered, updated, result.Participant, count, identity))
	return nil
}

func (s *coordinator) findParticipant(ctx context.Context, id string) (*model.Participant, error) {
	participant, err := s.repo.FindParticipantByID(ctx, id)
	if err != nil {
		if errors.Is(err, regerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Participant", id)
		}
		if errors.Is(err, regerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid participant ID format")
		}
		return nil, s.storeError("Failed to retrieve participant", err)
	}
	return participant, nil
}

func (s *coordinator) UpdateParticipant(ctx context.Context, identity model.Identity, update *model.ParticipantUpdate) (*model.Participant, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	s.sanitizeParticipantUpdate(update)
	if update.ID == "" {
		return nil, apperrors.InvalidInput("Participant ID cannot be empty")
	}

	existing, err := s.findParticipant(ctx, update.ID)
	if err != nil {
		return nil, err
	}

	if !identity.CanManage(existing.UserID) {
		return nil, apperrors.Forbidden("You can only update your own registration")
	}

	if err := s.validator.ValidateParticipantUpdate(update, existing.TransportationType); err != nil {
		s.log.Warn("Participant update validation failed", "id", update.ID, "error", err)
		return nil, apperrors.Validation("Invalid update input", validationDetails(err))
	}

	merged := mergeParticipantUpdate(existing, update)

	updated, err := s.repo.UpdateParticipant(ctx, update.ID, merged)
	if err != nil {
		if errors.Is(err, regerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Participant", update.ID)
		}
		s.log.Error("Failed to update participant", "id", update.ID, "error", err)
		return nil, s.storeError("Failed to update participant", err)
	}

	s.log.Info("Participant updated", "id", update.ID, "updated_by", identity.UserID)
	return updated, nil
}

func (s *coordinator) sanitizeParticipantUpdate(u *model.ParticipantUpdate) {
	u.ID = strings.TrimSpace(u.ID)
	apply := func(field *string, fn func(string) string) {
		if field != nil {
			*field = fn(*field)
		}
	}
	apply(u.Name, sanitizer.NormalizeName)
	apply(u.Phone, func(p string) string { return sanitizer.NormalizePhone(p, s.cfg.PhoneDefaultRegion) })
	apply(u.OriginCity, sanitizer.NormalizeCity)
	apply(u.DestinationCity, sanitizer.NormalizeCity)
	apply(u.Flight, sanitizer.TrimAndNormalize)
	apply(u.FlightCode, sanitizer.NormalizeCode)
	apply(u.FlightDepartureTime, sanitizer.TrimAndNormalize)
	apply(u.BusCompany, sanitizer.TrimAndNormalize)
	apply(u.BusTicketType, sanitizer.TrimAndNormalize)
	apply(u.BusDepartureTime, sanitizer.TrimAndNormalize)
	apply(u.Notes, sanitizer.NormalizeNotes)
}

func mergeParticipantUpdate(existing *model.Participant, u *model.ParticipantUpdate) *model.Participant {
	merged := *existing

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&merged.Name, u.Name)
	set(&merged.Phone, u.Phone)
	set(&merged.OriginCity, u.OriginCity)
	set(&merged.DestinationCity, u.DestinationCity)
	set(&merged.Flight, u.Flight)
	set(&merged.FlightCode, u.FlightCode)
	set(&merged.FlightDepartureTime, u.FlightDepartureTime)
	set(&merged.BusCompany, u.BusCompany)
	set(&merged.BusTicketType, u.BusTicketType)
	set(&merged.BusDepartureTime, u.BusDepartureTime)

	if u.Notes != nil {
		if *u.Notes == "" {
			merged.Notes = nil
		} else {
			notes := *u.Notes
			merged.Notes = &notes
		}
	}
	return &merged
}

func (s *coordinator) ListParticipants(ctx context.Context, identity model.Identity, filter model.ParticipantFilter) ([]*model.ParticipantView, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	filter.UserID = strings.TrimSpace(filter.UserID)
	filter.TravelDateID = strings.TrimSpace(filter.TravelDateID)

	if !identity.IsAdmin() {
		if filter.UserID != "" && filter.UserID != identity.UserID {
			return nil, apperrors.Forbidden("You can only list your own registrations")
		}
		if filter.UserID == "" && filter.TravelDateID == "" {
			filter.UserID = identity.UserID
		}
	}

	if filter.TravelDateID != "" {
		td, err := s.repo.FindByID(ctx, filter.TravelDateID)
		if err != nil {
			if errors.Is(err, regerrors.ErrNotFound) {
				return nil, apperrors.NotFoundWithID("Travel date", filter.TravelDateID)
			}
			if errors.Is(err, regerrors.ErrInvalidID) {
				return nil, apperrors.InvalidInput("Invalid travel date ID format")
			}
			return nil, s.storeError("Failed to load travel date", err)
		}

		participants, err := s.repo.ListParticipants(ctx, filter)
		if err != nil {
			return nil, s.storeError("Failed to list participants", err)
		}
		return projection.Enrich(td, participants), nil
	}

	if filter.UserID != "" {
		return s.ListForUser(ctx, filter.UserID)
	}

	travelDates, err := s.repo.ListAll(ctx, "")
	if err != nil {
		return nil, s.storeError("Failed to list travel dates", err)
	}
	return projection.Flatten(travelDates), nil
}

func (s *coordinator) ListForUser(ctx context.Context, userID string) ([]*model.ParticipantView, error) {
	travelDates, err := s.repo.ListAll(ctx, "")
	if err != nil {
		return nil, s.storeError("Failed to list travel dates", err)
	}
	return projection.ForUser(travelDates, userID), nil
}
