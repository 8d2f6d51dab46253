package service

import (
	"context"
	"errors"
	"strings"

	regerrors "caravan/internal/registration/errors"
	"caravan/internal/registration/events"
	apperrors "caravan/pkg/errors"
	"caravan/pkg/model"
)

// CreateTravelDate is an idempotent create. Any caller may open a date with
// the defaults; choosing capacity or availability is an admin decision.
func (s *coordinator) CreateTravelDate(ctx context.Context, identity model.Identity, create *model.TravelDateCreate) (*model.TravelDate, bool, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, false, err
	}

	create.Date = strings.TrimSpace(create.Date)
	if err := s.validator.ValidateTravelDateCreate(create); err != nil {
		return nil, false, apperrors.Validation("Invalid travel date", validationDetails(err))
	}

	if !identity.IsAdmin() && (create.Capacity != nil || create.IsAvailable != nil) {
		return nil, false, apperrors.Forbidden("Only admins can set capacity or availability")
	}

	capacity := s.cfg.DefaultCapacity
	if create.Capacity != nil {
		capacity = *create.Capacity
	}
	isAvailable := true
	if create.IsAvailable != nil {
		isAvailable = *create.IsAvailable
	}

	td, created, err := s.findOrCreateDate(ctx, create.Date, capacity, isAvailable)
	if err != nil {
		return nil, false, err
	}

	if !created {
		existing, err := s.ListForDate(ctx, td.Date)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return td, true, nil
}

// UpdateTravelDate applies an admin's partial update. is_available=false
// closes the date to new registrations regardless of count. is_available=true
// lifts that override, after which availability follows the count again.
func (s *coordinator) UpdateTravelDate(ctx context.Context, identity model.Identity, update *model.TravelDateUpdate) (*model.TravelDate, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if !identity.IsAdmin() {
		return nil, apperrors.Forbidden("Only admins can update travel dates")
	}

	update.ID = strings.TrimSpace(update.ID)
	update.ClosedByAdmin = nil
	if err := s.validator.ValidateTravelDateUpdate(update); err != nil {
		return nil, apperrors.Validation("Invalid travel date update", validationDetails(err))
	}

	if update.IsAvailable != nil {
		closed := !*update.IsAvailable
		update.ClosedByAdmin = &closed
	}

	td, err := s.repo.Update(ctx, update.ID, update)
	if err != nil {
		if errors.Is(err, regerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Travel date", update.ID)
		}
		if errors.Is(err, regerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid travel date ID format")
		}
		s.log.Error("Failed to update travel date", "id", update.ID, "error", err)
		return nil, s.storeError("Failed to update travel date", err)
	}

	s.log.Info("Travel date updated",
		"id", td.ID,
		"date", td.Date,
		"capacity", td.Capacity,
		"is_available", td.IsAvailable,
		"closed_by_admin", td.ClosedByAdmin,
		"updated_by", identity.UserID,
	)

	if !td.ClosedByAdmin {
		recomputed, count, err := s.recomputeAvailability(ctx, td.ID)
		if err != nil {
			s.log.Error("Failed to recompute availability", "travel_date_id", td.ID, "error", err)
			return td, nil
		}
		_ = s.publisher.Publish(ctx, events.NewTravelDateEvent(recomputed, count, identity))
		return recomputed, nil
	}

	count, err := s.repo.CountParticipants(ctx, td.ID)
	if err != nil {
		s.log.Warn("Failed to count participants for event", "travel_date_id", td.ID, "error", err)
	}
	_ = s.publisher.Publish(ctx, events.NewTravelDateEvent(td, count, identity))

	return td, nil
}

func (s *coordinator) ListForDate(ctx context.Context, date string) (*model.TravelDate, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, apperrors.InvalidInput("Date cannot be empty")
	}

	travelDates, err := s.repo.ListAll(ctx, date)
	if err != nil {
		return nil, s.storeError("Failed to retrieve travel date", err)
	}
	if len(travelDates) == 0 {
		return nil, apperrors.NotFoundWithID("Travel date", date)
	}
	return travelDates[0], nil
}

func (s *coordinator) ListAll(ctx context.Context, date string) ([]*model.TravelDate, error) {
	travelDates, err := s.repo.ListAll(ctx, strings.TrimSpace(date))
	if err != nil {
		return nil, s.storeError("Failed to list travel dates", err)
	}
	if travelDates == nil {
		travelDates = []*model.TravelDate{}
	}
	return travelDates, nil
}
