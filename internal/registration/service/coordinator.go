package service

import (
	"context"
	"errors"

	regerrors "caravan/internal/registration/errors"
	"caravan/internal/registration/events"
	"caravan/internal/registration/repository"
	"caravan/internal/registration/validator"
	"caravan/pkg/config"
	apperrors "caravan/pkg/errors"
	"caravan/pkg/logger"
	"caravan/pkg/model"
)

// Coordinator owns every registration rule: it accepts or rejects
// registrations, creates travel dates on demand and keeps is_available in
// step with the participant count.
type Coordinator interface {
	Register(ctx context.Context, identity model.Identity, req *model.RegistrationRequest) (*model.Participant, error)
	Unregister(ctx context.Context, identity model.Identity, participantID string) error
	UpdateParticipant(ctx context.Context, identity model.Identity, update *model.ParticipantUpdate) (*model.Participant, error)
	ListParticipants(ctx context.Context, identity model.Identity, filter model.ParticipantFilter) ([]*model.ParticipantView, error)
	ListForUser(ctx context.Context, userID string) ([]*model.ParticipantView, error)

	CreateTravelDate(ctx context.Context, identity model.Identity, create *model.TravelDateCreate) (*model.TravelDate, bool, error)
	UpdateTravelDate(ctx context.Context, identity model.Identity, update *model.TravelDateUpdate) (*model.TravelDate, error)
	ListForDate(ctx context.Context, date string) (*model.TravelDate, error)
	ListAll(ctx context.Context, date string) ([]*model.TravelDate, error)
}

type coordinator struct {
	repo      repository.TravelDateRepository
	validator *validator.RegistrationValidator
	publisher events.Publisher
	cfg       *config.Config
	log       *logger.Logger
}

func NewCoordinator(
	repo repository.TravelDateRepository,
	validator *validator.RegistrationValidator,
	publisher events.Publisher,
	cfg *config.Config,
) Coordinator {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &coordinator{
		repo:      repo,
		validator: validator,
		publisher: events.NewLoggingPublisher(publisher, cfg.Log),
		cfg:       cfg,
		log:       cfg.Log,
	}
}

// storeError converts a repository failure into the error the caller sees.
// Outages become a retryable Unavailable; anything else is internal and
// keeps its cause for the logs only.
func (s *coordinator) storeError(message string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, regerrors.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Unavailable("Travel date store", err)
	}
	return apperrors.Internal(message, err)
}

func validationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return apperrors.Validation(validationErrs.Summary(), validationErrs.Fields())
	}
	return apperrors.Validation(validator.MsgMissingRequired, map[string]any{"error": err.Error()})
}

func validationDetails(err error) map[string]any {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return validationErrs.Fields()
	}
	return map[string]any{"error": err.Error()}
}

func requireIdentity(identity model.Identity) error {
	if identity.UserID == "" {
		return apperrors.Unauthorized("Authentication required")
	}
	return nil
}

// recomputeAvailability re-reads the travel date and its participant count
// and persists is_available if it drifted. The count is read immediately
// before the write so interleaved registrations and removals converge.
func (s *coordinator) recomputeAvailability(ctx context.Context, travelDateID string) (*model.TravelDate, int, error) {
	td, err := s.repo.FindByID(ctx, travelDateID)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.repo.CountParticipants(ctx, travelDateID)
	if err != nil {
		return nil, 0, err
	}

	available := td.AvailableFor(count)
	if td.IsAvailable == available {
		return td, count, nil
	}

	updated, err := s.repo.Update(ctx, travelDateID, &model.TravelDateUpdate{IsAvailable: &available})
	if err != nil {
		return nil, 0, err
	}

	s.log.Info("Travel date availability changed",
		"travel_date_id", travelDateID,
		"date", updated.Date,
		"count", count,
		"capacity", updated.Capacity,
		"is_available", available,
	)
	return updated, count, nil
}
