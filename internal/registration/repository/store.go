package repository

import (
	"context"
	"fmt"
	"time"

	regerrors "caravan/internal/registration/errors"
	"caravan/pkg/config"
	mongotx "caravan/pkg/db/mongo"
	"caravan/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	TravelDatesCollection  = "Travel_dates"
	ParticipantsCollection = "Participants"
)

// TravelDateRepository is the travel date store. It owns both collections:
// participants are only reachable through their travel date.
type TravelDateRepository interface {
	FindByDate(ctx context.Context, date string) (*model.TravelDate, error)
	FindByID(ctx context.Context, id string) (*model.TravelDate, error)
	Create(ctx context.Context, date string, capacity int, isAvailable bool) (*model.TravelDate, error)
	Update(ctx context.Context, id string, update *model.TravelDateUpdate) (*model.TravelDate, error)
	ListAll(ctx context.Context, date string) ([]*model.TravelDate, error)

	AddParticipant(ctx context.Context, travelDateID string, participant *model.Participant) (*model.Participant, error)
	RemoveParticipant(ctx context.Context, participantID string) (*model.RemovalResult, error)
	FindParticipant(ctx context.Context, travelDateID string, userID string) (*model.Participant, error)
	FindParticipantByID(ctx context.Context, id string) (*model.Participant, error)
	UpdateParticipant(ctx context.Context, id string, participant *model.Participant) (*model.Participant, error)
	ListParticipants(ctx context.Context, filter model.ParticipantFilter) ([]*model.Participant, error)
	CountParticipants(ctx context.Context, travelDateID string) (int, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoTravelDateRepository struct {
	cfg          *config.Config
	db           *mongo.Database
	travelDates  *mongo.Collection
	participants *mongo.Collection
	txManager    mongotx.TransactionManager
	now          func() time.Time
}

func NewMongoTravelDateRepository(cfg *config.Config) TravelDateRepository {
	return newMongoTravelDateRepository(cfg, cfg.Client.Mongo.Database(cfg.MongoDatabaseName))
}

func newMongoTravelDateRepository(cfg *config.Config, db *mongo.Database) *mongoTravelDateRepository {
	return &mongoTravelDateRepository{
		cfg:          cfg,
		db:           db,
		travelDates:  db.Collection(TravelDatesCollection),
		participants: db.Collection(ParticipantsCollection),
		txManager:    mongotx.NewTransactionManager(db.Client(), cfg.MongoTransactions),
		now:          func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics.
func (r *mongoTravelDateRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

// storeError tags transport level failures with ErrUnavailable so callers can
// tell a retryable outage from a bug.
func storeError(op string, err error) error {
	if mongotx.IsUnavailable(err) {
		return fmt.Errorf("failed to %s: %w: %w", op, regerrors.ErrUnavailable, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func (r *mongoTravelDateRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
