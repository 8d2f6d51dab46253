package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	regerrors "caravan/internal/registration/errors"
	"caravan/pkg/config"
	"caravan/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const duplicateKeyCode = 11000

func mockOptions() *mtest.Options {
	return mtest.NewOptions().
		ClientType(mtest.Mock).
		ClientOptions(options.Client().SetRetryReads(false).SetRetryWrites(false))
}

func newTestRepository(mt *mtest.T) *mongoTravelDateRepository {
	cfg := &config.Config{
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
	return newMongoTravelDateRepository(cfg, mt.DB)
}

func namespace(mt *mtest.T, collection string) string {
	return mt.DB.Name() + "." + collection
}

func travelDateDoc(id primitive.ObjectID, date string, capacity int) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "date", Value: date},
		{Key: "capacity", Value: capacity},
		{Key: "is_available", Value: true},
		{Key: "closed_by_admin", Value: false},
	}
}

func participantDoc(id primitive.ObjectID, travelDateID, userID string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "travel_date_id", Value: travelDateID},
		{Key: "user_id", Value: userID},
		{Key: "name", Value: "Rina"},
		{Key: "phone", Value: "+6281234567890"},
		{Key: "transportation_type", Value: "bus"},
		{Key: "origin_city", Value: "Bandung"},
		{Key: "destination_city", Value: "Yogyakarta"},
		{Key: "bus_company", Value: "Pahala Kencana"},
		{Key: "bus_ticket_type", Value: "Executive"},
		{Key: "bus_departure_time", Value: "19:00"},
		{Key: "account", Value: bson.D{{Key: "name", Value: "Rina Sari"}, {Key: "email", Value: "rina@example.com"}}},
	}
}

func networkErrorResponse() bson.D {
	return mtest.CreateCommandErrorResponse(mtest.CommandError{
		Code:    6,
		Name:    "HostUnreachable",
		Message: "connection reset",
		Labels:  []string{"NetworkError"},
	})
}

func TestFindTravelDate(t *testing.T) {
	mt := mtest.New(t, mockOptions())

	mt.Run("object id is returned as hex", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt, TravelDatesCollection), mtest.FirstBatch,
			travelDateDoc(id, "2026-12-24", 12)))

		td, err := repo.FindByID(context.Background(), id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), td.ID)
		assert.Equal(mt, "2026-12-24", td.Date)
		assert.Equal(mt, 12, td.Capacity)
		assert.True(mt, td.IsAvailable)
	})

	mt.Run("missing date is not found", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt, TravelDatesCollection), mtest.FirstBatch))

		_, err := repo.FindByDate(context.Background(), "2030-01-01")
		assert.ErrorIs(mt, err, regerrors.ErrNotFound)
	})

	mt.Run("malformed id never reaches the server", func(mt *mtest.T) {
		repo := newTestRepository(mt)

		_, err := repo.FindByID(context.Background(), "not-an-object-id")
		assert.ErrorIs(mt, err, regerrors.ErrInvalidID)
	})

	mt.Run("network failure is unavailable", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		mt.AddMockResponses(networkErrorResponse())

		_, err := repo.FindByDate(context.Background(), "2026-12-24")
		assert.ErrorIs(mt, err, regerrors.ErrUnavailable)
		assert.False(mt, errors.Is(err, regerrors.ErrNotFound))
	})

	mt.Run("server timeout is unavailable", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    50,
			Name:    "MaxTimeMSExpired",
			Message: "operation exceeded time limit",
		}))

		_, err := repo.FindByID(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, regerrors.ErrUnavailable)
	})

	mt.Run("other server errors are not tagged", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad query",
		}))

		_, err := repo.FindByDate(context.Background(), "2026-12-24")
		require.Error(mt, err)
		assert.False(mt, errors.Is(err, regerrors.ErrUnavailable))
	})
}

func TestCreateTravelDate(t *testing.T) {
	mt := mtest.New(t, mockOptions())

	mt.Run("assigns hex id", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		td, err := repo.Create(context.Background(), "2026-12-24", 12, true)
		require.NoError(mt, err)
		_, err = primitive.ObjectIDFromHex(td.ID)
		assert.NoError(mt, err)
		assert.False(mt, td.ClosedByAdmin)
		assert.NotNil(mt, td.Participants)
	})

	mt.Run("created closed records the override", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		td, err := repo.Create(context.Background(), "2026-12-24", 12, false)
		require.NoError(mt, err)
		assert.False(mt, td.IsAvailable)
		assert.True(mt, td.ClosedByAdmin)
	})

	mt.Run("duplicate date", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    duplicateKeyCode,
			Message: "E11000 duplicate key error collection: Travel_dates index: date_1",
		}))

		_, err := repo.Create(context.Background(), "2026-12-24", 12, true)
		assert.ErrorIs(mt, err, regerrors.ErrDuplicateDate)
	})

	mt.Run("network failure is unavailable", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		mt.AddMockResponses(networkErrorResponse())

		_, err := repo.Create(context.Background(), "2026-12-24", 12, true)
		assert.ErrorIs(mt, err, regerrors.ErrUnavailable)
	})
}

func TestAddParticipant(t *testing.T) {
	mt := mtest.New(t, mockOptions())

	newParticipant := func() *model.Participant {
		return &model.Participant{
			UserID:             "user-1",
			Name:               "Rina",
			Phone:              "+6281234567890",
			TransportationType: model.TransportationBus,
			OriginCity:         "Bandung",
			DestinationCity:    "Yogyakarta",
			BusCompany:         "Pahala Kencana",
			BusTicketType:      "Executive",
			BusDepartureTime:   "19:00",
			Account:            &model.Account{Name: "Rina Sari", Email: "rina@example.com"},
		}
	}

	mt.Run("stores participant under travel date", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		tdID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, namespace(mt, TravelDatesCollection), mtest.FirstBatch, travelDateDoc(tdID, "2026-12-24", 12)),
			mtest.CreateSuccessResponse(),
		)

		p, err := repo.AddParticipant(context.Background(), tdID.Hex(), newParticipant())
		require.NoError(mt, err)
		assert.Equal(mt, tdID.Hex(), p.TravelDateID)
		_, err = primitive.ObjectIDFromHex(p.ID)
		assert.NoError(mt, err)
		assert.False(mt, p.CreatedAt.IsZero())

		find := mt.GetStartedEvent()
		require.NotNil(mt, find)
		assert.Equal(mt, "find", find.CommandName)

		insert := mt.GetStartedEvent()
		require.NotNil(mt, insert)
		assert.Equal(mt, "insert", insert.CommandName)
		assert.Equal(mt, tdID.Hex(), insert.Command.Lookup("documents", "0", "travel_date_id").StringValue())
		assert.Equal(mt, "rina@example.com", insert.Command.Lookup("documents", "0", "account", "email").StringValue())
	})

	mt.Run("duplicate registration", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		tdID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, namespace(mt, TravelDatesCollection), mtest.FirstBatch, travelDateDoc(tdID, "2026-12-24", 12)),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{
				Index:   0,
				Code:    duplicateKeyCode,
				Message: "E11000 duplicate key error collection: Participants index: travel_date_id_1_user_id_1",
			}),
		)

		_, err := repo.AddParticipant(context.Background(), tdID.Hex(), newParticipant())
		assert.ErrorIs(mt, err, regerrors.ErrAlreadyRegistered)
	})

	mt.Run("unknown travel date", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt, TravelDatesCollection), mtest.FirstBatch))

		_, err := repo.AddParticipant(context.Background(), primitive.NewObjectID().Hex(), newParticipant())
		assert.ErrorIs(mt, err, regerrors.ErrNotFound)
	})
}

func TestRemoveParticipant(t *testing.T) {
	mt := mtest.New(t, mockOptions())

	mt.Run("reports remaining count", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		tdID := primitive.NewObjectID().Hex()
		pID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: participantDoc(pID, tdID, "user-1")}),
			mtest.CreateCursorResponse(0, namespace(mt, ParticipantsCollection), mtest.FirstBatch, bson.D{{Key: "n", Value: int32(3)}}),
		)

		result, err := repo.RemoveParticipant(context.Background(), pID.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, tdID, result.TravelDateID)
		assert.Equal(mt, 3, result.Remaining)
		assert.Equal(mt, pID.Hex(), result.Participant.ID)
		require.NotNil(mt, result.Participant.Account)
		assert.Equal(mt, "Rina Sari", result.Participant.Account.Name)
	})

	mt.Run("missing participant", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := repo.RemoveParticipant(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, regerrors.ErrNotFound)
	})

	mt.Run("count failure is unavailable", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		pID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: participantDoc(pID, primitive.NewObjectID().Hex(), "user-1")}),
			networkErrorResponse(),
		)

		_, err := repo.RemoveParticipant(context.Background(), pID.Hex())
		assert.ErrorIs(mt, err, regerrors.ErrUnavailable)
	})
}

func TestCountParticipants(t *testing.T) {
	mt := mtest.New(t, mockOptions())

	mt.Run("count", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt, ParticipantsCollection), mtest.FirstBatch, bson.D{{Key: "n", Value: int32(7)}}))

		count, err := repo.CountParticipants(context.Background(), primitive.NewObjectID().Hex())
		require.NoError(mt, err)
		assert.Equal(mt, 7, count)
	})

	mt.Run("no participants", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt, ParticipantsCollection), mtest.FirstBatch))

		count, err := repo.CountParticipants(context.Background(), primitive.NewObjectID().Hex())
		require.NoError(mt, err)
		assert.Zero(mt, count)
	})
}
