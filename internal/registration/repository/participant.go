package repository

import (
	"context"
	"errors"

	regerrors "caravan/internal/registration/errors"
	mongotx "caravan/pkg/db/mongo"
	"caravan/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var participantOrder = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

// AddParticipant inserts a participant under travelDateID. The unique
// (travel_date_id, user_id) index is the authoritative duplicate guard; a
// violation surfaces as ErrAlreadyRegistered.
func (r *mongoTravelDateRepository) AddParticipant(ctx context.Context, travelDateID string, participant *model.Participant) (*model.Participant, error) {
	if _, err := r.FindByID(ctx, travelDateID); err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := r.now()
	participant.ID = ""
	participant.TravelDateID = travelDateID
	participant.CreatedAt = now
	participant.UpdatedAt = now

	result, err := r.participants.InsertOne(ctx, participant)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return nil, regerrors.ErrAlreadyRegistered
		}
		return nil, storeError("add participant", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		participant.ID = oid.Hex()
	}
	return participant, nil
}

// RemoveParticipant deletes a participant and reports how many remain on its
// travel date, both read inside one transaction.
func (r *mongoTravelDateRepository) RemoveParticipant(ctx context.Context, participantID string) (*model.RemovalResult, error) {
	objectID, err := primitive.ObjectIDFromHex(participantID)
	if err != nil {
		return nil, regerrors.ErrInvalidID
	}

	var result model.RemovalResult
	err = r.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		opCtx, cancel := r.withTimeout(txCtx, r.cfg.WriteTimeout)
		defer cancel()

		var removed model.Participant
		if err := r.participants.FindOneAndDelete(opCtx, bson.M{"_id": objectID}).Decode(&removed); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return regerrors.ErrNotFound
			}
			return storeError("remove participant", err)
		}

		remaining, err := r.CountParticipants(txCtx, removed.TravelDateID)
		if err != nil {
			return err
		}

		result = model.RemovalResult{
			Participant:  &removed,
			TravelDateID: removed.TravelDateID,
			Remaining:    remaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *mongoTravelDateRepository) FindParticipant(ctx context.Context, travelDateID string, userID string) (*model.Participant, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var p model.Participant
	err := r.participants.FindOne(ctx, bson.M{"travel_date_id": travelDateID, "user_id": userID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, regerrors.ErrNotFound
		}
		return nil, storeError("find participant", err)
	}
	return &p, nil
}

func (r *mongoTravelDateRepository) FindParticipantByID(ctx context.Context, id string) (*model.Participant, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, regerrors.ErrInvalidID
	}

	var p model.Participant
	err = r.participants.FindOne(ctx, bson.M{"_id": objectID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, regerrors.ErrNotFound
		}
		return nil, storeError("find participant", err)
	}
	return &p, nil
}

// UpdateParticipant rewrites the mutable fields of a participant. Identity,
// travel date, transportation mode and created_at never change.
func (r *mongoTravelDateRepository) UpdateParticipant(ctx context.Context, id string, participant *model.Participant) (*model.Participant, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, regerrors.ErrInvalidID
	}

	set := bson.M{
		"name":             participant.Name,
		"phone":            participant.Phone,
		"origin_city":      participant.OriginCity,
		"destination_city": participant.DestinationCity,
		"updated_at":       r.now(),
	}
	unset := bson.M{}

	switch participant.TransportationType {
	case model.TransportationFlight:
		set["flight"] = participant.Flight
		set["flight_code"] = participant.FlightCode
		set["flight_departure_time"] = participant.FlightDepartureTime
	case model.TransportationBus:
		set["bus_company"] = participant.BusCompany
		set["bus_ticket_type"] = participant.BusTicketType
		set["bus_departure_time"] = participant.BusDepartureTime
	}

	if participant.Notes != nil {
		set["notes"] = *participant.Notes
	} else {
		unset["notes"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.Participant
	err = r.participants.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, regerrors.ErrNotFound
		}
		return nil, storeError("update participant", err)
	}
	return &updated, nil
}

func (r *mongoTravelDateRepository) ListParticipants(ctx context.Context, filter model.ParticipantFilter) ([]*model.Participant, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	query := bson.M{}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.TravelDateID != "" {
		query["travel_date_id"] = filter.TravelDateID
	}
	return r.findParticipants(ctx, query)
}

func (r *mongoTravelDateRepository) CountParticipants(ctx context.Context, travelDateID string) (int, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.participants.CountDocuments(ctx, bson.M{"travel_date_id": travelDateID})
	if err != nil {
		return 0, storeError("count participants", err)
	}
	return int(count), nil
}

func (r *mongoTravelDateRepository) findParticipants(ctx context.Context, filter bson.M) ([]*model.Participant, error) {
	cursor, err := r.participants.Find(ctx, filter, options.Find().SetSort(participantOrder))
	if err != nil {
		return nil, storeError("find participants", err)
	}
	defer cursor.Close(ctx)

	participants := []*model.Participant{}
	if err = cursor.All(ctx, &participants); err != nil {
		return nil, storeError("decode participants", err)
	}
	return participants, nil
}
