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

func (r *mongoTravelDateRepository) FindByDate(ctx context.Context, date string) (*model.TravelDate, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var td model.TravelDate
	err := r.travelDates.FindOne(ctx, bson.M{"date": date}).Decode(&td)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, regerrors.ErrNotFound
		}
		return nil, storeError("find travel date", err)
	}
	return &td, nil
}

func (r *mongoTravelDateRepository) FindByID(ctx context.Context, id string) (*model.TravelDate, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, regerrors.ErrInvalidID
	}

	var td model.TravelDate
	err = r.travelDates.FindOne(ctx, bson.M{"_id": objectID}).Decode(&td)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, regerrors.ErrNotFound
		}
		return nil, storeError("find travel date", err)
	}
	return &td, nil
}

// Create inserts a new travel date. The unique index on "date" makes this
// at-most-once per calendar date; a losing writer gets ErrDuplicateDate.
// An empty date created unavailable can only be an explicit close.
func (r *mongoTravelDateRepository) Create(ctx context.Context, date string, capacity int, isAvailable bool) (*model.TravelDate, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := r.now()
	td := &model.TravelDate{
		Date:          date,
		Capacity:      capacity,
		IsAvailable:   isAvailable,
		ClosedByAdmin: !isAvailable,
		Participants:  []*model.Participant{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	result, err := r.travelDates.InsertOne(ctx, td)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return nil, regerrors.ErrDuplicateDate
		}
		return nil, storeError("create travel date", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		td.ID = oid.Hex()
	}
	return td, nil
}

func (r *mongoTravelDateRepository) Update(ctx context.Context, id string, update *model.TravelDateUpdate) (*model.TravelDate, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, regerrors.ErrInvalidID
	}

	set := bson.M{"updated_at": r.now()}
	if update.Capacity != nil {
		set["capacity"] = *update.Capacity
	}
	if update.IsAvailable != nil {
		set["is_available"] = *update.IsAvailable
	}
	if update.ClosedByAdmin != nil {
		set["closed_by_admin"] = *update.ClosedByAdmin
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var td model.TravelDate
	err = r.travelDates.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, bson.M{"$set": set}, opts).Decode(&td)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, regerrors.ErrNotFound
		}
		return nil, storeError("update travel date", err)
	}
	return &td, nil
}

// ListAll returns travel dates ordered by date with their participants
// embedded in registration order. A non-empty date narrows the result to
// that single day.
func (r *mongoTravelDateRepository) ListAll(ctx context.Context, date string) ([]*model.TravelDate, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if date != "" {
		filter["date"] = date
	}

	cursor, err := r.travelDates.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, storeError("list travel dates", err)
	}
	defer cursor.Close(ctx)

	travelDates := []*model.TravelDate{}
	if err = cursor.All(ctx, &travelDates); err != nil {
		return nil, storeError("decode travel dates", err)
	}
	if len(travelDates) == 0 {
		return travelDates, nil
	}

	ids := make([]string, 0, len(travelDates))
	byID := make(map[string]*model.TravelDate, len(travelDates))
	for _, td := range travelDates {
		td.Participants = []*model.Participant{}
		ids = append(ids, td.ID)
		byID[td.ID] = td
	}

	participants, err := r.findParticipants(ctx, bson.M{"travel_date_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, p := range participants {
		if td, ok := byID[p.TravelDateID]; ok {
			td.Participants = append(td.Participants, p)
		}
	}

	return travelDates, nil
}
