package events

import (
	"context"
	"time"

	"caravan/pkg/kafka"
	"caravan/pkg/logger"
	"caravan/pkg/middleware"
	"caravan/pkg/model"
)

const (
	TypeParticipantRegistered   = "participant.registered"
	TypeParticipantUnregistered = "participant.unregistered"
	TypeTravelDateUpdated       = "travel_date.updated"

	SchemaVersion = "1"
)

// Event is the payload published for every accepted state change. It is
// keyed by travel date so consumers see changes to one date in order.
type Event struct {
	Type               string                   `json:"type"`
	TravelDateID       string                   `json:"travel_date_id"`
	Date               string                   `json:"date"`
	Capacity           int                      `json:"capacity"`
	IsAvailable        bool                     `json:"is_available"`
	ClosedByAdmin      bool                     `json:"closed_by_admin"`
	ParticipantCount   int                      `json:"participant_count"`
	ParticipantID      string                   `json:"participant_id,omitempty"`
	UserID             string                   `json:"user_id,omitempty"`
	TransportationType model.TransportationType `json:"transportation_type,omitempty"`
	ActorID            string                   `json:"actor_id,omitempty"`
	Stale              bool                     `json:"stale,omitempty"`
	OccurredAt         time.Time                `json:"occurred_at"`
}

// AsStale marks an event built from travel date state read before the
// availability recompute. is_available may lag and participant_count is only
// as fresh as the caller could provide.
func (e Event) AsStale() Event {
	e.Stale = true
	return e
}

func NewParticipantEvent(eventType string, td *model.TravelDate, p *model.Participant, count int, actor model.Identity) Event {
	e := newTravelDateEvent(eventType, td, count, actor)
	e.ParticipantID = p.ID
	e.UserID = p.UserID
	e.TransportationType = p.TransportationType
	return e
}

func NewTravelDateEvent(td *model.TravelDate, count int, actor model.Identity) Event {
	return newTravelDateEvent(TypeTravelDateUpdated, td, count, actor)
}

func newTravelDateEvent(eventType string, td *model.TravelDate, count int, actor model.Identity) Event {
	return Event{
		Type:             eventType,
		TravelDateID:     td.ID,
		Date:             td.Date,
		Capacity:         td.Capacity,
		IsAvailable:      td.IsAvailable,
		ClosedByAdmin:    td.ClosedByAdmin,
		ParticipantCount: count,
		ActorID:          actor.UserID,
		OccurredAt:       time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type messageProducer interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer messageProducer
	source   string
}

func NewKafkaPublisher(producer messageProducer, source string) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		source:   source,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := kafka.NewMessage().
		WithKey(event.TravelDateID).
		WithEventType(event.Type).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithValue(event).
		Build()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

// NoopPublisher drops events. Used when publishing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// LoggingPublisher logs and swallows publish failures so a broker outage
// never fails a registration that the store already accepted.
type LoggingPublisher struct {
	next Publisher
	log  *logger.Logger
}

func NewLoggingPublisher(next Publisher, log *logger.Logger) *LoggingPublisher {
	return &LoggingPublisher{next: next, log: log}
}

func (p *LoggingPublisher) Publish(ctx context.Context, event Event) error {
	if err := p.next.Publish(ctx, event); err != nil {
		p.log.Warn("Failed to publish event",
			"event_type", event.Type,
			"travel_date_id", event.TravelDateID,
			"error", err,
		)
	}
	return nil
}
