package model

import "time"

type TransportationType string

const (
	TransportationFlight TransportationType = "flight"
	TransportationBus    TransportationType = "bus"
)

func (t TransportationType) Valid() bool {
	return t == TransportationFlight || t == TransportationBus
}

type Participant struct {
	ID                  string             `json:"id,omitempty" bson:"_id,omitempty"`
	TravelDateID        string             `json:"travel_date_id" bson:"travel_date_id"`
	UserID              string             `json:"user_id" bson:"user_id"`
	Name                string             `json:"name" bson:"name"`
	Phone               string             `json:"phone" bson:"phone"`
	TransportationType  TransportationType `json:"transportation_type" bson:"transportation_type"`
	OriginCity          string             `json:"origin_city" bson:"origin_city"`
	DestinationCity     string             `json:"destination_city" bson:"destination_city"`
	Flight              string             `json:"flight,omitempty" bson:"flight,omitempty"`
	FlightCode          string             `json:"flight_code,omitempty" bson:"flight_code,omitempty"`
	FlightDepartureTime string             `json:"flight_departure_time,omitempty" bson:"flight_departure_time,omitempty"`
	BusCompany          string             `json:"bus_company,omitempty" bson:"bus_company,omitempty"`
	BusTicketType       string             `json:"bus_ticket_type,omitempty" bson:"bus_ticket_type,omitempty"`
	BusDepartureTime    string             `json:"bus_departure_time,omitempty" bson:"bus_departure_time,omitempty"`
	Notes               *string            `json:"notes,omitempty" bson:"notes,omitempty"`
	Account             *Account           `json:"user,omitempty" bson:"account,omitempty"`
	CreatedAt           time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at" bson:"updated_at"`
}

// Account is the registrant's identity provider profile as seen when the
// registration was made. Name may differ from the traveller name on the
// registration itself.
type Account struct {
	Name  string `json:"name,omitempty" bson:"name,omitempty"`
	Email string `json:"email,omitempty" bson:"email,omitempty"`
}

// RegistrationRequest is the inbound registration body. Either Date or
// TravelDateID identifies the departure; Date creates the record on demand.
type RegistrationRequest struct {
	Date                string             `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TravelDateID        string             `json:"travel_date_id,omitempty" validate:"omitempty,mongodb"`
	Name                string             `json:"name" validate:"required"`
	Phone               string             `json:"phone" validate:"required"`
	TransportationType  TransportationType `json:"transportation_type" validate:"required,oneof=flight bus"`
	OriginCity          string             `json:"origin_city" validate:"required"`
	DestinationCity     string             `json:"destination_city" validate:"required"`
	Flight              string             `json:"flight,omitempty" validate:"required_if=TransportationType flight"`
	FlightCode          string             `json:"flight_code,omitempty" validate:"required_if=TransportationType flight"`
	FlightDepartureTime string             `json:"flight_departure_time,omitempty" validate:"required_if=TransportationType flight"`
	BusCompany          string             `json:"bus_company,omitempty" validate:"required_if=TransportationType bus"`
	BusTicketType       string             `json:"bus_ticket_type,omitempty" validate:"required_if=TransportationType bus"`
	BusDepartureTime    string             `json:"bus_departure_time,omitempty" validate:"required_if=TransportationType bus"`
	Notes               string             `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// ParticipantUpdate carries the mutable subset of a registration.
// Nil fields are left unchanged.
type ParticipantUpdate struct {
	ID                  string  `json:"id" validate:"required,mongodb"`
	Name                *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Phone               *string `json:"phone,omitempty" validate:"omitempty,min=1"`
	OriginCity          *string `json:"origin_city,omitempty" validate:"omitempty,min=1"`
	DestinationCity     *string `json:"destination_city,omitempty" validate:"omitempty,min=1"`
	Flight              *string `json:"flight,omitempty" validate:"omitempty,min=1"`
	FlightCode          *string `json:"flight_code,omitempty" validate:"omitempty,min=1"`
	FlightDepartureTime *string `json:"flight_departure_time,omitempty" validate:"omitempty,min=1"`
	BusCompany          *string `json:"bus_company,omitempty" validate:"omitempty,min=1"`
	BusTicketType       *string `json:"bus_ticket_type,omitempty" validate:"omitempty,min=1"`
	BusDepartureTime    *string `json:"bus_departure_time,omitempty" validate:"omitempty,min=1"`
	Notes               *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (u *ParticipantUpdate) HasFlightFields() bool {
	return u.Flight != nil || u.FlightCode != nil || u.FlightDepartureTime != nil
}

func (u *ParticipantUpdate) HasBusFields() bool {
	return u.BusCompany != nil || u.BusTicketType != nil || u.BusDepartureTime != nil
}

type ParticipantFilter struct {
	UserID       string
	TravelDateID string
}

// ParticipantView is a participant enriched with its departure date and the
// registrant's account, as shown on registration lists.
type ParticipantView struct {
	*Participant
	User        *Account `json:"user,omitempty"`
	Date        string   `json:"date"`
	Capacity    int      `json:"capacity"`
	IsAvailable bool     `json:"is_available"`
}

// RemovalResult is returned by the store after deleting a participant so the
// caller can recompute availability without a second read.
type RemovalResult struct {
	Participant  *Participant
	TravelDateID string
	Remaining    int
}
