package errors

import "errors"

var (
	ErrNotFound = errors.New("record not found")

	ErrInvalidID = errors.New("invalid ID format")

	// ErrDuplicateDate is returned by create when another writer already
	// inserted a record for the same calendar date.
	ErrDuplicateDate = errors.New("travel date already exists")

	// ErrAlreadyRegistered is the unique (travel_date_id, user_id) index firing.
	ErrAlreadyRegistered = errors.New("user already registered for this travel date")

	ErrUnavailable = errors.New("travel date store unavailable")
)
