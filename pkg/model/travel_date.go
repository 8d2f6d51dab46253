package model

import "time"

type TravelDate struct {
	ID            string         `json:"id,omitempty" bson:"_id,omitempty"`
	Date          string         `json:"date" bson:"date"`
	Capacity      int            `json:"capacity" bson:"capacity"`
	IsAvailable   bool           `json:"is_available" bson:"is_available"`
	ClosedByAdmin bool           `json:"closed_by_admin" bson:"closed_by_admin"`
	Participants  []*Participant `json:"participants" bson:"-"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" bson:"updated_at"`
}

// TravelDateCreate is the body of an idempotent create. Nil fields fall back
// to the configured defaults.
type TravelDateCreate struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Capacity    *int   `json:"capacity,omitempty" validate:"omitempty,min=1"`
	IsAvailable *bool  `json:"is_available,omitempty"`
}

// TravelDateUpdate is a partial admin update. Only non-nil fields are applied.
type TravelDateUpdate struct {
	ID            string `json:"id" bson:"-" validate:"required,mongodb"`
	Capacity      *int   `json:"capacity,omitempty" bson:"capacity,omitempty" validate:"omitempty,min=1"`
	IsAvailable   *bool  `json:"is_available,omitempty" bson:"is_available,omitempty"`
	ClosedByAdmin *bool  `json:"-" bson:"closed_by_admin,omitempty"`
}

func (u *TravelDateUpdate) IsEmpty() bool {
	return u.Capacity == nil && u.IsAvailable == nil && u.ClosedByAdmin == nil
}

// Full reports whether the participant count has reached capacity.
func (td *TravelDate) Full(count int) bool {
	return count >= td.Capacity
}

// AvailableFor derives the availability flag for the given participant count.
// An admin close always wins over the count.
func (td *TravelDate) AvailableFor(count int) bool {
	if td.ClosedByAdmin {
		return false
	}
	return count < td.Capacity
}
