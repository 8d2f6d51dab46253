package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	regerrors "caravan/internal/registration/errors"
	"caravan/internal/registration/events"
	"caravan/internal/registration/validator"
	"caravan/pkg/config"
	mongotx "caravan/pkg/db/mongo"
	"caravan/pkg/logger"
	"caravan/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryStore is an in-memory travel date store with the same uniqueness
// guarantees as the Mongo indexes: one record per date and one participant
// per (travel date, user).
type memoryStore struct {
	mu           sync.Mutex
	dates        map[string]*model.TravelDate
	dateIDs      map[string]string
	participants map[string]*model.Participant
	clock        time.Time
	creates      int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		dates:        make(map[string]*model.TravelDate),
		dateIDs:      make(map[string]string),
		participants: make(map[string]*model.Participant),
		clock:        time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memoryStore) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func copyDate(td *model.TravelDate) *model.TravelDate {
	c := *td
	c.Participants = nil
	return &c
}

func copyParticipant(p *model.Participant) *model.Participant {
	c := *p
	if p.Notes != nil {
		notes := *p.Notes
		c.Notes = &notes
	}
	if p.Account != nil {
		account := *p.Account
		c.Account = &account
	}
	return &c
}

func validID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

func (m *memoryStore) FindByDate(ctx context.Context, date string) (*model.TravelDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.dateIDs[date]
	if !ok {
		return nil, regerrors.ErrNotFound
	}
	return copyDate(m.dates[id]), nil
}

func (m *memoryStore) FindByID(ctx context.Context, id string) (*model.TravelDate, error) {
	if !validID(id) {
		return nil, regerrors.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	td, ok := m.dates[id]
	if !ok {
		return nil, regerrors.ErrNotFound
	}
	return copyDate(td), nil
}

func (m *memoryStore) Create(ctx context.Context, date string, capacity int, isAvailable bool) (*model.TravelDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.dateIDs[date]; exists {
		return nil, regerrors.ErrDuplicateDate
	}

	now := m.tick()
	td := &model.TravelDate{
		ID:            primitive.NewObjectID().Hex(),
		Date:          date,
		Capacity:      capacity,
		IsAvailable:   isAvailable,
		ClosedByAdmin: !isAvailable,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.dates[td.ID] = td
	m.dateIDs[date] = td.ID
	m.creates++
	return copyDate(td), nil
}

func (m *memoryStore) Update(ctx context.Context, id string, update *model.TravelDateUpdate) (*model.TravelDate, error) {
	if !validID(id) {
		return nil, regerrors.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	td, ok := m.dates[id]
	if !ok {
		return nil, regerrors.ErrNotFound
	}
	if update.Capacity != nil {
		td.Capacity = *update.Capacity
	}
	if update.IsAvailable != nil {
		td.IsAvailable = *update.IsAvailable
	}
	if update.ClosedByAdmin != nil {
		td.ClosedByAdmin = *update.ClosedByAdmin
	}
	td.UpdatedAt = m.tick()
	return copyDate(td), nil
}

func (m *memoryStore) ListAll(ctx context.Context, date string) ([]*model.TravelDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*model.TravelDate, 0)
	for _, td := range m.dates {
		if date != "" && td.Date != date {
			continue
		}
		c := copyDate(td)
		c.Participants = m.participantsLocked(model.ParticipantFilter{TravelDateID: td.ID})
		result = append(result, c)
	}
	slices.SortFunc(result, func(a, b *model.TravelDate) int { return strings.Compare(a.Date, b.Date) })
	return result, nil
}

func (m *memoryStore) AddParticipant(ctx context.Context, travelDateID string, participant *model.Participant) (*model.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.dates[travelDateID]; !ok {
		return nil, regerrors.ErrNotFound
	}
	for _, p := range m.participants {
		if p.TravelDateID == travelDateID && p.UserID == participant.UserID {
			return nil, regerrors.ErrAlreadyRegistered
		}
	}

	now := m.tick()
	stored := copyParticipant(participant)
	stored.ID = primitive.NewObjectID().Hex()
	stored.TravelDateID = travelDateID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.participants[stored.ID] = stored
	return copyParticipant(stored), nil
}

func (m *memoryStore) RemoveParticipant(ctx context.Context, participantID string) (*model.RemovalResult, error) {
	if !validID(participantID) {
		return nil, regerrors.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.participants[participantID]
	if !ok {
		return nil, regerrors.ErrNotFound
	}
	delete(m.participants, participantID)

	return &model.RemovalResult{
		Participant:  copyParticipant(p),
		TravelDateID: p.TravelDateID,
		Remaining:    len(m.participantsLocked(model.ParticipantFilter{TravelDateID: p.TravelDateID})),
	}, nil
}

func (m *memoryStore) FindParticipant(ctx context.Context, travelDateID string, userID string) (*model.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.participants {
		if p.TravelDateID == travelDateID && p.UserID == userID {
			return copyParticipant(p), nil
		}
	}
	return nil, regerrors.ErrNotFound
}

func (m *memoryStore) FindParticipantByID(ctx context.Context, id string) (*model.Participant, error) {
	if !validID(id) {
		return nil, regerrors.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.participants[id]
	if !ok {
		return nil, regerrors.ErrNotFound
	}
	return copyParticipant(p), nil
}

func (m *memoryStore) UpdateParticipant(ctx context.Context, id string, participant *model.Participant) (*model.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.participants[id]
	if !ok {
		return nil, regerrors.ErrNotFound
	}
	updated := copyParticipant(participant)
	updated.ID = p.ID
	updated.TravelDateID = p.TravelDateID
	updated.UserID = p.UserID
	updated.TransportationType = p.TransportationType
	updated.CreatedAt = p.CreatedAt
	updated.UpdatedAt = m.tick()
	m.participants[id] = updated
	return copyParticipant(updated), nil
}

func (m *memoryStore) ListParticipants(ctx context.Context, filter model.ParticipantFilter) ([]*model.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.participantsLocked(filter), nil
}

func (m *memoryStore) participantsLocked(filter model.ParticipantFilter) []*model.Participant {
	result := make([]*model.Participant, 0)
	for _, p := range m.participants {
		if filter.TravelDateID != "" && p.TravelDateID != filter.TravelDateID {
			continue
		}
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		result = append(result, copyParticipant(p))
	}
	slices.SortFunc(result, func(a, b *model.Participant) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result
}

func (m *memoryStore) CountParticipants(ctx context.Context, travelDateID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.participantsLocked(model.ParticipantFilter{TravelDateID: travelDateID})), nil
}

func (m *memoryStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

// dateState returns the stored record and its live participant count.
func (m *memoryStore) dateState(date string) (*model.TravelDate, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.dateIDs[date]
	if !ok {
		return nil, 0
	}
	return copyDate(m.dates[id]), len(m.participantsLocked(model.ParticipantFilter{TravelDateID: id}))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

func testConfig(policy config.CapacityPolicy) *config.Config {
	return &config.Config{
		DefaultCapacity:    config.DefaultDefaultCapacity,
		MaxCapacity:        config.DefaultMaxCapacity,
		CapacityPolicy:     policy,
		PhoneDefaultRegion: config.DefaultPhoneDefaultRegion,
		Log:                logger.Discard(),
	}
}

func newTestCoordinator(repo *memoryStore, policy config.CapacityPolicy) (Coordinator, *recordingPublisher) {
	cfg := testConfig(policy)
	publisher := &recordingPublisher{}
	v := validator.NewRegistrationValidator(cfg.Log, cfg.MaxCapacity)
	return NewCoordinator(repo, v, publisher, cfg), publisher
}

var (
	admin = model.Identity{UserID: "admin-1", Role: model.RoleAdmin}
	user1 = model.Identity{UserID: "user-1", Role: model.RoleUser}
	user2 = model.Identity{UserID: "user-2", Role: model.RoleUser}
	user3 = model.Identity{UserID: "user-3", Role: model.RoleUser}
)

func flightRegistration(date string) *model.RegistrationRequest {
	return &model.RegistrationRequest{
		Date:                date,
		Name:                "Rina Wulandari",
		Phone:               "0812-3456-7890",
		TransportationType:  model.TransportationFlight,
		OriginCity:          "Jakarta",
		DestinationCity:     "Denpasar",
		Flight:              "Garuda Indonesia",
		FlightCode:          "ga 402",
		FlightDepartureTime: "08:30",
	}
}

func busRegistration(date string) *model.RegistrationRequest {
	return &model.RegistrationRequest{
		Date:               date,
		Name:               "Budi Santoso",
		Phone:              "+6281298765432",
		TransportationType: model.TransportationBus,
		OriginCity:         "Bandung",
		DestinationCity:    "Yogyakarta",
		BusCompany:         "Pahala Kencana",
		BusTicketType:      "Executive",
		BusDepartureTime:   "19:00",
	}
}
