// Package projection builds read-only views over travel dates for the
// calendar and admin screens. Nothing here touches the store.
package projection

import (
	"cmp"
	"slices"

	"caravan/pkg/model"
)

type LoadLevel string

const (
	LoadClosed LoadLevel = "closed"
	LoadLow    LoadLevel = "low"
	LoadMedium LoadLevel = "medium"
	LoadHigh   LoadLevel = "high"
	LoadFull   LoadLevel = "full"

	mediumLoadPercent = 70
	highLoadPercent   = 90
)

// TransportGroup is everyone on the same carrier and service: one airline
// and flight code, or one bus company and ticket type.
type TransportGroup struct {
	Mode         model.TransportationType `json:"transportation_type"`
	Carrier      string                   `json:"carrier"`
	Code         string                   `json:"code"`
	Count        int                      `json:"count"`
	Participants []*model.Participant     `json:"participants"`
}

type Summary struct {
	Date        string    `json:"date"`
	Capacity    int       `json:"capacity"`
	Count       int       `json:"count"`
	Remaining   int       `json:"remaining"`
	LoadPercent int       `json:"load_percent"`
	Level       LoadLevel `json:"level"`
	IsAvailable bool      `json:"is_available"`
}

type DateOverview struct {
	TravelDateID string           `json:"travel_date_id"`
	Summary      Summary          `json:"summary"`
	Groups       []TransportGroup `json:"groups"`
}

type groupKey struct {
	mode    model.TransportationType
	carrier string
	code    string
}

func keyOf(p *model.Participant) groupKey {
	if p.TransportationType == model.TransportationBus {
		return groupKey{mode: model.TransportationBus, carrier: p.BusCompany, code: p.BusTicketType}
	}
	return groupKey{mode: model.TransportationFlight, carrier: p.Flight, code: p.FlightCode}
}

func modeRank(mode model.TransportationType) int {
	if mode == model.TransportationFlight {
		return 0
	}
	return 1
}

// GroupByTransport groups participants by transport key. Groups are ordered
// flights first, then by carrier and code; members by registration time.
// The input slice is not modified.
func GroupByTransport(participants []*model.Participant) []TransportGroup {
	index := make(map[groupKey]int)
	groups := make([]TransportGroup, 0)

	for _, p := range participants {
		if p == nil {
			continue
		}
		key := keyOf(p)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, TransportGroup{
				Mode:    key.mode,
				Carrier: key.carrier,
				Code:    key.code,
			})
		}
		groups[i].Participants = append(groups[i].Participants, p)
	}

	for i := range groups {
		slices.SortStableFunc(groups[i].Participants, byRegistration)
		groups[i].Count = len(groups[i].Participants)
	}

	slices.SortFunc(groups, func(a, b TransportGroup) int {
		return cmp.Or(
			cmp.Compare(modeRank(a.Mode), modeRank(b.Mode)),
			cmp.Compare(a.Carrier, b.Carrier),
			cmp.Compare(a.Code, b.Code),
		)
	})

	return groups
}

func byRegistration(a, b *model.Participant) int {
	return cmp.Or(
		a.CreatedAt.Compare(b.CreatedAt),
		cmp.Compare(a.ID, b.ID),
	)
}

// Summarize reports how loaded a travel date is.
func Summarize(td *model.TravelDate) Summary {
	count := len(td.Participants)
	s := Summary{
		Date:        td.Date,
		Capacity:    td.Capacity,
		Count:       count,
		Remaining:   max(td.Capacity-count, 0),
		IsAvailable: td.IsAvailable,
	}
	if td.Capacity > 0 {
		s.LoadPercent = count * 100 / td.Capacity
	}

	switch {
	case td.ClosedByAdmin:
		s.Level = LoadClosed
	case td.Full(count):
		s.Level = LoadFull
	case s.LoadPercent >= highLoadPercent:
		s.Level = LoadHigh
	case s.LoadPercent >= mediumLoadPercent:
		s.Level = LoadMedium
	default:
		s.Level = LoadLow
	}
	return s
}

func Overview(td *model.TravelDate) DateOverview {
	return DateOverview{
		TravelDateID: td.ID,
		Summary:      Summarize(td),
		Groups:       GroupByTransport(td.Participants),
	}
}

// Enrich attaches the travel date's calendar fields and the registrant's
// account to each participant.
func Enrich(td *model.TravelDate, participants []*model.Participant) []*model.ParticipantView {
	views := make([]*model.ParticipantView, 0, len(participants))
	for _, p := range participants {
		views = append(views, &model.ParticipantView{
			Participant: p,
			User:        p.Account,
			Date:        td.Date,
			Capacity:    td.Capacity,
			IsAvailable: td.IsAvailable,
		})
	}
	return views
}

// ForUser collects every registration held by userID across travelDates,
// ordered by travel date and then registration time.
func ForUser(travelDates []*model.TravelDate, userID string) []*model.ParticipantView {
	return collect(travelDates, func(p *model.Participant) bool {
		return p.UserID == userID
	})
}

// Flatten lists every registration across travelDates in the same order as
// ForUser.
func Flatten(travelDates []*model.TravelDate) []*model.ParticipantView {
	return collect(travelDates, func(*model.Participant) bool { return true })
}

func collect(travelDates []*model.TravelDate, keep func(*model.Participant) bool) []*model.ParticipantView {
	views := make([]*model.ParticipantView, 0)
	for _, td := range travelDates {
		var matched []*model.Participant
		for _, p := range td.Participants {
			if p != nil && keep(p) {
				matched = append(matched, p)
			}
		}
		views = append(views, Enrich(td, matched)...)
	}

	slices.SortStableFunc(views, func(a, b *model.ParticipantView) int {
		return cmp.Or(
			cmp.Compare(a.Date, b.Date),
			byRegistration(a.Participant, b.Participant),
		)
	})
	return views
}
