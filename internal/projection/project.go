// Package projection narrows a raw terminal record into the display-ready
// view a caller asked for. It performs no I/O and never fails: missing fields
// fall back to fixed defaults.
package projection

import (
	"github.com/pnct-tools/container-query/internal/clock"
	"github.com/pnct-tools/container-query/internal/domain"
)

const unknown = "Unknown"

// PlaceholderCoordinates is attached to location views whenever both Block and
// Bay are set. It is a fixed point at the terminal, not a geocode.
var PlaceholderCoordinates = domain.Coordinates{Lat: 40.7032, Lon: -74.1468}

// Projector stamps views with the time of its clock.
type Projector struct {
	clock clock.Clock
}

func New(c clock.Clock) *Projector {
	if c == nil {
		c = clock.NewSystem()
	}
	return &Projector{clock: c}
}

// Project uses the system clock.
func Project(r domain.ContainerRecord, intent domain.Intent) domain.ProjectedView {
	return New(nil).Project(r, intent)
}

// Project returns the view for intent. Unknown intents pass the record
// through under raw_data.
func (p *Projector) Project(r domain.ContainerRecord, intent domain.Intent) domain.ProjectedView {
	if r == nil {
		r = domain.ContainerRecord{}
	}
	holds := AssessHolds(r)

	switch intent {
	case domain.IntentStatus:
		v := p.status(r)
		return domain.ProjectedView{Status: &v}
	case domain.IntentLocation:
		v := p.location(r)
		return domain.ProjectedView{Location: &v}
	case domain.IntentAvailability:
		v := p.availability(r, holds)
		return domain.ProjectedView{Availability: &v}
	case domain.IntentHolds:
		v := p.holds(r, holds)
		return domain.ProjectedView{Holds: &v}
	case domain.IntentLastFreeDay:
		v := p.lastFreeDay(r)
		return domain.ProjectedView{LastFreeDay: &v}
	case domain.IntentAll:
		// Each section is stamped on its own.
		return domain.ProjectedView{All: &domain.AllView{
			Status:       p.status(r),
			Location:     p.location(r),
			Availability: p.availability(r, holds),
			Holds:        p.holds(r, holds),
			LastFreeDay:  p.lastFreeDay(r),
		}}
	}
	return domain.ProjectedView{Raw: &domain.RawView{
		RawData:     r,
		LastUpdated: p.stamp(),
	}}
}

func (p *Projector) stamp() string {
	return domain.FormatTimestamp(p.clock.Now())
}

func (p *Projector) status(r domain.ContainerRecord) domain.StatusView {
	return domain.StatusView{
		Status:                    r.ValueOr(domain.FieldState, unknown),
		ContainerState:            r.ValueOr(domain.FieldContainerState, unknown),
		Location:                  r.ValueOr(domain.FieldLocation, unknown),
		Available:                 r.IsAvailable(),
		AvailabilityDisplayStatus: r.ValueOr(domain.FieldAvailabilityDisplayStatus, unknown),
		LastUpdated:               p.stamp(),
	}
}

func (p *Projector) location(r domain.ContainerRecord) domain.LocationView {
	v := domain.LocationView{
		Location:       r.ValueOr(domain.FieldLocation, unknown),
		YardName:       r.Value(domain.FieldYardName),
		Block:          r.Value(domain.FieldBlock),
		Bay:            r.Value(domain.FieldBay),
		Position:       r.Value(domain.FieldPosition),
		State:          r.ValueOr(domain.FieldState, unknown),
		ContainerState: r.ValueOr(domain.FieldContainerState, unknown),
		LastUpdated:    p.stamp(),
	}
	if r.Truthy(domain.FieldBlock) && r.Truthy(domain.FieldBay) {
		coords := PlaceholderCoordinates
		v.Coordinates = &coords
	}
	return v
}

func (p *Projector) availability(r domain.ContainerRecord, holds domain.HoldAssessment) domain.AvailabilityView {
	available := r.IsAvailable()
	return domain.AvailabilityView{
		Available:                 available,
		AvailabilityDisplayStatus: r.ValueOr(domain.FieldAvailabilityDisplayStatus, "No"),
		AvailableForPickup:        available && !holds.HasHolds,
		OrderOfAccessibility:      r.Value(domain.FieldOrderOfAccessibility),
		LastUpdated:               p.stamp(),
	}
}

func (p *Projector) holds(r domain.ContainerRecord, holds domain.HoldAssessment) domain.HoldsView {
	types := make([]string, len(holds.HoldTypes))
	copy(types, holds.HoldTypes)
	return domain.HoldsView{
		HasHolds:             holds.HasHolds,
		HoldTypes:            types,
		CarrierReleaseStatus: r.Value(domain.FieldCarrierReleaseStatus),
		CustomReleaseStatus:  r.Value(domain.FieldCustomReleaseStatus),
		UsdaStatus:           r.Value(domain.FieldUsdaStatus),
		YardReleaseStatus:    r.Value(domain.FieldYardReleaseStatus),
		MiscHoldStatus:       r.Value(domain.FieldMiscHoldStatus),
		MiscHoldDetail:       r.Value(domain.FieldMiscHoldDetail),
		IsTerminalHold:       r.ValueOr(domain.FieldIsTerminalHold, false),
		CarrierHold:          r.ValueOr(domain.FieldCarrierHold, 0),
		LastUpdated:          p.stamp(),
	}
}

func (p *Projector) lastFreeDay(r domain.ContainerRecord) domain.LastFreeDayView {
	return domain.LastFreeDayView{
		LastFreeDate:         r.FirstTruthy(domain.FieldLastFreeDate, domain.FieldLastFreeDt),
		LineLastFreeDate:     r.FirstTruthy(domain.FieldLineLastFreeDate, domain.FieldLineLastFreeDt),
		FreeDays:             r.ValueOr(domain.FieldFreeDays, "0"),
		FirstFreeDate:        r.Value(domain.FieldFirstFreeDate),
		DemurrageDueFlag:     r.Value(domain.FieldDemurrageDueFlag),
		DemurrageAmount:      r.ValueOr(domain.FieldDemurrageAmount, 0.0),
		LineDemurrageAmount:  r.ValueOr(domain.FieldLineDemurrageAmount, 0.0),
		IsOnDemurrageWarning: r.ValueOr(domain.FieldIsOnDemurrageWarning, false),
		LastUpdated:          p.stamp(),
	}
}
