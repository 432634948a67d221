package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is used for every last_updated and scraped_at value.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in UTC with millisecond precision and a trailing Z.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// HoldAssessment is computed once per projection and shared by the holds,
// availability and all views.
type HoldAssessment struct {
	HasHolds  bool     `json:"has_holds"`
	HoldTypes []string `json:"hold_types"`
}

// Raw values are typed any so they are echoed exactly as the terminal sent
// them, including explicit nulls.

type StatusView struct {
	Status                    any    `json:"status"`
	ContainerState            any    `json:"container_state"`
	Location                  any    `json:"location"`
	Available                 bool   `json:"available"`
	AvailabilityDisplayStatus any    `json:"availability_display_status"`
	LastUpdated               string `json:"last_updated"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type LocationView struct {
	Location       any          `json:"location"`
	YardName       any          `json:"yard_name"`
	Block          any          `json:"block"`
	Bay            any          `json:"bay"`
	Position       any          `json:"position"`
	State          any          `json:"state"`
	ContainerState any          `json:"container_state"`
	LastUpdated    string       `json:"last_updated"`
	Coordinates    *Coordinates `json:"coordinates,omitempty"`
}

type AvailabilityView struct {
	Available                 bool   `json:"available"`
	AvailabilityDisplayStatus any    `json:"availability_display_status"`
	AvailableForPickup        bool   `json:"available_for_pickup"`
	OrderOfAccessibility      any    `json:"order_of_accessibility"`
	LastUpdated               string `json:"last_updated"`
}

type HoldsView struct {
	HasHolds             bool     `json:"has_holds"`
	HoldTypes            []string `json:"hold_types"`
	CarrierReleaseStatus any      `json:"carrier_release_status"`
	CustomReleaseStatus  any      `json:"custom_release_status"`
	UsdaStatus           any      `json:"usda_status"`
	YardReleaseStatus    any      `json:"yard_release_status"`
	MiscHoldStatus       any      `json:"misc_hold_status"`
	MiscHoldDetail       any      `json:"misc_hold_detail"`
	IsTerminalHold       any      `json:"is_terminal_hold"`
	CarrierHold          any      `json:"carrier_hold"`
	LastUpdated          string   `json:"last_updated"`
}

type LastFreeDayView struct {
	LastFreeDate         any    `json:"last_free_date"`
	LineLastFreeDate     any    `json:"line_last_free_date"`
	FreeDays             any    `json:"free_days"`
	FirstFreeDate        any    `json:"first_free_date"`
	DemurrageDueFlag     any    `json:"demurrage_due_flag"`
	DemurrageAmount      any    `json:"demurrage_amount"`
	LineDemurrageAmount  any    `json:"line_demurrage_amount"`
	IsOnDemurrageWarning any    `json:"is_on_demurrage_warning"`
	LastUpdated          string `json:"last_updated"`
}

// AllView is exactly the union of the five single-intent views keyed by name.
type AllView struct {
	Status       StatusView       `json:"status"`
	Location     LocationView     `json:"location"`
	Availability AvailabilityView `json:"availability"`
	Holds        HoldsView        `json:"holds"`
	LastFreeDay  LastFreeDayView  `json:"last_free_day"`
}

// RawView is the pass-through used for an intent the projection does not know.
type RawView struct {
	RawData     ContainerRecord `json:"raw_data"`
	LastUpdated string          `json:"last_updated"`
}

// ProjectedView holds the projection for one intent. Exactly one field is set
// and it alone is serialized.
type ProjectedView struct {
	Status       *StatusView
	Location     *LocationView
	Availability *AvailabilityView
	Holds        *HoldsView
	LastFreeDay  *LastFreeDayView
	All          *AllView
	Raw          *RawView
}

func (v ProjectedView) active() any {
	switch {
	case v.Status != nil:
		return v.Status
	case v.Location != nil:
		return v.Location
	case v.Availability != nil:
		return v.Availability
	case v.Holds != nil:
		return v.Holds
	case v.LastFreeDay != nil:
		return v.LastFreeDay
	case v.All != nil:
		return v.All
	case v.Raw != nil:
		return v.Raw
	}
	return nil
}

// IsZero reports whether no view is set.
func (v ProjectedView) IsZero() bool {
	return v.active() == nil
}

func (v ProjectedView) MarshalJSON() ([]byte, error) {
	a := v.active()
	if a == nil {
		return []byte("null"), nil
	}
	return json.Marshal(a)
}

// DecodeView decodes data as the view shape for intent. Unknown intents decode
// into a RawView.
func DecodeView(intent Intent, data []byte) (ProjectedView, error) {
	var (
		v   ProjectedView
		err error
	)
	switch intent {
	case IntentStatus:
		v.Status = &StatusView{}
		err = json.Unmarshal(data, v.Status)
	case IntentLocation:
		v.Location = &LocationView{}
		err = json.Unmarshal(data, v.Location)
	case IntentAvailability:
		v.Availability = &AvailabilityView{}
		err = json.Unmarshal(data, v.Availability)
	case IntentHolds:
		v.Holds = &HoldsView{}
		err = json.Unmarshal(data, v.Holds)
	case IntentLastFreeDay:
		v.LastFreeDay = &LastFreeDayView{}
		err = json.Unmarshal(data, v.LastFreeDay)
	case IntentAll:
		v.All = &AllView{}
		err = json.Unmarshal(data, v.All)
	default:
		v.Raw = &RawView{}
		err = json.Unmarshal(data, v.Raw)
	}
	if err != nil {
		return ProjectedView{}, fmt.Errorf("decode %s view: %w", intent, err)
	}
	return v, nil
}

// LookupRequest is the input of one lookup.
type LookupRequest struct {
	ContainerID string `json:"container_id"`
	Intent      Intent `json:"intent"`
}

// LookupResult is what a successful lookup returns up the chain unchanged.
type LookupResult struct {
	ContainerID string        `json:"container_id"`
	Intent      Intent        `json:"intent"`
	Data        ProjectedView `json:"data"`
	ScrapedAt   string        `json:"scraped_at"`
}

func (r *LookupResult) UnmarshalJSON(b []byte) error {
	var wire struct {
		ContainerID string          `json:"container_id"`
		Intent      Intent          `json:"intent"`
		Data        json.RawMessage `json:"data"`
		ScrapedAt   string          `json:"scraped_at"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	r.ContainerID = wire.ContainerID
	r.Intent = wire.Intent
	r.ScrapedAt = wire.ScrapedAt
	r.Data = ProjectedView{}
	if len(wire.Data) == 0 || string(wire.Data) == "null" {
		return nil
	}
	view, err := DecodeView(wire.Intent, wire.Data)
	if err != nil {
		return err
	}
	r.Data = view
	return nil
}
