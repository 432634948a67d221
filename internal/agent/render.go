package agent

import (
	"fmt"
	"strings"

	"github.com/pnct-tools/container-query/internal/domain"
)

const notAvailable = "not available"

// Render phrases a lookup result without a model. The output lists every
// field of the projected view.
func Render(result domain.LookupResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Container %s", result.ContainerID)

	v := result.Data
	switch {
	case v.Status != nil:
		b.WriteString(" status:\n")
		renderStatus(&b, v.Status)
	case v.Location != nil:
		b.WriteString(" location:\n")
		renderLocation(&b, v.Location)
	case v.Availability != nil:
		b.WriteString(" availability:\n")
		renderAvailability(&b, v.Availability)
	case v.Holds != nil:
		b.WriteString(" holds:\n")
		renderHolds(&b, v.Holds)
	case v.LastFreeDay != nil:
		b.WriteString(" last free day:\n")
		renderLastFreeDay(&b, v.LastFreeDay)
	case v.All != nil:
		b.WriteString(" full report:\n")
		section(&b, "Status", func() { renderStatus(&b, &v.All.Status) })
		section(&b, "Location", func() { renderLocation(&b, &v.All.Location) })
		section(&b, "Availability", func() { renderAvailability(&b, &v.All.Availability) })
		section(&b, "Holds", func() { renderHolds(&b, &v.All.Holds) })
		section(&b, "Last free day", func() { renderLastFreeDay(&b, &v.All.LastFreeDay) })
	case v.Raw != nil:
		b.WriteString(" raw record:\n")
		for _, k := range v.Raw.RawData.Keys() {
			line(&b, k, v.Raw.RawData[k])
		}
	default:
		b.WriteString(": no data returned.")
		return b.String()
	}

	if result.ScrapedAt != "" {
		fmt.Fprintf(&b, "Data retrieved at %s.", result.ScrapedAt)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderStatus(b *strings.Builder, s *domain.StatusView) {
	line(b, "Status", s.Status)
	line(b, "Container state", s.ContainerState)
	line(b, "Location", s.Location)
	line(b, "Available", yesNo(s.Available))
	line(b, "Availability display status", s.AvailabilityDisplayStatus)
}

func renderLocation(b *strings.Builder, l *domain.LocationView) {
	line(b, "Location", l.Location)
	line(b, "Yard", l.YardName)
	line(b, "Block", l.Block)
	line(b, "Bay", l.Bay)
	line(b, "Position", l.Position)
	line(b, "State", l.State)
	line(b, "Container state", l.ContainerState)
	if l.Coordinates != nil {
		line(b, "Coordinates (approximate, terminal)", fmt.Sprintf("%.4f, %.4f", l.Coordinates.Lat, l.Coordinates.Lon))
	}
}

func renderAvailability(b *strings.Builder, a *domain.AvailabilityView) {
	line(b, "Available", yesNo(a.Available))
	line(b, "Availability display status", a.AvailabilityDisplayStatus)
	line(b, "Available for pickup", yesNo(a.AvailableForPickup))
	line(b, "Order of accessibility", a.OrderOfAccessibility)
}

func renderHolds(b *strings.Builder, h *domain.HoldsView) {
	if h.HasHolds {
		line(b, "Holds", strings.Join(h.HoldTypes, ", "))
	} else {
		line(b, "Holds", "none")
	}
	line(b, "Carrier release status", h.CarrierReleaseStatus)
	line(b, "Customs release status", h.CustomReleaseStatus)
	line(b, "USDA status", h.UsdaStatus)
	line(b, "Yard release status", h.YardReleaseStatus)
	line(b, "Misc hold status", h.MiscHoldStatus)
	line(b, "Misc hold detail", h.MiscHoldDetail)
	line(b, "Terminal hold", h.IsTerminalHold)
	line(b, "Carrier hold", h.CarrierHold)
}

func renderLastFreeDay(b *strings.Builder, l *domain.LastFreeDayView) {
	line(b, "Last free date", l.LastFreeDate)
	line(b, "Line last free date", l.LineLastFreeDate)
	line(b, "Free days", l.FreeDays)
	line(b, "First free date", l.FirstFreeDate)
	line(b, "Demurrage due", l.DemurrageDueFlag)
	line(b, "Demurrage amount", l.DemurrageAmount)
	line(b, "Line demurrage amount", l.LineDemurrageAmount)
	line(b, "Demurrage warning", l.IsOnDemurrageWarning)
}

func section(b *strings.Builder, title string, body func()) {
	fmt.Fprintf(b, "%s:\n", title)
	body()
}

func line(b *strings.Builder, label string, value any) {
	fmt.Fprintf(b, "- %s: %s\n", label, show(value))
}

func show(v any) string {
	switch x := v.(type) {
	case nil:
		return notAvailable
	case string:
		if strings.TrimSpace(x) == "" {
			return notAvailable
		}
		return x
	case bool:
		return yesNo(x)
	case float64:
		return fmt.Sprintf("%g", x)
	}
	return fmt.Sprint(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
