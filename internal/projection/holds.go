package projection

import (
	"fmt"

	"github.com/pnct-tools/container-query/internal/domain"
)

// Hold labels, in the order they are reported.
const (
	LabelCarrierHold  = "Carrier Hold"
	LabelCustomsHold  = "Customs Hold"
	LabelUSDAHold     = "USDA Hold"
	LabelYardHold     = "Yard Hold"
	LabelMiscHold     = "Misc Hold"
	LabelTerminalHold = "Terminal Hold"
)

const released = "RELEASED"

// AssessHolds reports every condition preventing release. Labels always come
// out in the order Carrier, Customs, USDA, Yard, Misc, Terminal.
//
// Customs and USDA count as holds unless explicitly RELEASED, so a record
// missing those fields is held. Yard and Misc only count when present.
func AssessHolds(r domain.ContainerRecord) domain.HoldAssessment {
	holds := []string{}

	if r.StringEquals(domain.FieldCarrierReleaseStatus, "HOLD") {
		holds = append(holds, LabelCarrierHold)
	}
	if !r.StringEquals(domain.FieldCustomReleaseStatus, released) {
		holds = append(holds, LabelCustomsHold)
	}
	if !r.StringEquals(domain.FieldUsdaStatus, released) {
		holds = append(holds, LabelUSDAHold)
	}
	if r.Truthy(domain.FieldYardReleaseStatus) && !r.StringEquals(domain.FieldYardReleaseStatus, released) {
		holds = append(holds, LabelYardHold)
	}
	if r.Truthy(domain.FieldMiscHoldStatus) {
		holds = append(holds, fmt.Sprintf("%s: %v", LabelMiscHold, r.Value(domain.FieldMiscHoldStatus)))
	}
	if r.Truthy(domain.FieldIsTerminalHold) {
		holds = append(holds, LabelTerminalHold)
	}

	return domain.HoldAssessment{
		HasHolds:  len(holds) > 0,
		HoldTypes: holds,
	}
}
