package domain

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
)

// ContainerRecord is one raw record from the terminal tracking API. Values are
// kept exactly as decoded (numbers as json.Number) so they can be echoed back
// verbatim. A record is never mutated after it is fetched.
type ContainerRecord map[string]any

// Raw field names used by the projections.
const (
	FieldState                     = "State"
	FieldContainerState            = "ContainerState"
	FieldLocation                  = "Location"
	FieldYardName                  = "YardName"
	FieldBlock                     = "Block"
	FieldBay                       = "Bay"
	FieldPosition                  = "Position"
	FieldAvailable                 = "Available"
	FieldAvailabilityDisplayStatus = "AvailabilityDisplayStatus"
	FieldOrderOfAccessibility      = "OrderOfAccessibility"
	FieldCarrierReleaseStatus      = "CarrierReleaseStatus"
	FieldCustomReleaseStatus       = "CustomReleaseStatus"
	FieldUsdaStatus                = "UsdaStatus"
	FieldYardReleaseStatus         = "YardReleaseStatus"
	FieldMiscHoldStatus            = "MiscHoldStatus"
	FieldMiscHoldDetail            = "MiscHoldDetail"
	FieldIsTerminalHold            = "IsTerminalHold"
	FieldCarrierHold               = "CarrierHold"
	FieldLastFreeDate              = "LastFreeDate"
	FieldLastFreeDt                = "LastFreeDt"
	FieldLineLastFreeDate          = "LineLastFreeDate"
	FieldLineLastFreeDt            = "LineLastFreeDt"
	FieldFreeDays                  = "FreeDays"
	FieldFirstFreeDate             = "FirstFreeDate"
	FieldDemurrageDueFlag          = "DemurrageDueFlag"
	FieldDemurrageAmount           = "DemurrageAmount"
	FieldLineDemurrageAmount       = "LineDemurrageAmount"
	FieldIsOnDemurrageWarning      = "IsOnDemurrageWarning"
)

// AvailableCode is the Available value the terminal uses for "available".
const AvailableCode = 2

// Value returns the raw value for key, or nil when absent.
func (r ContainerRecord) Value(key string) any {
	return r[key]
}

// Keys returns the record's field names in sorted order.
func (r ContainerRecord) Keys() []string {
	return slices.Sorted(maps.Keys(r))
}

// ValueOr returns the raw value for key, or def when the key is absent. A key
// that is present with a null value is returned as nil.
func (r ContainerRecord) ValueOr(key string, def any) any {
	if v, ok := r[key]; ok {
		return v
	}
	return def
}

// Truthy reports whether the value under key is present and truthy.
func (r ContainerRecord) Truthy(key string) bool {
	return Truthy(r[key])
}

// FirstTruthy returns the first truthy value among keys. When none is truthy
// it returns the value of the last key, which may be nil.
func (r ContainerRecord) FirstTruthy(keys ...string) any {
	if len(keys) == 0 {
		return nil
	}
	for _, k := range keys {
		if v := r[k]; Truthy(v) {
			return v
		}
	}
	return r[keys[len(keys)-1]]
}

// StringEquals reports whether key holds exactly the string want.
func (r ContainerRecord) StringEquals(key, want string) bool {
	s, ok := r[key].(string)
	return ok && s == want
}

// IsAvailable reports whether the Available code equals AvailableCode. String
// values never match.
func (r ContainerRecord) IsAvailable() bool {
	n, ok := number(r[FieldAvailable])
	return ok && n == AvailableCode
}

// Truthy mirrors the JSON notion of an "empty" value: nil, false, zero, the
// empty string and empty arrays or objects are falsy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t != ""
		}
		return f != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	if n, ok := number(v); ok {
		return n != 0
	}
	return true
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(string(t), 64)
		return f, err == nil
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
