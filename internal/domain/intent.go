package domain

import (
	"fmt"
	"strings"
)

// Intent selects which view of a container record a caller wants.
type Intent string

const (
	IntentStatus       Intent = "status"
	IntentLocation     Intent = "location"
	IntentAvailability Intent = "availability"
	IntentHolds        Intent = "holds"
	IntentLastFreeDay  Intent = "last_free_day"
	IntentAll          Intent = "all"
)

// Intents lists the accepted values in their canonical order.
var Intents = []Intent{
	IntentStatus,
	IntentLocation,
	IntentAvailability,
	IntentHolds,
	IntentLastFreeDay,
	IntentAll,
}

func (i Intent) IsValid() bool {
	switch i {
	case IntentStatus,
		IntentLocation,
		IntentAvailability,
		IntentHolds,
		IntentLastFreeDay,
		IntentAll:
		return true
	}
	return false
}

func (i Intent) String() string { return string(i) }

// ParseIntent validates a caller supplied intent. Matching is exact apart from
// surrounding whitespace and letter case.
func ParseIntent(s string) (Intent, error) {
	i := Intent(strings.ToLower(strings.TrimSpace(s)))
	if !i.IsValid() {
		return "", NewInvalidInputError(fmt.Sprintf("intent must be one of: %s", IntentNames()))
	}
	return i, nil
}

// IntentNames renders the accepted intents as a comma separated list.
func IntentNames() string {
	names := make([]string, len(Intents))
	for i, in := range Intents {
		names[i] = string(in)
	}
	return strings.Join(names, ", ")
}
