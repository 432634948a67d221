package extractor

import (
	"context"
	"regexp"
	"strings"

	"github.com/pnct-tools/container-query/internal/domain"
)

// containerIDPattern matches ISO 6346 style ids: four letters, seven digits.
var containerIDPattern = regexp.MustCompile(`(?i)\b([A-Z]{4})\s?(\d{7})\b`)

// Phrase rules are checked in order; the first match wins.
var keywordRules = []struct {
	intent  domain.Intent
	phrases []string
}{
	{domain.IntentLastFreeDay, []string{"last free", "free day", "free time", "lfd", "demurrage", "storage fee"}},
	{domain.IntentHolds, []string{"hold", "customs", "usda", "released", "release"}},
	{domain.IntentAvailability, []string{"available", "availability", "pick up", "pickup", "ready"}},
	{domain.IntentLocation, []string{"where", "location", "located", "yard", "block", "bay"}},
	{domain.IntentStatus, []string{"status", "state", "doing", "update"}},
	{domain.IntentAll, []string{"everything", "all info", "full report", "details"}},
}

// Keyword is a deterministic extractor with no model behind it.
type Keyword struct{}

func NewKeyword() *Keyword {
	return &Keyword{}
}

// Extract finds the first container id and matches phrase rules for the
// intent. An id with no recognizable intent asks for everything.
func (k *Keyword) Extract(_ context.Context, question string) (Extraction, error) {
	m := containerIDPattern.FindStringSubmatch(question)
	if m == nil {
		return Extraction{}, nil
	}
	ex := Extraction{
		ContainerID: strings.ToUpper(m[1] + m[2]),
		Intent:      domain.IntentAll,
	}

	rest := strings.ToLower(containerIDPattern.ReplaceAllString(question, " "))
	for _, rule := range keywordRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(rest, phrase) {
				ex.Intent = rule.intent
				return ex, nil
			}
		}
	}
	return ex, nil
}
