package carrier

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// staticCarriers is the built-in detection registry. Checked in declaration
// order before any learned signatures, so the order here is the tie-break.
var staticCarriers = []struct {
	id      string
	markers []string
}{
	{"allstate", []string{"allstate", "you're in good hands"}},
	{"state_farm", []string{"state farm", "like a good neighbor"}},
	{"geico", []string{"geico", "government employees insurance"}},
	{"progressive", []string{"progressive"}},
	{"liberty_mutual", []string{"liberty mutual", "liberty insurance"}},
	{"travelers", []string{"travelers"}},
	{"farmers", []string{"farmers insurance", "farmers group"}},
}

var displayNames = map[string]string{
	"allstate":       "Allstate Insurance",
	"state_farm":     "State Farm Insurance",
	"geico":          "GEICO",
	"progressive":    "Progressive Insurance",
	"liberty_mutual": "Liberty Mutual",
	"travelers":      "Travelers Insurance",
	"farmers":        "Farmers Insurance",
}

var titleCaser = cases.Title(language.English)

// DisplayName resolves a carrier ID to its human-readable name. Unknown IDs
// are title-cased from their underscore form.
func DisplayName(carrierID string) string {
	if name, ok := displayNames[carrierID]; ok {
		return name
	}
	return titleCaser.String(strings.ReplaceAll(carrierID, "_", " "))
}

// detectStatic matches text against the built-in registry. Returns the first
// carrier whose marker appears.
func detectStatic(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, c := range staticCarriers {
		for _, marker := range c.markers {
			if strings.Contains(lower, marker) {
				return c.id, true
			}
		}
	}
	return "", false
}
