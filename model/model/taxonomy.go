package model

import (
	"regexp"
	"strings"
)

// Event names follow the fixed three part taxonomy contract
// category.action.label, e.g. payment.complete.success.
const TaxonomyPattern = `^[a-z_]+\.[a-z_]+\.[a-z_]+$`

var taxonomyRegex = regexp.MustCompile(TaxonomyPattern)

type Taxonomy struct {
	Category string `json:"category"`
	Action   string `json:"action"`
	Label    string `json:"label"`
}

func (t Taxonomy) Name() string {
	return t.Category + "." + t.Action + "." + t.Label
}

// IsValidEventName reports whether name matches the taxonomy contract.
func IsValidEventName(name string) bool {
	return taxonomyRegex.MatchString(name)
}

// ParseEventName splits a taxonomy conformant name into its parts.
// Callers must validate with IsValidEventName first.
func ParseEventName(name string) Taxonomy {
	parts := strings.SplitN(name, ".", 3)
	if len(parts) != 3 {
		return Taxonomy{}
	}
	return Taxonomy{Category: parts[0], Action: parts[1], Label: parts[2]}
}
