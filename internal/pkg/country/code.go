// Package country resolves user-supplied country identifiers to the lower-case
// ISO 3166-1 alpha-2 codes boundary providers key their datasets by.
package country

import (
	"strings"

	"github.com/biter777/countries"
)

// aliases are common abbreviations that are not ISO codes themselves.
var aliases = map[string]string{
	"uk":  "gb",
	"usa": "us",
	"uae": "ae",
}

// Resolve normalizes input to a provider code. Known aliases win, then ISO
// alpha-2/alpha-3 codes and English names. Anything else is returned
// trimmed and lower-cased.
func Resolve(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return ""
	}
	if code, ok := aliases[s]; ok {
		return code
	}
	if c := countries.ByName(strings.ToUpper(s)); c.IsValid() {
		return strings.ToLower(c.Alpha2())
	}
	return s
}

// Name returns the English country name for a code, or the code itself.
func Name(code string) string {
	c := countries.ByName(strings.ToUpper(code))
	if !c.IsValid() {
		return code
	}
	return c.String()
}
