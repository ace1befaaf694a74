package financialmodelingprep

import (
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var (
	countryCodesOnce sync.Once
	countryCodes     map[string]string
)

// countryCode maps an English country name ("United States") to its ISO 3166-1 alpha-2 code.
// Unknown names yield "".
func countryCode(name string) string {
	countryCodesOnce.Do(func() {
		countryCodes = make(map[string]string, 256)
		namer := display.English.Regions()
		for a := 'A'; a <= 'Z'; a++ {
			for b := 'A'; b <= 'Z'; b++ {
				r, err := language.ParseRegion(string([]rune{a, b}))
				if err != nil || !r.IsCountry() {
					continue
				}
				if n := namer.Name(r); n != "" {
					countryCodes[strings.ToLower(n)] = r.String()
				}
			}
		}
	})
	return countryCodes[strings.ToLower(strings.TrimSpace(name))]
}
