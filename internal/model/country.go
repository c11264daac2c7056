package model

import "strings"

type Country string

const CountryGlobal Country = "GLOBAL"

var countries = map[Country]struct{}{}

func init() {
	codes := []string{
		"GLOBAL", "AR", "AU", "AT", "BY", "BE", "BO", "BR", "BG", "CA", "CL", "CO", "CR", "CY", "CZ",
		"DK", "DO", "EC", "EE", "EG", "SV", "FI", "FR", "DE", "GR", "GT", "HN", "HK", "HU", "IS",
		"IN", "ID", "IE", "IL", "JP", "KZ", "LV", "LT", "LU", "MY", "MX", "MA", "NL", "NZ", "NI",
		"NG", "NO", "PK", "PA", "PY", "PE", "PH", "PL", "PT", "RO", "SA", "SG", "SK", "ZA", "KR",
		"ES", "SE", "CH", "TW", "TH", "TR", "AE", "UA", "GB", "UY", "US", "VE", "VN",
	}
	for _, code := range codes {
		countries[Country(code)] = struct{}{}
	}
}

// ParseCountry upper-cases and validates a chart country code.
func ParseCountry(raw string) (Country, bool) {
	c := Country(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := countries[c]
	return c, ok
}
