package countries

import "math/rand/v2"

// supportedCodes lists the countries with dense enough street imagery to be
// worth sampling in random-country mode.
var supportedCodes = []string{
	"AL", "AD", "AU", "BD", "BE", "BT", "BO", "BR", "BG", "KH",
	"CA", "CL", "CO", "HR", "CZ", "DK", "EC", "EE", "FI", "FR",
	"DE", "GH", "GR", "HU", "IS", "ID", "IE", "IL", "IT", "JP",
	"KG", "LV", "LS", "LT", "LU", "MK", "MY", "MX", "MN", "ME",
	"NL", "NZ", "PE", "PH", "PL", "PT", "PR", "RO", "SN", "RS",
	"SG", "SK", "SI", "ZA", "KR", "ES", "LK", "SZ", "SE", "CH",
	"TW", "TH", "TN", "TR", "UG", "UA", "GB", "US", "UY",
}

// RandomSupportedCode draws a uniformly random supported country code.
func RandomSupportedCode() string {
	return supportedCodes[rand.IntN(len(supportedCodes))]
}

// SupportedCodes returns a copy of the supported-country list.
func SupportedCodes() []string {
	out := make([]string, len(supportedCodes))
	copy(out, supportedCodes)
	return out
}
