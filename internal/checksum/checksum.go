// Package checksum implements the arithmetic validity checks used on
// official identifiers: Luhn (SIREN/SIRET), IBAN mod-97 and the French NIR
// control key.
package checksum

import (
	"math/big"
	"strings"
)

// Luhn reports whether a digit string passes the Luhn check. Non-digit
// input fails.
func Luhn(s string) bool {
	if s == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// IBAN reports whether an IBAN passes the ISO 13616 mod-97 check. Spaces
// are ignored; case is not significant.
func IBAN(iban string) bool {
	s := strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	if len(s) < 15 || len(s) > 34 {
		return false
	}
	// move the country code and check digits to the end
	rearranged := s[4:] + s[:4]
	var sb strings.Builder
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			// A=10 ... Z=35
			sb.WriteString(big.NewInt(int64(r-'A') + 10).String())
		default:
			return false
		}
	}
	n, ok := new(big.Int).SetString(sb.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

// NIR reports whether a 15-digit French social security number carries a
// valid control key (the last two digits equal 97 minus the first thirteen
// digits modulo 97). Corsican department letters 2A/2B are accepted.
func NIR(nir string) bool {
	s := strings.ToUpper(strings.ReplaceAll(nir, " ", ""))
	if len(s) != 15 {
		return false
	}
	body := s[:13]
	key := s[13:]
	// 2A -> 19, 2B -> 18 before the arithmetic
	body = strings.Replace(body, "2A", "19", 1)
	body = strings.Replace(body, "2B", "18", 1)
	n, ok := new(big.Int).SetString(body, 10)
	if !ok {
		return false
	}
	k, ok := new(big.Int).SetString(key, 10)
	if !ok {
		return false
	}
	want := new(big.Int).Sub(big.NewInt(97), new(big.Int).Mod(n, big.NewInt(97)))
	return want.Cmp(k) == 0
}
