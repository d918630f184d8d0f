// Package normalize canonicalizes practice names, locations, job titles and
// phone numbers so that postings from different sources compare equal.
package normalize

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes are trailing entity-type tokens dropped from practice names.
var legalSuffixes = map[string]bool{
	"llc": true, "pllc": true, "inc": true, "incorporated": true,
	"corp": true, "corporation": true, "ltd": true, "limited": true,
	"lp": true, "llp": true, "pc": true, "pa": true, "co": true,
	"company": true, "plc": true, "dba": true, "ps": true, "sc": true,
}

var folder = cases.Fold()

// fold case-folds s and strips combining marks, so "Clínica" and "CLINICA"
// both become "clinica".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return folder.String(out)
}

// words folds s and splits it into alphanumeric words. Periods and
// apostrophes are removed without splitting so "L.L.C." and "Joe's" stay
// single words. "&" becomes "and" and any other punctuation separates.
func words(s string) []string {
	s = fold(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '.' || r == '\'' || r == '’':
		case r == '&':
			b.WriteString(" and ")
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

// Name returns the canonical form of a practice name: case-folded, without
// diacritics or punctuation, whitespace collapsed, trailing legal suffixes
// removed.
func Name(name string) string {
	ws := words(name)
	for len(ws) > 1 && legalSuffixes[ws[len(ws)-1]] {
		ws = ws[:len(ws)-1]
	}
	return strings.Join(ws, " ")
}

// PostalCode returns the leading five-digit ZIP code, or "".
func PostalCode(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 5 {
		return ""
	}
	for _, r := range s[:5] {
		if r < '0' || r > '9' {
			return ""
		}
	}
	if len(s) > 5 && s[5] >= '0' && s[5] <= '9' && len(s) != 9 {
		return ""
	}
	return s[:5]
}

// Locality returns "city,ST" with the city folded like a name.
func Locality(city, state string) string {
	return strings.Join(words(city), " ") + "," + strings.ToUpper(strings.TrimSpace(state))
}

// TitleTokens returns the sorted set of words in a job title joined by
// spaces, so "Receptionist, Dental" and "dental receptionist" agree.
func TitleTokens(title string) string {
	ws := words(title)
	seen := make(map[string]bool, len(ws))
	out := ws[:0]
	for _, w := range ws {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return strings.Join(out, " ")
}

// Phone formats a North American number as "(512) 555-0142". Numbers that
// do not have ten digits (after dropping a leading country code 1) come back
// as "".
func Phone(s string) string {
	digits := make([]byte, 0, 11)
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return ""
	}
	return "(" + string(digits[:3]) + ") " + string(digits[3:6]) + "-" + string(digits[6:])
}

// Email lower-cases and trims an address, returning "" when it is not
// shaped like local@domain.tld.
func Email(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "mailto:")))
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return ""
	}
	domain := s[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return ""
	}
	if strings.ContainsAny(s, " \t,;<>") {
		return ""
	}
	return s
}
