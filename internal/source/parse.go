package source

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	spaceRe    = regexp.MustCompile(`\s+`)
	postalRe   = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)
	titleSepRe = regexp.MustCompile(`\s+[-|–—]\s+`)
	relAgeRe   = regexp.MustCompile(`(?i)\b(\d+)\+?\s*(hour|hr|day|week)s?\s+ago\b`)
)

// cleanText collapses whitespace and trims.
func cleanText(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// place is a parsed "City, ST 12345" location.
type place struct {
	City       string
	State      string
	PostalCode string
}

// parsePlace splits free-form location text such as "Austin, TX 78701" or
// "Brooklyn, New York". Unrecognized text becomes the city.
func parsePlace(s string) place {
	s = cleanText(s)
	var p place
	if m := postalRe.FindStringSubmatch(s); m != nil {
		p.PostalCode = m[1]
		s = strings.TrimSpace(postalRe.ReplaceAllString(s, ""))
	}
	s = strings.TrimRight(s, ", ")
	if s == "" {
		return p
	}

	idx := strings.LastIndex(s, ",")
	if idx < 0 {
		if code, ok := StateCode(s); ok {
			p.State = code
		} else {
			p.City = s
		}
		return p
	}

	city := strings.TrimSpace(s[:idx])
	region := strings.TrimSpace(s[idx+1:])
	if code, ok := StateCode(region); ok {
		p.State = code
		p.City = city
		return p
	}
	p.City = s
	return p
}

// listing is a parsed "Title - Practice - City, ST" headline.
type listing struct {
	Title    string
	Practice string
	Place    place
}

// parseListingTitle splits the headline format used by most job boards and
// search engines: "Dental Receptionist - Lakeside Family Dentistry - Austin, TX".
// A two-part headline yields title and practice; a one-part headline only a
// title. A trailing "at Practice" suffix on the title is also recognized.
func parseListingTitle(s string) listing {
	parts := titleSepRe.Split(cleanText(s), -1)
	var l listing
	switch {
	case len(parts) >= 3:
		l.Title = parts[0]
		l.Practice = parts[1]
		l.Place = parsePlace(parts[2])
	case len(parts) == 2:
		l.Title = parts[0]
		l.Practice = parts[1]
	case len(parts) == 1:
		l.Title = parts[0]
	}
	if l.Practice == "" {
		if i := strings.LastIndex(strings.ToLower(l.Title), " at "); i > 0 {
			l.Practice = strings.TrimSpace(l.Title[i+4:])
			l.Title = strings.TrimSpace(l.Title[:i])
		}
	}
	return l
}

// parseRelativeAge turns "Posted 3 days ago" style text into a timestamp.
// "today" and "just posted" map to now. ok is false when no age is found.
func parseRelativeAge(s string, now time.Time) (time.Time, bool) {
	low := strings.ToLower(s)
	if strings.Contains(low, "just posted") || strings.Contains(low, "posted today") {
		return now, true
	}
	m := relAgeRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	unit := time.Hour
	switch strings.ToLower(m[2]) {
	case "day":
		unit = 24 * time.Hour
	case "week":
		unit = 7 * 24 * time.Hour
	}
	return now.Add(-time.Duration(n) * unit), true
}

// parseDate tries the given layouts followed by RFC 3339 and a plain date.
func parseDate(s string, layouts ...string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range append(layouts, time.RFC3339, "2006-01-02") {
		if layout == "" {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// titleMatches reports whether every keyword token appears in title.
func titleMatches(title, keyword string) bool {
	low := strings.ToLower(title)
	for _, tok := range strings.Fields(strings.ToLower(keyword)) {
		if !strings.Contains(low, tok) {
			return false
		}
	}
	return true
}

func timePtr(t time.Time) *time.Time { return &t }
