package parser

import (
	"regexp"
	"strings"

	"sms-planner/internal/phone"
)

// GuestEntry is one parsed guest. Phone is the canonical key.
type GuestEntry struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

const phonePattern = `\+?\(?\d[\d\s().\-]{8,}\d`

// Ordered by specificity.
var (
	reNamePhoneExtra = regexp.MustCompile(`^(.+?)\s*\(\s*(` + phonePattern + `)\s*\)\s*(.+)$`)
	reNamePhoneParen = regexp.MustCompile(`^(.+?)\s*\(\s*(` + phonePattern + `)\s*\)$`)
	reNamePhone      = regexp.MustCompile(`^(.+?)[,:\-\s]+(` + phonePattern + `)$`)
	rePhoneName      = regexp.MustCompile(`^(` + phonePattern + `)[,:\-\s]+(.+)$`)
	rePhoneOnly      = regexp.MustCompile(`^(` + phonePattern + `)$`)

	reSplitLines = regexp.MustCompile(`[\n;]+`)
	reSplitAnd   = regexp.MustCompile(`(?i)\s+(?:and|&)\s+|\s*&\s*`)
	reHasDigit   = regexp.MustCompile(`\d`)
	reNameChars  = regexp.MustCompile(`^[\p{L}][\p{L}\s.'\-]*$`)
)

// ParseGuests extracts name/phone pairs. Every entry carries a valid phone;
// a name with no phone fails with needs_phone.
func ParseGuests(text string) ([]GuestEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fail(KindGuests, ReasonEmpty, "")
	}

	var (
		out     []GuestEntry
		pending []string
	)
	for _, frag := range fragments(text) {
		e, ok := matchGuest(frag)
		if !ok {
			if reHasDigit.MatchString(frag) {
				return nil, fail(KindGuests, ReasonNeedsPhone, frag)
			}
			if !reNameChars.MatchString(frag) {
				return nil, fail(KindGuests, ReasonUnrecognized, frag)
			}
			// "John Smith, 5105551234" splits on the comma.
			pending = append(pending, frag)
			continue
		}
		if len(pending) > 0 {
			name := strings.Join(pending, " ")
			pending = nil
			switch n := len(out); {
			case n > 0 && out[n-1].Name == "":
				// "5105551234, John"
				out[n-1].Name = name
			case e.Name == "":
				e.Name = name
			default:
				return nil, fail(KindGuests, ReasonNeedsPhone, name)
			}
		}
		out = append(out, e)
	}

	if len(pending) > 0 {
		// A trailing name after a phone-only entry: "5105551234, John".
		if n := len(out); n > 0 && out[n-1].Name == "" {
			out[n-1].Name = strings.Join(pending, " ")
		} else {
			return nil, fail(KindGuests, ReasonNeedsPhone, strings.Join(pending, ", "))
		}
	}
	if len(out) == 0 {
		return nil, fail(KindGuests, ReasonNeedsPhone, text)
	}
	for i := range out {
		if out[i].Name == "" {
			return nil, fail(KindGuests, ReasonNeedsName, out[i].Phone)
		}
	}
	return out, nil
}

// fragments splits on newlines, semicolons, "and"/"&", and commas that
// are not inside a phone number.
func fragments(text string) []string {
	var out []string
	for _, line := range reSplitLines.Split(text, -1) {
		for _, part := range reSplitAnd.Split(line, -1) {
			for _, f := range splitCommas(part) {
				if f = strings.TrimSpace(f); f != "" {
					out = append(out, f)
				}
			}
		}
	}
	return out
}

func splitCommas(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

func matchGuest(frag string) (GuestEntry, bool) {
	if m := reNamePhoneExtra.FindStringSubmatch(frag); m != nil {
		return entry(m[1], m[2])
	}
	if m := reNamePhoneParen.FindStringSubmatch(frag); m != nil {
		return entry(m[1], m[2])
	}
	if m := reNamePhone.FindStringSubmatch(frag); m != nil && !reHasDigit.MatchString(m[1]) {
		return entry(m[1], m[2])
	}
	if m := rePhoneName.FindStringSubmatch(frag); m != nil && !reHasDigit.MatchString(m[2]) {
		return entry(m[2], m[1])
	}
	if m := rePhoneOnly.FindStringSubmatch(frag); m != nil {
		return entry("", m[1])
	}
	return GuestEntry{}, false
}

func entry(name, raw string) (GuestEntry, bool) {
	if !phone.IsValid(raw) {
		return GuestEntry{}, false
	}
	name = strings.Trim(strings.TrimSpace(name), ",:-")
	return GuestEntry{Name: strings.Join(strings.Fields(name), " "), Phone: phone.Normalize(raw)}, true
}

func hasPhoneDigits(s string) bool {
	return len(phone.Digits(s)) >= phone.KeyLength
}
