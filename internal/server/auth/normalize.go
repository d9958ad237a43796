package auth

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD, DD/MM/YYYY or DD/MM/YY")

var (
	isoDate   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	latamDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})$`)
	digitsRe  = regexp.MustCompile(`^\d+$`)

	upperES = cases.Upper(language.Spanish)
)

// NormalizeName collapses whitespace, strips diacritics and upper-cases, so
// "  García  lópez" and "GARCIA LOPEZ" compare equal.
func NormalizeName(s string) string {
	s = strings.Join(strings.Fields(s), " ")

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	return upperES.String(stripped)
}

// NormalizeDate converts YYYY-MM-DD (optionally followed by a time),
// DD/MM/YYYY or DD/MM/YY to YYYY-MM-DD. Day and month may have one digit.
// Two-digit years up to the current two-digit year map to the 2000s, the
// rest to the 1900s.
func NormalizeDate(s string, now time.Time) (string, error) {
	s = strings.TrimSpace(s)

	var y, m, d string
	if p := isoDate.FindStringSubmatch(s); p != nil {
		y, m, d = p[1], p[2], p[3]
	} else if p := latamDate.FindStringSubmatch(s); p != nil {
		d, m, y = p[1], p[2], p[3]
		if len(y) == 2 {
			yy, _ := strconv.Atoi(y)
			century := 1900
			if yy <= now.Year()%100 {
				century = 2000
			}
			y = strconv.Itoa(century + yy)
		}
	} else {
		return "", ErrInvalidDate
	}

	if len(m) == 1 {
		m = "0" + m
	}
	if len(d) == 1 {
		d = "0" + d
	}
	out := fmt.Sprintf("%s-%s-%s", y, m, d)
	if _, err := time.Parse(time.DateOnly, out); err != nil {
		return "", ErrInvalidDate
	}
	return out, nil
}

// DigitsOnly drops every non-digit rune.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// IsDigits reports whether s is non-empty and made of ASCII digits.
func IsDigits(s string) bool {
	return digitsRe.MatchString(s)
}

// ValidDPI reports whether s is a 13-digit national id.
func ValidDPI(s string) bool {
	return len(s) == 13 && IsDigits(s)
}

// ValidEmail reports whether s is a bare address such as a@b.org.
func ValidEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}
