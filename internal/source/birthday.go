package source

import (
	"strings"

	"github.com/lu-zhengda/contactsync/internal/domain"
)

// ParseBirthday parses a YYYY-MM-DD shaped value. Month and day that are
// missing, unparseable or zero become 1. A year that does not parse becomes 0,
// which the People API reads as a date without a year. An empty value yields nil.
func ParseBirthday(s string) *domain.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "-")
	segment := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}

	year, _ := leadingInt(segment(0))
	month, ok := leadingInt(segment(1))
	if !ok || month == 0 {
		month = 1
	}
	day, ok := leadingInt(segment(2))
	if !ok || day == 0 {
		day = 1
	}
	return &domain.Date{Year: year, Month: month, Day: day}
}

// leadingInt parses an optionally signed run of leading decimal digits,
// ignoring anything after it. ok is false when no digit is found.
func leadingInt(s string) (n int, ok bool) {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			break
		}
		if n > 1<<31 {
			break
		}
		n = n*10 + int(ch-'0')
		ok = true
	}
	if neg {
		n = -n
	}
	return n, ok
}
