package present

import (
	"fmt"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

type Locale string

const (
	Indonesian Locale = "id"
	English    Locale = "en"
)

const (
	clockLayout = "15:04:05"
	dateLayout  = "02 January 2006"
)

func ParseLocale(s string) (Locale, error) {
	switch locale := Locale(strings.ToLower(strings.TrimSpace(s))); locale {
	case Indonesian, English:
		return locale, nil
	default:
		return "", fmt.Errorf("unsupported locale[%v]", s)
	}
}

func (l Locale) monday() monday.Locale {
	if l == English {
		return monday.LocaleEnUS
	}
	return monday.LocaleIdID
}

// FormatClock renders t as HH:MM:SS.
func FormatClock(t time.Time) string {
	return t.Format(clockLayout)
}

// FormatDate renders t as "DD Month YYYY" with the month name in locale.
func FormatDate(t time.Time, locale Locale) string {
	return monday.Format(t, dateLayout, locale.monday())
}
