// Package dates is the fallback due-date extractor: a regex scan over
// message text. It runs at a fixed low confidence so the reconcile merge can
// use it to fill fields the classifier left empty, never to override them.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Confidence assigned to every regex extraction. Below the reconcile gate,
// so a regex hit can seed an empty field but never displace a classifier
// value.
const Confidence = 0.4

var (
	isoRe       = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	monthDayRe  = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)
	dayMonthRe  = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?(?:,?\s+(\d{4}))?\b`)
	weekdayRe   = regexp.MustCompile(`(?i)\b(?:by|on|before|until)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	tomorrowRe  = regexp.MustCompile(`(?i)\btomorrow\b`)
	endOfWeekRe = regexp.MustCompile(`(?i)\bend of (?:the )?week\b`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdays = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday, "sunday": time.Sunday,
}

// Extract scans text for a due-date mention and returns it as an ISO date
// (YYYY-MM-DD) together with the matched snippet. The reference time anchors
// relative mentions ("tomorrow", bare weekdays) and year inference.
func Extract(text string, ref time.Time) (date string, snippet string, ok bool) {
	if m := isoRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if validDate(year, time.Month(month), day) {
			return isoString(year, time.Month(month), day), m[0], true
		}
	}

	if m := monthDayRe.FindStringSubmatch(text); m != nil {
		if d, ok := resolveMonthDay(m[1], m[2], m[3], ref); ok {
			return d, m[0], true
		}
	}

	if m := dayMonthRe.FindStringSubmatch(text); m != nil {
		if d, ok := resolveMonthDay(m[2], m[1], m[3], ref); ok {
			return d, m[0], true
		}
	}

	if m := weekdayRe.FindStringSubmatch(text); m != nil {
		target := weekdays[strings.ToLower(m[1])]
		d := nextWeekday(ref, target)
		return d.Format("2006-01-02"), m[0], true
	}

	if m := tomorrowRe.FindString(text); m != "" {
		return ref.AddDate(0, 0, 1).Format("2006-01-02"), m, true
	}

	if m := endOfWeekRe.FindString(text); m != "" {
		d := nextWeekday(ref, time.Friday)
		return d.Format("2006-01-02"), m, true
	}

	return "", "", false
}

// resolveMonthDay builds a date from month-name and day strings. Without an
// explicit year, a date already past relative to ref rolls into next year.
func resolveMonthDay(monthStr, dayStr, yearStr string, ref time.Time) (string, bool) {
	monthKey := strings.ToLower(monthStr)
	if len(monthKey) > 3 {
		monthKey = monthKey[:3]
	}
	month, found := months[monthKey]
	if !found {
		return "", false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return "", false
	}

	year := ref.Year()
	explicitYear := false
	if yearStr != "" {
		if y, err := strconv.Atoi(yearStr); err == nil {
			year = y
			explicitYear = true
		}
	}
	if !validDate(year, month, day) {
		return "", false
	}

	candidate := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if !explicitYear && candidate.Before(ref.Truncate(24*time.Hour)) {
		candidate = candidate.AddDate(1, 0, 0)
	}
	return candidate.Format("2006-01-02"), true
}

func nextWeekday(ref time.Time, target time.Weekday) time.Time {
	days := (int(target) - int(ref.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return ref.AddDate(0, 0, days)
}

func validDate(year int, month time.Month, day int) bool {
	if year < 1970 || year > 9999 || day < 1 {
		return false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return d.Month() == month && d.Day() == day
}

func isoString(year int, month time.Month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
}
