package chat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ravenhq/raven-platform/internal/availability"
)

// AppointmentInfo is what the extractor recovers from a booking conversation.
// Empty string means the field has not been provided yet. Name, Email, Date
// and Time are required before an appointment is created; Phone is optional.
type AppointmentInfo struct {
	Name    string
	Phone   string
	Email   string
	Date    string // YYYY-MM-DD
	Time    string // HH:MM
	Service string
	Notes   string
}

// Complete reports whether the minimum booking fields are all present.
func (a AppointmentInfo) Complete() bool {
	return a.Name != "" && a.Email != "" && a.Date != "" && a.Time != ""
}

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// Phone cascade, most specific first. The labeled pattern captures the digits
// after a "phone:"-style prefix; the rest match the whole number.
var phonePatterns = []struct {
	re       *regexp.Regexp
	hasGroup bool
}{
	{re: regexp.MustCompile(`\+237\s*[6-9]\d{8}`)},
	{re: regexp.MustCompile(`\+\d{1,4}\s*\d{6,14}`)},
	{re: regexp.MustCompile(`\b[6-9]\d{8}\b`)},
	{re: regexp.MustCompile(`\b\d{10}\b`)},
	{re: regexp.MustCompile(`(?i)(?:number|phone|tel|num)[\s:]*(\d{7,15})`), hasGroup: true},
}

// Name cascade. Patterns marked rejectGreeting are anchored at a line start
// where a bare name is expected; a match whose line begins with a greeting
// word ("Hi Raven, ...") is a salutation, not a name, and is discarded.
var namePatterns = []struct {
	re             *regexp.Regexp
	rejectGreeting bool
}{
	{re: regexp.MustCompile(`(?im)(?:je m'appelle|mon nom est|je suis)\s+([a-zA-Z]+(?:\s+[a-zA-Z]+){0,3})(?:\s|$|,|\.)`)},
	{re: regexp.MustCompile(`(?im)(?:my name is|i am|i'm|my is|hi my is|hi i'm|hi i am)\s+([a-zA-Z]+(?:\s+[a-zA-Z]+){0,3})(?:\s|$|,|\.)`)},
	{re: regexp.MustCompile(`(?im)(?:name|nom)[:;]?\s*([a-zA-Z]+(?:\s+[a-zA-Z]+){0,3})(?:\n|$|\s|,|\.)`)},
	{re: regexp.MustCompile(`(?im)^(?:hi|hello|hey)\s+(?:my is|i'm|i am)\s+([a-zA-Z]+)(?:\s|$|,|\.)`)},
	{re: regexp.MustCompile(`(?im)\bname\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)\b`)},
	// Bare name on its own line followed by email or phone.
	{re: regexp.MustCompile(`(?im)^([a-zA-Z]+(?:\s+[a-zA-Z]+)?),\s*\n\s*[\w.+-]+@`), rejectGreeting: true},
	{re: regexp.MustCompile(`(?im)^([a-zA-Z]+(?:\s+[a-zA-Z]+)?),\s*\n\s*\+?\d{6,}`), rejectGreeting: true},
	{re: regexp.MustCompile(`(?im)^([a-zA-Z]+(?:\s+[a-zA-Z]+)?)\s*\n\s*[\w.+-]+@`), rejectGreeting: true},
	{re: regexp.MustCompile(`(?im)^([a-zA-Z]+(?:\s+[a-zA-Z]+)?)\s*\n\s*\+?\d{6,}`), rejectGreeting: true},
	// Comma-separated contact lines, two-word names.
	{re: regexp.MustCompile(`(?im)^([A-Z][a-z]+\s+[A-Z][a-z]+),\s*[\w.+-]+@`), rejectGreeting: true},
	{re: regexp.MustCompile(`(?im)^([A-Z][a-z]+\s+[A-Z][a-z]+),\s*\+?\d{6,}`), rejectGreeting: true},
	{re: regexp.MustCompile(`(?im)^([A-Z][a-z]+\s+[A-Z][a-z]+),`), rejectGreeting: true},
	{re: regexp.MustCompile(`(?im),\s*([A-Z][a-z]+\s+[A-Z][a-z]+)\s*$`)},
	{re: regexp.MustCompile(`(?im),\s*([A-Z][a-z]+\s+[A-Z][a-z]+),\s*[\w.+-]+@`)},
	{re: regexp.MustCompile(`(?im),\s*([A-Z][a-z]+\s+[A-Z][a-z]+),\s*\+?\d{6,}`)},
	{re: regexp.MustCompile(`(?im),\s*([A-Z][a-z]+\s+[A-Z][a-z]+),`)},
	// Comma-separated contact lines, single-word names.
	{re: regexp.MustCompile(`(?im)^([A-Z][a-z]{2,}),\s*[\w.+-]+@`), rejectGreeting: true},
	{re: regexp.MustCompile(`(?im)^([A-Z][a-z]{2,}),\s*\+?\d{6,}`), rejectGreeting: true},
	{re: regexp.MustCompile(`(?im),\s*([A-Z][a-z]{2,}),\s*[\w.+-]+@`)},
	{re: regexp.MustCompile(`(?im),\s*([A-Z][a-z]{2,}),\s*\+?\d{6,}`)},
}

var greetingPrefix = regexp.MustCompile(`(?i)^(?:hi|hello|hey|bonjour|salut)\s`)

var (
	todayPattern    = regexp.MustCompile(`(?i)\b(?:aujourd'hui|today)\b`)
	tomorrowPattern = regexp.MustCompile(`(?i)\b(?:demain|tomorrow)\b`)

	// Ordered Monday..Sunday to match the weekday arithmetic below.
	weekdayPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:monday|lundi)\b`),
		regexp.MustCompile(`(?i)\b(?:tuesday|mardi)\b`),
		regexp.MustCompile(`(?i)\b(?:wednesday|mercredi)\b`),
		regexp.MustCompile(`(?i)\b(?:thursday|jeudi)\b`),
		regexp.MustCompile(`(?i)\b(?:friday|vendredi)\b`),
		regexp.MustCompile(`(?i)\b(?:saturday|samedi)\b`),
		regexp.MustCompile(`(?i)\b(?:sunday|dimanche)\b`),
	}

	isoDatePattern     = regexp.MustCompile(`\b(\d{4}[-/]\d{1,2}[-/]\d{1,2})\b`)
	numericDatePattern = regexp.MustCompile(`\b(\d{1,2}[-/]\d{1,2}[-/]\d{4})\b`)

	// No trailing \b: "2:30pm" must match so the meridiem check below can
	// see the suffix.
	clockTimePattern  = regexp.MustCompile(`\b(\d{1,2})[h:](\d{2})`)
	simpleHourPattern = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:h|heures?|pm|am)\b`)
)

// Non-padded layouts accept both "5/3/2024" and "05/03/2024".
// Day-first formats are tried before month-first: the platform's home market
// writes dates DD/MM.
var dateLayouts = []string{"2006-1-2", "2-1-2006", "2/1/2006", "1/2/2006"}

// ExtractAppointmentInfo recovers booking fields from the visitor's side of
// the conversation. userMessages is oldest-first; the scan runs newest-first
// so the most recent value for each field wins. Slot selection (button click
// or "slot 2") takes precedence over free-text date/time extraction.
func ExtractAppointmentInfo(userMessages []string, slots []availability.Slot, now time.Time) AppointmentInfo {
	var info AppointmentInfo

	if slot, ok := matchSlot(userMessages, slots); ok {
		info.Date = slot.Date
		info.Time = slot.Time
	}

	for i := len(userMessages) - 1; i >= 0; i-- {
		msg := userMessages[i]
		if info.Email == "" {
			info.Email = emailPattern.FindString(msg)
		}
		if info.Phone == "" {
			info.Phone = extractPhone(msg)
		}
		if info.Name == "" {
			info.Name = extractName(msg)
		}
	}

	joined := strings.Join(userMessages, " ")
	if info.Date == "" {
		info.Date = extractDate(joined, now)
	}
	if info.Time == "" {
		info.Time = extractTime(joined)
	}
	return info
}

func extractPhone(msg string) string {
	for _, p := range phonePatterns {
		if p.hasGroup {
			if m := p.re.FindStringSubmatch(msg); m != nil {
				return strings.TrimSpace(m[1])
			}
			continue
		}
		if m := p.re.FindString(msg); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

func extractName(msg string) string {
	for _, p := range namePatterns {
		for _, idx := range p.re.FindAllStringSubmatchIndex(msg, -1) {
			if p.rejectGreeting && greetingPrefix.MatchString(msg[idx[0]:]) {
				continue
			}
			candidate := strings.TrimSpace(msg[idx[2]:idx[3]])
			if name, ok := validateName(candidate); ok {
				return name
			}
		}
	}
	return ""
}

// validateName accepts 1-4 words of at least 2 characters each and
// title-cases the result.
func validateName(candidate string) (string, bool) {
	words := strings.Fields(candidate)
	if len(words) < 1 || len(words) > 4 {
		return "", false
	}
	for i, w := range words {
		if len(w) < 2 {
			return "", false
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " "), true
}

func extractDate(text string, now time.Time) string {
	if todayPattern.MatchString(text) {
		return now.Format("2006-01-02")
	}
	if tomorrowPattern.MatchString(text) {
		return now.AddDate(0, 0, 1).Format("2006-01-02")
	}

	// Monday=0 weekday index so "next monday" arithmetic lines up with the
	// pattern table above.
	todayIdx := (int(now.Weekday()) + 6) % 7
	for target, pattern := range weekdayPatterns {
		if !pattern.MatchString(text) {
			continue
		}
		daysAhead := (target - todayIdx + 7) % 7
		if daysAhead == 0 {
			// Saying "monday" on a Monday means next week.
			daysAhead = 7
		}
		return now.AddDate(0, 0, daysAhead).Format("2006-01-02")
	}

	for _, pattern := range []*regexp.Regexp{isoDatePattern, numericDatePattern} {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, m[1]); err == nil {
				return parsed.Format("2006-01-02")
			}
		}
	}
	return ""
}

func extractTime(text string) string {
	if idx := clockTimePattern.FindStringSubmatchIndex(text); idx != nil {
		hour, _ := strconv.Atoi(text[idx[2]:idx[3]])
		minute := text[idx[4]:idx[5]]

		// A meridiem right after the match flips the hour: "2:30pm" → 14:30.
		end := idx[1]
		tail := end + 5
		if tail > len(text) {
			tail = len(text)
		}
		nearby := strings.ToLower(text[end:tail])
		if strings.Contains(nearby, "pm") && hour < 12 {
			hour += 12
		} else if strings.Contains(nearby, "am") && hour == 12 {
			hour = 0
		}
		return fmt.Sprintf("%02d:%s", hour, minute)
	}

	if m := simpleHourPattern.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		lower := strings.ToLower(text)
		if strings.Contains(lower, "pm") && hour < 12 {
			hour += 12
		} else if strings.Contains(lower, "am") && hour == 12 {
			hour = 0
		}
		return fmt.Sprintf("%02d:00", hour)
	}
	return ""
}
