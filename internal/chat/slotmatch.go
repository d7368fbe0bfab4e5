package chat

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ravenhq/raven-platform/internal/availability"
)

// Slot selection cascade. Display match first (widget buttons send the full
// display string), then spelled-out ordinals, then numeric references.
var (
	slotNumberPattern  = regexp.MustCompile(`(?i)(?:slot|option|créneau|creneau|choice|choix)\s*#?\s*(\d+)`)
	firstSlotPattern   = regexp.MustCompile(`(?i)(?:the\s+)?(?:first|1st|premier|première)\s*(?:one|slot|option)?`)
	secondSlotPattern  = regexp.MustCompile(`(?i)(?:the\s+)?(?:second|2nd|deuxième|deuxieme)\s*(?:one|slot|option)?`)
	thirdSlotPattern   = regexp.MustCompile(`(?i)(?:the\s+)?(?:third|3rd|troisième|troisieme)\s*(?:one|slot|option)?`)
	numberedRefPattern = regexp.MustCompile(`(?i)(?:number|numéro|numero|#)\s*(\d+)`)
	bareNumberPattern  = regexp.MustCompile(`^(\d+)$`)
)

// matchSlot resolves a slot selection from the user's messages. The messages
// slice is oldest-first; bare-number selection ("2") only counts when a whole
// message is just that number, so it is checked per message rather than
// against the joined text.
func matchSlot(messages []string, slots []availability.Slot) (availability.Slot, bool) {
	if len(slots) == 0 {
		return availability.Slot{}, false
	}

	joined := strings.ToLower(strings.Join(messages, " "))

	// Display-string match, e.g. "Thursday 05 February at 11:30".
	for _, slot := range slots {
		displayEN := strings.ToLower(slot.DisplayDate + " at " + slot.Time)
		displayFR := strings.ToLower(slot.DisplayDate + " à " + slot.Time)
		if strings.Contains(joined, displayEN) || strings.Contains(joined, displayFR) {
			return slot, true
		}
	}

	if m := slotNumberPattern.FindStringSubmatch(joined); m != nil {
		return slotByNumber(slots, m[1])
	}
	if firstSlotPattern.MatchString(joined) {
		return slotAt(slots, 1)
	}
	if secondSlotPattern.MatchString(joined) {
		return slotAt(slots, 2)
	}
	if thirdSlotPattern.MatchString(joined) {
		return slotAt(slots, 3)
	}
	if m := numberedRefPattern.FindStringSubmatch(joined); m != nil {
		return slotByNumber(slots, m[1])
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if m := bareNumberPattern.FindStringSubmatch(strings.TrimSpace(messages[i])); m != nil {
			return slotByNumber(slots, m[1])
		}
	}
	return availability.Slot{}, false
}

func slotByNumber(slots []availability.Slot, raw string) (availability.Slot, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return availability.Slot{}, false
	}
	return slotAt(slots, n)
}

// slotAt returns the 1-based nth slot; out-of-range selections are ignored.
func slotAt(slots []availability.Slot, n int) (availability.Slot, bool) {
	if n < 1 || n > len(slots) {
		return availability.Slot{}, false
	}
	return slots[n-1], true
}
