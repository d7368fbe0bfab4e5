package chat

import "strings"

// Booking intent keywords. Both languages are always checked: visitors on a
// bilingual platform express intent in either language regardless of the
// business language setting.
var intentKeywords = []string{
	// French
	"rendez-vous", "rdv", "rendez vous",
	"réserver", "reservation",
	"prendre un rendez-vous",
	"disponibilité", "disponible",
	"horaire",
	// English
	"appointment", "book", "booking", "schedule",
	"available", "availability",
}

// DetectAppointmentIntent reports whether a message signals booking intent.
func DetectAppointmentIntent(message string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range intentKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
