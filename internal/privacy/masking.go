package privacy

import (
	"strings"
)

// MaskPhoneNumber masks a phone number showing only the last 4 digits.
// Example: "+301234567890" -> "+********7890"
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	if strings.HasPrefix(phone, "+") {
		if len(phone) == 1 {
			return phone
		}
		if len(phone) <= 5 {
			return "+" + strings.Repeat("*", len(phone)-1)
		}
		return "+" + strings.Repeat("*", len(phone)-5) + phone[len(phone)-4:]
	}

	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// MaskName keeps the first rune of a submitter name and hides the rest, so
// logs show who acted on what without recording full names.
func MaskName(name string) string {
	if name == "" {
		return ""
	}
	runes := []rune(name)
	if len(runes) == 1 {
		return "*"
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-1)
}

// MaskEntityID keeps enough of an entity ID to correlate log lines while
// hiding the full value. Example: "3f8a1c2e-..." -> "3f8a****"
func MaskEntityID(id string) string {
	if id == "" {
		return ""
	}
	if len(id) <= 4 {
		return strings.Repeat("*", len(id))
	}
	return id[:4] + "****"
}
