package validation

import (
	"fmt"
	"strings"

	"bloomdesk/internal/constants"
)

// RequiredField trims the value and rejects it when nothing is left. The
// trimmed value is returned so callers persist the cleaned form.
func RequiredField(value, fieldName string, maxLength int) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%s must not be empty", fieldName)
	}
	if maxLength > 0 && len(trimmed) > maxLength {
		return "", fmt.Errorf("%s exceeds maximum length of %d characters", fieldName, maxLength)
	}
	return trimmed, nil
}

// SubmitterName validates the name field of a review or message submission.
func SubmitterName(name string) (string, error) {
	return RequiredField(name, "name", constants.MaxSubmitterNameLength)
}

// ReviewText validates the free-text body of a review.
func ReviewText(text string) (string, error) {
	return RequiredField(text, "text", constants.MaxReviewTextLength)
}

// MessageBody validates the body of a contact message.
func MessageBody(body string) (string, error) {
	return RequiredField(body, "message", constants.MaxMessageBodyLength)
}

// Phone validates the phone field of a contact message. Format is not
// enforced beyond a light sanity check; the site accepts international input.
func Phone(phone string) (string, error) {
	trimmed, err := RequiredField(phone, "phone", 32)
	if err != nil {
		return "", err
	}
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", fmt.Errorf("phone contains invalid character %q", r)
		}
	}
	return trimmed, nil
}

// NormalizeRating applies the submission defaults: an unset rating becomes
// the default, anything else is clamped into the legal range.
func NormalizeRating(rating int) int {
	if rating == 0 {
		return constants.DefaultRating
	}
	if rating < constants.MinRating {
		return constants.MinRating
	}
	if rating > constants.MaxRating {
		return constants.MaxRating
	}
	return rating
}
