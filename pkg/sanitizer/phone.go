package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone formats phone as E.164, reading national numbers in the
// given default region. Numbers that do not parse are returned trimmed.
func NormalizePhone(phone string, defaultRegion string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	parsedNumber, err := phonenumbers.Parse(phone, defaultRegion)
	if err != nil || !phonenumbers.IsPossibleNumber(parsedNumber) {
		return phone
	}
	return phonenumbers.Format(parsedNumber, phonenumbers.E164)
}
