package utils

import (
	"errors"
	"strings"
)

// ErrInvalidCard is returned for card numbers that fail the length or
// checksum test.
var ErrInvalidCard = errors.New("invalid card number")

// CardLast4 validates a card number (spaces and dashes allowed) and returns
// only its last four digits.  The full number is never kept.
func CardLast4(number string) (string, error) {
	digits := strings.NewReplacer(" ", "", "-", "").Replace(number)
	if len(digits) < 12 || len(digits) > 19 {
		return "", ErrInvalidCard
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			return "", ErrInvalidCard
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	if sum%10 != 0 {
		return "", ErrInvalidCard
	}
	return digits[len(digits)-4:], nil
}
