package model

import "strings"

// MaskPhone reduces a customer phone number to its first and last two
// digits. Anything shorter than four digits masks completely. The result
// is the only phone form that ever persists.
func MaskPhone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) < 4 {
		return "****"
	}
	return d[:2] + "******" + d[len(d)-2:]
}
