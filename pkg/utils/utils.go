package utils

import "strings"

// MaskEmail hides the middle of the local part: "john@example.com" becomes
// "j***n@example.com". Strings without an "@" are returned unchanged.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	local, domain := email[:at], email[at:]
	switch len(local) {
	case 1:
		return email
	case 2:
		return local[:1] + "*" + local[1:] + domain
	default:
		return local[:1] + "***" + local[len(local)-1:] + domain
	}
}
