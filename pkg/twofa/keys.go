package twofa

// Ephemeral store keys. Each kind lives in its own namespace.

// CodeKey holds the delivered code for a (user, method) pair.
func CodeKey(userID string, method Method) string {
	return "twofa:code:" + string(method) + ":" + userID
}

// CooldownKey marks a recent resend for a (user, method) pair.
func CooldownKey(userID string, method Method) string {
	return "twofa:cooldown:" + string(method) + ":" + userID
}

// LinkKey maps a bot linking token to a user id.
func LinkKey(token string) string {
	return "twofa:link:" + token
}

// LeaseKey guards the SecurityRecord of a (user, method) pair across
// processes.
func LeaseKey(userID string, method Method) string {
	return "twofa:lease:" + string(method) + ":" + userID
}
