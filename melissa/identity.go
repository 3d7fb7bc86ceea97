package melissa

// selectIdentifier picks the id sent with a request: per-call token, then
// license key, then user id. Empty when none is set.
func selectIdentifier(token, licenseKey, userID string) string {
	switch {
	case token != "":
		return token
	case licenseKey != "":
		return licenseKey
	case userID != "":
		return userID
	default:
		return ""
	}
}
