package utils

// MaskKey masks a credential for log output, keeping only enough of the
// prefix and suffix to correlate operator reports.
func MaskKey(key string) string {
	if key == "" {
		return "(empty)"
	}
	if len(key) < 16 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
