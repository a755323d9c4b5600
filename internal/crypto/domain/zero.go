package domain

// Zero overwrites sensitive data in memory with zeros.
// Prevents key material from lingering in memory after use.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
