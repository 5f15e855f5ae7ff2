// Package password verifies login secrets against stored bcrypt hashes.
//
// Verification is deliberately fault-free: a missing or malformed stored
// hash is a failed verification, never an error that could turn a login
// attempt into a server fault.
package password

import "golang.org/x/crypto/bcrypt"

// Verify reports whether plain matches the stored bcrypt hash. Empty or
// malformed hashes verify as false.
func Verify(plain, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plain)) == nil
}

// Hash produces a bcrypt hash of plain at the default cost. Account
// registration lives outside this module, but stores still need seeding.
func Hash(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
