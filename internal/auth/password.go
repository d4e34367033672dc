package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword applies bcrypt with the configured cost. A cost of 0
// falls back to bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword verifies password against a stored bcrypt digest.
// Corrupt or empty digests verify as false rather than erroring, so a
// lookup miss and a bad password are indistinguishable to callers.
func CheckPassword(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
