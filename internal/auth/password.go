// Password hashing.
//
// HOW BCRYPT STORES A PASSWORD
// bcrypt.GenerateFromPassword picks a random salt, runs 2^cost rounds of the
// key schedule and returns one string holding version, cost, salt and hash:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 → 4096 rounds)
//	 version
//
// CompareHashAndPassword reads the salt and cost back out of that string, so
// the users table needs a single password_hash column and old hashes keep
// verifying after the cost changes.
//
// bcrypt only looks at the first 72 bytes of its input. Longer passwords are
// rejected in Hash instead of being silently cut.

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor for stored credentials.
//
// Each +1 doubles the hashing time. 12 costs a few hundred milliseconds on a
// typical server, paid once per login or registration.
const defaultCost = 12

// MaxPasswordBytes is the longest password bcrypt hashes without truncating.
const MaxPasswordBytes = 72

var (
	ErrPasswordMismatch = errors.New("auth: invalid password")
	ErrPasswordTooLong  = fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
)

// PasswordService hashes and verifies passwords with bcrypt. The cost is a
// field so tests can run at bcrypt.MinCost.
type PasswordService struct {
	cost int
}

// NewPasswordService returns a PasswordService with cost 12.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest returns a PasswordService with the given cost.
// Tests in other packages pass bcrypt.MinCost (4). Never use it in main.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext. The salt and cost are embedded
// in the returned string.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and ErrPasswordMismatch
// when it does not. Any other error means the stored hash is unusable.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
