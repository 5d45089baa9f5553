// internal/pkg/auth/password.go
package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"unicode"

	"github.com/your-org/hospital-backend/internal/config"
	"golang.org/x/crypto/bcrypt"
)

var (
	sequentialLetters = regexp.MustCompile(`(abc|bcd|cde|def|efg|fgh|ghi|hij|ijk|jkl|klm|lmn|mno|nop|opq|pqr|qrs|rst|stu|tuv|uvw|vwx|wxy|xyz)`)
	sequentialDigits  = regexp.MustCompile(`(012|123|234|345|456|567|678|789)`)

	// Dictionary fragments that disqualify a password outright.
	weakFragments = []string{
		"password", "123456", "admin", "qwerty", "letmein",
		"welcome", "monkey", "dragon", "football",
	}
)

// hasRepeatedRun reports whether s contains the same character three or
// more times in a row. This is the backreference pattern `(.)\1{2,}`,
// which Go's RE2 regexp engine cannot express.
func hasRepeatedRun(s string) bool {
	var last rune
	run := 0
	for _, r := range s {
		if run > 0 && r == last {
			run++
			if run >= 3 {
				return true
			}
		} else {
			last, run = r, 1
		}
	}
	return false
}

// PasswordManager handles password operations
type PasswordManager struct {
	config *config.Config
}

// NewPasswordManager creates a new password manager
func NewPasswordManager(cfg *config.Config) *PasswordManager {
	return &PasswordManager{config: cfg}
}

// HashPassword validates strength and hashes with the configured cost
func (p *PasswordManager) HashPassword(password string) (string, error) {
	if err := p.ValidatePassword(password); err != nil {
		return "", fmt.Errorf("password validation failed: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), p.config.Security.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword verifies a password against its hash
func (p *PasswordManager) VerifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// ValidatePassword enforces the staff password policy
func (p *PasswordManager) ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}
	if len(password) > 128 {
		return fmt.Errorf("password must be no more than 128 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	switch {
	case !hasUpper:
		return fmt.Errorf("password must contain at least one uppercase letter")
	case !hasLower:
		return fmt.Errorf("password must contain at least one lowercase letter")
	case !hasDigit:
		return fmt.Errorf("password must contain at least one number")
	case !hasSpecial:
		return fmt.Errorf("password must contain at least one special character")
	}

	lowered := strings.ToLower(password)
	if sequentialLetters.MatchString(lowered) {
		return fmt.Errorf("password cannot contain sequential letters")
	}
	if sequentialDigits.MatchString(password) {
		return fmt.Errorf("password cannot contain sequential numbers")
	}
	if hasRepeatedRun(password) {
		return fmt.Errorf("password cannot contain more than 2 repeating characters")
	}
	for _, weak := range weakFragments {
		if strings.Contains(lowered, weak) {
			return fmt.Errorf("password is too common and easily guessable")
		}
	}
	return nil
}

// GenerateTemporaryPassword generates a secure temporary password for
// staff onboarding. The alphabet skips sequential runs so the result
// passes ValidatePassword.
func (p *PasswordManager) GenerateTemporaryPassword() (string, error) {
	const (
		upper   = "ACEGIKMQSUWY"
		lower   = "acegikmqsuwy"
		digits  = "02468"
		special = "!@#$%&*"
	)
	groups := []string{upper, lower, digits, special, upper + lower, upper + lower + digits}

	var password []byte
	for i := 0; i < 12; i++ {
		group := groups[i%len(groups)]
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(group))))
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		password = append(password, group[n.Int64()])
	}
	return string(password), nil
}
