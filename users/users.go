package users

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// User is a resource owner that access tokens can be issued on behalf of.
type User struct {
	ID           string    `json:"id,omitempty"`          // Unique identifier for the user
	Email        string    `json:"email,omitempty"`       // User's email address
	Username     string    `json:"username,omitempty"`    // Unique username
	PasswordHash string    `json:"-"`                     // Hashed version of the user's password - never serialize
	FirstName    string    `json:"first_name,omitempty"`  // First name of the user
	LastName     string    `json:"last_name,omitempty"`   // Last name of the user
	DateJoined   time.Time `json:"date_joined,omitempty"` // Date and time when the user registered
	Blocked      bool      `json:"blocked,omitempty"`     // Blocked, tokens are never issued for the user
}

// GetID returns the identifier recorded on issued access tokens.
func (u *User) GetID() string {
	return u.ID
}

const minPasswordLength = 8

var passwordClasses = []struct {
	name string
	in   func(rune) bool
}{
	{"uppercase letter", unicode.IsUpper},
	{"lowercase letter", unicode.IsLower},
	{"number", unicode.IsDigit},
}

// ValidatePasswordStrength rejects passwords shorter than eight characters or
// missing an uppercase letter, a lowercase letter or a digit.
func ValidatePasswordStrength(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	}
	for _, class := range passwordClasses {
		if !strings.ContainsFunc(password, class.in) {
			return fmt.Errorf("password must contain at least one %s", class.name)
		}
	}
	return nil
}

// HashPassword bcrypt hashes a password for storage.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}
