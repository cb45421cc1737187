package domain

import (
	"regexp"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

const MinPasswordLength = 8

type Registration struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Normalize trims the fields and lower-cases the email.
func (r Registration) Normalize() Registration {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	return r
}

// Validate checks the form the same way on both sides of the wire.
func (r Registration) Validate() error {
	switch {
	case !emailPattern.MatchString(r.Email):
		return Invalid("invalid email format")
	case isBlank(r.Name):
		return Invalid("name is required")
	case !phonePattern.MatchString(r.Phone):
		return Invalid("phone number must be 10 digits")
	case len(r.Password) < MinPasswordLength:
		return Invalid("password must be at least 8 characters")
	}
	return nil
}
