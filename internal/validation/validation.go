// Package validation holds the input rules shared by registration, profile and service request
// endpoints, and exposes them as go-playground/validator tags.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"teknigo_backend/internal/config"
)

// DefaultAllowedEmailDomains is used when ALLOWED_EMAIL_DOMAINS is empty.
var DefaultAllowedEmailDomains = []string{
	"gmail.com",
	"hotmail.com",
	"outlook.com",
	"yahoo.com",
	"icloud.com",
	"protonmail.com",
	"teknigo.com",
	"teknigo.pe",
	"teknigo.mx",
	"teknigo.co",
	"teknigo.es",
}

const (
	PasswordMinLength = 8
	passwordSpecials  = `!@#$%^&*(),.?":{}|<>`
	nameMinLength     = 2
	nameMaxLength     = 50
)

var (
	ErrInvalidEmailFormat = errors.New("email format is not valid")
	ErrEmailDomain        = errors.New("email domain is not allowed")

	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	upperPattern      = regexp.MustCompile(`[A-Z]`)
	lowerPattern      = regexp.MustCompile(`[a-z]`)
	digitPattern      = regexp.MustCompile(`\d`)
	specialPattern    = regexp.MustCompile(`[` + regexp.QuoteMeta(passwordSpecials) + `]`)
	phonePattern      = regexp.MustCompile(`^(\+?52)?\d{10}$`)
	namePattern       = regexp.MustCompile(`^[a-zA-ZÀ-ÿ\s]+$`)
	postalCodePattern = regexp.MustCompile(`^\d{5}$`)
	whitespace        = regexp.MustCompile(`\s+`)
)

// Rules carries the configurable parts of validation.
type Rules struct {
	domains []string
	allowed map[string]struct{}
}

// NewRules builds Rules from config, falling back to DefaultAllowedEmailDomains.
func NewRules(cfg *config.Config) *Rules {
	domains := DefaultAllowedEmailDomains
	if cfg != nil && len(cfg.AllowedEmailDomains) > 0 {
		domains = cfg.AllowedEmailDomains
	}
	r := &Rules{allowed: make(map[string]struct{}, len(domains))}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if _, dup := r.allowed[d]; dup || d == "" {
			continue
		}
		r.allowed[d] = struct{}{}
		r.domains = append(r.domains, d)
	}
	return r
}

// AllowedDomains returns the accepted email domains in configuration order.
func (r *Rules) AllowedDomains() []string {
	out := make([]string, len(r.domains))
	copy(out, r.domains)
	return out
}

// ValidateEmail checks the address shape and that its domain is allowed.
func (r *Rules) ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmailFormat
	}
	domain := strings.ToLower(email[strings.LastIndex(email, "@")+1:])
	if _, ok := r.allowed[domain]; !ok {
		return fmt.Errorf("%w: %s (use one of: %s)", ErrEmailDomain, domain, strings.Join(r.domains, ", "))
	}
	return nil
}

// ValidatePassword returns every unmet password requirement joined into one error.
func ValidatePassword(password string) error {
	var errs []error
	if utf8.RuneCountInString(password) < PasswordMinLength {
		errs = append(errs, fmt.Errorf("password must be at least %d characters long", PasswordMinLength))
	}
	if !upperPattern.MatchString(password) {
		errs = append(errs, errors.New("password must contain an uppercase letter"))
	}
	if !lowerPattern.MatchString(password) {
		errs = append(errs, errors.New("password must contain a lowercase letter"))
	}
	if !digitPattern.MatchString(password) {
		errs = append(errs, errors.New("password must contain a number"))
	}
	if !specialPattern.MatchString(password) {
		errs = append(errs, fmt.Errorf("password must contain a special character (%s)", passwordSpecials))
	}
	return errors.Join(errs...)
}

// PasswordRequirements lists the password rules for display.
func PasswordRequirements() []string {
	return []string{
		fmt.Sprintf("At least %d characters", PasswordMinLength),
		"At least one uppercase letter",
		"At least one lowercase letter",
		"At least one number",
		fmt.Sprintf("At least one special character (%s)", passwordSpecials),
	}
}

// ValidatePhone accepts ten digits with an optional +52 prefix; whitespace is ignored.
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(whitespace.ReplaceAllString(phone, ""))
}

// ValidateName accepts 2 to 50 letters, accented letters and spaces.
func ValidateName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if utf8.RuneCountInString(trimmed) < nameMinLength || utf8.RuneCountInString(name) > nameMaxLength {
		return false
	}
	return namePattern.MatchString(trimmed)
}

// ValidateURL reports whether raw is an absolute URL.
func ValidateURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != "")
}

// ValidatePostalCode accepts five-digit postal codes.
func ValidatePostalCode(code string) bool {
	return postalCodePattern.MatchString(code)
}
