package validator

import (
	"math"
	"strconv"
	"strings"

	"github.com/amirk1998/stockkeeper/pkg/errors"
)

const (
	MinUsernameLength = 4
	MaxUsernameLength = 16
	MaxUnderscores    = 2

	MinPasswordLength = 6
	MaxPasswordLength = 36

	MinNameLength = 4
	MaxNameLength = 16
	MaxNameDashes = 2
	MaxNameSpaces = 2

	MinDescriptionLength = 8
	MaxDescriptionLength = 64

	// ReservedProductName collides with the stock file header column.
	ReservedProductName = "Name"
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

func isAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// ValidateUsername checks length, charset and underscore placement.
func (v *Validator) ValidateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return errors.Validation(errors.ErrInvalidUsername,
			"username must be between %d and %d characters long", MinUsernameLength, MaxUsernameLength)
	}

	hasAlnum := false
	underscores := 0
	for i := 0; i < len(username); i++ {
		c := username[i]
		switch {
		case isAlnum(c):
			hasAlnum = true
		case c == '_':
			underscores++
			if underscores > MaxUnderscores || (i > 0 && username[i-1] == '_') {
				return errors.Validation(errors.ErrInvalidUsername,
					"username can contain at most %d non-consecutive underscores", MaxUnderscores)
			}
		default:
			return errors.Validation(errors.ErrInvalidUsername,
				"username can only contain alphanumeric characters and underscores")
		}
	}

	if !hasAlnum {
		return errors.Validation(errors.ErrInvalidUsername,
			"username must include at least one alphanumeric character")
	}

	return nil
}

// ValidatePassword checks password strength
func (v *Validator) ValidatePassword(password string) error {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return errors.Validation(errors.ErrWeakPassword,
			"password must be between %d and %d characters long", MinPasswordLength, MaxPasswordLength)
	}

	var hasUpper, hasLower, hasDigit bool
	for i := 0; i < len(password); i++ {
		c := password[i]
		switch {
		case 'A' <= c && c <= 'Z':
			hasUpper = true
		case 'a' <= c && c <= 'z':
			hasLower = true
		case '0' <= c && c <= '9':
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return errors.Validation(errors.ErrWeakPassword,
			"password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}

// ValidateProductName enforces the product name rules. Names end up as a
// raw CSV field, so anything outside alphanumerics, dashes and spaces is
// rejected here.
func (v *Validator) ValidateProductName(name string) error {
	if len(name) < MinNameLength || len(name) > MaxNameLength {
		return errors.Validation(errors.ErrInvalidProduct,
			"name must be between %d and %d characters long", MinNameLength, MaxNameLength)
	}

	if strings.EqualFold(name, ReservedProductName) {
		return errors.Validation(errors.ErrInvalidProduct, "you can't use this name")
	}

	hasAlnum := false
	dashes, spaces := 0, 0
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isAlnum(c) {
			hasAlnum = true
			continue
		}

		switch c {
		case '-':
			dashes++
		case ' ':
			spaces++
		default:
			return errors.Validation(errors.ErrInvalidProduct,
				"name can only contain alphanumeric characters, dashes and spaces")
		}

		if dashes > MaxNameDashes || spaces > MaxNameSpaces {
			return errors.Validation(errors.ErrInvalidProduct,
				"name can contain at most %d dashes and %d spaces", MaxNameDashes, MaxNameSpaces)
		}
		if i > 0 && !isAlnum(name[i-1]) {
			return errors.Validation(errors.ErrInvalidProduct,
				"name can't contain consecutive dashes or spaces")
		}
	}

	if !hasAlnum {
		return errors.Validation(errors.ErrInvalidProduct,
			"name must include at least one alphanumeric character")
	}

	return nil
}

// ValidateDescription allows alphanumerics and spaces only.
func (v *Validator) ValidateDescription(description string) error {
	if len(description) < MinDescriptionLength || len(description) > MaxDescriptionLength {
		return errors.Validation(errors.ErrInvalidProduct,
			"description must be between %d and %d characters long", MinDescriptionLength, MaxDescriptionLength)
	}

	for i := 0; i < len(description); i++ {
		if !isAlnum(description[i]) && description[i] != ' ' {
			return errors.Validation(errors.ErrInvalidProduct,
				"description can only contain alphanumeric characters and spaces")
		}
	}

	return nil
}

func (v *Validator) ValidateUnitPrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return errors.Validation(errors.ErrInvalidProduct, "unit price must be a strict positive number")
	}
	return nil
}

func (v *Validator) ValidateQuantity(quantity uint64) error {
	if quantity == 0 {
		return errors.Validation(errors.ErrInvalidProduct, "quantity must be a strict positive number")
	}
	return nil
}

func (v *Validator) ValidateAlertThreshold(threshold, quantity uint64) error {
	if threshold == 0 || threshold >= quantity {
		return errors.Validation(errors.ErrInvalidProduct,
			"alert threshold must be a strict positive number less than the quantity")
	}
	return nil
}

// ParseUnitPrice parses a price and rounds it to cents, which is the
// precision the stock file keeps.
func (v *Validator) ParseUnitPrice(input string) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return 0, errors.Validation(errors.ErrInvalidInput, "please enter a valid number")
	}

	price = RoundCents(price)
	if err := v.ValidateUnitPrice(price); err != nil {
		return 0, err
	}
	return price, nil
}

// ParseCount parses a strictly positive integer.
func (v *Validator) ParseCount(input string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(input), 10, 64)
	if err != nil || n == 0 {
		return 0, errors.Validation(errors.ErrInvalidInput, "please enter a strict positive whole number")
	}
	return n, nil
}

// SanitizeString removes null bytes and surrounding whitespace
func (v *Validator) SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}

func RoundCents(price float64) float64 {
	return math.Round(price*100) / 100
}
