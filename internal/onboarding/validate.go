package onboarding

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/atinyakov/GophIntake/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneLike(fl.Field().String())
	})
	_ = v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		return len(strings.Fields(fl.Field().String())) == 1
	})
	return v
}

// Validator exposes the shared validator so transport layers can check
// request DTOs with the same custom tags.
func Validator() *validator.Validate { return validate }

var skipWords = map[string]bool{
	"skip": true, "n/a": true, "na": true, "none": true, "no": true, "-": true,
}

// IsSkip reports whether v asks to skip an optional question.
func IsSkip(v string) bool {
	return skipWords[strings.ToLower(strings.TrimSpace(v))]
}

func phoneLike(v string) bool {
	digits := 0
	for _, r := range v {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' || r == '-' || r == ' ' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

// NormalizeValue validates v for field f and returns the value to store.
// Optional fields turn skip words into models.NotApplicable.
func NormalizeValue(f models.Field, v string) (string, *Error) {
	v = strings.TrimSpace(v)
	if f.Optional() && IsSkip(v) {
		return models.NotApplicable, nil
	}
	if v == "" {
		return "", Validationf("%s cannot be empty", f.Label())
	}

	var tag string
	switch f {
	case models.FieldEmail:
		v = models.NormalizeEmail(v)
		tag = "email"
	case models.FieldWhatsApp:
		tag = "phone"
	case models.FieldGitHub, models.FieldLinkedIn, models.FieldPortfolio:
		tag = "handle"
	}
	if tag != "" {
		if err := validate.Var(v, tag); err != nil {
			return "", Validationf("%q doesn't look like a valid %s", v, f.Label())
		}
	}
	return v, nil
}
