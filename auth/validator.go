package auth

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Username rules: 1-10 characters from the letters/digits/underscore/
// dot/dash charset. The format check runs after the credential check
// during login, matching the service's validation order.
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,10}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// validator ships no rule for this exact charset+length combo
	_ = v.RegisterValidation("chatname", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	return v
}

// ValidUsername reports whether a username is well-formed.
func ValidUsername(username string) bool {
	return validate.Var(username, "required,chatname") == nil
}

// ValidateStruct applies `validate` tags on transport request DTOs.
func ValidateStruct(v any) error {
	return validate.Struct(v)
}
