package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	parkingvalidator "parkly/internal/parking/validator"
	"parkly/pkg/logger"
	"parkly/pkg/model"
)

type AdminValidator struct {
	validate          *validator.Validate
	minPasswordLength int
	logger            *logger.Logger
}

func NewAdminValidator(minPasswordLength int, log *logger.Logger) *AdminValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	log.Debug("Admin validator initialized successfully", "min_password_length", minPasswordLength)

	return &AdminValidator{
		validate:          v,
		minPasswordLength: minPasswordLength,
		logger:            log,
	}
}

// ValidateRegistration checks the email format and the password policy.
func (v *AdminValidator) ValidateRegistration(reg *model.AdminRegistration) error {
	if reg == nil {
		return parkingvalidator.ValidationErrors{{Field: "registration", Message: "registration is required"}}
	}

	errs := v.structErrors(reg)
	if reg.Password != "" && utf8.RuneCountInString(reg.Password) < v.minPasswordLength {
		errs = append(errs, parkingvalidator.ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("password must be at least %d characters", v.minPasswordLength),
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateCredentials only checks shape; the password policy is not applied
// at login so that the response cannot hint at it.
func (v *AdminValidator) ValidateCredentials(creds *model.AdminCredentials) error {
	if creds == nil {
		return parkingvalidator.ValidationErrors{{Field: "credentials", Message: "credentials are required"}}
	}
	if errs := v.structErrors(creds); len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *AdminValidator) structErrors(s any) parkingvalidator.ValidationErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return parkingvalidator.ValidationErrors{{Field: "request", Message: err.Error()}}
	}

	var out parkingvalidator.ValidationErrors
	for _, fe := range validationErrs {
		message := fe.Error()
		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", fe.Field())
		case "email":
			message = "email must be a valid email address"
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		}
		out = append(out, parkingvalidator.ValidationError{Field: fe.Field(), Message: message})
	}
	return out
}
