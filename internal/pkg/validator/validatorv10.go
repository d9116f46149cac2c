package validator

import (
	"encoding/json"
	"errors"
	"regexp"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shandysiswandi/apex/internal/pkg/strcase"
)

var reIdempotencyKey = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// ErrTranslatorNotFound indicates the English translator is unavailable.
var ErrTranslatorNotFound = errors.New("validator: translator not found")

// V10ValidationError maps snake_case field names to translated messages.
type V10ValidationError map[string]string

func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(map[string]string(vs))
	if err != nil {
		return "validation error"
	}

	return string(b)
}

// Values returns the field error map.
func (vs V10ValidationError) Values() map[string]string {
	return vs
}

// V10Validator implements Validator using go-playground/validator v10.
type V10Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewV10Validator builds a validator with English messages and the custom
// idempotency_key rule.
func NewV10Validator() (*V10Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	enLocale := en.New()
	trans, ok := ut.New(enLocale, enLocale).GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	if err := registerIdempotencyKey(validate, trans); err != nil {
		return nil, err
	}

	return &V10Validator{validate: validate, translator: trans}, nil
}

// Validate returns V10ValidationError when data violates its tags.
func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(V10ValidationError, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[strcase.ToLowerSnake(fe.Field())] = fe.Translate(v.translator)
	}

	return out
}

func registerIdempotencyKey(validate *validator.Validate, trans ut.Translator) error {
	const tag = "idempotency_key"

	err := validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return reIdempotencyKey.MatchString(fl.Field().String())
	})
	if err != nil {
		return err
	}

	return validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, "{0} must be 8-64 letters, digits, '-' or '_'", false)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, err := ut.T(fe.Tag(), fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}
