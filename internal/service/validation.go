package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/prk-tuition/homework-service/internal/models"
)

var customTags = []struct {
	tag  string
	text string
	fn   validator.Func
}{
	{"notblank", "{0} must not be blank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}},
	{"class", "{0} must be one of 5th to 12th", func(fl validator.FieldLevel) bool {
		return models.ValidClass(fl.Field().String())
	}},
	{"subject", "{0} is not a known subject", func(fl validator.FieldLevel) bool {
		return models.ValidSubject(fl.Field().String())
	}},
	{"plan", "{0} is not a known plan", func(fl validator.FieldLevel) bool {
		_, ok := models.LookupPlan(fl.Field().String())
		return ok
	}},
	{"security_question", "{0} must be one of the offered questions", func(fl validator.FieldLevel) bool {
		return models.ValidSecurityQuestion(fl.Field().String())
	}},
}

// Validator checks request DTOs and reports errors by JSON field name.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator() *Validator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	for _, c := range customTags {
		_ = validate.RegisterValidation(c.tag, c.fn)
		registerTranslation(validate, translator, c.tag, c.text, false)
	}
	registerTranslation(validate, translator, "required", "{0} is required", true)

	return &Validator{validate: validate, translator: translator}
}

func registerTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override bool) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates s and returns a *ValidationError listing every failing
// field, or nil.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Translate(v.translator)
	}
	return &ValidationError{Fields: fields}
}
