// Package validation builds the request validator and renders its field
// errors in English.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	once  sync.Once
	trans ut.Translator
)

func translator() ut.Translator {
	once.Do(func() {
		locale := en.New()
		trans, _ = ut.New(locale, locale).GetTranslator("en")
	})
	return trans
}

// New returns a validator that names fields by their JSON tag and carries
// English messages.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = enTranslations.RegisterDefaultTranslations(v, translator())
	return v
}

// Fields maps each failing field to a readable message. It returns nil when
// err carries no validation errors.
func Fields(err error) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Translate(translator())
	}
	return fields
}
