package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const maxBodyBytes = 1 << 20

var (
	validateOnce sync.Once
	validate     *validator.Validate
	translator   ut.Translator
)

// getValidator returns the shared validator with english messages and json field names
func getValidator() (*validator.Validate, ut.Translator) {
	validateOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		translator, _ = uni.GetTranslator("en")

		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(validate, translator)
	})
	return validate, translator
}

// fieldError is the first validation failure of a request
type fieldError struct {
	Field   string
	Tag     string
	Message string
}

func (e *fieldError) Error() string {
	return e.Message
}

// decodeJSON decodes and validates a request body into dst.
// Validation failures are returned as *fieldError.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%s: %w", errInvalidRequestBody, err)
	}

	v, trans := getValidator()
	err := v.Struct(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &fieldError{Field: fe.Field(), Tag: fe.Tag(), Message: fe.Translate(trans)}
	}
	return err
}
