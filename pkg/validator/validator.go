package validator

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/adherence-api/pkg/phone"
)

var (
	registerOnce sync.Once
	registerErr  error
)

var messages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email",
	"min":      "is too short",
	"max":      "is too long",
	"oneof":    "has an invalid value",
	"phone":    "must be a valid phone number",
	"clock":    "must be a time in HH:MM format",
	"isodate":  "must be a date in YYYY-MM-DD format",
}

// New returns a standalone validator with the custom tags registered.
func New() *validator.Validate {
	v := validator.New()
	if err := Register(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterBindings installs the custom tags on gin's binding engine. Safe to
// call more than once.
func RegisterBindings() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected binding engine %T", binding.Validator.Engine())
			return
		}
		registerErr = Register(v)
	})
	return registerErr
}

func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	for tag, fn := range map[string]validator.Func{
		"phone":   validPhone,
		"clock":   validClock,
		"isodate": validISODate,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s: %w", tag, err)
		}
	}
	return nil
}

func validPhone(fl validator.FieldLevel) bool {
	return phone.IsValid(fl.Field().String())
}

func validClock(fl validator.FieldLevel) bool {
	_, err := time.Parse("15:04", strings.TrimSpace(fl.Field().String()))
	return err == nil
}

func validISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

// Message turns binding failures into a single readable sentence. Other
// errors are returned as they are.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msg, ok := messages[e.Tag()]
		if !ok {
			msg = "is invalid"
		}
		parts = append(parts, fmt.Sprintf("%s %s", e.Field(), msg))
	}
	return strings.Join(parts, "; ")
}
