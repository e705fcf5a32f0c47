package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spigell/fitscore/internal/ai"
	"github.com/spigell/fitscore/internal/scoring"
)

// fitStatus maps a fit result onto the HTTP status returned with it.
func fitStatus(res *scoring.FitResult) int {
	if res.Success {
		return http.StatusOK
	}

	switch err := res.Err; {
	case errors.Is(err, ai.ErrMissingAPIKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, scoring.ErrContactNotFound), errors.Is(err, scoring.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, scoring.ErrRecordFetch):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
