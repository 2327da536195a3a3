package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/grand-nerud/backoffice/internal/shared"
)

// NewValidator returns a validator with the project's custom tags registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value == "" || shared.ValidID(value)
	})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Bind decodes the JSON body into target and validates it.
func Bind(r *http.Request, v *validator.Validate, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		return err
	}
	return Validate(v, target)
}

// Validate runs struct validation and converts failures to validation errors.
func Validate(v *validator.Validate, target any) error {
	if err := v.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			parts := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				parts = append(parts, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
			}
			return shared.NewError(shared.ErrValidation, strings.Join(parts, "; "))
		}
		return shared.NewError(shared.ErrValidation, err.Error())
	}
	return nil
}

// PathID reads and validates a document identifier URL parameter.
func PathID(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	if _, err := shared.ParseID(raw); err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// ListParams reads skip, limit, sort and include_deleted query parameters.
func ListParams(r *http.Request) (shared.ListParams, error) {
	q := r.URL.Query()
	params := shared.ListParams{Sort: q.Get("sort")}
	var err error
	if raw := q.Get("skip"); raw != "" {
		if params.Skip, err = strconv.Atoi(raw); err != nil || params.Skip < 0 {
			return params, shared.NewError(shared.ErrValidation, "skip must be a non-negative integer")
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if params.Limit, err = strconv.Atoi(raw); err != nil || params.Limit < 1 {
			return params, shared.NewError(shared.ErrValidation, "limit must be a positive integer")
		}
	}
	if params.IncludeDeleted, err = QueryBool(r, "include_deleted"); err != nil {
		return params, err
	}
	if _, err := params.SortKeys(); err != nil {
		return params, err
	}
	return params.Normalize(), nil
}

// QueryBool parses an optional boolean query parameter.
func QueryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, shared.NewError(shared.ErrValidation, name+" must be a boolean")
	}
	return value, nil
}
