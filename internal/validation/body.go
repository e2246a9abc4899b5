package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
)

const maxBodyBytes = 1 << 20

type bodyKey struct{}

// Body returns middleware that decodes the request body into a T, rejects
// unknown fields, normalizes and validates it. On failure it responds with
// failStatus and never calls next. On success the value is available to later
// stages through FromContext.
func Body[T any](v *Validator, failStatus int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, ferr := Decode[T](v, http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if ferr != nil {
				writeJSON(w, failStatus, ferr)
				return
			}
			ctx := context.WithValue(r.Context(), bodyKey{}, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the payload stored by Body.
func FromContext[T any](ctx context.Context) (*T, bool) {
	req, ok := ctx.Value(bodyKey{}).(*T)
	return req, ok
}

// Decode reads one JSON value of type T from body and validates it.
func Decode[T any](v *Validator, body io.Reader) (*T, *FieldError) {
	var req T
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, decodeError(err)
	}
	if n, ok := any(&req).(normalizer); ok {
		n.Normalize()
	}
	if ferr := v.Struct(&req); ferr != nil {
		return nil, ferr
	}
	return &req, nil
}

func decodeError(err error) *FieldError {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	var maxErr *http.MaxBytesError

	switch {
	case errors.Is(err, io.EOF):
		return &FieldError{Message: "missing request body"}
	case errors.As(err, &typeErr):
		return &FieldError{Field: typeErr.Field, Message: fmt.Sprintf("%s must be a %s", typeErr.Field, kindName(typeErr.Type))}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return &FieldError{Message: "invalid JSON"}
	case errors.As(err, &maxErr):
		return &FieldError{Message: "request body too large"}
	}

	// encoding/json reports unknown fields only through the message text.
	if name, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		name = strings.Trim(name, `"`)
		return &FieldError{Field: name, Message: fmt.Sprintf("%q is not allowed", name)}
	}
	return &FieldError{Message: "invalid request body"}
}

func kindName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int64, reflect.Float64:
		return "number"
	}
	return t.Kind().String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
