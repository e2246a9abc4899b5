// Package validation checks request payloads before they reach the auth gate
// or a handler. Each payload type declares its rules with validator/v10 struct
// tags; Body decodes, normalizes and validates a request body and stores the
// result on the request context.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/contactbook/internal/model"
)

// FieldError names the offending field and why it was rejected.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Message
}

// Validator wraps a configured validator/v10 instance.
type Validator struct {
	validate    *validator.Validate
	allowedTLDs map[string]bool
	tldList     string
}

// New returns a Validator whose credential emails must end in one of allowedTLDs.
func New(allowedTLDs []string) *Validator {
	v := &Validator{
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		allowedTLDs: make(map[string]bool, len(allowedTLDs)),
		tldList:     strings.Join(allowedTLDs, ", "),
	}
	for _, tld := range allowedTLDs {
		v.allowedTLDs[strings.ToLower(tld)] = true
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.validate.RegisterValidation("tld", v.hasAllowedTLD)
	v.validate.RegisterValidation("domain2", hasTwoDomainSegments)
	v.validate.RegisterAlias("pagesize", fmt.Sprintf("min=1,max=%d", model.MaxContactLimit))
	return v
}

func domainLabels(email string) []string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return nil
	}
	return strings.Split(email[at+1:], ".")
}

func hasTwoDomainSegments(fl validator.FieldLevel) bool {
	labels := domainLabels(fl.Field().String())
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if l == "" {
			return false
		}
	}
	return true
}

func (v *Validator) hasAllowedTLD(fl validator.FieldLevel) bool {
	labels := domainLabels(fl.Field().String())
	if len(labels) < 2 {
		return false
	}
	return v.allowedTLDs[strings.ToLower(labels[len(labels)-1])]
}

// Struct validates s and returns the first failing field, or nil.
func (v *Validator) Struct(s any) *FieldError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &FieldError{Message: err.Error()}
	}
	return v.describe(verrs[0])
}

func (v *Validator) describe(fe validator.FieldError) *FieldError {
	field := fe.Field()
	var msg string
	switch fe.ActualTag() {
	case "required":
		msg = fmt.Sprintf("missing required %s field", field)
	case "email":
		msg = "invalid email format"
	case "domain2":
		msg = fmt.Sprintf("%s must have a domain with at least two segments", field)
	case "tld":
		msg = fmt.Sprintf("%s domain must be one of: %s", field, v.tldList)
	case "min":
		if fe.Kind() == reflect.String {
			msg = fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		} else {
			msg = fmt.Sprintf("%s must be at least %s", field, fe.Param())
		}
	case "max":
		if fe.Kind() == reflect.String {
			msg = fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
		} else {
			msg = fmt.Sprintf("%s must be at most %s", field, fe.Param())
		}
	case "oneof":
		msg = fmt.Sprintf("%s must be one of [%s]", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		msg = fmt.Sprintf("%s is invalid", field)
	}
	return &FieldError{Field: field, Message: msg}
}
