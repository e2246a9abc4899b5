package validation

import (
	"strings"

	"github.com/dukerupert/contactbook/internal/model"
)

// normalizer is implemented by payloads that clean their fields before validation.
type normalizer interface {
	Normalize()
}

type ContactRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email,domain2"`
	Phone string `json:"phone" validate:"required"`
}

func (r *ContactRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r *ContactRequest) Input() model.ContactInput {
	return model.ContactInput{Name: r.Name, Email: r.Email, Phone: r.Phone}
}

type FavoriteRequest struct {
	Favorite *bool `json:"favorite" validate:"required"`
}

type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email,tld"`
	Password string `json:"password" validate:"required,min=6,max=16"`
}

func (r *CredentialsRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
}

type SubscriptionRequest struct {
	Subscription string `json:"subscription" validate:"required,oneof=starter pro business"`
}

func (r *SubscriptionRequest) Normalize() {
	r.Subscription = strings.ToLower(strings.TrimSpace(r.Subscription))
}

// EmailRequest is the body of a verification resend.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email,tld"`
}

func (r *EmailRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
