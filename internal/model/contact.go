package model

import (
	"math"
	"time"
)

type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Favorite  bool      `json:"favorite"`
	OwnerID   string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ContactInput struct {
	Name  string
	Email string
	Phone string
}

// ContactFilter narrows a contact listing. A nil Favorite matches both.
type ContactFilter struct {
	Favorite *bool
	Page     int
	Limit    int
}

const (
	DefaultContactLimit = 20
	MaxContactLimit     = 100
	// MaxContactOffset bounds how far a listing may page so the offset fits
	// every store's skip type.
	MaxContactOffset = math.MaxInt32
)

// MaxPage returns the last page number whose offset stays within MaxContactOffset.
func (f ContactFilter) MaxPage() int {
	if f.Limit < 1 {
		return MaxContactOffset + 1
	}
	return MaxContactOffset/f.Limit + 1
}

// Offset returns the number of records to skip for the filter's page.
// Pages past MaxPage are clamped to it.
func (f ContactFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	page := min(f.Page, f.MaxPage())
	return (page - 1) * f.Limit
}
