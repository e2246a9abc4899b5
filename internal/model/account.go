package model

import "time"

type Subscription string

const (
	SubscriptionStarter  Subscription = "starter"
	SubscriptionPro      Subscription = "pro"
	SubscriptionBusiness Subscription = "business"
)

// Valid reports whether s is one of the known tiers.
func (s Subscription) Valid() bool {
	switch s {
	case SubscriptionStarter, SubscriptionPro, SubscriptionBusiness:
		return true
	}
	return false
}

type Account struct {
	ID                string       `json:"id"`
	Email             string       `json:"email"`
	PasswordHash      string       `json:"-"`
	Subscription      Subscription `json:"subscription"`
	AvatarURL         string       `json:"avatarURL"`
	Verified          bool         `json:"verify"`
	VerificationToken *string      `json:"-"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// PublicUser is the account projection returned on signup.
type PublicUser struct {
	Email        string       `json:"email"`
	Subscription Subscription `json:"subscription"`
	AvatarURL    string       `json:"avatarURL,omitempty"`
}

func (a *Account) Public() PublicUser {
	return PublicUser{Email: a.Email, Subscription: a.Subscription, AvatarURL: a.AvatarURL}
}
