package models

import "time"

// Profile is the local record linking an identity-provider user to a Stripe
// customer. Its ID always equals the provider's user id.
type Profile struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	StripeCustomerID string    `json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ProfileUpdate carries a partial profile update. Nil fields are left as-is.
type ProfileUpdate struct {
	Email            *string
	StripeCustomerID *string
}
