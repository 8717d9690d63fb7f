package models

// Customer is the service's view of a Stripe customer.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// CustomerUpdate carries a partial Stripe customer update. Nil fields are
// left untouched.
type CustomerUpdate struct {
	Email *string
	Name  *string
}

// PaymentMethod is the card view exposed over the API.
type PaymentMethod struct {
	ID       string `json:"id"`
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int64  `json:"exp_month"`
	ExpYear  int64  `json:"exp_year"`
}

// PaymentIntent is the slice of a Stripe payment intent the API reports
// back. ClientSecret is what the frontend needs to confirm the payment.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// Subscription is the slice of a Stripe subscription the API reports back.
type Subscription struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	Status     string `json:"status"`
}
