package payments

import (
	"errors"

	"github.com/stripe/stripe-go/v82"
)

// ErrorMessage maps a Stripe error to a message safe to return to a caller.
// Card errors carry Stripe's own message (declines, expired cards); the rest
// collapse to fixed strings so internals never leak.
func ErrorMessage(err error) string {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return "An unknown error occurred."
	}

	switch stripeErr.Type {
	case stripe.ErrorTypeCard:
		return stripeErr.Msg
	case stripe.ErrorTypeInvalidRequest:
		return "Invalid request to Stripe."
	case stripe.ErrorTypeAPI:
		return "An error occurred with Stripe's API."
	default:
		return "An unknown error occurred."
	}
}
