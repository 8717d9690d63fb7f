package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"minisaas.app/cloud/internal/identity"
	"minisaas.app/cloud/internal/logger"
	"minisaas.app/cloud/internal/notify"
	"minisaas.app/cloud/internal/payments"
	"minisaas.app/cloud/models"
	"minisaas.app/cloud/storage"
)

// ErrProfileNotFound is returned when an operation references a user with no
// local profile row.
var ErrProfileNotFound = errors.New("profile not found")

// Orchestrator coordinates the identity provider, the profile store, and the
// payment processor through the onboarding sequence:
// no profile -> profile created -> customer linked -> payment method attached.
type Orchestrator struct {
	store    storage.Storage
	identity identity.Service
	payments payments.Service
	notifier notify.Queue
}

func New(store storage.Storage, identitySvc identity.Service, paymentsSvc payments.Service, notifier notify.Queue) *Orchestrator {
	return &Orchestrator{
		store:    store,
		identity: identitySvc,
		payments: paymentsSvc,
		notifier: notifier,
	}
}

// Register signs the user up with the identity provider and creates the local
// profile row keyed by the provider's user id. A profile failure after a
// successful signup leaves the provider user in place; the provider owns
// user records and there is no compensating delete.
func (o *Orchestrator) Register(ctx context.Context, email, password string) (*models.User, *models.Profile, error) {
	user, err := o.identity.SignUp(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	profile := &models.Profile{ID: user.ID, Email: user.Email}
	if err := o.store.SaveProfile(ctx, profile); err != nil {
		logger.Error("Profile creation failed after identity signup", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
		return user, nil, fmt.Errorf("failed to create user profile: %w", err)
	}

	o.notifier.Enqueue(notify.Event{Kind: notify.KindSignup, Email: user.Email})

	logger.Info("User registered", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, profile, nil
}

// Login authenticates against the identity provider and queues the login
// notification. Notification delivery never affects the login result.
func (o *Orchestrator) Login(ctx context.Context, email, password string) (*models.Session, error) {
	session, err := o.identity.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if session.User != nil {
		o.notifier.Enqueue(notify.Event{
			Kind:      notify.KindLogin,
			UserID:    session.User.ID,
			Email:     session.User.Email,
			Timestamp: time.Now().UTC(),
		})
	}
	return session, nil
}

// SetupResult reports the customer a payment method ended up attached to and
// whether that customer was created by this call.
type SetupResult struct {
	Customer *models.Customer
	Created  bool
}

// SetupPaymentMethod runs the add-payment-method sequence: reuse the
// profile's customer id when present, otherwise find-or-create a Stripe
// customer by email; attach the payment method; then persist the customer id
// on the profile only if it is still unset.
//
// Two concurrent first-time setups for the same profile can each create a
// Stripe customer; there is deliberately no lock here (open product
// question). The re-read before persisting keeps the profile row at exactly
// one winner.
func (o *Orchestrator) SetupPaymentMethod(ctx context.Context, userID, paymentMethodID string) (*SetupResult, error) {
	profile, err := o.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}

	customer, created, err := o.ensureCustomer(ctx, profile)
	if err != nil {
		return nil, err
	}

	if err := o.payments.AttachPaymentMethod(ctx, customer.ID, paymentMethodID); err != nil {
		return nil, err
	}

	if profile.StripeCustomerID == "" {
		fresh, err := o.store.GetProfile(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload profile: %w", err)
		}
		if fresh != nil && fresh.StripeCustomerID == "" {
			if err := o.store.SetStripeCustomerID(ctx, userID, customer.ID); err != nil {
				return nil, fmt.Errorf("failed to persist customer id: %w", err)
			}
		}
	}

	logger.Info("Payment method set up", map[string]interface{}{
		"user_id":            userID,
		"stripe_customer_id": customer.ID,
		"customer_created":   created,
	})
	return &SetupResult{Customer: customer, Created: created}, nil
}

func (o *Orchestrator) ensureCustomer(ctx context.Context, profile *models.Profile) (*models.Customer, bool, error) {
	if profile.StripeCustomerID != "" {
		customer, err := o.payments.GetCustomer(ctx, profile.StripeCustomerID)
		if err != nil {
			return nil, false, err
		}
		return customer, false, nil
	}

	// First match by email wins.
	customer, err := o.payments.FindCustomerByEmail(ctx, profile.Email)
	if err != nil {
		return nil, false, err
	}
	if customer != nil {
		return customer, false, nil
	}

	customer, err = o.payments.CreateCustomer(ctx, profile.Email, "")
	if err != nil {
		return nil, false, err
	}
	return customer, true, nil
}

// RemovePaymentMethod detaches the payment method from Stripe and then
// clears the profile's stored customer id. The clear is unconditional even
// when the customer still has other payment methods; that matches current
// product behavior and is flagged for review, not fixed here.
func (o *Orchestrator) RemovePaymentMethod(ctx context.Context, userID, paymentMethodID string) error {
	if err := o.payments.DetachPaymentMethod(ctx, paymentMethodID); err != nil {
		return err
	}

	if err := o.store.ClearStripeCustomerID(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear customer id: %w", err)
	}

	logger.Info("Payment method removed", map[string]interface{}{
		"user_id":           userID,
		"payment_method_id": paymentMethodID,
	})
	return nil
}
