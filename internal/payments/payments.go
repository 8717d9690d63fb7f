package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"minisaas.app/cloud/internal/logger"
	"minisaas.app/cloud/models"
)

// Service is the payment-processor surface handlers and the orchestrator
// depend on. Tests substitute a fake.
type Service interface {
	FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, email, name string) (*models.Customer, error)
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id string, update models.CustomerUpdate) (*models.Customer, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	ListPaymentMethods(ctx context.Context, customerID string) ([]models.PaymentMethod, error)
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error
	CreateSubscription(ctx context.Context, customerID, priceID, paymentMethodID string) (*models.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	CreatePaymentIntent(ctx context.Context, amount int64, currency, customerID string) (*models.PaymentIntent, error)
	ConstructWebhookEvent(payload []byte, signature string) (stripe.Event, error)
}

// Client wraps the Stripe SDK with an injected key instead of the package
// global, so instances can be constructed per environment and replaced in
// tests.
type Client struct {
	api           *client.API
	webhookSecret string
}

func NewClient(secretKey, webhookSecret string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{api: api, webhookSecret: webhookSecret}
}

// NewClientWithBackend routes SDK calls through custom backends. Used by
// tests to point the SDK at a local server.
func NewClientWithBackend(secretKey, webhookSecret string, backends *stripe.Backends) *Client {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &Client{api: api, webhookSecret: webhookSecret}
}

// FindCustomerByEmail returns the first customer with a matching email, or
// (nil, nil) when none exists.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := c.api.Customers.List(params)
	for iter.Next() {
		return toCustomer(iter.Customer()), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return nil, nil
}

func (c *Client) CreateCustomer(ctx context.Context, email, name string) (*models.Customer, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	if name != "" {
		params.Name = stripe.String(name)
	}
	params.AddMetadata("source", "mini-saas-platform")

	customer, err := c.api.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	logger.Info("Stripe customer created", map[string]interface{}{
		"stripe_customer_id": customer.ID,
		"email":              email,
	})
	return toCustomer(customer), nil
}

func (c *Client) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	customer, err := c.api.Customers.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve customer: %w", err)
	}
	return toCustomer(customer), nil
}

func (c *Client) UpdateCustomer(ctx context.Context, id string, update models.CustomerUpdate) (*models.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if update.Email != nil {
		params.Email = stripe.String(*update.Email)
	}
	if update.Name != nil {
		params.Name = stripe.String(*update.Name)
	}

	customer, err := c.api.Customers.Update(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return toCustomer(customer), nil
}

// AttachPaymentMethod attaches the payment method and makes it the
// customer's invoice default.
func (c *Client) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	attachParams := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	attachParams.Context = ctx

	if _, err := c.api.PaymentMethods.Attach(paymentMethodID, attachParams); err != nil {
		return fmt.Errorf("failed to attach payment method: %w", err)
	}

	updateParams := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	updateParams.Context = ctx

	if _, err := c.api.Customers.Update(customerID, updateParams); err != nil {
		return fmt.Errorf("failed to set default payment method: %w", err)
	}

	logger.Info("Payment method attached", map[string]interface{}{
		"stripe_customer_id": customerID,
		"payment_method_id":  paymentMethodID,
	})
	return nil
}

func (c *Client) ListPaymentMethods(ctx context.Context, customerID string) ([]models.PaymentMethod, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String("card"),
	}
	params.Context = ctx

	methods := []models.PaymentMethod{}
	iter := c.api.PaymentMethods.List(params)
	for iter.Next() {
		methods = append(methods, toPaymentMethod(iter.PaymentMethod()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	return methods, nil
}

func (c *Client) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx

	if _, err := c.api.PaymentMethods.Detach(paymentMethodID, params); err != nil {
		return fmt.Errorf("failed to detach payment method: %w", err)
	}
	return nil
}

func (c *Client) CreateSubscription(ctx context.Context, customerID, priceID, paymentMethodID string) (*models.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
	}
	params.Context = ctx
	if paymentMethodID != "" {
		params.DefaultPaymentMethod = stripe.String(paymentMethodID)
	}
	params.AddExpand("latest_invoice.payment_intent")

	subscription, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return toSubscription(subscription), nil
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	subscription, err := c.api.Subscriptions.Cancel(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}
	return toSubscription(subscription), nil
}

// CreatePaymentIntent starts a one-time payment and returns the client
// secret the frontend needs to confirm it. Currency defaults to usd; the
// customer link is optional.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount int64, currency, customerID string) (*models.PaymentIntent, error) {
	if currency == "" {
		currency = "usd"
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	logger.Info("Payment intent created", map[string]interface{}{
		"payment_intent_id": intent.ID,
		"amount":            intent.Amount,
		"currency":          string(intent.Currency),
	})
	return toPaymentIntent(intent), nil
}

// ConstructWebhookEvent verifies the Stripe-Signature header against the
// webhook secret and returns the parsed event. The API version check is
// skipped; events are verified on signature and timestamp only.
func (c *Client) ConstructWebhookEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

func toCustomer(customer *stripe.Customer) *models.Customer {
	return &models.Customer{
		ID:    customer.ID,
		Email: customer.Email,
		Name:  customer.Name,
	}
}

func toPaymentMethod(pm *stripe.PaymentMethod) models.PaymentMethod {
	method := models.PaymentMethod{ID: pm.ID}
	if pm.Card != nil {
		method.Brand = string(pm.Card.Brand)
		method.Last4 = pm.Card.Last4
		method.ExpMonth = pm.Card.ExpMonth
		method.ExpYear = pm.Card.ExpYear
	}
	return method
}

func toPaymentIntent(intent *stripe.PaymentIntent) *models.PaymentIntent {
	return &models.PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     string(intent.Currency),
		Status:       string(intent.Status),
	}
}

func toSubscription(subscription *stripe.Subscription) *models.Subscription {
	sub := &models.Subscription{
		ID:     subscription.ID,
		Status: string(subscription.Status),
	}
	if subscription.Customer != nil {
		sub.CustomerID = subscription.Customer.ID
	}
	return sub
}
