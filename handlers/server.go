package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"minisaas.app/cloud/internal/identity"
	"minisaas.app/cloud/internal/notify"
	"minisaas.app/cloud/internal/onboarding"
	"minisaas.app/cloud/internal/payments"
	"minisaas.app/cloud/internal/ratelimit"
	"minisaas.app/cloud/storage"
)

// Notifier is the notification surface handlers need: queued delivery for
// login/signup events and synchronous forwarding for the relay endpoint.
type Notifier interface {
	notify.Queue
	Forward(ctx context.Context, p notify.Payload) error
}

type Server struct {
	Router     chi.Router
	Storage    storage.Storage
	Identity   identity.Service
	Payments   payments.Service
	Notifier   Notifier
	Onboarding *onboarding.Orchestrator

	version      string
	notifySecret string
}

type Config struct {
	Storage      storage.Storage
	Identity     identity.Service
	Payments     payments.Service
	Notifier     Notifier
	NotifySecret string
	Version      string

	// AuthLimiter guards the credential endpoints. Nil disables limiting
	// (tests).
	AuthLimiter ratelimit.RateLimit
}

func NewHTTPServer(cfg Config) *Server {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{
		Storage:      cfg.Storage,
		Identity:     cfg.Identity,
		Payments:     cfg.Payments,
		Notifier:     cfg.Notifier,
		Onboarding:   onboarding.New(cfg.Storage, cfg.Identity, cfg.Payments, cfg.Notifier),
		version:      cfg.Version,
		notifySecret: cfg.NotifySecret,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature", "X-Webhook-Secret"},
	}))

	r.Get("/health", s.Health)

	r.Route("/auth", func(r chi.Router) {
		if cfg.AuthLimiter != nil {
			r.Use(ratelimit.Middleware(cfg.AuthLimiter))
		}
		r.Post("/register", s.Register)
		r.Post("/login", s.Login)
		r.Post("/logout", s.Logout)
		r.Get("/me", s.Me)
	})

	r.Get("/profile/{id}", s.GetProfile)
	r.Post("/profile/update-stripe-customer-id", s.UpdateStripeCustomerID)

	r.Route("/payment", func(r chi.Router) {
		r.Post("/create-customer", s.CreateCustomer)
		r.Post("/find-or-create-customer", s.FindOrCreateCustomer)
		r.Post("/attach-payment-method", s.AttachPaymentMethod)
		r.Get("/payment-methods", s.ListPaymentMethods)
		r.Post("/payment-methods", s.ListPaymentMethods)
		r.Delete("/payment-methods", s.DeletePaymentMethod)
		r.Post("/setup", s.SetupPaymentMethod)
		r.Post("/create-payment-intent", s.CreatePaymentIntent)
		r.Post("/subscriptions", s.CreateSubscription)
		r.Delete("/subscriptions", s.CancelSubscription)
		r.Post("/webhook", s.StripeWebhook)
	})

	r.Post("/webhooks/notify", s.ForwardNotification)

	s.Router = r
	return s
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   s.version,
		Timestamp: time.Now(),
	})
}
