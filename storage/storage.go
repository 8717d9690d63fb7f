package storage

import (
	"context"
	"sync"
	"time"

	"minisaas.app/cloud/models"
)

// Storage persists profiles. Lookups return (nil, nil) when the row does not
// exist; errors are reserved for real failures so callers can tell "not
// found" apart from "broken".
type Storage interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	FindProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	SaveProfile(ctx context.Context, profile *models.Profile) error
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.Profile, error)
	SetStripeCustomerID(ctx context.Context, id, customerID string) error
	ClearStripeCustomerID(ctx context.Context, id string) error

	Close() error
}

// MemoryStorage is the in-memory implementation used by tests.
type MemoryStorage struct {
	mu       sync.Mutex
	Profiles map[string]models.Profile
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{Profiles: make(map[string]models.Profile)}
}

func (m *MemoryStorage) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, exists := m.Profiles[id]
	if !exists {
		return nil, nil
	}
	return &profile, nil
}

func (m *MemoryStorage) FindProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, profile := range m.Profiles {
		if profile.Email == email {
			p := profile
			return &p, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) SaveProfile(ctx context.Context, profile *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	m.Profiles[profile.ID] = *profile
	return nil
}

func (m *MemoryStorage) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyUpdate(id, update)
}

func (m *MemoryStorage) applyUpdate(id string, update models.ProfileUpdate) (*models.Profile, error) {
	profile, exists := m.Profiles[id]
	if !exists {
		return nil, nil
	}

	if update.Email != nil {
		profile.Email = *update.Email
	}
	if update.StripeCustomerID != nil {
		profile.StripeCustomerID = *update.StripeCustomerID
	}
	profile.UpdatedAt = time.Now().UTC()
	m.Profiles[id] = profile
	return &profile, nil
}

func (m *MemoryStorage) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.applyUpdate(id, models.ProfileUpdate{StripeCustomerID: &customerID})
	return err
}

func (m *MemoryStorage) ClearStripeCustomerID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	empty := ""
	_, err := m.applyUpdate(id, models.ProfileUpdate{StripeCustomerID: &empty})
	return err
}

func (m *MemoryStorage) Close() error {
	return nil
}
