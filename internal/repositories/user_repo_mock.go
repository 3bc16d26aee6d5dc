package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"royalchoice/internal/models"

	"github.com/google/uuid"
)

// MockUserRepository is an in-memory implementation of UserRepository and CartMigrator.
type MockUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]models.User),
	}
}

// Create adds a new user. Emails are unique.
func (r *MockUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return fmt.Errorf("email %s: %w", user.Email, ErrEmailTaken)
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.SchemaVersion == 0 {
		user.SchemaVersion = models.CurrentUserSchemaVersion
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = cloneUser(*user)
	return nil
}

// GetByEmail returns a user by email.
func (r *MockUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			found := cloneUser(u)
			return &found, nil
		}
	}
	return nil, fmt.Errorf("user with email %s: %w", email, ErrUserNotFound)
}

// GetByID returns a user by ID.
func (r *MockUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user with ID %s: %w", id, ErrUserNotFound)
	}
	found := cloneUser(u)
	return &found, nil
}

// UpdateCart replaces the cart of a user.
func (r *MockUserRepository) UpdateCart(_ context.Context, userID string, cart []models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user with ID %s: %w", userID, ErrUserNotFound)
	}
	u.UserCart = append([]models.CartItem(nil), cart...)
	u.UpdatedAt = time.Now()
	r.users[userID] = u
	return nil
}

// MigrateCarts stamps outdated users; in-memory carts never hold the legacy layout.
func (r *MockUserRepository) MigrateCarts(_ context.Context) (MigrationReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var report MigrationReport
	for id, u := range r.users {
		if u.SchemaVersion >= models.CurrentUserSchemaVersion {
			continue
		}
		report.Scanned++
		u.SchemaVersion = models.CurrentUserSchemaVersion
		r.users[id] = u
		report.Upgraded++
	}
	return report, nil
}

func cloneUser(u models.User) models.User {
	u.UserCart = append([]models.CartItem(nil), u.UserCart...)
	return u
}
