package user

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/grocery-shop/internal/auth"
	"github.com/example/grocery-shop/internal/domain/aggregate"
	"github.com/example/grocery-shop/internal/infrastructure/store"
)

const AggregateType = "User"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrInvalidName        = errors.New("name is required")
	ErrInvalidRole        = errors.New("role must be customer or admin")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserDeactivated    = errors.New("user account is deactivated")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9\-]+(\.[a-zA-Z0-9\-]+)*\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return len(email) <= 254 && emailPattern.MatchString(email)
}

// NormalizeEmail is the form emails are stored and looked up in
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User represents a user aggregate
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	LastLoginAt  time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
}

// Aggregate interface implementation
func (u *User) GetID() string    { return u.ID }
func (u *User) GetVersion() int  { return u.Version }
func (u *User) SetVersion(v int) { u.Version = v }

// ApplyEvent applies a single event to the user state (implements aggregate.Aggregate)
func (u *User) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventUserCreated:
		var data UserCreated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.ID = data.UserID
		u.Email = data.Email
		u.PasswordHash = data.PasswordHash
		u.Name = data.Name
		u.Role = data.Role
		u.IsActive = true
		u.CreatedAt = data.CreatedAt
		u.UpdatedAt = data.CreatedAt
	case EventUserUpdated:
		var data UserUpdated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.Name = data.Name
		u.UpdatedAt = data.UpdatedAt
	case EventUserPasswordChanged:
		var data UserPasswordChanged
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.PasswordHash = data.PasswordHash
		u.UpdatedAt = data.ChangedAt
	case EventUserLoggedIn:
		var data UserLoggedIn
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.LastLoginAt = data.LoggedAt
	case EventUserDeactivated:
		var data UserDeactivated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.IsActive = false
		u.UpdatedAt = data.DeactivatedAt
	case EventUserActivated:
		var data UserActivated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.IsActive = true
		u.UpdatedAt = data.ActivatedAt
	}
	u.Version = event.Version
	return nil
}

// Service handles user domain operations
type Service struct {
	eventStore store.EventStoreInterface
}

// NewService creates a new user service
func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// Get loads a user by id
func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	u, found, err := aggregate.LoadAggregate(ctx, s.eventStore, userID, func() *User {
		return &User{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Register creates a new user
func (s *Service) Register(ctx context.Context, email, password, name string) (*User, error) {
	return s.RegisterWithRole(ctx, email, password, name, auth.RoleCustomer)
}

// RegisterAdmin creates a new admin user
func (s *Service) RegisterAdmin(ctx context.Context, email, password, name string) (*User, error) {
	return s.RegisterWithRole(ctx, email, password, name, auth.RoleAdmin)
}

// RegisterWithRole creates a new user with a specific role.
// Email uniqueness is checked by the caller against the users read model.
func (s *Service) RegisterWithRole(ctx context.Context, email, password, name, role string) (*User, error) {
	email = NormalizeEmail(email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if role != auth.RoleCustomer && role != auth.RoleAdmin {
		return nil, ErrInvalidRole
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{ID: uuid.New().String()}
	event := UserCreated{
		UserID:       u.ID,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	if err := aggregate.Commit(ctx, s.eventStore, u, AggregateType, EventUserCreated, event); err != nil {
		return nil, err
	}
	return u, nil
}

// RecordLogin records a user login event
func (s *Service) RecordLogin(ctx context.Context, userID, sessionID, ipAddress, userAgent string, expiresAt time.Time, refreshTokenHash string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !u.IsActive {
		return ErrUserDeactivated
	}

	event := UserLoggedIn{
		UserID:           userID,
		SessionID:        sessionID,
		RefreshTokenHash: refreshTokenHash,
		IPAddress:        ipAddress,
		UserAgent:        userAgent,
		ExpiresAt:        expiresAt,
		LoggedAt:         time.Now(),
	}
	return aggregate.Commit(ctx, s.eventStore, u, AggregateType, EventUserLoggedIn, event)
}

// RecordLogout records a user logout event
func (s *Service) RecordLogout(ctx context.Context, userID, sessionID string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	event := UserLoggedOut{
		UserID:    userID,
		SessionID: sessionID,
		LoggedAt:  time.Now(),
	}
	return aggregate.Commit(ctx, s.eventStore, u, AggregateType, EventUserLoggedOut, event)
}

// UpdateProfile updates user profile information
func (s *Service) UpdateProfile(ctx context.Context, userID, name string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	event := UserUpdated{
		UserID:    userID,
		Name:      name,
		UpdatedAt: time.Now(),
	}
	if err := aggregate.Commit(ctx, s.eventStore, u, AggregateType, EventUserUpdated, event); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword checks the current password and stores the new one
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(currentPassword, u.PasswordHash) {
		return ErrInvalidCredentials
	}

	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	event := UserPasswordChanged{
		UserID:       userID,
		PasswordHash: passwordHash,
		ChangedAt:    time.Now(),
	}
	return aggregate.Commit(ctx, s.eventStore, u, AggregateType, EventUserPasswordChanged, event)
}

// Deactivate deactivates a user account
func (s *Service) Deactivate(ctx context.Context, userID string) (*User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return u, nil
	}

	event := UserDeactivated{
		UserID:        userID,
		DeactivatedAt: time.Now(),
	}
	if err := aggregate.Commit(ctx, s.eventStore, u, AggregateType, EventUserDeactivated, event); err != nil {
		return nil, err
	}
	return u, nil
}

// Activate activates a user account
func (s *Service) Activate(ctx context.Context, userID string) (*User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.IsActive {
		return u, nil
	}

	event := UserActivated{
		UserID:      userID,
		ActivatedAt: time.Now(),
	}
	if err := aggregate.Commit(ctx, s.eventStore, u, AggregateType, EventUserActivated, event); err != nil {
		return nil, err
	}
	return u, nil
}

// RefreshSession rotates the refresh token of an existing session
func (s *Service) RefreshSession(ctx context.Context, userID, sessionID, refreshTokenHash string, expiresAt time.Time) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !u.IsActive {
		return ErrUserDeactivated
	}

	event := UserSessionRefreshed{
		UserID:           userID,
		SessionID:        sessionID,
		RefreshTokenHash: refreshTokenHash,
		ExpiresAt:        expiresAt,
		RefreshedAt:      time.Now(),
	}
	return aggregate.Commit(ctx, s.eventStore, u, AggregateType, EventUserSessionRefreshed, event)
}
