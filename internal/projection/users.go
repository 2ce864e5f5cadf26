package projection

import (
	"encoding/json"

	"github.com/example/grocery-shop/internal/domain/user"
	"github.com/example/grocery-shop/internal/infrastructure/store"
	"github.com/example/grocery-shop/internal/readmodel"
)

func (p *Projector) handleUserEvent(event store.Event) error {
	switch event.EventType {
	case user.EventUserCreated:
		var e user.UserCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.readStore.Set(readmodel.Users, e.UserID, &readmodel.UserReadModel{
			ID:           e.UserID,
			Email:        e.Email,
			PasswordHash: e.PasswordHash,
			Name:         e.Name,
			Role:         e.Role,
			IsActive:     true,
			CreatedAt:    e.CreatedAt,
			UpdatedAt:    e.CreatedAt,
		})

	case user.EventUserUpdated:
		var e user.UserUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return update(p.readStore, readmodel.Users, e.UserID, func(u *readmodel.UserReadModel) {
			u.Name = e.Name
			u.UpdatedAt = e.UpdatedAt
		})

	case user.EventUserPasswordChanged:
		var e user.UserPasswordChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		if err := update(p.readStore, readmodel.Users, e.UserID, func(u *readmodel.UserReadModel) {
			u.PasswordHash = e.PasswordHash
			u.UpdatedAt = e.ChangedAt
		}); err != nil {
			return err
		}
		// A new password signs every device out
		return p.deleteSessions(e.UserID)

	case user.EventUserLoggedIn:
		var e user.UserLoggedIn
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		if err := update(p.readStore, readmodel.Users, e.UserID, func(u *readmodel.UserReadModel) {
			u.LastLoginAt = e.LoggedAt
		}); err != nil {
			return err
		}
		return p.readStore.Set(readmodel.Sessions, e.SessionID, &readmodel.SessionReadModel{
			ID:               e.SessionID,
			UserID:           e.UserID,
			RefreshTokenHash: e.RefreshTokenHash,
			ExpiresAt:        e.ExpiresAt,
			CreatedAt:        e.LoggedAt,
			IPAddress:        e.IPAddress,
			UserAgent:        e.UserAgent,
		})

	case user.EventUserSessionRefreshed:
		var e user.UserSessionRefreshed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return update(p.readStore, readmodel.Sessions, e.SessionID, func(s *readmodel.SessionReadModel) {
			s.RefreshTokenHash = e.RefreshTokenHash
			s.ExpiresAt = e.ExpiresAt
		})

	case user.EventUserLoggedOut:
		var e user.UserLoggedOut
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.readStore.Delete(readmodel.Sessions, e.SessionID)

	case user.EventUserDeactivated:
		var e user.UserDeactivated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		if err := update(p.readStore, readmodel.Users, e.UserID, func(u *readmodel.UserReadModel) {
			u.IsActive = false
			u.UpdatedAt = e.DeactivatedAt
		}); err != nil {
			return err
		}
		return p.deleteSessions(e.UserID)

	case user.EventUserActivated:
		var e user.UserActivated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return update(p.readStore, readmodel.Users, e.UserID, func(u *readmodel.UserReadModel) {
			u.IsActive = true
			u.UpdatedAt = e.ActivatedAt
		})
	}

	return nil
}

func (p *Projector) deleteSessions(userID string) error {
	sessions, err := p.readStore.FindBy(readmodel.Sessions, "user_id", userID)
	if err != nil {
		return err
	}
	for _, item := range sessions {
		if s, ok := item.(*readmodel.SessionReadModel); ok {
			if err := p.readStore.Delete(readmodel.Sessions, s.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
