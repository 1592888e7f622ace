package service

import (
	"context"
	"errors"

	"github.com/rosterhq/attendance/internal/domain"
	"github.com/rosterhq/attendance/internal/store"
	"github.com/rosterhq/attendance/pkg/slogx"
)

var ErrUserNotFound = errors.New("user_not_found")

// UserService covers the admin surface: listing users and flipping the
// active flag. Deactivation also revokes every session the user holds, so
// outstanding refresh tokens die with the account.
type UserService struct {
	Store store.Store
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Store.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.Store.Users().List(ctx)
}

// SetActive flips the account's active flag. Deactivating deletes the
// user's refresh sessions in the same transaction; the access guard's
// point-read covers the window until outstanding access tokens expire.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) error {
	l := slogx.FromContext(ctx)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetActive(ctx, id, active); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if !active {
			if _, err := tx.RefreshSessions().DeleteAllForUser(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.Info("user active flag changed", "user_id", id, "active", active)
	return nil
}
