package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/MenuRater/internal/models"
	"github.com/Kerhoff/MenuRater/internal/repository"
)

// maxCredentialLength matches the VARCHAR(150) username and password columns.
const maxCredentialLength = 150

// Register creates a user. Usernames are matched exactly, case included.
// The password is stored as given.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, invalid("Username and password are required.")
	}
	if utf8.RuneCountInString(username) > maxCredentialLength || utf8.RuneCountInString(password) > maxCredentialLength {
		return nil, invalid("Username and password must be at most 150 characters.")
	}

	var user *models.User
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		existing, err := repos.Users.GetByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("failed to lookup user %q: %w", username, err)
		}
		if existing != nil {
			return ErrConflict
		}

		user, err = repos.Users.Create(ctx, &models.User{Username: username, Password: password})
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("failed to create user %q: %w", username, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("Registered new user")
	return user, nil
}

// Login checks the credentials and returns the matching principal.
func (s *Service) Login(ctx context.Context, username, password string) (models.Principal, error) {
	var user *models.User
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		user, err = repos.Users.GetByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("failed to lookup user %q: %w", username, err)
		}
		return nil
	})
	if err != nil {
		return models.Principal{}, err
	}

	if user == nil || subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
		return models.Principal{}, ErrInvalidCredentials
	}
	return user.Principal(), nil
}

// ResolvePrincipal loads the principal for a session's user id. A user that
// no longer exists yields ErrUnauthenticated.
func (s *Service) ResolvePrincipal(ctx context.Context, userID int64) (models.Principal, error) {
	var user *models.User
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		user, err = repos.Users.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get user %d: %w", userID, err)
		}
		return nil
	})
	if err != nil {
		return models.Principal{}, err
	}
	if user == nil {
		return models.Principal{}, ErrUnauthenticated
	}
	return user.Principal(), nil
}
