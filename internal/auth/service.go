// Package auth handles password hashing, token issuance and the request
// middleware that resolves and gates the authenticated principal.
package auth

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/libshelf/library-api/internal/entities"
	"github.com/libshelf/library-api/internal/errs"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_@+.\-]{1,150}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// UserStore is the identity-store surface the auth service needs.
type UserStore interface {
	Create(username, email, firstName, lastName, passwordHash string) (*entities.User, error)
	GetByID(id uint) (*entities.User, error)
	GetByUsername(username string) (*entities.User, error)
	SetPasswordHash(userID uint, hash string) error
}

// Service handles registration, credential checks and password changes.
type Service struct {
	store      UserStore
	bcryptCost int
}

func NewService(store UserStore, bcryptCost int) *Service {
	return &Service{store: store, bcryptCost: bcryptCost}
}

// Register creates an account with a hashed password and a default-role
// profile.
func (s *Service) Register(username, email, firstName, lastName, password string) (*entities.User, error) {
	if username == "" {
		return nil, errs.Validation("username", "username is required")
	}
	if !usernamePattern.MatchString(username) {
		return nil, errs.Validation("username", "username may only contain letters, digits and @/./+/-/_")
	}
	if password == "" {
		return nil, errs.Validation("password", "password is required")
	}
	if email != "" && (len(email) > 254 || !emailPattern.MatchString(email)) {
		return nil, errs.Validation("email", "invalid email format")
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return nil, errs.Validation("password", err.Error())
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return s.store.Create(username, email, firstName, lastName, hash)
}

// Authenticate validates credentials and returns the user with its profile.
// Failures surface as an Authorization kind without revealing whether the
// account exists.
func (s *Service) Authenticate(username, password string) (*entities.User, error) {
	user, err := s.store.GetByUsername(username)
	if err != nil {
		if errs.IsKind(err, errs.KindNotFound) {
			return nil, errs.Authorization("invalid credentials")
		}
		return nil, err
	}
	if err := CheckPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return nil, errs.Authorization("invalid credentials")
		}
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the old password before storing the new hash. A
// mismatch is an Authorization failure, not a validation one.
func (s *Service) ChangePassword(userID uint, oldPassword, newPassword string) error {
	if newPassword == "" {
		return errs.Validation("new_password", "new_password is required")
	}
	user, err := s.store.GetByID(userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(oldPassword, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return errs.Authorization("wrong password")
		}
		return err
	}
	hash, err := HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return errs.Validation("new_password", err.Error())
		}
		return err
	}
	return s.store.SetPasswordHash(userID, hash)
}
