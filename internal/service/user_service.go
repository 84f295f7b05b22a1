package service

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/eraverse/sales-admin-service/internal/domain"
	"github.com/eraverse/sales-admin-service/internal/repository"
	"github.com/eraverse/sales-admin-service/internal/security"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 10
)

type UserInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func validUsername(name string) bool {
	if len(name) < minUsernameLen || len(name) > maxUsernameLen {
		return false
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

// validPassword enforces the panel's policy: at least ten characters with
// an upper-case letter, a digit and a symbol.
func validPassword(pw string) bool {
	if len(pw) < minPasswordLen {
		return false
	}
	var upper, digit, special bool
	for _, c := range pw {
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsDigit(c):
			digit = true
		case !unicode.IsLetter(c) && !unicode.IsDigit(c):
			special = true
		}
	}
	return upper && digit && special
}

func (s *UserService) Create(ctx context.Context, in UserInput) (*domain.User, error) {
	verr := &ValidationError{}

	username := strings.TrimSpace(in.Username)
	if !validUsername(username) {
		verr.add("username", "must be 3-50 characters of letters, digits, dot, underscore or hyphen")
	}
	if !validPassword(in.Password) {
		verr.add("password", "must be at least 10 characters with an upper-case letter, a digit and a symbol")
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if !domain.KnownRole(role) {
		verr.add("role", "must be owner, admin or staff")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByUsername(username); err == nil {
		verr.add("username", "is already taken")
		return nil, verr
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Username: username,
		PassHash: hash,
		Role:     role,
		IsActive: true,
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List()
}

// Delete removes a user. The caller's own account is protected so an admin
// cannot lock themselves out mid-session.
func (s *UserService) Delete(ctx context.Context, id, actingUserID uint) error {
	if id == actingUserID {
		verr := &ValidationError{}
		verr.add("user_id", "cannot delete your own account")
		return verr
	}
	deleted, err := s.users.Delete(id)
	if err != nil {
		return err
	}
	if !deleted {
		return repository.ErrUserNotFound
	}
	return nil
}
