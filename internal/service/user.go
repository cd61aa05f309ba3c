package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/recipebox/recipebox/internal/auth"
	"github.com/recipebox/recipebox/internal/metrics"
	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/repository"
)

// TokenIssuer mints session tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// UserInput carries writable account fields. Nil means not supplied.
type UserInput struct {
	Email    *string
	Password *string
	Name     *string
}

// UserService handles account registration, login and profile updates.
type UserService struct {
	store   UserStore
	issuer  TokenIssuer
	metrics metrics.Recorder
}

// NewUserService creates a new UserService.
func NewUserService(store UserStore, issuer TokenIssuer, recorder metrics.Recorder) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{store: store, issuer: issuer, metrics: recorder}
}

// Create registers a new active user. Email, password and name are required.
func (s *UserService) Create(ctx context.Context, in UserInput) (*model.User, error) {
	in.Name = trimmed(in.Name)
	if err := validateUser(in, false); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(*in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        NormalizeEmail(*in.Email),
		Name:         *in.Name,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, fieldError("email", "user with this email already exists.")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.metrics.IncUserRegistered()
	return user, nil
}

// IssueToken checks an email/password pair and returns a session token.
// Unknown emails, wrong passwords and inactive accounts fail identically.
func (s *UserService) IssueToken(ctx context.Context, email, password string) (string, error) {
	v := &ValidationError{}
	if email == "" {
		v.Add("email", msgBlank)
	}
	if password == "" {
		v.Add("password", msgBlank)
	}
	if err := v.Err(); err != nil {
		return "", err
	}

	user, err := s.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncLoginFailed()
			return "", credentialsError()
		}
		return "", fmt.Errorf("look up user: %w", err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok || !user.IsActive {
		s.metrics.IncLoginFailed()
		return "", credentialsError()
	}

	if auth.NeedsRehash(user.PasswordHash) {
		if hash, err := auth.HashPassword(password); err == nil {
			user.PasswordHash = hash
			_ = s.store.UpdateUser(ctx, user)
		}
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.metrics.IncTokenIssued()
	return token, nil
}

// Get returns the account for userID.
func (s *UserService) Get(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return user, nil
}

// Update changes the caller's account. Without partial every field is
// required; a supplied password is re-hashed.
func (s *UserService) Update(ctx context.Context, userID string, in UserInput, partial bool) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err)
	}

	in.Name = trimmed(in.Name)
	if err := validateUser(in, partial); err != nil {
		return nil, err
	}

	if in.Email != nil {
		user.Email = NormalizeEmail(*in.Email)
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, fieldError("email", "user with this email already exists.")
		}
		return nil, mapNotFound(err)
	}
	return user, nil
}

func validateUser(in UserInput, partial bool) error {
	v := &ValidationError{}

	if !partial {
		if in.Email == nil {
			v.Add("email", msgRequired)
		}
		if in.Password == nil {
			v.Add("password", msgRequired)
		}
		if in.Name == nil {
			v.Add("name", msgRequired)
		}
	}

	if in.Email != nil {
		validateEmail(v, *in.Email)
	}
	if in.Password != nil {
		validatePassword(v, *in.Password)
	}
	if in.Name != nil {
		validateText(v, "name", *in.Name, true)
	}

	return v.Err()
}
