package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atelierhq/easel/pkg/auth"
	"github.com/atelierhq/easel/pkg/models"
	"github.com/atelierhq/easel/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Account handles registration and login against the user store.
type Account struct {
	persistence persistence.Persistence
	tokens      *auth.TokenManager
	validator   *validator.Validate
}

type RegisterRequest struct {
	Email    string `validate:"required,email"`
	Name     string `validate:"required,min=1,max=100"`
	Password string `validate:"required,min=8,max=72"`
}

func NewAccount(persist persistence.Persistence, tokens *auth.TokenManager) *Account {
	return &Account{
		persistence: persist,
		tokens:      tokens,
		validator:   validator.New(),
	}
}

// Register creates a user with a bcrypt-hashed password and returns it
// alongside a fresh token.
func (a *Account) Register(ctx context.Context, req RegisterRequest) (*models.User, string, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := a.validator.Struct(req); err != nil {
		return nil, "", NewValidationError("Register", err.Error(), ErrInvalidRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           "user-" + uuid.New().String(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := a.persistence.Users().Save(ctx, user); err != nil {
		if persistence.IsUserAlreadyExists(err) {
			return nil, "", ErrEmailTaken
		}

		return nil, "", fmt.Errorf("failed to save user: %w", err)
	}

	token, err := a.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// Login verifies credentials and returns the user with a fresh token.
// Unknown emails and wrong passwords are indistinguishable to callers.
func (a *Account) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := a.persistence.Users().ByEmail(ctx, email)
	if err != nil {
		if persistence.IsUserNotFound(err) {
			return nil, "", ErrInvalidCredentials
		}

		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := a.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}
